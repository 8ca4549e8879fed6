package storage

import (
	"context"
	"fmt"
	"log"
	"os"

	"conversion-store-go/internal/config"
)

// Storage 聚合所有存储相关客户端
type Storage struct {
	MinIO    *MinIO
	RabbitMQ *RabbitMQ
}

// NewStorage 按配置初始化各存储客户端。
// 对象存储是处理流水线的主数据面，初始化失败直接报错；
// RabbitMQ只在配置了URL时启用（未配置时finalize事件走HTTP入口补偿）。
func NewStorage(ctx context.Context, cfg *config.Config) (*Storage, error) {
	if cfg == nil {
		return nil, fmt.Errorf("配置不能为空")
	}

	s := &Storage{}

	minioLogger := log.New(os.Stdout, "", log.LstdFlags)
	minioClient, err := NewMinIO(&cfg.MinIO, minioLogger)
	if err != nil {
		return nil, fmt.Errorf("初始化MinIO失败: %w", err)
	}
	s.MinIO = minioClient

	if cfg.RabbitMQ.URL != "" {
		mq, err := NewRabbitMQ(&cfg.RabbitMQ)
		if err != nil {
			return nil, fmt.Errorf("初始化RabbitMQ失败: %w", err)
		}
		if err := mq.EnsureExchange(cfg.RabbitMQ.StorageEventsExchange, "topic", true); err != nil {
			mq.Close()
			return nil, err
		}
		if err := mq.EnsureQueue(cfg.RabbitMQ.FinalizedQueue, true); err != nil {
			mq.Close()
			return nil, err
		}
		if err := mq.BindQueue(cfg.RabbitMQ.FinalizedQueue, cfg.RabbitMQ.StorageEventsExchange, cfg.RabbitMQ.FinalizedRoutingKey); err != nil {
			mq.Close()
			return nil, err
		}
		s.RabbitMQ = mq
	} else {
		log.Println("未配置RabbitMQ URL，跳过消息队列初始化")
	}

	return s, nil
}

// Close 关闭所有存储连接
func (s *Storage) Close() {
	if s.RabbitMQ != nil {
		if err := s.RabbitMQ.Close(); err != nil {
			log.Printf("关闭RabbitMQ连接失败: %v", err)
		}
	}
}
