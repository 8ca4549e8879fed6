package handler

import (
	"context"
	"encoding/json"
	"log"
	"os"

	"conversion-store-go/internal/config"
	"conversion-store-go/internal/storage"
)

// FinalizeConsumer 消费对象存储finalize事件并触发转换处理。
// 事件只是触发器，失败的对象仍留在源桶里，由定时对账兜底，
// 所以每条消息无论处理成败都会被ack，避免毒消息反复投递。
type FinalizeConsumer struct {
	mq        storage.MessageQueue
	processor *ConversionProcessor
	cfg       *config.RabbitMQConfig
	source    string
	logger    *log.Logger
}

// NewFinalizeConsumer 创建finalize事件消费者
func NewFinalizeConsumer(mq storage.MessageQueue, processor *ConversionProcessor, cfg *config.RabbitMQConfig, sourceBucket string) *FinalizeConsumer {
	return &FinalizeConsumer{
		mq:        mq,
		processor: processor,
		cfg:       cfg,
		source:    sourceBucket,
		logger:    log.New(os.Stdout, "[FinalizeConsumer] ", log.LstdFlags),
	}
}

// Start 启动消费循环，阻塞直到ctx取消或投递通道关闭
func (c *FinalizeConsumer) Start(ctx context.Context) error {
	deliveries, err := c.mq.Consume(c.cfg.FinalizedQueue, "conversion-store", c.cfg.PrefetchCount)
	if err != nil {
		return err
	}
	c.logger.Printf("开始消费finalize事件: queue=%s", c.cfg.FinalizedQueue)

	for {
		select {
		case <-ctx.Done():
			c.logger.Println("消费循环收到停止信号")
			return ctx.Err()
		case d, ok := <-deliveries:
			if !ok {
				c.logger.Println("投递通道已关闭")
				return nil
			}
			c.handleDelivery(ctx, d.Body)
			if err := d.Ack(false); err != nil {
				c.logger.Printf("确认消息失败: %v", err)
			}
		}
	}
}

// handleDelivery 处理单条事件消息，任何错误都在此消化
func (c *FinalizeConsumer) handleDelivery(ctx context.Context, body []byte) {
	var event storage.ObjectFinalizedEvent
	if err := json.Unmarshal(body, &event); err != nil {
		c.logger.Printf("解析finalize事件失败，丢弃消息: %v", err)
		return
	}
	c.HandleObjectFinalized(ctx, &event)
}

// HandleObjectFinalized 处理一条finalize事件。
// 删除通知和纯元数据变更不触发处理；非源桶的事件也直接忽略。
func (c *FinalizeConsumer) HandleObjectFinalized(ctx context.Context, event *storage.ObjectFinalizedEvent) {
	if event.Name == "" {
		c.logger.Println("事件缺少对象名，忽略")
		return
	}
	if event.Bucket != "" && event.Bucket != c.source {
		c.logger.Printf("事件来自非源桶 %s，忽略: %s", event.Bucket, event.Name)
		return
	}
	if event.IsDeletion() {
		c.logger.Printf("删除通知，忽略: %s", event.Name)
		return
	}
	if event.IsMetadataUpdate() {
		c.logger.Printf("元数据变更通知，忽略: %s (metageneration=%s)", event.Name, event.Metageneration)
		return
	}

	// 处理失败不向上传播：错误通知已在处理器内发出，
	// 对象留在源桶等待对账重驱。
	if _, err := c.processor.ProcessConversion(ctx, event.Name); err != nil {
		c.logger.Printf("事件触发的处理失败，等待对账重试: %v", err)
	}
}
