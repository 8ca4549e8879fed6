package storage

import (
	"context"
	"fmt"
	"io"
	"log"

	"conversion-store-go/internal/config"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
)

// ObjectStorage 对象存储接口。对象名同时承担内容寻址和处理状态标记两种职责：
// 源桶里存在而已处理桶里不存在的对象名即为待处理转换。
type ObjectStorage interface {
	// GetObject 读取指定桶中对象的完整内容
	GetObject(ctx context.Context, bucketName, objectName string) ([]byte, error)

	// ListObjects 枚举指定桶中的全部对象名
	ListObjects(ctx context.Context, bucketName string) ([]string, error)

	// MarkProcessed 把源桶对象复制到已处理桶（同名），按配置决定是否删除原对象
	MarkProcessed(ctx context.Context, objectName string) error

	// SourceBucket 源桶名
	SourceBucket() string

	// ProcessedBucket 已处理桶名
	ProcessedBucket() string
}

// 确保MinIO实现了ObjectStorage接口
var _ ObjectStorage = (*MinIO)(nil)

// MinIO 提供对象存储功能
type MinIO struct {
	client          *minio.Client
	cfg             *config.MinIOConfig
	sourceBucket    string
	processedBucket string
	logger          *log.Logger
}

// NewMinIO 创建MinIO客户端并确保两个存储桶存在
func NewMinIO(cfg *config.MinIOConfig, logger *log.Logger) (*MinIO, error) {
	if cfg == nil {
		return nil, fmt.Errorf("MinIO配置不能为空")
	}
	if cfg.SourceBucket == "" || cfg.ProcessedBucket == "" {
		return nil, fmt.Errorf("源桶和已处理桶名称不能为空")
	}
	if logger == nil {
		logger = log.New(io.Discard, "", 0)
	}
	logger.Printf("[MinIO] Initializing client: endpoint=%s, sourceBucket=%s, processedBucket=%s",
		cfg.Endpoint, cfg.SourceBucket, cfg.ProcessedBucket)

	client, err := minio.New(cfg.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKeyID, cfg.SecretAccessKey, ""),
		Secure: cfg.UseSSL,
	})
	if err != nil {
		return nil, fmt.Errorf("创建MinIO客户端失败: %w", err)
	}

	m := &MinIO{
		client:          client,
		cfg:             cfg,
		sourceBucket:    cfg.SourceBucket,
		processedBucket: cfg.ProcessedBucket,
		logger:          logger,
	}

	for _, bucket := range []string{m.sourceBucket, m.processedBucket} {
		if err := m.ensureBucketExists(bucket, cfg.Location); err != nil {
			return nil, fmt.Errorf("确保存储桶 %s 存在失败: %w", bucket, err)
		}
	}

	logger.Printf("[MinIO] Client initialized successfully for endpoint: %s", cfg.Endpoint)
	return m, nil
}

// ensureBucketExists 确保存储桶存在
func (m *MinIO) ensureBucketExists(bucketName, location string) error {
	exists, err := m.client.BucketExists(context.Background(), bucketName)
	if err != nil {
		return fmt.Errorf("检查存储桶 %s 是否存在时出错: %w", bucketName, err)
	}
	if !exists {
		m.logger.Printf("[MinIO] Bucket %s does not exist, creating...", bucketName)
		err = m.client.MakeBucket(context.Background(), bucketName, minio.MakeBucketOptions{Region: location})
		if err != nil {
			return fmt.Errorf("创建存储桶 %s 失败: %w", bucketName, err)
		}
	}
	return nil
}

// SourceBucket 源桶名
func (m *MinIO) SourceBucket() string {
	return m.sourceBucket
}

// ProcessedBucket 已处理桶名
func (m *MinIO) ProcessedBucket() string {
	return m.processedBucket
}

// GetObject 读取对象的完整内容
func (m *MinIO) GetObject(ctx context.Context, bucketName, objectName string) ([]byte, error) {
	obj, err := m.client.GetObject(ctx, bucketName, objectName, minio.GetObjectOptions{})
	if err != nil {
		return nil, fmt.Errorf("获取对象 %s/%s 失败: %w", bucketName, objectName, err)
	}
	defer obj.Close()

	data, err := io.ReadAll(obj)
	if err != nil {
		return nil, fmt.Errorf("读取对象 %s/%s 数据失败: %w", bucketName, objectName, err)
	}
	m.logger.Printf("[MinIO] Downloaded %d bytes from %s/%s", len(data), bucketName, objectName)
	return data, nil
}

// ListObjects 枚举桶中全部对象名
func (m *MinIO) ListObjects(ctx context.Context, bucketName string) ([]string, error) {
	names := make([]string, 0)
	for info := range m.client.ListObjects(ctx, bucketName, minio.ListObjectsOptions{Recursive: true}) {
		if info.Err != nil {
			return nil, fmt.Errorf("枚举存储桶 %s 失败: %w", bucketName, info.Err)
		}
		names = append(names, info.Key)
	}
	return names, nil
}

// MarkProcessed 服务端复制源桶对象到已处理桶，对象名不变。
// delete_after_process开启时再删除原对象；默认保留，重复项由对账差集过滤。
func (m *MinIO) MarkProcessed(ctx context.Context, objectName string) error {
	src := minio.CopySrcOptions{
		Bucket: m.sourceBucket,
		Object: objectName,
	}
	dst := minio.CopyDestOptions{
		Bucket: m.processedBucket,
		Object: objectName,
	}

	if _, err := m.client.CopyObject(ctx, dst, src); err != nil {
		return fmt.Errorf("复制对象 %s 到已处理桶失败: %w", objectName, err)
	}
	m.logger.Printf("[MinIO] Copied %s to processed bucket %s", objectName, m.processedBucket)

	if m.cfg.DeleteAfterProcess {
		if err := m.client.RemoveObject(ctx, m.sourceBucket, objectName, minio.RemoveObjectOptions{}); err != nil {
			return fmt.Errorf("删除已处理的源对象 %s 失败: %w", objectName, err)
		}
		m.logger.Printf("[MinIO] Removed %s from source bucket %s", objectName, m.sourceBucket)
	}
	return nil
}
