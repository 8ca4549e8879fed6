package ratelimit

import (
	"context"

	"conversion-store-go/internal/kintone"
)

// RateLimitedRecordCreator 对记录创建调用进行限流的代理。
// kintone对API Token的并发和频率有配额，对账批量重驱时用它匀速提交。
type RateLimitedRecordCreator struct {
	original    kintone.RecordCreator
	rateLimiter *TokenBucket
}

// 确保代理实现了RecordCreator接口
var _ kintone.RecordCreator = (*RateLimitedRecordCreator)(nil)

// NewRateLimitedRecordCreator 创建限流代理，qpm为每分钟允许的记录创建数
func NewRateLimitedRecordCreator(original kintone.RecordCreator, qpm int) *RateLimitedRecordCreator {
	return &RateLimitedRecordCreator{
		original:    original,
		rateLimiter: NewTokenBucket(qpm, 0),
	}
}

// AddRecord 等到取得令牌后再转发调用
func (rl *RateLimitedRecordCreator) AddRecord(ctx context.Context, record any) (string, error) {
	if err := rl.rateLimiter.Wait(ctx); err != nil {
		return "", err
	}
	return rl.original.AddRecord(ctx, record)
}
