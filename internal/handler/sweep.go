package handler

import (
	"context"
	"errors"
	"log"
	"os"
	"time"

	"conversion-store-go/internal/config"
	"conversion-store-go/internal/conversion"
	"conversion-store-go/internal/kintone"
	"conversion-store-go/internal/storage"
	"conversion-store-go/internal/tracing"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

const defaultItemTimeout = 60 * time.Second

// redriveErrorType 按失败环节给重驱错误分类：超时、文档畸形、
// kintone API报错，其余都归为对象存储侧的错误
func redriveErrorType(err error) tracing.ErrorType {
	var apiErr *kintone.APIError
	switch {
	case errors.Is(err, context.DeadlineExceeded):
		return tracing.ErrorTypeTimeout
	case errors.Is(err, conversion.ErrMalformedDocument):
		return tracing.ErrorTypeValidation
	case errors.As(err, &apiErr):
		return tracing.ErrorTypeKintone
	default:
		return tracing.ErrorTypeStorage
	}
}

// SweepResult 一次对账的统计结果
type SweepResult struct {
	SweepID    string   `json:"sweep_id"`
	Pending    int      `json:"pending"`
	Processed  int      `json:"processed"`
	Duplicates int      `json:"duplicates"`
	Failed     int      `json:"failed"`
	FailedKeys []string `json:"failed_keys,omitempty"`
}

// Sweeper 对账器：对比源桶和已处理桶，重驱漏掉的转换对象。
// 事件消费可能丢失触发（服务重启、通知投递失败），
// 对账是保证最终每个对象都被处理的兜底机制。
type Sweeper struct {
	store     storage.ObjectStorage
	processor *ConversionProcessor
	itemTO    time.Duration
	logger    *log.Logger
	tracer    trace.Tracer
}

// NewSweeper 创建对账器
func NewSweeper(store storage.ObjectStorage, processor *ConversionProcessor, cfg *config.SweepConfig) *Sweeper {
	itemTO := defaultItemTimeout
	if cfg != nil && cfg.ItemTimeoutSeconds > 0 {
		itemTO = time.Duration(cfg.ItemTimeoutSeconds) * time.Second
	}
	return &Sweeper{
		store:     store,
		processor: processor,
		itemTO:    itemTO,
		logger:    log.New(os.Stdout, "[Sweep] ", log.LstdFlags),
		tracer:    otel.Tracer("conversion-sweep"),
	}
}

// RunSweep 执行一次对账。
// 待处理项严格串行重驱，每项有独立超时；单项失败不中断整轮，
// 失败的对象留在源桶里等下一轮。
func (s *Sweeper) RunSweep(ctx context.Context) (*SweepResult, error) {
	result := &SweepResult{SweepID: uuid.NewString()}
	s.logger.Printf("开始对账: sweepID=%s", result.SweepID)

	// 1. 枚举两个桶
	sourceNames, err := s.store.ListObjects(ctx, s.store.SourceBucket())
	if err != nil {
		s.logger.Printf("枚举源桶失败: %v", err)
		return nil, err
	}
	processedNames, err := s.store.ListObjects(ctx, s.store.ProcessedBucket())
	if err != nil {
		s.logger.Printf("枚举已处理桶失败: %v", err)
		return nil, err
	}

	// 2. 差集即待处理项
	pending := conversion.Missing(sourceNames, processedNames)
	result.Pending = len(pending)
	if len(pending) == 0 {
		s.logger.Printf("对账完成，无待处理项: sweepID=%s", result.SweepID)
		return result, nil
	}

	// 仅在有待处理项时创建追踪Span
	ctx, span := s.tracer.Start(ctx, "sweep.Redrive",
		trace.WithAttributes(
			attribute.String("sweep.id", result.SweepID),
			attribute.Int("sweep.pending_count", len(pending)),
		),
	)
	defer span.End()

	s.logger.Printf("发现 %d 个待处理对象: sweepID=%s", len(pending), result.SweepID)

	// 3. 串行重驱
	for _, name := range pending {
		itemCtx, cancel := context.WithTimeout(ctx, s.itemTO)
		outcome, err := s.processor.ProcessConversion(itemCtx, name)
		cancel()

		switch {
		case err != nil:
			result.Failed++
			result.FailedKeys = append(result.FailedKeys, name)
			tracing.RecordError(span, err, redriveErrorType(err))
			tracing.RecordRedriveFailure(span, name, err)
		case outcome == OutcomeDuplicate:
			result.Duplicates++
		default:
			result.Processed++
		}
	}

	span.SetAttributes(
		attribute.Int("sweep.processed", result.Processed),
		attribute.Int("sweep.duplicates", result.Duplicates),
		attribute.Int("sweep.failed", result.Failed),
	)

	s.logger.Printf("对账完成: sweepID=%s, pending=%d, processed=%d, duplicates=%d, failed=%d",
		result.SweepID, result.Pending, result.Processed, result.Duplicates, result.Failed)
	return result, nil
}
