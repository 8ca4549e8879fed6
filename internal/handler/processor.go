package handler

import (
	"context"
	"fmt"
	"log"
	"os"

	"conversion-store-go/internal/conversion"
	"conversion-store-go/internal/kintone"
	"conversion-store-go/internal/notify"
	"conversion-store-go/internal/storage"
)

// Outcome 单个转换对象的处理结果分类
type Outcome int

const (
	// OutcomeProcessed 新记录已创建并归档
	OutcomeProcessed Outcome = iota
	// OutcomeDuplicate 转换ID已存在，按成功归档
	OutcomeDuplicate
	// OutcomeFailed 处理失败，对象留在源桶等待下次对账
	OutcomeFailed
)

// ConversionProcessor 驱动单个转换对象的完整处理流程：
// 下载 -> 解析 -> 字段重映射 -> 提交kintone -> 归档 -> 通知。
type ConversionProcessor struct {
	store    storage.ObjectStorage
	records  kintone.RecordCreator
	notifier notify.Notifier
	logger   *log.Logger
}

// NewConversionProcessor 创建转换处理器
func NewConversionProcessor(store storage.ObjectStorage, records kintone.RecordCreator, notifier notify.Notifier) *ConversionProcessor {
	return &ConversionProcessor{
		store:    store,
		records:  records,
		notifier: notifier,
		logger:   log.New(os.Stdout, "[Conversion] ", log.LstdFlags),
	}
}

// ProcessConversion 处理源桶中的一个转换对象。
// 转换ID重复视为业务成功：记录已经在kintone里，照常归档。
// 任何失败都会推送错误通知并返回error，对象保持未处理状态。
func (p *ConversionProcessor) ProcessConversion(ctx context.Context, objectName string) (Outcome, error) {
	p.logger.Printf("开始处理转换对象: %s", objectName)

	// 1. 下载对象内容
	data, err := p.store.GetObject(ctx, p.store.SourceBucket(), objectName)
	if err != nil {
		return p.fail(ctx, objectName, fmt.Errorf("下载对象失败: %w", err))
	}

	// 2. 解析并校验转换文档
	doc, err := conversion.ParseDocument(data)
	if err != nil {
		return p.fail(ctx, objectName, fmt.Errorf("解析转换文档失败: %w", err))
	}

	// 3. 按字段映射表组装kintone记录
	record, err := conversion.Pack(doc)
	if err != nil {
		return p.fail(ctx, objectName, fmt.Errorf("组装记录失败: %w", err))
	}

	// 4. 提交记录
	recordID, err := p.records.AddRecord(ctx, record)
	duplicate := false
	switch {
	case err == nil:
		p.logger.Printf("记录创建成功: object=%s, recordID=%s", objectName, recordID)
	case kintone.IsDuplicateConversionID(err):
		// 上游偶发重复投递同一转换，记录已存在时不算失败
		duplicate = true
		p.logger.Printf("转换ID已存在，按成功处理: object=%s", objectName)
	default:
		return p.fail(ctx, objectName, fmt.Errorf("提交kintone记录失败: %w", err))
	}

	// 5. 归档到已处理桶
	if err := p.store.MarkProcessed(ctx, objectName); err != nil {
		return p.fail(ctx, objectName, fmt.Errorf("归档对象失败: %w", err))
	}

	// 6. 推送成功通知
	if duplicate {
		p.notifier.Success(ctx, fmt.Sprintf("conversion %s already stored (duplicate conversion_id), archived", objectName))
		return OutcomeDuplicate, nil
	}
	p.notifier.Success(ctx, fmt.Sprintf("conversion %s stored as kintone record %s", objectName, recordID))
	return OutcomeProcessed, nil
}

// fail 记录日志、推送错误通知并返回带对象名前缀的错误
func (p *ConversionProcessor) fail(ctx context.Context, objectName string, err error) (Outcome, error) {
	wrapped := fmt.Errorf("object %s: %w", objectName, err)
	p.logger.Printf("处理转换对象失败: %v", wrapped)
	p.notifier.Failure(ctx, wrapped.Error())
	return OutcomeFailed, wrapped
}
