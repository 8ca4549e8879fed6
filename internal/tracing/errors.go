package tracing

import (
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// ErrorType 定义错误类型，便于分类和过滤
type ErrorType string

const (
	// ErrorTypeStorage 对象存储错误
	ErrorTypeStorage ErrorType = "storage"
	// ErrorTypeKintone kintone记录API错误
	ErrorTypeKintone ErrorType = "kintone"
	// ErrorTypeValidation 转换文档校验错误
	ErrorTypeValidation ErrorType = "validation"
	// ErrorTypeTimeout 超时错误
	ErrorTypeTimeout ErrorType = "timeout"
)

// RecordError 记录错误，添加统一的错误类型和详情
func RecordError(span trace.Span, err error, errorType ErrorType) {
	if span == nil || err == nil {
		return
	}

	span.RecordError(err)
	span.SetAttributes(
		attribute.String("error.type", string(errorType)),
		attribute.String("error.message", err.Error()),
	)
	span.SetStatus(codes.Error, err.Error())
}

// RecordRedriveFailure 记录对账重驱单个对象失败
func RecordRedriveFailure(span trace.Span, objectName string, err error) {
	if span == nil || err == nil {
		return
	}

	span.AddEvent("redrive.failed", trace.WithAttributes(
		attribute.String("object.name", objectName),
		attribute.String("error.message", err.Error()),
	))
}
