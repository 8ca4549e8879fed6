package handler

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"conversion-store-go/internal/config"
	"conversion-store-go/internal/conversion"
	"conversion-store-go/internal/kintone"
	"conversion-store-go/internal/tracing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestSweeper(store *fakeStore, records *fakeRecords, notifier *fakeNotifier) *Sweeper {
	processor := NewConversionProcessor(store, records, notifier)
	return NewSweeper(store, processor, &config.SweepConfig{ItemTimeoutSeconds: 5})
}

func TestRunSweepNoPending(t *testing.T) {
	store := newFakeStore()
	store.source["f1"] = validDocument("cv-001")
	store.processed["f1"] = store.source["f1"]

	sweeper := newTestSweeper(store, &fakeRecords{}, &fakeNotifier{})
	result, err := sweeper.RunSweep(context.Background())

	require.NoError(t, err)
	assert.NotEmpty(t, result.SweepID)
	assert.Equal(t, 0, result.Pending)
	assert.Equal(t, 0, result.Processed)
}

// TestRunSweepRedrivesMissing 差集里的对象被逐个重驱，重复项也会归档
func TestRunSweepRedrivesMissing(t *testing.T) {
	store := newFakeStore()
	store.source["f1"] = validDocument("cv-001")
	store.source["f2"] = validDocument("cv-002")
	store.source["f3"] = validDocument("cv-003")
	store.processed["f2"] = store.source["f2"]

	// f1 的转换ID已被登记过
	records := &fakeRecords{
		respond: func(record any) (string, error) {
			if record.(conversion.Record)[conversion.FieldConversionID].Value == "cv-001" {
				return "", duplicateIDError()
			}
			return "200", nil
		},
	}
	notifier := &fakeNotifier{}

	sweeper := newTestSweeper(store, records, notifier)
	result, err := sweeper.RunSweep(context.Background())

	require.NoError(t, err)
	assert.Equal(t, 2, result.Pending)
	assert.Equal(t, 1, result.Processed)
	assert.Equal(t, 1, result.Duplicates)
	assert.Equal(t, 0, result.Failed)
	assert.True(t, store.isProcessed("f1"), "重复项也应归档")
	assert.True(t, store.isProcessed("f3"))
}

// TestRunSweepContinuesAfterFailure 单项失败不中断整轮
func TestRunSweepContinuesAfterFailure(t *testing.T) {
	store := newFakeStore()
	store.source["f1"] = []byte("not json") // 解析必然失败
	store.source["f2"] = validDocument("cv-002")

	notifier := &fakeNotifier{}
	sweeper := newTestSweeper(store, &fakeRecords{}, notifier)
	result, err := sweeper.RunSweep(context.Background())

	require.NoError(t, err, "单项失败不使整轮对账报错")
	assert.Equal(t, 2, result.Pending)
	assert.Equal(t, 1, result.Processed)
	assert.Equal(t, 1, result.Failed)
	assert.Equal(t, []string{"f1"}, result.FailedKeys)
	assert.False(t, store.isProcessed("f1"), "失败的对象留在源桶等下一轮")
	assert.True(t, store.isProcessed("f2"))
	assert.Len(t, notifier.failures, 1)
}

// TestRunSweepItemTimeout 单项有独立超时：挂死的提交按失败记账，批次继续
func TestRunSweepItemTimeout(t *testing.T) {
	store := newFakeStore()
	store.source["f1"] = validDocument("cv-001")
	store.source["f2"] = validDocument("cv-002")

	records := &fakeRecords{
		respondCtx: func(ctx context.Context, record any) (string, error) {
			if record.(conversion.Record)[conversion.FieldConversionID].Value == "cv-001" {
				// 模拟挂死的提交，只能被单项超时叫停
				<-ctx.Done()
				return "", ctx.Err()
			}
			return "300", nil
		},
	}
	notifier := &fakeNotifier{}

	sweeper := newTestSweeper(store, records, notifier)
	sweeper.itemTO = 50 * time.Millisecond

	result, err := sweeper.RunSweep(context.Background())

	require.NoError(t, err)
	assert.Equal(t, 1, result.Failed)
	assert.Equal(t, []string{"f1"}, result.FailedKeys)
	assert.Equal(t, 1, result.Processed, "超时项之后的对象照常处理")
	assert.False(t, store.isProcessed("f1"))
	assert.True(t, store.isProcessed("f2"))
	require.Len(t, notifier.failures, 1)
	assert.Contains(t, notifier.failures[0], context.DeadlineExceeded.Error())
}

// TestRedriveErrorType 重驱失败按出错环节分类
func TestRedriveErrorType(t *testing.T) {
	cases := []struct {
		name string
		err  error
		want tracing.ErrorType
	}{
		{"超时", fmt.Errorf("object f1: %w", context.DeadlineExceeded), tracing.ErrorTypeTimeout},
		{"文档畸形", fmt.Errorf("object f1: %w", conversion.ErrMalformedDocument), tracing.ErrorTypeValidation},
		{"kintone报错", fmt.Errorf("object f1: %w", &kintone.APIError{Status: 520, Code: "GAIA_UNKNOWN"}), tracing.ErrorTypeKintone},
		{"存储错误", errors.New("bucket unreachable"), tracing.ErrorTypeStorage},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, redriveErrorType(tc.err))
		})
	}
}

func TestRunSweepListError(t *testing.T) {
	store := newFakeStore()
	store.listErr["conversions"] = errors.New("bucket unreachable")

	sweeper := newTestSweeper(store, &fakeRecords{}, &fakeNotifier{})
	result, err := sweeper.RunSweep(context.Background())

	require.Error(t, err)
	assert.Nil(t, result)
}
