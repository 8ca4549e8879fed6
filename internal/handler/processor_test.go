package handler

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"

	"conversion-store-go/internal/conversion"
	"conversion-store-go/internal/kintone"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeStore 内存对象存储，模拟源桶/已处理桶两个命名空间
type fakeStore struct {
	mu        sync.Mutex
	source    map[string][]byte
	processed map[string][]byte
	listErr   map[string]error
	markErr   map[string]error
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		source:    make(map[string][]byte),
		processed: make(map[string][]byte),
		listErr:   make(map[string]error),
		markErr:   make(map[string]error),
	}
}

func (f *fakeStore) SourceBucket() string    { return "conversions" }
func (f *fakeStore) ProcessedBucket() string { return "conversions-processed" }

func (f *fakeStore) bucket(name string) map[string][]byte {
	if name == f.ProcessedBucket() {
		return f.processed
	}
	return f.source
}

func (f *fakeStore) GetObject(ctx context.Context, bucketName, objectName string) ([]byte, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	data, ok := f.bucket(bucketName)[objectName]
	if !ok {
		return nil, fmt.Errorf("对象不存在: %s/%s", bucketName, objectName)
	}
	return data, nil
}

func (f *fakeStore) ListObjects(ctx context.Context, bucketName string) ([]string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.listErr[bucketName]; err != nil {
		return nil, err
	}
	names := make([]string, 0)
	for name := range f.bucket(bucketName) {
		names = append(names, name)
	}
	return names, nil
}

func (f *fakeStore) MarkProcessed(ctx context.Context, objectName string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.markErr[objectName]; err != nil {
		return err
	}
	data, ok := f.source[objectName]
	if !ok {
		return fmt.Errorf("源对象不存在: %s", objectName)
	}
	f.processed[objectName] = data
	return nil
}

func (f *fakeStore) isProcessed(objectName string) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	_, ok := f.processed[objectName]
	return ok
}

// fakeRecords 可编程的记录创建桩
type fakeRecords struct {
	mu         sync.Mutex
	added      []any
	respond    func(record any) (string, error)
	respondCtx func(ctx context.Context, record any) (string, error)
}

func (f *fakeRecords) AddRecord(ctx context.Context, record any) (string, error) {
	f.mu.Lock()
	f.added = append(f.added, record)
	respond, respondCtx := f.respond, f.respondCtx
	f.mu.Unlock()

	if respondCtx != nil {
		return respondCtx(ctx, record)
	}
	if respond != nil {
		return respond(record)
	}
	return "100", nil
}

func (f *fakeRecords) addedCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.added)
}

// fakeNotifier 收集两个通道的消息
type fakeNotifier struct {
	mu        sync.Mutex
	successes []string
	failures  []string
}

func (f *fakeNotifier) Success(ctx context.Context, message string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.successes = append(f.successes, message)
}

func (f *fakeNotifier) Failure(ctx context.Context, message string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.failures = append(f.failures, message)
}

// duplicateIDError 构造conversion_id唯一性冲突的kintone错误
func duplicateIDError() error {
	return &kintone.APIError{
		Status:  400,
		Code:    "CB_VA01",
		Message: "入力内容が正しくありません。",
		Errors: map[string]kintone.FieldError{
			"record.conversion_id.value": {
				Messages: []string{"値がほかのレコードと重複しています。"},
			},
		},
	}
}

// validDocument 一份最小的资料请求转换文档
func validDocument(conversionID string) []byte {
	return []byte(fmt.Sprintf(`{
		"tag": {
			"conversion_id": %q,
			"category": "RequestsOfCatalog",
			"request_date": "2018-07-01T10:00:00",
			"status": "create"
		},
		"contents": {
			"name": "山田太郎",
			"pref": "13"
		}
	}`, conversionID))
}

func TestProcessConversionSuccess(t *testing.T) {
	store := newFakeStore()
	store.source["f1"] = validDocument("cv-001")
	records := &fakeRecords{}
	notifier := &fakeNotifier{}

	p := NewConversionProcessor(store, records, notifier)
	outcome, err := p.ProcessConversion(context.Background(), "f1")

	require.NoError(t, err)
	assert.Equal(t, OutcomeProcessed, outcome)
	assert.True(t, store.isProcessed("f1"), "对象应已归档到已处理桶")

	require.Len(t, records.added, 1)
	record, ok := records.added[0].(conversion.Record)
	require.True(t, ok, "提交的应是打包后的记录")
	assert.Equal(t, "cv-001", record[conversion.FieldConversionID].Value)

	require.Len(t, notifier.successes, 1)
	assert.Contains(t, notifier.successes[0], "f1")
	assert.Contains(t, notifier.successes[0], "100", "成功消息应携带记录ID")
	assert.Empty(t, notifier.failures)
}

func TestProcessConversionMalformedDocument(t *testing.T) {
	store := newFakeStore()
	store.source["bad"] = []byte(`{"tag": {"conversion_id": "x"}}`) // 缺少contents
	records := &fakeRecords{}
	notifier := &fakeNotifier{}

	p := NewConversionProcessor(store, records, notifier)
	outcome, err := p.ProcessConversion(context.Background(), "bad")

	require.Error(t, err)
	assert.Equal(t, OutcomeFailed, outcome)
	assert.ErrorIs(t, err, conversion.ErrMalformedDocument)
	assert.Zero(t, records.addedCount(), "畸形文档不应提交记录")
	assert.False(t, store.isProcessed("bad"), "失败的对象应留在源桶")
	require.Len(t, notifier.failures, 1)
	assert.Contains(t, notifier.failures[0], "bad")
}

func TestProcessConversionMissingObject(t *testing.T) {
	store := newFakeStore()
	p := NewConversionProcessor(store, &fakeRecords{}, &fakeNotifier{})

	outcome, err := p.ProcessConversion(context.Background(), "ghost")
	require.Error(t, err)
	assert.Equal(t, OutcomeFailed, outcome)
}

func TestProcessConversionKintoneFailure(t *testing.T) {
	store := newFakeStore()
	store.source["f1"] = validDocument("cv-001")
	records := &fakeRecords{
		respond: func(any) (string, error) {
			return "", &kintone.APIError{Status: 520, Code: "GAIA_UNKNOWN", Message: "server error"}
		},
	}
	notifier := &fakeNotifier{}

	p := NewConversionProcessor(store, records, notifier)
	outcome, err := p.ProcessConversion(context.Background(), "f1")

	require.Error(t, err)
	assert.Equal(t, OutcomeFailed, outcome)
	assert.False(t, store.isProcessed("f1"), "提交失败的对象不应归档")
	require.Len(t, notifier.failures, 1)
	assert.Empty(t, notifier.successes)
}

// TestProcessConversionDuplicateArchives 转换ID重复按成功处理：照常归档并发成功通知
func TestProcessConversionDuplicateArchives(t *testing.T) {
	store := newFakeStore()
	store.source["f1"] = validDocument("cv-001")
	records := &fakeRecords{
		respond: func(any) (string, error) { return "", duplicateIDError() },
	}
	notifier := &fakeNotifier{}

	p := NewConversionProcessor(store, records, notifier)
	outcome, err := p.ProcessConversion(context.Background(), "f1")

	require.NoError(t, err, "重复的转换ID不是失败")
	assert.Equal(t, OutcomeDuplicate, outcome)
	assert.True(t, store.isProcessed("f1"), "重复项也要归档，避免反复重驱")
	require.Len(t, notifier.successes, 1)
	assert.Empty(t, notifier.failures)
}

func TestProcessConversionArchiveFailure(t *testing.T) {
	store := newFakeStore()
	store.source["f1"] = validDocument("cv-001")
	store.markErr["f1"] = errors.New("copy denied")
	notifier := &fakeNotifier{}

	p := NewConversionProcessor(store, &fakeRecords{}, notifier)
	outcome, err := p.ProcessConversion(context.Background(), "f1")

	require.Error(t, err)
	assert.Equal(t, OutcomeFailed, outcome)
	require.Len(t, notifier.failures, 1)
	assert.Contains(t, notifier.failures[0], "f1")
}
