package kintone

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"conversion-store-go/internal/config"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	client, err := NewClient(&config.KintoneConfig{
		Domain:   server.URL,
		AppID:    "42",
		APIToken: "test-token",
	})
	require.NoError(t, err)
	return client
}

// TestAddRecord 创建成功时返回kintone分配的记录ID
func TestAddRecord(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/k/v1/record.json", r.URL.Path)
		assert.Equal(t, "test-token", r.Header.Get("X-Cybozu-API-Token"))

		var body map[string]any
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "42", body["app"])
		record := body["record"].(map[string]any)
		assert.Equal(t, map[string]any{"value": "cv-0001"}, record["conversion_id"])

		fmt.Fprint(w, `{"id": "100", "revision": "1"}`)
	})

	recordID, err := client.AddRecord(context.Background(), map[string]any{
		"conversion_id": map[string]any{"value": "cv-0001"},
	})
	require.NoError(t, err)
	assert.Equal(t, "100", recordID)
}

// TestAddRecordDuplicateConversionID conversion_id重复的错误能被识别
func TestAddRecordDuplicateConversionID(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		fmt.Fprint(w, `{
			"code": "CB_VA01",
			"id": "err-1",
			"message": "入力内容が正しくありません。",
			"errors": {
				"record.conversion_id.value": {
					"messages": ["値がほかのレコードと重複しています。"]
				}
			}
		}`)
	})

	_, err := client.AddRecord(context.Background(), map[string]any{})
	require.Error(t, err)
	assert.True(t, IsDuplicateConversionID(err), "应识别为conversion_id重复")

	var apiErr *APIError
	require.True(t, errors.As(err, &apiErr))
	assert.Equal(t, http.StatusBadRequest, apiErr.Status)
	assert.Equal(t, "CB_VA01", apiErr.Code)
}

// TestAddRecordOtherAPIError 其他API错误不应被误判为重复
func TestAddRecordOtherAPIError(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		fmt.Fprint(w, `{
			"code": "CB_VA01",
			"id": "err-2",
			"message": "入力内容が正しくありません。",
			"errors": {
				"record.user_email.value": {
					"messages": ["メールアドレスの形式が正しくありません。"]
				}
			}
		}`)
	})

	_, err := client.AddRecord(context.Background(), map[string]any{})
	require.Error(t, err)
	assert.False(t, IsDuplicateConversionID(err))
}

// TestAddRecordNonJSONError 非JSON错误响应保留原文
func TestAddRecordNonJSONError(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
		fmt.Fprint(w, "bad gateway")
	})

	_, err := client.AddRecord(context.Background(), map[string]any{})
	require.Error(t, err)

	var apiErr *APIError
	require.True(t, errors.As(err, &apiErr))
	assert.Equal(t, http.StatusBadGateway, apiErr.Status)
	assert.Contains(t, apiErr.Message, "bad gateway")
	assert.False(t, IsDuplicateConversionID(err))
}

// TestIsDuplicateConversionIDNonAPIError 传输层错误不属于重复错误
func TestIsDuplicateConversionIDNonAPIError(t *testing.T) {
	assert.False(t, IsDuplicateConversionID(errors.New("connection refused")))
	assert.False(t, IsDuplicateConversionID(nil))
}

// TestNewClientValidation 必填配置缺失时报错
func TestNewClientValidation(t *testing.T) {
	_, err := NewClient(nil)
	assert.Error(t, err)

	_, err = NewClient(&config.KintoneConfig{AppID: "42"})
	assert.Error(t, err, "缺少域名应报错")

	_, err = NewClient(&config.KintoneConfig{Domain: "example.cybozu.com"})
	assert.Error(t, err, "缺少アプリID应报错")

	client, err := NewClient(&config.KintoneConfig{Domain: "example.cybozu.com", AppID: "42"})
	require.NoError(t, err)
	assert.Equal(t, "https://example.cybozu.com", client.baseURL, "裸域名应补全https前缀")
}
