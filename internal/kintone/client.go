package kintone

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"conversion-store-go/internal/config"
)

// duplicateValueMessage kintone在唯一性字段冲突时返回的固定错误文案
const duplicateValueMessage = "値がほかのレコードと重複しています。"

// conversionIDErrorKey 记录体中conversion_id字段在错误详情里的键
const conversionIDErrorKey = "record.conversion_id.value"

// RecordCreator 记录创建接口，便于在测试中替换真实客户端
type RecordCreator interface {
	// AddRecord 创建一条记录并返回kintone分配的记录ID
	AddRecord(ctx context.Context, record any) (string, error)
}

// 确保Client实现了RecordCreator接口
var _ RecordCreator = (*Client)(nil)

// Client kintone记录API的HTTP客户端，使用API Token认证
type Client struct {
	baseURL    string
	appID      string
	apiToken   string
	httpClient *http.Client
}

// NewClient 创建kintone客户端
func NewClient(cfg *config.KintoneConfig) (*Client, error) {
	if cfg == nil {
		return nil, fmt.Errorf("kintone配置不能为空")
	}
	if cfg.Domain == "" {
		return nil, fmt.Errorf("kintone域名不能为空")
	}
	if cfg.AppID == "" {
		return nil, fmt.Errorf("kintoneアプリID不能为空")
	}

	baseURL := cfg.Domain
	if !strings.HasPrefix(baseURL, "http://") && !strings.HasPrefix(baseURL, "https://") {
		baseURL = "https://" + baseURL
	}

	timeout := time.Duration(cfg.TimeoutSeconds) * time.Second
	if timeout <= 0 {
		timeout = 30 * time.Second
	}

	return &Client{
		baseURL:    strings.TrimSuffix(baseURL, "/"),
		appID:      cfg.AppID,
		apiToken:   cfg.APIToken,
		httpClient: &http.Client{Timeout: timeout},
	}, nil
}

// addRecordRequest POST /k/v1/record.json 的请求体
type addRecordRequest struct {
	App    string `json:"app"`
	Record any    `json:"record"`
}

// addRecordResponse 创建成功时的响应体
type addRecordResponse struct {
	ID       string `json:"id"`
	Revision string `json:"revision"`
}

// FieldError 单个字段的校验错误详情
type FieldError struct {
	Messages []string `json:"messages"`
}

// APIError kintone返回的结构化错误
type APIError struct {
	Status  int                   `json:"-"`
	Code    string                `json:"code"`
	ID      string                `json:"id"`
	Message string                `json:"message"`
	Errors  map[string]FieldError `json:"errors"`
}

func (e *APIError) Error() string {
	return fmt.Sprintf("kintone API错误 (status=%d, code=%s): %s", e.Status, e.Code, e.Message)
}

// IsDuplicateConversionID 判断错误是否为conversion_id重复（同一转换已被登记过）
func IsDuplicateConversionID(err error) bool {
	var apiErr *APIError
	if !errors.As(err, &apiErr) {
		return false
	}
	fieldErr, ok := apiErr.Errors[conversionIDErrorKey]
	if !ok {
		return false
	}
	for _, msg := range fieldErr.Messages {
		if msg == duplicateValueMessage {
			return true
		}
	}
	return false
}

// AddRecord 创建一条记录。非2xx响应解析为APIError返回。
func (c *Client) AddRecord(ctx context.Context, record any) (string, error) {
	body, err := json.Marshal(addRecordRequest{App: c.appID, Record: record})
	if err != nil {
		return "", fmt.Errorf("序列化记录体失败: %w", err)
	}

	url := c.baseURL + "/k/v1/record.json"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("构建kintone请求失败: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Cybozu-API-Token", c.apiToken)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("kintone请求失败: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("读取kintone响应失败: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		apiErr := &APIError{Status: resp.StatusCode}
		if jsonErr := json.Unmarshal(respBody, apiErr); jsonErr != nil {
			// 响应体不是预期的错误结构，保留原文便于排查
			apiErr.Message = string(respBody)
		}
		return "", apiErr
	}

	var result addRecordResponse
	if err := json.Unmarshal(respBody, &result); err != nil {
		return "", fmt.Errorf("解析kintone响应失败: %w", err)
	}
	return result.ID, nil
}
