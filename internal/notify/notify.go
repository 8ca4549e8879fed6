package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"time"

	"conversion-store-go/internal/config"
	"conversion-store-go/internal/logger"
)

// Notifier 通知发送接口。两个通道都是尽力而为：
// 发送失败只记日志，绝不向调用方传播。
type Notifier interface {
	// Success 向成功通道（Google Chat）发送纯文本消息
	Success(ctx context.Context, message string)
	// Failure 向错误通道（Slack）发送结构化消息
	Failure(ctx context.Context, message string)
}

// 确保WebhookNotifier实现了Notifier接口
var _ Notifier = (*WebhookNotifier)(nil)

// WebhookNotifier 基于出站Webhook的通知实现
type WebhookNotifier struct {
	cfg        *config.NotifyConfig
	httpClient *http.Client
}

// NewWebhookNotifier 创建Webhook通知器
func NewWebhookNotifier(cfg *config.NotifyConfig) *WebhookNotifier {
	timeout := time.Duration(cfg.TimeoutSeconds) * time.Second
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &WebhookNotifier{
		cfg:        cfg,
		httpClient: &http.Client{Timeout: timeout},
	}
}

// chatMessage Google Chat入站Webhook的消息体
type chatMessage struct {
	Text string `json:"text"`
}

// slackMessage Slack入站Webhook的消息体
type slackMessage struct {
	Username  string `json:"username"`
	IconEmoji string `json:"icon_emoji"`
	Text      string `json:"text"`
}

// Success 向Google Chat发送完成通知
func (n *WebhookNotifier) Success(ctx context.Context, message string) {
	if n.cfg.SuccessWebhookURL == "" {
		logger.Debug().Msg("成功通知Webhook未配置，跳过发送")
		return
	}
	n.post(ctx, "success", n.cfg.SuccessWebhookURL, chatMessage{Text: message})
}

// Failure 向Slack发送错误通知
func (n *WebhookNotifier) Failure(ctx context.Context, message string) {
	if n.cfg.ErrorWebhookURL == "" {
		logger.Debug().Msg("错误通知Webhook未配置，跳过发送")
		return
	}
	n.post(ctx, "error", n.cfg.ErrorWebhookURL, slackMessage{
		Username:  n.cfg.Username,
		IconEmoji: n.cfg.IconEmoji,
		Text:      message,
	})
}

// post 发送单条Webhook消息。任何失败都在这里消化掉。
func (n *WebhookNotifier) post(ctx context.Context, channel, url string, payload any) {
	body, err := json.Marshal(payload)
	if err != nil {
		logger.Error().Err(err).Str("channel", channel).Msg("序列化通知消息失败")
		return
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		logger.Error().Err(err).Str("channel", channel).Msg("构建通知请求失败")
		return
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := n.httpClient.Do(req)
	if err != nil {
		logger.Error().Err(err).Str("channel", channel).Msg("发送通知失败")
		return
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		respBody, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		logger.Error().
			Str("channel", channel).
			Int("status", resp.StatusCode).
			Str("body", string(respBody)).
			Msg("通知通道返回非预期状态码")
		return
	}

	logger.Debug().Str("channel", channel).Msg("通知发送成功")
}
