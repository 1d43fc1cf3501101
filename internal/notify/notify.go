// Package notify pushes rendered reports to chat platforms.
package notify

import (
	"context"
	"time"

	"telecom-relay/internal/config"
	"telecom-relay/internal/format"
	"telecom-relay/internal/util"
)

// Platform selects where a notification goes.
type Platform string

const (
	PlatformDingTalk Platform = "dingtalk"
	PlatformTelegram Platform = "telegram"
	PlatformBoth     Platform = "both"
)

// SendResult is the per-platform outcome of one send.
type SendResult struct {
	Platform string `json:"platform"`
	Success  bool   `json:"success"`
	Message  string `json:"message,omitempty"`
	Error    string `json:"error,omitempty"`
}

// Manager routes messages to whichever notifiers are configured.
type Manager struct {
	dingtalk *DingTalkNotifier
	telegram *TelegramNotifier
	chatID   string
	now      func() time.Time
}

func NewManager(cfg *config.NotifyConfig) *Manager {
	m := &Manager{
		chatID: cfg.TelegramChatID,
		now:    time.Now,
	}
	if cfg.DingTalkWebhook != "" {
		m.dingtalk = NewDingTalkNotifier(cfg.DingTalkWebhook)
		util.Info("dingtalk notifier initialized")
	}
	if cfg.TelegramBotToken != "" {
		m.telegram = NewTelegramNotifier(cfg.TelegramBotToken)
		util.Info("telegram notifier initialized")
	}
	return m
}

// AvailablePlatforms lists the notifiers that have credentials.
func (m *Manager) AvailablePlatforms() []string {
	platforms := []string{}
	if m.dingtalk != nil {
		platforms = append(platforms, string(PlatformDingTalk))
	}
	if m.telegram != nil {
		platforms = append(platforms, string(PlatformTelegram))
	}
	return platforms
}

// Send delivers message to the chosen platform(s). An unconfigured
// platform produces a failed SendResult, not an error: callers get one
// result per platform they addressed.
func (m *Manager) Send(ctx context.Context, platform Platform, message, chatID string, markdown bool) []SendResult {
	var results []SendResult

	stamped := message + "\n\n📅 查询时间：" + format.BeijingTime(m.now())

	if platform == PlatformDingTalk || platform == PlatformBoth {
		results = append(results, m.sendDingTalk(ctx, stamped, markdown))
	}

	if platform == PlatformTelegram || platform == PlatformBoth {
		results = append(results, m.sendTelegram(ctx, stamped, chatID, markdown))
	}

	return results
}

// SendTest pushes a fixed probe message for verifying credentials.
func (m *Manager) SendTest(ctx context.Context, platform Platform, chatID string) []SendResult {
	const testMessage = "🧪 测试消息\n\n这是一条来自电信套餐查询系统的测试消息。\n\n如果您收到此消息，说明通知配置正常。"
	return m.Send(ctx, platform, testMessage, chatID, false)
}

func (m *Manager) sendDingTalk(ctx context.Context, message string, markdown bool) SendResult {
	if m.dingtalk == nil {
		return SendResult{Platform: string(PlatformDingTalk), Success: false, Error: "钉钉Webhook未配置"}
	}
	if markdown {
		return m.dingtalk.SendMarkdown(ctx, "电信套餐查询", message)
	}
	return m.dingtalk.SendText(ctx, message)
}

func (m *Manager) sendTelegram(ctx context.Context, message, chatID string, markdown bool) SendResult {
	if m.telegram == nil {
		return SendResult{Platform: string(PlatformTelegram), Success: false, Error: "Telegram Bot Token未配置"}
	}
	if chatID == "" {
		chatID = m.chatID
	}
	if chatID == "" {
		return SendResult{Platform: string(PlatformTelegram), Success: false, Error: "Telegram Chat ID未配置"}
	}

	parseMode := ""
	if markdown {
		parseMode = "Markdown"
	}
	return m.telegram.SendMessage(ctx, chatID, message, parseMode)
}
