package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"telecom-relay/internal/util"
)

const telegramAPIBase = "https://api.telegram.org"

// TelegramNotifier sends through the Telegram bot API.
type TelegramNotifier struct {
	botToken   string
	apiBase    string
	httpClient *http.Client
}

func NewTelegramNotifier(botToken string) *TelegramNotifier {
	return &TelegramNotifier{
		botToken: botToken,
		apiBase:  telegramAPIBase,
		httpClient: &http.Client{
			Timeout: 10 * time.Second,
		},
	}
}

type telegramResponse struct {
	OK          bool   `json:"ok"`
	Description string `json:"description"`
}

// SendMessage posts to the bot's sendMessage method. parseMode may be
// empty, "Markdown", or "HTML".
func (n *TelegramNotifier) SendMessage(ctx context.Context, chatID, message, parseMode string) SendResult {
	result := SendResult{Platform: string(PlatformTelegram)}

	payload := map[string]interface{}{
		"chat_id": chatID,
		"text":    message,
	}
	if parseMode != "" {
		payload["parse_mode"] = parseMode
	}

	body, err := json.Marshal(payload)
	if err != nil {
		result.Error = fmt.Sprintf("Telegram消息编码失败: %v", err)
		return result
	}

	url := fmt.Sprintf("%s/bot%s/sendMessage", n.apiBase, n.botToken)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		result.Error = fmt.Sprintf("Telegram请求构建失败: %v", err)
		return result
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := n.httpClient.Do(req)
	if err != nil {
		util.Warn("telegram send failed", util.ErrorField(err))
		result.Error = fmt.Sprintf("Telegram发送异常: %v", err)
		return result
	}
	defer resp.Body.Close()

	var tgResp telegramResponse
	if err := json.NewDecoder(resp.Body).Decode(&tgResp); err != nil {
		result.Error = fmt.Sprintf("Telegram响应解析失败: %v", err)
		return result
	}

	if !tgResp.OK {
		msg := tgResp.Description
		if msg == "" {
			msg = "未知错误"
		}
		result.Error = "Telegram发送失败: " + msg
		return result
	}

	result.Success = true
	result.Message = "Telegram消息发送成功"
	return result
}
