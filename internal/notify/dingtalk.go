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

// DingTalkNotifier posts to a DingTalk group robot webhook.
type DingTalkNotifier struct {
	webhook    string
	httpClient *http.Client
}

func NewDingTalkNotifier(webhook string) *DingTalkNotifier {
	return &DingTalkNotifier{
		webhook: webhook,
		httpClient: &http.Client{
			Timeout: 10 * time.Second,
		},
	}
}

type dingTalkResponse struct {
	ErrCode int    `json:"errcode"`
	ErrMsg  string `json:"errmsg"`
}

// SendText pushes a plain text message.
func (n *DingTalkNotifier) SendText(ctx context.Context, message string) SendResult {
	payload := map[string]interface{}{
		"msgtype": "text",
		"text": map[string]string{
			"content": message,
		},
	}
	return n.post(ctx, payload)
}

// SendMarkdown pushes a markdown message with a list title.
func (n *DingTalkNotifier) SendMarkdown(ctx context.Context, title, message string) SendResult {
	payload := map[string]interface{}{
		"msgtype": "markdown",
		"markdown": map[string]string{
			"title": title,
			"text":  message,
		},
	}
	return n.post(ctx, payload)
}

func (n *DingTalkNotifier) post(ctx context.Context, payload interface{}) SendResult {
	result := SendResult{Platform: string(PlatformDingTalk)}

	body, err := json.Marshal(payload)
	if err != nil {
		result.Error = fmt.Sprintf("钉钉消息编码失败: %v", err)
		return result
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, n.webhook, bytes.NewReader(body))
	if err != nil {
		result.Error = fmt.Sprintf("钉钉请求构建失败: %v", err)
		return result
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := n.httpClient.Do(req)
	if err != nil {
		util.Warn("dingtalk send failed", util.ErrorField(err))
		result.Error = fmt.Sprintf("钉钉发送异常: %v", err)
		return result
	}
	defer resp.Body.Close()

	var dtResp dingTalkResponse
	if err := json.NewDecoder(resp.Body).Decode(&dtResp); err != nil {
		result.Error = fmt.Sprintf("钉钉响应解析失败: %v", err)
		return result
	}

	if dtResp.ErrCode != 0 {
		msg := dtResp.ErrMsg
		if msg == "" {
			msg = "未知错误"
		}
		result.Error = "钉钉发送失败: " + msg
		return result
	}

	result.Success = true
	result.Message = "钉钉消息发送成功"
	return result
}
