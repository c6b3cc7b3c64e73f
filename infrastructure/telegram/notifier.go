package telegram

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"course-video-service/domain/ports"
	"course-video-service/pkg/logger"
)

const (
	defaultAPIBase = "https://api.telegram.org"
	maxErrorLen    = 500
	maxListedIDs   = 20
)

var htmlEscaper = strings.NewReplacer("&", "&amp;", "<", "&lt;", ">", "&gt;")

// TelegramNotifier - Telegram implementation of NotifierPort
type TelegramNotifier struct {
	botToken   string
	chatID     string
	apiBase    string
	httpClient *http.Client
}

type Config struct {
	BotToken string
	ChatID   string
	APIBase  string // ว่าง = api.telegram.org
}

// NewTelegramNotifier ไม่มี token หรือ chat id = ปิดการแจ้งเตือน (ทุก method คืน nil)
func NewTelegramNotifier(cfg Config) *TelegramNotifier {
	apiBase := strings.TrimSuffix(cfg.APIBase, "/")
	if apiBase == "" {
		apiBase = defaultAPIBase
	}
	return &TelegramNotifier{
		botToken: cfg.BotToken,
		chatID:   cfg.ChatID,
		apiBase:  apiBase,
		httpClient: &http.Client{
			Timeout: 10 * time.Second,
		},
	}
}

func (n *TelegramNotifier) IsEnabled() bool {
	return n.botToken != "" && n.chatID != ""
}

func (n *TelegramNotifier) sendMessage(ctx context.Context, message string) error {
	if !n.IsEnabled() {
		logger.DebugContext(ctx, "Telegram notification disabled, skipping")
		return nil
	}

	payload := map[string]interface{}{
		"chat_id":    n.chatID,
		"text":       message,
		"parse_mode": "HTML",
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return err
	}

	url := fmt.Sprintf("%s/bot%s/sendMessage", n.apiBase, n.botToken)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := n.httpClient.Do(req)
	if err != nil {
		logger.ErrorContext(ctx, "Failed to send Telegram message", "error", err)
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		logger.ErrorContext(ctx, "Telegram API error", "status", resp.StatusCode)
		return fmt.Errorf("telegram API returned status %d", resp.StatusCode)
	}

	logger.InfoContext(ctx, "Telegram notification sent")
	return nil
}

// SendTranscodeFailAlert ส่งแจ้งเตือนเมื่อ attempt ล้มเหลว
func (n *TelegramNotifier) SendTranscodeFailAlert(ctx context.Context, notification *ports.FailureNotification) error {
	message := fmt.Sprintf(`⚠️ <b>แปลงวิดีโอล้มเหลว</b>

📹 <b>%s</b>
🆔 Video: <code>%s</code>
🔄 Attempt: %d
⚙️ Stage: %s

❌ <b>Error:</b>
<pre>%s</pre>

⏰ Failed at: %s`,
		escapeHTML(notification.Title),
		notification.VideoID,
		notification.Attempt,
		notification.Stage,
		escapeHTML(truncateString(notification.Error, maxErrorLen)),
		notification.FailedAt,
	)

	return n.sendMessage(ctx, message)
}

// SendStuckJobsAlert รายการ video ที่ค้างใน processing และถูก mark failed แล้ว
func (n *TelegramNotifier) SendStuckJobsAlert(ctx context.Context, videoIDs []string) error {
	if len(videoIDs) == 0 {
		return nil
	}

	listed := videoIDs
	if len(listed) > maxListedIDs {
		listed = listed[:maxListedIDs]
	}

	var b strings.Builder
	fmt.Fprintf(&b, "🔴 <b>พบวิดีโอค้างใน processing %d รายการ</b>\n\n", len(videoIDs))
	for _, id := range listed {
		fmt.Fprintf(&b, "• <code>%s</code>\n", escapeHTML(id))
	}
	if extra := len(videoIDs) - len(listed); extra > 0 {
		fmt.Fprintf(&b, "… และอีก %d รายการ\n", extra)
	}
	b.WriteString("\nถูกเปลี่ยนเป็น failed แล้ว สามารถ retry ได้")

	return n.sendMessage(ctx, b.String())
}

func escapeHTML(s string) string {
	return htmlEscaper.Replace(s)
}

// truncateString ตัดตาม rune ไม่ให้ตัดกลางตัวอักษร
func truncateString(s string, maxLen int) string {
	runes := []rune(s)
	if len(runes) <= maxLen {
		return s
	}
	return string(runes[:maxLen]) + "..."
}

var _ ports.NotifierPort = (*TelegramNotifier)(nil)
