package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"

	"pixiv_watcher/internal/config"
	"pixiv_watcher/internal/domain"
)

// maxMessageLen is the Telegram sendMessage size cap; a run bigger than
// this is split into multiple messages at item-block boundaries.
const maxMessageLen = 4000

// TelegramSink posts the run digest as one or more HTML messages to a
// Telegram chat via the bot API.
type TelegramSink struct {
	client   *http.Client
	apiBase  string
	botToken string
	chatID   string
	logger   *slog.Logger
}

func NewTelegramSink(cfg config.TelegramConfig, logger *slog.Logger) *TelegramSink {
	return &TelegramSink{
		client:   &http.Client{Timeout: cfg.Timeout},
		apiBase:  "https://api.telegram.org",
		botToken: cfg.BotToken,
		chatID:   cfg.ChatID,
		logger:   logger,
	}
}

func (t *TelegramSink) Name() string {
	return "telegram"
}

// Send renders one block per item and flushes a message whenever the next
// block would push the buffer past maxMessageLen. Only the first message
// carries the report header. A failed chunk is logged and does not stop
// the remaining chunks.
func (t *TelegramSink) Send(ctx context.Context, items []domain.NovelItem, info domain.RunInfo) error {
	if len(items) == 0 {
		return nil
	}

	header := fmt.Sprintf(
		"<b>📅 Pixiv watch report (%d new)</b>\n"+
			"⏱ Scanned: <code>%s</code>\n"+
			"⏳ Range: <code>%s</code>\n"+
			"--------------------------------\n\n",
		len(items), info.ExecTime, info.Range,
	)

	var failed int
	flush := func(text string) {
		if text == "" {
			return
		}
		if err := t.post(ctx, text); err != nil {
			failed++
			t.logger.Error("telegram chunk delivery failed", "error", err)
		}
	}

	content := ""
	for i, item := range items {
		block := itemBlock(i+1, item)
		if len(content+block+header) > maxMessageLen {
			flush(header + content)
			content, header = block, ""
		} else {
			content += block
		}
	}
	flush(header + content)

	if failed > 0 {
		return fmt.Errorf("%d telegram chunk(s) failed", failed)
	}
	return nil
}

func itemBlock(index int, item domain.NovelItem) string {
	return fmt.Sprintf(
		"%d. <b>%s</b>\n"+
			"👤 Author: <a href='%s'>%s</a> (<code>%s</code>)\n"+
			"🕒 Published: %s\n"+
			"🆔 ID: <code>%s</code>\n"+
			"🔗 <a href='%s'>Web</a>\n"+
			"🚀 Scheme: <code>%s</code>\n\n",
		index, item.Title,
		item.AuthorURL, item.AuthorName, item.AuthorID,
		item.PubDate,
		item.ID,
		item.WebURL,
		item.SchemeURL,
	)
}

func (t *TelegramSink) post(ctx context.Context, text string) error {
	payload := map[string]any{
		"chat_id":                  t.chatID,
		"text":                     text,
		"parse_mode":               "HTML",
		"disable_web_page_preview": true,
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal payload: %w", err)
	}

	endpoint := fmt.Sprintf("%s/bot%s/sendMessage", t.apiBase, t.botToken)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := t.client.Do(req)
	if err != nil {
		return fmt.Errorf("execute request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("unexpected status: %d", resp.StatusCode)
	}

	return nil
}
