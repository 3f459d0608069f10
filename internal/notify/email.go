package notify

import (
	"context"
	"fmt"
	"html"
	"log/slog"
	"strings"

	gomail "gopkg.in/gomail.v2"

	"pixiv_watcher/internal/config"
	"pixiv_watcher/internal/domain"
)

// mailDialer lets tests substitute the SMTP transport.
type mailDialer interface {
	DialAndSend(m ...*gomail.Message) error
}

// EmailSink sends the whole run as a single HTML digest mail over SSL SMTP.
type EmailSink struct {
	cfg      config.EmailConfig
	keywords string
	dialer   mailDialer
	logger   *slog.Logger
}

func NewEmailSink(cfg config.EmailConfig, keywords string, logger *slog.Logger) *EmailSink {
	d := gomail.NewDialer(cfg.Host, cfg.Port, cfg.User, cfg.Password)
	d.SSL = true
	return &EmailSink{cfg: cfg, keywords: keywords, dialer: d, logger: logger}
}

func (e *EmailSink) Name() string {
	return "email"
}

func (e *EmailSink) Send(_ context.Context, items []domain.NovelItem, info domain.RunInfo) error {
	if len(items) == 0 {
		return nil
	}

	m := gomail.NewMessage()
	m.SetHeader("From", e.cfg.User)
	m.SetHeader("To", e.cfg.To)
	m.SetHeader("Subject", fmt.Sprintf("Pixiv digest: %d new novels (%s)", len(items), info.NowDate))
	m.SetBody("text/html", renderEmailHTML(items, info, e.keywords))

	if err := e.dialer.DialAndSend(m); err != nil {
		return fmt.Errorf("send email: %w", err)
	}

	e.logger.Info("digest email sent", "items", len(items), "to", e.cfg.To)
	return nil
}

func renderEmailHTML(items []domain.NovelItem, info domain.RunInfo, keywords string) string {
	var sb strings.Builder

	fmt.Fprintf(&sb, `
	<div style="font-family: -apple-system, BlinkMacSystemFont, 'Segoe UI', Roboto, Helvetica, Arial, sans-serif; color: #333; max-width: 600px; margin: auto;">
		<h2 style="color: #0096fa; margin-bottom: 10px;">Pixiv keyword watch report</h2>
		<p style="font-size: 13px; color: #888; margin-top: 0;">
			<b>Keywords:</b> %s<br>
			<b>Scanned:</b> %s<br>
			<b>Range:</b> %s
		</p>
		<hr style="border: none; border-top: 1px solid #eee; margin: 20px 0;">
	`, html.EscapeString(keywords), info.ExecTime, info.Range)

	for i, item := range items {
		fmt.Fprintf(&sb, `
		<div style="margin-bottom: 30px; border-bottom: 1px dashed #eee; padding-bottom: 20px;">
			<h3 style="margin-bottom: 8px; font-size: 18px;">
				<span style="color: #aaa; font-weight: normal; margin-right: 5px;">#%d</span>
				<a href="%s" style="color: #333; text-decoration: none;">%s</a>
			</h3>
			<p style="color: #666; font-size: 13px; margin: 5px 0 15px 0;">
				👤 Author: <a href="%s" style="color: #333; text-decoration: none; font-weight: bold;">%s</a> <span style="color: #999; font-size: 12px;">(ID: %s)</span>
				&nbsp;|&nbsp; 🕒 Published: %s
			</p>
			<div style="font-size: 13px; color: #555; background: #f9f9f9; padding: 12px; border-radius: 6px; line-height: 1.6; margin-bottom: 15px;">
				%s
			</div>
			<div style="margin-top: 15px;">
				<div style="background: #f0f4c3; border: 1px solid #dce775; padding: 10px; border-radius: 6px;">
					<code style="font-size: 12px; font-family: monospace; color: #558b2f; word-break: break-all;">%s</code>
				</div>
			</div>
		</div>
		`,
			i+1,
			item.WebURL, html.EscapeString(item.Title),
			item.AuthorURL, html.EscapeString(item.AuthorName), item.AuthorID,
			item.PubDate,
			html.EscapeString(item.ContentPreview),
			item.SchemeURL,
		)
	}

	sb.WriteString(`
		<div style="text-align: center; margin-top: 40px; font-size: 12px; color: #ccc;">
			Generated by pixiv_watcher
		</div>
	</div>
	`)

	return sb.String()
}
