package service

import (
	"context"
	"fmt"
	"log/slog"
	"regexp"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"

	"pixiv_watcher/internal/domain"
)

const previewPlaceholder = "(preview unavailable)"

var (
	bracketRe = regexp.MustCompile(`\[[^\]]*\]`)
	newlineRe = regexp.MustCompile(`[\r\n]+`)
)

// Enricher derives the display fields sinks render from a raw search hit.
type Enricher struct {
	source     NovelSource
	previewLen int
	logger     *slog.Logger
}

func NewEnricher(source NovelSource, previewLen int, logger *slog.Logger) *Enricher {
	return &Enricher{source: source, previewLen: previewLen, logger: logger}
}

// Enrich builds a NovelItem from an admitted novel. The body fetch is best
// effort: on failure the preview falls back to a placeholder instead of
// failing the item.
func (e *Enricher) Enrich(ctx context.Context, novel domain.Novel, publishedAt time.Time) domain.NovelItem {
	preview := previewPlaceholder
	text, err := e.source.NovelText(ctx, novel.ID)
	if err != nil {
		e.logger.Warn("fetch novel text failed", "novel_id", novel.ID, "error", err)
	} else if cleaned := sanitizePreview(text, e.previewLen); cleaned != "" {
		preview = cleaned
	}

	return domain.NovelItem{
		ID:             novel.ID,
		Title:          novel.Title,
		AuthorName:     novel.AuthorName,
		AuthorID:       novel.AuthorID,
		AuthorURL:      fmt.Sprintf("https://www.pixiv.net/users/%s", novel.AuthorID),
		WebURL:         fmt.Sprintf("https://www.pixiv.net/novel/show.php?id=%s", novel.ID),
		SchemeURL:      fmt.Sprintf("pixez://novel/%s", novel.ID),
		PublishedAt:    publishedAt,
		PubDate:        publishedAt.Format("2006-01-02 15:04"),
		ContentPreview: preview,
		Tags:           novel.Tags,
	}
}

// sanitizePreview strips markup and bracketed annotation spans, collapses
// line-break runs to single spaces, trims, and caps the result at limit
// runes with a trailing ellipsis when it was cut.
func sanitizePreview(raw string, limit int) string {
	text := stripTags(raw)
	text = bracketRe.ReplaceAllString(text, "")
	text = newlineRe.ReplaceAllString(text, " ")
	text = strings.TrimSpace(text)

	runes := []rune(text)
	if limit > 0 && len(runes) > limit {
		return string(runes[:limit]) + "..."
	}
	return text
}

func stripTags(raw string) string {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(raw))
	if err != nil {
		return raw
	}
	return doc.Text()
}
