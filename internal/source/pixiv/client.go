package pixiv

import (
	"context"
	"crypto/md5"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"pixiv_watcher/internal/domain"
)

// Public mobile-app credentials, required by the token endpoint.
const (
	clientID     = "MOBrBDS8blbauoSck0ZfDbtuzpyT"
	clientSecret = "lsACyCD94FhDUtGTXi3QzcFE2uU1hqtDaKeqrdwj"
	hashSalt     = "28c1fdd170a5204386cb1313c7077b34f83e4aaf4aa829ce78c231e05b0bae2c"
)

// Config holds Pixiv client configuration.
type Config struct {
	BaseURL      string
	AuthURL      string
	RefreshToken string
	Timeout      time.Duration
}

// Client talks to the Pixiv app API. Auth must succeed before search or
// text calls; the client is not safe for concurrent use.
type Client struct {
	httpClient   *http.Client
	baseURL      string
	authURL      string
	refreshToken string
	accessToken  string
	logger       *slog.Logger
}

// New creates a new Pixiv client.
func New(cfg Config, logger *slog.Logger) *Client {
	return &Client{
		httpClient: &http.Client{
			Timeout: cfg.Timeout,
		},
		baseURL:      cfg.BaseURL,
		authURL:      cfg.AuthURL,
		refreshToken: cfg.RefreshToken,
		logger:       logger.With("source", "pixiv"),
	}
}

// Auth exchanges the refresh token for an access token.
func (c *Client) Auth(ctx context.Context) error {
	form := url.Values{}
	form.Set("grant_type", "refresh_token")
	form.Set("refresh_token", c.refreshToken)
	form.Set("client_id", clientID)
	form.Set("client_secret", clientSecret)
	form.Set("get_secure_url", "1")

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.authURL, strings.NewReader(form.Encode()))
	if err != nil {
		return fmt.Errorf("create auth request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	clientTime := time.Now().UTC().Format("2006-01-02T15:04:05+00:00")
	req.Header.Set("X-Client-Time", clientTime)
	req.Header.Set("X-Client-Hash", fmt.Sprintf("%x", md5.Sum([]byte(clientTime+hashSalt))))

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("execute auth request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("unexpected auth status: %d", resp.StatusCode)
	}

	var auth authResponse
	if err := json.NewDecoder(resp.Body).Decode(&auth); err != nil {
		return fmt.Errorf("decode auth response: %w", err)
	}

	token := auth.AccessToken
	if token == "" {
		token = auth.Response.AccessToken
	}
	if token == "" {
		return fmt.Errorf("auth response contained no access token")
	}

	c.accessToken = token
	c.logger.Debug("authenticated")
	return nil
}

// SearchNovels runs one search request for word under the given
// search_target, newest first.
func (c *Client) SearchNovels(ctx context.Context, word, target string) ([]domain.Novel, error) {
	q := url.Values{}
	q.Set("word", word)
	q.Set("search_target", target)
	q.Set("sort", "date_desc")

	reqURL := fmt.Sprintf("%s/v1/search/novel?%s", c.baseURL, q.Encode())

	var result searchResponse
	if err := c.doRequest(ctx, reqURL, &result); err != nil {
		return nil, err
	}

	return c.transform(result.Novels), nil
}

// NovelText fetches the full body text of one novel.
func (c *Client) NovelText(ctx context.Context, novelID string) (string, error) {
	q := url.Values{}
	q.Set("novel_id", novelID)

	reqURL := fmt.Sprintf("%s/v1/novel/text?%s", c.baseURL, q.Encode())

	var result textResponse
	if err := c.doRequest(ctx, reqURL, &result); err != nil {
		return "", err
	}

	return result.NovelText, nil
}

func (c *Client) doRequest(ctx context.Context, reqURL string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}

	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", "PixivAndroidApp/5.0.234 (Android 11; Pixel 5)")
	req.Header.Set("Authorization", "Bearer "+c.accessToken)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("execute request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("unexpected status: %d", resp.StatusCode)
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}

	return nil
}

func (c *Client) transform(novels []apiNovel) []domain.Novel {
	result := make([]domain.Novel, 0, len(novels))

	for _, n := range novels {
		novel := domain.Novel{
			ID:         strconv.FormatInt(n.ID, 10),
			Title:      n.Title,
			CreateDate: n.CreateDate,
			AuthorID:   strconv.FormatInt(n.User.ID, 10),
			AuthorName: n.User.Name,
			Caption:    n.Caption,
		}
		for _, tag := range n.Tags {
			novel.Tags = append(novel.Tags, tag.Name)
		}
		result = append(result, novel)
	}

	return result
}
