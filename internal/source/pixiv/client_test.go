package pixiv

import (
	"context"
	"crypto/md5"
	"fmt"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelError}))
	return New(Config{
		BaseURL:      srv.URL,
		AuthURL:      srv.URL + "/auth/token",
		RefreshToken: "refresh-token",
		Timeout:      5 * time.Second,
	}, logger)
}

func TestAuth_SendsSignedForm(t *testing.T) {
	var gotForm map[string]string
	var gotTime, gotHash string

	client := testClient(t, func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodPost, r.Method)
		require.Equal(t, "/auth/token", r.URL.Path)
		require.NoError(t, r.ParseForm())

		gotForm = map[string]string{
			"grant_type":    r.PostFormValue("grant_type"),
			"refresh_token": r.PostFormValue("refresh_token"),
			"client_id":     r.PostFormValue("client_id"),
		}
		gotTime = r.Header.Get("X-Client-Time")
		gotHash = r.Header.Get("X-Client-Hash")

		fmt.Fprint(w, `{"access_token": "token-abc", "expires_in": 3600}`)
	})

	require.NoError(t, client.Auth(context.Background()))

	assert.Equal(t, "refresh_token", gotForm["grant_type"])
	assert.Equal(t, "refresh-token", gotForm["refresh_token"])
	assert.Equal(t, clientID, gotForm["client_id"])
	assert.Equal(t, fmt.Sprintf("%x", md5.Sum([]byte(gotTime+hashSalt))), gotHash)
	assert.Equal(t, "token-abc", client.accessToken)
}

func TestAuth_AcceptsNestedToken(t *testing.T) {
	client := testClient(t, func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"response": {"access_token": "nested-token", "expires_in": 3600}}`)
	})

	require.NoError(t, client.Auth(context.Background()))
	assert.Equal(t, "nested-token", client.accessToken)
}

func TestAuth_MissingTokenIsError(t *testing.T) {
	client := testClient(t, func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"expires_in": 3600}`)
	})

	err := client.Auth(context.Background())
	assert.ErrorContains(t, err, "no access token")
}

func TestAuth_NonOKStatus(t *testing.T) {
	client := testClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
	})

	err := client.Auth(context.Background())
	assert.ErrorContains(t, err, "unexpected auth status: 400")
}

func TestSearchNovels_QueryAndTransform(t *testing.T) {
	var gotQuery map[string]string
	var gotAuth string

	client := testClient(t, func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/v1/search/novel", r.URL.Path)
		q := r.URL.Query()
		gotQuery = map[string]string{
			"word":          q.Get("word"),
			"search_target": q.Get("search_target"),
			"sort":          q.Get("sort"),
		}
		gotAuth = r.Header.Get("Authorization")

		fmt.Fprint(w, `{
			"novels": [
				{
					"id": 12345678,
					"title": "A Long Story",
					"caption": "caption text",
					"create_date": "2024-01-01T12:00:00+09:00",
					"user": {"id": 99, "name": "writer"},
					"tags": [{"name": "fantasy"}, {"name": "original", "translated_name": "orig"}]
				}
			],
			"next_url": ""
		}`)
	})
	client.accessToken = "token-abc"

	novels, err := client.SearchNovels(context.Background(), "magic sword", "partial_match_for_tags")
	require.NoError(t, err)

	assert.Equal(t, "magic sword", gotQuery["word"])
	assert.Equal(t, "partial_match_for_tags", gotQuery["search_target"])
	assert.Equal(t, "date_desc", gotQuery["sort"])
	assert.Equal(t, "Bearer token-abc", gotAuth)

	require.Len(t, novels, 1)
	n := novels[0]
	assert.Equal(t, "12345678", n.ID)
	assert.Equal(t, "A Long Story", n.Title)
	assert.Equal(t, "2024-01-01T12:00:00+09:00", n.CreateDate)
	assert.Equal(t, "99", n.AuthorID)
	assert.Equal(t, "writer", n.AuthorName)
	assert.Equal(t, []string{"fantasy", "original"}, n.Tags)
}

func TestSearchNovels_EmptyResult(t *testing.T) {
	client := testClient(t, func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"novels": [], "next_url": ""}`)
	})

	novels, err := client.SearchNovels(context.Background(), "nothing", "title_and_caption")
	require.NoError(t, err)
	assert.Empty(t, novels)
}

func TestSearchNovels_NonOKStatus(t *testing.T) {
	client := testClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
	})

	_, err := client.SearchNovels(context.Background(), "word", "partial_match_for_tags")
	assert.ErrorContains(t, err, "unexpected status: 403")
}

func TestNovelText_ReturnsBody(t *testing.T) {
	client := testClient(t, func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/v1/novel/text", r.URL.Path)
		require.Equal(t, "42", r.URL.Query().Get("novel_id"))
		fmt.Fprint(w, `{"novel_text": "once upon a time"}`)
	})

	text, err := client.NovelText(context.Background(), "42")
	require.NoError(t, err)
	assert.Equal(t, "once upon a time", text)
}

func TestNovelText_MalformedJSON(t *testing.T) {
	client := testClient(t, func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"novel_text": `)
	})

	_, err := client.NovelText(context.Background(), "42")
	assert.ErrorContains(t, err, "decode response")
}
