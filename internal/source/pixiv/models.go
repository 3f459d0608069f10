package pixiv

// authResponse is the OAuth token endpoint payload. Newer deployments
// return the token both nested and top-level; either is accepted.
type authResponse struct {
	AccessToken string `json:"access_token"`
	ExpiresIn   int    `json:"expires_in"`
	Response    struct {
		AccessToken string `json:"access_token"`
		ExpiresIn   int    `json:"expires_in"`
	} `json:"response"`
}

// searchResponse represents the v1/search/novel response structure.
type searchResponse struct {
	Novels  []apiNovel `json:"novels"`
	NextURL string     `json:"next_url"`
}

type apiNovel struct {
	ID         int64    `json:"id"`
	Title      string   `json:"title"`
	Caption    string   `json:"caption"`
	CreateDate string   `json:"create_date"`
	User       apiUser  `json:"user"`
	Tags       []apiTag `json:"tags"`
}

type apiUser struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
}

type apiTag struct {
	Name           string `json:"name"`
	TranslatedName string `json:"translated_name"`
}

// textResponse represents the v1/novel/text response structure.
type textResponse struct {
	NovelText string `json:"novel_text"`
}
