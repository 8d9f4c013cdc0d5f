package publisher

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/dghubble/oauth1"
	"golang.org/x/oauth2"

	"newsrelay/config"
	"newsrelay/transform"
	"newsrelay/types"
)

// Authenticator turns a plain client into one that signs PIXNET requests.
type Authenticator interface {
	Name() string
	Client(ctx context.Context, base *http.Client) *http.Client
}

// BearerAuth sends the access token as an OAuth2 bearer header.
type BearerAuth struct {
	Token string
}

func (a BearerAuth) Name() string { return "oauth2" }

func (a BearerAuth) Client(ctx context.Context, base *http.Client) *http.Client {
	ctx = context.WithValue(ctx, oauth2.HTTPClient, base)
	return oauth2.NewClient(ctx, oauth2.StaticTokenSource(&oauth2.Token{AccessToken: a.Token, TokenType: "Bearer"}))
}

// OAuth1Auth signs each request with HMAC-SHA1 using the consumer and token secrets.
type OAuth1Auth struct {
	config *oauth1.Config
	token  *oauth1.Token
}

func NewOAuth1Auth(consumerKey, consumerSecret, token, tokenSecret string) OAuth1Auth {
	return OAuth1Auth{
		config: oauth1.NewConfig(consumerKey, consumerSecret),
		token:  oauth1.NewToken(token, tokenSecret),
	}
}

func (a OAuth1Auth) Name() string { return "oauth1" }

func (a OAuth1Auth) Client(ctx context.Context, base *http.Client) *http.Client {
	ctx = context.WithValue(ctx, oauth1.HTTPClient, base)
	return a.config.Client(ctx, a.token)
}

// Pixnet creates blog articles, trying each authenticator in order until one
// is accepted.
type Pixnet struct {
	baseURL    string
	username   string
	httpClient *http.Client
	auths      []Authenticator
}

func NewPixnet(cfg config.PixnetConfig, httpClient *http.Client) *Pixnet {
	return &Pixnet{
		baseURL:    strings.TrimRight(cfg.BaseURL, "/"),
		username:   cfg.Username,
		httpClient: httpClient,
		auths: []Authenticator{
			BearerAuth{Token: cfg.AccessToken},
			NewOAuth1Auth(cfg.ClientKey, cfg.ClientSecret, cfg.AccessToken, cfg.AccessTokenSecret),
		},
	}
}

func (p *Pixnet) Platform() types.Platform { return types.PlatformPixnet }

type pixnetResponse struct {
	Error   json.RawMessage `json:"error"`
	Message string          `json:"message"`
	Article struct {
		ID   json.RawMessage `json:"id"`
		Link string          `json:"link"`
		User struct {
			Name string `json:"name"`
		} `json:"user"`
	} `json:"article"`
}

// Publish ignores token: each authenticator carries its own key material.
func (p *Pixnet) Publish(ctx context.Context, payload transform.Payload, _ string) (PostRef, error) {
	form := url.Values{
		"title":  {payload.Title},
		"body":   {payload.Body},
		"status": {strconv.Itoa(payload.Status)},
		"format": {"json"},
	}

	var lastErr error
	for _, auth := range p.auths {
		ref, err := p.create(ctx, auth, form)
		if err == nil {
			return ref, nil
		}
		log.Printf("⚠️  PIXNET %s attempt failed: %v", auth.Name(), err)
		lastErr = err
	}
	if lastErr == nil {
		lastErr = types.NewError(types.ErrConfiguration, "pixnet has no authenticators")
	}
	return PostRef{}, lastErr
}

func (p *Pixnet) create(ctx context.Context, auth Authenticator, form url.Values) (PostRef, error) {
	ctx, cancel := context.WithTimeout(ctx, config.PublishTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.baseURL+"/blog/articles", strings.NewReader(form.Encode()))
	if err != nil {
		return PostRef{}, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := do(auth.Client(ctx, p.httpClient), types.PlatformPixnet, req)
	if err != nil {
		return PostRef{}, err
	}
	if resp.status != http.StatusOK {
		return PostRef{}, types.ProviderError(types.PlatformPixnet, resp.status, resp.body)
	}

	var out pixnetResponse
	if err := json.Unmarshal(resp.body, &out); err != nil {
		return PostRef{}, types.Errorf(types.ErrProvider, "pixnet returned an unreadable body: %v", err)
	}
	if !pixnetOK(out.Error) {
		return PostRef{}, types.Errorf(types.ErrProvider, "pixnet error %s: %s", string(out.Error), out.Message)
	}

	id := rawID(out.Article.ID)
	if id == "" {
		return PostRef{}, types.NewError(types.ErrProvider, "pixnet response has no article id")
	}
	link := out.Article.Link
	if link == "" {
		user := out.Article.User.Name
		if user == "" {
			user = p.username
		}
		if user != "" {
			link = fmt.Sprintf("https://%s.pixnet.net/blog/post/%s", user, id)
		}
	}
	return PostRef{ID: id, URL: link}, nil
}

// pixnetOK treats an absent, null, zero or false error field as success.
func pixnetOK(raw json.RawMessage) bool {
	switch strings.TrimSpace(string(raw)) {
	case "", "null", "0", `"0"`, "false":
		return true
	}
	return false
}
