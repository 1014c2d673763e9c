// Package reddit talks to the Reddit OAuth API on behalf of a signed-in user.
package reddit

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"link_scheduler/internal/config"
	"link_scheduler/internal/models"

	"github.com/codeGROOVE-dev/retry"
	"golang.org/x/oauth2"
)

const maxBodySize = 1 << 20

// APIError is returned for non-2xx responses.
type APIError struct {
	Method     string
	URL        string
	StatusCode int
}

func (e *APIError) Error() string {
	return fmt.Sprintf("reddit: %s %s: HTTP %d", e.Method, e.URL, e.StatusCode)
}

type Client struct {
	log       *slog.Logger
	oauth     *oauth2.Config
	baseURL   string
	userAgent string
	timeout   time.Duration
}

func New(log *slog.Logger, cfg config.Reddit) *Client {
	return &Client{
		log: log,
		oauth: &oauth2.Config{
			ClientID:     cfg.ClientID,
			ClientSecret: cfg.ClientSecret,
			RedirectURL:  cfg.RedirectURL,
			Scopes:       cfg.Scopes,
			Endpoint: oauth2.Endpoint{
				AuthURL:   cfg.AuthURL,
				TokenURL:  cfg.TokenURL,
				AuthStyle: oauth2.AuthStyleInHeader,
			},
		},
		baseURL:   strings.TrimRight(cfg.APIBaseURL, "/"),
		userAgent: cfg.UserAgent,
		timeout:   cfg.Timeout,
	}
}

// AuthCodeURL asks for a permanent grant so a refresh token is issued.
func (c *Client) AuthCodeURL(state string) string {
	return c.oauth.AuthCodeURL(state, oauth2.SetAuthURLParam("duration", "permanent"))
}

func (c *Client) Exchange(ctx context.Context, code string) (*oauth2.Token, error) {
	const op = "reddit.Client.Exchange"

	tok, err := c.oauth.Exchange(c.withHTTPClient(ctx), code)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return tok, nil
}

// API returns a client authenticated with tok. Expired access tokens are
// refreshed by the token source.
func (c *Client) API(ctx context.Context, tok *oauth2.Token) *API {
	ctx = c.withHTTPClient(ctx)

	httpClient := oauth2.NewClient(ctx, c.oauth.TokenSource(ctx, tok))
	httpClient.Timeout = c.timeout

	return &API{
		log:     c.log,
		http:    httpClient,
		baseURL: c.baseURL,
	}
}

// TokenFor rebuilds the OAuth token stored for u.
func TokenFor(u models.User) *oauth2.Token {
	return &oauth2.Token{
		AccessToken:  u.AccessToken,
		TokenType:    "bearer",
		RefreshToken: u.RefreshToken,
		Expiry:       u.TokenExpiration,
	}
}

// * SubmitAs отправляет ссылку от имени сохраненного пользователя
func (c *Client) SubmitAs(ctx context.Context, u models.User, form url.Values) (string, error) {
	return c.API(ctx, TokenFor(u)).Submit(ctx, form)
}

func (c *Client) NewCaptchaAs(ctx context.Context, u models.User) (string, error) {
	return c.API(ctx, TokenFor(u)).NewCaptcha(ctx)
}

func (c *Client) withHTTPClient(ctx context.Context) context.Context {
	return context.WithValue(ctx, oauth2.HTTPClient, &http.Client{
		Timeout: c.timeout,
		Transport: &userAgentTransport{
			base:      http.DefaultTransport,
			userAgent: c.userAgent,
		},
	})
}

// Reddit rejects requests without a descriptive User-Agent.
type userAgentTransport struct {
	base      http.RoundTripper
	userAgent string
}

func (t *userAgentTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	req = req.Clone(req.Context())
	req.Header.Set("User-Agent", t.userAgent)
	return t.base.RoundTrip(req)
}

type API struct {
	log     *slog.Logger
	http    *http.Client
	baseURL string
}

// * Me возвращает имя текущего пользователя
func (a *API) Me(ctx context.Context) (string, error) {
	const op = "reddit.API.Me"

	body, err := a.getWithRetry(ctx, "/api/v1/me")
	if err != nil {
		return "", fmt.Errorf("%s: %w", op, err)
	}

	var me struct {
		Name string `json:"name"`
	}
	if err := json.Unmarshal(body, &me); err != nil {
		return "", fmt.Errorf("%s: %w", op, err)
	}

	if me.Name == "" {
		return "", fmt.Errorf("%s: %w", op, ErrUnexpectedResponse)
	}

	return me.Name, nil
}

// * NeedsCaptcha сравнивает ответ с "true" без учета регистра
func (a *API) NeedsCaptcha(ctx context.Context) (bool, error) {
	const op = "reddit.API.NeedsCaptcha"

	body, err := a.getWithRetry(ctx, "/api/needs_captcha.json")
	if err != nil {
		return false, fmt.Errorf("%s: %w", op, err)
	}

	return strings.EqualFold(strings.TrimSpace(string(body)), "true"), nil
}

func (a *API) NewCaptcha(ctx context.Context) (string, error) {
	const op = "reddit.API.NewCaptcha"

	body, err := a.postForm(ctx, "/api/new_captcha", url.Values{"api_type": {"json"}})
	if err != nil {
		return "", fmt.Errorf("%s: %w", op, err)
	}

	iden, err := ParseCaptchaIden(body)
	if err != nil {
		return "", fmt.Errorf("%s: %w", op, err)
	}

	return iden, nil
}

// Submit posts a link and returns the message to show the user.
func (a *API) Submit(ctx context.Context, form url.Values) (string, error) {
	const op = "reddit.API.Submit"

	params := SubmitParams(form)

	a.log.Info("submitting link", slog.String("op", op), slog.String("params", params.Encode()))

	body, err := a.postForm(ctx, "/api/submit", params)
	if err != nil {
		return "", fmt.Errorf("%s: %w", op, err)
	}

	a.log.Info("submitted link", slog.String("op", op), slog.String("response", string(body)))

	msg, err := ParseSubmitResponse(body)
	if err != nil {
		return "", fmt.Errorf("%s: %w", op, err)
	}

	return msg, nil
}

// POST is not idempotent on Reddit, so only GETs are retried.
func (a *API) getWithRetry(ctx context.Context, path string) ([]byte, error) {
	var body []byte

	err := retry.Do(
		func() error {
			var err error
			body, err = a.do(ctx, http.MethodGet, path, nil)
			return err
		},
		retry.Attempts(3),
		retry.Delay(200*time.Millisecond),
		retry.Context(ctx),
		retry.OnRetry(func(n uint, err error) {
			a.log.Warn("retrying reddit request", slog.String("path", path), slog.Int("attempt", int(n)), slog.String("err", err.Error()))
		}),
	)
	if err != nil {
		return nil, err
	}

	return body, nil
}

func (a *API) postForm(ctx context.Context, path string, form url.Values) ([]byte, error) {
	return a.do(ctx, http.MethodPost, path, form)
}

func (a *API) do(ctx context.Context, method, path string, form url.Values) ([]byte, error) {
	var reqBody io.Reader
	if form != nil {
		reqBody = strings.NewReader(form.Encode())
	}

	req, err := http.NewRequestWithContext(ctx, method, a.baseURL+path, reqBody)
	if err != nil {
		return nil, err
	}

	if form != nil {
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	}

	resp, err := a.http.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodySize))
	if err != nil {
		return nil, err
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, &APIError{Method: method, URL: a.baseURL + path, StatusCode: resp.StatusCode}
	}

	return body, nil
}
