package clients

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

const DefaultLarkBaseURL = "https://open.larksuite.com/open-apis"

type LarkConfig struct {
	BaseURL     string
	AppID       string
	AppSecret   string
	RedirectURI string
	Timeout     time.Duration
}

// LarkClient signs users in through Lark Suite OIDC.
type LarkClient struct {
	cfg  LarkConfig
	http *http.Client
}

func NewLarkClient(cfg LarkConfig) *LarkClient {
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultLarkBaseURL
	}
	cfg.BaseURL = strings.TrimRight(cfg.BaseURL, "/")
	if cfg.Timeout <= 0 {
		cfg.Timeout = 15 * time.Second
	}
	return &LarkClient{cfg: cfg, http: &http.Client{Timeout: cfg.Timeout}}
}

// AuthorizeURL is where the login button sends the browser.
func (c *LarkClient) AuthorizeURL() string {
	q := url.Values{}
	q.Set("app_id", c.cfg.AppID)
	q.Set("redirect_uri", c.cfg.RedirectURI)
	return c.cfg.BaseURL + "/authen/v1/authorize?" + q.Encode()
}

type larkEnvelope struct {
	Code int             `json:"code"`
	Msg  string          `json:"msg"`
	Data json.RawMessage `json:"data"`

	TenantAccessToken string `json:"tenant_access_token"`
}

// AppAccessToken exchanges the app credentials for a tenant token.
func (c *LarkClient) AppAccessToken(ctx context.Context) (string, error) {
	env, err := c.do(ctx, http.MethodPost, "/auth/v3/app_access_token/internal", "", map[string]string{
		"app_id":     c.cfg.AppID,
		"app_secret": c.cfg.AppSecret,
	})
	if err != nil {
		return "", fmt.Errorf("app access token: %w", err)
	}
	if env.TenantAccessToken == "" {
		return "", fmt.Errorf("app access token: empty tenant_access_token")
	}
	return env.TenantAccessToken, nil
}

// UserAccessToken trades the callback code for the user's access token.
func (c *LarkClient) UserAccessToken(ctx context.Context, code, tenantToken string) (string, error) {
	env, err := c.do(ctx, http.MethodPost, "/authen/v1/oidc/access_token", tenantToken, map[string]string{
		"code":       code,
		"grant_type": "authorization_code",
	})
	if err != nil {
		return "", fmt.Errorf("user access token: %w", err)
	}

	var data struct {
		AccessToken string `json:"access_token"`
	}
	if err := json.Unmarshal(env.Data, &data); err != nil || data.AccessToken == "" {
		return "", fmt.Errorf("user access token: missing access_token")
	}
	return data.AccessToken, nil
}

func (c *LarkClient) UserEmail(ctx context.Context, userToken string) (string, error) {
	env, err := c.do(ctx, http.MethodGet, "/authen/v1/user_info", userToken, nil)
	if err != nil {
		return "", fmt.Errorf("user info: %w", err)
	}

	var data struct {
		Email string `json:"email"`
	}
	if err := json.Unmarshal(env.Data, &data); err != nil || data.Email == "" {
		return "", fmt.Errorf("user info: missing email")
	}
	return data.Email, nil
}

// Exchange runs the whole callback: tenant token, user token, then email.
func (c *LarkClient) Exchange(ctx context.Context, code string) (token, email string, err error) {
	tenant, err := c.AppAccessToken(ctx)
	if err != nil {
		return "", "", err
	}
	token, err = c.UserAccessToken(ctx, code, tenant)
	if err != nil {
		return "", "", err
	}
	email, err = c.UserEmail(ctx, token)
	if err != nil {
		return "", "", err
	}
	return token, email, nil
}

func (c *LarkClient) do(ctx context.Context, method, endpoint, bearer string, payload any) (*larkEnvelope, error) {
	var body io.Reader
	if payload != nil {
		b, err := json.Marshal(payload)
		if err != nil {
			return nil, err
		}
		body = bytes.NewReader(b)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.cfg.BaseURL+endpoint, body)
	if err != nil {
		return nil, err
	}
	if payload != nil {
		req.Header.Set("Content-Type", "application/json; charset=utf-8")
	}
	if bearer != "" {
		req.Header.Set("Authorization", "Bearer "+bearer)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	var env larkEnvelope
	if err := json.NewDecoder(resp.Body).Decode(&env); err != nil {
		return nil, fmt.Errorf("decode %s response (status %d): %w", endpoint, resp.StatusCode, err)
	}
	if resp.StatusCode != http.StatusOK || env.Code != 0 {
		return nil, fmt.Errorf("lark %s: status %d code %d: %s", endpoint, resp.StatusCode, env.Code, env.Msg)
	}
	return &env, nil
}
