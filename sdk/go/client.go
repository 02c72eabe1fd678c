package sdk

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/gorilla/websocket"

	"gimmefy/core"
)

// Option configures the Client.
type Option func(*Client)

// Client provides typed access to the Gimmefy HTTP + WebSocket API.
type Client struct {
	baseURL    string
	wsURL      string
	httpClient *http.Client
	headers    http.Header
}

// AvatarInfo mirrors the avatar endpoint response.
type AvatarInfo struct {
	Key  string     `json:"key"`
	Path string     `json:"path"`
	User *core.User `json:"user"`
}

// NewClient constructs a new SDK client targeting the given baseURL (e.g., http://localhost:8080/zpg).
func NewClient(baseURL string, opts ...Option) (*Client, error) {
	if strings.TrimSpace(baseURL) == "" {
		return nil, errors.New("baseURL is required")
	}
	baseURL = strings.TrimSuffix(baseURL, "/")

	c := &Client{
		baseURL:    baseURL,
		wsURL:      deriveWSURL(baseURL),
		httpClient: http.DefaultClient,
		headers:    make(http.Header),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// WithHTTPClient sets a custom HTTP client.
func WithHTTPClient(h *http.Client) Option {
	return func(c *Client) {
		if h != nil {
			c.httpClient = h
		}
	}
}

// WithAuthToken adds an Authorization: Bearer token header to all requests (HTTP + WS).
func WithAuthToken(token string) Option {
	return func(c *Client) {
		if strings.TrimSpace(token) != "" {
			c.headers.Set("Authorization", "Bearer "+token)
		}
	}
}

// WithAPIKey adds an X-API-Key header.
func WithAPIKey(key string) Option {
	return func(c *Client) {
		if strings.TrimSpace(key) != "" {
			c.headers.Set("X-API-Key", key)
		}
	}
}

// WithHeader sets an arbitrary header applied to HTTP and WS calls.
func WithHeader(k, v string) Option {
	return func(c *Client) {
		if k != "" {
			c.headers.Set(k, v)
		}
	}
}

// CreateUser registers a new user. Zero defaults fall back to the
// server-side seed values.
func (c *Client) CreateUser(ctx context.Context, username string) (*core.User, error) {
	if strings.TrimSpace(username) == "" {
		return nil, ErrEmptyUsername
	}
	u := fmt.Sprintf("%s/users/%s", c.baseURL, url.PathEscape(username))
	var user core.User
	if err := c.do(ctx, http.MethodPost, u, nil, &user); err != nil {
		return nil, err
	}
	return &user, nil
}

// GetUser fetches the current progression state for a user.
func (c *Client) GetUser(ctx context.Context, username string) (*core.User, error) {
	if strings.TrimSpace(username) == "" {
		return nil, ErrEmptyUsername
	}
	u := fmt.Sprintf("%s/users/%s", c.baseURL, url.PathEscape(username))
	var user core.User
	if err := c.do(ctx, http.MethodGet, u, nil, &user); err != nil {
		return nil, err
	}
	return &user, nil
}

// GetUserFilled fetches the user with equipped and owned catalog entries
// expanded into full objects.
func (c *Client) GetUserFilled(ctx context.Context, username string) (*core.FilledUser, error) {
	if strings.TrimSpace(username) == "" {
		return nil, ErrEmptyUsername
	}
	u := fmt.Sprintf("%s/users/%s/filled", c.baseURL, url.PathEscape(username))
	var user core.FilledUser
	if err := c.do(ctx, http.MethodGet, u, nil, &user); err != nil {
		return nil, err
	}
	return &user, nil
}

// Promote adds experience to a user and returns the updated state.
func (c *Client) Promote(ctx context.Context, username string, expAdded float64) (*core.User, error) {
	if strings.TrimSpace(username) == "" {
		return nil, ErrEmptyUsername
	}
	u, err := url.Parse(fmt.Sprintf("%s/users/%s/promote", c.baseURL, url.PathEscape(username)))
	if err != nil {
		return nil, err
	}
	q := u.Query()
	q.Set("exp_added", strconv.FormatFloat(expAdded, 'f', -1, 64))
	u.RawQuery = q.Encode()

	var user core.User
	if err := c.do(ctx, http.MethodPost, u.String(), nil, &user); err != nil {
		return nil, err
	}
	return &user, nil
}

// Pay credits currency to a user and returns the updated state.
func (c *Client) Pay(ctx context.Context, username string, moneyAdded int) (*core.User, error) {
	if strings.TrimSpace(username) == "" {
		return nil, ErrEmptyUsername
	}
	u, err := url.Parse(fmt.Sprintf("%s/users/%s/pay", c.baseURL, url.PathEscape(username)))
	if err != nil {
		return nil, err
	}
	q := u.Query()
	q.Set("money_added", strconv.Itoa(moneyAdded))
	u.RawQuery = q.Encode()

	var user core.User
	if err := c.do(ctx, http.MethodPost, u.String(), nil, &user); err != nil {
		return nil, err
	}
	return &user, nil
}

// Purchase buys a catalog object for a user. When selectAfter is true the
// object is equipped immediately.
func (c *Client) Purchase(ctx context.Context, username string, kind core.ObjectKind, objectID string, selectAfter bool) (*core.User, error) {
	if strings.TrimSpace(username) == "" {
		return nil, ErrEmptyUsername
	}
	u, err := url.Parse(fmt.Sprintf("%s/users/%s/purchase/%s/%s",
		c.baseURL, url.PathEscape(username), url.PathEscape(string(kind)), url.PathEscape(objectID)))
	if err != nil {
		return nil, err
	}
	q := u.Query()
	q.Set("select_after_purchase", strconv.FormatBool(selectAfter))
	u.RawQuery = q.Encode()

	var user core.User
	if err := c.do(ctx, http.MethodPost, u.String(), nil, &user); err != nil {
		return nil, err
	}
	return &user, nil
}

// SwitchGender flips the user's avatar gender.
func (c *Client) SwitchGender(ctx context.Context, username string) error {
	return c.switchCosmetic(ctx, username, "gender")
}

// SwitchTheme flips the user's presentation theme.
func (c *Client) SwitchTheme(ctx context.Context, username string) error {
	return c.switchCosmetic(ctx, username, "theme")
}

func (c *Client) switchCosmetic(ctx context.Context, username, what string) error {
	if strings.TrimSpace(username) == "" {
		return ErrEmptyUsername
	}
	u := fmt.Sprintf("%s/users/%s/%s", c.baseURL, url.PathEscape(username), what)
	return c.do(ctx, http.MethodPost, u, nil, nil)
}

// Avatar reports telemetry and returns the derived avatar presentation.
func (c *Client) Avatar(ctx context.Context, username string, t Telemetry) (*AvatarInfo, error) {
	var info AvatarInfo
	if err := c.telemetryGet(ctx, username, "avatar", t, &info); err != nil {
		return nil, err
	}
	return &info, nil
}

// Tip reports telemetry and returns a motivational tip.
func (c *Client) Tip(ctx context.Context, username string, t Telemetry) (core.Tip, error) {
	var tip core.Tip
	if err := c.telemetryGet(ctx, username, "tip", t, &tip); err != nil {
		return core.Tip{}, err
	}
	return tip, nil
}

// Level reports telemetry and returns the promoted user state.
func (c *Client) Level(ctx context.Context, username string, t Telemetry) (*core.User, error) {
	var user core.User
	if err := c.telemetryGet(ctx, username, "level", t, &user); err != nil {
		return nil, err
	}
	return &user, nil
}

func (c *Client) telemetryGet(ctx context.Context, username, op string, t Telemetry, target any) error {
	if strings.TrimSpace(username) == "" {
		return ErrEmptyUsername
	}
	if t.RegistrationTime.IsZero() {
		return errors.New("registration time is required")
	}
	u, err := url.Parse(fmt.Sprintf("%s/users/%s/%s", c.baseURL, url.PathEscape(username), op))
	if err != nil {
		return err
	}
	q := u.Query()
	q.Set("total_score", strconv.FormatFloat(t.TotalScore, 'f', -1, 64))
	q.Set("expavg_score", strconv.FormatFloat(t.ExpavgScore, 'f', -1, 64))
	q.Set("cpus", strconv.Itoa(t.CPUs))
	q.Set("registration_time", t.RegistrationTime.Format(time.RFC3339))
	q.Set("has_android", strconv.FormatBool(t.HasAndroid))
	u.RawQuery = q.Encode()
	return c.do(ctx, http.MethodGet, u.String(), nil, target)
}

// Snapshot fetches the current catalog and rule snapshot.
func (c *Client) Snapshot(ctx context.Context) (core.Snapshot, error) {
	var snap core.Snapshot
	if err := c.do(ctx, http.MethodGet, c.baseURL+"/store", nil, &snap); err != nil {
		return core.Snapshot{}, err
	}
	return snap, nil
}

// ReplaceSnapshot reconciles the server catalog and rules against snap.
func (c *Client) ReplaceSnapshot(ctx context.Context, snap core.Snapshot) (core.SyncResult, error) {
	body, err := json.Marshal(snap)
	if err != nil {
		return core.SyncResult{}, err
	}
	var res core.SyncResult
	if err := c.do(ctx, http.MethodPost, c.baseURL+"/store", bytes.NewReader(body), &res); err != nil {
		return core.SyncResult{}, err
	}
	return res, nil
}

// ReloadCatalog asks the server to re-read its catalog snapshot file.
func (c *Client) ReloadCatalog(ctx context.Context) (core.SyncResult, error) {
	var res core.SyncResult
	if err := c.do(ctx, http.MethodPost, c.baseURL+"/store/reload", nil, &res); err != nil {
		return core.SyncResult{}, err
	}
	return res, nil
}

// Health probes /healthz and returns status + storage check.
func (c *Client) Health(ctx context.Context) (HealthStatus, error) {
	var hs HealthStatus
	if err := c.do(ctx, http.MethodGet, c.baseURL+"/healthz", nil, &hs); err != nil {
		return HealthStatus{}, err
	}
	return hs, nil
}

// SubscribeEvents connects to the WebSocket stream and emits core.Event values.
// The returned channel closes when ctx is done or the connection drops.
func (c *Client) SubscribeEvents(ctx context.Context) (<-chan core.Event, error) {
	if c.wsURL == "" {
		return nil, errors.New("wsURL is not set; ensure baseURL is http/https")
	}
	dialer := websocket.Dialer{
		HandshakeTimeout: 5 * time.Second,
	}
	conn, _, err := dialer.DialContext(ctx, c.wsURL, c.headers)
	if err != nil {
		return nil, err
	}

	out := make(chan core.Event, 32)
	go func() {
		defer close(out)
		defer conn.Close()
		for {
			select {
			case <-ctx.Done():
				return
			default:
				var evt core.Event
				if err := conn.ReadJSON(&evt); err != nil {
					return
				}
				select {
				case out <- evt:
				default:
					// drop if consumer is slow
				}
			}
		}
	}()
	return out, nil
}

func (c *Client) do(ctx context.Context, method, rawURL string, body io.Reader, target any) error {
	req, err := http.NewRequestWithContext(ctx, method, rawURL, body)
	if err != nil {
		return err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	c.applyHeaders(req)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	return decodeJSON(resp, target)
}

func (c *Client) applyHeaders(r *http.Request) {
	for k, vals := range c.headers {
		for _, v := range vals {
			r.Header.Add(k, v)
		}
	}
}

func deriveWSURL(httpBase string) string {
	u, err := url.Parse(httpBase)
	if err != nil {
		return ""
	}
	switch u.Scheme {
	case "https":
		u.Scheme = "wss"
	case "http":
		u.Scheme = "ws"
	default:
		// leave as-is for custom schemes
	}
	u.Path = strings.TrimSuffix(u.Path, "/") + "/ws"
	return u.String()
}
