package session

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"
)

// ErrReauthenticationRequired is returned once rotation has terminally
// failed. The coordinator has already cleared its tokens, the caller must
// log in again.
var ErrReauthenticationRequired = errors.New("session expired, re-authentication required")

type TokenPair struct {
	AccessToken  string `json:"accessToken"`
	RefreshToken string `json:"refreshToken"`
}

type Config struct {
	// RefreshURL is the full URL of the token rotation endpoint.
	RefreshURL string
	// AccessTokenTTL drives the proactive refresh schedule.
	AccessTokenTTL time.Duration
	// BackupCheckInterval is the cadence of the coarse fallback check. When
	// zero it defaults to the access token TTL.
	BackupCheckInterval time.Duration
	// HTTPClient defaults to http.DefaultClient.
	HTTPClient *http.Client
}

// Coordinator owns exactly one active token pair and keeps it fresh. All
// refresh paths share one singleflight guard: any number of callers racing
// into a 401, plus the proactive schedule, trigger at most one rotation call
// at a time and all consume its result.
type Coordinator struct {
	config Config

	mu            sync.Mutex
	accessToken   string
	refreshToken  string
	lastRefreshAt time.Time
	schedulerStop chan struct{}

	foregroundCh chan struct{}
	group        singleflight.Group
}

func NewCoordinator(config Config) *Coordinator {
	if config.HTTPClient == nil {
		config.HTTPClient = http.DefaultClient
	}
	if config.BackupCheckInterval == 0 {
		config.BackupCheckInterval = config.AccessTokenTTL
	}
	return &Coordinator{
		config:       config,
		foregroundCh: make(chan struct{}, 1),
	}
}

// SetTokens installs a pair obtained from login or email verification and
// moves the session to authenticated.
func (c *Coordinator) SetTokens(accessToken string, refreshToken string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.accessToken = accessToken
	c.refreshToken = refreshToken
	c.lastRefreshAt = time.Now()
}

// ClearTokens drops the pair, moving the session back to anonymous.
func (c *Coordinator) ClearTokens() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.accessToken = ""
	c.refreshToken = ""
}

func (c *Coordinator) IsAuthenticated() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.refreshToken != ""
}

// RefreshToken returns the currently held refresh token, e.g. to pass to a
// logout call.
func (c *Coordinator) RefreshToken() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.refreshToken
}

// Do executes the request with the current access token attached. On a 401
// it joins the shared rotation and retries exactly once with the new access
// token. When rotation fails the session is torn down and
// ErrReauthenticationRequired is returned.
func (c *Coordinator) Do(req *http.Request) (*http.Response, error) {
	c.mu.Lock()
	accessToken := c.accessToken
	hasRefreshToken := c.refreshToken != ""
	c.mu.Unlock()

	if accessToken != "" {
		req.Header.Set("Authorization", "Bearer "+accessToken)
	}

	resp, err := c.config.HTTPClient.Do(req)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode != http.StatusUnauthorized || !hasRefreshToken {
		return resp, nil
	}
	resp.Body.Close()

	newAccessToken, err := c.refreshAccessToken(accessToken)
	if err != nil {
		return nil, err
	}

	retry, err := cloneRequest(req)
	if err != nil {
		return nil, err
	}
	retry.Header.Set("Authorization", "Bearer "+newAccessToken)
	return c.config.HTTPClient.Do(retry)
}

// refreshAccessToken funnels every refresh attempt through one singleflight
// key. staleAccessToken is the token the caller just failed with: if the
// held token already differs, another caller's rotation has served us and no
// network call is made.
func (c *Coordinator) refreshAccessToken(staleAccessToken string) (string, error) {
	result, err, _ := c.group.Do("refresh", func() (interface{}, error) {
		c.mu.Lock()
		accessToken := c.accessToken
		refreshToken := c.refreshToken
		c.mu.Unlock()

		if accessToken != "" && accessToken != staleAccessToken {
			return accessToken, nil
		}
		if refreshToken == "" {
			return "", ErrReauthenticationRequired
		}

		pair, err := c.callRefreshEndpoint(refreshToken)
		if err != nil {
			slog.Warn("token rotation failed, tearing down session", slog.String("error", err.Error()))
			c.ClearTokens()
			return "", ErrReauthenticationRequired
		}
		c.SetTokens(pair.AccessToken, pair.RefreshToken)
		return pair.AccessToken, nil
	})
	if err != nil {
		return "", err
	}
	return result.(string), nil
}

func (c *Coordinator) callRefreshEndpoint(refreshToken string) (TokenPair, error) {
	payload, err := json.Marshal(map[string]string{"refreshToken": refreshToken})
	if err != nil {
		return TokenPair{}, err
	}

	req, err := http.NewRequest(http.MethodPost, c.config.RefreshURL, bytes.NewBuffer(payload))
	if err != nil {
		return TokenPair{}, err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.config.HTTPClient.Do(req)
	if err != nil {
		return TokenPair{}, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return TokenPair{}, fmt.Errorf("rotation rejected with status %d", resp.StatusCode)
	}

	var pair TokenPair
	if err := json.NewDecoder(resp.Body).Decode(&pair); err != nil {
		return TokenPair{}, err
	}
	if pair.AccessToken == "" || pair.RefreshToken == "" {
		return TokenPair{}, errors.New("rotation response missing tokens")
	}
	return pair, nil
}

func cloneRequest(req *http.Request) (*http.Request, error) {
	retry := req.Clone(req.Context())
	if req.GetBody != nil {
		body, err := req.GetBody()
		if err != nil {
			return nil, err
		}
		retry.Body = body
	}
	return retry, nil
}
