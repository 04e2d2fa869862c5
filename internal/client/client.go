// Package client talks to the card service REST API on behalf of one user.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"serwer-kart/internal/collection"
	"serwer-kart/internal/models"
	"strings"
	"time"
)

var (
	ErrNotLoggedIn = errors.New("not logged in")
	// ErrSessionExpired is returned when the server rejected the stored token.
	// The session is already logged out when callers see it.
	ErrSessionExpired = errors.New("session expired, please log in again")
)

// APIError is a non-2xx answer from the server.
type APIError struct {
	StatusCode int
	Message    string
	Code       string
	Details    map[string]any
}

func (e *APIError) Error() string {
	return fmt.Sprintf("%d: %s", e.StatusCode, e.Message)
}

const authErrorCode = "AUTH_ERROR"

type errorBody struct {
	Error   string         `json:"error"`
	Code    string         `json:"code"`
	Details map[string]any `json:"details"`
}

type Client struct {
	baseURL    string
	httpClient *http.Client
	session    *Session
}

type Option func(*Client)

func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		c.httpClient = hc
	}
}

func New(baseURL string, session *Session, opts ...Option) *Client {
	c := &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: 15 * time.Second},
		session:    session,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *Client) Session() *Session {
	return c.session
}

func (c *Client) do(ctx context.Context, method, path string, authed bool, in, out any) error {
	var body io.Reader
	if in != nil {
		raw, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("marshal request: %w", err)
		}
		body = bytes.NewReader(raw)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Accept", "application/json")

	if authed {
		token := c.session.Token()
		if token == "" {
			return ErrNotLoggedIn
		}
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		err := decodeError(resp)
		if authed && isSessionRejected(err) {
			c.session.invalidate()
			return ErrSessionExpired
		}
		return err
	}

	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

// isSessionRejected reports whether the server refused the bearer token
// itself. A 401 with another error code, such as a relayed catalog failure,
// leaves the session alone.
func isSessionRejected(err error) bool {
	var apiErr *APIError
	if !errors.As(err, &apiErr) || apiErr.StatusCode != http.StatusUnauthorized {
		return false
	}
	return apiErr.Code == "" || apiErr.Code == authErrorCode
}

func decodeError(resp *http.Response) error {
	apiErr := &APIError{StatusCode: resp.StatusCode, Message: http.StatusText(resp.StatusCode)}
	var eb errorBody
	if err := json.NewDecoder(io.LimitReader(resp.Body, 64<<10)).Decode(&eb); err == nil && eb.Error != "" {
		apiErr.Message = eb.Error
		apiErr.Code = eb.Code
		apiErr.Details = eb.Details
	}
	return apiErr
}

type credentials struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type RegisterResponse struct {
	Message          string `json:"message"`
	ShowWelcomeModal bool   `json:"showWelcomeModal"`
}

func (c *Client) Register(ctx context.Context, email, password string) (*RegisterResponse, error) {
	var out RegisterResponse
	if err := c.do(ctx, http.MethodPost, "/api/auth/register", false, credentials{email, password}, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Login moves the session to LoggedIn and persists the token.
func (c *Client) Login(ctx context.Context, email, password string) error {
	var out struct {
		Token string `json:"token"`
	}
	if err := c.do(ctx, http.MethodPost, "/api/auth/login", false, credentials{email, password}, &out); err != nil {
		return err
	}
	if out.Token == "" {
		return errors.New("login response without token")
	}
	return c.session.logIn(out.Token)
}

func (c *Client) Logout() error {
	return c.session.LogOut()
}

type ForgotPasswordResponse struct {
	Message    string `json:"message"`
	ResetToken string `json:"resetToken,omitempty"`
}

func (c *Client) ForgotPassword(ctx context.Context, email string) (*ForgotPasswordResponse, error) {
	var out ForgotPasswordResponse
	in := map[string]string{"email": email}
	if err := c.do(ctx, http.MethodPost, "/api/auth/forgot-password", false, in, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) ResetPassword(ctx context.Context, token, password string) error {
	in := map[string]string{"token": token, "password": password}
	return c.do(ctx, http.MethodPost, "/api/auth/reset-password", false, in, nil)
}

// DeleteAccount removes the account and logs out if it belonged to this session.
func (c *Client) DeleteAccount(ctx context.Context, email, password string) error {
	if err := c.do(ctx, http.MethodDelete, "/api/auth/delete", false, credentials{email, password}, nil); err != nil {
		return err
	}
	return c.session.LogOut()
}

func (c *Client) Balance(ctx context.Context) (*models.TokenBalance, error) {
	var out models.TokenBalance
	if err := c.do(ctx, http.MethodGet, "/api/auth/tokens", true, nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

type ClaimResponse struct {
	Message        string     `json:"message"`
	Tokens         int        `json:"tokens"`
	LastTokenClaim *time.Time `json:"lastTokenClaim"`
}

func (c *Client) ClaimTokens(ctx context.Context) (*ClaimResponse, error) {
	var out ClaimResponse
	if err := c.do(ctx, http.MethodPost, "/api/auth/claim-tokens", true, nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

type DrawResponse struct {
	Data   []models.CardDraft `json:"data"`
	Tokens int                `json:"tokens"`
}

func (c *Client) DrawCard(ctx context.Context) (*models.CardDraft, int, error) {
	var out DrawResponse
	if err := c.do(ctx, http.MethodGet, "/api/random-card", true, nil, &out); err != nil {
		return nil, 0, err
	}
	if len(out.Data) == 0 {
		return nil, out.Tokens, errors.New("draw response without card")
	}
	return &out.Data[0], out.Tokens, nil
}

func (c *Client) SaveCard(ctx context.Context, draft models.CardDraft) (*models.Card, error) {
	var out struct {
		Message string      `json:"message"`
		Card    models.Card `json:"card"`
	}
	if err := c.do(ctx, http.MethodPost, "/api/cards", true, draft, &out); err != nil {
		return nil, err
	}
	return &out.Card, nil
}

func (c *Client) ListCards(ctx context.Context) ([]models.Card, error) {
	var out []models.Card
	if err := c.do(ctx, http.MethodGet, "/api/cards", true, nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Client) GetCard(ctx context.Context, id string) (*models.Card, error) {
	var out models.Card
	if err := c.do(ctx, http.MethodGet, "/api/cards/"+url.PathEscape(id), true, nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) Collection(ctx context.Context) (collection.Grouped, error) {
	var out collection.Grouped
	if err := c.do(ctx, http.MethodGet, "/api/collections-grouped", true, nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Client) Me(ctx context.Context) (*models.User, error) {
	var out models.User
	if err := c.do(ctx, http.MethodGet, "/api/me", true, nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}
