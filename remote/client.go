package remote

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/pkg/errors"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	apperrors "github.com/bikepark/parkclient/internal/errors"
)

const maxErrorBody = 4 << 10

// API is the contract the session store and the parking controller depend on.
//
// Login and UpdateZone report a non-2xx status as false with a nil error;
// the read operations return a *StatusError instead. Exit reports a non-2xx
// status as an unsuccessful ExitResult. Every operation returns an error
// when the request cannot be completed at all.
type API interface {
	Login(ctx context.Context, phoneNumber, password string) (bool, error)
	GetProfile(ctx context.Context) (*Profile, error)
	GetBalance(ctx context.Context) (*float64, error)
	GetPaymentHistory(ctx context.Context) (*PaymentHistory, error)
	Logout(ctx context.Context) error
	UpdateZone(ctx context.Context, bicycleID, zoneID string) (bool, error)
	Exit(ctx context.Context, bicycleID string) (ExitResult, error)
}

// StatusError is returned when the backend answers with a non-2xx status.
type StatusError struct {
	Op         string
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	if e.Body == "" {
		return fmt.Sprintf("%s: status %d", e.Op, e.StatusCode)
	}
	return fmt.Sprintf("%s: status %d: %s", e.Op, e.StatusCode, e.Body)
}

func (e *StatusError) Unwrap() error {
	return apperrors.ErrUnexpectedStatus
}

// Client talks to the parking backend. The session cookie set by Login is
// kept in the client's cookie jar and sent on every later request.
type Client struct {
	baseURL    string
	httpClient *http.Client
	jar        *sessionJar // nil when the caller supplied its own jar
	timeout    time.Duration
	logger     zerolog.Logger
}

var _ API = (*Client)(nil)

// ClientOption defines a function type to modify the Client instance.
type ClientOption func(*Client)

// WithHTTPClient sets the HTTP client the Client copies its transport and
// jar from. The caller's client is never modified; a cookie jar is added to
// the copy if it has none.
func WithHTTPClient(hc *http.Client) ClientOption {
	return func(c *Client) {
		c.httpClient = hc
	}
}

// WithTimeout sets the per-request timeout, whichever HTTP client is used.
func WithTimeout(d time.Duration) ClientOption {
	return func(c *Client) {
		c.timeout = d
	}
}

func WithLogger(logger zerolog.Logger) ClientOption {
	return func(c *Client) {
		c.logger = logger
	}
}

// NewClient creates a Client for the given API root, e.g.
// "https://parking.example.com/api".
func NewClient(baseURL string, options ...ClientOption) (*Client, error) {
	if baseURL == "" {
		return nil, errors.New("[NewClient] baseURL is required")
	}

	c := &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: 30 * time.Second},
		logger:     log.Logger,
	}

	for _, opt := range options {
		opt(c)
	}

	hc := *c.httpClient
	c.httpClient = &hc
	if c.timeout > 0 {
		c.httpClient.Timeout = c.timeout
	}
	if c.httpClient.Jar == nil {
		jar, err := newSessionJar()
		if err != nil {
			return nil, errors.Wrap(err, "[NewClient] cookie jar")
		}
		c.jar = jar
		c.httpClient.Jar = jar
	}

	return c, nil
}

// Login posts the credentials. The backend answers with a session cookie
// which the jar stores.
func (c *Client) Login(ctx context.Context, phoneNumber, password string) (bool, error) {
	resp, err := c.do(ctx, http.MethodPost, RouteLogin, loginRequest{UserPhone: phoneNumber, UserPassword: password})
	if err != nil {
		return false, errors.Wrap(err, "[Login]")
	}
	defer resp.Body.Close()

	if !isSuccess(resp.StatusCode) {
		c.logger.Warn().Int("status", resp.StatusCode).Str("body", readBody(resp)).Msg("Login rejected")
		return false, nil
	}
	return true, nil
}

func (c *Client) GetProfile(ctx context.Context) (*Profile, error) {
	var env profileEnvelope
	if err := c.getJSON(ctx, "GetProfile", RouteProfile, &env); err != nil {
		return nil, err
	}
	return env.shape(), nil
}

// GetBalance returns the card's current balance, or nil when the backend
// did not report one.
func (c *Client) GetBalance(ctx context.Context) (*float64, error) {
	var env cardEnvelope
	if err := c.getJSON(ctx, "GetBalance", RouteCardDetails, &env); err != nil {
		return nil, err
	}
	return env.balance(), nil
}

func (c *Client) GetPaymentHistory(ctx context.Context) (*PaymentHistory, error) {
	var env cardEnvelope
	if err := c.getJSON(ctx, "GetPaymentHistory", RouteCardDetails, &env); err != nil {
		return nil, err
	}
	return env.history(), nil
}

// Logout asks the backend to revoke the session and drops the local cookies
// whatever the outcome. The returned error is diagnostic only.
func (c *Client) Logout(ctx context.Context) error {
	defer c.resetCookies()

	resp, err := c.do(ctx, http.MethodPost, RouteLogout, nil)
	if err != nil {
		return errors.Wrap(err, "[Logout]")
	}
	defer resp.Body.Close()

	if !isSuccess(resp.StatusCode) {
		return &StatusError{Op: "Logout", StatusCode: resp.StatusCode, Body: readBody(resp)}
	}
	return nil
}

func (c *Client) UpdateZone(ctx context.Context, bicycleID, zoneID string) (bool, error) {
	resp, err := c.do(ctx, http.MethodPut, RouteUpdateEntry, updateEntryRequest{CycleID: bicycleID, ZoneID: zoneID})
	if err != nil {
		return false, errors.Wrap(err, "[UpdateZone]")
	}
	defer resp.Body.Close()

	if !isSuccess(resp.StatusCode) {
		c.logger.Error().
			Int("status", resp.StatusCode).
			Str("bicycle_id", bicycleID).
			Str("zone_id", zoneID).
			Str("body", readBody(resp)).
			Msg("Update zone rejected")
		return false, nil
	}
	return true, nil
}

// Exit ends the bicycle's parking session and pays for it. It makes no
// balance check; see ExitWithBalanceCheck.
func (c *Client) Exit(ctx context.Context, bicycleID string) (ExitResult, error) {
	resp, err := c.do(ctx, http.MethodPut, RouteExitAndPay, exitRequest{CycleID: bicycleID})
	if err != nil {
		return ExitResult{}, errors.Wrap(err, "[Exit]")
	}
	defer resp.Body.Close()

	if !isSuccess(resp.StatusCode) {
		msg := backendMessage(readBody(resp))
		if msg == "" {
			msg = fmt.Sprintf("Exit failed with status %d", resp.StatusCode)
		}
		c.logger.Error().Int("status", resp.StatusCode).Str("bicycle_id", bicycleID).Msg("Exit rejected")
		return ExitResult{Success: false, Message: msg}, nil
	}

	msg := backendMessage(readBody(resp))
	if msg == "" {
		msg = "Exit successful"
	}
	return ExitResult{Success: true, Message: msg}, nil
}

func (c *Client) getJSON(ctx context.Context, op, path string, out any) error {
	resp, err := c.do(ctx, http.MethodGet, path, nil)
	if err != nil {
		return errors.Wrapf(err, "[%s]", op)
	}
	defer resp.Body.Close()

	if !isSuccess(resp.StatusCode) {
		body := readBody(resp)
		c.logger.Error().Int("status", resp.StatusCode).Str("op", op).Str("body", body).Msg("Backend request failed")
		return &StatusError{Op: op, StatusCode: resp.StatusCode, Body: body}
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return errors.Wrapf(apperrors.ErrMalformedResponse, "[%s] %v", op, err)
	}
	return nil
}

func (c *Client) do(ctx context.Context, method, path string, body any) (*http.Response, error) {
	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return nil, errors.Wrap(err, "encoding request")
		}
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return nil, errors.Wrap(err, "creating request")
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	c.logger.Debug().Str("method", method).Str("path", path).Msg("Backend request")
	return c.httpClient.Do(req)
}

func (c *Client) resetCookies() {
	if c.jar == nil {
		return
	}
	if err := c.jar.Reset(); err != nil {
		c.logger.Err(err).Msg("Failed to reset cookie jar")
	}
}

func isSuccess(status int) bool {
	return status >= 200 && status < 300
}

func readBody(resp *http.Response) string {
	b, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
	return strings.TrimSpace(string(b))
}

// backendMessage extracts a human-readable message from a JSON error body,
// falling back to the raw text.
func backendMessage(body string) string {
	if body == "" {
		return ""
	}
	var env messageEnvelope
	if err := json.Unmarshal([]byte(body), &env); err == nil {
		if env.Message != "" {
			return env.Message
		}
		if env.Error != "" {
			return env.Error
		}
		return ""
	}
	return body
}
