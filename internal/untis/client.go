package untis

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/schulwerk/untis-speech-api/pkg/config"
)

const sessionCookie = "JSESSIONID"

// Session is the authenticated WebUntis session returned by Authenticate.
type Session struct {
	ID         string `json:"session_id"`
	PersonType int64  `json:"person_type"`
	PersonID   int64  `json:"person_id"`
	ClassID    int64  `json:"class_id"`
}

// Client talks to one WebUntis school instance. It is safe for concurrent
// use; every call is a single blocking request.
type Client struct {
	httpClient *http.Client
	baseURL    string
	school     string
	userAgent  string
	logger     *zap.Logger
}

// NewClient builds a WebUntis client from configuration.
func NewClient(cfg config.UntisConfig, logger *zap.Logger) *Client {
	if logger == nil {
		logger = zap.NewNop()
	}
	baseURL := cfg.Host
	if !strings.Contains(baseURL, "://") {
		baseURL = "https://" + baseURL
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	return &Client{
		httpClient: &http.Client{Timeout: timeout},
		baseURL:    strings.TrimRight(baseURL, "/"),
		school:     cfg.School,
		userAgent:  cfg.UserAgent,
		logger:     logger,
	}
}

type rpcRequest struct {
	ID      uuid.UUID   `json:"id"`
	Method  string      `json:"method"`
	Params  interface{} `json:"params"`
	JSONRPC string      `json:"jsonrpc"`
}

type rpcError struct {
	Code    int64  `json:"code"`
	Message string `json:"message"`
}

type rpcResponse struct {
	JSONRPC string          `json:"jsonrpc"`
	ID      uuid.UUID       `json:"id"`
	Result  json.RawMessage `json:"result"`
	Error   *rpcError       `json:"error"`
}

// call issues one JSON-RPC 2.0 request and verifies the response id echoes
// the request id.
func (c *Client) call(ctx context.Context, method string, params interface{}, sessionID string) (json.RawMessage, error) {
	reqID := uuid.New()
	body, err := json.Marshal(rpcRequest{ID: reqID, Method: method, Params: params, JSONRPC: "2.0"})
	if err != nil {
		return nil, fmt.Errorf("marshal %s request: %w", method, err)
	}

	url := fmt.Sprintf("%s/WebUntis/jsonrpc.do?school=%s", c.baseURL, c.school)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	if c.userAgent != "" {
		req.Header.Set("User-Agent", c.userAgent)
	}
	if sessionID != "" {
		req.AddCookie(&http.Cookie{Name: sessionCookie, Value: sessionID})
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("webuntis %s request failed: %w", method, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("webuntis %s returned status %d", method, resp.StatusCode)
	}

	var envelope rpcResponse
	if err := json.NewDecoder(resp.Body).Decode(&envelope); err != nil {
		return nil, fmt.Errorf("decode %s response: %w", method, err)
	}
	if envelope.ID != reqID {
		return nil, fmt.Errorf("webuntis %s response id %s does not match request id %s", method, envelope.ID, reqID)
	}
	if envelope.Error != nil {
		return nil, fmt.Errorf("webuntis %s error %d: %s", method, envelope.Error.Code, envelope.Error.Message)
	}
	return envelope.Result, nil
}

// Authenticate logs in and returns the upstream session. An empty result is
// treated as rejected credentials.
func (c *Client) Authenticate(ctx context.Context, username, password string) (*Session, error) {
	c.logger.Debug("authenticating against webuntis", zap.String("username", username))

	params := map[string]string{
		"user":     username,
		"password": password,
		"client":   c.userAgent,
	}
	result, err := c.call(ctx, "authenticate", params, "")
	if err != nil {
		return nil, err
	}
	if len(result) == 0 || string(result) == "null" || string(result) == "{}" {
		return nil, ErrInvalidCredentials
	}

	var userInfo struct {
		SessionID  string `json:"sessionId"`
		PersonType int64  `json:"personType"`
		PersonID   int64  `json:"personId"`
		ClassID    int64  `json:"klasseId"`
	}
	if err := json.Unmarshal(result, &userInfo); err != nil {
		return nil, fmt.Errorf("decode authenticate result: %w", err)
	}
	if userInfo.SessionID == "" {
		return nil, ErrInvalidCredentials
	}

	return &Session{
		ID:         userInfo.SessionID,
		PersonType: userInfo.PersonType,
		PersonID:   userInfo.PersonID,
		ClassID:    userInfo.ClassID,
	}, nil
}

// Logout releases the upstream session.
func (c *Client) Logout(ctx context.Context, sessionID string) error {
	_, err := c.call(ctx, "logout", nil, sessionID)
	return err
}

// WeeklyTimetable fetches the raw weekly timetable document for a person. The
// document is returned opaque; ParseTimetable owns its interpretation.
func (c *Client) WeeklyTimetable(ctx context.Context, sessionID string, personID int64, date time.Time) ([]byte, error) {
	url := fmt.Sprintf(
		"%s/WebUntis/api/public/timetable/weekly/data?elementType=5&elementId=%d&date=%s&formatId=1",
		c.baseURL, personID, date.Format("2006-01-02"),
	)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}
	if c.userAgent != "" {
		req.Header.Set("User-Agent", c.userAgent)
	}
	req.AddCookie(&http.Cookie{Name: sessionCookie, Value: sessionID})

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("webuntis timetable request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("webuntis timetable returned status %d", resp.StatusCode)
	}
	return io.ReadAll(resp.Body)
}
