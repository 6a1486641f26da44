package client

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// HTTPClient makes REST calls to the panel server.
type HTTPClient struct {
	baseURL string
	client  *http.Client
}

// NewHTTPClient creates a client targeting the given base URL (e.g. "http://127.0.0.1:30001").
func NewHTTPClient(baseURL string) *HTTPClient {
	return &HTTPClient{
		baseURL: strings.TrimRight(baseURL, "/"),
		client:  &http.Client{Timeout: 10 * time.Second},
	}
}

// apiResult is the body of command style endpoints.
type apiResult struct {
	Status  string `json:"status"`
	Message string `json:"message"`
	Detail  string `json:"detail"`
	CmdID   string `json:"cmd_id"`
}

func (r apiResult) err() error {
	if r.Status == "error" {
		return fmt.Errorf("server error: %s", r.Message)
	}
	return nil
}

// GetWSConfig fetches /api/ws-config.
func (c *HTTPClient) GetWSConfig() (*WSConfig, error) {
	var out WSConfig
	if err := c.get("/api/ws-config", &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// GetStatus fetches /api/status.
func (c *HTTPClient) GetStatus() (*Status, error) {
	var out Status
	if err := c.get("/api/status", &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// GetDashboard fetches the raw dashboard markdown.
func (c *HTTPClient) GetDashboard() (string, error) {
	resp, err := c.client.Get(c.baseURL + "/api/dashboard?format=raw")
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", err
	}
	if resp.StatusCode >= 300 {
		return "", fmt.Errorf("GET /api/dashboard: %d %s", resp.StatusCode, string(body))
	}
	return string(body), nil
}

// SendCommand posts an instruction to /api/command.
func (c *HTTPClient) SendCommand(instruction string) error {
	var out apiResult
	if err := c.postForm("/api/command", url.Values{"instruction": {instruction}}, &out); err != nil {
		return err
	}
	return out.err()
}

// QueueCommand posts an instruction to /api/queue and returns its id.
func (c *HTTPClient) QueueCommand(instruction string) (string, error) {
	var out apiResult
	if err := c.postForm("/api/queue", url.Values{"instruction": {instruction}}, &out); err != nil {
		return "", err
	}
	return out.CmdID, out.err()
}

// SendKey posts a special key to /api/special-key.
func (c *HTTPClient) SendKey(key string) error {
	var out apiResult
	if err := c.post("/api/special-key", map[string]string{"key": key}, &out); err != nil {
		return err
	}
	return out.err()
}

// ClearMonitor posts /api/monitor/clear.
func (c *HTTPClient) ClearMonitor() error {
	var out apiResult
	return c.postForm("/api/monitor/clear", nil, &out)
}

func (c *HTTPClient) get(path string, out interface{}) error {
	resp, err := c.client.Get(c.baseURL + path)
	if err != nil {
		return err
	}
	return decodeResponse(resp, http.MethodGet, path, out)
}

func (c *HTTPClient) post(path string, body interface{}, out interface{}) error {
	data, err := json.Marshal(body)
	if err != nil {
		return err
	}
	resp, err := c.client.Post(c.baseURL+path, "application/json", bytes.NewReader(data))
	if err != nil {
		return err
	}
	return decodeResponse(resp, http.MethodPost, path, out)
}

func (c *HTTPClient) postForm(path string, form url.Values, out interface{}) error {
	resp, err := c.client.PostForm(c.baseURL+path, form)
	if err != nil {
		return err
	}
	return decodeResponse(resp, http.MethodPost, path, out)
}

func decodeResponse(resp *http.Response, method, path string, out interface{}) error {
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		body, _ := io.ReadAll(resp.Body)
		var res apiResult
		if json.Unmarshal(body, &res) == nil && res.Detail != "" {
			return fmt.Errorf("%s %s: %d %s", method, path, resp.StatusCode, res.Detail)
		}
		return fmt.Errorf("%s %s: %d %s", method, path, resp.StatusCode, strings.TrimSpace(string(body)))
	}
	if out != nil {
		return json.NewDecoder(resp.Body).Decode(out)
	}
	return nil
}
