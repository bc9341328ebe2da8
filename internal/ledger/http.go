package ledger

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"net/url"
	"time"

	"JackpotWheel/internal/model"
)

// HTTPClient implements Client against the jackpot REST gateway.
type HTTPClient struct {
	BaseURL    string
	APIKey     string
	Client     *http.Client
	MaxRetries int
}

// NewHTTPClient creates a client with optional proxy support.
func NewHTTPClient(baseURL, apiKey, proxyURL string) *HTTPClient {
	transport := &http.Transport{}
	if proxyURL != "" {
		if u, err := url.Parse(proxyURL); err == nil {
			transport.Proxy = http.ProxyURL(u)
		}
	}
	return &HTTPClient{
		BaseURL:    baseURL,
		APIKey:     apiKey,
		MaxRetries: 2,
		Client: &http.Client{
			Timeout:   30 * time.Second,
			Transport: transport,
		},
	}
}

func (c *HTTPClient) Name() string { return "http" }

func (c *HTTPClient) ActiveRoundID() (int64, error) {
	var result struct {
		RoundID int64 `json:"round_id"`
	}
	endpoint := fmt.Sprintf("%s/api/v1/rounds/active", c.BaseURL)
	if err := c.getJSON(endpoint, &result); err != nil {
		return 0, fmt.Errorf("fetch active round id: %w", err)
	}
	return result.RoundID, nil
}

func (c *HTTPClient) Round(id int64) (*model.Round, error) {
	var round model.Round
	endpoint := fmt.Sprintf("%s/api/v1/rounds/%d", c.BaseURL, id)
	if err := c.getJSON(endpoint, &round); err != nil {
		return nil, fmt.Errorf("fetch round %d: %w", id, err)
	}
	return &round, nil
}

func (c *HTTPClient) Entries(roundID int64, offset, limit int) ([]model.Entry, error) {
	var entries []model.Entry
	endpoint := fmt.Sprintf("%s/api/v1/rounds/%d/entries?offset=%d&limit=%d",
		c.BaseURL, roundID, offset, limit)
	if err := c.getJSON(endpoint, &entries); err != nil {
		return nil, fmt.Errorf("fetch entries for round %d: %w", roundID, err)
	}
	return entries, nil
}

func (c *HTTPClient) PlayerTotal(roundID int64, account string) (float64, error) {
	var result struct {
		Total float64 `json:"total"`
	}
	endpoint := fmt.Sprintf("%s/api/v1/rounds/%d/players/%s/total",
		c.BaseURL, roundID, url.PathEscape(account))
	if err := c.getJSON(endpoint, &result); err != nil {
		return 0, fmt.Errorf("fetch player total: %w", err)
	}
	return result.Total, nil
}

// SubmitEntry posts a new stake. Signing happens upstream of this client;
// the gateway rejects unsigned submissions.
func (c *HTTPClient) SubmitEntry(amount float64, entropy string) error {
	payload := map[string]interface{}{
		"amount":  amount,
		"entropy": entropy,
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal entry: %w", err)
	}
	endpoint := fmt.Sprintf("%s/api/v1/entries", c.BaseURL)
	req, err := http.NewRequest("POST", endpoint, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	if c.APIKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.APIKey)
	}
	resp, err := c.Client.Do(req)
	if err != nil {
		return fmt.Errorf("submit entry: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusCreated {
		respBody, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("submit entry: status %d, body: %s", resp.StatusCode, string(respBody))
	}
	return nil
}

// getJSON fetches and decodes an endpoint with exponential backoff on
// transient failures. 4xx responses are not retried.
func (c *HTTPClient) getJSON(endpoint string, out interface{}) error {
	var lastErr error
	for attempt := 0; attempt <= c.MaxRetries; attempt++ {
		if attempt > 0 {
			backoff := time.Duration(1<<uint(attempt-1)) * time.Second
			log.Printf("[WARN] ledger fetch failed (attempt %d/%d): %v, retrying in %v",
				attempt, c.MaxRetries+1, lastErr, backoff)
			time.Sleep(backoff)
		}
		lastErr = c.getJSONOnce(endpoint, out)
		if lastErr == nil {
			return nil
		}
		var se statusError
		if errors.As(lastErr, &se) && se.code >= 400 && se.code < 500 {
			return lastErr
		}
	}
	return fmt.Errorf("all %d attempts exhausted: %w", c.MaxRetries+1, lastErr)
}

func (c *HTTPClient) getJSONOnce(endpoint string, out interface{}) error {
	req, err := http.NewRequest("GET", endpoint, nil)
	if err != nil {
		return err
	}
	if c.APIKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.APIKey)
	}
	resp, err := c.Client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return statusError{code: resp.StatusCode, body: string(body)}
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

type statusError struct {
	code int
	body string
}

func (e statusError) Error() string {
	return fmt.Sprintf("status %d, body: %s", e.code, e.body)
}
