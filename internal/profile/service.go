package profile

import (
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

// Service fetches display identity for an account. A nil profile with a nil
// error means the account has no profile set.
type Service interface {
	GetProfile(account string) (*model.Profile, error)
}

// HTTPService implements Service against the profile REST API.
type HTTPService struct {
	BaseURL    string
	Client     *http.Client
	MaxRetries int
}

// NewHTTPService creates a service with optional proxy support.
func NewHTTPService(baseURL, proxyURL string) *HTTPService {
	transport := &http.Transport{}
	if proxyURL != "" {
		if u, err := url.Parse(proxyURL); err == nil {
			transport.Proxy = http.ProxyURL(u)
		}
	}
	return &HTTPService{
		BaseURL:    baseURL,
		MaxRetries: 2,
		Client: &http.Client{
			Timeout:   15 * time.Second,
			Transport: transport,
		},
	}
}

// GetProfile fetches with exponential backoff on transient failures. 4xx
// responses are not retried; 404 is a valid "no profile" answer.
func (s *HTTPService) GetProfile(account string) (*model.Profile, error) {
	var lastErr error
	for attempt := 0; attempt <= s.MaxRetries; attempt++ {
		if attempt > 0 {
			backoff := time.Duration(1<<uint(attempt-1)) * time.Second
			log.Printf("[WARN] profile fetch failed (attempt %d/%d): %v, retrying in %v",
				attempt, s.MaxRetries+1, lastErr, backoff)
			time.Sleep(backoff)
		}
		p, err := s.getProfileOnce(account)
		if err == nil {
			return p, nil
		}
		lastErr = err
		var se statusError
		if errors.As(err, &se) && se.code >= 400 && se.code < 500 {
			return nil, err
		}
	}
	return nil, fmt.Errorf("all %d attempts exhausted: %w", s.MaxRetries+1, lastErr)
}

func (s *HTTPService) getProfileOnce(account string) (*model.Profile, error) {
	endpoint := fmt.Sprintf("%s/api/v1/profiles/%s", s.BaseURL, url.PathEscape(account))
	resp, err := s.Client.Get(endpoint)
	if err != nil {
		return nil, fmt.Errorf("fetch profile: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode == http.StatusNotFound {
		return nil, nil
	}
	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return nil, statusError{code: resp.StatusCode, body: string(body)}
	}
	var p model.Profile
	if err := json.NewDecoder(resp.Body).Decode(&p); err != nil {
		return nil, fmt.Errorf("decode profile: %w", err)
	}
	p.Account = account
	return &p, nil
}

type statusError struct {
	code int
	body string
}

func (e statusError) Error() string {
	return fmt.Sprintf("status %d, body: %s", e.code, e.body)
}
