// Package brevo is a small client for the templates, contacts and campaigns endpoints
// of the Brevo e-mail API.
package brevo

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
	"time"

	gax "github.com/googleapis/gax-go/v2"
)

const (
	templatePageSize = 50
	maxReadAttempts  = 3
)

// APIError is a non-2xx answer from the provider.
type APIError struct {
	Status  int
	Code    string
	Message string
}

func (e *APIError) Error() string {
	if e.Code != "" {
		return fmt.Sprintf("brevo api error %d (%s): %s", e.Status, e.Code, e.Message)
	}
	return fmt.Sprintf("brevo api error %d: %s", e.Status, e.Message)
}

// Client talks to the Brevo v3 REST API. Reads are retried on 429 and 5xx
// answers; campaign creation is sent once.
type Client struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
	backoff    gax.Backoff
}

func NewClient(baseURL, apiKey string, httpClient *http.Client) (*Client, error) {
	if apiKey == "" {
		return nil, errors.New("BREVO_API_KEY must be set")
	}
	if baseURL == "" {
		return nil, errors.New("brevo base url must be set")
	}
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 30 * time.Second}
	}
	return &Client{
		baseURL:    baseURL,
		apiKey:     apiKey,
		httpClient: httpClient,
		backoff:    gax.Backoff{Initial: 500 * time.Millisecond, Max: 5 * time.Second, Multiplier: 2},
	}, nil
}

// ListTemplates returns every active template, following pagination.
func (c *Client) ListTemplates(ctx context.Context) ([]Template, error) {
	var all []Template
	for offset := 0; ; offset += templatePageSize {
		q := url.Values{}
		q.Set("templateStatus", "true")
		q.Set("limit", strconv.Itoa(templatePageSize))
		q.Set("offset", strconv.Itoa(offset))

		var page templateList
		if err := c.get(ctx, "/smtp/templates?"+q.Encode(), &page); err != nil {
			return nil, fmt.Errorf("failed to list templates: %w", err)
		}
		all = append(all, page.Templates...)
		if len(page.Templates) < templatePageSize || len(all) >= page.Count {
			return all, nil
		}
	}
}

func (c *Client) GetTemplate(ctx context.Context, id int64) (*Template, error) {
	var t Template
	if err := c.get(ctx, "/smtp/templates/"+strconv.FormatInt(id, 10), &t); err != nil {
		return nil, fmt.Errorf("failed to get template %d: %w", id, err)
	}
	return &t, nil
}

func (c *Client) GetContactList(ctx context.Context, id int64) (*ContactList, error) {
	var l ContactList
	if err := c.get(ctx, "/contacts/lists/"+strconv.FormatInt(id, 10), &l); err != nil {
		return nil, fmt.Errorf("failed to get contact list %d: %w", id, err)
	}
	return &l, nil
}

// CreateCampaign submits the draft and returns the provider-assigned campaign id.
func (c *Client) CreateCampaign(ctx context.Context, campaign *Campaign) (int64, error) {
	var created createdResponse
	if err := c.do(ctx, http.MethodPost, "/emailCampaigns", campaign, &created); err != nil {
		return 0, fmt.Errorf("failed to create campaign: %w", err)
	}
	return created.ID, nil
}

// get issues an idempotent read, retrying transient provider failures.
func (c *Client) get(ctx context.Context, path string, out any) error {
	attempts := 0
	retry := gax.WithRetry(func() gax.Retryer {
		return gax.OnErrorFunc(c.backoff, func(err error) bool {
			attempts++
			return attempts < maxReadAttempts && isTransient(err)
		})
	})
	return gax.Invoke(ctx, func(ctx context.Context, _ gax.CallSettings) error {
		return c.do(ctx, http.MethodGet, path, nil, out)
	}, retry)
}

func isTransient(err error) bool {
	var apiErr *APIError
	if !errors.As(err, &apiErr) {
		return false
	}
	return apiErr.Status == http.StatusTooManyRequests || apiErr.Status >= http.StatusInternalServerError
}

func (c *Client) do(ctx context.Context, method, path string, body, out any) error {
	var reader io.Reader
	if body != nil {
		jsonBody, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("marshal request: %w", err)
		}
		reader = bytes.NewReader(jsonBody)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("api-key", c.apiKey)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("http request: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		apiErr := &APIError{Status: resp.StatusCode, Message: string(respBody)}
		var parsed errorResponse
		if json.Unmarshal(respBody, &parsed) == nil && parsed.Message != "" {
			apiErr.Code = parsed.Code
			apiErr.Message = parsed.Message
		}
		return apiErr
	}

	if out == nil || len(respBody) == 0 {
		return nil
	}
	if err := json.Unmarshal(respBody, out); err != nil {
		return fmt.Errorf("parse response: %w", err)
	}
	return nil
}
