package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/formship/formship/internal/forms"
)

// Client is an HTTP client for the formship API
type Client struct {
	BaseURL    string
	APIKey     string
	HTTPClient *http.Client
}

// NewClient creates a new API client
func NewClient(baseURL, apiKey string) *Client {
	return &Client{
		BaseURL: baseURL,
		APIKey:  apiKey,
		HTTPClient: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
}

// do sends a request with auth headers and returns the response after
// checking the status against the allowed set.
func (c *Client) do(req *http.Request, allowed ...int) (*http.Response, error) {
	req.Header.Set("Authorization", "Bearer "+c.APIKey)

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}

	for _, code := range allowed {
		if resp.StatusCode == code {
			return resp, nil
		}
	}

	bodyBytes, _ := io.ReadAll(resp.Body)
	resp.Body.Close()
	return nil, fmt.Errorf("API error (status %d): %s", resp.StatusCode, string(bodyBytes))
}

// CreateForm creates or updates a form
func (c *Client) CreateForm(ctx context.Context, f forms.Form) error {
	body, err := json.Marshal(f)
	if err != nil {
		return fmt.Errorf("failed to marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, "POST", c.BaseURL+"/v1/forms", bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.do(req, http.StatusOK, http.StatusCreated)
	if err != nil {
		return err
	}
	resp.Body.Close()
	return nil
}

// GetForm retrieves a single form by id
func (c *Client) GetForm(ctx context.Context, id string) (*forms.Form, error) {
	req, err := http.NewRequestWithContext(ctx, "GET", c.BaseURL+"/v1/forms/"+url.PathEscape(id), nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	resp, err := c.do(req, http.StatusOK)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	var f forms.Form
	if err := json.NewDecoder(resp.Body).Decode(&f); err != nil {
		return nil, fmt.Errorf("failed to decode response: %w", err)
	}
	return &f, nil
}

// ListForms retrieves all forms for an environment
func (c *Client) ListForms(ctx context.Context, env string) ([]forms.Form, error) {
	u, err := url.Parse(c.BaseURL + "/v1/forms")
	if err != nil {
		return nil, fmt.Errorf("failed to parse URL: %w", err)
	}

	q := u.Query()
	q.Set("env", env)
	u.RawQuery = q.Encode()

	req, err := http.NewRequestWithContext(ctx, "GET", u.String(), nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	resp, err := c.do(req, http.StatusOK)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	var result struct {
		Forms []forms.Form `json:"forms"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, fmt.Errorf("failed to decode response: %w", err)
	}
	return result.Forms, nil
}

// UpdateForm updates an existing form
func (c *Client) UpdateForm(ctx context.Context, f forms.Form) error {
	return c.CreateForm(ctx, f) // Same endpoint for create/update
}

// DeleteForm deletes a form
func (c *Client) DeleteForm(ctx context.Context, id, env string) error {
	u, err := url.Parse(c.BaseURL + "/v1/forms/" + url.PathEscape(id))
	if err != nil {
		return fmt.Errorf("failed to parse URL: %w", err)
	}

	q := u.Query()
	q.Set("env", env)
	u.RawQuery = q.Encode()

	req, err := http.NewRequestWithContext(ctx, "DELETE", u.String(), nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}

	resp, err := c.do(req, http.StatusOK, http.StatusNoContent)
	if err != nil {
		return err
	}
	resp.Body.Close()
	return nil
}

// PublishForm marks a form as published so it enters the snapshot
func (c *Client) PublishForm(ctx context.Context, id string) error {
	req, err := http.NewRequestWithContext(ctx, "POST", c.BaseURL+"/v1/forms/"+url.PathEscape(id)+"/publish", nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}

	resp, err := c.do(req, http.StatusOK)
	if err != nil {
		return err
	}
	resp.Body.Close()
	return nil
}

// Evaluate runs a visibility sweep for a form against a set of answers.
// Answers map question ids to recorded values; skipped questions carry
// Skipped=true.
func (c *Client) Evaluate(ctx context.Context, formID string, answers map[string]AnswerInput) (map[string]bool, error) {
	body, err := json.Marshal(map[string]any{"answers": answers})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, "POST", c.BaseURL+"/v1/forms/"+url.PathEscape(formID)+"/visibility", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.do(req, http.StatusOK)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	var result struct {
		Visibility map[string]bool `json:"visibility"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, fmt.Errorf("failed to decode response: %w", err)
	}
	return result.Visibility, nil
}

// AnswerInput is one answer in an evaluation request.
type AnswerInput struct {
	Value   any  `json:"value,omitempty"`
	Skipped bool `json:"skipped,omitempty"`
}
