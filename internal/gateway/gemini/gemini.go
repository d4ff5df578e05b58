// Package gemini implements gateway.Generator using the Gemini
// generateContent REST API.
package gemini

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/inspecta-dev/inspecta/internal/gateway"
)

const defaultBaseURL = "https://generativelanguage.googleapis.com/v1beta"

// Client implements gateway.Generator against the Gemini API.
type Client struct {
	apiKey  string
	model   string
	baseURL string
	client  *http.Client
}

// New creates a Gemini client. Model defaults to "gemini-2.0-flash" if empty.
func New(apiKey, model string) *Client {
	if model == "" {
		model = "gemini-2.0-flash"
	}
	return &Client{
		apiKey:  apiKey,
		model:   model,
		baseURL: defaultBaseURL,
		client:  &http.Client{Timeout: 2 * time.Minute},
	}
}

// SetBaseURL overrides the API endpoint. Test hook.
func (c *Client) SetBaseURL(url string) {
	c.baseURL = url
}

// Wire types for the generateContent payload. Binary parts travel as
// inline_data with base64-encoded bytes.
type wirePart struct {
	Text       string          `json:"text,omitempty"`
	InlineData *wireInlineData `json:"inline_data,omitempty"`
}

type wireInlineData struct {
	MimeType string `json:"mime_type"`
	Data     string `json:"data"`
}

type wireContent struct {
	Role  string     `json:"role"`
	Parts []wirePart `json:"parts"`
}

// Generate sends one user-role turn and returns the generated text.
func (c *Client) Generate(ctx context.Context, parts []gateway.Part) (string, error) {
	wireParts := make([]wirePart, 0, len(parts))
	for _, p := range parts {
		if p.IsText() {
			wireParts = append(wireParts, wirePart{Text: p.Text})
			continue
		}
		wireParts = append(wireParts, wirePart{InlineData: &wireInlineData{
			MimeType: p.MimeType,
			Data:     base64.StdEncoding.EncodeToString(p.Data),
		}})
	}

	reqBody := map[string]any{
		"contents": []wireContent{{Role: "user", Parts: wireParts}},
	}

	var result struct {
		Candidates []struct {
			Content struct {
				Parts []struct {
					Text string `json:"text"`
				} `json:"parts"`
			} `json:"content"`
		} `json:"candidates"`
	}

	url := fmt.Sprintf("%s/models/%s:generateContent", c.baseURL, c.model)
	err := doJSONRoundTrip(ctx, c.client, "POST", url,
		map[string]string{
			"Content-Type":   "application/json",
			"x-goog-api-key": c.apiKey,
		},
		reqBody, &result)
	if err != nil {
		return "", fmt.Errorf("gemini API: %w", err)
	}

	for _, cand := range result.Candidates {
		for _, part := range cand.Content.Parts {
			if part.Text != "" {
				return part.Text, nil
			}
		}
	}
	return "", fmt.Errorf("no text content in response")
}

func doJSONRoundTrip(
	ctx context.Context,
	client *http.Client,
	method, url string,
	headers map[string]string,
	reqBody any,
	respBody any,
) error {
	jsonBody, err := json.Marshal(reqBody)
	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, method, url, bytes.NewReader(jsonBody))
	if err != nil {
		return err
	}
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	resp, err := client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return err
	}
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("error (%d): %s", resp.StatusCode, string(body))
	}
	if err := json.Unmarshal(body, respBody); err != nil {
		return fmt.Errorf("parsing response: %w", err)
	}
	return nil
}
