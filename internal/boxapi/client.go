// Package boxapi talks to the Box platform: file upload, AI text generation,
// and token validation. It also owns the prompt templates sent to the AI
// endpoint and the parsing of its free-form responses.
package boxapi

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"os"

	"github.com/fairsailau/congabox2/internal/config"
	"github.com/fairsailau/congabox2/internal/model"
)

// Client calls the Box API with a developer token.
type Client struct {
	Token       string
	BaseURL     string
	Model       string
	Temperature float64
	MaxTokens   int
	HTTPClient  *http.Client
}

// NewClient creates a Client using the BOX_DEVELOPER_TOKEN env var.
func NewClient(cfg config.BoxConfig) (*Client, error) {
	token := os.Getenv("BOX_DEVELOPER_TOKEN")
	if token == "" {
		return nil, fmt.Errorf("BOX_DEVELOPER_TOKEN environment variable not set")
	}
	return &Client{
		Token:       token,
		BaseURL:     cfg.BaseURL,
		Model:       cfg.Model,
		Temperature: cfg.Temperature,
		MaxTokens:   cfg.MaxTokens,
		HTTPClient:  &http.Client{},
	}, nil
}

type uploadResponse struct {
	Entries []struct {
		ID string `json:"id"`
	} `json:"entries"`
}

type textGenRequest struct {
	Prompt      string     `json:"prompt"`
	Temperature float64    `json:"temperature"`
	MaxTokens   int        `json:"max_tokens"`
	AIAgent     aiAgent    `json:"ai_agent"`
	Items       []fileItem `json:"items,omitempty"`
}

type aiAgent struct {
	Type     string   `json:"type"`
	BasicGen basicGen `json:"basic_gen"`
}

type basicGen struct {
	Model string `json:"model"`
}

type fileItem struct {
	ID   string `json:"id"`
	Type string `json:"type"`
}

type textGenResponse struct {
	Text string `json:"text"`
}

// UploadFile uploads content to the Box root folder and returns the new
// file's ID.
func (c *Client) UploadFile(ctx context.Context, r io.Reader, name string) (string, error) {
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)

	attrs, _ := json.Marshal(map[string]any{
		"name":   name,
		"parent": map[string]string{"id": "0"},
	})
	if err := mw.WriteField("attributes", string(attrs)); err != nil {
		return "", &model.TransportError{Op: "upload", Err: err}
	}

	part, err := mw.CreateFormFile("file", name)
	if err != nil {
		return "", &model.TransportError{Op: "upload", Err: err}
	}
	if _, err := io.Copy(part, r); err != nil {
		return "", &model.TransportError{Op: "upload", Err: err}
	}
	if err := mw.Close(); err != nil {
		return "", &model.TransportError{Op: "upload", Err: err}
	}

	req, err := http.NewRequestWithContext(ctx, "POST", c.BaseURL+"/2.0/files/content", &body)
	if err != nil {
		return "", &model.TransportError{Op: "upload", Err: err}
	}
	req.Header.Set("Authorization", "Bearer "+c.Token)
	req.Header.Set("Content-Type", mw.FormDataContentType())

	respBody, err := c.do(req, "upload", http.StatusCreated, http.StatusOK)
	if err != nil {
		return "", err
	}

	var upload uploadResponse
	if err := json.Unmarshal(respBody, &upload); err != nil {
		return "", &model.TransportError{Op: "upload", Err: fmt.Errorf("parsing response: %w", err)}
	}
	if len(upload.Entries) == 0 {
		return "", &model.TransportError{Op: "upload", Err: fmt.Errorf("upload response contained no entries")}
	}

	return upload.Entries[0].ID, nil
}

// GenerateText asks the Box AI text-gen endpoint to answer the prompt with
// the given uploaded files as references, returning the raw response text.
func (c *Client) GenerateText(ctx context.Context, prompt string, fileIDs []string) (string, error) {
	reqBody := textGenRequest{
		Prompt:      prompt,
		Temperature: c.Temperature,
		MaxTokens:   c.MaxTokens,
		AIAgent: aiAgent{
			Type:     "ai_agent_text_gen",
			BasicGen: basicGen{Model: c.Model},
		},
	}
	for _, id := range fileIDs {
		reqBody.Items = append(reqBody.Items, fileItem{ID: id, Type: "file"})
	}

	payload, err := json.Marshal(reqBody)
	if err != nil {
		return "", &model.TransportError{Op: "text_gen", Err: fmt.Errorf("marshaling request: %w", err)}
	}

	req, err := http.NewRequestWithContext(ctx, "POST", c.BaseURL+"/2.0/ai/text_gen", bytes.NewReader(payload))
	if err != nil {
		return "", &model.TransportError{Op: "text_gen", Err: err}
	}
	req.Header.Set("Authorization", "Bearer "+c.Token)
	req.Header.Set("Content-Type", "application/json")

	respBody, err := c.do(req, "text_gen", http.StatusOK)
	if err != nil {
		return "", err
	}

	var gen textGenResponse
	if err := json.Unmarshal(respBody, &gen); err != nil {
		return "", &model.TransportError{Op: "text_gen", Err: fmt.Errorf("parsing response: %w", err)}
	}

	return gen.Text, nil
}

// ValidateToken reports whether the developer token is accepted by the API.
func (c *Client) ValidateToken(ctx context.Context) bool {
	req, err := http.NewRequestWithContext(ctx, "GET", c.BaseURL+"/2.0/users/me", nil)
	if err != nil {
		return false
	}
	req.Header.Set("Authorization", "Bearer "+c.Token)

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return false
	}
	defer resp.Body.Close()
	io.Copy(io.Discard, resp.Body)

	return resp.StatusCode == http.StatusOK
}

// do executes the request and returns the body, converting transport and
// unexpected-status failures into TransportError with status and body.
func (c *Client) do(req *http.Request, op string, okStatuses ...int) ([]byte, error) {
	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return nil, &model.TransportError{Op: op, Err: err}
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &model.TransportError{Op: op, Err: fmt.Errorf("reading response: %w", err)}
	}

	for _, s := range okStatuses {
		if resp.StatusCode == s {
			return respBody, nil
		}
	}

	return nil, &model.TransportError{Op: op, StatusCode: resp.StatusCode, Body: string(respBody)}
}
