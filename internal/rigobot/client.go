// Package rigobot calls the Rigobot completion service that writes file
// descriptions.
package rigobot

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"regexp"
	"strings"

	htmltomarkdown "github.com/JohannesKaufmann/html-to-markdown/v2"

	"reposcanner/internal/models"
)

const (
	DefaultBaseURL  = "https://rigobot.herokuapp.com"
	DefaultPromptID = 258
)

type Inputs struct {
	Title   string `json:"title"`
	Content string `json:"content"`
}

type completionRequest struct {
	Inputs                  Inputs `json:"inputs"`
	IncludePurposeObjective bool   `json:"include_purpose_objective"`
	ExecuteAsync            bool   `json:"execute_async"`
}

// Completion is the part of the service's response the application reads.
type Completion struct {
	Answer string `json:"answer"`
	Status string `json:"status"`
}

// Client is the HTTP client for the Rigobot API
type Client struct {
	BaseURL    string
	PromptID   int
	httpClient *http.Client
}

func NewClient(baseURL string, promptID int) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	if promptID == 0 {
		promptID = DefaultPromptID
	}
	return &Client{
		BaseURL:  strings.TrimRight(baseURL, "/"),
		PromptID:   promptID,
		httpClient: &http.Client{},
	}
}

// Complete runs the description prompt synchronously. It has no timeout of
// its own; ctx bounds the call. Non-2xx responses are returned as network
// errors carrying the status and body; nothing is retried.
func (c *Client) Complete(ctx context.Context, token string, inputs Inputs) (*Completion, error) {
	if token == "" {
		return nil, fmt.Errorf("rigobot completion: %w: Rigobot token", models.ErrMissingCredential)
	}

	jsonData, err := json.Marshal(completionRequest{Inputs: inputs})
	if err != nil {
		return nil, fmt.Errorf("failed to serialize completion request: %w", err)
	}

	url := fmt.Sprintf("%s/v1/prompting/completion/%d/", c.BaseURL, c.PromptID)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(jsonData))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Token "+token)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("rigobot completion: %w: %w", models.ErrNetwork, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("rigobot completion: %w: %w", models.ErrNetwork, err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("rigobot completion: %w: API error: %d - %s", models.ErrNetwork, resp.StatusCode, strings.TrimSpace(string(body)))
	}

	var completion Completion
	if err := json.Unmarshal(body, &completion); err != nil {
		return nil, fmt.Errorf("rigobot completion: %w: %w", models.ErrParse, err)
	}
	return &completion, nil
}

// htmlAnswer matches answers that contain a closing tag. A lone "<T>" in
// prose is not HTML.
var htmlAnswer = regexp.MustCompile(`</[a-zA-Z][a-zA-Z0-9]*\s*>`)

// PreviewAnswer renders an answer for display. HTML answers are shown as
// Markdown. The stored description is always the answer as returned.
func PreviewAnswer(answer string) string {
	answer = strings.TrimSpace(answer)
	if !htmlAnswer.MatchString(answer) {
		return answer
	}

	md, err := htmltomarkdown.ConvertString(answer)
	if err != nil {
		return answer
	}
	return strings.TrimSpace(md)
}
