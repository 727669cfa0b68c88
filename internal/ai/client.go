package ai

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"time"

	"BesCrmSaas/internal/config"
	"BesCrmSaas/internal/sanitize"
)

// Tone selects the register of a generated draft.
type Tone string

const (
	ToneFormal   Tone = "formal"
	ToneFriendly Tone = "friendly"
)

// Draft is a generated digest email proposal.
type Draft struct {
	Subject string `json:"subject"`
	Body    string `json:"body"`
}

var ErrMissingAPIKey = errors.New("OPENAI_API_KEY env variable is missing")

var systemMessage = strings.Join([]string{
	"You are an assistant that prepares Turkish pension savings digest emails for financial advisors.",
	"Always produce concise yet informative content.",
	"Use the following placeholders exactly as written whenever personal data is referenced: {{CONSULTANT_NAME}}, {{CLIENT_NAME}}, {{CLIENT_EMAIL}}, {{CURRENT_SAVINGS}}, {{FIRST_SAVINGS}}, {{SAVINGS_GROWTH}}, {{CLIENT_START_DATE}}, {{CURRENT_DATE}}, {{CLIENT_LIST}}.",
	"Begin the body with the salutation 'Sayın {{CLIENT_NAME}},' and keep placeholders untouched.",
	"Every draft must include at minimum the customer's current savings, first savings, growth, and start date placeholders.",
	"Return valid JSON with keys `subject` and `body`.",
	"The body should be multi-paragraph plain text that can include bullet lists with hyphens.",
}, " ")

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatRequest struct {
	Model       string        `json:"model"`
	Messages    []chatMessage `json:"messages"`
	Temperature float64       `json:"temperature"`
	MaxTokens   int           `json:"max_tokens"`
}

type chatResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
}

// Client talks to an OpenAI-compatible chat-completions endpoint.
type Client struct {
	apiURL string
	model  string
	apiKey string
	http   *http.Client
}

// FromEnv reads OPENAI_API_URL, OPENAI_MODEL and OPENAI_API_KEY, falling back
// to the standard endpoint and model when unset.
func FromEnv() *Client {
	apiURL := os.Getenv("OPENAI_API_URL")
	if apiURL == "" {
		apiURL = config.DefaultOpenAIAPIURL
	}
	model := os.Getenv("OPENAI_MODEL")
	if model == "" {
		model = config.DefaultOpenAIModel
	}
	return &Client{
		apiURL: apiURL,
		model:  model,
		apiKey: os.Getenv("OPENAI_API_KEY"),
		http:   &http.Client{Timeout: 60 * time.Second},
	}
}

// GenerateDraft asks the model for a Turkish digest draft keeping the
// placeholder tokens intact.
func (c *Client) GenerateDraft(ctx context.Context, prompt string, tone Tone) (Draft, error) {
	if c.apiKey == "" {
		return Draft{}, ErrMissingAPIKey
	}

	toneLabel := "resmi"
	if tone == ToneFriendly {
		toneLabel = "samimi"
	}

	userMessage := strings.Join([]string{
		"Yazım tonu: " + toneLabel + ", Türkçe.",
		"Aşağıdaki placeholders metinde mutlaka kullanılabilir ve içeriğe uygun şekilde yerleştirilmelidir.",
		"Özellikle {{CURRENT_SAVINGS}}, {{FIRST_SAVINGS}}, {{SAVINGS_GROWTH}}, {{CLIENT_START_DATE}} ifadelerini gövdede belirt.",
		"Kullanıcı yönergesi:",
		prompt,
		"",
		"Lütfen yalnızca JSON çıktısı üret.",
		`{"subject":"","body":""}`,
	}, "\n")

	payload, err := json.Marshal(chatRequest{
		Model: c.model,
		Messages: []chatMessage{
			{Role: "system", Content: systemMessage},
			{Role: "user", Content: userMessage},
		},
		Temperature: 0.6,
		MaxTokens:   600,
	})
	if err != nil {
		return Draft{}, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.apiURL, bytes.NewReader(payload))
	if err != nil {
		return Draft{}, err
	}
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return Draft{}, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		errorText, _ := io.ReadAll(resp.Body)
		return Draft{}, fmt.Errorf("OpenAI request failed (%d): %s", resp.StatusCode, string(errorText))
	}

	var parsed chatResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return Draft{}, err
	}
	if len(parsed.Choices) == 0 || parsed.Choices[0].Message.Content == "" {
		return Draft{}, errors.New("OpenAI response did not include content")
	}

	content := parsed.Choices[0].Message.Content

	var draft Draft
	if err := json.Unmarshal([]byte(content), &draft); err != nil {
		return Draft{}, fmt.Errorf("OpenAI response could not be parsed: %v. Raw content: %s", err, content)
	}
	if draft.Subject == "" || draft.Body == "" {
		return Draft{}, errors.New("missing subject or body field")
	}

	draft.Subject = sanitize.Text(draft.Subject)
	draft.Body = sanitize.Text(draft.Body)
	return draft, nil
}
