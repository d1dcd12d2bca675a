// Package extract resolves contact emails from profile bios and generates
// personalized outreach copy, both via the OpenAI chat API.
package extract

import (
	"context"
	"encoding/json"
	"regexp"
	"strings"

	openai "github.com/sashabaranov/go-openai"

	"igleads/pkg/config"
	"igleads/pkg/logger"
)

// emailPattern matches a plain address embedded in free-form bio text.
var emailPattern = regexp.MustCompile(`[a-zA-Z0-9._%+\-]+@[a-zA-Z0-9.\-]+\.[a-zA-Z]{2,}`)

const extractSystemPrompt = `You extract contact email addresses from Instagram bios.
Reply with ONLY the email address. If the bio contains no email, reply with NONE.
Bios sometimes obfuscate addresses ("name at gmail dot com"); resolve those too.`

// Extractor finds contact emails in profile bios.
type Extractor struct {
	client *openai.Client
	model  string
	logger logger.Logger
}

// NewExtractor creates an Extractor from OpenAI configuration.
func NewExtractor(cfg *config.OpenAIConfig, log logger.Logger) *Extractor {
	if log == nil {
		log = logger.GetLogger()
	}
	clientCfg := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		clientCfg.BaseURL = cfg.BaseURL
	}
	return &Extractor{
		client: openai.NewClientWithConfig(clientCfg),
		model:  cfg.ExtractModel,
		logger: log,
	}
}

// ExtractEmail resolves the contact email in a bio, or nil when the bio
// carries none. A plainly written address short-circuits the model call.
func (e *Extractor) ExtractEmail(ctx context.Context, bio string) (*string, error) {
	if strings.TrimSpace(bio) == "" {
		return nil, nil
	}

	if match := emailPattern.FindString(bio); match != "" {
		email := strings.ToLower(match)
		return &email, nil
	}

	resp, err := e.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: e.model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: extractSystemPrompt},
			{Role: openai.ChatMessageRoleUser, Content: bio},
		},
		Temperature: 0,
	})
	if err != nil {
		return nil, err
	}
	if len(resp.Choices) == 0 {
		return nil, nil
	}

	answer := strings.TrimSpace(resp.Choices[0].Message.Content)
	if answer == "" || strings.EqualFold(answer, "NONE") {
		return nil, nil
	}
	if match := emailPattern.FindString(answer); match != "" {
		email := strings.ToLower(match)
		return &email, nil
	}
	return nil, nil
}

// ExtractBatch resolves emails for a batch of (username, bio) pairs. The
// result maps every processed username to its email or to nil when none
// was found; a username whose extraction errored is omitted entirely so
// its flag stays armed for the next run.
func (e *Extractor) ExtractBatch(ctx context.Context, bios map[string]string) (map[string]*string, error) {
	results := make(map[string]*string, len(bios))
	for username, bio := range bios {
		if err := ctx.Err(); err != nil {
			return results, err
		}

		email, err := e.ExtractEmail(ctx, bio)
		if err != nil {
			if ctx.Err() != nil {
				return results, ctx.Err()
			}
			e.logger.WarnWithFields("email extraction failed", map[string]interface{}{
				"username": username,
				"error":    err.Error(),
			})
			continue
		}
		results[username] = email
	}

	logger.LogExtraction(len(bios), len(results), nil)
	return results, nil
}

// unmarshalMessage parses a {subject, body} JSON document, tolerating
// models that wrap their answer in a code fence.
func unmarshalMessage(raw string) (subject, body string, err error) {
	raw = strings.TrimSpace(raw)
	raw = strings.TrimPrefix(raw, "```json")
	raw = strings.TrimPrefix(raw, "```")
	raw = strings.TrimSuffix(raw, "```")

	var msg struct {
		Subject string `json:"subject"`
		Body    string `json:"body"`
	}
	if err := json.Unmarshal([]byte(strings.TrimSpace(raw)), &msg); err != nil {
		return "", "", err
	}
	return msg.Subject, msg.Body, nil
}
