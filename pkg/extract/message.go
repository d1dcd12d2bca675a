package extract

import (
	"context"
	"fmt"
	"strings"

	openai "github.com/sashabaranov/go-openai"

	"igleads/pkg/config"
	"igleads/pkg/logger"
)

const generateSystemPrompt = `You write short, personal outreach emails to golf content
creators on behalf of a product team. Reference something concrete from the creator's
bio. Keep the body under 120 words, no placeholders, no hard sell.
Reply with ONLY a JSON object: {"subject": "...", "body": "..."}.`

// Message is a generated outreach email.
type Message struct {
	Subject string
	Body    string
}

// Generator produces outreach copy for qualified accounts.
type Generator struct {
	client  *openai.Client
	model   string
	product string
	pitch   string
	logger  logger.Logger
}

// NewGenerator creates a Generator from OpenAI and outreach configuration.
func NewGenerator(cfg *config.OpenAIConfig, outreach *config.OutreachConfig, log logger.Logger) *Generator {
	if log == nil {
		log = logger.GetLogger()
	}
	clientCfg := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		clientCfg.BaseURL = cfg.BaseURL
	}
	return &Generator{
		client:  openai.NewClientWithConfig(clientCfg),
		model:   cfg.GenerateModel,
		product: outreach.ProductName,
		pitch:   outreach.ProductPitch,
		logger:  log,
	}
}

// Generate writes a personalized outreach email for the account. When the
// model call or its output fails, the fallback template is returned so an
// outreach run never stalls on a single account.
func (g *Generator) Generate(ctx context.Context, username, fullName, bio string) Message {
	prompt := fmt.Sprintf(
		"Product: %s. Pitch: %s.\nCreator username: %s\nCreator name: %s\nCreator bio: %s",
		g.product, g.pitch, username, fullName, bio)

	resp, err := g.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: g.model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: generateSystemPrompt},
			{Role: openai.ChatMessageRoleUser, Content: prompt},
		},
	})
	if err != nil {
		g.logger.WarnWithFields("message generation failed, using fallback", map[string]interface{}{
			"username": username,
			"error":    err.Error(),
		})
		return g.fallback(username, fullName)
	}
	if len(resp.Choices) == 0 {
		return g.fallback(username, fullName)
	}

	subject, body, err := unmarshalMessage(resp.Choices[0].Message.Content)
	if err != nil || subject == "" || body == "" {
		g.logger.WarnWithFields("unusable generated message, using fallback", map[string]interface{}{
			"username": username,
		})
		return g.fallback(username, fullName)
	}
	return Message{Subject: subject, Body: body}
}

// fallback is the static template used when generation fails.
func (g *Generator) fallback(username, fullName string) Message {
	name := strings.TrimSpace(fullName)
	if name == "" {
		name = "@" + username
	}
	return Message{
		Subject: fmt.Sprintf("Partnership idea for your golf content, %s", name),
		Body: fmt.Sprintf(
			"Hi %s,\n\nI came across your Instagram and really enjoyed your golf content. "+
				"We build %s, %s. We think it would resonate with your audience and would "+
				"love to explore a collaboration.\n\nWould you be open to a quick chat?\n\nBest regards",
			name, g.product, g.pitch),
	}
}
