package responder

import (
	"context"
	"fmt"

	"google.golang.org/genai"

	"github.com/dsiqueira/retroicq/internal/domain"
)

// systemPrompt pins the bot persona: a chatbot living inside a
// 1999-vintage IM client.
const systemPrompt = `You are an intelligent chatbot named "GeminiBot" inside an ICQ client from the year 1999.
Your UIN is 987654.
You should speak in a helpful but slightly retro-tech-enthusiast tone.
Use some internet slang from the 90s/2000s occasionally (like "cool", "webmaster", "netizen", "lol").
Keep responses relatively short, suitable for a chat window.
If asked about your status, say you are surfing the information superhighway.`

type GeminiResponder struct {
	client    *genai.Client
	modelName string
}

var _ domain.Responder = (*GeminiResponder)(nil)

// NewGeminiResponder creates a Responder backed by the Gemini API.
func NewGeminiResponder(ctx context.Context, apiKey, modelName string) (*GeminiResponder, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("GEMINI_API_KEY must be set")
	}
	if modelName == "" {
		modelName = "gemini-2.5-flash"
	}

	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("creating Gemini client: %w", err)
	}

	return &GeminiResponder{
		client:    client,
		modelName: modelName,
	}, nil
}

// Respond implements domain.Responder using Gemini.
func (g *GeminiResponder) Respond(
	ctx context.Context,
	text string,
	askerUIN domain.UIN,
	history []domain.Message,
) (string, error) {
	// 1) Session history as conversation turns. The asker is the user
	// side; everything else in a bot session came from the bot.
	var contents []*genai.Content
	for _, m := range history {
		role := genai.Role(genai.RoleModel)
		if m.SenderUIN == askerUIN {
			role = genai.RoleUser
		}
		contents = append(contents, genai.NewContentFromText(m.Text, role))
	}

	// 2) Current user message
	contents = append(contents, genai.NewContentFromText(text, genai.RoleUser))

	// 3) Persona config; creative enough for the character.
	temp := float32(0.8)

	cfg := &genai.GenerateContentConfig{
		SystemInstruction: genai.NewContentFromText(systemPrompt, genai.RoleUser),
		Temperature:       &temp,
	}

	res, err := g.client.Models.GenerateContent(ctx, g.modelName, contents, cfg)
	if err != nil {
		return "", fmt.Errorf("gemini generate content: %w", err)
	}

	reply := res.Text()
	if reply == "" {
		return "", fmt.Errorf("gemini returned empty text")
	}

	return reply, nil
}
