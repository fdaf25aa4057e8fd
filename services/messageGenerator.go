package services

import (
	"context"
	"fmt"
	"log"
	"os"
	"strings"

	"github.com/ShepherdLoop/models"
	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
)

// GenerationRequest carries what the generator may know about the recipient.
type GenerationRequest struct {
	Person_Name       string
	Event_Context     *models.EventContext
	Is_New_Contact    bool
	Organization_Name string
}

// MessageGenerator drafts a personalised follow-up message.
type MessageGenerator interface {
	GenerateFollowUpMessage(ctx context.Context, req GenerationRequest) (string, error)
}

type chatCompleter interface {
	New(ctx context.Context, body openai.ChatCompletionNewParams, opts ...option.RequestOption) (*openai.ChatCompletion, error)
}

// OpenAIMessageGenerator drafts messages with a chat completion model.
type OpenAIMessageGenerator struct {
	chat  chatCompleter
	model string
}

// NewOpenAIMessageGenerator returns nil when OPENAI_API_KEY is not set; callers
// then fall back to the fixed templates.
func NewOpenAIMessageGenerator() *OpenAIMessageGenerator {
	apiKey := os.Getenv("OPENAI_API_KEY")
	if apiKey == "" {
		log.Println("WARNING: OPENAI_API_KEY not set. Generated follow-up messages will use templates.")
		return nil
	}

	model := os.Getenv("OPENAI_MODEL")
	if model == "" {
		model = openai.ChatModelGPT4oMini
	}

	client := openai.NewClient(option.WithAPIKey(apiKey))
	return &OpenAIMessageGenerator{chat: &client.Chat.Completions, model: model}
}

const followUpSystemPrompt = `You write short, warm follow-up messages on behalf of a church's pastoral care team.
Write in plain text, two to four sentences, no subject line, no sign-off.
Do not invent facts about the person or the event.`

func (g *OpenAIMessageGenerator) GenerateFollowUpMessage(ctx context.Context, req GenerationRequest) (string, error) {
	if g == nil || g.chat == nil {
		return "", fmt.Errorf("message generator not initialized")
	}

	resp, err := g.chat.New(ctx, openai.ChatCompletionNewParams{
		Model: openai.ChatModel(g.model),
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.SystemMessage(followUpSystemPrompt),
			openai.UserMessage(buildGenerationPrompt(req)),
		},
	})
	if err != nil {
		return "", fmt.Errorf("chat completion failed: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("no choices returned")
	}

	return strings.TrimSpace(resp.Choices[0].Message.Content), nil
}

func buildGenerationPrompt(req GenerationRequest) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Organization: %s\n", req.Organization_Name)
	fmt.Fprintf(&b, "Recipient: %s\n", req.Person_Name)
	if req.Is_New_Contact {
		b.WriteString("The recipient visited recently and is new to the church.\n")
	} else {
		b.WriteString("The recipient is already known to the church.\n")
	}
	if req.Event_Context != nil {
		fmt.Fprintf(&b, "They were last seen at: %s", req.Event_Context.Event_Type)
		if !req.Event_Context.Event_Date.IsZero() {
			fmt.Fprintf(&b, " on %s", req.Event_Context.Event_Date.Format("Monday, January 2"))
		}
		b.WriteString("\n")
	}
	b.WriteString("Write the follow-up message.")
	return b.String()
}

// templateFollowUpMessage is used when no generated message is available.
func templateFollowUpMessage(personName string, isNewContact bool, orgName string) string {
	if isNewContact {
		return fmt.Sprintf("Hi %s, thank you so much for visiting %s! It was a joy to have you with us. "+
			"We would love to see you again and help you feel at home. Is there anything we can pray with you about this week?",
			personName, orgName)
	}
	return fmt.Sprintf("Hi %s, we have been thinking of you at %s and wanted to check in. "+
		"We miss seeing you and would love to reconnect. Is there anything we can pray with you about this week?",
		personName, orgName)
}
