package infra

import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/azure"
	"github.com/openai/openai-go/option"
	"github.com/updateme/updateme/domain/model"
)

type OpenAI struct {
	client *openai.Client
}

// NewOpenAI returns (nil, nil) when no API key is configured; the digest is
// then sent without a summary.
func NewOpenAI() (*OpenAI, error) {
	if os.Getenv("OPENAI_API_KEY") == "" && os.Getenv("AZURE_OPENAI_KEY") == "" {
		return nil, nil
	}
	client, err := newOpenAIClient()
	if err != nil {
		return nil, fmt.Errorf("failed to initialize OpenAI client: %w", err)
	}
	return &OpenAI{
		client: client,
	}, nil
}

func newOpenAIClient() (*openai.Client, error) {
	if os.Getenv("AZURE_OPENAI_ENDPOINT") != "" {
		return newAzureClient()
	}

	key := os.Getenv("OPENAI_API_KEY")
	if key == "" {
		return nil, fmt.Errorf("OPENAI_API_KEY is not set")
	}
	options := []option.RequestOption{
		option.WithAPIKey(os.Getenv("OPENAI_API_KEY")),
	}

	c := openai.NewClient(options...)
	return &c, nil
}

func newAzureClient() (*openai.Client, error) {
	key := os.Getenv("AZURE_OPENAI_KEY")
	if key == "" {
		return nil, fmt.Errorf("AZURE_OPENAI_KEY is not set")
	}
	var azureOpenAIEndpoint = os.Getenv("AZURE_OPENAI_ENDPOINT")

	var azureOpenAIAPIVersion = "2025-01-01-preview"

	if os.Getenv("AZURE_OPENAI_API_VERSION") != "" {
		azureOpenAIAPIVersion = os.Getenv("AZURE_OPENAI_API_VERSION")
	}

	c := openai.NewClient(
		azure.WithEndpoint(azureOpenAIEndpoint, azureOpenAIAPIVersion),
		azure.WithAPIKey(key),
	)
	return &c, nil
}

// GenerateDigestSummary produces a short overview of the period's status
// updates for the top of the digest email.
func (h *OpenAI) GenerateDigestSummary(updates []model.StatusUpdate) (string, error) {
	var sb strings.Builder
	for _, update := range updates {
		sb.WriteString(update.CreatedAt.Format("2006-01-02"))
		if update.Type != nil {
			sb.WriteString(" [" + update.Type.Name + "]")
		}
		var teamNames []string
		for _, team := range update.Teams {
			teamNames = append(teamNames, team.Name)
		}
		if len(teamNames) > 0 {
			sb.WriteString(" (" + strings.Join(teamNames, ", ") + ")")
		}
		sb.WriteString(": " + update.Text + "\n")
	}

	prompt := fmt.Sprintf(`## Task
The content below is a list of status updates our teams shared recently.
Write a short summary that helps the whole company catch up quickly.

## Answer requirements
- Group related updates together instead of repeating them one by one.
- Call out risks, delays and launches explicitly.
- Keep it under 10 sentences.

## Current time
%s
## Status updates
%s
`,
		time.Now().UTC().Format("2006-01-02 15:04:05"),
		sb.String(),
	)

	response, err := h.client.Chat.Completions.New(context.TODO(), openai.ChatCompletionNewParams{
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.UserMessage(prompt),
		},
		Model: os.Getenv("OPENAI_MODEL"),
	})

	if err != nil {
		return "", fmt.Errorf("failed to call OpenAI API: %w", err)
	}

	return response.Choices[0].Message.Content, nil
}
