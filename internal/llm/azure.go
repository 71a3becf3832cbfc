package llm

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/Azure/azure-sdk-for-go/sdk/ai/azopenai"
	"github.com/Azure/azure-sdk-for-go/sdk/azcore"
	"github.com/Azure/azure-sdk-for-go/sdk/azcore/policy"
	"github.com/Azure/azure-sdk-for-go/sdk/azcore/to"
)

// AzureOpenAIBackend completes prompts against an Azure OpenAI deployment.
type AzureOpenAIBackend struct {
	client       *azopenai.Client
	deploymentID string
}

func NewAzureOpenAIBackend(endpoint, apiKey, deploymentID string) (*AzureOpenAIBackend, error) {
	if strings.TrimSpace(endpoint) == "" || strings.TrimSpace(apiKey) == "" {
		return nil, errors.New("AZURE_OPENAI_ENDPOINT and AZURE_OPENAI_API_KEY are required for the azure provider")
	}
	if strings.TrimSpace(deploymentID) == "" {
		return nil, errors.New("AZURE_OPENAI_DEPLOYMENT is required for the azure provider")
	}

	opts := &azopenai.ClientOptions{
		ClientOptions: azcore.ClientOptions{
			// Negative means a single attempt.
			Retry: policy.RetryOptions{MaxRetries: -1},
		},
	}
	client, err := azopenai.NewClientWithKeyCredential(endpoint, azcore.NewKeyCredential(apiKey), opts)
	if err != nil {
		return nil, fmt.Errorf("create azure openai client: %w", err)
	}
	return &AzureOpenAIBackend{client: client, deploymentID: deploymentID}, nil
}

func (b *AzureOpenAIBackend) Provider() string { return "azure" }

func (b *AzureOpenAIBackend) Complete(ctx context.Context, messages []Message) (Message, error) {
	resp, err := b.client.GetChatCompletions(ctx, azopenai.ChatCompletionsOptions{
		DeploymentName: to.Ptr(b.deploymentID),
		Messages:       toAzureMessages(messages),
	}, nil)
	if err != nil {
		be := &BackendError{Provider: b.Provider(), Err: err}
		var respErr *azcore.ResponseError
		if errors.As(err, &respErr) {
			be.StatusCode = respErr.StatusCode
		}
		return Message{}, be
	}

	if len(resp.Choices) > 0 && resp.Choices[0].Message != nil && resp.Choices[0].Message.Content != nil {
		if content := *resp.Choices[0].Message.Content; strings.TrimSpace(content) != "" {
			return Message{Role: RoleAI, Content: content}, nil
		}
	}
	return Message{}, &BackendError{Provider: b.Provider(), Err: errors.New("no completion received")}
}

func toAzureMessages(messages []Message) []azopenai.ChatRequestMessageClassification {
	out := make([]azopenai.ChatRequestMessageClassification, 0, len(messages))
	for _, m := range messages {
		switch m.Role {
		case RoleSystem:
			out = append(out, &azopenai.ChatRequestSystemMessage{
				Content: azopenai.NewChatRequestSystemMessageContent(m.Content),
			})
		case RoleHuman:
			out = append(out, &azopenai.ChatRequestUserMessage{
				Content: azopenai.NewChatRequestUserMessageContent(m.Content),
			})
		case RoleAI:
			out = append(out, &azopenai.ChatRequestAssistantMessage{
				Content: azopenai.NewChatRequestAssistantMessageContent(m.Content),
			})
		}
	}
	return out
}
