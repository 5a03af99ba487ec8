package services

import (
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/spf13/viper"
)

// OpenAIClient talks to the OpenAI HTTP API (or any compatible endpoint set
// via OPENAI_BASE_URL) for embeddings and translation.
type OpenAIClient struct {
	client         *resty.Client
	embeddingModel string
	chatModel      string
}

func NewOpenAIClient() *OpenAIClient {
	baseURL := viper.GetString("OPENAI_BASE_URL")
	if baseURL == "" {
		baseURL = "https://api.openai.com/v1"
	}

	embeddingModel := viper.GetString("EMBEDDING_MODEL")
	if embeddingModel == "" {
		embeddingModel = "text-embedding-3-small"
	}

	chatModel := viper.GetString("CHAT_MODEL")
	if chatModel == "" {
		chatModel = "gpt-3.5-turbo"
	}

	c := resty.New().
		SetBaseURL(baseURL).
		SetAuthToken(viper.GetString("OPENAI_API_KEY")).
		SetHeader("Content-Type", "application/json").
		SetTimeout(30 * time.Second)

	return &OpenAIClient{
		client:         c,
		embeddingModel: embeddingModel,
		chatModel:      chatModel,
	}
}
