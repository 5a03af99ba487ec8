package services

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"

	"github.com/rs/zerolog/log"
)

const translatePrompt = "You are a professional translator. If the following text is not in English, " +
	"translate it to English. If it is already in English, return it as is. " +
	"Respond with only the text, nothing else."

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatRequest struct {
	Model       string        `json:"model"`
	Messages    []chatMessage `json:"messages"`
	Temperature float64       `json:"temperature"`
}

type chatResponse struct {
	Choices []struct {
		Message chatMessage `json:"message"`
	} `json:"choices"`
}

// Translate renders the text in English so non-English search queries match
// the English intent embeddings. Translation is best-effort: on any failure
// the original text is returned unchanged.
func (c *OpenAIClient) Translate(ctx context.Context, text string) string {
	reqBody := chatRequest{
		Model: c.chatModel,
		Messages: []chatMessage{
			{Role: "system", Content: translatePrompt},
			{Role: "user", Content: text},
		},
		Temperature: 0,
	}

	resp, err := c.client.R().
		SetContext(ctx).
		SetBody(&reqBody).
		Post("/chat/completions")
	if err != nil {
		log.Warn().Err(err).Msg("translation request failed, using original text")
		return text
	}
	if resp.StatusCode() != http.StatusOK {
		log.Warn().Int("status", resp.StatusCode()).Msg("translation request failed, using original text")
		return text
	}

	var cr chatResponse
	if err := json.Unmarshal(resp.Body(), &cr); err != nil || len(cr.Choices) == 0 {
		log.Warn().Err(err).Msg("could not parse translation response, using original text")
		return text
	}

	translated := strings.TrimSpace(cr.Choices[0].Message.Content)
	if translated == "" {
		return text
	}
	return translated
}
