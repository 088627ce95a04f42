package server

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"
)

const topicSystemPrompt = `You generate word lists for a social deduction word game.
Given a category, return concrete, well-known nouns that every player would recognize.
One word per line, no numbering, no commentary. Words must be one or two tokens long
and must all belong to the requested category.`

type openAIChatRequest struct {
	Model       string              `json:"model"`
	Messages    []openAIChatMessage `json:"messages"`
	Temperature float64             `json:"temperature,omitempty"`
	MaxTokens   int                 `json:"max_tokens,omitempty"`
}

type openAIChatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type openAIChatResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
	Error *struct {
		Message string `json:"message"`
	} `json:"error,omitempty"`
}

func (s *Server) generateTopicsFromOpenAI(ctx context.Context, category string, count int, instructions string) ([]string, error) {
	if strings.TrimSpace(s.cfg.OpenAIAPIKey) == "" {
		return nil, errors.New("OpenAI API key is not configured")
	}
	userPrompt := "Category: " + category + "\nWords needed: " + strconv.Itoa(count)
	if instructions != "" {
		userPrompt += "\nExtra instructions: " + instructions
	}

	reqBody := openAIChatRequest{
		Model: s.cfg.OpenAIModel,
		Messages: []openAIChatMessage{
			{Role: "system", Content: topicSystemPrompt},
			{Role: "user", Content: userPrompt},
		},
		Temperature: 0.9,
		MaxTokens:   500,
	}

	payload, err := json.Marshal(reqBody)
	if err != nil {
		return nil, fmt.Errorf("failed to build OpenAI request")
	}

	reqCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	req, err := http.NewRequestWithContext(reqCtx, http.MethodPost, "https://api.openai.com/v1/chat/completions", bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("failed to build OpenAI request")
	}
	req.Header.Set("Authorization", "Bearer "+strings.TrimSpace(s.cfg.OpenAIAPIKey))
	req.Header.Set("Content-Type", "application/json")

	client := &http.Client{Timeout: 30 * time.Second}
	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to reach OpenAI")
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read OpenAI response")
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("OpenAI request failed (%d)", resp.StatusCode)
	}

	var parsed openAIChatResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		return nil, fmt.Errorf("failed to parse OpenAI response")
	}
	if parsed.Error != nil && parsed.Error.Message != "" {
		return nil, fmt.Errorf("OpenAI error: %s", parsed.Error.Message)
	}
	if len(parsed.Choices) == 0 {
		return nil, errors.New("OpenAI returned no words")
	}

	words := parseTopicWords(parsed.Choices[0].Message.Content, count)
	if len(words) == 0 {
		return nil, errors.New("OpenAI did not return words in the expected format")
	}
	return words, nil
}

func parseTopicWords(raw string, limit int) []string {
	lines := strings.Split(raw, "\n")
	unique := make(map[string]struct{}, len(lines))
	out := make([]string, 0, len(lines))
	for _, line := range lines {
		line = strings.TrimSpace(line)
		line = strings.TrimLeft(line, "-*•")
		line = strings.TrimSpace(line)
		line = strings.TrimLeft(line, "0123456789.")
		word := normalizeText(line)
		if word == "" || !isSafeText(word) {
			continue
		}
		key := strings.ToLower(word)
		if _, exists := unique[key]; exists {
			continue
		}
		unique[key] = struct{}{}
		out = append(out, word)
		if limit > 0 && len(out) == limit {
			break
		}
	}
	return out
}
