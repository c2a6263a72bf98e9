// Package embedding wraps the external text-embedding provider behind a
// small interface so the tool layer can decide when a call is worth making.
package embedding

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"
	openai "github.com/sashabaranov/go-openai"
)

// ErrNoEmbeddingData is returned when the provider responds successfully
// but carries zero embedding candidates.
var ErrNoEmbeddingData = errors.New("embedding provider returned no embedding data")

// Embedder produces vector embeddings for free text.
type Embedder interface {
	// Embed returns the embedding vector for text. Exactly one provider
	// call is made per invocation; there is no retry or caching.
	Embed(ctx context.Context, text string) ([]float32, error)

	// MaybeEmbed returns (nil, nil) when text is empty or blank after
	// trimming, otherwise delegates to Embed.
	MaybeEmbed(ctx context.Context, text string) ([]float32, error)
}

// OpenAIService is the production Embedder backed by the OpenAI
// embeddings API.
type OpenAIService struct {
	client *openai.Client
	model  string
	log    zerolog.Logger
}

// NewOpenAIService creates an embedding service. baseURL may be empty to
// use the provider default, or point at an OpenAI-compatible endpoint.
func NewOpenAIService(apiKey, baseURL, model string, log zerolog.Logger) *OpenAIService {
	cfg := openai.DefaultConfig(apiKey)
	if baseURL != "" {
		cfg.BaseURL = baseURL
	}

	return &OpenAIService{
		client: openai.NewClientWithConfig(cfg),
		model:  model,
		log:    log,
	}
}

// Embed requests one embedding and returns the first candidate.
func (s *OpenAIService) Embed(ctx context.Context, text string) ([]float32, error) {
	start := time.Now()
	s.log.Debug().Int("text_len", len(text)).Str("model", s.model).Msg("Creating embedding")

	resp, err := s.client.CreateEmbeddings(ctx, openai.EmbeddingRequest{
		Input: text,
		Model: openai.EmbeddingModel(s.model),
	})
	if err != nil {
		s.log.Error().Err(err).Msg("Embedding request failed")
		return nil, fmt.Errorf("embedding request failed: %w", err)
	}
	if len(resp.Data) == 0 {
		s.log.Error().Msg("Provider returned no embedding data")
		return nil, ErrNoEmbeddingData
	}

	vector := resp.Data[0].Embedding
	s.log.Info().
		Dur("duration", time.Since(start)).
		Int("dimensions", len(vector)).
		Msg("Embedding created")

	return vector, nil
}

// MaybeEmbed skips absent or blank text without touching the provider.
func (s *OpenAIService) MaybeEmbed(ctx context.Context, text string) ([]float32, error) {
	if text == "" {
		s.log.Debug().Msg("No text provided, skipping embedding")
		return nil, nil
	}
	if strings.TrimSpace(text) == "" {
		s.log.Warn().Msg("Blank text provided, skipping embedding")
		return nil, nil
	}
	return s.Embed(ctx, text)
}
