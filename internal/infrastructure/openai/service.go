package openai

import (
	"github.com/rs/zerolog/log"
	"github.com/sashabaranov/go-openai"

	"github.com/fasttodo/fasttodo/internal/config"
)

// Service wraps the chat-completion client used by the non-streaming
// assistant route.
type Service struct {
	client *openai.Client
	model  string
}

func NewService(cfg *config.Config) *Service {
	if cfg.OpenAIKey == "" {
		log.Warn().Msg("Assistant service not configured - OPENAI_KEY missing")
		return nil
	}

	return &Service{
		client: openai.NewClient(cfg.OpenAIKey),
		model:  cfg.OpenAIModel,
	}
}

// NewServiceWithClient wires a preconfigured client, e.g. one pointed at a
// proxy or a test double.
func NewServiceWithClient(client *openai.Client, model string) *Service {
	return &Service{client: client, model: model}
}

func (s *Service) GetClient() *openai.Client {
	return s.client
}

func (s *Service) Model() string {
	return s.model
}
