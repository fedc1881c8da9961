package openai

import (
	"net/http"

	"github.com/desktopathlete/athlete/internal/config"
	"github.com/desktopathlete/athlete/pkg/logger"
	"github.com/sashabaranov/go-openai"
)

type Service struct {
	client      *openai.Client
	assistantID string
}

// NewService builds the OpenAI client from the environment. It returns nil when
// OPENAI_KEY is missing.
func NewService() *Service {
	logger.Info(logger.SERVICE, "Initialising OpenAI service")
	return NewServiceWithConfig(config.GetOpenAIConfig())
}

func NewServiceWithConfig(cfg config.OpenAIConfig) *Service {
	if cfg.Key == "" {
		logger.Warn(logger.SERVICE, "OpenAI service not configured - OPENAI_KEY missing")
		return nil
	}

	clientConfig := openai.DefaultConfig(cfg.Key)
	if cfg.BaseURL != "" {
		clientConfig.BaseURL = cfg.BaseURL
	}
	clientConfig.HTTPClient = &http.Client{Timeout: cfg.Timeout}

	return &Service{
		client:      openai.NewClientWithConfig(clientConfig),
		assistantID: cfg.AssistantID,
	}
}

func (s *Service) GetClient() *openai.Client {
	return s.client
}

// AssistantID is the hosted assistant runs are created for
func (s *Service) AssistantID() string {
	return s.assistantID
}
