package services

import (
	"errors"
	"fmt"
	"sync"

	"github.com/desktopathlete/athlete/internal/assistant"
	"github.com/desktopathlete/athlete/internal/config"
	"github.com/desktopathlete/athlete/internal/connections"
	"github.com/desktopathlete/athlete/internal/infrastructure/openai"
	"github.com/desktopathlete/athlete/internal/infrastructure/redis"
	"github.com/desktopathlete/athlete/internal/services/conversation"
	"github.com/desktopathlete/athlete/internal/services/render"
	"github.com/desktopathlete/athlete/internal/services/session"
	"github.com/desktopathlete/athlete/internal/services/workout"
	"github.com/rs/zerolog/log"
)

var (
	// Mutex for thread-safe initialization
	servicesMu sync.RWMutex
)

type Services struct {
	backend             assistant.Backend
	assistantID         string
	redisService        *redis.Service
	sessionService      *session.Service
	conversationService *conversation.Service
	renderer            *render.Renderer
	workoutService      *workout.Service
	connections         *connections.Manager
}

// InitializeServices initializes all required services
func InitializeServices() (*Services, error) {
	servicesMu.Lock()
	defer servicesMu.Unlock()

	log.Info().Msg("Initializing core services")

	// Initialize OpenAI service (required)
	openAIService := openai.NewService()
	if openAIService == nil {
		return nil, fmt.Errorf("OpenAI service is required: set OPENAI_KEY")
	}
	if openAIService.AssistantID() == "" {
		log.Warn().Msg("OPENAI_ASSISTANT_ID is not set - /v1/chat will fail until runs name an assistant")
	}

	// Initialize Redis service (optional)
	redisService := redis.NewService()
	log.Info().Bool("enabled", redisService != nil).Msg("Initializing Redis service")

	workoutStore, err := workout.NewSQLiteStore(config.GetWorkoutDBPath())
	if err != nil {
		log.Error().Err(err).Msg("Failed to open workout store")
		return nil, fmt.Errorf("failed to initialize workout store: %w", err)
	}

	backend := assistant.NewOpenAIBackend(openAIService.GetClient())
	s := New(backend, openAIService.AssistantID(), redisService, workoutStore)

	log.Info().Msg("All services initialized successfully")
	return s, nil
}

// New wires the services around an already built backend and stores
func New(backend assistant.Backend, assistantID string, redisService *redis.Service, workoutStore workout.Store) *Services {
	sessionService := session.NewService(redisService)
	opts := conversation.OptionsFromConfig(config.GetConversationConfig(), assistantID)

	return &Services{
		backend:             backend,
		assistantID:         assistantID,
		redisService:        redisService,
		sessionService:      sessionService,
		conversationService: conversation.NewService(backend, sessionService.Guard(), opts),
		renderer:            render.New(),
		workoutService:      workout.NewService(workoutStore),
		connections:         connections.NewManager(connections.DefaultTimeouts),
	}
}

// Close releases the stores
func (s *Services) Close() error {
	s.sessionService.Close()

	var errs []error
	if err := s.workoutService.Close(); err != nil {
		errs = append(errs, err)
	}
	if s.redisService != nil {
		if err := s.redisService.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func (s *Services) GetBackend() assistant.Backend {
	return s.backend
}

// GetAssistantID returns the assistant runs default to
func (s *Services) GetAssistantID() string {
	return s.assistantID
}

func (s *Services) GetRedisService() *redis.Service {
	return s.redisService
}

func (s *Services) GetSessionService() *session.Service {
	return s.sessionService
}

func (s *Services) GetConversationService() *conversation.Service {
	return s.conversationService
}

func (s *Services) GetRenderer() *render.Renderer {
	return s.renderer
}

func (s *Services) GetWorkoutService() *workout.Service {
	return s.workoutService
}

func (s *Services) GetConnectionManager() *connections.Manager {
	return s.connections
}
