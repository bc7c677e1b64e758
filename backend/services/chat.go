package services

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	openai "github.com/sashabaranov/go-openai"
	"gorm.io/gorm"

	"studyflow/backend/config"
	"studyflow/backend/models"
)

// ErrChatNotConfigured is returned when no chat API key is set.
var ErrChatNotConfigured = errors.New("chat API key not configured")

// contextWindow is the number of stored messages replayed to the model.
const contextWindow = 20

var complexityDescriptions = map[string]string{
	"brief":    "Provide concise answers (1-2 sentences). Focus on key points only.",
	"standard": "Provide detailed answers with examples. Explain concepts clearly but concisely.",
	"deep":     "Provide comprehensive answers with in-depth explanations, examples, and context.",
}

// ChatService proxies tutor conversations to an OpenAI-compatible chat
// completion API and persists the exchanged messages.
type ChatService struct {
	DB     *gorm.DB
	client *openai.Client
	model  string
}

func NewChatService(db *gorm.DB, cfg *config.Config) *ChatService {
	var client *openai.Client
	if cfg.ChatAPIKey != "" {
		clientCfg := openai.DefaultConfig(cfg.ChatAPIKey)
		if cfg.ChatBaseURL != "" {
			clientCfg.BaseURL = cfg.ChatBaseURL
		}
		client = openai.NewClientWithConfig(clientCfg)
	}

	return &ChatService{
		DB:     db,
		client: client,
		model:  cfg.ChatModel,
	}
}

// ModelID returns the configured model identifier.
func (s *ChatService) ModelID() string {
	return s.model
}

// BuildSystemPrompt shapes the tutor persona for a course and complexity level.
func (s *ChatService) BuildSystemPrompt(courseID, complexity string) string {
	instruction, ok := complexityDescriptions[complexity]
	if !ok {
		instruction = complexityDescriptions["standard"]
	}
	if courseID == "" {
		courseID = "general"
	}

	return fmt.Sprintf(`You are an AI tutor for %s learning.

%s

Your role:
- Help students understand concepts
- Guide them through problems step-by-step
- Never give direct answers without explanation
- Encourage critical thinking

Answer in a friendly, supportive tone.
`, courseID, instruction)
}

// CountTokens approximates token usage at ~4 characters per token. The usage
// numbers reported by the API are preferred when available.
func CountTokens(text string) int {
	n := len(text) / 4
	if n < 1 {
		n = 1
	}
	return n
}

// MessageHistory replays the session's stored conversation, oldest first,
// capped at the context window.
func (s *ChatService) MessageHistory(sessionID uint) ([]openai.ChatCompletionMessage, error) {
	var stored []models.Message
	if err := s.DB.Where("session_id = ?", sessionID).
		Order("created_at ASC").
		Limit(contextWindow).
		Find(&stored).Error; err != nil {
		return nil, fmt.Errorf("fetch history: %w", err)
	}

	history := make([]openai.ChatCompletionMessage, 0, len(stored))
	for _, msg := range stored {
		history = append(history, openai.ChatCompletionMessage{
			Role:    string(msg.Role),
			Content: msg.Content,
		})
	}
	return history, nil
}

// ChatResult is the outcome of a completed (non-streaming) exchange.
type ChatResult struct {
	SessionID uint   `json:"session_id"`
	MessageID uint   `json:"message_id"`
	Content   string `json:"content"`
	Tokens    int    `json:"tokens"`
	LatencyMs int    `json:"latency_ms"`
}

// StreamChunk is one SSE frame of a streamed reply. Content accumulates the
// full reply so far; Delta carries only the new piece.
type StreamChunk struct {
	SessionID uint   `json:"session_id"`
	Content   string `json:"content"`
	Delta     string `json:"delta"`
	Finished  bool   `json:"finished"`
}

func (s *ChatService) buildRequest(session *models.Session, userMessage, complexity string, stream bool) (openai.ChatCompletionRequest, error) {
	history, err := s.MessageHistory(session.ID)
	if err != nil {
		return openai.ChatCompletionRequest{}, err
	}

	messages := make([]openai.ChatCompletionMessage, 0, len(history)+2)
	messages = append(messages, openai.ChatCompletionMessage{
		Role:    openai.ChatMessageRoleSystem,
		Content: s.BuildSystemPrompt(session.CourseID, complexity),
	})
	messages = append(messages, history...)
	messages = append(messages, openai.ChatCompletionMessage{
		Role:    openai.ChatMessageRoleUser,
		Content: userMessage,
	})

	return openai.ChatCompletionRequest{
		Model:       s.model,
		Messages:    messages,
		Temperature: 0.7,
		MaxTokens:   2000,
		Stream:      stream,
	}, nil
}

// Chat sends one message and waits for the full reply, persisting both sides
// of the exchange.
func (s *ChatService) Chat(ctx context.Context, session *models.Session, userMessage, complexity string) (*ChatResult, error) {
	if s.client == nil {
		return nil, ErrChatNotConfigured
	}

	req, err := s.buildRequest(session, userMessage, complexity, false)
	if err != nil {
		return nil, err
	}

	start := time.Now()
	resp, err := s.client.CreateChatCompletion(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("chat completion: %w", err)
	}
	if len(resp.Choices) == 0 {
		return nil, errors.New("no choices in chat response")
	}

	content := resp.Choices[0].Message.Content
	latency := int(time.Since(start).Milliseconds())
	tokens := resp.Usage.CompletionTokens
	if tokens == 0 {
		tokens = CountTokens(content)
	}

	assistantMsg, err := s.persistExchange(session, userMessage, content, tokens, latency)
	if err != nil {
		return nil, err
	}

	return &ChatResult{
		SessionID: session.ID,
		MessageID: assistantMsg.ID,
		Content:   content,
		Tokens:    tokens,
		LatencyMs: latency,
	}, nil
}

// ChatStream sends one message and invokes onChunk for each delta as it
// arrives, then a final chunk with Finished set. The exchange is persisted
// once the stream completes.
func (s *ChatService) ChatStream(ctx context.Context, session *models.Session, userMessage, complexity string, onChunk func(StreamChunk) error) error {
	if s.client == nil {
		return ErrChatNotConfigured
	}

	req, err := s.buildRequest(session, userMessage, complexity, true)
	if err != nil {
		return err
	}

	start := time.Now()
	stream, err := s.client.CreateChatCompletionStream(ctx, req)
	if err != nil {
		return fmt.Errorf("chat stream: %w", err)
	}
	defer stream.Close()

	var content string
	for {
		resp, recvErr := stream.Recv()
		if errors.Is(recvErr, io.EOF) {
			break
		}
		if recvErr != nil {
			return fmt.Errorf("chat stream recv: %w", recvErr)
		}
		if len(resp.Choices) == 0 {
			continue
		}

		delta := resp.Choices[0].Delta.Content
		if delta == "" {
			continue
		}
		content += delta
		if err := onChunk(StreamChunk{
			SessionID: session.ID,
			Content:   content,
			Delta:     delta,
		}); err != nil {
			return err
		}
	}

	latency := int(time.Since(start).Milliseconds())
	if _, err := s.persistExchange(session, userMessage, content, CountTokens(content), latency); err != nil {
		return err
	}

	return onChunk(StreamChunk{
		SessionID: session.ID,
		Content:   content,
		Finished:  true,
	})
}

// persistExchange saves the user and assistant messages and bumps the
// student's last-active timestamp.
func (s *ChatService) persistExchange(session *models.Session, userMessage, reply string, tokens, latencyMs int) (*models.Message, error) {
	userMsg := models.Message{
		SessionID: session.ID,
		Role:      models.RoleUser,
		Content:   userMessage,
		Tokens:    CountTokens(userMessage),
	}
	if err := s.DB.Create(&userMsg).Error; err != nil {
		return nil, fmt.Errorf("save user message: %w", err)
	}

	assistantMsg := models.Message{
		SessionID: session.ID,
		Role:      models.RoleAssistant,
		Content:   reply,
		Tokens:    tokens,
		LatencyMs: latencyMs,
	}
	if err := s.DB.Create(&assistantMsg).Error; err != nil {
		return nil, fmt.Errorf("save assistant message: %w", err)
	}

	now := time.Now().UTC()
	if err := s.DB.Model(&models.Student{}).
		Where("id = ?", session.StudentID).
		Update("last_active", now).Error; err != nil {
		return nil, fmt.Errorf("update last active: %w", err)
	}

	return &assistantMsg, nil
}
