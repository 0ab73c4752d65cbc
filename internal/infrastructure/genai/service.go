package genai

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"

	"github.com/fasttodo/fasttodo/internal/config"
)

// ErrUpstreamUnavailable is returned when the provider is not configured or
// the live connection cannot be established.
var ErrUpstreamUnavailable = errors.New("upstream AI service unavailable")

// Service dials Gemini Live sessions.
type Service struct {
	apiKey            string
	model             string
	endpoint          string
	systemInstruction string
}

func NewService(cfg *config.Config) *Service {
	if cfg.GeminiAPIKey == "" {
		log.Warn().Msg("Gemini Live service not configured - GEMINI_API_KEY missing")
		return nil
	}

	return &Service{
		apiKey:            cfg.GeminiAPIKey,
		model:             cfg.GeminiVoiceModel,
		endpoint:          cfg.GeminiEndpoint,
		systemInstruction: cfg.SystemInstruction,
	}
}

// Connect opens one live session configured for audio-only responses with
// the given tool declarations, and blocks until the upstream acknowledges
// setup.
func (s *Service) Connect(ctx context.Context, declarations []FunctionDeclaration) (*LiveSession, error) {
	url := fmt.Sprintf("%s?key=%s", s.endpoint, s.apiKey)

	conn, resp, err := websocket.DefaultDialer.DialContext(ctx, url, nil)
	if err != nil {
		if resp != nil {
			log.Error().Err(err).Int("status", resp.StatusCode).Msg("Failed to connect to Gemini Live")
		} else {
			log.Error().Err(err).Msg("Failed to connect to Gemini Live")
		}
		return nil, fmt.Errorf("%w: %v", ErrUpstreamUnavailable, err)
	}

	setup := setupMessage{
		Setup: setupPayload{
			Model:            s.model,
			GenerationConfig: generationConfig{ResponseModalities: []string{"AUDIO"}},
			SystemInstruction: &content{
				Parts: []part{{Text: s.systemInstruction}},
			},
			Tools: []tool{{FunctionDeclarations: declarations}},
		},
	}

	session := &LiveSession{conn: conn}
	if err := session.writeJSON(setup); err != nil {
		conn.Close()
		return nil, fmt.Errorf("%w: setup failed: %v", ErrUpstreamUnavailable, err)
	}

	// The first server message acknowledges setup.
	event, err := session.Receive(ctx)
	if err != nil || !event.SetupComplete {
		conn.Close()
		return nil, fmt.Errorf("%w: no setup acknowledgement", ErrUpstreamUnavailable)
	}

	log.Info().Str("model", s.model).Msg("Gemini Live session established")
	return session, nil
}

// LiveSession is one open bidirectional stream. Reads must come from a
// single goroutine; writes are serialized internally because the forwarding
// loops send from both sides of the proxy.
type LiveSession struct {
	conn    *websocket.Conn
	writeMu sync.Mutex
}

func (s *LiveSession) writeJSON(v interface{}) error {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()
	return s.conn.WriteJSON(v)
}

// SendAudio forwards one base64 PCM chunk as a non-terminal turn input.
func (s *LiveSession) SendAudio(_ context.Context, data string) error {
	return s.writeJSON(realtimeInputMessage{
		RealtimeInput: realtimeInput{
			MediaChunks: []inlineData{{MimeType: "audio/pcm", Data: data}},
		},
	})
}

// EndTurn signals that the user's utterance is complete.
func (s *LiveSession) EndTurn(_ context.Context) error {
	return s.writeJSON(clientContentMessage{
		ClientContent: clientContent{TurnComplete: true},
	})
}

// SendToolResponses returns tool results to the model.
func (s *LiveSession) SendToolResponses(_ context.Context, responses []FunctionResponse) error {
	return s.writeJSON(toolResponseMessage{
		ToolResponse: toolResponse{FunctionResponses: responses},
	})
}

// Receive blocks for the next upstream event and normalizes it.
func (s *LiveSession) Receive(_ context.Context) (*ServerEvent, error) {
	_, raw, err := s.conn.ReadMessage()
	if err != nil {
		return nil, err
	}

	var msg serverMessage
	if err := json.Unmarshal(raw, &msg); err != nil {
		return nil, fmt.Errorf("malformed upstream message: %w", err)
	}

	event := &ServerEvent{}
	if msg.SetupComplete != nil {
		event.SetupComplete = true
	}
	if sc := msg.ServerContent; sc != nil {
		event.Interrupted = sc.Interrupted
		event.TurnComplete = sc.TurnComplete
		if sc.ModelTurn != nil {
			for _, p := range sc.ModelTurn.Parts {
				if p.InlineData != nil {
					event.Audio = append(event.Audio, AudioChunk{
						MimeType: p.InlineData.MimeType,
						Data:     p.InlineData.Data,
					})
				}
			}
		}
	}
	if msg.ToolCall != nil {
		event.ToolCalls = msg.ToolCall.FunctionCalls
	}

	return event, nil
}

// Close tears the session down. Safe to call after a read error.
func (s *LiveSession) Close() error {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()
	s.conn.WriteMessage(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
	return s.conn.Close()
}
