package handlers

import (
	"encoding/json"
	"fmt"
	"net/http"

	goopenai "github.com/sashabaranov/go-openai"
	"github.com/rs/zerolog"

	"github.com/fasttodo/fasttodo/internal/api/v1/middleware"
	"github.com/fasttodo/fasttodo/internal/infrastructure/openai"
	"github.com/fasttodo/fasttodo/internal/metrics"
	"github.com/fasttodo/fasttodo/pkg/httpext"
)

// AIHandler serves the non-streaming text assistant route.
type AIHandler struct {
	assistant *openai.Service
}

func NewAIHandler(assistant *openai.Service) *AIHandler {
	return &AIHandler{assistant: assistant}
}

type voiceRequest struct {
	Prompt  string                 `json:"prompt" validate:"required,min=1,max=4096"`
	Context map[string]interface{} `json:"context"`
}

type voiceResponse struct {
	Response   string `json:"response"`
	TokensUsed int    `json:"tokens_used"`
}

func (h *AIHandler) Voice(w http.ResponseWriter, r *http.Request) {
	identity := middleware.GetIdentity(r)
	if identity == nil {
		httpext.JsonChallenge(w, "Missing token")
		return
	}

	if h.assistant == nil {
		httpext.JsonError(w, "AI service not configured", http.StatusServiceUnavailable)
		return
	}

	var req voiceRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httpext.JsonError(w, "Invalid request body", http.StatusBadRequest)
		return
	}
	if err := validate.Struct(req); err != nil {
		httpext.JsonError(w, "Validation failed: "+err.Error(), http.StatusUnprocessableEntity)
		return
	}

	prompt := req.Prompt
	if len(req.Context) > 0 {
		ctxJSON, err := json.Marshal(req.Context)
		if err == nil {
			prompt = fmt.Sprintf("Context: %s\n\n%s", ctxJSON, req.Prompt)
		}
	}

	resp, err := h.assistant.GetClient().CreateChatCompletion(r.Context(), goopenai.ChatCompletionRequest{
		Model: h.assistant.Model(),
		Messages: []goopenai.ChatCompletionMessage{
			{Role: goopenai.ChatMessageRoleUser, Content: prompt},
		},
	})
	if err != nil {
		zerolog.Ctx(r.Context()).Error().Err(err).Msg("Assistant completion failed")
		metrics.AIRequestsTotal.WithLabelValues("error").Inc()
		metrics.AIErrorsTotal.WithLabelValues("completion_error").Inc()
		httpext.JsonError(w, "AI service error", http.StatusBadGateway)
		return
	}

	if len(resp.Choices) == 0 {
		metrics.AIRequestsTotal.WithLabelValues("error").Inc()
		httpext.JsonError(w, "AI service returned no output", http.StatusBadGateway)
		return
	}

	metrics.AIRequestsTotal.WithLabelValues("success").Inc()
	httpext.JsonResponse(w, http.StatusOK, voiceResponse{
		Response:   resp.Choices[0].Message.Content,
		TokensUsed: resp.Usage.TotalTokens,
	})
}
