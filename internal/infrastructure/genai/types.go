package genai

import "encoding/json"

// Wire types for the Gemini Live bidirectional streaming protocol
// (BidiGenerateContent over WebSocket).

type Schema struct {
	Type        string            `json:"type"`
	Description string            `json:"description,omitempty"`
	Properties  map[string]Schema `json:"properties,omitempty"`
	Required    []string          `json:"required,omitempty"`
}

type FunctionDeclaration struct {
	Name        string `json:"name"`
	Description string `json:"description"`
	Parameters  Schema `json:"parameters"`
}

type tool struct {
	FunctionDeclarations []FunctionDeclaration `json:"functionDeclarations"`
}

type part struct {
	Text       string      `json:"text,omitempty"`
	InlineData *inlineData `json:"inlineData,omitempty"`
}

type inlineData struct {
	MimeType string `json:"mimeType"`
	Data     string `json:"data"` // base64
}

type content struct {
	Parts []part `json:"parts"`
}

type setupMessage struct {
	Setup setupPayload `json:"setup"`
}

type setupPayload struct {
	Model             string           `json:"model"`
	GenerationConfig  generationConfig `json:"generationConfig"`
	SystemInstruction *content         `json:"systemInstruction,omitempty"`
	Tools             []tool           `json:"tools,omitempty"`
}

type generationConfig struct {
	ResponseModalities []string `json:"responseModalities"`
}

type realtimeInputMessage struct {
	RealtimeInput realtimeInput `json:"realtimeInput"`
}

type realtimeInput struct {
	MediaChunks []inlineData `json:"mediaChunks"`
}

type clientContentMessage struct {
	ClientContent clientContent `json:"clientContent"`
}

type clientContent struct {
	Turns        []content `json:"turns,omitempty"`
	TurnComplete bool      `json:"turnComplete"`
}

type toolResponseMessage struct {
	ToolResponse toolResponse `json:"toolResponse"`
}

type toolResponse struct {
	FunctionResponses []FunctionResponse `json:"functionResponses"`
}

// FunctionResponse carries a tool result back upstream, keyed by the id of
// the originating call so the model can correlate it.
type FunctionResponse struct {
	ID       string                 `json:"id,omitempty"`
	Name     string                 `json:"name"`
	Response map[string]interface{} `json:"response"`
}

// FunctionCall is a model-requested tool invocation.
type FunctionCall struct {
	ID   string                 `json:"id"`
	Name string                 `json:"name"`
	Args map[string]interface{} `json:"args"`
}

type serverMessage struct {
	SetupComplete *json.RawMessage `json:"setupComplete"`
	ServerContent *serverContent   `json:"serverContent"`
	ToolCall      *toolCall        `json:"toolCall"`
}

type serverContent struct {
	ModelTurn    *content `json:"modelTurn"`
	TurnComplete bool     `json:"turnComplete"`
	Interrupted  bool     `json:"interrupted"`
}

type toolCall struct {
	FunctionCalls []FunctionCall `json:"functionCalls"`
}

// AudioChunk is a decoded piece of model audio output.
type AudioChunk struct {
	MimeType string
	Data     string // base64, forwarded verbatim to the client
}

// ServerEvent is one normalized upstream event, as consumed by the proxy.
type ServerEvent struct {
	SetupComplete bool
	Interrupted   bool
	TurnComplete  bool
	Audio         []AudioChunk
	ToolCalls     []FunctionCall
}
