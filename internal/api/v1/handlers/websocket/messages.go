package websocket

// Client-to-server control messages. Unknown types are ignored so newer
// clients keep working against older servers.
type clientMessage struct {
	Type  string         `json:"type"`
	Token string         `json:"token,omitempty"`
	Data  string         `json:"data,omitempty"` // base64 PCM audio
	Todos []TodoSnapshot `json:"todos,omitempty"`
}

// TodoSnapshot is one entry of the client-pushed todo mirror. The mirror is
// a cache for tool-call fuzzy matching, not an authoritative copy.
type TodoSnapshot struct {
	ID          string `json:"id"`
	Title       string `json:"title"`
	Description string `json:"description"`
	Priority    string `json:"priority"`
	DueDate     any    `json:"due_date"`
}

type connectedMessage struct {
	Type string `json:"type"`
}

type audioMessage struct {
	Type     string `json:"type"`
	Data     string `json:"data"`
	MimeType string `json:"mime_type"`
}

type errorMessage struct {
	Type    string `json:"type"`
	Message string `json:"message"`
}

type actionMessage struct {
	Type   string         `json:"type"`
	Action string         `json:"action"`
	Data   map[string]any `json:"data"`
}

type toolResultMessage struct {
	Type   string         `json:"type"`
	Name   string         `json:"name"`
	Result map[string]any `json:"result"`
}
