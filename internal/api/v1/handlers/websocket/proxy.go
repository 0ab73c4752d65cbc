package websocket

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"

	"github.com/fasttodo/fasttodo/internal/infrastructure/genai"
	"github.com/fasttodo/fasttodo/internal/metrics"
)

const (
	pongWait   = 60 * time.Second
	pingPeriod = 54 * time.Second
	writeWait  = 10 * time.Second
)

// Upstream is the provider-facing side of the proxy. *genai.LiveSession
// implements it; tests substitute a fake.
type Upstream interface {
	SendAudio(ctx context.Context, data string) error
	EndTurn(ctx context.Context) error
	SendToolResponses(ctx context.Context, responses []genai.FunctionResponse) error
	Receive(ctx context.Context) (*genai.ServerEvent, error)
	Close() error
}

// Proxy relays one authenticated client WebSocket against one upstream live
// session. The two forwarding loops share the todo mirror behind a mutex
// and the running flag and counters as atomics; the source system leaned on
// cooperative scheduling for this, goroutines cannot.
type Proxy struct {
	conn     *websocket.Conn
	upstream Upstream
	userID   string
	username string

	writeMu sync.Mutex
	todosMu sync.Mutex
	todos   []TodoSnapshot

	running        atomic.Bool
	inputMessages  atomic.Int64
	outputMessages atomic.Int64

	startTime time.Time
	closeOnce sync.Once
	stopOnce  sync.Once
}

func NewProxy(conn *websocket.Conn, upstream Upstream, userID, username string) *Proxy {
	return &Proxy{
		conn:     conn,
		upstream: upstream,
		userID:   userID,
		username: username,
	}
}

// Run notifies the client and pumps both directions until either side
// terminates. It returns once the session is over; Stop still must be
// called for teardown telemetry.
func (p *Proxy) Run(ctx context.Context) {
	p.running.Store(true)
	p.startTime = time.Now()

	if err := p.sendClient(connectedMessage{Type: "connected"}); err != nil {
		p.running.Store(false)
		return
	}
	metrics.AIRequestsTotal.WithLabelValues("success").Inc()

	errChan := make(chan error, 2)

	go func() { errChan <- p.clientToUpstream(ctx) }()
	go func() { errChan <- p.upstreamToClient(ctx) }()

	go p.pingLoop()

	// First loop to exit ends the session; closing both handles unblocks
	// the other loop.
	<-errChan
	p.closeBoth()
	<-errChan
}

// Todos returns a copy of the current mirror.
func (p *Proxy) Todos() []TodoSnapshot {
	p.todosMu.Lock()
	defer p.todosMu.Unlock()
	return append([]TodoSnapshot(nil), p.todos...)
}

func (p *Proxy) clientToUpstream(ctx context.Context) error {
	defer p.running.Store(false)

	p.conn.SetReadDeadline(time.Now().Add(pongWait))
	p.conn.SetPongHandler(func(string) error {
		return p.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for p.running.Load() {
		var msg clientMessage
		if err := p.conn.ReadJSON(&msg); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				log.Debug().Err(err).Str("username", p.username).Msg("Client connection lost")
			}
			return err
		}
		p.conn.SetReadDeadline(time.Now().Add(pongWait))

		switch msg.Type {
		case "audio":
			if msg.Data == "" {
				continue
			}
			p.inputMessages.Add(1)
			if err := p.upstream.SendAudio(ctx, msg.Data); err != nil {
				return err
			}

		case "end_turn":
			if err := p.upstream.EndTurn(ctx); err != nil {
				return err
			}

		case "todos_update":
			// Last write wins; no merging with the previous mirror.
			p.todosMu.Lock()
			p.todos = msg.Todos
			p.todosMu.Unlock()
			log.Debug().Int("count", len(msg.Todos)).Str("username", p.username).Msg("Todo mirror replaced")

		default:
			// Unknown message kinds are ignored for forward compatibility.
		}
	}
	return nil
}

func (p *Proxy) upstreamToClient(ctx context.Context) error {
	defer p.running.Store(false)

	for p.running.Load() {
		event, err := p.upstream.Receive(ctx)
		if err != nil {
			return err
		}

		if event.Interrupted {
			// The model can resume after an interruption; the loop keeps going.
			if err := p.sendClient(map[string]string{"type": "interrupted"}); err != nil {
				return err
			}
			continue
		}

		for _, chunk := range event.Audio {
			p.outputMessages.Add(1)
			if err := p.sendClient(audioMessage{Type: "audio", Data: chunk.Data, MimeType: chunk.MimeType}); err != nil {
				return err
			}
		}

		if event.TurnComplete {
			if err := p.sendClient(map[string]string{"type": "turn_complete"}); err != nil {
				return err
			}
		}

		for _, call := range event.ToolCalls {
			if err := p.dispatchToolCall(ctx, call); err != nil {
				return err
			}
		}
	}
	return nil
}

// dispatchToolCall runs one tool call and delivers its result to both
// sides: the upstream response keyed by call id keeps the model's context
// intact, the client tool_result lets the UI reflect the outcome.
func (p *Proxy) dispatchToolCall(ctx context.Context, call genai.FunctionCall) error {
	var result map[string]any
	var action *ClientAction

	kind, known := ParseToolKind(call.Name)
	if !known {
		log.Warn().Str("tool", call.Name).Msg("Model requested unknown tool")
		result = errorResult("Unknown tool: " + call.Name)
	} else {
		result, action = ExecuteTool(kind, call.Args, p.Todos())
	}

	log.Info().Str("tool", call.Name).Interface("result", result).Msg("Executed tool call")

	if action != nil {
		if err := p.sendClient(actionMessage{Type: "action", Action: action.Action, Data: action.Data}); err != nil {
			return err
		}
	}

	if err := p.upstream.SendToolResponses(ctx, []genai.FunctionResponse{{
		ID:       call.ID,
		Name:     call.Name,
		Response: map[string]any{"result": result},
	}}); err != nil {
		return err
	}

	return p.sendClient(toolResultMessage{Type: "tool_result", Name: call.Name, Result: result})
}

func (p *Proxy) sendClient(v interface{}) error {
	p.writeMu.Lock()
	defer p.writeMu.Unlock()
	p.conn.SetWriteDeadline(time.Now().Add(writeWait))
	return p.conn.WriteJSON(v)
}

func (p *Proxy) pingLoop() {
	ticker := time.NewTicker(pingPeriod)
	defer ticker.Stop()

	for range ticker.C {
		if !p.running.Load() {
			return
		}
		if err := p.conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(writeWait)); err != nil {
			return
		}
	}
}

func (p *Proxy) closeBoth() {
	p.closeOnce.Do(func() {
		p.conn.Close()
		if p.upstream != nil {
			// Close-time failures never block teardown.
			_ = p.upstream.Close()
		}
	})
}

// Stop finalizes the session: flips the running flag, records usage
// telemetry, and closes the upstream handle.
func (p *Proxy) Stop() {
	p.stopOnce.Do(func() {
		p.running.Store(false)

		input := p.inputMessages.Load()
		output := p.outputMessages.Load()

		if !p.startTime.IsZero() {
			duration := time.Since(p.startTime)
			metrics.AILatencySeconds.Observe(duration.Seconds())

			if input > 0 {
				metrics.AIMessagesTotal.WithLabelValues("input").Add(float64(input))
			}
			if output > 0 {
				metrics.AIMessagesTotal.WithLabelValues("output").Add(float64(output))
			}

			log.Info().
				Str("user_id", p.userID).
				Str("username", p.username).
				Str("endpoint", "/api/ai/voice/stream").
				Float64("duration_seconds", duration.Seconds()).
				Int64("input_messages", input).
				Int64("output_messages", output).
				Msg("AI session usage")
		}

		p.closeBoth()
	})
}
