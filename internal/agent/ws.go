package agent

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"

	"github.com/EternisAI/strategy-bench/pkg/game"
)

// wsFrame is the wire envelope for both directions. The harness sends
// {"type":"observation"} frames; the remote agent answers act frames with
// {"type":"action"}.
type wsFrame struct {
	Type        string            `json:"type"`
	Observation *game.Observation `json:"observation,omitempty"`
	Action      *game.Action      `json:"action,omitempty"`
	Error       string            `json:"error,omitempty"`
}

// WSAgent drives a remote agent over a WebSocket connection. One
// connection serves one seat in one match.
type WSAgent struct {
	name string
	conn *websocket.Conn

	mu     sync.Mutex
	closed bool
}

// DialWS connects to a remote agent endpoint, e.g.
// ws://localhost:9000/agent. The handshake is the connection itself; the
// first observation frame tells the remote which seat it plays.
func DialWS(ctx context.Context, name, url string) (*WSAgent, error) {
	dialer := websocket.Dialer{HandshakeTimeout: 10 * time.Second}
	conn, _, err := dialer.DialContext(ctx, url, nil)
	if err != nil {
		return nil, fmt.Errorf("dial agent %s at %s: %w", name, url, err)
	}
	log.Debug().Str("agent", name).Str("url", url).Msg("WebSocket agent connected")
	return &WSAgent{name: name, conn: conn}, nil
}

func (a *WSAgent) Name() string { return a.name }

// Act sends the observation and blocks for the action frame, honoring the
// context deadline via the connection read deadline.
func (a *WSAgent) Act(ctx context.Context, obs game.Observation) (game.Action, error) {
	if err := a.write(wsFrame{Type: "observation", Observation: &obs}); err != nil {
		return game.Action{}, err
	}

	if deadline, ok := ctx.Deadline(); ok {
		a.conn.SetReadDeadline(deadline)
	} else {
		a.conn.SetReadDeadline(time.Time{})
	}

	for {
		var frame wsFrame
		if err := a.conn.ReadJSON(&frame); err != nil {
			return game.Action{}, fmt.Errorf("agent %s: read action: %w", a.name, err)
		}
		switch frame.Type {
		case "action":
			if frame.Action == nil {
				return game.Action{}, fmt.Errorf("agent %s: action frame without action", a.name)
			}
			act := *frame.Action
			act.Player = obs.Player
			return act, nil
		case "error":
			return game.Action{}, fmt.Errorf("agent %s: remote error: %s", a.name, frame.Error)
		default:
			// Remotes may interleave keepalive or log frames.
			log.Debug().Str("agent", a.name).Str("frame", frame.Type).Msg("Ignoring frame")
		}
	}
}

// Notify forwards a passive observation; the remote does not reply.
func (a *WSAgent) Notify(_ context.Context, obs game.Observation) {
	if err := a.write(wsFrame{Type: "observation", Observation: &obs}); err != nil {
		log.Warn().Err(err).Str("agent", a.name).Msg("Notify failed")
	}
}

func (a *WSAgent) write(frame wsFrame) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.closed {
		return fmt.Errorf("agent %s: connection closed", a.name)
	}
	a.conn.SetWriteDeadline(time.Now().Add(10 * time.Second))
	return a.conn.WriteJSON(frame)
}

// Close sends a close frame and tears down the connection.
func (a *WSAgent) Close() error {
	a.mu.Lock()
	if a.closed {
		a.mu.Unlock()
		return nil
	}
	a.closed = true
	a.mu.Unlock()

	a.conn.WriteControl(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, "match over"),
		time.Now().Add(time.Second))
	return a.conn.Close()
}
