package main

import (
	"encoding/json"
	"fmt"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/gorilla/websocket"

	"github.com/tonktable/tonkd/internal/rules"
	"github.com/tonktable/tonkd/internal/transport"
)

// logLine is one rendered entry in the scrollback.
type logLine struct {
	at      time.Time
	message string
}

// serverEventMsg wraps an inbound transport.ServerMessage for bubbletea's
// Update loop; pump forwards every frame it reads off the websocket as one
// of these.
type serverEventMsg transport.ServerMessage

// connClosedMsg signals the read loop ended, normally the process exiting.
type connClosedMsg struct{ err error }

type model struct {
	conn    *websocket.Conn
	tableID string
	userID  string

	state *rules.GameState
	log   []logLine
	err   error
}

func newModel(conn *websocket.Conn, tableID, userID string) *model {
	return &model{conn: conn, tableID: tableID, userID: userID}
}

// pump runs in its own goroutine for the connection's lifetime, relaying
// every server message into the bubbletea program as a serverEventMsg.
// Grounded on the teacher's cmd/client/main.go background notification
// goroutine feeding tea.Program.Send.
func (m *model) pump(p *tea.Program) {
	join := transport.JoinTablePayload{TableID: m.tableID, UserID: m.userID, Username: "(observer)"}
	data, _ := json.Marshal(join)
	_ = m.conn.WriteJSON(transport.ClientMessage{Type: transport.EventJoinTable, Data: data})

	req := transport.RequestInitialGameStatePayload{TableID: m.tableID}
	data, _ = json.Marshal(req)
	_ = m.conn.WriteJSON(transport.ClientMessage{Type: transport.EventRequestInitialGameState, Data: data})

	for {
		var msg transport.ServerMessage
		if err := m.conn.ReadJSON(&msg); err != nil {
			p.Send(connClosedMsg{err: err})
			return
		}
		p.Send(serverEventMsg(msg))
	}
}

func (m *model) Init() tea.Cmd {
	return nil
}

func (m *model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "ctrl+c", "q":
			return m, tea.Quit
		}

	case serverEventMsg:
		m.applyEvent(transport.ServerMessage(msg))

	case connClosedMsg:
		m.err = msg.err
		return m, tea.Quit
	}
	return m, nil
}

// applyEvent decodes msg.Data according to msg.Type and folds it into the
// model, appending a log line for every event regardless of whether it
// also updates state — the log is the point of a debug observer.
func (m *model) applyEvent(msg transport.ServerMessage) {
	raw, err := json.Marshal(msg.Data)
	if err != nil {
		m.appendLog(fmt.Sprintf("<%s: unmarshalable payload>", msg.Type))
		return
	}

	switch msg.Type {
	case transport.EventInitialGameState, transport.EventGameStateUpdate:
		var payload struct {
			GameState *rules.GameState `json:"gameState"`
		}
		if err := json.Unmarshal(raw, &payload); err == nil && payload.GameState != nil {
			m.state = payload.GameState
		}
		m.appendLog(fmt.Sprintf("%s: turn %d, status %s", msg.Type, stateOrZeroTurn(m.state), stateOrEmptyStatus(m.state)))

	case transport.EventTableUpdate:
		var payload struct {
			Message string `json:"message"`
		}
		_ = json.Unmarshal(raw, &payload)
		m.appendLog("table: " + payload.Message)

	case transport.EventWalletBalanceUpdate:
		var payload struct {
			UserID  string `json:"userId"`
			Balance int64  `json:"balance"`
		}
		_ = json.Unmarshal(raw, &payload)
		m.appendLog(fmt.Sprintf("wallet: %s -> %d", payload.UserID, payload.Balance))

	case transport.EventPlayerLeft:
		var payload struct {
			UserID string `json:"userId"`
		}
		_ = json.Unmarshal(raw, &payload)
		m.appendLog("left: " + payload.UserID)

	case transport.EventGameError:
		var payload struct {
			Message string `json:"message"`
		}
		_ = json.Unmarshal(raw, &payload)
		m.appendLog("error: " + payload.Message)

	case transport.EventAckLeaveRequest:
		m.appendLog("ack: leave request recorded")

	default:
		m.appendLog("unknown event: " + msg.Type)
	}
}

func stateOrZeroTurn(g *rules.GameState) uint64 {
	if g == nil {
		return 0
	}
	return g.Turn
}

func stateOrEmptyStatus(g *rules.GameState) rules.Status {
	if g == nil {
		return ""
	}
	return g.Status
}

const maxLogLines = 200

func (m *model) appendLog(line string) {
	m.log = append(m.log, logLine{at: time.Now(), message: line})
	if len(m.log) > maxLogLines {
		m.log = m.log[len(m.log)-maxLogLines:]
	}
}
