package transport

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"time"

	"github.com/gorilla/websocket"

	"github.com/tonktable/tonkd/internal/deck"
	"github.com/tonktable/tonkd/internal/rules"
	"github.com/tonktable/tonkd/internal/table"
)

const (
	readTimeout  = 60 * time.Second
	pingInterval = 54 * time.Second
	writeTimeout = 10 * time.Second
	sendBuffer   = 64
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  4096,
	WriteBufferSize: 4096,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

// Client is one authenticated player's websocket connection. userID comes
// from the external JWT-validation layer (out of scope here, per §1) and
// is trusted as-is; tableID is learned from the first joinTable event the
// connection sends and fixed for the connection's lifetime, mirroring the
// one-room-per-connection shape in the netrek-web and caslette reference
// servers.
type Client struct {
	conn *websocket.Conn
	hub  *Hub
	reg  *table.Registry

	userID  string
	tableID string

	send chan ServerMessage
}

// ServeWS upgrades r into a websocket connection and spins up its
// read/write pumps. userID is supplied by the HTTP layer after JWT
// validation.
func ServeWS(hub *Hub, reg *table.Registry, userID string, w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("transport: upgrade error: %v", err)
		return
	}

	c := &Client{
		conn:   conn,
		hub:    hub,
		reg:    reg,
		userID: userID,
		send:   make(chan ServerMessage, sendBuffer),
	}

	go c.writePump()
	go c.readPump()
}

func (c *Client) readPump() {
	defer func() {
		c.conn.Close()
		if c.tableID != "" {
			c.hub.Leave(c.tableID, c)
			if t, ok := c.reg.Get(c.tableID); ok {
				_ = t.Disconnect(context.Background(), c.userID)
			}
		}
	}()

	c.conn.SetReadLimit(8192)
	c.conn.SetReadDeadline(time.Now().Add(readTimeout))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(readTimeout))
		return nil
	})

	for {
		var msg ClientMessage
		if err := c.conn.ReadJSON(&msg); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				log.Printf("transport: read error for %s: %v", c.userID, err)
			}
			return
		}
		c.handle(msg)
	}
}

func (c *Client) writePump() {
	ticker := time.NewTicker(pingInterval)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case msg, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeTimeout))
			if !ok {
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteJSON(msg); err != nil {
				return
			}
		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeTimeout))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

func (c *Client) fail(message string) {
	select {
	case c.send <- ServerMessage{Type: EventGameError, Data: map[string]any{"message": message}}:
	default:
	}
}

// reportActionError turns a table action failure (Join, Leave, or any
// in-round action) into client feedback per the error taxonomy: Conflict is
// skipped silently (the winning actor already completed the operation), the
// user-facing kinds were already pushed to this same client via the table's
// broadcaster, and everything else — an internal I/O failure — gets a
// generic message rather than leaking the underlying error text.
func (c *Client) reportActionError(err error) {
	switch {
	case errors.Is(err, rules.ErrConflict):
	case errors.Is(err, rules.ErrInsufficientFunds),
		errors.Is(err, rules.ErrIllegalAction),
		errors.Is(err, rules.ErrUnauthorised),
		errors.Is(err, rules.ErrNotFound):
	default:
		c.fail("internal error")
	}
}

func (c *Client) handle(msg ClientMessage) {
	ctx := context.Background()

	switch msg.Type {
	case EventJoinTable:
		var p JoinTablePayload
		if err := json.Unmarshal(msg.Data, &p); err != nil {
			c.fail("malformed joinTable payload")
			return
		}
		c.tableID = p.TableID
		c.userID = p.UserID
		c.hub.Join(p.TableID, c)
		t := c.reg.GetOrCreate(p.TableID)
		if err := t.Join(ctx, p.UserID, p.Username, p.IsAI); err != nil {
			c.reportActionError(err)
		}

	case EventLeaveTable:
		var p LeaveTablePayload
		if err := json.Unmarshal(msg.Data, &p); err != nil {
			c.fail("malformed leaveTable payload")
			return
		}
		if t, ok := c.reg.Get(p.TableID); ok {
			if err := t.Leave(ctx, p.UserID); err != nil {
				c.reportActionError(err)
			}
		}
		c.hub.Leave(p.TableID, c)

	case EventRequestLeaveTable:
		var p RequestLeaveTablePayload
		if err := json.Unmarshal(msg.Data, &p); err != nil {
			c.fail("malformed requestLeaveTable payload")
			return
		}
		c.withTable(p.TableID, func(t *table.Table) error {
			return t.RequestLeaveAfterRound(ctx, p.UserID)
		})

	case EventDrawCard:
		var p DrawCardPayload
		if err := json.Unmarshal(msg.Data, &p); err != nil {
			c.fail("malformed drawCard payload")
			return
		}
		c.withTable(p.TableID, func(t *table.Table) error {
			return t.Draw(ctx, p.UserID, rules.DrawSource(p.Source))
		})

	case EventDiscardCard:
		var p DiscardCardPayload
		if err := json.Unmarshal(msg.Data, &p); err != nil {
			c.fail("malformed discardCard payload")
			return
		}
		var card deck.Card
		if err := json.Unmarshal(p.Card, &card); err != nil {
			c.fail("malformed card")
			return
		}
		c.withTable(p.TableID, func(t *table.Table) error {
			return t.Discard(ctx, p.UserID, card)
		})

	case EventSpread:
		var p SpreadPayload
		if err := json.Unmarshal(msg.Data, &p); err != nil {
			c.fail("malformed spread payload")
			return
		}
		cards := make([]deck.Card, 0, len(p.Cards))
		for _, raw := range p.Cards {
			var card deck.Card
			if err := json.Unmarshal(raw, &card); err != nil {
				c.fail("malformed card in spread")
				return
			}
			cards = append(cards, card)
		}
		c.withTable(p.TableID, func(t *table.Table) error {
			return t.Spread(ctx, p.UserID, cards)
		})

	case EventHit:
		var p HitPayload
		if err := json.Unmarshal(msg.Data, &p); err != nil {
			c.fail("malformed hit payload")
			return
		}
		var card deck.Card
		if err := json.Unmarshal(p.Card, &card); err != nil {
			c.fail("malformed card")
			return
		}
		c.withTable(p.TableID, func(t *table.Table) error {
			return t.Hit(ctx, p.UserID, card, p.TargetPlayerID, p.TargetSpreadIndex)
		})

	case EventDrop:
		var p DropPayload
		if err := json.Unmarshal(msg.Data, &p); err != nil {
			c.fail("malformed drop payload")
			return
		}
		c.withTable(p.TableID, func(t *table.Table) error {
			return t.Drop(ctx, p.UserID)
		})

	case EventRequestInitialGameState:
		var p RequestInitialGameStatePayload
		if err := json.Unmarshal(msg.Data, &p); err != nil {
			c.fail("malformed requestInitialGameState payload")
			return
		}
		if t, ok := c.reg.Get(p.TableID); ok {
			t.SendInitialState(ctx, c.userID)
		}

	default:
		c.fail("unknown event type: " + msg.Type)
	}
}

// withTable looks up tableID and runs fn against it, surfacing a missing
// table as a gameError rather than a silent no-op — every action event
// after joinTable expects the table to already exist.
func (c *Client) withTable(tableID string, fn func(t *table.Table) error) {
	t, ok := c.reg.Get(tableID)
	if !ok {
		c.fail("no such table: " + tableID)
		return
	}
	if err := fn(t); err != nil {
		log.Printf("transport: action error for %s at %s: %v", c.userID, tableID, err)
		c.reportActionError(err)
	}
}
