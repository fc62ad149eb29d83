package fanout

import (
	"encoding/json"
	"log/slog"
	"sync"
	"time"

	"github.com/Averyy/bridge-up/internal/model"
	"github.com/gorilla/websocket"
)

const (
	writeWait  = 5 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = (pongWait * 9) / 10
	sendBuffer = 32
)

// DataSource answers the initial push a client needs immediately after
// subscribing, per spec.md §4.8's ordering guarantee (ack precedes data).
type DataSource interface {
	Snapshot() *model.Snapshot
	BoatsPayload() model.VesselsPayload
}

// Client is one accepted WebSocket connection plus its subscription set.
type Client struct {
	hub    *Hub
	conn   *websocket.Conn
	source DataSource
	send   chan []byte

	mu            sync.RWMutex
	subscriptions map[string]struct{}
}

// NewClient wraps an accepted connection.
func NewClient(hub *Hub, conn *websocket.Conn, source DataSource) *Client {
	return &Client{
		hub:           hub,
		conn:          conn,
		source:        source,
		send:          make(chan []byte, sendBuffer),
		subscriptions: make(map[string]struct{}),
	}
}

// subscribedTo returns every channel this client has subscribed to whose
// top level matches kind ("bridges" or "boats").
func (c *Client) subscribedTo(kind string) []string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	var out []string
	for ch := range c.subscriptions {
		if top, ok := topLevel(ch); ok && top == kind {
			out = append(out, ch)
		}
	}
	return out
}

// sendFrame enqueues a frame for delivery, dropping the connection instead
// of blocking if the send buffer is full (spec.md §4.8 backpressure policy).
func (c *Client) sendFrame(frame []byte) {
	if frame == nil {
		return
	}
	select {
	case c.send <- frame:
	default:
		slog.Warn("fanout client send buffer full, dropping connection")
		c.conn.Close()
	}
}

// ReadPump reads subscribe requests until the connection closes.
func (c *Client) ReadPump() {
	defer func() {
		c.hub.Unregister(c)
		close(c.send)
		c.conn.Close()
	}()

	c.conn.SetReadLimit(4096)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		_, data, err := c.conn.ReadMessage()
		if err != nil {
			return
		}
		c.handleMessage(data)
	}
}

// WritePump drains the send buffer to the socket and keeps the connection
// alive with periodic pings.
func (c *Client) WritePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case frame, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, frame); err != nil {
				return
			}
		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// Close sends a close frame with a shutdown reason and waits briefly for
// the write to flush (spec.md §5 cancellation semantics).
func (c *Client) Close(reason string) {
	c.conn.SetWriteDeadline(time.Now().Add(writeWait))
	msg := websocket.FormatCloseMessage(websocket.CloseGoingAway, reason)
	c.conn.WriteMessage(websocket.CloseMessage, msg)
}

func (c *Client) handleMessage(data []byte) {
	var msg SubscribeMessage
	if err := json.Unmarshal(data, &msg); err != nil || msg.Action != "subscribe" {
		return
	}

	valid := make([]string, 0, len(msg.Channels))
	for _, ch := range msg.Channels {
		if _, ok := topLevel(ch); ok {
			valid = append(valid, ch)
		}
	}

	c.mu.Lock()
	c.subscriptions = make(map[string]struct{}, len(valid))
	for _, ch := range valid {
		c.subscriptions[ch] = struct{}{}
	}
	c.mu.Unlock()

	ack, err := newSubscribedFrame(valid)
	if err != nil {
		slog.Error("marshal subscribed ack", "error", err)
		return
	}
	c.sendFrame(ack)

	c.pushInitial(valid)
}

// pushInitial sends the current snapshot/payload for each newly subscribed
// top-level channel, immediately after the subscribe acknowledgement.
func (c *Client) pushInitial(channels []string) {
	wantBridges, wantBoats := false, false
	var bridgeChannels, boatChannels []string
	for _, ch := range channels {
		top, _ := topLevel(ch)
		switch top {
		case "bridges":
			wantBridges = true
			bridgeChannels = append(bridgeChannels, ch)
		case "boats":
			wantBoats = true
			boatChannels = append(boatChannels, ch)
		}
	}

	if wantBridges {
		snap := c.source.Snapshot()
		for _, ch := range bridgeChannels {
			if ch == "bridges" {
				c.sendFrame(mustDataFrame("bridges", snap))
				continue
			}
			region := ch[len("bridges:"):]
			c.sendFrame(mustDataFrame("bridges", filterSnapshotByRegionShort(snap, region)))
		}
	}

	if wantBoats {
		payload := c.source.BoatsPayload()
		for _, ch := range boatChannels {
			if ch == "boats" {
				c.sendFrame(mustDataFrame("boats", payload))
				continue
			}
			region := ch[len("boats:"):]
			c.sendFrame(mustDataFrame("boats", filterVesselsByRegion(payload, model.Region(region))))
		}
	}
}
