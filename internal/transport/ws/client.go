package ws

import (
	"context"
	"encoding/json"
	"log"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/time/rate"
	"nhooyr.io/websocket"
	"nhooyr.io/websocket/wsjson"

	"github.com/djassa/djassa-backend/internal/thread"
)

const (
	writeWait    = 10 * time.Second
	pingInterval = 30 * time.Second
	sendBufSize  = 256

	// Outbound message rate per connection.
	sendRate  = rate.Limit(2)
	sendBurst = 10
)

// Client is a single WebSocket connection. Each client owns a thread.Watcher,
// so it has at most one live conversation session; opening another thread
// tears the previous session down first.
type Client struct {
	conn    *websocket.Conn
	userID  uuid.UUID
	watcher *thread.Watcher
	limiter *rate.Limiter

	send      chan []byte
	done      chan struct{}
	closeOnce sync.Once
}

func NewClient(conn *websocket.Conn, userID uuid.UUID, watcher *thread.Watcher) *Client {
	return &Client{
		conn:    conn,
		userID:  userID,
		watcher: watcher,
		limiter: rate.NewLimiter(sendRate, sendBurst),
		send:    make(chan []byte, sendBufSize),
		done:    make(chan struct{}),
	}
}

// ReadPump reads events from the WebSocket and dispatches them.
func (c *Client) ReadPump() {
	defer func() {
		c.close()
		c.conn.Close(websocket.StatusNormalClosure, "")
	}()

	for {
		var event Event
		err := wsjson.Read(context.Background(), c.conn, &event)
		if err != nil {
			if websocket.CloseStatus(err) != -1 {
				log.Printf("ws: client %s disconnected", c.userID)
			} else {
				log.Printf("ws: read error from %s: %v", c.userID, err)
			}
			return
		}

		c.handleEvent(&event)
	}
}

// WritePump writes messages from the send channel to the WebSocket.
func (c *Client) WritePump() {
	ticker := time.NewTicker(pingInterval)
	defer func() {
		ticker.Stop()
		c.conn.Close(websocket.StatusNormalClosure, "")
	}()

	for {
		select {
		case message := <-c.send:
			ctx, cancel := context.WithTimeout(context.Background(), writeWait)
			err := c.conn.Write(ctx, websocket.MessageText, message)
			cancel()
			if err != nil {
				log.Printf("ws: write error to %s: %v", c.userID, err)
				return
			}

		case <-ticker.C:
			ctx, cancel := context.WithTimeout(context.Background(), writeWait)
			err := c.conn.Ping(ctx)
			cancel()
			if err != nil {
				log.Printf("ws: ping error to %s: %v", c.userID, err)
				return
			}

		case <-c.done:
			return
		}
	}
}

func (c *Client) handleEvent(event *Event) {
	switch event.Type {
	case EventTypeThreadOpen:
		var p ThreadOpenPayload
		if err := json.Unmarshal(event.Payload, &p); err != nil {
			c.sendError("INVALID_PAYLOAD", "invalid thread.open payload")
			return
		}
		session, err := c.watcher.Switch(context.Background(), p.CounterpartID, p.ProductID)
		if err != nil {
			c.sendError("INVALID_THREAD", err.Error())
			return
		}
		log.Printf("ws: %s opened thread %s", c.userID, session.Key())
		go c.forward(session)

	case EventTypeThreadClose:
		c.watcher.Close()

	case EventTypeMessageSend:
		var p MessageSendPayload
		if err := json.Unmarshal(event.Payload, &p); err != nil {
			c.sendError("INVALID_PAYLOAD", "invalid message.send payload")
			return
		}
		if !c.limiter.Allow() {
			c.sendError("RATE_LIMITED", "too many messages, slow down")
			return
		}
		session := c.watcher.Current()
		if session == nil {
			c.sendError("NO_THREAD", "open a thread before sending")
			return
		}
		// Off the read pump: the insert hits the database.
		go func() {
			ctx, cancel := context.WithTimeout(context.Background(), writeWait)
			defer cancel()
			if _, err := session.Send(ctx, p.Content, p.Media, p.ProductID); err != nil {
				log.Printf("ws: send from %s failed: %v", c.userID, err)
				c.sendError("SEND_FAILED", "message could not be delivered")
			}
		}()

	case EventTypePing:
		c.sendPong()

	default:
		c.sendError("UNKNOWN_EVENT", "unknown event type: "+event.Type)
	}
}

// forward streams session events to the connection until the session closes.
func (c *Client) forward(session *thread.Session) {
	for evt := range session.Events() {
		var (
			out *Event
			err error
		)
		switch evt.Type {
		case thread.EventHistory:
			out, err = NewEvent(EventTypeThreadHistory, ThreadHistoryPayload{
				ThreadKey: evt.ThreadKey,
				Messages:  evt.Messages,
			})
		case thread.EventMessage:
			out, err = NewEvent(EventTypeMessageNew, MessageNewPayload{
				ThreadKey: evt.ThreadKey,
				Message:   *evt.Message,
			})
		default:
			continue
		}
		if err != nil {
			log.Printf("ws: marshal error: %v", err)
			continue
		}

		data, err := json.Marshal(out)
		if err != nil {
			log.Printf("ws: marshal error: %v", err)
			continue
		}
		select {
		case c.send <- data:
		case <-c.done:
			return
		}
	}
}

func (c *Client) close() {
	c.closeOnce.Do(func() {
		c.watcher.Close()
		close(c.done)
	})
}

func (c *Client) sendPong() {
	data, _ := json.Marshal(Event{Type: EventTypePong})
	select {
	case c.send <- data:
	default:
	}
}

func (c *Client) sendError(code, message string) {
	evt, err := NewEvent(EventTypeError, ErrorPayload{Code: code, Message: message})
	if err != nil {
		return
	}
	data, err := json.Marshal(evt)
	if err != nil {
		return
	}
	select {
	case c.send <- data:
	default:
	}
}
