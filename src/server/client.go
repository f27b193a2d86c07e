package server

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"telemetry-hub/src/broadcast"
	"telemetry-hub/src/metrics"
	"telemetry-hub/src/models"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	xrate "golang.org/x/time/rate"
)

// -----------------------------------------------------------------------------
// Constants
// -----------------------------------------------------------------------------

const (
	writeWait      = 2 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 1024 * 1024 // 1MB for larger JSON messages

	sendQueueSize = 256
)

// -----------------------------------------------------------------------------
// Client Structure
// -----------------------------------------------------------------------------

// Client is one websocket session. Each session owns a broadcaster
// subscription, a set of per-channel rolling buffers and a control-message
// rate limiter. Sessions are fully independent: a slow or misbehaving
// session only affects its own delivery.
type Client struct {
	id   string
	hub  *HubServer
	conn *websocket.Conn
	send chan interface{}

	sub     *broadcast.Subscriber
	limiter *xrate.Limiter
	cancel  context.CancelFunc

	// guards subscription and buffers
	mu           sync.Mutex
	subscription models.MSubscription
	buffers      map[models.StreamKind]*RollingBuffer
	bufCap       int
}

// -----------------------------------------------------------------------------

func newClient(hub *HubServer, conn *websocket.Conn) *Client {
	cfg := hub.Config.Session
	return &Client{
		id:   uuid.NewString(),
		hub:  hub,
		conn: conn,
		// Buffered channel so the delivery loop never blocks on the socket
		send:    make(chan interface{}, sendQueueSize),
		limiter: xrate.NewLimiter(xrate.Limit(cfg.ControlPerSec), cfg.ControlBurst),
		buffers: make(map[models.StreamKind]*RollingBuffer),
		bufCap:  cfg.BufferSize,
	}
}

// -----------------------------------------------------------------------------
// readPump - handles incoming control messages from client
// Acts as a Watchdog for the connection
// -----------------------------------------------------------------------------

func (c *Client) readPump() {
	defer func() {
		c.hub.unregister(c)
		c.conn.Close()
		c.hub.Logger.Info("Client %s disconnected", c.id)
	}()

	c.conn.SetReadLimit(maxMessageSize)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		_, message, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				c.hub.Logger.Info("WebSocket error: %v", err)
			}
			break
		}
		c.handleControl(message)
	}
}

// -----------------------------------------------------------------------------
// writePump - sends messages to client
// -----------------------------------------------------------------------------

func (c *Client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case message, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}

			if err := c.conn.WriteJSON(message); err != nil {
				c.hub.Logger.Info("Write error: %v", err)
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

// -----------------------------------------------------------------------------
// deliverPump - pulls samples from the broadcaster into this session
// -----------------------------------------------------------------------------

func (c *Client) deliverPump(ctx context.Context) {
	for {
		sample, err := c.sub.Next(ctx)
		if err != nil {
			return
		}

		if !c.wants(sample) {
			continue
		}

		c.record(sample)

		// Never block on a slow socket; the rolling buffers keep the
		// history, the live feed just drops the frame.
		select {
		case c.send <- sample:
		default:
		}
	}
}

// -----------------------------------------------------------------------------
// Subscription filtering
// -----------------------------------------------------------------------------

func (c *Client) wants(sample models.Sample) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	if len(c.subscription.Kinds) > 0 && !containsKind(c.subscription.Kinds, sample) {
		return false
	}
	if len(c.subscription.Sources) > 0 && !containsString(c.subscription.Sources, sample.SourceID()) {
		return false
	}
	return true
}

func containsKind(kinds []string, sample models.Sample) bool {
	k := string(sample.Kind())
	if sample.Kind() == models.KindBatch {
		// batches are kept when any member kind is wanted
		if batch, ok := sample.(*models.MBatch); ok {
			for _, member := range batch.Samples {
				if containsKind(kinds, member) {
					return true
				}
			}
		}
		return false
	}
	return containsString(kinds, k)
}

func containsString(list []string, v string) bool {
	for _, s := range list {
		if s == v {
			return true
		}
	}
	return false
}

// -----------------------------------------------------------------------------
// Rolling buffer maintenance
// -----------------------------------------------------------------------------

// record files the sample into its channel buffer. Batches are unpacked so
// snapshots always hold individual samples.
func (c *Client) record(sample models.Sample) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if batch, ok := sample.(*models.MBatch); ok {
		for _, member := range batch.Samples {
			c.bufferFor(member.Kind()).Append(member)
		}
		return
	}
	c.bufferFor(sample.Kind()).Append(sample)
}

// callers hold c.mu
func (c *Client) bufferFor(kind models.StreamKind) *RollingBuffer {
	rb, ok := c.buffers[kind]
	if !ok {
		rb = NewRollingBuffer(c.bufCap)
		c.buffers[kind] = rb
	}
	return rb
}

// -----------------------------------------------------------------------------
// Control Message Handling
// -----------------------------------------------------------------------------

func (c *Client) handleControl(message []byte) {
	if !c.limiter.Allow() {
		metrics.ControlCommands.WithLabelValues("rate_limited").Inc()
		c.reply(models.MWarning{Type: "warning", Message: "control rate limit exceeded"})
		return
	}

	var cmd models.MControlCommand
	if err := json.Unmarshal(message, &cmd); err != nil {
		metrics.ControlCommands.WithLabelValues("invalid").Inc()
		c.reply(models.MWarning{Type: "warning", Message: "unparseable control message"})
		return
	}

	if cmd.FrequencyMs != nil {
		c.applyFrequency(*cmd.FrequencyMs)
	}
	if cmd.BufferSize != nil {
		c.applyBufferSize(*cmd.BufferSize)
	}
	if cmd.Subscribe != nil {
		c.applySubscription(*cmd.Subscribe)
	}
	if cmd.Snapshot != "" {
		c.replySnapshot(cmd.Snapshot)
	}
}

// -----------------------------------------------------------------------------

// applyFrequency changes the shared emission delay. The knob is deliberately
// global: every connected session sees the new pace.
func (c *Client) applyFrequency(ms int) {
	applied := c.hub.Rate.SetAll(time.Duration(ms) * time.Millisecond)
	metrics.ControlCommands.WithLabelValues("frequency_ms").Inc()
	c.hub.Logger.Info("Client %s set frequency_ms=%d (applied %v)", c.id, ms, applied)

	if applied != time.Duration(ms)*time.Millisecond {
		c.reply(models.MWarning{
			Type:    "warning",
			Message: "frequency_ms clamped to " + applied.String(),
		})
	}
}

func (c *Client) applyBufferSize(size int) {
	if size <= 0 {
		c.reply(models.MWarning{Type: "warning", Message: "buffer_size must be positive"})
		return
	}
	metrics.ControlCommands.WithLabelValues("buffer_size").Inc()

	c.mu.Lock()
	c.bufCap = size
	for _, rb := range c.buffers {
		rb.Resize(size)
	}
	c.mu.Unlock()
}

func (c *Client) applySubscription(sub models.MSubscription) {
	metrics.ControlCommands.WithLabelValues("subscribe").Inc()

	c.mu.Lock()
	c.subscription = sub
	c.mu.Unlock()
}

func (c *Client) replySnapshot(channel string) {
	metrics.ControlCommands.WithLabelValues("snapshot").Inc()

	c.mu.Lock()
	var samples []models.Sample
	if rb, ok := c.buffers[models.StreamKind(channel)]; ok {
		samples = rb.Snapshot()
	} else {
		samples = []models.Sample{}
	}
	c.mu.Unlock()

	c.reply(models.MSnapshotReply{
		Type:    "snapshot",
		Channel: channel,
		Samples: samples,
	})
}

// -----------------------------------------------------------------------------

func (c *Client) reply(message interface{}) {
	select {
	case c.send <- message:
	default:
		// session overloaded, the reply is expendable
	}
}
