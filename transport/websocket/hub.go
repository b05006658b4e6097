package websocket

import (
	"context"
	"errors"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/wricardo/heroduel/transport/wire"
)

const (
	// Time allowed to write a message to the peer.
	writeWait = 10 * time.Second

	// Time allowed to read the next pong message from the peer.
	pongWait = 60 * time.Second

	// Send pings to peer with this period. Must be less than pongWait.
	pingPeriod = (pongWait * 9) / 10

	// Maximum message size allowed from peer. A full four-hero roster fits.
	maxMessageSize = 8192

	defaultSendBuffer = 256
)

var ErrAlreadyBound = errors.New("connection is already bound to another participant")

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

// Handler receives what clients send
type Handler interface {
	HandleMessage(c *Client, env *wire.Envelope)
	HandleDisconnect(participant string)
}

// Client is one websocket connection, optionally bound to a participant
type Client struct {
	hub  *Hub
	conn *websocket.Conn
	send chan []byte
	id   string

	mu          sync.Mutex
	participant string
}

// ID returns the connection handle
func (c *Client) ID() string {
	return c.id
}

// Participant returns the participant the connection is bound to, if any
func (c *Client) Participant() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.participant
}

// Bind ties the connection to participant. Binding again to the same
// participant is a no-op.
func (c *Client) Bind(participant string) error {
	c.mu.Lock()
	switch c.participant {
	case participant:
		c.mu.Unlock()
		return nil
	case "":
		c.participant = participant
	default:
		c.mu.Unlock()
		return ErrAlreadyBound
	}
	c.mu.Unlock()

	select {
	case c.hub.bind <- c:
	case <-c.hub.done:
	}
	c.hub.settle(participant)
	return nil
}

// Send queues an event for this connection only
func (c *Client) Send(event string, payload interface{}) {
	c.hub.enqueue(event, payload, c, nil)
}

type outbound struct {
	frame  []byte
	client *Client
	to     []string
}

// HubOptions configures a Hub
type HubOptions struct {
	Logger *zap.Logger
	// SendBuffer is the number of frames queued per connection before it is dropped
	SendBuffer int
}

// Hub maintains the set of active clients and routes outbound events
type Hub struct {
	// Connected clients and the participants they are bound to
	clients      map[*Client]bool
	participants map[string]map[*Client]bool

	// Every outbound frame goes through this channel, which keeps per-connection order
	outbound chan outbound

	// Register requests from clients
	register chan *Client

	// Unregister requests from clients
	unregister chan *Client

	// Clients that just bound to a participant
	bind chan *Client

	// Disconnects of each participant still being handled, latest last
	departMu   sync.Mutex
	departures map[string]chan struct{}

	handler    Handler
	sendBuffer int
	logger     *zap.Logger
	done       chan struct{}
}

// NewHub creates a new WebSocket hub
func NewHub(opts HubOptions) *Hub {
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	if opts.SendBuffer <= 0 {
		opts.SendBuffer = defaultSendBuffer
	}
	return &Hub{
		clients:      make(map[*Client]bool),
		participants: make(map[string]map[*Client]bool),
		outbound:     make(chan outbound),
		register:     make(chan *Client),
		unregister:   make(chan *Client),
		bind:         make(chan *Client),
		departures:   make(map[string]chan struct{}),
		sendBuffer:   opts.SendBuffer,
		logger:       opts.Logger,
		done:         make(chan struct{}),
	}
}

// SetHandler installs the inbound message handler. Call it before serving.
func (h *Hub) SetHandler(handler Handler) {
	h.handler = handler
}

// Run starts the hub's event loop and blocks until ctx is done
func (h *Hub) Run(ctx context.Context) {
	defer close(h.done)
	for {
		select {
		case <-ctx.Done():
			for client := range h.clients {
				close(client.send)
			}
			h.clients = make(map[*Client]bool)
			h.participants = make(map[string]map[*Client]bool)
			return

		case client := <-h.register:
			h.registerClient(client)

		case client := <-h.unregister:
			h.unregisterClient(client)

		case client := <-h.bind:
			h.bindClient(client)

		case msg := <-h.outbound:
			h.deliver(msg)
		}
	}
}

// ServeWS upgrades the request. A participant query parameter binds the
// connection right away; otherwise the first create-session or join does.
func (h *Hub) ServeWS(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Warn("websocket upgrade failed", zap.Error(err))
		return
	}

	client := &Client{
		hub:         h,
		conn:        conn,
		send:        make(chan []byte, h.sendBuffer),
		id:          uuid.NewString(),
		participant: r.URL.Query().Get("participant"),
	}

	select {
	case h.register <- client:
	case <-h.done:
		conn.Close()
		return
	}

	// Start client goroutines
	go client.writePump()
	go client.readPump()
}

// Send queues an event for every connection of participant
func (h *Hub) Send(participant, event string, payload interface{}) {
	h.enqueue(event, payload, nil, []string{participant})
}

// Broadcast queues an event for every connection of each participant
func (h *Hub) Broadcast(participants []string, event string, payload interface{}) {
	if len(participants) == 0 {
		return
	}
	h.enqueue(event, payload, nil, append([]string(nil), participants...))
}

func (h *Hub) enqueue(event string, payload interface{}, client *Client, to []string) {
	frame, err := wire.Encode(event, payload)
	if err != nil {
		h.logger.Error("failed to encode event", zap.String("event", event), zap.Error(err))
		return
	}
	select {
	case h.outbound <- outbound{frame: frame, client: client, to: to}:
	case <-h.done:
	}
}

// registerClient adds a client and indexes it by participant
func (h *Hub) registerClient(client *Client) {
	h.clients[client] = true
	h.bindClient(client)

	h.logger.Debug("client registered",
		zap.String("conn", client.id),
		zap.String("participant", client.Participant()),
		zap.Int("clients", len(h.clients)))
}

func (h *Hub) bindClient(client *Client) {
	participant := client.Participant()
	if participant == "" || !h.clients[client] {
		return
	}
	if h.participants[participant] == nil {
		h.participants[participant] = make(map[*Client]bool)
	}
	h.participants[participant][client] = true
}

// unregisterClient removes a client. When a participant's last connection
// goes away the handler is told so it can leave the participant's rooms.
func (h *Hub) unregisterClient(client *Client) {
	if !h.clients[client] {
		return
	}
	delete(h.clients, client)
	close(client.send)

	participant := client.Participant()
	if conns, ok := h.participants[participant]; ok {
		delete(conns, client)
		if len(conns) == 0 {
			delete(h.participants, participant)
			if h.handler != nil {
				h.depart(participant)
			}
		}
	}

	h.logger.Debug("client unregistered",
		zap.String("conn", client.id),
		zap.String("participant", participant),
		zap.Int("clients", len(h.clients)))
}

// depart runs the disconnect handler for participant once any earlier
// disconnect of the same participant has been handled
func (h *Hub) depart(participant string) {
	done := make(chan struct{})
	h.departMu.Lock()
	prev := h.departures[participant]
	h.departures[participant] = done
	h.departMu.Unlock()

	go func() {
		if prev != nil {
			<-prev
		}
		h.handler.HandleDisconnect(participant)

		h.departMu.Lock()
		if h.departures[participant] == done {
			delete(h.departures, participant)
		}
		h.departMu.Unlock()
		close(done)
	}()
}

// settle blocks until every disconnect of participant seen so far has been
// handled, so a reconnecting participant's requests land after its departure
func (h *Hub) settle(participant string) {
	if participant == "" {
		return
	}
	h.departMu.Lock()
	pending := h.departures[participant]
	h.departMu.Unlock()
	if pending == nil {
		return
	}
	select {
	case <-pending:
	case <-h.done:
	}
}

// deliver hands a frame to its connections, dropping any that cannot keep up
func (h *Hub) deliver(msg outbound) {
	var targets []*Client
	if msg.client != nil {
		if h.clients[msg.client] {
			targets = append(targets, msg.client)
		}
	}
	for _, p := range msg.to {
		for client := range h.participants[p] {
			targets = append(targets, client)
		}
	}

	for _, client := range targets {
		if !h.clients[client] {
			continue
		}
		select {
		case client.send <- msg.frame:
		default:
			h.logger.Warn("dropping slow client", zap.String("conn", client.id))
			h.unregisterClient(client)
		}
	}
}

// readPump pumps messages from the WebSocket connection to the handler
func (c *Client) readPump() {
	defer func() {
		select {
		case c.hub.unregister <- c:
		case <-c.hub.done:
		}
		c.conn.Close()
	}()

	c.conn.SetReadLimit(maxMessageSize)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		_, frame, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				c.hub.logger.Info("websocket closed", zap.String("conn", c.id), zap.Error(err))
			}
			break
		}

		env, err := wire.Decode(frame)
		if err != nil {
			c.Send(eventError, errorPayload{Message: err.Error()})
			continue
		}
		if c.hub.handler != nil {
			c.hub.settle(c.Participant())
			c.hub.handler.HandleMessage(c, env)
		}
	}
}

// writePump pumps messages from the hub to the WebSocket connection, one frame per event
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
				// The hub closed the channel
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}

			if err := c.conn.WriteMessage(websocket.TextMessage, message); err != nil {
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
