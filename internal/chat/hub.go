package chat

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"devconnect/internal/metrics"
)

const (
	redisChannel   = "devconnect-chat"
	persistTimeout = 5 * time.Second
)

// MessageStore is the durable side of the chat subsystem.
type MessageStore interface {
	Append(ctx context.Context, a, b, senderID uuid.UUID, text string) (*Message, error)
}

type joinRequest struct {
	client *Client
	roomID string
}

type inboundMessage struct {
	client   *Client
	targetID uuid.UUID
	text     string
}

type outbound struct {
	roomID     string
	senderConn uuid.UUID
	payload    []byte
}

type persistRequest struct {
	a, b, sender uuid.UUID
	text         string
}

// Hub owns all room membership state. Only its run loop touches the maps, so
// they need no locking, and per-room broadcast order is the order in which
// the loop accepts messages.
type Hub struct {
	rooms       map[string]map[*Client]bool
	memberships map[*Client]map[string]bool

	register   chan *Client
	unregister chan *Client
	join       chan joinRequest
	inbound    chan inboundMessage
	deliver    chan outbound
	persist    chan persistRequest

	redis   *redis.Client
	repo    MessageStore
	log     zerolog.Logger
	metrics *metrics.Metrics

	// echoToSender controls whether the sending connection also receives
	// its own message. The product currently broadcasts to the whole room.
	echoToSender bool
}

type HubOption func(*Hub)

// WithoutEcho suppresses delivery back to the sending connection.
func WithoutEcho() HubOption {
	return func(h *Hub) { h.echoToSender = false }
}

// NewHub wires the session manager. redisClient may be nil, in which case
// messages are delivered to local connections only.
func NewHub(redisClient *redis.Client, repo MessageStore, m *metrics.Metrics, log zerolog.Logger, opts ...HubOption) *Hub {
	h := &Hub{
		rooms:        make(map[string]map[*Client]bool),
		memberships:  make(map[*Client]map[string]bool),
		register:     make(chan *Client),
		unregister:   make(chan *Client),
		join:         make(chan joinRequest),
		inbound:      make(chan inboundMessage),
		deliver:      make(chan outbound),
		persist:      make(chan persistRequest, 256),
		redis:        redisClient,
		repo:         repo,
		log:          log,
		metrics:      m,
		echoToSender: true,
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// Run drives the hub until ctx is cancelled.
func (h *Hub) Run(ctx context.Context) {
	if h.redis != nil {
		go h.subscribeLoop(ctx)
	}
	go h.persistLoop(ctx)

	for {
		select {
		case <-ctx.Done():
			return

		case client := <-h.register:
			h.memberships[client] = make(map[string]bool)
			h.metrics.IncConnections()

		case client := <-h.unregister:
			h.drop(client)

		case req := <-h.join:
			// Idempotent: re-joining an already joined room is a no-op.
			if _, ok := h.memberships[req.client]; !ok {
				continue
			}
			if h.rooms[req.roomID] == nil {
				h.rooms[req.roomID] = make(map[*Client]bool)
			}
			h.rooms[req.roomID][req.client] = true
			h.memberships[req.client][req.roomID] = true
			h.metrics.SetRooms(len(h.rooms))

		case msg := <-h.inbound:
			h.handleInbound(ctx, msg)

		case out := <-h.deliver:
			h.deliverLocal(out)
		}
	}
}

// handleInbound broadcasts the message and queues the durable append. The
// two effects are independent: a slow or failing append never blocks or
// cancels delivery, and vice versa.
func (h *Hub) handleInbound(ctx context.Context, msg inboundMessage) {
	if msg.text == "" {
		return
	}
	roomID := RoomID(msg.client.userID, msg.targetID)

	payload, err := json.Marshal(Event{
		Type:         EventReceiveMessage,
		FirstName:    msg.client.firstName,
		UserID:       msg.client.userID,
		TargetUserID: msg.targetID,
		Text:         msg.text,
	})
	if err != nil {
		h.log.Error().Err(err).Msg("encode outbound event")
		return
	}
	h.metrics.IncMessages()

	req := persistRequest{a: msg.client.userID, b: msg.targetID, sender: msg.client.userID, text: msg.text}
	select {
	case h.persist <- req:
	default:
		// Queue full: append out of band rather than dropping the message
		// or stalling broadcast. Per-room persist order is best-effort.
		go h.appendNow(req)
	}

	out := outbound{roomID: roomID, senderConn: msg.client.id, payload: payload}
	if h.redis != nil {
		h.publish(ctx, out)
	} else {
		h.deliverLocal(out)
	}
}

func (h *Hub) publish(ctx context.Context, out outbound) {
	env, err := json.Marshal(envelope{RoomID: out.roomID, SenderConn: out.senderConn, Payload: out.payload})
	if err != nil {
		h.log.Error().Err(err).Msg("encode redis envelope")
		return
	}
	if err := h.redis.Publish(ctx, redisChannel, env).Err(); err != nil {
		// Redis down: fall back to local delivery so the room still works
		// within this instance.
		h.log.Warn().Err(err).Msg("redis publish failed, delivering locally")
		h.deliverLocal(out)
	}
}

func (h *Hub) deliverLocal(out outbound) {
	for client := range h.rooms[out.roomID] {
		if !h.echoToSender && client.id == out.senderConn {
			continue
		}
		select {
		case client.send <- out.payload:
		default:
			// Slow consumer; drop it like the write pump would.
			h.drop(client)
		}
	}
}

func (h *Hub) drop(client *Client) {
	roomIDs, ok := h.memberships[client]
	if !ok {
		return
	}
	for roomID := range roomIDs {
		delete(h.rooms[roomID], client)
		if len(h.rooms[roomID]) == 0 {
			delete(h.rooms, roomID)
		}
	}
	delete(h.memberships, client)
	close(client.send)
	h.metrics.DecConnections()
	h.metrics.SetRooms(len(h.rooms))
}

// subscribeLoop forwards envelopes published by any instance to the run loop.
func (h *Hub) subscribeLoop(ctx context.Context) {
	pubsub := h.redis.Subscribe(ctx, redisChannel)
	defer pubsub.Close()

	ch := pubsub.Channel()
	for {
		select {
		case <-ctx.Done():
			return
		case msg, ok := <-ch:
			if !ok {
				return
			}
			var env envelope
			if err := json.Unmarshal([]byte(msg.Payload), &env); err != nil {
				h.log.Warn().Err(err).Msg("malformed redis envelope")
				continue
			}
			select {
			case h.deliver <- outbound{roomID: env.RoomID, senderConn: env.SenderConn, payload: env.Payload}:
			case <-ctx.Done():
				return
			}
		}
	}
}

// persistLoop drains the append queue one message at a time, preserving the
// order the run loop accepted them in.
func (h *Hub) persistLoop(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case req := <-h.persist:
			h.appendNow(req)
		}
	}
}

func (h *Hub) appendNow(req persistRequest) {
	ctx, cancel := context.WithTimeout(context.Background(), persistTimeout)
	defer cancel()

	if _, err := h.repo.Append(ctx, req.a, req.b, req.sender, req.text); err != nil {
		h.metrics.IncPersistFailures()
		h.log.Error().Err(err).
			Str("room", RoomID(req.a, req.b)).
			Msg("message append failed after broadcast")
	}
}
