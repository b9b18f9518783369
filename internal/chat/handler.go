package chat

import (
	"context"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"devconnect/internal/errs"
	"devconnect/internal/httpx"
	"devconnect/internal/middleware"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true // origin policy is enforced at the edge proxy
	},
}

// HistoryStore is the read side of the message log.
type HistoryStore interface {
	History(ctx context.Context, a, b uuid.UUID, limit, offset int) ([]Message, error)
}

type Handler struct {
	hub     *Hub
	history HistoryStore
}

func NewHandler(hub *Hub, history HistoryStore) *Handler {
	return &Handler{hub: hub, history: history}
}

// ServeWs upgrades an authenticated request to a websocket session.
func (h *Handler) ServeWs(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.UserID(r.Context())
	if !ok {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return
	}
	firstName := middleware.FirstName(r.Context())

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.hub.log.Debug().Err(err).Msg("websocket upgrade failed")
		return
	}

	client := &Client{
		id:        uuid.New(),
		hub:       h.hub,
		conn:      conn,
		send:      make(chan []byte, 256),
		userID:    userID,
		firstName: firstName,
	}
	h.hub.register <- client

	go client.writePump()
	go client.readPump()
}

// History handles GET /chat/{targetUserId}/messages?page=&limit=.
func (h *Handler) History(w http.ResponseWriter, r *http.Request) {
	callerID, ok := middleware.UserID(r.Context())
	if !ok {
		httpx.Error(w, errs.Unauthorized("not authenticated"))
		return
	}
	targetID, err := uuid.Parse(chi.URLParam(r, "targetUserId"))
	if err != nil {
		httpx.Error(w, errs.InvalidArg("invalid target user id"))
		return
	}

	page, limit := 1, 50
	if raw := r.URL.Query().Get("page"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 {
			httpx.Error(w, errs.InvalidArg("page must be a positive number"))
			return
		}
		page = n
	}
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 {
			httpx.Error(w, errs.InvalidArg("limit must be a positive number"))
			return
		}
		if n > 100 {
			n = 100
		}
		limit = n
	}

	messages, err := h.history.History(r.Context(), callerID, targetID, limit, (page-1)*limit)
	if err != nil {
		httpx.Error(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, "", messages)
}
