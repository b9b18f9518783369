package request

import (
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"devconnect/internal/errs"
	"devconnect/internal/httpx"
	"devconnect/internal/middleware"
)

type Handler struct {
	svc *Service
}

func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

// Send handles POST /request/send/{status}/{toUserId}.
func (h *Handler) Send(w http.ResponseWriter, r *http.Request) {
	callerID, ok := middleware.UserID(r.Context())
	if !ok {
		httpx.Error(w, errs.Unauthorized("not authenticated"))
		return
	}
	toUserID, err := uuid.Parse(chi.URLParam(r, "toUserId"))
	if err != nil {
		httpx.Error(w, errs.InvalidArg("invalid target user id"))
		return
	}

	req, err := h.svc.Send(r.Context(), callerID, toUserID, chi.URLParam(r, "status"))
	if err != nil {
		httpx.Error(w, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, "connection request sent", req)
}

// Review handles POST /request/review/{status}/{requestId}.
func (h *Handler) Review(w http.ResponseWriter, r *http.Request) {
	callerID, ok := middleware.UserID(r.Context())
	if !ok {
		httpx.Error(w, errs.Unauthorized("not authenticated"))
		return
	}
	requestID, err := uuid.Parse(chi.URLParam(r, "requestId"))
	if err != nil {
		httpx.Error(w, errs.InvalidArg("invalid request id"))
		return
	}

	req, err := h.svc.Review(r.Context(), callerID, requestID, chi.URLParam(r, "status"))
	if err != nil {
		httpx.Error(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, "connection request reviewed", req)
}

// ListReceived handles GET /requests/received?page=&limit=&status=.
func (h *Handler) ListReceived(w http.ResponseWriter, r *http.Request) {
	callerID, ok := middleware.UserID(r.Context())
	if !ok {
		httpx.Error(w, errs.Unauthorized("not authenticated"))
		return
	}

	page, pageSize, err := pageParams(r)
	if err != nil {
		httpx.Error(w, err)
		return
	}

	items, pagination, err := h.svc.ListReceived(r.Context(), callerID, r.URL.Query().Get("status"), page, pageSize)
	if err != nil {
		httpx.Error(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, "", map[string]any{
		"requests":   items,
		"pagination": pagination,
	})
}

// Connections handles GET /user/connections.
func (h *Handler) Connections(w http.ResponseWriter, r *http.Request) {
	callerID, ok := middleware.UserID(r.Context())
	if !ok {
		httpx.Error(w, errs.Unauthorized("not authenticated"))
		return
	}

	buckets, err := h.svc.Connections(r.Context(), callerID)
	if err != nil {
		httpx.Error(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, "", buckets)
}

func pageParams(r *http.Request) (int, int, error) {
	page, pageSize := 0, 0
	if raw := r.URL.Query().Get("page"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil {
			return 0, 0, errs.InvalidArg("page must be a number")
		}
		page = n
	}
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil {
			return 0, 0, errs.InvalidArg("limit must be a number")
		}
		pageSize = n
	}
	return page, pageSize, nil
}
