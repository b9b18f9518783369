package feed

import (
	"net/http"
	"strconv"

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

// Feed handles GET /feed?page=&limit=.
func (h *Handler) Feed(w http.ResponseWriter, r *http.Request) {
	callerID, ok := middleware.UserID(r.Context())
	if !ok {
		httpx.Error(w, errs.Unauthorized("not authenticated"))
		return
	}

	page, pageSize := 0, 0
	if raw := r.URL.Query().Get("page"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil {
			httpx.Error(w, errs.InvalidArg("page must be a number"))
			return
		}
		page = n
	}
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil {
			httpx.Error(w, errs.InvalidArg("limit must be a number"))
			return
		}
		pageSize = n
	}

	candidates, err := h.svc.Feed(r.Context(), callerID, page, pageSize)
	if err != nil {
		httpx.Error(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, "", candidates)
}
