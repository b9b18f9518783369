package user

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"devconnect/internal/errs"
	"devconnect/internal/httpx"
	"devconnect/internal/middleware"
)

type Handler struct {
	svc          *Service
	tokenMaxAge  int
	cookieSecure bool
}

func NewHandler(svc *Service, tokenMaxAge int, cookieSecure bool) *Handler {
	return &Handler{svc: svc, tokenMaxAge: tokenMaxAge, cookieSecure: cookieSecure}
}

func (h *Handler) Signup(w http.ResponseWriter, r *http.Request) {
	var req SignupRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httpx.Error(w, errs.InvalidArg("invalid request body"))
		return
	}

	u, err := h.svc.Signup(r.Context(), &req)
	if err != nil {
		httpx.Error(w, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, "signup successful", u)
}

func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	var req LoginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httpx.Error(w, errs.InvalidArg("invalid request body"))
		return
	}

	u, token, err := h.svc.Login(r.Context(), &req)
	if err != nil {
		httpx.Error(w, err)
		return
	}

	// Cross-site capable session cookie; the SPA runs on a different origin.
	http.SetCookie(w, &http.Cookie{
		Name:     "token",
		Value:    token,
		Path:     "/",
		MaxAge:   h.tokenMaxAge,
		HttpOnly: true,
		Secure:   h.cookieSecure,
		SameSite: http.SameSiteNoneMode,
	})
	httpx.JSON(w, http.StatusOK, "login successful", u)
}

func (h *Handler) Logout(w http.ResponseWriter, r *http.Request) {
	http.SetCookie(w, &http.Cookie{
		Name:     "token",
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   h.cookieSecure,
		SameSite: http.SameSiteNoneMode,
	})
	httpx.JSON(w, http.StatusOK, "logout successful", nil)
}

// Me returns the caller's own profile, including the email.
func (h *Handler) Me(w http.ResponseWriter, r *http.Request) {
	callerID, ok := middleware.UserID(r.Context())
	if !ok {
		httpx.Error(w, errs.Unauthorized("not authenticated"))
		return
	}
	u, err := h.svc.GetByID(r.Context(), callerID)
	if err != nil {
		httpx.Error(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, "", u)
}

// GetProfile returns another user's public profile.
func (h *Handler) GetProfile(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "userId"))
	if err != nil {
		httpx.Error(w, errs.InvalidArg("invalid user id"))
		return
	}
	u, err := h.svc.GetByID(r.Context(), id)
	if err != nil {
		httpx.Error(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, "", u.Public())
}

func (h *Handler) UpdateProfile(w http.ResponseWriter, r *http.Request) {
	callerID, ok := middleware.UserID(r.Context())
	if !ok {
		httpx.Error(w, errs.Unauthorized("not authenticated"))
		return
	}

	var upd ProfileUpdate
	if err := json.NewDecoder(r.Body).Decode(&upd); err != nil {
		httpx.Error(w, errs.InvalidArg("invalid request body"))
		return
	}

	u, err := h.svc.UpdateProfile(r.Context(), callerID, &upd)
	if err != nil {
		httpx.Error(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, "profile updated", u)
}
