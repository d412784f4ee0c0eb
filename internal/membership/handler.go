// internal/membership/handler.go

package membership

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"planethub/internal/platform/apperrors"
	"planethub/internal/platform/identity"
)

type Handler struct {
	service Service
}

func NewHandler(service Service) *Handler {
	return &Handler{service: service}
}

// Register mounts the membership routes. The planet handler owns the
// /planets CRUD routes; everything membership-related lives under a planet.
func (h *Handler) Register(r chi.Router) {
	r.Post("/planets/{planetID}/join", h.handleJoin)
	r.Get("/planets/{planetID}/members", h.handleListMembers)
	r.Post("/planets/{planetID}/members/{userID}/approve", h.handleApprove)
	r.Post("/planets/{planetID}/members/{userID}/reject", h.handleReject)
	r.Put("/planets/{planetID}/members/{userID}/role", h.handleUpdateRole)
	r.Delete("/planets/{planetID}/members/{userID}", h.handleKick)
	r.Delete("/planets/{planetID}/membership", h.handleLeave)
	r.Post("/planets/{planetID}/transfer", h.handleTransfer)
	r.Get("/planets/{planetID}/consistency", h.handleConsistency)
}

func (h *Handler) handleJoin(w http.ResponseWriter, r *http.Request) {
	ident, planetID, ok := requestScope(w, r)
	if !ok {
		return
	}

	status, err := h.service.Join(r.Context(), ident.UserID, planetID)
	if err != nil {
		respondError(w, err)
		return
	}
	respondJSON(w, http.StatusCreated, map[string]Status{"status": status})
}

func (h *Handler) handleListMembers(w http.ResponseWriter, r *http.Request) {
	_, planetID, ok := requestScope(w, r)
	if !ok {
		return
	}

	status := Status(r.URL.Query().Get("status"))
	if status != "" && !status.Valid() {
		http.Error(w, "invalid status filter", http.StatusBadRequest)
		return
	}

	members, err := h.service.ListMembers(r.Context(), planetID, status)
	if err != nil {
		respondError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, members)
}

func (h *Handler) handleApprove(w http.ResponseWriter, r *http.Request) {
	h.handleDecision(w, r, true)
}

func (h *Handler) handleReject(w http.ResponseWriter, r *http.Request) {
	h.handleDecision(w, r, false)
}

func (h *Handler) handleDecision(w http.ResponseWriter, r *http.Request, approve bool) {
	ident, planetID, ok := requestScope(w, r)
	if !ok {
		return
	}
	targetID, ok := pathUserID(w, r)
	if !ok {
		return
	}

	var (
		m   *Membership
		err error
	)
	if approve {
		m, err = h.service.Approve(r.Context(), ident.UserID, planetID, targetID)
	} else {
		m, err = h.service.Reject(r.Context(), ident.UserID, planetID, targetID)
	}
	if err != nil {
		respondError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, m)
}

func (h *Handler) handleUpdateRole(w http.ResponseWriter, r *http.Request) {
	ident, planetID, ok := requestScope(w, r)
	if !ok {
		return
	}
	targetID, ok := pathUserID(w, r)
	if !ok {
		return
	}

	var req struct {
		Role Role `json:"role"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	if !req.Role.Valid() {
		http.Error(w, "invalid role", http.StatusBadRequest)
		return
	}

	m, err := h.service.UpdateRole(r.Context(), ident.UserID, planetID, targetID, req.Role)
	if err != nil {
		respondError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, m)
}

func (h *Handler) handleKick(w http.ResponseWriter, r *http.Request) {
	ident, planetID, ok := requestScope(w, r)
	if !ok {
		return
	}
	targetID, ok := pathUserID(w, r)
	if !ok {
		return
	}

	if err := h.service.Kick(r.Context(), ident.UserID, planetID, targetID); err != nil {
		respondError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) handleLeave(w http.ResponseWriter, r *http.Request) {
	ident, planetID, ok := requestScope(w, r)
	if !ok {
		return
	}

	if err := h.service.Leave(r.Context(), ident.UserID, planetID); err != nil {
		respondError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) handleTransfer(w http.ResponseWriter, r *http.Request) {
	ident, planetID, ok := requestScope(w, r)
	if !ok {
		return
	}

	var req struct {
		NewOwnerID int64 `json:"new_owner_id"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	if req.NewOwnerID <= 0 {
		http.Error(w, "invalid new_owner_id", http.StatusBadRequest)
		return
	}

	if err := h.service.TransferOwnership(r.Context(), ident.UserID, planetID, req.NewOwnerID); err != nil {
		respondError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) handleConsistency(w http.ResponseWriter, r *http.Request) {
	_, planetID, ok := requestScope(w, r)
	if !ok {
		return
	}

	if err := h.service.CheckOwnerInvariant(r.Context(), planetID); err != nil {
		respondError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]bool{"consistent": true})
}

// requestScope pulls the verified identity and the planet id out of the
// request, writing the error response itself when either is missing.
func requestScope(w http.ResponseWriter, r *http.Request) (identity.Identity, uuid.UUID, bool) {
	ident, ok := identity.FromContext(r.Context())
	if !ok {
		http.Error(w, "missing identity", http.StatusUnauthorized)
		return identity.Identity{}, uuid.Nil, false
	}

	planetID, err := uuid.Parse(chi.URLParam(r, "planetID"))
	if err != nil {
		http.Error(w, "invalid planet ID", http.StatusBadRequest)
		return identity.Identity{}, uuid.Nil, false
	}
	return ident, planetID, true
}

func pathUserID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, "userID"), 10, 64)
	if err != nil || id <= 0 {
		http.Error(w, "invalid user ID", http.StatusBadRequest)
		return 0, false
	}
	return id, true
}

func respondJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func respondError(w http.ResponseWriter, err error) {
	status := apperrors.HTTPStatus(err)
	msg := err.Error()
	if status == http.StatusInternalServerError {
		msg = "internal server error"
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(map[string]string{"error": msg})
}
