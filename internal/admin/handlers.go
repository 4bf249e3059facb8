package admin

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log"
	"net/http"

	"github.com/EmpoweredVote/collective-backend/internal/approval"
	"github.com/EmpoweredVote/collective-backend/internal/middleware"
	"github.com/EmpoweredVote/collective-backend/internal/store"
	"github.com/EmpoweredVote/collective-backend/internal/utils"
	"github.com/EmpoweredVote/collective-backend/internal/views"
	"github.com/go-chi/chi/v5"
)

type Handler struct {
	Store    store.Store
	Approval views.Mutator
}

type Stats struct {
	TotalUsers   int64 `json:"total_users"`
	PendingCount int64 `json:"pending_count"`
	TotalContent int64 `json:"total_content"`
}

type DashboardResponse struct {
	Stats Stats `json:"stats"`
	views.UserList
}

func (h *Handler) loadUsers(ctx context.Context) (views.UserList, error) {
	pending, err := h.Store.ListProfiles(ctx, store.ProfileFilter{Approved: store.Bool(false), OldestFirst: true})
	if err != nil {
		return views.UserList{}, err
	}
	all, err := h.Store.ListProfiles(ctx, store.ProfileFilter{})
	if err != nil {
		return views.UserList{}, err
	}
	if pending == nil {
		pending = []store.Profile{}
	}
	if all == nil {
		all = []store.Profile{}
	}
	return views.UserList{Pending: pending, All: all}, nil
}

func (h *Handler) stats(ctx context.Context) (Stats, error) {
	var s Stats
	var err error
	if s.TotalUsers, err = h.Store.CountProfiles(ctx, store.ProfileFilter{}); err != nil {
		return s, err
	}
	if s.PendingCount, err = h.Store.CountProfiles(ctx, store.ProfileFilter{Approved: store.Bool(false)}); err != nil {
		return s, err
	}
	if s.TotalContent, err = h.Store.CountContent(ctx); err != nil {
		return s, err
	}
	return s, nil
}

func writeStoreError(w http.ResponseWriter, op string, err error) {
	if k := store.KindOf(err); k == store.KindInternal || k == store.KindUnavailable {
		log.Printf("[admin] %s: %v", op, err)
	}
	utils.WriteError(w, store.KindOf(err).HTTPStatus(), store.Message(err))
}

func (h *Handler) Dashboard(w http.ResponseWriter, r *http.Request) {
	stats, err := h.stats(r.Context())
	if err != nil {
		writeStoreError(w, "load stats", err)
		return
	}
	users, err := h.loadUsers(r.Context())
	if err != nil {
		writeStoreError(w, "load users", err)
		return
	}
	utils.WriteJSON(w, http.StatusOK, DashboardResponse{Stats: stats, UserList: users})
}

type actionRequest struct {
	Confirm bool `json:"confirm"`
}

type actionResponse struct {
	Error        string `json:"error,omitempty"`
	Prompt       string `json:"prompt,omitempty"`
	PendingCount int    `json:"pending_count"`
	views.UserList
}

func (h *Handler) Action(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	actor, _ := middleware.ProfileFromContext(ctx)
	targetID := chi.URLParam(r, "id")

	action, err := approval.ParseAction(chi.URLParam(r, "action"))
	if err != nil {
		utils.WriteError(w, http.StatusBadRequest, err.Error())
		return
	}

	var req actionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil && !errors.Is(err, io.EOF) {
		utils.WriteError(w, http.StatusBadRequest, "Invalid Request Format")
		return
	}
	if r.URL.Query().Get("confirm") == "true" {
		req.Confirm = true
	}

	if action.RequiresConfirmation() && !req.Confirm {
		target, err := h.Store.GetProfile(ctx, targetID)
		if err != nil {
			writeStoreError(w, "load target", err)
			return
		}
		utils.WriteJSON(w, http.StatusPreconditionRequired, map[string]string{
			"error":  approval.ErrConfirmationRequired.Error(),
			"prompt": action.Prompt(target.Name()),
		})
		return
	}

	users, err := h.loadUsers(ctx)
	if err != nil {
		writeStoreError(w, "load users", err)
		return
	}

	if err := users.Apply(ctx, h.Approval, actor, targetID, action); err != nil {
		status := store.KindOf(err).HTTPStatus()
		msg := store.Message(err)
		if errors.Is(err, approval.ErrNotAdmin) {
			status, msg = http.StatusForbidden, err.Error()
		} else if store.KindOf(err) == store.KindInternal {
			log.Printf("[admin] %s on %s: %v", action, targetID, err)
		}
		utils.WriteJSON(w, status, actionResponse{Error: msg, PendingCount: users.PendingCount(), UserList: users})
		return
	}

	utils.WriteJSON(w, http.StatusOK, actionResponse{PendingCount: users.PendingCount(), UserList: users})
}
