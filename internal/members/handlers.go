// Package members serves the signed-in member pages: the dashboard and the
// content detail page with its likes and comments.
package members

import (
	"encoding/json"
	"log"
	"net/http"

	"github.com/EmpoweredVote/collective-backend/internal/middleware"
	"github.com/EmpoweredVote/collective-backend/internal/store"
	"github.com/EmpoweredVote/collective-backend/internal/utils"
	"github.com/EmpoweredVote/collective-backend/internal/views"
	"github.com/go-chi/chi/v5"
)

const PendingMessage = "Your account registration was successful, but it's currently pending admin approval. " +
	"You'll be able to access all features once an administrator approves your account."

type Handler struct {
	Store store.Store
}

type ContentSummary struct {
	store.Content
	LikeCount    int64 `json:"like_count"`
	CommentCount int64 `json:"comment_count"`
}

type DashboardResponse struct {
	UserID         string           `json:"user_id"`
	Profile        *store.Profile   `json:"profile"`
	ProfileError   string           `json:"profile_error,omitempty"`
	PendingMessage string           `json:"pending_message,omitempty"`
	Content        []ContentSummary `json:"content"`
}

type ContentDetail struct {
	Content      store.Content       `json:"content"`
	Comments     []store.CommentView `json:"comments"`
	CommentCount int64               `json:"comment_count"`
	LikeCount    int64               `json:"like_count"`
	UserHasLiked bool                `json:"user_has_liked"`
}

func writeStoreError(w http.ResponseWriter, op string, err error) {
	kind := store.KindOf(err)
	if kind == store.KindInternal || kind == store.KindUnavailable {
		log.Printf("[members] %s: %v", op, err)
	}
	utils.WriteError(w, kind.HTTPStatus(), store.Message(err))
}

func (h *Handler) Dashboard(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	userID, ok := utils.GetUserIDFromContext(ctx)
	if !ok {
		http.Redirect(w, r, middleware.LoginRedirect(r.URL.Path), http.StatusSeeOther)
		return
	}

	resp := DashboardResponse{UserID: userID, Content: []ContentSummary{}}

	profile, err := h.Store.GetProfile(ctx, userID)
	if err != nil {
		log.Printf("[members] dashboard profile %s: %v", userID, err)
		resp.ProfileError = store.Message(err)
		utils.WriteJSON(w, http.StatusOK, resp)
		return
	}
	resp.Profile = &profile

	if !profile.Approved {
		resp.PendingMessage = PendingMessage
		utils.WriteJSON(w, http.StatusOK, resp)
		return
	}

	items, err := h.Store.ListContent(ctx)
	if err != nil {
		writeStoreError(w, "list content", err)
		return
	}
	for _, item := range items {
		likes, err := h.Store.CountLikes(ctx, item.ID)
		if err != nil {
			writeStoreError(w, "count likes", err)
			return
		}
		comments, err := h.Store.CountComments(ctx, item.ID)
		if err != nil {
			writeStoreError(w, "count comments", err)
			return
		}
		resp.Content = append(resp.Content, ContentSummary{Content: item, LikeCount: likes, CommentCount: comments})
	}

	utils.WriteJSON(w, http.StatusOK, resp)
}

// content loads the item named in the URL, answering 404 itself when it is missing.
func (h *Handler) content(w http.ResponseWriter, r *http.Request) (store.Content, bool) {
	item, err := h.Store.GetContent(r.Context(), chi.URLParam(r, "id"))
	if store.IsKind(err, store.KindNotFound) {
		utils.WriteError(w, http.StatusNotFound, "not found")
		return store.Content{}, false
	}
	if err != nil {
		writeStoreError(w, "get content", err)
		return store.Content{}, false
	}
	return item, true
}

func (h *Handler) likeState(r *http.Request, contentID, userID string) (views.LikeToggle, error) {
	count, err := h.Store.CountLikes(r.Context(), contentID)
	if err != nil {
		return views.LikeToggle{}, err
	}
	liked, err := h.Store.HasLiked(r.Context(), contentID, userID)
	if err != nil {
		return views.LikeToggle{}, err
	}
	return views.LikeToggle{Liked: liked, Count: count}, nil
}

func (h *Handler) thread(r *http.Request, contentID string) (views.CommentThread, error) {
	comments, err := h.Store.ListComments(r.Context(), contentID)
	if err != nil {
		return views.CommentThread{}, err
	}
	count, err := h.Store.CountComments(r.Context(), contentID)
	if err != nil {
		return views.CommentThread{}, err
	}
	if comments == nil {
		comments = []store.CommentView{}
	}
	return views.CommentThread{Comments: comments, Count: count}, nil
}

func (h *Handler) ContentDetail(w http.ResponseWriter, r *http.Request) {
	profile, _ := middleware.ProfileFromContext(r.Context())

	item, ok := h.content(w, r)
	if !ok {
		return
	}

	thread, err := h.thread(r, item.ID)
	if err != nil {
		writeStoreError(w, "load comments", err)
		return
	}
	like, err := h.likeState(r, item.ID, profile.ID)
	if err != nil {
		writeStoreError(w, "load likes", err)
		return
	}

	utils.WriteJSON(w, http.StatusOK, ContentDetail{
		Content:      item,
		Comments:     thread.Comments,
		CommentCount: thread.Count,
		LikeCount:    like.Count,
		UserHasLiked: like.Liked,
	})
}

func (h *Handler) ToggleLike(w http.ResponseWriter, r *http.Request) {
	profile, _ := middleware.ProfileFromContext(r.Context())

	item, ok := h.content(w, r)
	if !ok {
		return
	}

	like, err := h.likeState(r, item.ID, profile.ID)
	if err != nil {
		writeStoreError(w, "load likes", err)
		return
	}

	if err := like.Toggle(r.Context(), h.Store, item.ID, profile.ID); err != nil {
		if store.KindOf(err) == store.KindInternal {
			log.Printf("[members] toggle like on %s: %v", item.ID, err)
		}
		utils.WriteJSON(w, store.KindOf(err).HTTPStatus(), map[string]any{
			"error": store.Message(err),
			"like":  like,
		})
		return
	}

	utils.WriteJSON(w, http.StatusOK, like)
}

type commentRequest struct {
	Text string `json:"text"`
}

func (h *Handler) PostComment(w http.ResponseWriter, r *http.Request) {
	profile, _ := middleware.ProfileFromContext(r.Context())

	var req commentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		utils.WriteError(w, http.StatusBadRequest, "Invalid Request Format")
		return
	}

	item, ok := h.content(w, r)
	if !ok {
		return
	}

	thread, err := h.thread(r, item.ID)
	if err != nil {
		writeStoreError(w, "load comments", err)
		return
	}

	if _, err := thread.Post(r.Context(), h.Store, profile, item.ID, req.Text); err != nil {
		if store.KindOf(err) == store.KindInternal {
			log.Printf("[members] comment on %s: %v", item.ID, err)
		}
		utils.WriteJSON(w, store.KindOf(err).HTTPStatus(), map[string]any{
			"error":    store.Message(err),
			"draft":    req.Text,
			"comments": thread,
		})
		return
	}

	utils.WriteJSON(w, http.StatusCreated, thread)
}
