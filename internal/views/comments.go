package views

import (
	"context"
	"strings"
	"time"

	"github.com/EmpoweredVote/collective-backend/internal/store"
	"golang.org/x/text/unicode/norm"
)

// CommentThread is the comment list for one content item, newest first.
type CommentThread struct {
	Comments []store.CommentView `json:"comments"`
	Count    int64               `json:"count"`
}

// NormalizeText trims and NFC-normalises user-entered text.
func NormalizeText(s string) string {
	return norm.NFC.String(strings.TrimSpace(s))
}

// Post adds the comment to the top of the thread, submits it, and removes it
// again if the store rejects it.
func (t *CommentThread) Post(ctx context.Context, comments store.Comments, author store.Profile, contentID, text string) (store.CommentView, error) {
	clean := NormalizeText(text)
	if clean == "" {
		return store.CommentView{}, store.Invalid("comment text is required")
	}

	name := author.DisplayName
	if name == "" {
		name = store.AnonymousName
	}

	pending := store.CommentView{
		ContentID:   contentID,
		UserID:      author.ID,
		Text:        clean,
		CreatedAt:   time.Now(),
		DisplayName: name,
	}
	t.Comments = append([]store.CommentView{pending}, t.Comments...)
	t.Count++

	created, err := comments.CreateComment(ctx, store.Comment{
		ContentID: contentID,
		UserID:    author.ID,
		Text:      clean,
	})
	if err != nil {
		t.Comments = t.Comments[1:]
		t.Count--
		return store.CommentView{}, err
	}

	pending.ID = created.ID
	pending.CreatedAt = created.CreatedAt
	t.Comments[0] = pending
	return pending, nil
}
