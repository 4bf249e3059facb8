package store

import (
	"context"
	"time"
)

// ProfileFilter narrows profile reads. A nil Approved matches every profile.
type ProfileFilter struct {
	Approved *bool
	// OldestFirst orders by created_at ascending; the default is newest first.
	OldestFirst bool
}

// ProfilePatch holds the columns an admin may change. Nil fields are left alone.
type ProfilePatch struct {
	Approved   *bool
	IsAdmin    *bool
	ApprovedAt *time.Time
	RevokedAt  *time.Time
}

func (p ProfilePatch) Empty() bool {
	return p.Approved == nil && p.IsAdmin == nil && p.ApprovedAt == nil && p.RevokedAt == nil
}

// Apply returns prof with the patch applied.
func (p ProfilePatch) Apply(prof Profile) Profile {
	if p.Approved != nil {
		prof.Approved = *p.Approved
	}
	if p.IsAdmin != nil {
		prof.IsAdmin = *p.IsAdmin
	}
	if p.ApprovedAt != nil {
		t := *p.ApprovedAt
		prof.ApprovedAt = &t
	}
	if p.RevokedAt != nil {
		t := *p.RevokedAt
		prof.RevokedAt = &t
	}
	return prof
}

type Profiles interface {
	GetProfile(ctx context.Context, id string) (Profile, error)
	CreateProfile(ctx context.Context, p Profile) (Profile, error)
	ListProfiles(ctx context.Context, f ProfileFilter) ([]Profile, error)
	CountProfiles(ctx context.Context, f ProfileFilter) (int64, error)
	UpdateProfile(ctx context.Context, id string, patch ProfilePatch) (Profile, error)
}

type Contents interface {
	// ListContent returns newest first.
	ListContent(ctx context.Context) ([]Content, error)
	GetContent(ctx context.Context, id string) (Content, error)
	CountContent(ctx context.Context) (int64, error)
}

type Comments interface {
	// ListComments returns newest first.
	ListComments(ctx context.Context, contentID string) ([]CommentView, error)
	// CreateComment fails with KindForbidden unless the author is approved.
	CreateComment(ctx context.Context, c Comment) (Comment, error)
	CountComments(ctx context.Context, contentID string) (int64, error)
}

type Likes interface {
	// CreateLike fails with KindForbidden unless the user is approved and
	// with KindConflict when the like already exists.
	CreateLike(ctx context.Context, contentID, userID string) error
	DeleteLike(ctx context.Context, contentID, userID string) error
	CountLikes(ctx context.Context, contentID string) (int64, error)
	HasLiked(ctx context.Context, contentID, userID string) (bool, error)
}

// Store is the full data store surface used by the page handlers.
type Store interface {
	Profiles
	Contents
	Comments
	Likes
}

func Bool(b bool) *bool { return &b }
