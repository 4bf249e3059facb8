package views

import (
	"context"

	"github.com/EmpoweredVote/collective-backend/internal/store"
)

// LikeToggle is the like button state for one content item and viewer.
type LikeToggle struct {
	Liked bool  `json:"liked"`
	Count int64 `json:"count"`
}

// Toggle flips the like. A duplicate like means the row already exists and
// is kept as liked; any other failure restores the previous state.
func (v *LikeToggle) Toggle(ctx context.Context, likes store.Likes, contentID, userID string) error {
	prev := *v

	v.Liked = !prev.Liked
	if v.Liked {
		v.Count = prev.Count + 1
	} else if prev.Count > 0 {
		v.Count = prev.Count - 1
	}

	var err error
	if v.Liked {
		err = likes.CreateLike(ctx, contentID, userID)
		if store.IsKind(err, store.KindConflict) {
			*v = LikeToggle{Liked: true, Count: prev.Count}
			return nil
		}
	} else {
		err = likes.DeleteLike(ctx, contentID, userID)
	}
	if err != nil {
		*v = prev
		return err
	}
	return nil
}
