package store

import "context"

// UnavailableStore answers every call with KindUnavailable. It stands in for the
// Postgres store when the server runs without database configuration.
type UnavailableStore struct{}

var errNotConfigured = newError(KindUnavailable, "data store is not configured", nil)

func (UnavailableStore) GetProfile(context.Context, string) (Profile, error) {
	return Profile{}, errNotConfigured
}

func (UnavailableStore) CreateProfile(_ context.Context, p Profile) (Profile, error) {
	return p, errNotConfigured
}

func (UnavailableStore) ListProfiles(context.Context, ProfileFilter) ([]Profile, error) {
	return nil, errNotConfigured
}

func (UnavailableStore) CountProfiles(context.Context, ProfileFilter) (int64, error) {
	return 0, errNotConfigured
}

func (UnavailableStore) UpdateProfile(context.Context, string, ProfilePatch) (Profile, error) {
	return Profile{}, errNotConfigured
}

func (UnavailableStore) ListContent(context.Context) ([]Content, error) { return nil, errNotConfigured }

func (UnavailableStore) GetContent(context.Context, string) (Content, error) {
	return Content{}, errNotConfigured
}

func (UnavailableStore) CountContent(context.Context) (int64, error) { return 0, errNotConfigured }

func (UnavailableStore) ListComments(context.Context, string) ([]CommentView, error) {
	return nil, errNotConfigured
}

func (UnavailableStore) CreateComment(_ context.Context, c Comment) (Comment, error) {
	return c, errNotConfigured
}

func (UnavailableStore) CountComments(context.Context, string) (int64, error) {
	return 0, errNotConfigured
}

func (UnavailableStore) CreateLike(context.Context, string, string) error { return errNotConfigured }

func (UnavailableStore) DeleteLike(context.Context, string, string) error { return errNotConfigured }

func (UnavailableStore) CountLikes(context.Context, string) (int64, error) { return 0, errNotConfigured }

func (UnavailableStore) HasLiked(context.Context, string, string) (bool, error) {
	return false, errNotConfigured
}

var _ Store = UnavailableStore{}
