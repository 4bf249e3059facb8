// Package storetest provides an in-memory store.Store for handler and view tests.
package storetest

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/EmpoweredVote/collective-backend/internal/store"
	"github.com/google/uuid"
)

// Memory mirrors the GormStore semantics (ordering, like uniqueness, approved-only
// writes) without a database. Calls named in Fail return that error instead.
type Memory struct {
	mu sync.Mutex

	profiles map[string]store.Profile
	content  map[string]store.Content
	comments []store.Comment
	likes    map[[2]string]store.Like

	clock time.Time
	fail  map[string]error
	calls map[string]int
}

func NewMemory() *Memory {
	return &Memory{
		profiles: map[string]store.Profile{},
		content:  map[string]store.Content{},
		likes:    map[[2]string]store.Like{},
		clock:    time.Date(2025, 1, 1, 12, 0, 0, 0, time.UTC),
		fail:     map[string]error{},
		calls:    map[string]int{},
	}
}

// FailOn makes every call to method return err until cleared with a nil err.
func (m *Memory) FailOn(method string, err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err == nil {
		delete(m.fail, method)
		return
	}
	m.fail[method] = err
}

// Calls reports how many times method was invoked.
func (m *Memory) Calls(method string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls[method]
}

// enter must be called with mu held.
func (m *Memory) enter(method string) error {
	m.calls[method]++
	return m.fail[method]
}

// tick hands out strictly increasing timestamps so orderings are deterministic.
func (m *Memory) tick() time.Time {
	m.clock = m.clock.Add(time.Second)
	return m.clock
}

// AddProfile inserts p directly, bypassing failure injection.
func (m *Memory) AddProfile(p store.Profile) store.Profile {
	m.mu.Lock()
	defer m.mu.Unlock()
	if p.ID == "" {
		p.ID = uuid.NewString()
	}
	if p.CreatedAt.IsZero() {
		p.CreatedAt = m.tick()
	}
	p.UpdatedAt = p.CreatedAt
	m.profiles[p.ID] = p
	return p
}

// AddContent inserts a content row directly.
func (m *Memory) AddContent(title, description string) store.Content {
	m.mu.Lock()
	defer m.mu.Unlock()
	c := store.Content{ID: uuid.NewString(), Title: title, Description: description, CreatedAt: m.tick()}
	m.content[c.ID] = c
	return c
}

func (m *Memory) GetProfile(_ context.Context, id string) (store.Profile, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.enter("GetProfile"); err != nil {
		return store.Profile{}, err
	}
	p, ok := m.profiles[id]
	if !ok {
		return store.Profile{}, store.NotFound("profile not found")
	}
	return p, nil
}

func (m *Memory) CreateProfile(_ context.Context, p store.Profile) (store.Profile, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.enter("CreateProfile"); err != nil {
		return p, err
	}
	if _, err := uuid.Parse(p.ID); err != nil {
		return p, store.Invalid("profile id must be a uuid")
	}
	if _, exists := m.profiles[p.ID]; exists {
		return p, store.Conflict("profile already exists", nil)
	}
	if p.CreatedAt.IsZero() {
		p.CreatedAt = m.tick()
	}
	p.UpdatedAt = p.CreatedAt
	m.profiles[p.ID] = p
	return p, nil
}

func (m *Memory) filterProfiles(f store.ProfileFilter) []store.Profile {
	var out []store.Profile
	for _, p := range m.profiles {
		if f.Approved != nil && p.Approved != *f.Approved {
			continue
		}
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool {
		if f.OldestFirst {
			return out[i].CreatedAt.Before(out[j].CreatedAt)
		}
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	return out
}

func (m *Memory) ListProfiles(_ context.Context, f store.ProfileFilter) ([]store.Profile, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.enter("ListProfiles"); err != nil {
		return nil, err
	}
	return m.filterProfiles(f), nil
}

func (m *Memory) CountProfiles(_ context.Context, f store.ProfileFilter) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.enter("CountProfiles"); err != nil {
		return 0, err
	}
	return int64(len(m.filterProfiles(f))), nil
}

func (m *Memory) UpdateProfile(_ context.Context, id string, patch store.ProfilePatch) (store.Profile, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.enter("UpdateProfile"); err != nil {
		return store.Profile{}, err
	}
	p, ok := m.profiles[id]
	if !ok {
		return store.Profile{}, store.NotFound("profile not found")
	}
	p = patch.Apply(p)
	p.UpdatedAt = m.tick()
	m.profiles[id] = p
	return p, nil
}

func (m *Memory) ListContent(_ context.Context) ([]store.Content, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.enter("ListContent"); err != nil {
		return nil, err
	}
	out := make([]store.Content, 0, len(m.content))
	for _, c := range m.content {
		out = append(out, c)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

func (m *Memory) GetContent(_ context.Context, id string) (store.Content, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.enter("GetContent"); err != nil {
		return store.Content{}, err
	}
	c, ok := m.content[id]
	if !ok {
		return store.Content{}, store.NotFound("content not found")
	}
	return c, nil
}

func (m *Memory) CountContent(_ context.Context) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.enter("CountContent"); err != nil {
		return 0, err
	}
	return int64(len(m.content)), nil
}

func (m *Memory) ListComments(_ context.Context, contentID string) ([]store.CommentView, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.enter("ListComments"); err != nil {
		return nil, err
	}
	var out []store.CommentView
	for i := len(m.comments) - 1; i >= 0; i-- {
		c := m.comments[i]
		if c.ContentID != contentID {
			continue
		}
		name := m.profiles[c.UserID].DisplayName
		if name == "" {
			name = store.AnonymousName
		}
		out = append(out, store.CommentView{
			ID:          c.ID,
			ContentID:   c.ContentID,
			UserID:      c.UserID,
			Text:        c.Text,
			CreatedAt:   c.CreatedAt,
			DisplayName: name,
		})
	}
	return out, nil
}

// checkWrite applies the approved-only write policy. mu must be held.
func (m *Memory) checkWrite(contentID, userID string) error {
	p, ok := m.profiles[userID]
	if !ok {
		return store.Forbidden("profile not found")
	}
	if !p.Approved {
		return store.Forbidden("your account is awaiting approval")
	}
	if _, ok := m.content[contentID]; !ok {
		return store.NotFound("content not found")
	}
	return nil
}

func (m *Memory) CreateComment(_ context.Context, c store.Comment) (store.Comment, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.enter("CreateComment"); err != nil {
		return c, err
	}
	if err := m.checkWrite(c.ContentID, c.UserID); err != nil {
		return c, err
	}
	if c.ID == "" {
		c.ID = uuid.NewString()
	}
	c.CreatedAt = m.tick()
	m.comments = append(m.comments, c)
	return c, nil
}

func (m *Memory) CountComments(_ context.Context, contentID string) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.enter("CountComments"); err != nil {
		return 0, err
	}
	var n int64
	for _, c := range m.comments {
		if c.ContentID == contentID {
			n++
		}
	}
	return n, nil
}

func (m *Memory) CreateLike(_ context.Context, contentID, userID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.enter("CreateLike"); err != nil {
		return err
	}
	if err := m.checkWrite(contentID, userID); err != nil {
		return err
	}
	key := [2]string{contentID, userID}
	if _, exists := m.likes[key]; exists {
		return store.Conflict("like already exists", nil)
	}
	m.likes[key] = store.Like{ID: uuid.NewString(), ContentID: contentID, UserID: userID, CreatedAt: m.tick()}
	return nil
}

func (m *Memory) DeleteLike(_ context.Context, contentID, userID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.enter("DeleteLike"); err != nil {
		return err
	}
	delete(m.likes, [2]string{contentID, userID})
	return nil
}

func (m *Memory) CountLikes(_ context.Context, contentID string) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.enter("CountLikes"); err != nil {
		return 0, err
	}
	var n int64
	for key := range m.likes {
		if key[0] == contentID {
			n++
		}
	}
	return n, nil
}

func (m *Memory) HasLiked(_ context.Context, contentID, userID string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.enter("HasLiked"); err != nil {
		return false, err
	}
	_, ok := m.likes[[2]string{contentID, userID}]
	return ok, nil
}

var _ store.Store = (*Memory)(nil)
