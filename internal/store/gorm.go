package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	appdb "github.com/EmpoweredVote/collective-backend/internal/db"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Postgres error codes the store translates.
const (
	pgUniqueViolation       = "23505"
	pgForeignKeyViolation   = "23503"
	pgInsufficientPrivilege = "42501"
	pgInvalidTextRepr       = "22P02"
)

// GormStore is the Postgres-backed Store.
type GormStore struct {
	db *gorm.DB
}

func NewGormStore(db *gorm.DB) *GormStore {
	return &GormStore{db: db}
}

// translate maps driver and GORM errors onto store kinds.
func translate(err error, what string) error {
	if err == nil {
		return nil
	}
	var se *Error
	if errors.As(err, &se) {
		return err
	}
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return NotFound(what + " not found")
	}
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return Unavailable("data store did not respond", err)
	}
	var connErr *pgconn.ConnectError
	if errors.As(err, &connErr) {
		return Unavailable("data store is unreachable", err)
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case pgUniqueViolation:
			return Conflict(what+" already exists", err)
		case pgForeignKeyViolation:
			return NotFound("referenced row for " + what + " not found")
		case pgInsufficientPrivilege:
			return Forbidden("not allowed to modify " + what)
		case pgInvalidTextRepr:
			return Invalid("invalid " + what + " identifier")
		}
	}
	return Internal("failed to access "+what, err)
}

// validID rejects ids Postgres would refuse to cast, so a malformed id
// reads as a missing row.
func validID(id string) bool {
	_, err := uuid.Parse(id)
	return err == nil
}

func (s *GormStore) GetProfile(ctx context.Context, id string) (Profile, error) {
	var p Profile
	if !validID(id) {
		return p, NotFound("profile not found")
	}
	err := s.db.WithContext(ctx).First(&p, "id = ?", id).Error
	return p, translate(err, "profile")
}

func (s *GormStore) CreateProfile(ctx context.Context, p Profile) (Profile, error) {
	if !validID(p.ID) {
		return p, Invalid("profile id must be a uuid")
	}
	err := s.db.WithContext(ctx).Create(&p).Error
	return p, translate(err, "profile")
}

func (s *GormStore) profileQuery(ctx context.Context, f ProfileFilter) *gorm.DB {
	q := s.db.WithContext(ctx).Model(&Profile{})
	if f.Approved != nil {
		q = q.Where("approved = ?", *f.Approved)
	}
	return q
}

func (s *GormStore) ListProfiles(ctx context.Context, f ProfileFilter) ([]Profile, error) {
	order := "created_at DESC"
	if f.OldestFirst {
		order = "created_at ASC"
	}
	var out []Profile
	err := s.profileQuery(ctx, f).Order(order).Find(&out).Error
	return out, translate(err, "profiles")
}

func (s *GormStore) CountProfiles(ctx context.Context, f ProfileFilter) (int64, error) {
	var n int64
	err := s.profileQuery(ctx, f).Count(&n).Error
	return n, translate(err, "profiles")
}

func (s *GormStore) UpdateProfile(ctx context.Context, id string, patch ProfilePatch) (Profile, error) {
	if !validID(id) {
		return Profile{}, NotFound("profile not found")
	}
	if patch.Empty() {
		return s.GetProfile(ctx, id)
	}

	updates := map[string]any{}
	if patch.Approved != nil {
		updates["approved"] = *patch.Approved
	}
	if patch.IsAdmin != nil {
		updates["is_admin"] = *patch.IsAdmin
	}
	if patch.ApprovedAt != nil {
		updates["approved_at"] = *patch.ApprovedAt
	}
	if patch.RevokedAt != nil {
		updates["revoked_at"] = *patch.RevokedAt
	}

	var p Profile
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Model(&Profile{}).Where("id = ?", id).Updates(updates)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return gorm.ErrRecordNotFound
		}
		return tx.First(&p, "id = ?", id).Error
	})
	return p, translate(err, "profile")
}

func (s *GormStore) ListContent(ctx context.Context) ([]Content, error) {
	var out []Content
	err := s.db.WithContext(ctx).Order("created_at DESC").Find(&out).Error
	return out, translate(err, "content")
}

func (s *GormStore) GetContent(ctx context.Context, id string) (Content, error) {
	var c Content
	if !validID(id) {
		return c, NotFound("content not found")
	}
	err := s.db.WithContext(ctx).First(&c, "id = ?", id).Error
	return c, translate(err, "content")
}

func (s *GormStore) CountContent(ctx context.Context) (int64, error) {
	var n int64
	err := s.db.WithContext(ctx).Model(&Content{}).Count(&n).Error
	return n, translate(err, "content")
}

func (s *GormStore) ListComments(ctx context.Context, contentID string) ([]CommentView, error) {
	var out []CommentView
	if !validID(contentID) {
		return out, nil
	}
	err := s.db.WithContext(ctx).
		Table(Comment{}.TableName()+" AS c").
		Select("c.id, c.content_id, c.user_id, c.text, c.created_at, "+
			"COALESCE(NULLIF(p.display_name, ''), ?) AS display_name", AnonymousName).
		Joins("LEFT JOIN "+Profile{}.TableName()+" AS p ON p.id = c.user_id").
		Where("c.content_id = ?", contentID).
		Order("c.created_at DESC").
		Scan(&out).Error
	return out, translate(err, "comments")
}

// requireApproved is the write policy for member interactions.
func requireApproved(tx *gorm.DB, userID string) error {
	var p Profile
	if err := tx.Select("id", "approved").First(&p, "id = ?", userID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return Forbidden("profile not found")
		}
		return err
	}
	if !p.Approved {
		return Forbidden("your account is awaiting approval")
	}
	return nil
}

func (s *GormStore) CreateComment(ctx context.Context, c Comment) (Comment, error) {
	if !validID(c.ContentID) {
		return c, NotFound("content not found")
	}
	if !validID(c.UserID) {
		return c, Forbidden("profile not found")
	}
	if c.ID == "" {
		c.ID = uuid.NewString()
	}
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := requireApproved(tx, c.UserID); err != nil {
			return err
		}
		return tx.Omit(clause.Associations).Create(&c).Error
	})
	return c, translate(err, "comment")
}

func (s *GormStore) CountComments(ctx context.Context, contentID string) (int64, error) {
	var n int64
	if !validID(contentID) {
		return 0, nil
	}
	err := s.db.WithContext(ctx).Model(&Comment{}).Where("content_id = ?", contentID).Count(&n).Error
	return n, translate(err, "comments")
}

func (s *GormStore) CreateLike(ctx context.Context, contentID, userID string) error {
	if !validID(contentID) {
		return NotFound("content not found")
	}
	if !validID(userID) {
		return Forbidden("profile not found")
	}
	like := Like{ID: uuid.NewString(), ContentID: contentID, UserID: userID, CreatedAt: time.Now()}
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := requireApproved(tx, userID); err != nil {
			return err
		}
		return tx.Omit(clause.Associations).Create(&like).Error
	})
	return translate(err, "like")
}

func (s *GormStore) DeleteLike(ctx context.Context, contentID, userID string) error {
	if !validID(contentID) || !validID(userID) {
		return nil
	}
	err := s.db.WithContext(ctx).
		Where("content_id = ? AND user_id = ?", contentID, userID).
		Delete(&Like{}).Error
	return translate(err, "like")
}

func (s *GormStore) CountLikes(ctx context.Context, contentID string) (int64, error) {
	var n int64
	if !validID(contentID) {
		return 0, nil
	}
	err := s.db.WithContext(ctx).Model(&Like{}).Where("content_id = ?", contentID).Count(&n).Error
	return n, translate(err, "likes")
}

func (s *GormStore) HasLiked(ctx context.Context, contentID, userID string) (bool, error) {
	if !validID(contentID) || !validID(userID) {
		return false, nil
	}
	var n int64
	err := s.db.WithContext(ctx).Model(&Like{}).
		Where("content_id = ? AND user_id = ?", contentID, userID).
		Count(&n).Error
	return n > 0, translate(err, "likes")
}

// Migrate creates the schema, tables and indexes the store relies on.
func Migrate(db *gorm.DB) error {
	if err := appdb.EnsureSchema(db, Schema); err != nil {
		return fmt.Errorf("ensure schema %s: %w", Schema, err)
	}
	if err := db.AutoMigrate(&Profile{}, &Content{}, &Comment{}, &Like{}); err != nil {
		return fmt.Errorf("auto-migrate %s tables: %w", Schema, err)
	}
	if err := db.Exec(`
		CREATE INDEX IF NOT EXISTS idx_comments_content_created
		ON ` + Comment{}.TableName() + ` (content_id, created_at DESC);
	`).Error; err != nil {
		return fmt.Errorf("create idx_comments_content_created: %w", err)
	}
	return nil
}

var _ Store = (*GormStore)(nil)
