package auth

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	"gorm.io/gorm"
)

var ErrRecordNotFound = errors.New("auth: record not found")

// Repository stores credentials and sessions.
type Repository interface {
	FindCredentialByEmail(ctx context.Context, email string) (Credential, error)
	CreateCredential(ctx context.Context, c Credential) error
	DeleteCredential(ctx context.Context, userID string) error

	FindSessionByID(ctx context.Context, id string) (Session, error)
	CreateSession(ctx context.Context, s Session) error
	// RotateSession creates next and marks oldID as replaced by it, cutting
	// its expiry to graceUntil. It fails with ErrRecordNotFound when oldID is
	// gone or was already rotated.
	RotateSession(ctx context.Context, oldID string, next Session, graceUntil time.Time) error
	// DeleteSession deletes id and any session it replaced.
	DeleteSession(ctx context.Context, id string) error
}

type GormRepository struct {
	db *gorm.DB
}

func NewGormRepository(db *gorm.DB) *GormRepository {
	return &GormRepository{db: db}
}

func notFound(err error) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return ErrRecordNotFound
	}
	return err
}

func (r *GormRepository) FindCredentialByEmail(ctx context.Context, email string) (Credential, error) {
	var c Credential
	err := r.db.WithContext(ctx).First(&c, "email = ?", email).Error
	return c, notFound(err)
}

func (r *GormRepository) CreateCredential(ctx context.Context, c Credential) error {
	err := r.db.WithContext(ctx).Create(&c).Error
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == "23505" {
		return ErrUserExists
	}
	return err
}

func (r *GormRepository) DeleteCredential(ctx context.Context, userID string) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("user_id = ?", userID).Delete(&Session{}).Error; err != nil {
			return err
		}
		return tx.Where("user_id = ?", userID).Delete(&Credential{}).Error
	})
}

func (r *GormRepository) FindSessionByID(ctx context.Context, id string) (Session, error) {
	var s Session
	err := r.db.WithContext(ctx).First(&s, "session_id = ?", id).Error
	return s, notFound(err)
}

func (r *GormRepository) CreateSession(ctx context.Context, s Session) error {
	return r.db.WithContext(ctx).Create(&s).Error
}

func (r *GormRepository) RotateSession(ctx context.Context, oldID string, next Session, graceUntil time.Time) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Model(&Session{}).
			Where("session_id = ? AND replaced_by = ''", oldID).
			Updates(map[string]any{"replaced_by": next.SessionID, "expires_at": graceUntil})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return fmt.Errorf("rotate session: %w", ErrRecordNotFound)
		}
		return tx.Create(&next).Error
	})
}

func (r *GormRepository) DeleteSession(ctx context.Context, id string) error {
	return r.db.WithContext(ctx).Where("session_id = ? OR replaced_by = ?", id, id).Delete(&Session{}).Error
}
