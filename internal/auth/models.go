package auth

import "time"

// Session is a signed-in browser. Several sessions may belong to one user.
type Session struct {
	SessionID string    `gorm:"primaryKey" json:"-"`
	UserID    string    `gorm:"not null;index" json:"-"`
	ExpiresAt time.Time `gorm:"not null"`
	CreatedAt time.Time

	// ReplacedBy is set once the session has been rotated. The row then
	// lives out a short grace window so in-flight requests still resolve.
	ReplacedBy string `gorm:"not null;default:'';index" json:"-"`
}

// Credential is the sign-in identity. Email is stored case-folded.
type Credential struct {
	UserID         string    `gorm:"primaryKey" json:"user_id"`
	Email          string    `gorm:"not null;uniqueIndex" json:"email"`
	HashedPassword string    `gorm:"not null" json:"-"`
	CreatedAt      time.Time `json:"created_at"`
}

func (Session) TableName() string    { return "app_auth.sessions" }
func (Credential) TableName() string { return "app_auth.users" }
