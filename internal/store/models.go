package store

import "time"

const Schema = "collective"

// Profile is the member record created at registration. Its id equals the
// credential user id issued by the auth service.
type Profile struct {
	ID          string     `gorm:"type:uuid;primaryKey" json:"id"`
	Email       string     `gorm:"not null" json:"email"`
	DisplayName string     `json:"display_name"`
	Approved    bool       `gorm:"not null;default:false;index" json:"approved"`
	IsAdmin     bool       `gorm:"not null;default:false" json:"is_admin"`
	ApprovedAt  *time.Time `json:"approved_at,omitempty"`
	RevokedAt   *time.Time `json:"revoked_at,omitempty"`
	CreatedAt   time.Time  `gorm:"index" json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
}

func (Profile) TableName() string { return Schema + ".profiles" }

// Name is how the profile is shown in prompts and lists.
func (p Profile) Name() string {
	if p.DisplayName != "" {
		return p.DisplayName
	}
	if p.Email != "" {
		return p.Email
	}
	return "this user"
}

// Content is read-only to the application; rows come from the seed command.
type Content struct {
	ID          string    `gorm:"type:uuid;primaryKey" json:"id"`
	Title       string    `gorm:"not null;uniqueIndex" json:"title"`
	Description string    `json:"description"`
	CreatedAt   time.Time `gorm:"index" json:"created_at"`
}

func (Content) TableName() string { return Schema + ".content" }

type Comment struct {
	ID        string    `gorm:"type:uuid;primaryKey" json:"id"`
	ContentID string    `gorm:"type:uuid;not null;index" json:"content_id"`
	UserID    string    `gorm:"type:uuid;not null" json:"user_id"`
	Text      string    `gorm:"not null" json:"text"`
	CreatedAt time.Time `gorm:"index" json:"created_at"`

	Content Content `gorm:"foreignKey:ContentID;constraint:OnDelete:CASCADE" json:"-"`
	Profile Profile `gorm:"foreignKey:UserID" json:"-"`
}

func (Comment) TableName() string { return Schema + ".comments" }

// CommentView is a comment joined with its author's display name.
type CommentView struct {
	ID          string    `json:"id"`
	ContentID   string    `json:"content_id"`
	UserID      string    `json:"user_id"`
	Text        string    `json:"text"`
	CreatedAt   time.Time `json:"created_at"`
	DisplayName string    `json:"display_name"`
}

const AnonymousName = "Anonymous"

// Like exists or it doesn't; there is no count column.
type Like struct {
	ID        string    `gorm:"type:uuid;primaryKey" json:"id"`
	ContentID string    `gorm:"type:uuid;not null;uniqueIndex:idx_likes_content_user" json:"content_id"`
	UserID    string    `gorm:"type:uuid;not null;uniqueIndex:idx_likes_content_user" json:"user_id"`
	CreatedAt time.Time `json:"created_at"`

	Content Content `gorm:"foreignKey:ContentID;constraint:OnDelete:CASCADE" json:"-"`
	Profile Profile `gorm:"foreignKey:UserID" json:"-"`
}

func (Like) TableName() string { return Schema + ".likes" }
