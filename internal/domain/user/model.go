package user

import (
	"time"
)

// User represents the persisted identity record. It is created by the auth
// collaborator on signup and never carries credential material.
type User struct {
	ID            string    `json:"id" db:"id" gorm:"primaryKey;type:varchar(64)"`
	Email         string    `json:"email" db:"email" gorm:"uniqueIndex;size:255;not null"`
	Name          *string   `json:"name" db:"name" gorm:"size:100"`
	Image         *string   `json:"image" db:"image"`
	EmailVerified bool      `json:"emailVerified" db:"email_verified" gorm:"not null;default:false"`
	CreatedAt     time.Time `json:"createdAt" db:"created_at" gorm:"index"`
	UpdatedAt     time.Time `json:"updatedAt" db:"updated_at"`
}

// TableName pins the table used by the ORM.
func (User) TableName() string { return "users" }

// Session is a login session owned by the auth collaborator. This service
// reads it to authenticate requests and to count a user's active sessions.
type Session struct {
	ID        string    `json:"id" db:"id" gorm:"primaryKey;type:varchar(64)"`
	Token     string    `json:"-" db:"token" gorm:"uniqueIndex;size:255;not null"`
	UserID    string    `json:"userId" db:"user_id" gorm:"index;type:varchar(64);not null"`
	ExpiresAt time.Time `json:"expiresAt" db:"expires_at" gorm:"index;not null"`
	IPAddress *string   `json:"ipAddress,omitempty" db:"ip_address" gorm:"size:64"`
	UserAgent *string   `json:"userAgent,omitempty" db:"user_agent"`
	CreatedAt time.Time `json:"createdAt" db:"created_at"`
	UpdatedAt time.Time `json:"updatedAt" db:"updated_at"`
	User      *User     `json:"-" db:"-" gorm:"foreignKey:UserID;constraint:OnDelete:CASCADE"`
}

// TableName pins the table used by the ORM.
func (Session) TableName() string { return "sessions" }

// Account links a user to a credential provider.
type Account struct {
	ID         string    `json:"id" gorm:"primaryKey;type:varchar(64)"`
	AccountID  string    `json:"accountId" gorm:"size:255;not null"`
	ProviderID string    `json:"providerId" gorm:"size:64;not null"`
	UserID     string    `json:"userId" gorm:"index;type:varchar(64);not null"`
	Password   *string   `json:"-" gorm:"size:255"`
	CreatedAt  time.Time `json:"createdAt"`
	UpdatedAt  time.Time `json:"updatedAt"`
	User       *User     `json:"-" gorm:"foreignKey:UserID;constraint:OnDelete:CASCADE"`
}

// TableName pins the table used by the ORM.
func (Account) TableName() string { return "accounts" }

// Counts holds derived relation counts for a single user.
type Counts struct {
	Sessions int64  `json:"sessions"`
	Accounts *int64 `json:"accounts,omitempty"`
}

// Detail is a User plus derived counts, returned by single-user lookups.
type Detail struct {
	User
	Count Counts `json:"_count"`
}

// Changes is a partial update. Nil fields are left untouched.
type Changes struct {
	Name      *string
	Email     *string
	UpdatedAt time.Time
}

// Stats aggregates user counts.
type Stats struct {
	Total          int64 `json:"total"`
	Verified       int64 `json:"verified"`
	Unverified     int64 `json:"unverified"`
	RecentlyJoined int64 `json:"recentlyJoined"`
}
