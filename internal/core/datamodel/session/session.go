package session

import (
	"time"

	"github.com/Merchously/iRun/internal/core/datamodel/user"
)

// Session rows are keyed by the opaque token itself.
type Session struct {
	ID        string    `gorm:"primaryKey;size:64" db:"id"`
	UserID    string    `gorm:"column:user_id;size:36;not null;index" db:"user_id"`
	ExpiresAt time.Time `gorm:"column:expires_at;not null;index" db:"expires_at"`

	User *user.User `gorm:"foreignKey:UserID;constraint:OnDelete:CASCADE" db:"-"`
}

func (Session) TableName() string {
	return "sessions"
}
