package user

import "time"

type User struct {
	ID            string    `gorm:"primaryKey;size:36"`
	Email         string    `gorm:"column:email;uniqueIndex;not null"`
	PasswordHash  string    `gorm:"column:password_hash;not null"`
	DisplayName   string    `gorm:"column:display_name;not null"`
	EmailVerified bool      `gorm:"column:email_verified;not null;default:false"`
	CreatedAt     time.Time `gorm:"column:created_at"`
	UpdatedAt     time.Time `gorm:"column:updated_at"`

	Roles []RoleAssignment `gorm:"foreignKey:UserID;constraint:OnDelete:CASCADE"`
}

func (User) TableName() string {
	return "users"
}

// RoleAssignment is unique per (user_id, role).
type RoleAssignment struct {
	ID         string    `gorm:"primaryKey;size:36"`
	UserID     string    `gorm:"column:user_id;size:36;not null;uniqueIndex:idx_user_roles_user_role"`
	Role       string    `gorm:"column:role;size:32;not null;uniqueIndex:idx_user_roles_user_role"`
	AssignedAt time.Time `gorm:"column:assigned_at;not null"`
	AssignedBy *string   `gorm:"column:assigned_by;size:36"`
}

func (RoleAssignment) TableName() string {
	return "user_roles"
}
