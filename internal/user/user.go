package user

import (
	"time"

	userDatamodel "github.com/Merchously/iRun/internal/core/datamodel/user"
	"github.com/Merchously/iRun/internal/permission"
)

type User struct {
	ID            string                  `json:"id"`
	Email         string                  `json:"email"`
	DisplayName   string                  `json:"display_name"`
	EmailVerified bool                    `json:"email_verified"`
	Roles         []permission.Role       `json:"roles"`
	Permissions   []permission.Permission `json:"permissions"`
	CreatedAt     time.Time               `json:"created_at"`
	UpdatedAt     time.Time               `json:"updated_at"`
}

func (u *User) HasRole(role permission.Role) bool {
	return permission.HasRole(u.Roles, role)
}

type RoleAssignment struct {
	UserID     string          `json:"user_id"`
	Role       permission.Role `json:"role"`
	AssignedAt time.Time       `json:"assigned_at"`
	AssignedBy *string         `json:"assigned_by,omitempty"`
}

// AssignRoleDTO is the body of POST /admin/users/{id}/roles.
type AssignRoleDTO struct {
	Role string `json:"role"`
}

// FromDataModel derives the permission set from the stored roles using m.
func FromDataModel(u *userDatamodel.User, m *permission.Matrix) *User {
	names := make([]string, 0, len(u.Roles))
	for _, ra := range u.Roles {
		names = append(names, ra.Role)
	}
	roles := permission.ToRoles(names)
	return &User{
		ID:            u.ID,
		Email:         u.Email,
		DisplayName:   u.DisplayName,
		EmailVerified: u.EmailVerified,
		Roles:         roles,
		Permissions:   m.Permissions(roles),
		CreatedAt:     u.CreatedAt,
		UpdatedAt:     u.UpdatedAt,
	}
}

func assignmentFromDataModel(ra *userDatamodel.RoleAssignment) *RoleAssignment {
	return &RoleAssignment{
		UserID:     ra.UserID,
		Role:       permission.Role(ra.Role),
		AssignedAt: ra.AssignedAt,
		AssignedBy: ra.AssignedBy,
	}
}
