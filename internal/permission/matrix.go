package permission

import "sort"

// Matrix maps each role to its permission set. It is built once and never mutated,
// so concurrent readers need no locking.
type Matrix struct {
	grants map[Role]map[Permission]struct{}
}

// NewMatrix copies grants into an immutable matrix.
func NewMatrix(grants map[Role][]Permission) *Matrix {
	m := &Matrix{grants: make(map[Role]map[Permission]struct{}, len(grants))}
	for role, perms := range grants {
		set := make(map[Permission]struct{}, len(perms))
		for _, p := range perms {
			set[p] = struct{}{}
		}
		m.grants[role] = set
	}
	return m
}

var defaultMatrix = NewMatrix(map[Role][]Permission{
	RoleAdmin: allPermissions,
	RoleEditor: {
		ArticleCreate, ArticleEditOwn, ArticleEditAny, ArticlePublish, ArticleDelete,
		EventCreate, EventEditOwn, EventEditAny, EventPublish,
	},
	RoleContributor: {
		ArticleCreate, ArticleEditOwn,
		EventCreate, EventEditOwn,
	},
	RoleSupport: {
		TicketView, TicketRespond, TicketClose,
		OrderView,
	},
	RoleCommerceOps: {
		OrderView, OrderRefund, ProductManage, PromoManage, AnalyticsView,
	},
	RolePartner: {
		EventCreate, EventEditOwn,
	},
	RoleRunner: {},
})

// DefaultMatrix returns the process-wide matrix.
func DefaultMatrix() *Matrix {
	return defaultMatrix
}

func (m *Matrix) roleHas(role Role, p Permission) bool {
	set, ok := m.grants[role]
	if !ok {
		return false
	}
	_, ok = set[p]
	return ok
}

// HasPermission is true iff some held role grants p.
func (m *Matrix) HasPermission(roles []Role, p Permission) bool {
	for _, r := range roles {
		if m.roleHas(r, p) {
			return true
		}
	}
	return false
}

func (m *Matrix) HasAnyPermission(roles []Role, perms []Permission) bool {
	for _, p := range perms {
		if m.HasPermission(roles, p) {
			return true
		}
	}
	return false
}

// Permissions returns the sorted union of permissions granted by roles.
func (m *Matrix) Permissions(roles []Role) []Permission {
	seen := make(map[Permission]struct{})
	for _, r := range roles {
		for p := range m.grants[r] {
			seen[p] = struct{}{}
		}
	}
	out := make([]Permission, 0, len(seen))
	for p := range seen {
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

func HasRole(roles []Role, role Role) bool {
	for _, r := range roles {
		if r == role {
			return true
		}
	}
	return false
}

func IsStaff(roles []Role) bool {
	for _, r := range roles {
		if r.IsStaff() {
			return true
		}
	}
	return false
}
