package permission

type Role string

const (
	RoleAdmin       Role = "admin"
	RoleEditor      Role = "editor"
	RoleContributor Role = "contributor"
	RoleSupport     Role = "support"
	RoleCommerceOps Role = "commerce_ops"
	RolePartner     Role = "partner"
	RoleRunner      Role = "runner"
)

// DefaultRole is granted at registration.
const DefaultRole = RoleRunner

var allRoles = []Role{RoleAdmin, RoleEditor, RoleContributor, RoleSupport, RoleCommerceOps, RolePartner, RoleRunner}

// staffRoles are the internal roles that may enter the admin area.
var staffRoles = map[Role]struct{}{
	RoleAdmin:       {},
	RoleEditor:      {},
	RoleContributor: {},
	RoleSupport:     {},
	RoleCommerceOps: {},
}

// Roles lists every known role.
func Roles() []Role {
	out := make([]Role, len(allRoles))
	copy(out, allRoles)
	return out
}

func (r Role) Valid() bool {
	for _, known := range allRoles {
		if r == known {
			return true
		}
	}
	return false
}

func (r Role) IsStaff() bool {
	_, ok := staffRoles[r]
	return ok
}

// Permission is a dotted resource.action token.
type Permission string

const (
	ArticleCreate  Permission = "article.create"
	ArticleEditOwn Permission = "article.edit_own"
	ArticleEditAny Permission = "article.edit_any"
	ArticlePublish Permission = "article.publish"
	ArticleDelete  Permission = "article.delete"
	OrderView      Permission = "order.view"
	OrderRefund    Permission = "order.refund"
	ProductManage  Permission = "product.manage"
	PromoManage    Permission = "promo.manage"
	TicketView     Permission = "ticket.view"
	TicketRespond  Permission = "ticket.respond"
	TicketClose    Permission = "ticket.close"
	EventCreate    Permission = "event.create"
	EventEditOwn   Permission = "event.edit_own"
	EventEditAny   Permission = "event.edit_any"
	EventPublish   Permission = "event.publish"
	EventDelete    Permission = "event.delete"
	UserManage     Permission = "user.manage"
	RoleAssign     Permission = "role.assign"
	AuditView      Permission = "audit.view"
	AnalyticsView  Permission = "analytics.view"
)

var allPermissions = []Permission{
	ArticleCreate, ArticleEditOwn, ArticleEditAny, ArticlePublish, ArticleDelete,
	OrderView, OrderRefund, ProductManage, PromoManage,
	TicketView, TicketRespond, TicketClose,
	EventCreate, EventEditOwn, EventEditAny, EventPublish, EventDelete,
	UserManage, RoleAssign, AuditView, AnalyticsView,
}

// All lists every permission token.
func All() []Permission {
	out := make([]Permission, len(allPermissions))
	copy(out, allPermissions)
	return out
}

// ToRoles converts stored role names; unknown names are kept and simply grant nothing.
func ToRoles(names []string) []Role {
	roles := make([]Role, 0, len(names))
	for _, n := range names {
		roles = append(roles, Role(n))
	}
	return roles
}
