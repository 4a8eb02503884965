package valueobject

import (
	"fmt"
	"strings"

	"github.com/ignatzorin/feedback-escalation/internal/pkg/apperror"
)

// ApproverRole обозначает одну из четырёх ролей, чьё согласование нужно для архивации
// критичного обращения.
type ApproverRole string

const (
	RoleCEO      ApproverRole = "ceo"
	RoleVP       ApproverRole = "vp"
	RoleDirector ApproverRole = "director"
	RoleDM       ApproverRole = "dm"
)

var requiredRoles = []ApproverRole{RoleCEO, RoleVP, RoleDirector, RoleDM}

// RequiredRoles возвращает полный кворум в каноническом порядке.
func RequiredRoles() []ApproverRole {
	out := make([]ApproverRole, len(requiredRoles))
	copy(out, requiredRoles)
	return out
}

func (r ApproverRole) IsValid() bool {
	switch r {
	case RoleCEO, RoleVP, RoleDirector, RoleDM:
		return true
	}
	return false
}

func (r ApproverRole) Label() string {
	switch r {
	case RoleCEO:
		return "CEO"
	case RoleVP:
		return "VP"
	case RoleDirector:
		return "Director"
	case RoleDM:
		return "DM"
	}
	return string(r)
}

func (r ApproverRole) String() string {
	return string(r)
}

// ParseApproverRole нормализует роль без учёта регистра.
func ParseApproverRole(role string) (ApproverRole, error) {
	r := ApproverRole(strings.ToLower(strings.TrimSpace(role)))
	if !r.IsValid() {
		return "", apperror.New(
			apperror.ErrCodeIneligibleRole,
			fmt.Sprintf("role %q cannot approve critical feedback; allowed roles: %s", role, JoinRoleLabels(requiredRoles)),
		).WithDetails(map[string]interface{}{
			"role":          role,
			"allowed_roles": requiredRoles,
		})
	}
	return r, nil
}

// JoinRoleLabels форматирует роли для человека: "VP, DM".
func JoinRoleLabels(roles []ApproverRole) string {
	labels := make([]string, 0, len(roles))
	for _, r := range roles {
		labels = append(labels, r.Label())
	}
	return strings.Join(labels, ", ")
}
