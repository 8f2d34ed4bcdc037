package authorization

import (
	_ "embed"
	"errors"
	"fmt"

	"github.com/casbin/casbin/v2"
	casbinmodel "github.com/casbin/casbin/v2/model"
	"github.com/smallbiznis/campus/internal/tenantctx"
	"go.uber.org/fx"
)

//go:embed model.conf
var modelText string

// ErrForbidden means the caller's role does not grant the operation.
var ErrForbidden = errors.New("forbidden")

// Rule grants an action on an object to a role. Lower roles inherit
// nothing; higher roles inherit through the role hierarchy.
type Rule struct {
	Role   string
	Object string
	Action string
}

// Policies is the static grant table seeded at startup.
var Policies = []Rule{
	{tenantctx.RoleMember, "posts", "read"},
	{tenantctx.RoleMember, "posts", "create"},
	{tenantctx.RoleMember, "posts", "update"},
	{tenantctx.RoleMember, "posts", "delete"},
	{tenantctx.RoleMember, "posts", "like"},

	{tenantctx.RoleMember, "comments", "read"},
	{tenantctx.RoleMember, "comments", "create"},
	{tenantctx.RoleMember, "comments", "delete"},

	{tenantctx.RoleMember, "courses", "read"},
	{tenantctx.RolePremiumUser, "courses", "create"},
	{tenantctx.RolePremiumUser, "courses", "update"},
	{tenantctx.RolePremiumUser, "courses", "delete"},

	{tenantctx.RoleMember, "experiments", "read"},
	{tenantctx.RoleInstructor, "experiments", "create"},
	{tenantctx.RoleInstructor, "experiments", "update"},
	{tenantctx.RoleInstructor, "experiments", "delete"},

	{tenantctx.RoleMember, "dashboard", "read"},
}

// roleHierarchy lists parent→child inheritance edges. A parent role is
// granted everything its child role can do.
var roleHierarchy = [][2]string{
	{tenantctx.RoleAdmin, tenantctx.RoleInstructor},
	{tenantctx.RoleInstructor, tenantctx.RolePremiumUser},
	{tenantctx.RolePremiumUser, tenantctx.RoleMember},
}

// Service answers role/object/action authorization questions.
type Service struct {
	enforcer *casbin.SyncedEnforcer
}

// NewService builds an enforcer from the embedded model and the static
// policy table.
func NewService() (*Service, error) {
	m, err := casbinmodel.NewModelFromString(modelText)
	if err != nil {
		return nil, fmt.Errorf("parse authorization model: %w", err)
	}

	enforcer, err := casbin.NewSyncedEnforcer(m)
	if err != nil {
		return nil, fmt.Errorf("build enforcer: %w", err)
	}

	for _, rule := range Policies {
		if _, err := enforcer.AddPolicy(rule.Role, rule.Object, rule.Action); err != nil {
			return nil, fmt.Errorf("seed policy %v: %w", rule, err)
		}
	}
	for _, edge := range roleHierarchy {
		if _, err := enforcer.AddGroupingPolicy(edge[0], edge[1]); err != nil {
			return nil, fmt.Errorf("seed role inheritance %v: %w", edge, err)
		}
	}

	return &Service{enforcer: enforcer}, nil
}

// Authorize reports whether role may perform action on object.
func (s *Service) Authorize(role, object, action string) (bool, error) {
	return s.enforcer.Enforce(tenantctx.NormalizeRole(role), object, action)
}

// Module provides the authorization service.
var Module = fx.Module("authorization",
	fx.Provide(NewService),
)
