// Package rbac decides which roles may perform reviewer-only leave actions.
// Roles come from the token; the policy is loaded into a casbin enforcer.
package rbac

import (
	"fmt"
	"sync"

	"github.com/casbin/casbin/v2"
	"github.com/casbin/casbin/v2/model"
	"go.uber.org/zap"
)

type EnforceRequest struct {
	Role     string
	Resource string
	Action   string
}

//go:generate mockgen -source=rbac_service.go -destination=mock/rbac_service_mock.go -package=mock
type Service interface {
	Enforce(req EnforceRequest) (bool, error)
}

type service struct {
	enforcer *casbin.SyncedEnforcer
	logger   *zap.Logger
}

func NewService(policy Policy, logger ...*zap.Logger) (Service, error) {
	l := zap.L().Named("rbac.service")
	if len(logger) > 0 && logger[0] != nil {
		l = logger[0].Named("rbac.service")
	}

	m, err := model.NewModelFromString(modelText)
	if err != nil {
		return nil, fmt.Errorf("rbac model: %w", err)
	}
	enforcer, err := casbin.NewSyncedEnforcer(m)
	if err != nil {
		return nil, fmt.Errorf("rbac enforcer: %w", err)
	}

	for _, g := range policy.Grants {
		if _, err := enforcer.AddPolicy(g.Role, g.Resource, g.Action); err != nil {
			return nil, fmt.Errorf("rbac grant %s %s/%s: %w", g.Role, g.Resource, g.Action, err)
		}
	}
	for _, in := range policy.Inherits {
		if _, err := enforcer.AddGroupingPolicy(in.Role, in.Parent); err != nil {
			return nil, fmt.Errorf("rbac inherit %s <- %s: %w", in.Role, in.Parent, err)
		}
	}
	l.Debug("rbac policy loaded", zap.Int("grants", len(policy.Grants)), zap.Int("inherits", len(policy.Inherits)))

	return &service{enforcer: enforcer, logger: l}, nil
}

var defaultService = sync.OnceValue(func() Service {
	s, err := NewService(DefaultPolicy())
	if err != nil {
		panic(err)
	}
	return s
})

// Default returns the shared service loaded with DefaultPolicy.
func Default() Service { return defaultService() }

func (s *service) Enforce(req EnforceRequest) (bool, error) {
	if req.Role == "" {
		return false, nil
	}
	return s.enforcer.Enforce(req.Role, req.Resource, req.Action)
}
