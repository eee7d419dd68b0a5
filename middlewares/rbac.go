package middlewares

import (
	"fmt"
	"net/http"

	"codegalaxy/internal/logger"

	"github.com/casbin/casbin/v2"
	"github.com/casbin/casbin/v2/model"
	mongodbadapter "github.com/casbin/mongodb-adapter/v3"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

const rbacModel = `
[request_definition]
r = sub, obj, act

[policy_definition]
p = sub, obj, act

[role_definition]
g = _, _

[policy_effect]
e = some(where (p.eft == allow))

[matchers]
m = g(r.sub, p.sub) && r.obj == p.obj && r.act == p.act
`

// Admin resources and actions guarded by casbin
const (
	ResourceStats     = "stats"
	ResourceAnalytics = "analytics"
	ResourceUsers     = "users"
	ResourceReviews   = "reviews"
	ResourceModels    = "models"
	ResourceLogs      = "logs"
	ResourceEmail     = "email"

	ActionRead  = "read"
	ActionWrite = "write"
)

var defaultPolicies = [][3]string{
	{"admin", ResourceStats, ActionRead},
	{"admin", ResourceAnalytics, ActionRead},
	{"admin", ResourceUsers, ActionRead},
	{"admin", ResourceUsers, ActionWrite},
	{"admin", ResourceReviews, ActionRead},
	{"admin", ResourceReviews, ActionWrite},
	{"admin", ResourceModels, ActionRead},
	{"admin", ResourceModels, ActionWrite},
	{"admin", ResourceLogs, ActionRead},
	{"admin", ResourceEmail, ActionWrite},
}

// Authorizer checks session roles against casbin policies.
type Authorizer struct {
	enforcer *casbin.Enforcer
	persist  bool
	log      *zap.Logger
}

// NewAuthorizer stores policies in the casbin_rule collection of mongoURI.
func NewAuthorizer(mongoURI string, log *zap.Logger) (*Authorizer, error) {
	adapter, err := mongodbadapter.NewAdapter(mongoURI)
	if err != nil {
		return nil, fmt.Errorf("failed to create Casbin adapter: %w", err)
	}
	m, err := model.NewModelFromString(rbacModel)
	if err != nil {
		return nil, fmt.Errorf("failed to create Casbin model: %w", err)
	}
	enforcer, err := casbin.NewEnforcer(m, adapter)
	if err != nil {
		return nil, fmt.Errorf("failed to create Casbin enforcer: %w", err)
	}
	a := &Authorizer{enforcer: enforcer, persist: true, log: logger.OrNop(log)}
	if err := a.ensureDefaultPolicies(); err != nil {
		return nil, err
	}
	return a, nil
}

// NewLocalAuthorizer keeps the default policies in memory only.
func NewLocalAuthorizer(log *zap.Logger) (*Authorizer, error) {
	m, err := model.NewModelFromString(rbacModel)
	if err != nil {
		return nil, fmt.Errorf("failed to create Casbin model: %w", err)
	}
	enforcer, err := casbin.NewEnforcer(m)
	if err != nil {
		return nil, fmt.Errorf("failed to create Casbin enforcer: %w", err)
	}
	a := &Authorizer{enforcer: enforcer, log: logger.OrNop(log)}
	if err := a.ensureDefaultPolicies(); err != nil {
		return nil, err
	}
	return a, nil
}

// ensureDefaultPolicies adds any missing default policy.
func (a *Authorizer) ensureDefaultPolicies() error {
	added := 0
	for _, p := range defaultPolicies {
		exists, err := a.enforcer.HasPolicy(p[0], p[1], p[2])
		if err != nil {
			return fmt.Errorf("failed to check policy: %w", err)
		}
		if exists {
			continue
		}
		if _, err := a.enforcer.AddPolicy(p[0], p[1], p[2]); err != nil {
			return fmt.Errorf("failed to add policy: %w", err)
		}
		added++
	}
	if added > 0 && a.persist {
		if err := a.enforcer.SavePolicy(); err != nil {
			a.log.Warn("failed to save casbin policies", zap.Error(err))
		}
	}
	if added > 0 {
		a.log.Info("casbin default policies added", zap.Int("count", added))
	}
	return nil
}

// Allowed reports whether role may perform action on resource.
func (a *Authorizer) Allowed(role, resource, action string) (bool, error) {
	return a.enforcer.Enforce(role, resource, action)
}

// Require must run after AuthMiddleware.
func (a *Authorizer) Require(resource, action string) gin.HandlerFunc {
	return func(c *gin.Context) {
		session, ok := CurrentSession(c)
		if !ok {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Authentication required"})
			return
		}
		allowed, err := a.Allowed(session.Role, resource, action)
		if err != nil {
			a.log.Error("casbin enforce failed", zap.String("resource", resource), zap.Error(err))
			c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "Permission check failed"})
			return
		}
		if !allowed {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "Insufficient permissions"})
			return
		}
		c.Next()
	}
}
