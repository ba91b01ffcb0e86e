package authz

import (
	"context"
	"strings"

	"github.com/google/uuid"

	pkgerrors "github.com/worklane/worklane-backend/pkg/errors"
)

// Capability names one privileged action. Handlers ask for capabilities, not
// roles, so the grant model can change without touching call sites.
type Capability string

const (
	CapDecidePayouts  Capability = "payouts:decide"
	CapManageGateways Capability = "gateways:manage"
	CapManageCoupons  Capability = "coupons:manage"
)

// Actor is the authenticated identity attached to a request.
type Actor struct {
	UserID uuid.UUID
	Email  string
}

// Authorizer answers whether an actor holds a capability.
type Authorizer interface {
	Can(ctx context.Context, actor Actor, capability Capability) error
}

type adminEmailAuthorizer struct {
	admins map[string]struct{}
}

// NewAdminEmailAuthorizer grants every capability to the configured admin
// email addresses and nothing to anyone else.
func NewAdminEmailAuthorizer(adminEmails []string) Authorizer {
	admins := make(map[string]struct{}, len(adminEmails))
	for _, email := range adminEmails {
		normalized := normalizeEmail(email)
		if normalized != "" {
			admins[normalized] = struct{}{}
		}
	}
	return &adminEmailAuthorizer{admins: admins}
}

func (a *adminEmailAuthorizer) Can(ctx context.Context, actor Actor, capability Capability) error {
	if actor.UserID == uuid.Nil {
		return pkgerrors.New(pkgerrors.CodeUnauthorized, "user identity missing")
	}
	if _, ok := a.admins[normalizeEmail(actor.Email)]; !ok {
		return pkgerrors.New(pkgerrors.CodeForbidden, "missing capability "+string(capability))
	}
	return nil
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
