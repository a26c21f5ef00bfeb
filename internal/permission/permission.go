// Package permission computes access-control descriptors and answers
// admin-capability questions for workspaces.
//
// Descriptors are built from three boolean capability flags and use
// symbolic principals rather than concrete identities, so the tracker
// can resolve them against whichever workspace owns the artifact. The
// Checker combines a deployment-injected allow-list of privileged
// workspaces with per-collection admin lists held by the artifact
// tracker. Checks are never memoized: the tracker is a trust boundary,
// not a cache.
package permission

import (
	"context"
	"errors"

	"go.uber.org/zap"

	"github.com/aicell-lab/collectiond/internal/artifact"
)

// Symbolic principals used in permission descriptors.
const (
	// PrincipalEveryone grants the capability to all workspaces.
	PrincipalEveryone = "*"

	// PrincipalOwner resolves to the artifact's owning workspace.
	PrincipalOwner = "$OWNER"

	// PrincipalAdmin resolves to the deployment's admin workspaces.
	PrincipalAdmin = "$ADMIN"
)

// ErrPermissionDenied is returned when a caller lacks a required
// capability.
var ErrPermissionDenied = errors.New("permission denied")

// Build computes a permission descriptor from capability flags.
//
// The base descriptor grants public or owner-only read and nothing
// else. The owner flag adds write (and private read); the admin flag
// adds admin and write (and private read). Entry order is fixed so
// descriptors compare deterministically.
//
// On a public descriptor the owner is still listed explicitly in read
// alongside "*"; on a private one the base entry already names the
// owner, so no second entry is added. Either way each principal
// appears at most once and the owner can always read.
func Build(owner, admin, readPublic bool) artifact.Permissions {
	perms := artifact.Permissions{
		Write: []string{},
		Admin: []string{},
	}
	if readPublic {
		perms.Read = []string{PrincipalEveryone}
	} else {
		perms.Read = []string{PrincipalOwner}
	}

	if owner {
		perms.Write = append(perms.Write, PrincipalOwner)
		// The base read entry already covers the owner when private.
		if readPublic {
			perms.Read = append(perms.Read, PrincipalOwner)
		}
	}
	if admin {
		perms.Admin = append(perms.Admin, PrincipalAdmin)
		perms.Write = append(perms.Write, PrincipalAdmin)
		if !readPublic {
			perms.Read = append(perms.Read, PrincipalAdmin)
		}
	}
	return perms
}

// Checker answers admin-capability questions.
type Checker struct {
	adminTenants map[string]struct{}
	tracker      artifact.Tracker
	logger       *zap.Logger
}

// NewChecker creates a checker with an explicit admin allow-list.
// The list is fixed for the checker's lifetime; deployments that need
// a different list construct a different checker.
func NewChecker(adminTenants []string, tracker artifact.Tracker, logger *zap.Logger) *Checker {
	if logger == nil {
		logger = zap.NewNop()
	}
	set := make(map[string]struct{}, len(adminTenants))
	for _, tenant := range adminTenants {
		set[tenant] = struct{}{}
	}
	return &Checker{
		adminTenants: set,
		tracker:      tracker,
		logger:       logger,
	}
}

// IsAdminTenant reports whether the workspace is on the deployment's
// admin allow-list.
func (c *Checker) IsAdminTenant(tenant string) bool {
	_, ok := c.adminTenants[tenant]
	return ok
}

// IsAdmin reports whether the workspace holds admin capability, either
// globally or on the artifact named by artifactName. An empty
// artifactName restricts the check to the allow-list.
//
// Any tracker failure (not found, transport) counts as "not admin":
// the check fails closed.
func (c *Checker) IsAdmin(ctx context.Context, tenant, artifactName string) bool {
	if c.IsAdminTenant(tenant) {
		return true
	}
	if artifactName == "" || c.tracker == nil {
		return false
	}

	art, err := c.tracker.Read(ctx, artifactName)
	if err != nil {
		c.logger.Debug("admin check failed closed",
			zap.String("tenant", tenant),
			zap.String("artifact", artifactName),
			zap.Error(err),
		)
		return false
	}
	for _, principal := range art.Permissions.Admin {
		if principal == tenant {
			return true
		}
		if principal == PrincipalOwner && art.Workspace == tenant {
			return true
		}
	}
	return false
}

// RequireAdmin returns ErrPermissionDenied unless IsAdmin holds.
func (c *Checker) RequireAdmin(ctx context.Context, tenant, artifactName string) error {
	if !c.IsAdmin(ctx, tenant, artifactName) {
		c.logger.Info("permission denied",
			zap.String("tenant", tenant),
			zap.String("artifact", artifactName),
		)
		return ErrPermissionDenied
	}
	return nil
}
