// Package collection manages the lifecycle of virtual collections.
//
// A collection lives in the vector store under its physical
// (workspace-prefixed) name and is mirrored by a tracker artifact owned
// by the reserved shared namespace. Callers only ever see logical
// names; the prefix is applied on the way in and stripped on the way
// out.
package collection

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/aicell-lab/collectiond/internal/artifact"
	"github.com/aicell-lab/collectiond/internal/naming"
	"github.com/aicell-lab/collectiond/internal/permission"
	"github.com/aicell-lab/collectiond/internal/vectorstore"
)

// Manager coordinates the vector store and the artifact tracker for
// collection operations.
type Manager struct {
	store   vectorstore.Store
	tracker artifact.Tracker
	checker *permission.Checker
	logger  *zap.Logger
}

// NewManager creates a collection manager.
func NewManager(store vectorstore.Store, tracker artifact.Tracker, checker *permission.Checker, logger *zap.Logger) *Manager {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Manager{
		store:   store,
		tracker: tracker,
		checker: checker,
		logger:  logger.Named("collection"),
	}
}

// Create registers a collection under the caller's namespace and
// mirrors it with a tracker artifact in the shared namespace.
//
// Requires workspace-level admin capability; the check is
// workspace-level because the collection does not exist yet. The
// permission check runs before any remote mutation.
//
// Re-running a partially failed create is safe: a leftover store
// collection or artifact from an earlier attempt is treated as
// already done, so the re-run completes whichever half is missing.
func (m *Manager) Create(ctx context.Context, tenant string, settings vectorstore.Settings) (*vectorstore.Settings, error) {
	if err := m.checker.RequireAdmin(ctx, tenant, ""); err != nil {
		return nil, err
	}

	physical, err := naming.FullName(tenant, settings.Name)
	if err != nil {
		return nil, err
	}

	logical := settings.Name
	physSettings := settings
	physSettings.Name = physical
	if err := m.store.CreateCollection(ctx, physSettings); err != nil && !errors.Is(err, vectorstore.ErrCollectionExists) {
		return nil, err
	}

	art := artifact.Artifact{
		Name:        physical,
		Description: settings.Description,
		Workspace:   naming.SharedWorkspace,
		Metadata: map[string]any{
			"collection_name": logical,
			"workspace":       tenant,
			"vector_size":     settings.VectorSize,
			"distance":        string(settings.Distance),
		},
		Permissions: permission.Build(true, true, false),
	}
	if err := m.tracker.Create(ctx, art); err != nil && !errors.Is(err, artifact.ErrAlreadyExists) {
		return nil, fmt.Errorf("tracking collection %s: %w", logical, err)
	}

	m.logger.Info("collection created",
		zap.String("workspace", tenant),
		zap.String("collection", logical),
	)

	out := settings
	out.Name = logical
	return &out, nil
}

// Delete removes collections and their artifacts. Admin capability is
// checked per collection before anything is deleted; if any check
// fails the whole batch is rejected.
//
// For each collection both the store delete and the artifact delete
// are attempted even if the first fails, so a re-run can finish a
// partial delete.
func (m *Manager) Delete(ctx context.Context, tenant string, names []string) error {
	physicals, err := naming.FullNames(tenant, names)
	if err != nil {
		return err
	}

	for _, physical := range physicals {
		if err := m.checker.RequireAdmin(ctx, tenant, physical); err != nil {
			return err
		}
	}

	var errs []error
	for i, physical := range physicals {
		if err := m.store.DeleteCollection(ctx, physical); err != nil && !errors.Is(err, vectorstore.ErrCollectionNotFound) {
			errs = append(errs, fmt.Errorf("deleting collection %s: %w", names[i], err))
		}
		if err := m.tracker.Delete(ctx, physical, true); err != nil {
			errs = append(errs, fmt.Errorf("deleting artifact for %s: %w", names[i], err))
		}
		m.logger.Info("collection deleted",
			zap.String("workspace", tenant),
			zap.String("collection", names[i]),
		)
	}
	return errors.Join(errs...)
}

// List returns the caller's collections keyed by logical name.
// Requires workspace-level admin capability.
func (m *Manager) List(ctx context.Context, tenant string) (map[string]*vectorstore.CollectionInfo, error) {
	if err := m.checker.RequireAdmin(ctx, tenant, ""); err != nil {
		return nil, err
	}

	all, err := m.store.ListCollections(ctx)
	if err != nil {
		return nil, err
	}

	out := make(map[string]*vectorstore.CollectionInfo)
	for _, physical := range all {
		if !naming.IsInTenant(physical, tenant) {
			continue
		}
		info, err := m.store.GetCollection(ctx, physical)
		if err != nil {
			return nil, err
		}
		logical := naming.ShortName(physical)
		info.Name = logical
		out[logical] = info
	}
	return out, nil
}

// Get returns one collection's metadata. Requires admin capability on
// that collection.
func (m *Manager) Get(ctx context.Context, tenant, name string) (*vectorstore.CollectionInfo, error) {
	physical, err := naming.FullName(tenant, name)
	if err != nil {
		return nil, err
	}
	if err := m.checker.RequireAdmin(ctx, tenant, physical); err != nil {
		return nil, err
	}

	info, err := m.store.GetCollection(ctx, physical)
	if err != nil {
		return nil, err
	}
	info.Name = naming.ShortName(info.Name)
	return info, nil
}

// Exists probes a collection by physical name. Unprivileged; used as a
// precondition check by other managers.
func (m *Manager) Exists(ctx context.Context, physical string) (bool, error) {
	return m.store.CollectionExists(ctx, physical)
}
