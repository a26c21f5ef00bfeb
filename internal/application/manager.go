// Package application manages applications: logical partitions of a
// collection selected by an application_id tag.
//
// An application is represented twice: as a child artifact under the
// collection's artifact (ownership, description, metadata) and as the
// application_id tag stamped onto every data object written under it.
// Deleting an application must remove both, otherwise orphaned data
// stays matchable by stale filters if the id is reused.
package application

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/aicell-lab/collectiond/internal/artifact"
	"github.com/aicell-lab/collectiond/internal/naming"
	"github.com/aicell-lab/collectiond/internal/permission"
	"github.com/aicell-lab/collectiond/internal/vectorstore"
)

// Info describes an application.
type Info struct {
	ApplicationID  string `json:"application_id"`
	CollectionName string `json:"collection_name"`
	Description    string `json:"description,omitempty"`
	Owner          string `json:"owner"`
	ArtifactName   string `json:"artifact_name"`
}

// Manager coordinates application lifecycle across the vector store and
// the artifact tracker.
type Manager struct {
	store   vectorstore.Store
	tracker artifact.Tracker
	logger  *zap.Logger
}

// NewManager creates an application manager.
func NewManager(store vectorstore.Store, tracker artifact.Tracker, logger *zap.Logger) *Manager {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Manager{
		store:   store,
		tracker: tracker,
		logger:  logger.Named("application"),
	}
}

// Create registers an application in a collection.
//
// The collection must already exist. The caller's tenant partition is
// created if absent, then the application artifact is registered with
// owner-only permissions. Creating the same application twice fails
// with artifact.ErrAlreadyExists.
func (m *Manager) Create(ctx context.Context, tenant, collectionName, applicationID, description string) (*Info, error) {
	physical, err := naming.FullName(tenant, collectionName)
	if err != nil {
		return nil, err
	}
	artName, err := naming.ApplicationArtifactName(physical, applicationID)
	if err != nil {
		return nil, err
	}

	exists, err := m.store.CollectionExists(ctx, physical)
	if err != nil {
		return nil, fmt.Errorf("checking collection %s: %w", collectionName, err)
	}
	if !exists {
		return nil, fmt.Errorf("%w: %s", vectorstore.ErrCollectionNotFound, collectionName)
	}

	if err := m.store.EnsureTenant(ctx, physical, naming.PartitionName(tenant)); err != nil {
		return nil, fmt.Errorf("ensuring partition for %s: %w", tenant, err)
	}

	err = m.tracker.Create(ctx, artifact.Artifact{
		Name:        artName,
		Description: description,
		Workspace:   tenant,
		ParentID:    physical,
		Metadata: map[string]any{
			"application_id":  applicationID,
			"collection_name": collectionName,
			"workspace":       tenant,
		},
		Permissions: permission.Build(true, false, false),
	})
	if err != nil {
		return nil, fmt.Errorf("tracking application %s: %w", applicationID, err)
	}

	m.logger.Info("application created",
		zap.String("workspace", tenant),
		zap.String("collection", collectionName),
		zap.String("application", applicationID),
	)

	return &Info{
		ApplicationID:  applicationID,
		CollectionName: collectionName,
		Description:    description,
		Owner:          tenant,
		ArtifactName:   artName,
	}, nil
}

// Exists probes the application's artifact.
func (m *Manager) Exists(ctx context.Context, tenant, collectionName, applicationID string) (bool, error) {
	artName, err := m.artifactName(tenant, collectionName, applicationID)
	if err != nil {
		return false, err
	}
	return m.tracker.Exists(ctx, artName)
}

// Get returns the application's artifact record, or
// artifact.ErrNotFound.
func (m *Manager) Get(ctx context.Context, tenant, collectionName, applicationID string) (*artifact.Artifact, error) {
	artName, err := m.artifactName(tenant, collectionName, applicationID)
	if err != nil {
		return nil, err
	}
	return m.tracker.Read(ctx, artName)
}

// Delete removes an application: first its artifact (recursively, so
// session records under it go too), then every data object in the
// caller's partition tagged with the application id. Both steps are
// attempted even if one fails; re-running the delete finishes a partial
// one.
//
// The returned summary carries the deleted objects with logical
// collection names.
func (m *Manager) Delete(ctx context.Context, tenant, collectionName, applicationID string) (*vectorstore.DeleteManyResult, error) {
	physical, err := naming.FullName(tenant, collectionName)
	if err != nil {
		return nil, err
	}
	artName, err := naming.ApplicationArtifactName(physical, applicationID)
	if err != nil {
		return nil, err
	}

	var errs []error
	if err := m.tracker.Delete(ctx, artName, true); err != nil {
		errs = append(errs, fmt.Errorf("deleting application artifact %s: %w", applicationID, err))
	}

	scope := vectorstore.Scope{Collection: physical, Tenant: naming.PartitionName(tenant)}
	summary, err := m.store.DeleteMany(ctx, scope, vectorstore.Eq(vectorstore.ApplicationKey, applicationID))
	if err != nil {
		errs = append(errs, fmt.Errorf("deleting application data for %s: %w", applicationID, err))
	}
	if summary == nil {
		summary = &vectorstore.DeleteManyResult{}
	}
	for i := range summary.Objects {
		summary.Objects[i].Collection = naming.ShortName(summary.Objects[i].Collection)
	}

	if err := errors.Join(errs...); err != nil {
		return summary, err
	}

	m.logger.Info("application deleted",
		zap.String("workspace", tenant),
		zap.String("collection", collectionName),
		zap.String("application", applicationID),
		zap.Int64("objects_deleted", summary.Successful),
	)
	return summary, nil
}

// ListAll returns the caller's application artifacts in one collection.
// Session records nested under the applications are excluded.
func (m *Manager) ListAll(ctx context.Context, tenant, collectionName string) ([]artifact.Artifact, error) {
	physical, err := naming.FullName(tenant, collectionName)
	if err != nil {
		return nil, err
	}

	all, err := m.tracker.List(ctx, tenant)
	if err != nil {
		return nil, err
	}

	prefix := physical + naming.ArtifactDelimiter
	var out []artifact.Artifact
	for _, art := range all {
		rest, ok := strings.CutPrefix(art.Name, prefix)
		if !ok || strings.Contains(rest, naming.ArtifactDelimiter) {
			continue
		}
		out = append(out, art)
	}
	return out, nil
}

func (m *Manager) artifactName(tenant, collectionName, applicationID string) (string, error) {
	physical, err := naming.FullName(tenant, collectionName)
	if err != nil {
		return "", err
	}
	return naming.ApplicationArtifactName(physical, applicationID)
}
