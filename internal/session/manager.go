// Package session manages sessions: a finer partition nested under an
// application, selected by a session_id tag.
//
// Sessions are lightweight tracked records without the artifact
// permission machinery applications carry. Scoping is achieved purely
// through the session_id tag plus query filters; there is no separate
// physical partition per session.
package session

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/aicell-lab/collectiond/internal/artifact"
	"github.com/aicell-lab/collectiond/internal/naming"
)

// Info describes a session.
type Info struct {
	SessionID      string `json:"session_id"`
	ApplicationID  string `json:"application_id"`
	CollectionName string `json:"collection_name"`
	Description    string `json:"description,omitempty"`
	Owner          string `json:"owner"`
	RecordName     string `json:"record_name"`
}

// Manager records session lifecycle in the artifact tracker.
type Manager struct {
	tracker artifact.Tracker
	logger  *zap.Logger
}

// NewManager creates a session manager.
func NewManager(tracker artifact.Tracker, logger *zap.Logger) *Manager {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Manager{
		tracker: tracker,
		logger:  logger.Named("session"),
	}
}

// Create records a session under an application. The parent
// application's artifact must exist.
func (m *Manager) Create(ctx context.Context, tenant, collectionName, applicationID, sessionID, description string) (*Info, error) {
	physical, err := naming.FullName(tenant, collectionName)
	if err != nil {
		return nil, err
	}
	appName, err := naming.ApplicationArtifactName(physical, applicationID)
	if err != nil {
		return nil, err
	}
	recordName, err := naming.SessionRecordName(physical, applicationID, sessionID)
	if err != nil {
		return nil, err
	}

	appExists, err := m.tracker.Exists(ctx, appName)
	if err != nil {
		return nil, fmt.Errorf("checking application %s: %w", applicationID, err)
	}
	if !appExists {
		return nil, fmt.Errorf("%w: application %s", artifact.ErrNotFound, applicationID)
	}

	err = m.tracker.Create(ctx, artifact.Artifact{
		Name:        recordName,
		Description: description,
		Workspace:   tenant,
		ParentID:    appName,
		Metadata: map[string]any{
			"session_id":      sessionID,
			"application_id":  applicationID,
			"collection_name": collectionName,
			"workspace":       tenant,
		},
	})
	if err != nil {
		return nil, fmt.Errorf("recording session %s: %w", sessionID, err)
	}

	m.logger.Info("session created",
		zap.String("workspace", tenant),
		zap.String("application", applicationID),
		zap.String("session", sessionID),
	)

	return &Info{
		SessionID:      sessionID,
		ApplicationID:  applicationID,
		CollectionName: collectionName,
		Description:    description,
		Owner:          tenant,
		RecordName:     recordName,
	}, nil
}

// ListAll returns the sessions recorded under one application.
func (m *Manager) ListAll(ctx context.Context, tenant, collectionName, applicationID string) ([]Info, error) {
	physical, err := naming.FullName(tenant, collectionName)
	if err != nil {
		return nil, err
	}
	appName, err := naming.ApplicationArtifactName(physical, applicationID)
	if err != nil {
		return nil, err
	}

	all, err := m.tracker.List(ctx, tenant)
	if err != nil {
		return nil, err
	}

	prefix := appName + naming.ArtifactDelimiter
	var out []Info
	for _, art := range all {
		sessionID, ok := strings.CutPrefix(art.Name, prefix)
		if !ok {
			continue
		}
		out = append(out, Info{
			SessionID:      sessionID,
			ApplicationID:  applicationID,
			CollectionName: collectionName,
			Description:    art.Description,
			Owner:          tenant,
			RecordName:     art.Name,
		})
	}
	return out, nil
}

// Delete removes the session record only. Data objects tagged with the
// session id stay in place; callers reclaim them through application
// deletion or an explicit scoped DeleteMany.
func (m *Manager) Delete(ctx context.Context, tenant, collectionName, applicationID, sessionID string) error {
	physical, err := naming.FullName(tenant, collectionName)
	if err != nil {
		return err
	}
	recordName, err := naming.SessionRecordName(physical, applicationID, sessionID)
	if err != nil {
		return err
	}
	if err := m.tracker.Delete(ctx, recordName, false); err != nil {
		return fmt.Errorf("deleting session record %s: %w", sessionID, err)
	}

	m.logger.Info("session deleted",
		zap.String("workspace", tenant),
		zap.String("application", applicationID),
		zap.String("session", sessionID),
	)
	return nil
}
