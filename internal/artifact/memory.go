package artifact

import (
	"context"
	"strings"
	"sync"
	"time"
)

// MemoryTracker is an in-process Tracker used by tests and the
// embedded single-node mode. It enforces the same name-uniqueness and
// hierarchy semantics as the remote service.
type MemoryTracker struct {
	mu        sync.RWMutex
	artifacts map[string]Artifact
}

// NewMemoryTracker creates an empty in-memory tracker.
func NewMemoryTracker() *MemoryTracker {
	return &MemoryTracker{
		artifacts: make(map[string]Artifact),
	}
}

// Create registers a new artifact.
func (m *MemoryTracker) Create(ctx context.Context, art Artifact) error {
	if err := art.Validate(); err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.artifacts[art.Name]; ok {
		return ErrAlreadyExists
	}
	art.CreatedAt = time.Now().UTC()
	m.artifacts[art.Name] = art
	return nil
}

// Read fetches an artifact by name.
func (m *MemoryTracker) Read(ctx context.Context, name string) (*Artifact, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	art, ok := m.artifacts[name]
	if !ok {
		return nil, ErrNotFound
	}
	copied := art
	return &copied, nil
}

// Delete removes an artifact, and with recursive set, every artifact
// whose ParentID chain leads to it. Absent names are tolerated.
func (m *MemoryTracker) Delete(ctx context.Context, name string, recursive bool) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	delete(m.artifacts, name)
	if !recursive {
		return nil
	}
	for childName, child := range m.artifacts {
		if m.descendsFrom(child, name) {
			delete(m.artifacts, childName)
		}
	}
	return nil
}

// descendsFrom walks the parent chain. Caller holds the lock.
func (m *MemoryTracker) descendsFrom(art Artifact, ancestor string) bool {
	for art.ParentID != "" {
		if art.ParentID == ancestor {
			return true
		}
		parent, ok := m.artifacts[art.ParentID]
		if !ok {
			return strings.HasPrefix(art.ParentID, ancestor)
		}
		art = parent
	}
	return false
}

// List returns all artifacts belonging to a workspace.
func (m *MemoryTracker) List(ctx context.Context, workspace string) ([]Artifact, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var out []Artifact
	for _, art := range m.artifacts {
		if art.Workspace == workspace {
			out = append(out, art)
		}
	}
	return out, nil
}

// Exists reports whether the named artifact exists.
func (m *MemoryTracker) Exists(ctx context.Context, name string) (bool, error) {
	return ExistsByRead(ctx, m, name)
}

var _ Tracker = (*MemoryTracker)(nil)
