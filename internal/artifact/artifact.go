// Package artifact provides a thin client for the external
// artifact-tracking service.
//
// Artifacts are named, hierarchically nestable metadata records with a
// manifest (name, description, free-form metadata) and a permission
// descriptor. One artifact mirrors one collection; child artifacts
// mirror applications; a third level tracks sessions.
//
// All operations are remote calls with no local caching. Existence and
// permission checks against the tracker are a trust boundary, not a
// cache: they must be re-evaluated on every privileged operation.
// There is no transactional grouping across calls — a failure between
// two tracker operations leaves partially-initialized state that the
// caller reconciles by re-running the whole operation, which the
// idempotent Create/Delete contracts make safe.
package artifact

import (
	"context"
	"errors"
	"time"
)

// Sentinel errors for tracker operations.
var (
	// ErrNotFound is returned when the named artifact does not exist.
	ErrNotFound = errors.New("artifact not found")

	// ErrAlreadyExists is returned by Create when an artifact with the
	// same name exists. Callers re-running a failed multi-step
	// operation treat this as success.
	ErrAlreadyExists = errors.New("artifact already exists")

	// ErrInvalidArtifact indicates a malformed artifact (empty name).
	ErrInvalidArtifact = errors.New("invalid artifact")
)

// Permissions is an access-control descriptor attached to an artifact.
// Entries are principals: "*" (everyone), "$OWNER", "$ADMIN", or a
// concrete workspace identifier.
type Permissions struct {
	Read  []string `json:"read"`
	Write []string `json:"write"`
	Admin []string `json:"admin"`
}

// Artifact is a tracked metadata record.
type Artifact struct {
	// Name uniquely identifies the artifact system-wide.
	Name string `json:"name"`

	// Description is a human-readable description.
	Description string `json:"description"`

	// Workspace is the workspace the artifact belongs to, used for
	// listing. Collection artifacts live in the reserved shared
	// namespace; application and session records in the owner's.
	Workspace string `json:"workspace"`

	// ParentID names the parent artifact, empty for roots.
	ParentID string `json:"parent_id,omitempty"`

	// Metadata holds free-form key/value pairs.
	Metadata map[string]any `json:"metadata,omitempty"`

	// Permissions is the access-control descriptor.
	Permissions Permissions `json:"permissions"`

	// CreatedAt is set by the tracker on creation.
	CreatedAt time.Time `json:"created_at,omitempty"`
}

// Validate checks the artifact for structural errors.
func (a *Artifact) Validate() error {
	if a.Name == "" {
		return ErrInvalidArtifact
	}
	return nil
}

// Tracker is the client contract for the artifact-tracking service.
//
// Implementations perform one remote call per method, surface failures
// immediately and never retry; retry policy belongs to the caller.
type Tracker interface {
	// Create registers a new artifact. Returns ErrAlreadyExists when
	// the name is taken.
	Create(ctx context.Context, art Artifact) error

	// Read fetches an artifact by name. Returns ErrNotFound when
	// absent.
	Read(ctx context.Context, name string) (*Artifact, error)

	// Delete removes an artifact. With recursive set, children are
	// removed too. Deleting an absent artifact is not an error.
	Delete(ctx context.Context, name string, recursive bool) error

	// List returns all artifacts belonging to a workspace.
	List(ctx context.Context, workspace string) ([]Artifact, error)

	// Exists reports whether the named artifact exists, implemented as
	// read-and-catch.
	Exists(ctx context.Context, name string) (bool, error)
}

// ExistsByRead implements the Exists contract on top of any Read,
// mapping ErrNotFound to false and propagating every other failure.
func ExistsByRead(ctx context.Context, t Tracker, name string) (bool, error) {
	_, err := t.Read(ctx, name)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return false, nil
		}
		return false, err
	}
	return true, nil
}
