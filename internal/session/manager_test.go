package session

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aicell-lab/collectiond/internal/artifact"
	"github.com/aicell-lab/collectiond/internal/naming"
)

const workspace = "ws-a"

func newTestManager(t *testing.T) (*Manager, artifact.Tracker) {
	t.Helper()
	tracker := artifact.NewMemoryTracker()

	// Parent application record for the sessions under test.
	physical, err := naming.FullName(workspace, "Movie")
	require.NoError(t, err)
	appName, err := naming.ApplicationArtifactName(physical, "app1")
	require.NoError(t, err)
	require.NoError(t, tracker.Create(context.Background(), artifact.Artifact{
		Name:      appName,
		Workspace: workspace,
	}))
	return NewManager(tracker, nil), tracker
}

func TestCreateSession(t *testing.T) {
	mgr, tracker := newTestManager(t)
	ctx := context.Background()

	info, err := mgr.Create(ctx, workspace, "Movie", "app1", "sess1", "first session")
	require.NoError(t, err)
	assert.Equal(t, "sess1", info.SessionID)
	assert.Equal(t, "app1", info.ApplicationID)

	art, err := tracker.Read(ctx, info.RecordName)
	require.NoError(t, err)
	assert.Equal(t, "sess1", art.Metadata["session_id"])
	assert.Equal(t, "app1", art.Metadata["application_id"])
}

func TestCreateSessionMissingApplication(t *testing.T) {
	mgr, _ := newTestManager(t)

	_, err := mgr.Create(context.Background(), workspace, "Movie", "ghost", "sess1", "")
	assert.ErrorIs(t, err, artifact.ErrNotFound)
}

func TestCreateSessionInvalidID(t *testing.T) {
	mgr, _ := newTestManager(t)

	_, err := mgr.Create(context.Background(), workspace, "Movie", "app1", "bad:id", "")
	assert.ErrorIs(t, err, naming.ErrInvalidName)
}

func TestListAll(t *testing.T) {
	mgr, _ := newTestManager(t)
	ctx := context.Background()

	for _, id := range []string{"sess1", "sess2"} {
		_, err := mgr.Create(ctx, workspace, "Movie", "app1", id, "")
		require.NoError(t, err)
	}

	sessions, err := mgr.ListAll(ctx, workspace, "Movie", "app1")
	require.NoError(t, err)
	require.Len(t, sessions, 2)
	ids := []string{sessions[0].SessionID, sessions[1].SessionID}
	assert.ElementsMatch(t, []string{"sess1", "sess2"}, ids)

	// Other applications see nothing.
	sessions, err = mgr.ListAll(ctx, workspace, "Movie", "other")
	require.NoError(t, err)
	assert.Empty(t, sessions)
}

func TestDeleteSessionRecordOnly(t *testing.T) {
	mgr, tracker := newTestManager(t)
	ctx := context.Background()

	info, err := mgr.Create(ctx, workspace, "Movie", "app1", "sess1", "")
	require.NoError(t, err)

	require.NoError(t, mgr.Delete(ctx, workspace, "Movie", "app1", "sess1"))

	exists, err := tracker.Exists(ctx, info.RecordName)
	require.NoError(t, err)
	assert.False(t, exists)

	// Deleting an absent record is not an error.
	require.NoError(t, mgr.Delete(ctx, workspace, "Movie", "app1", "sess1"))
}
