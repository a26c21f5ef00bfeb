package collection

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aicell-lab/collectiond/internal/artifact"
	"github.com/aicell-lab/collectiond/internal/naming"
	"github.com/aicell-lab/collectiond/internal/permission"
	"github.com/aicell-lab/collectiond/internal/vectorstore"
)

const adminWorkspace = "ws-admin"

func newTestManager(t *testing.T) (*Manager, vectorstore.Store, artifact.Tracker) {
	t.Helper()
	store := vectorstore.NewMemoryStore(nil)
	tracker := artifact.NewMemoryTracker()
	checker := permission.NewChecker([]string{adminWorkspace}, tracker, nil)
	return NewManager(store, tracker, checker, nil), store, tracker
}

func TestCreateCollection(t *testing.T) {
	mgr, store, tracker := newTestManager(t)
	ctx := context.Background()

	out, err := mgr.Create(ctx, adminWorkspace, vectorstore.Settings{
		Name:        "Movie",
		Description: "movie catalog",
		VectorSize:  4,
	})
	require.NoError(t, err)
	assert.Equal(t, "Movie", out.Name)

	physical, err := naming.FullName(adminWorkspace, "Movie")
	require.NoError(t, err)

	exists, err := store.CollectionExists(ctx, physical)
	require.NoError(t, err)
	assert.True(t, exists)

	art, err := tracker.Read(ctx, physical)
	require.NoError(t, err)
	assert.Equal(t, naming.SharedWorkspace, art.Workspace)
	assert.Equal(t, "Movie", art.Metadata["collection_name"])
	assert.Equal(t, adminWorkspace, art.Metadata["workspace"])
	assert.Contains(t, art.Permissions.Admin, permission.PrincipalAdmin)
}

func TestCreateCollectionDeniedForNonAdmin(t *testing.T) {
	mgr, store, _ := newTestManager(t)
	ctx := context.Background()

	_, err := mgr.Create(ctx, "ws-user", vectorstore.Settings{Name: "Movie", VectorSize: 4})
	assert.ErrorIs(t, err, permission.ErrPermissionDenied)

	// Denial must precede any remote mutation.
	physical, err := naming.FullName("ws-user", "Movie")
	require.NoError(t, err)
	exists, err := store.CollectionExists(ctx, physical)
	require.NoError(t, err)
	assert.False(t, exists)
}

func TestCreateCollectionInvalidName(t *testing.T) {
	mgr, _, _ := newTestManager(t)

	_, err := mgr.Create(context.Background(), adminWorkspace, vectorstore.Settings{
		Name:       "bad" + naming.Delimiter + "name",
		VectorSize: 4,
	})
	assert.ErrorIs(t, err, naming.ErrInvalidName)
}

func TestCreateCollectionRerunAfterPartialFailure(t *testing.T) {
	mgr, store, tracker := newTestManager(t)
	ctx := context.Background()

	// Simulate an earlier run that created the artifact but lost the
	// store write: only the artifact exists.
	physical, err := naming.FullName(adminWorkspace, "Movie")
	require.NoError(t, err)
	require.NoError(t, tracker.Create(ctx, artifact.Artifact{
		Name:      physical,
		Workspace: naming.SharedWorkspace,
	}))

	out, err := mgr.Create(ctx, adminWorkspace, vectorstore.Settings{Name: "Movie", VectorSize: 4})
	require.NoError(t, err)
	assert.Equal(t, "Movie", out.Name)

	exists, err := store.CollectionExists(ctx, physical)
	require.NoError(t, err)
	assert.True(t, exists)
}

func TestCreateCollectionRerunAfterArtifactFailure(t *testing.T) {
	mgr, store, tracker := newTestManager(t)
	ctx := context.Background()

	// Simulate an earlier run that created the store collection but
	// failed before tracking it: only the collection exists.
	physical, err := naming.FullName(adminWorkspace, "Movie")
	require.NoError(t, err)
	require.NoError(t, store.CreateCollection(ctx, vectorstore.Settings{Name: physical, VectorSize: 4}))

	out, err := mgr.Create(ctx, adminWorkspace, vectorstore.Settings{Name: "Movie", VectorSize: 4})
	require.NoError(t, err)
	assert.Equal(t, "Movie", out.Name)

	tracked, err := tracker.Exists(ctx, physical)
	require.NoError(t, err)
	assert.True(t, tracked)
}

func TestDeleteCollections(t *testing.T) {
	mgr, store, tracker := newTestManager(t)
	ctx := context.Background()

	for _, name := range []string{"Movie", "Book"} {
		_, err := mgr.Create(ctx, adminWorkspace, vectorstore.Settings{Name: name, VectorSize: 4})
		require.NoError(t, err)
	}

	require.NoError(t, mgr.Delete(ctx, adminWorkspace, []string{"Movie", "Book"}))

	for _, name := range []string{"Movie", "Book"} {
		physical, err := naming.FullName(adminWorkspace, name)
		require.NoError(t, err)
		exists, err := store.CollectionExists(ctx, physical)
		require.NoError(t, err)
		assert.False(t, exists)
		tracked, err := tracker.Exists(ctx, physical)
		require.NoError(t, err)
		assert.False(t, tracked)
	}
}

func TestDeleteAllOrNothing(t *testing.T) {
	mgr, store, _ := newTestManager(t)
	ctx := context.Background()

	_, err := mgr.Create(ctx, adminWorkspace, vectorstore.Settings{Name: "Movie", VectorSize: 4})
	require.NoError(t, err)

	// One of the names belongs to nobody; the per-name admin check
	// fails closed and nothing is deleted.
	err = mgr.Delete(ctx, "ws-user", []string{"Movie", "Other"})
	assert.ErrorIs(t, err, permission.ErrPermissionDenied)

	physical, err := naming.FullName(adminWorkspace, "Movie")
	require.NoError(t, err)
	exists, err := store.CollectionExists(ctx, physical)
	require.NoError(t, err)
	assert.True(t, exists)
}

func TestDeleteByCollectionAdmin(t *testing.T) {
	mgr, store, tracker := newTestManager(t)
	ctx := context.Background()

	_, err := mgr.Create(ctx, adminWorkspace, vectorstore.Settings{Name: "Movie", VectorSize: 4})
	require.NoError(t, err)

	// Grant another workspace admin on the collection artifact.
	physical, err := naming.FullName(adminWorkspace, "Movie")
	require.NoError(t, err)
	art, err := tracker.Read(ctx, physical)
	require.NoError(t, err)
	art.Permissions.Admin = append(art.Permissions.Admin, "ws-other")
	require.NoError(t, tracker.Delete(ctx, physical, false))
	require.NoError(t, tracker.Create(ctx, *art))

	// ws-other is admin on the artifact, but the name is resolved in
	// ws-other's namespace, where no such collection exists.
	err = mgr.Delete(ctx, "ws-other", []string{"Movie"})
	assert.ErrorIs(t, err, permission.ErrPermissionDenied)

	exists, err := store.CollectionExists(ctx, physical)
	require.NoError(t, err)
	assert.True(t, exists)
}

func TestListCollections(t *testing.T) {
	mgr, store, _ := newTestManager(t)
	ctx := context.Background()

	for _, name := range []string{"Movie", "Book"} {
		_, err := mgr.Create(ctx, adminWorkspace, vectorstore.Settings{Name: name, VectorSize: 4})
		require.NoError(t, err)
	}
	// A foreign collection must not show up.
	require.NoError(t, store.CreateCollection(ctx, vectorstore.Settings{
		Name:       naming.FormatTenant("ws-other") + naming.Delimiter + "Movie",
		VectorSize: 4,
	}))

	listed, err := mgr.List(ctx, adminWorkspace)
	require.NoError(t, err)
	require.Len(t, listed, 2)
	assert.Contains(t, listed, "Movie")
	assert.Contains(t, listed, "Book")
	assert.Equal(t, "Movie", listed["Movie"].Name)

	_, err = mgr.List(ctx, "ws-user")
	assert.ErrorIs(t, err, permission.ErrPermissionDenied)
}

func TestGetCollection(t *testing.T) {
	mgr, _, _ := newTestManager(t)
	ctx := context.Background()

	_, err := mgr.Create(ctx, adminWorkspace, vectorstore.Settings{Name: "Movie", VectorSize: 4})
	require.NoError(t, err)

	info, err := mgr.Get(ctx, adminWorkspace, "Movie")
	require.NoError(t, err)
	assert.Equal(t, "Movie", info.Name)
	assert.Equal(t, uint64(4), info.VectorSize)

	_, err = mgr.Get(ctx, "ws-user", "Movie")
	assert.ErrorIs(t, err, permission.ErrPermissionDenied)
}

func TestExistsUnprivileged(t *testing.T) {
	mgr, _, _ := newTestManager(t)
	ctx := context.Background()

	_, err := mgr.Create(ctx, adminWorkspace, vectorstore.Settings{Name: "Movie", VectorSize: 4})
	require.NoError(t, err)

	physical, err := naming.FullName(adminWorkspace, "Movie")
	require.NoError(t, err)

	exists, err := mgr.Exists(ctx, physical)
	require.NoError(t, err)
	assert.True(t, exists)

	exists, err = mgr.Exists(ctx, "nonexistent")
	require.NoError(t, err)
	assert.False(t, exists)
}
