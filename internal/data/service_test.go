package data

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aicell-lab/collectiond/internal/artifact"
	"github.com/aicell-lab/collectiond/internal/generative"
	"github.com/aicell-lab/collectiond/internal/naming"
	"github.com/aicell-lab/collectiond/internal/permission"
	"github.com/aicell-lab/collectiond/internal/vectorstore"
)

const (
	workspace      = "ws-a"
	adminWorkspace = "ws-admin"
)

func newTestService(t *testing.T, gen generative.Generator) (*Service, vectorstore.Store) {
	t.Helper()
	store := vectorstore.NewMemoryStore(nil)
	checker := permission.NewChecker([]string{adminWorkspace}, artifact.NewMemoryTracker(), nil)

	for _, tenant := range []string{workspace, adminWorkspace} {
		physical, err := naming.FullName(tenant, "Movie")
		require.NoError(t, err)
		require.NoError(t, store.CreateCollection(context.Background(), vectorstore.Settings{
			Name:       physical,
			VectorSize: 4,
		}))
	}
	return NewService(store, gen, checker, nil), store
}

func TestInsertStampsApplication(t *testing.T) {
	svc, store := newTestService(t, nil)
	ctx := context.Background()

	id, err := svc.Insert(ctx, workspace, "Movie", "app1", "", vectorstore.Object{
		Properties: map[string]any{"title": "The Matrix", "year": 1999},
	})
	require.NoError(t, err)
	require.NotEmpty(t, id)

	physical, err := naming.FullName(workspace, "Movie")
	require.NoError(t, err)
	scope := vectorstore.Scope{Collection: physical, Tenant: naming.PartitionName(workspace)}
	obj, err := store.GetByID(ctx, scope, id)
	require.NoError(t, err)
	assert.Equal(t, "app1", obj.Properties[vectorstore.ApplicationKey])
	_, hasSession := obj.Properties[vectorstore.SessionKey]
	assert.False(t, hasSession)
}

func TestInsertRequiresApplication(t *testing.T) {
	svc, _ := newTestService(t, nil)

	_, err := svc.Insert(context.Background(), workspace, "Movie", "", "", vectorstore.Object{
		Properties: map[string]any{"title": "x"},
	})
	assert.ErrorIs(t, err, ErrMissingApplication)
}

func TestInsertStampWinsOverCallerProperties(t *testing.T) {
	svc, _ := newTestService(t, nil)
	ctx := context.Background()

	id, err := svc.Insert(ctx, workspace, "Movie", "app1", "sess1", vectorstore.Object{
		Properties: map[string]any{
			"title":          "x",
			"application_id": "evil",
			"session_id":     "evil",
		},
	})
	require.NoError(t, err)

	objs, err := svc.FetchObjects(ctx, workspace, "Movie", "app1", "sess1", vectorstore.Filter{}, vectorstore.FetchOptions{})
	require.NoError(t, err)
	require.Len(t, objs, 1)
	assert.Equal(t, id, objs[0].ID)
	assert.Equal(t, "app1", objs[0].Properties["application_id"])
}

func TestApplicationIsolation(t *testing.T) {
	svc, _ := newTestService(t, nil)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		_, err := svc.Insert(ctx, workspace, "Movie", "A", "", vectorstore.Object{
			Properties: map[string]any{"title": fmt.Sprintf("a%d", i)},
		})
		require.NoError(t, err)
	}
	for i := 0; i < 2; i++ {
		_, err := svc.Insert(ctx, workspace, "Movie", "B", "", vectorstore.Object{
			Properties: map[string]any{"title": fmt.Sprintf("b%d", i)},
		})
		require.NoError(t, err)
	}

	objsA, err := svc.FetchObjects(ctx, workspace, "Movie", "A", "", vectorstore.Filter{}, vectorstore.FetchOptions{})
	require.NoError(t, err)
	require.Len(t, objsA, 3)
	for _, obj := range objsA {
		assert.Equal(t, "A", obj.Properties["application_id"])
		assert.Equal(t, "Movie", obj.Collection)
	}
}

func TestSessionScoping(t *testing.T) {
	svc, _ := newTestService(t, nil)
	ctx := context.Background()

	for i := 0; i < 2; i++ {
		_, err := svc.Insert(ctx, workspace, "Movie", "app1", "S1", vectorstore.Object{
			Properties: map[string]any{"title": fmt.Sprintf("s1-%d", i)},
		})
		require.NoError(t, err)
	}
	for i := 0; i < 3; i++ {
		_, err := svc.Insert(ctx, workspace, "Movie", "app1", "S2", vectorstore.Object{
			Properties: map[string]any{"title": fmt.Sprintf("s2-%d", i)},
		})
		require.NoError(t, err)
	}

	s1, err := svc.FetchObjects(ctx, workspace, "Movie", "app1", "S1", vectorstore.Filter{}, vectorstore.FetchOptions{})
	require.NoError(t, err)
	assert.Len(t, s1, 2)

	all, err := svc.FetchObjects(ctx, workspace, "Movie", "app1", "", vectorstore.Filter{}, vectorstore.FetchOptions{})
	require.NoError(t, err)
	assert.Len(t, all, 5)
}

func TestUnscopedFetchAdminOnly(t *testing.T) {
	svc, _ := newTestService(t, nil)
	ctx := context.Background()

	_, err := svc.FetchObjects(ctx, workspace, "Movie", "", "", vectorstore.Filter{}, vectorstore.FetchOptions{})
	assert.ErrorIs(t, err, ErrUnscopedQuery)

	_, err = svc.Insert(ctx, adminWorkspace, "Movie", "app1", "", vectorstore.Object{
		Properties: map[string]any{"title": "x"},
	})
	require.NoError(t, err)

	objs, err := svc.FetchObjects(ctx, adminWorkspace, "Movie", "", "", vectorstore.Filter{}, vectorstore.FetchOptions{})
	require.NoError(t, err)
	assert.Len(t, objs, 1)
}

func TestReservedFilterKeysRejected(t *testing.T) {
	svc, _ := newTestService(t, nil)
	ctx := context.Background()

	for _, key := range []string{"application_id", "session_id", "__tenant"} {
		_, err := svc.FetchObjects(ctx, workspace, "Movie", "app1", "", vectorstore.Eq(key, "evil"), vectorstore.FetchOptions{})
		assert.ErrorIs(t, err, vectorstore.ErrReservedFilterKey, key)
	}
}

func TestUpdateVerifiesMembership(t *testing.T) {
	svc, _ := newTestService(t, nil)
	ctx := context.Background()

	id, err := svc.Insert(ctx, workspace, "Movie", "app1", "", vectorstore.Object{
		Properties: map[string]any{"title": "Alien", "year": 1979},
	})
	require.NoError(t, err)

	require.NoError(t, svc.Update(ctx, workspace, "Movie", "app1", "", id, map[string]any{"year": 1986}))

	// Another application cannot touch the object; the id does not leak.
	err = svc.Update(ctx, workspace, "Movie", "app2", "", id, map[string]any{"year": 2000})
	assert.ErrorIs(t, err, vectorstore.ErrObjectNotFound)

	objs, err := svc.FetchObjects(ctx, workspace, "Movie", "app1", "", vectorstore.Filter{}, vectorstore.FetchOptions{})
	require.NoError(t, err)
	require.Len(t, objs, 1)
	assert.Equal(t, 1986, objs[0].Properties["year"])
}

func TestUpdateRejectsReservedProperties(t *testing.T) {
	svc, _ := newTestService(t, nil)
	ctx := context.Background()

	id, err := svc.Insert(ctx, workspace, "Movie", "app1", "", vectorstore.Object{
		Properties: map[string]any{"title": "Alien"},
	})
	require.NoError(t, err)

	err = svc.Update(ctx, workspace, "Movie", "app1", "", id, map[string]any{"application_id": "app2"})
	assert.ErrorIs(t, err, ErrReservedProperty)
}

func TestDeleteByIDScoped(t *testing.T) {
	svc, _ := newTestService(t, nil)
	ctx := context.Background()

	id, err := svc.Insert(ctx, workspace, "Movie", "app1", "", vectorstore.Object{
		Properties: map[string]any{"title": "Alien"},
	})
	require.NoError(t, err)

	// Wrong application: no-op, object survives.
	require.NoError(t, svc.DeleteByID(ctx, workspace, "Movie", "app2", "", id))
	exists, err := svc.ExistsByID(ctx, workspace, "Movie", "app1", "", id)
	require.NoError(t, err)
	assert.True(t, exists)

	require.NoError(t, svc.DeleteByID(ctx, workspace, "Movie", "app1", "", id))
	exists, err = svc.ExistsByID(ctx, workspace, "Movie", "app1", "", id)
	require.NoError(t, err)
	assert.False(t, exists)

	// Idempotent.
	require.NoError(t, svc.DeleteByID(ctx, workspace, "Movie", "app1", "", id))
}

func TestDeleteMany(t *testing.T) {
	svc, _ := newTestService(t, nil)
	ctx := context.Background()

	for _, genre := range []string{"scifi", "scifi", "noir"} {
		_, err := svc.Insert(ctx, workspace, "Movie", "app1", "", vectorstore.Object{
			Properties: map[string]any{"genre": genre},
		})
		require.NoError(t, err)
	}

	result, err := svc.DeleteMany(ctx, workspace, "Movie", "app1", "", vectorstore.Eq("genre", "scifi"))
	require.NoError(t, err)
	assert.EqualValues(t, 2, result.Matches)
	for _, obj := range result.Objects {
		assert.Equal(t, "Movie", obj.Collection)
	}

	left, err := svc.FetchObjects(ctx, workspace, "Movie", "app1", "", vectorstore.Filter{}, vectorstore.FetchOptions{})
	require.NoError(t, err)
	require.Len(t, left, 1)
	assert.Equal(t, "noir", left[0].Properties["genre"])
}

func TestNearVectorScoped(t *testing.T) {
	svc, _ := newTestService(t, nil)
	ctx := context.Background()

	_, err := svc.Insert(ctx, workspace, "Movie", "app1", "", vectorstore.Object{
		Properties: map[string]any{"title": "mine"},
		Vector:     []float32{1, 0, 0, 0},
	})
	require.NoError(t, err)
	_, err = svc.Insert(ctx, workspace, "Movie", "app2", "", vectorstore.Object{
		Properties: map[string]any{"title": "other"},
		Vector:     []float32{1, 0, 0, 0},
	})
	require.NoError(t, err)

	hits, err := svc.NearVector(ctx, workspace, "Movie", "app1", "", []float32{1, 0, 0, 0}, vectorstore.Filter{}, 10)
	require.NoError(t, err)
	require.Len(t, hits, 1)
	assert.Equal(t, "mine", hits[0].Properties["title"])
}

func TestHybridScoped(t *testing.T) {
	svc, _ := newTestService(t, nil)
	ctx := context.Background()

	_, err := svc.Insert(ctx, workspace, "Movie", "app1", "", vectorstore.Object{
		Properties: map[string]any{"plot": "an alien stalks the crew"},
	})
	require.NoError(t, err)
	_, err = svc.Insert(ctx, workspace, "Movie", "app2", "", vectorstore.Object{
		Properties: map[string]any{"plot": "an alien invasion begins"},
	})
	require.NoError(t, err)

	hits, err := svc.Hybrid(ctx, workspace, "Movie", "app1", "", "alien", nil, 0, vectorstore.Filter{}, 10)
	require.NoError(t, err)
	require.Len(t, hits, 1)
	assert.Equal(t, "an alien stalks the crew", hits[0].Properties["plot"])
}

type fakeGenerator struct{}

func (fakeGenerator) EmbedDocuments(_ context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))
	for i := range texts {
		out[i] = []float32{1, 0, 0, 0}
	}
	return out, nil
}

func (fakeGenerator) EmbedQuery(context.Context, string) ([]float32, error) {
	return []float32{1, 0, 0, 0}, nil
}

func (fakeGenerator) Generate(_ context.Context, task generative.Task, objects []vectorstore.Object) ([]generative.Generation, error) {
	if task.GroupedTask != "" {
		return []generative.Generation{{Text: fmt.Sprintf("summary of %d objects", len(objects))}}, nil
	}
	out := make([]generative.Generation, len(objects))
	for i := range objects {
		obj := objects[i]
		out[i] = generative.Generation{Text: "about " + fmt.Sprint(obj.Properties["plot"]), Object: &obj}
	}
	return out, nil
}

func TestGenerateNearText(t *testing.T) {
	svc, _ := newTestService(t, fakeGenerator{})
	ctx := context.Background()

	_, err := svc.Insert(ctx, workspace, "Movie", "app1", "", vectorstore.Object{
		Properties: map[string]any{"plot": "an alien stalks the crew"},
	})
	require.NoError(t, err)

	result, err := svc.GenerateNearText(ctx, workspace, "Movie", "app1", "", "alien", vectorstore.Filter{}, 10, generative.Task{GroupedTask: "summarize"})
	require.NoError(t, err)
	require.Len(t, result.Generations, 1)
	assert.Equal(t, "summary of 1 objects", result.Generations[0].Text)
	assert.Len(t, result.Objects, 1)
}

func TestGenerateNearTextNoBackend(t *testing.T) {
	svc, _ := newTestService(t, nil)

	_, err := svc.GenerateNearText(context.Background(), workspace, "Movie", "app1", "", "q", vectorstore.Filter{}, 10, generative.Task{GroupedTask: "t"})
	assert.ErrorIs(t, err, ErrNoGenerator)
}

// End-to-end flow: create data under an application, fetch it, wipe the
// application's data, and observe the scope is empty.
func TestEndToEndMovieScenario(t *testing.T) {
	svc, store := newTestService(t, nil)
	ctx := context.Background()

	_, err := svc.Insert(ctx, workspace, "Movie", "app1", "", vectorstore.Object{
		Properties: map[string]any{"title": "The Matrix", "year": 1999},
	})
	require.NoError(t, err)

	objs, err := svc.FetchObjects(ctx, workspace, "Movie", "app1", "", vectorstore.Filter{}, vectorstore.FetchOptions{})
	require.NoError(t, err)
	require.Len(t, objs, 1)
	assert.Equal(t, "The Matrix", objs[0].Properties["title"])

	physical, err := naming.FullName(workspace, "Movie")
	require.NoError(t, err)
	scope := vectorstore.Scope{Collection: physical, Tenant: naming.PartitionName(workspace)}
	_, err = store.DeleteMany(ctx, scope, vectorstore.Eq(vectorstore.ApplicationKey, "app1"))
	require.NoError(t, err)

	objs, err = svc.FetchObjects(ctx, workspace, "Movie", "app1", "", vectorstore.Filter{}, vectorstore.FetchOptions{})
	require.NoError(t, err)
	assert.Empty(t, objs)
}
