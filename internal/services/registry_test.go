package services

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"

	"github.com/aicell-lab/collectiond/internal/application"
	"github.com/aicell-lab/collectiond/internal/artifact"
	"github.com/aicell-lab/collectiond/internal/collection"
	"github.com/aicell-lab/collectiond/internal/data"
	"github.com/aicell-lab/collectiond/internal/permission"
	"github.com/aicell-lab/collectiond/internal/session"
	"github.com/aicell-lab/collectiond/internal/vectorstore"
)

func TestRegistryAccessors(t *testing.T) {
	store := vectorstore.NewMemoryStore(nil)
	tracker := artifact.NewMemoryTracker()
	checker := permission.NewChecker(nil, tracker, zap.NewNop())

	opts := Options{
		Collections:  collection.NewManager(store, tracker, checker, zap.NewNop()),
		Applications: application.NewManager(store, tracker, zap.NewNop()),
		Sessions:     session.NewManager(tracker, zap.NewNop()),
		Data:         data.NewService(store, nil, checker, zap.NewNop()),
		VectorStore:  store,
		Tracker:      tracker,
	}

	reg := NewRegistry(opts)

	assert.Same(t, opts.Collections, reg.Collections())
	assert.Same(t, opts.Applications, reg.Applications())
	assert.Same(t, opts.Sessions, reg.Sessions())
	assert.Same(t, opts.Data, reg.Data())
	assert.Equal(t, opts.VectorStore, reg.VectorStore())
	assert.Equal(t, opts.Tracker, reg.Tracker())
}

func TestRegistryZeroValues(t *testing.T) {
	reg := NewRegistry(Options{})

	assert.Nil(t, reg.Collections())
	assert.Nil(t, reg.Data())
	assert.Nil(t, reg.VectorStore())
}
