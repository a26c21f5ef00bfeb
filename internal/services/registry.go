package services

import (
	"github.com/aicell-lab/collectiond/internal/application"
	"github.com/aicell-lab/collectiond/internal/artifact"
	"github.com/aicell-lab/collectiond/internal/collection"
	"github.com/aicell-lab/collectiond/internal/data"
	"github.com/aicell-lab/collectiond/internal/session"
	"github.com/aicell-lab/collectiond/internal/vectorstore"
)

// Registry provides access to all collectiond services.
// Use accessor methods to retrieve individual services.
type Registry interface {
	Collections() *collection.Manager
	Applications() *application.Manager
	Sessions() *session.Manager
	Data() *data.Service
	VectorStore() vectorstore.Store
	Tracker() artifact.Tracker
}

// Options configures the registry with service instances.
type Options struct {
	Collections  *collection.Manager
	Applications *application.Manager
	Sessions     *session.Manager
	Data         *data.Service
	VectorStore  vectorstore.Store
	Tracker      artifact.Tracker
}

// registry is the concrete implementation of Registry.
type registry struct {
	collections  *collection.Manager
	applications *application.Manager
	sessions     *session.Manager
	data         *data.Service
	vectorStore  vectorstore.Store
	tracker      artifact.Tracker
}

// NewRegistry creates a new service registry.
func NewRegistry(opts Options) Registry {
	return &registry{
		collections:  opts.Collections,
		applications: opts.Applications,
		sessions:     opts.Sessions,
		data:         opts.Data,
		vectorStore:  opts.VectorStore,
		tracker:      opts.Tracker,
	}
}

func (r *registry) Collections() *collection.Manager   { return r.collections }
func (r *registry) Applications() *application.Manager { return r.applications }
func (r *registry) Sessions() *session.Manager         { return r.sessions }
func (r *registry) Data() *data.Service                { return r.data }
func (r *registry) VectorStore() vectorstore.Store     { return r.vectorStore }
func (r *registry) Tracker() artifact.Tracker          { return r.tracker }
