// Package vectorstore defines the interface for vector storage operations.
//
// A Store manages collections (schemas plus vectors) and the data inside
// them. Data operations are addressed by a Scope: the physical collection
// name plus an optional tenant partition. Partitions are implemented with
// payload metadata, so one collection can hold many isolated tenants, and
// every query inside a partition is automatically restricted to it.
//
// Implementations:
//   - QdrantStore: external Qdrant over gRPC
//   - MemoryStore: deterministic in-memory store for tests and local mode
package vectorstore

import (
	"context"
	"errors"
	"time"
)

// Sentinel errors for vector store operations.
var (
	// ErrCollectionNotFound is returned when a collection does not exist.
	ErrCollectionNotFound = errors.New("collection not found")

	// ErrCollectionExists is returned when attempting to create an existing collection.
	ErrCollectionExists = errors.New("collection already exists")

	// ErrObjectNotFound is returned when an object lookup by ID finds nothing.
	ErrObjectNotFound = errors.New("object not found")

	// ErrInvalidConfig indicates invalid configuration.
	ErrInvalidConfig = errors.New("invalid configuration")

	// ErrEmptyObjects indicates an empty or nil object batch.
	ErrEmptyObjects = errors.New("empty or nil objects")

	// ErrConnectionFailed indicates connection issues with the backing store.
	ErrConnectionFailed = errors.New("failed to connect to vector store")

	// ErrEmbeddingFailed indicates embedding generation failure.
	ErrEmbeddingFailed = errors.New("failed to generate embeddings")
)

// Distance is the similarity metric used by a collection.
type Distance string

// Supported distance metrics.
const (
	DistanceCosine Distance = "cosine"
	DistanceDot    Distance = "dot"
	DistanceEuclid Distance = "euclid"
)

// Property describes one named field of a collection schema.
type Property struct {
	Name        string `json:"name"`
	DataType    string `json:"data_type"`
	Description string `json:"description,omitempty"`
}

// GenerativeConfig selects the model backend used by generative search.
type GenerativeConfig struct {
	Provider string `json:"provider"`
	Model    string `json:"model"`
}

// Settings is the schema for a collection.
type Settings struct {
	// Name is the physical collection name.
	Name string `json:"name"`

	// Description is free-form and kept in collection metadata.
	Description string `json:"description,omitempty"`

	// VectorSize is the dimensionality of stored embeddings.
	VectorSize uint64 `json:"vector_size"`

	// Distance selects the similarity metric. Defaults to cosine.
	Distance Distance `json:"distance,omitempty"`

	// Properties are the declared payload fields.
	Properties []Property `json:"properties,omitempty"`

	// Generative configures generative search for the collection.
	Generative *GenerativeConfig `json:"generative,omitempty"`
}

// CollectionInfo contains metadata about a collection.
type CollectionInfo struct {
	Name       string `json:"name"`
	PointCount uint64 `json:"point_count"`
	VectorSize uint64 `json:"vector_size"`
}

// Scope addresses data operations: a collection plus an optional tenant
// partition inside it. An empty Tenant means the whole collection.
type Scope struct {
	Collection string
	Tenant     string
}

// Object is a stored record: an identifier, a schema-less property map
// and, on query results, a similarity score.
type Object struct {
	ID         string         `json:"id"`
	Properties map[string]any `json:"properties"`
	Vector     []float32      `json:"vector,omitempty"`

	// Collection is the physical collection the object came from.
	// Set on results only.
	Collection string `json:"collection,omitempty"`

	// Score is the similarity score on query results.
	Score float32 `json:"score,omitempty"`
}

// InsertManyResult reports the outcome of a batched insert. Partial
// success is expected and reported, not treated as a failure of the
// whole call.
type InsertManyResult struct {
	Successful int            `json:"successful"`
	Failed     int            `json:"failed"`
	IDs        []string       `json:"ids"`
	Errors     map[int]string `json:"errors,omitempty"`
	Elapsed    time.Duration  `json:"elapsed"`
}

// DeleteManyResult reports the outcome of a filtered bulk delete,
// including the objects that matched.
type DeleteManyResult struct {
	Successful int64    `json:"successful"`
	Failed     int64    `json:"failed"`
	Matches    int64    `json:"matches"`
	Objects    []Object `json:"objects,omitempty"`
}

// FetchOptions control plain (non-similarity) object listing.
type FetchOptions struct {
	Limit  uint32 `json:"limit,omitempty"`
	Offset uint64 `json:"offset,omitempty"`
}

// Embedder generates vector embeddings from text.
type Embedder interface {
	// EmbedDocuments generates embeddings for multiple texts.
	EmbedDocuments(ctx context.Context, texts []string) ([][]float32, error)

	// EmbedQuery generates an embedding for a single query.
	EmbedQuery(ctx context.Context, text string) ([]float32, error)
}

// Store is the interface for vector storage operations.
//
// The interface is transport-agnostic. All data operations take a Scope;
// when Scope.Tenant is set, writes are stamped with the partition and
// reads are restricted to it. Stores perform no retries beyond client
// construction: a failed remote call is surfaced immediately.
type Store interface {
	// CreateCollection creates a collection with the given schema.
	// Returns ErrCollectionExists if the name is taken.
	CreateCollection(ctx context.Context, settings Settings) error

	// GetCollection returns metadata about a collection, or
	// ErrCollectionNotFound.
	GetCollection(ctx context.Context, name string) (*CollectionInfo, error)

	// DeleteCollection deletes a collection and all its objects.
	DeleteCollection(ctx context.Context, name string) error

	// CollectionExists checks if a collection exists. The error is
	// non-nil only when the check itself fails.
	CollectionExists(ctx context.Context, name string) (bool, error)

	// ListCollections returns all collection names.
	ListCollections(ctx context.Context) ([]string, error)

	// EnsureTenant makes sure the tenant partition exists in the
	// collection. Idempotent.
	EnsureTenant(ctx context.Context, collection, tenant string) error

	// Insert writes one object and returns its identifier. A missing
	// Object.ID is generated.
	Insert(ctx context.Context, scope Scope, obj Object) (string, error)

	// InsertMany writes a batch in a single remote call and reports
	// per-object outcomes.
	InsertMany(ctx context.Context, scope Scope, objs []Object) (*InsertManyResult, error)

	// Update applies a partial property merge to one object by ID.
	Update(ctx context.Context, scope Scope, id string, properties map[string]any) error

	// DeleteByID deletes one object. Deleting a missing object is not
	// an error.
	DeleteByID(ctx context.Context, scope Scope, id string) error

	// ExistsByID reports whether an object exists.
	ExistsByID(ctx context.Context, scope Scope, id string) (bool, error)

	// GetByID returns one object, or ErrObjectNotFound.
	GetByID(ctx context.Context, scope Scope, id string) (*Object, error)

	// DeleteMany deletes all objects matching the filter and returns
	// the matched objects.
	DeleteMany(ctx context.Context, scope Scope, filter Filter) (*DeleteManyResult, error)

	// FetchObjects lists objects matching the filter, ordered by ID.
	FetchObjects(ctx context.Context, scope Scope, filter Filter, opts FetchOptions) ([]Object, error)

	// NearVector performs similarity search with an explicit vector.
	NearVector(ctx context.Context, scope Scope, vector []float32, filter Filter, limit uint64) ([]Object, error)

	// NearText embeds the query text and performs similarity search.
	NearText(ctx context.Context, scope Scope, query string, filter Filter, limit uint64) ([]Object, error)

	// Hybrid fuses vector similarity and keyword matching. When vector
	// is nil the query text is embedded. Alpha weights the vector leg;
	// implementations using rank fusion may treat it as advisory.
	Hybrid(ctx context.Context, scope Scope, query string, vector []float32, alpha float32, filter Filter, limit uint64) ([]Object, error)

	// Health checks connectivity to the backing store.
	Health(ctx context.Context) error

	// Close releases the connection and resources.
	Close() error
}
