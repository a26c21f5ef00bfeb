package vectorstore

import (
	"context"
	"fmt"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/google/uuid"
	"github.com/qdrant/go-client/qdrant"
	"go.uber.org/zap"
	"google.golang.org/grpc"
	grpccodes "google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

// idKey is the reserved payload key preserving the caller-visible object
// ID. Qdrant point IDs must be UUIDs, so non-UUID identifiers are hashed
// into point IDs and the original kept in payload.
const idKey = "__id"

// QdrantConfig holds configuration for the Qdrant gRPC client.
type QdrantConfig struct {
	// Host is the Qdrant server hostname or IP address.
	Host string

	// Port is the Qdrant gRPC port (6334 by default, not the REST 6333).
	Port int

	// APIKey authenticates against a secured Qdrant deployment. Optional.
	APIKey string

	// UseTLS enables TLS for the gRPC connection.
	UseTLS bool

	// Timeout bounds each store operation.
	Timeout time.Duration

	// StartupTimeout bounds the initial health check, retried with
	// exponential backoff while Qdrant comes up.
	StartupTimeout time.Duration

	// MaxMessageSize is the maximum gRPC message size in bytes.
	MaxMessageSize int

	// TextField is the payload field used for the keyword leg of hybrid
	// search.
	TextField string
}

// ApplyDefaults sets default values for unset fields.
func (c *QdrantConfig) ApplyDefaults() {
	if c.Host == "" {
		c.Host = "localhost"
	}
	if c.Port == 0 {
		c.Port = 6334
	}
	if c.Timeout == 0 {
		c.Timeout = 30 * time.Second
	}
	if c.StartupTimeout == 0 {
		c.StartupTimeout = 60 * time.Second
	}
	if c.MaxMessageSize == 0 {
		c.MaxMessageSize = 50 * 1024 * 1024
	}
	if c.TextField == "" {
		c.TextField = "content"
	}
}

// Validate validates the configuration.
func (c QdrantConfig) Validate() error {
	if c.Host == "" {
		return fmt.Errorf("%w: host required", ErrInvalidConfig)
	}
	if c.Port <= 0 || c.Port > 65535 {
		return fmt.Errorf("%w: invalid port: %d", ErrInvalidConfig, c.Port)
	}
	return nil
}

// QdrantStore is a Store implementation using Qdrant's native gRPC client.
//
// Tenant partitions are payload-based: objects carry the partition in a
// reserved payload key, a keyword payload index makes partition filters
// cheap, and every scoped read conjoins the partition condition.
type QdrantStore struct {
	client   *qdrant.Client
	embedder Embedder
	config   QdrantConfig
	logger   *zap.Logger
}

// NewQdrantStore creates a QdrantStore and verifies connectivity. The
// startup health check retries with exponential backoff until
// StartupTimeout elapses, so the store can be constructed while Qdrant
// is still coming up.
func NewQdrantStore(config QdrantConfig, embedder Embedder, logger *zap.Logger) (*QdrantStore, error) {
	config.ApplyDefaults()
	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	client, err := qdrant.NewClient(&qdrant.Config{
		Host:   config.Host,
		Port:   config.Port,
		APIKey: config.APIKey,
		UseTLS: config.UseTLS,
		GrpcOptions: []grpc.DialOption{
			grpc.WithDefaultCallOptions(
				grpc.MaxCallRecvMsgSize(config.MaxMessageSize),
				grpc.MaxCallSendMsgSize(config.MaxMessageSize),
			),
		},
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrConnectionFailed, err)
	}

	store := &QdrantStore{
		client:   client,
		embedder: embedder,
		config:   config,
		logger:   logger,
	}

	ctx, cancel := context.WithTimeout(context.Background(), config.StartupTimeout)
	defer cancel()

	policy := backoff.WithContext(backoff.NewExponentialBackOff(), ctx)
	err = backoff.RetryNotify(
		func() error { return store.Health(ctx) },
		policy,
		func(err error, next time.Duration) {
			logger.Warn("qdrant not ready, retrying",
				zap.Error(err),
				zap.Duration("next_attempt_in", next),
			)
		},
	)
	if err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("%w: %v", ErrConnectionFailed, err)
	}

	logger.Info("connected to qdrant",
		zap.String("host", config.Host),
		zap.Int("port", config.Port),
		zap.Bool("tls", config.UseTLS),
	)
	return store, nil
}

// Health checks connectivity to Qdrant.
func (s *QdrantStore) Health(ctx context.Context) error {
	ctx, cancel := s.opContext(ctx)
	defer cancel()
	if _, err := s.client.HealthCheck(ctx); err != nil {
		return fmt.Errorf("qdrant health check: %w", err)
	}
	return nil
}

// Close closes the gRPC connection.
func (s *QdrantStore) Close() error {
	if s.client != nil {
		return s.client.Close()
	}
	return nil
}

func (s *QdrantStore) opContext(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(ctx, s.config.Timeout)
}

// CreateCollection creates a collection and the keyword payload indexes
// used for scope filtering.
func (s *QdrantStore) CreateCollection(ctx context.Context, settings Settings) error {
	ctx, cancel := s.opContext(ctx)
	defer cancel()

	if settings.Name == "" {
		return fmt.Errorf("%w: collection name required", ErrInvalidConfig)
	}
	if settings.VectorSize == 0 {
		return fmt.Errorf("%w: vector size required", ErrInvalidConfig)
	}

	exists, err := s.client.CollectionExists(ctx, settings.Name)
	if err != nil {
		return fmt.Errorf("checking collection %s: %w", settings.Name, err)
	}
	if exists {
		return fmt.Errorf("%w: %s", ErrCollectionExists, settings.Name)
	}

	err = s.client.CreateCollection(ctx, &qdrant.CreateCollection{
		CollectionName: settings.Name,
		VectorsConfig: qdrant.NewVectorsConfig(&qdrant.VectorParams{
			Size:     settings.VectorSize,
			Distance: toQdrantDistance(settings.Distance),
		}),
	})
	if err != nil {
		return fmt.Errorf("creating collection %s: %w", settings.Name, err)
	}

	// Scope filters hit these fields on every read.
	for _, field := range []string{TenantKey, ApplicationKey, SessionKey} {
		_, err := s.client.CreateFieldIndex(ctx, &qdrant.CreateFieldIndexCollection{
			CollectionName: settings.Name,
			FieldName:      field,
			FieldType:      qdrant.FieldType_FieldTypeKeyword.Enum(),
		})
		if err != nil {
			return fmt.Errorf("indexing %s on %s: %w", field, settings.Name, err)
		}
	}
	return nil
}

// GetCollection returns metadata about a collection.
func (s *QdrantStore) GetCollection(ctx context.Context, name string) (*CollectionInfo, error) {
	ctx, cancel := s.opContext(ctx)
	defer cancel()

	info, err := s.client.GetCollectionInfo(ctx, name)
	if err != nil {
		if status.Code(err) == grpccodes.NotFound {
			return nil, fmt.Errorf("%w: %s", ErrCollectionNotFound, name)
		}
		return nil, fmt.Errorf("getting collection %s: %w", name, err)
	}

	out := &CollectionInfo{Name: name}
	if info.PointsCount != nil {
		out.PointCount = *info.PointsCount
	}
	if params := info.GetConfig().GetParams().GetVectorsConfig().GetParams(); params != nil {
		out.VectorSize = params.Size
	}
	return out, nil
}

// DeleteCollection deletes a collection and all its objects.
func (s *QdrantStore) DeleteCollection(ctx context.Context, name string) error {
	ctx, cancel := s.opContext(ctx)
	defer cancel()

	exists, err := s.client.CollectionExists(ctx, name)
	if err != nil {
		return fmt.Errorf("checking collection %s: %w", name, err)
	}
	if !exists {
		return fmt.Errorf("%w: %s", ErrCollectionNotFound, name)
	}
	if err := s.client.DeleteCollection(ctx, name); err != nil {
		return fmt.Errorf("deleting collection %s: %w", name, err)
	}
	return nil
}

// CollectionExists checks if a collection exists.
func (s *QdrantStore) CollectionExists(ctx context.Context, name string) (bool, error) {
	ctx, cancel := s.opContext(ctx)
	defer cancel()

	exists, err := s.client.CollectionExists(ctx, name)
	if err != nil {
		return false, fmt.Errorf("checking collection %s: %w", name, err)
	}
	return exists, nil
}

// ListCollections returns all collection names.
func (s *QdrantStore) ListCollections(ctx context.Context) ([]string, error) {
	ctx, cancel := s.opContext(ctx)
	defer cancel()

	names, err := s.client.ListCollections(ctx)
	if err != nil {
		return nil, fmt.Errorf("listing collections: %w", err)
	}
	return names, nil
}

// EnsureTenant makes sure the tenant partition is usable. With
// payload-based partitioning the partition itself is implicit, so this
// re-asserts the keyword index on the partition key. Idempotent.
func (s *QdrantStore) EnsureTenant(ctx context.Context, collection, tenant string) error {
	ctx, cancel := s.opContext(ctx)
	defer cancel()

	if tenant == "" {
		return fmt.Errorf("%w: tenant required", ErrInvalidConfig)
	}
	_, err := s.client.CreateFieldIndex(ctx, &qdrant.CreateFieldIndexCollection{
		CollectionName: collection,
		FieldName:      TenantKey,
		FieldType:      qdrant.FieldType_FieldTypeKeyword.Enum(),
	})
	if err != nil {
		if status.Code(err) == grpccodes.NotFound {
			return fmt.Errorf("%w: %s", ErrCollectionNotFound, collection)
		}
		return fmt.Errorf("ensuring tenant %s in %s: %w", tenant, collection, err)
	}
	return nil
}

// Insert writes one object and returns its identifier.
func (s *QdrantStore) Insert(ctx context.Context, scope Scope, obj Object) (string, error) {
	res, err := s.InsertMany(ctx, scope, []Object{obj})
	if err != nil {
		return "", err
	}
	return res.IDs[0], nil
}

// InsertMany writes a batch in a single upsert.
func (s *QdrantStore) InsertMany(ctx context.Context, scope Scope, objs []Object) (*InsertManyResult, error) {
	ctx, cancel := s.opContext(ctx)
	defer cancel()

	if len(objs) == 0 {
		return nil, ErrEmptyObjects
	}
	start := time.Now()

	points := make([]*qdrant.PointStruct, len(objs))
	ids := make([]string, len(objs))
	for i, obj := range objs {
		id := obj.ID
		if id == "" {
			id = uuid.New().String()
		}
		ids[i] = id

		vector := obj.Vector
		if vector == nil && s.embedder != nil {
			text, _ := obj.Properties[s.config.TextField].(string)
			embedded, err := s.embedder.EmbedQuery(ctx, text)
			if err != nil {
				return nil, fmt.Errorf("%w: %v", ErrEmbeddingFailed, err)
			}
			vector = embedded
		}

		payload := qdrant.NewValueMap(obj.Properties)
		payload[idKey] = qdrant.NewValueString(id)
		if scope.Tenant != "" {
			payload[TenantKey] = qdrant.NewValueString(scope.Tenant)
		}

		points[i] = &qdrant.PointStruct{
			Id:      pointID(id),
			Vectors: qdrant.NewVectors(vector...),
			Payload: payload,
		}
	}

	_, err := s.client.Upsert(ctx, &qdrant.UpsertPoints{
		CollectionName: scope.Collection,
		Points:         points,
		Wait:           qdrant.PtrOf(true),
	})
	if err != nil {
		// The whole batch is one remote call; a transport failure fails
		// every item in it.
		result := &InsertManyResult{
			Failed:  len(objs),
			IDs:     ids,
			Errors:  map[int]string{},
			Elapsed: time.Since(start),
		}
		for i := range objs {
			result.Errors[i] = err.Error()
		}
		return result, fmt.Errorf("upserting %d points to %s: %w", len(objs), scope.Collection, err)
	}

	return &InsertManyResult{
		Successful: len(objs),
		IDs:        ids,
		Elapsed:    time.Since(start),
	}, nil
}

// Update applies a partial property merge to one object.
func (s *QdrantStore) Update(ctx context.Context, scope Scope, id string, properties map[string]any) error {
	ctx, cancel := s.opContext(ctx)
	defer cancel()

	exists, err := s.ExistsByID(ctx, scope, id)
	if err != nil {
		return err
	}
	if !exists {
		return fmt.Errorf("%w: %s", ErrObjectNotFound, id)
	}

	_, err = s.client.SetPayload(ctx, &qdrant.SetPayloadPoints{
		CollectionName: scope.Collection,
		Payload:        qdrant.NewValueMap(properties),
		PointsSelector: qdrant.NewPointsSelector(pointID(id)),
		Wait:           qdrant.PtrOf(true),
	})
	if err != nil {
		return fmt.Errorf("updating object %s in %s: %w", id, scope.Collection, err)
	}
	return nil
}

// DeleteByID deletes one object. Deleting a missing object is a no-op.
func (s *QdrantStore) DeleteByID(ctx context.Context, scope Scope, id string) error {
	ctx, cancel := s.opContext(ctx)
	defer cancel()

	_, err := s.client.Delete(ctx, &qdrant.DeletePoints{
		CollectionName: scope.Collection,
		Points:         qdrant.NewPointsSelector(pointID(id)),
		Wait:           qdrant.PtrOf(true),
	})
	if err != nil {
		return fmt.Errorf("deleting object %s from %s: %w", id, scope.Collection, err)
	}
	return nil
}

// ExistsByID reports whether an object exists inside the scope.
func (s *QdrantStore) ExistsByID(ctx context.Context, scope Scope, id string) (bool, error) {
	obj, err := s.GetByID(ctx, scope, id)
	if err != nil {
		if status.Code(err) == grpccodes.NotFound {
			return false, nil
		}
		return false, err
	}
	return obj != nil, nil
}

// GetByID returns one object, or ErrObjectNotFound. The scope's tenant
// partition is enforced: an object in another partition is not found.
func (s *QdrantStore) GetByID(ctx context.Context, scope Scope, id string) (*Object, error) {
	ctx, cancel := s.opContext(ctx)
	defer cancel()

	points, err := s.client.Get(ctx, &qdrant.GetPoints{
		CollectionName: scope.Collection,
		Ids:            []*qdrant.PointId{pointID(id)},
		WithPayload:    qdrant.NewWithPayload(true),
	})
	if err != nil {
		if status.Code(err) == grpccodes.NotFound {
			return nil, fmt.Errorf("%w: %s", ErrObjectNotFound, id)
		}
		return nil, fmt.Errorf("getting object %s from %s: %w", id, scope.Collection, err)
	}
	if len(points) == 0 {
		return nil, fmt.Errorf("%w: %s", ErrObjectNotFound, id)
	}

	obj := retrievedToObject(points[0], scope.Collection)
	if scope.Tenant != "" && points[0].Payload[TenantKey].GetStringValue() != scope.Tenant {
		return nil, fmt.Errorf("%w: %s", ErrObjectNotFound, id)
	}
	return &obj, nil
}

// DeleteMany deletes all objects matching the filter inside the scope and
// returns the matched objects.
func (s *QdrantStore) DeleteMany(ctx context.Context, scope Scope, filter Filter) (*DeleteManyResult, error) {
	ctx, cancel := s.opContext(ctx)
	defer cancel()

	qf := s.scopedFilter(scope, filter)

	var matched []Object
	var cursor *qdrant.PointId
	seen := make(map[string]struct{})
	for {
		points, err := s.client.Scroll(ctx, &qdrant.ScrollPoints{
			CollectionName: scope.Collection,
			Filter:         qf,
			Limit:          qdrant.PtrOf(uint32(256)),
			Offset:         cursor,
			WithPayload:    qdrant.NewWithPayload(true),
		})
		if err != nil {
			return nil, fmt.Errorf("matching objects in %s: %w", scope.Collection, err)
		}
		if len(points) == 0 {
			break
		}
		matched = appendUnseenPoints(matched, seen, points, scope.Collection)
		if len(points) < 256 {
			break
		}
		cursor = points[len(points)-1].Id
	}

	if len(matched) == 0 {
		return &DeleteManyResult{}, nil
	}

	_, err := s.client.Delete(ctx, &qdrant.DeletePoints{
		CollectionName: scope.Collection,
		Points:         qdrant.NewPointsSelectorFilter(qf),
		Wait:           qdrant.PtrOf(true),
	})
	if err != nil {
		return &DeleteManyResult{
			Failed:  int64(len(matched)),
			Matches: int64(len(matched)),
			Objects: matched,
		}, fmt.Errorf("deleting matched objects from %s: %w", scope.Collection, err)
	}

	return &DeleteManyResult{
		Successful: int64(len(matched)),
		Matches:    int64(len(matched)),
		Objects:    matched,
	}, nil
}

// FetchObjects lists objects matching the filter, ordered by point ID.
func (s *QdrantStore) FetchObjects(ctx context.Context, scope Scope, filter Filter, opts FetchOptions) ([]Object, error) {
	ctx, cancel := s.opContext(ctx)
	defer cancel()

	limit := uint64(opts.Limit)
	if limit == 0 {
		limit = 100
	}

	points, err := s.client.Query(ctx, &qdrant.QueryPoints{
		CollectionName: scope.Collection,
		Filter:         s.scopedFilter(scope, filter),
		Limit:          qdrant.PtrOf(limit),
		Offset:         qdrant.PtrOf(opts.Offset),
		WithPayload:    qdrant.NewWithPayload(true),
	})
	if err != nil {
		if status.Code(err) == grpccodes.NotFound {
			return nil, fmt.Errorf("%w: %s", ErrCollectionNotFound, scope.Collection)
		}
		return nil, fmt.Errorf("fetching objects from %s: %w", scope.Collection, err)
	}
	return scoredToObjects(points, scope.Collection), nil
}

// NearVector performs similarity search with an explicit vector.
func (s *QdrantStore) NearVector(ctx context.Context, scope Scope, vector []float32, filter Filter, limit uint64) ([]Object, error) {
	ctx, cancel := s.opContext(ctx)
	defer cancel()

	if limit == 0 {
		limit = 10
	}
	points, err := s.client.Query(ctx, &qdrant.QueryPoints{
		CollectionName: scope.Collection,
		Query:          qdrant.NewQuery(vector...),
		Filter:         s.scopedFilter(scope, filter),
		Limit:          qdrant.PtrOf(limit),
		WithPayload:    qdrant.NewWithPayload(true),
	})
	if err != nil {
		if status.Code(err) == grpccodes.NotFound {
			return nil, fmt.Errorf("%w: %s", ErrCollectionNotFound, scope.Collection)
		}
		return nil, fmt.Errorf("similarity search in %s: %w", scope.Collection, err)
	}
	return scoredToObjects(points, scope.Collection), nil
}

// NearText embeds the query and performs similarity search.
func (s *QdrantStore) NearText(ctx context.Context, scope Scope, query string, filter Filter, limit uint64) ([]Object, error) {
	if s.embedder == nil {
		return nil, fmt.Errorf("%w: no embedder configured", ErrEmbeddingFailed)
	}
	vector, err := s.embedder.EmbedQuery(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrEmbeddingFailed, err)
	}
	return s.NearVector(ctx, scope, vector, filter, limit)
}

// Hybrid fuses a vector similarity leg with a full-text leg over the
// configured text field using reciprocal rank fusion. Alpha is advisory
// under RRF and only decides whether the vector leg runs at all.
func (s *QdrantStore) Hybrid(ctx context.Context, scope Scope, query string, vector []float32, alpha float32, filter Filter, limit uint64) ([]Object, error) {
	ctx, cancel := s.opContext(ctx)
	defer cancel()

	if limit == 0 {
		limit = 10
	}
	if vector == nil && alpha > 0 {
		if s.embedder == nil {
			return nil, fmt.Errorf("%w: no embedder configured", ErrEmbeddingFailed)
		}
		embedded, err := s.embedder.EmbedQuery(ctx, query)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrEmbeddingFailed, err)
		}
		vector = embedded
	}

	qf := s.scopedFilter(scope, filter)
	textFilter := &qdrant.Filter{
		Must: append(qf.GetMust(), qdrant.NewMatchText(s.config.TextField, query)),
	}

	var prefetch []*qdrant.PrefetchQuery
	if vector != nil {
		prefetch = append(prefetch, &qdrant.PrefetchQuery{
			Query:  qdrant.NewQuery(vector...),
			Filter: qf,
			Limit:  qdrant.PtrOf(limit * 2),
		})
	}
	prefetch = append(prefetch, &qdrant.PrefetchQuery{
		Filter: textFilter,
		Limit:  qdrant.PtrOf(limit * 2),
	})

	points, err := s.client.Query(ctx, &qdrant.QueryPoints{
		CollectionName: scope.Collection,
		Prefetch:       prefetch,
		Query:          qdrant.NewQueryFusion(qdrant.Fusion_RRF),
		Limit:          qdrant.PtrOf(limit),
		WithPayload:    qdrant.NewWithPayload(true),
	})
	if err != nil {
		if status.Code(err) == grpccodes.NotFound {
			return nil, fmt.Errorf("%w: %s", ErrCollectionNotFound, scope.Collection)
		}
		return nil, fmt.Errorf("hybrid search in %s: %w", scope.Collection, err)
	}
	return scoredToObjects(points, scope.Collection), nil
}

// scopedFilter converts a Filter to Qdrant form, conjoining the tenant
// partition condition when the scope has one.
func (s *QdrantStore) scopedFilter(scope Scope, filter Filter) *qdrant.Filter {
	conditions := make([]*qdrant.Condition, 0, len(filter.Must)+1)
	if scope.Tenant != "" {
		conditions = append(conditions, qdrant.NewMatchKeyword(TenantKey, scope.Tenant))
	}
	for _, cond := range filter.Must {
		conditions = append(conditions, toQdrantCondition(cond))
	}
	if len(conditions) == 0 {
		return nil
	}
	return &qdrant.Filter{Must: conditions}
}

func toQdrantCondition(cond Condition) *qdrant.Condition {
	switch v := cond.Equal.(type) {
	case string:
		return qdrant.NewMatchKeyword(cond.Field, v)
	case bool:
		return qdrant.NewMatchBool(cond.Field, v)
	case int:
		return qdrant.NewMatchInt(cond.Field, int64(v))
	case int64:
		return qdrant.NewMatchInt(cond.Field, v)
	case float64:
		// JSON numbers decode as float64; integral values match int payloads.
		if v == float64(int64(v)) {
			return qdrant.NewMatchInt(cond.Field, int64(v))
		}
		return qdrant.NewMatchKeyword(cond.Field, fmt.Sprintf("%v", v))
	default:
		return qdrant.NewMatchKeyword(cond.Field, fmt.Sprintf("%v", v))
	}
}

func toQdrantDistance(d Distance) qdrant.Distance {
	switch d {
	case DistanceDot:
		return qdrant.Distance_Dot
	case DistanceEuclid:
		return qdrant.Distance_Euclid
	default:
		return qdrant.Distance_Cosine
	}
}

// pointID maps a caller-visible ID to a Qdrant point ID. UUIDs pass
// through; anything else hashes to a stable UUID so by-ID operations
// stay deterministic.
func pointID(id string) *qdrant.PointId {
	if _, err := uuid.Parse(id); err == nil {
		return qdrant.NewIDUUID(id)
	}
	return qdrant.NewIDUUID(uuid.NewSHA1(uuid.NameSpaceOID, []byte(id)).String())
}

// appendUnseenPoints converts a scroll page to objects, skipping points
// already collected. Paging resumes from the last returned point ID, so
// each page after the first starts with the previous page's tail point.
func appendUnseenPoints(matched []Object, seen map[string]struct{}, points []*qdrant.RetrievedPoint, collection string) []Object {
	for _, p := range points {
		key := p.Id.String()
		if _, ok := seen[key]; ok {
			continue
		}
		seen[key] = struct{}{}
		matched = append(matched, retrievedToObject(p, collection))
	}
	return matched
}

func retrievedToObject(p *qdrant.RetrievedPoint, collection string) Object {
	return Object{
		ID:         payloadObjectID(p.Payload, p.Id),
		Properties: payloadToProperties(p.Payload),
		Collection: collection,
	}
}

func scoredToObjects(points []*qdrant.ScoredPoint, collection string) []Object {
	objs := make([]Object, len(points))
	for i, p := range points {
		objs[i] = Object{
			ID:         payloadObjectID(p.Payload, p.Id),
			Properties: payloadToProperties(p.Payload),
			Collection: collection,
			Score:      p.Score,
		}
	}
	return objs
}

func payloadObjectID(payload map[string]*qdrant.Value, fallback *qdrant.PointId) string {
	if v, ok := payload[idKey]; ok {
		return v.GetStringValue()
	}
	return fallback.GetUuid()
}

// payloadToProperties converts a Qdrant payload back to a property map,
// dropping the reserved bookkeeping keys.
func payloadToProperties(payload map[string]*qdrant.Value) map[string]any {
	props := make(map[string]any, len(payload))
	for k, v := range payload {
		if k == idKey || k == TenantKey {
			continue
		}
		props[k] = valueToAny(v)
	}
	return props
}

func valueToAny(v *qdrant.Value) any {
	switch kind := v.GetKind().(type) {
	case *qdrant.Value_StringValue:
		return kind.StringValue
	case *qdrant.Value_IntegerValue:
		return kind.IntegerValue
	case *qdrant.Value_DoubleValue:
		return kind.DoubleValue
	case *qdrant.Value_BoolValue:
		return kind.BoolValue
	case *qdrant.Value_ListValue:
		items := make([]any, 0, len(kind.ListValue.GetValues()))
		for _, item := range kind.ListValue.GetValues() {
			items = append(items, valueToAny(item))
		}
		return items
	case *qdrant.Value_StructValue:
		fields := make(map[string]any, len(kind.StructValue.GetFields()))
		for k, item := range kind.StructValue.GetFields() {
			fields[k] = valueToAny(item)
		}
		return fields
	default:
		return nil
	}
}
