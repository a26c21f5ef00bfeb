// Package data is the scoped data-plane façade over the vector store.
//
// Every operation resolves the caller's workspace and collection to a
// store Scope, stamps writes with the application (and optional
// session) tags, and conjoins reads with the derived equality filter on
// those tags. The derived filter is never overridable by the caller, so
// an operation can only ever touch data inside its own scope.
package data

import (
	"context"
	"errors"
	"fmt"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/aicell-lab/collectiond/internal/generative"
	"github.com/aicell-lab/collectiond/internal/naming"
	"github.com/aicell-lab/collectiond/internal/permission"
	"github.com/aicell-lab/collectiond/internal/vectorstore"
)

const instrumentationName = "github.com/aicell-lab/collectiond/internal/data"

// Sentinel errors for data-plane operations.
var (
	// ErrMissingApplication indicates a write without an application id.
	ErrMissingApplication = errors.New("application id required")

	// ErrUnscopedQuery indicates a read without an application id by a
	// caller that lacks admin capability. Unscoped reads are a
	// maintenance path, not a normal one.
	ErrUnscopedQuery = errors.New("unscoped query requires admin capability")

	// ErrReservedProperty indicates an update tried to change a scope tag.
	ErrReservedProperty = errors.New("cannot modify reserved scope property")

	// ErrNoGenerator indicates generative search without a configured backend.
	ErrNoGenerator = errors.New("no generative backend configured")
)

// GenerateResult pairs generative output with the objects it was
// produced from.
type GenerateResult struct {
	Generations []generative.Generation `json:"generations"`
	Objects     []vectorstore.Object    `json:"objects"`
}

// Service is the data-plane façade.
type Service struct {
	store     vectorstore.Store
	generator generative.Generator
	checker   *permission.Checker
	logger    *zap.Logger

	tracer        trace.Tracer
	meter         metric.Meter
	writeCounter  metric.Int64Counter
	queryCounter  metric.Int64Counter
	deleteCounter metric.Int64Counter
}

// NewService creates the data façade. The generator may be nil, in
// which case generative search is unavailable.
func NewService(store vectorstore.Store, generator generative.Generator, checker *permission.Checker, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	s := &Service{
		store:     store,
		generator: generator,
		checker:   checker,
		logger:    logger.Named("data"),
		tracer:    otel.Tracer(instrumentationName),
		meter:     otel.Meter(instrumentationName),
	}
	s.initMetrics()
	return s
}

func (s *Service) initMetrics() {
	var err error
	s.writeCounter, err = s.meter.Int64Counter(
		"collectiond.data.writes_total",
		metric.WithDescription("Total objects written"),
		metric.WithUnit("{object}"),
	)
	if err != nil {
		s.logger.Warn("failed to create write counter", zap.Error(err))
	}
	s.queryCounter, err = s.meter.Int64Counter(
		"collectiond.data.queries_total",
		metric.WithDescription("Total data-plane queries"),
		metric.WithUnit("{query}"),
	)
	if err != nil {
		s.logger.Warn("failed to create query counter", zap.Error(err))
	}
	s.deleteCounter, err = s.meter.Int64Counter(
		"collectiond.data.deletes_total",
		metric.WithDescription("Total objects deleted"),
		metric.WithUnit("{object}"),
	)
	if err != nil {
		s.logger.Warn("failed to create delete counter", zap.Error(err))
	}
}

// Insert stamps and writes one object, returning its identifier.
func (s *Service) Insert(ctx context.Context, tenant, collectionName, applicationID, sessionID string, obj vectorstore.Object) (string, error) {
	ctx, span := s.tracer.Start(ctx, "data.Insert")
	defer span.End()

	scope, err := s.scope(tenant, collectionName)
	if err != nil {
		return "", err
	}
	if applicationID == "" {
		return "", ErrMissingApplication
	}

	stamped := stamp(obj, applicationID, sessionID)
	id, err := s.store.Insert(ctx, scope, stamped)
	if err != nil {
		return "", err
	}

	if s.writeCounter != nil {
		s.writeCounter.Add(ctx, 1, metric.WithAttributes(
			attribute.String("collection", collectionName),
		))
	}
	return id, nil
}

// InsertMany stamps all objects identically and writes them as one
// batch. Per-object failures are reported in the result, not raised.
func (s *Service) InsertMany(ctx context.Context, tenant, collectionName, applicationID, sessionID string, objs []vectorstore.Object) (*vectorstore.InsertManyResult, error) {
	ctx, span := s.tracer.Start(ctx, "data.InsertMany")
	defer span.End()
	span.SetAttributes(attribute.Int("object_count", len(objs)))

	scope, err := s.scope(tenant, collectionName)
	if err != nil {
		return nil, err
	}
	if applicationID == "" {
		return nil, ErrMissingApplication
	}

	stamped := make([]vectorstore.Object, len(objs))
	for i, obj := range objs {
		stamped[i] = stamp(obj, applicationID, sessionID)
	}

	result, err := s.store.InsertMany(ctx, scope, stamped)
	if result != nil && s.writeCounter != nil {
		s.writeCounter.Add(ctx, int64(result.Successful), metric.WithAttributes(
			attribute.String("collection", collectionName),
		))
	}
	return result, err
}

// Update applies a partial property merge to one object. The object
// must belong to the stated application (and session, when given);
// mismatches surface as not found, and the scope tags themselves cannot
// be modified.
func (s *Service) Update(ctx context.Context, tenant, collectionName, applicationID, sessionID, id string, properties map[string]any) error {
	ctx, span := s.tracer.Start(ctx, "data.Update")
	defer span.End()

	for key := range properties {
		if isReservedKey(key) {
			return fmt.Errorf("%w: %s", ErrReservedProperty, key)
		}
	}

	scope, err := s.scope(tenant, collectionName)
	if err != nil {
		return err
	}
	if err := s.verifyMembership(ctx, scope, applicationID, sessionID, id); err != nil {
		return err
	}
	return s.store.Update(ctx, scope, id, properties)
}

// DeleteByID deletes one object after verifying it belongs to the
// stated scope. Deleting an object that is absent (or outside the
// scope) is a no-op.
func (s *Service) DeleteByID(ctx context.Context, tenant, collectionName, applicationID, sessionID, id string) error {
	ctx, span := s.tracer.Start(ctx, "data.DeleteByID")
	defer span.End()

	scope, err := s.scope(tenant, collectionName)
	if err != nil {
		return err
	}
	if err := s.verifyMembership(ctx, scope, applicationID, sessionID, id); err != nil {
		if errors.Is(err, vectorstore.ErrObjectNotFound) {
			return nil
		}
		return err
	}
	if err := s.store.DeleteByID(ctx, scope, id); err != nil {
		return err
	}
	if s.deleteCounter != nil {
		s.deleteCounter.Add(ctx, 1, metric.WithAttributes(
			attribute.String("collection", collectionName),
		))
	}
	return nil
}

// ExistsByID reports whether an object exists inside the stated scope.
func (s *Service) ExistsByID(ctx context.Context, tenant, collectionName, applicationID, sessionID, id string) (bool, error) {
	ctx, span := s.tracer.Start(ctx, "data.ExistsByID")
	defer span.End()

	scope, err := s.scope(tenant, collectionName)
	if err != nil {
		return false, err
	}
	err = s.verifyMembership(ctx, scope, applicationID, sessionID, id)
	if err != nil {
		if errors.Is(err, vectorstore.ErrObjectNotFound) {
			return false, nil
		}
		return false, err
	}
	return true, nil
}

// DeleteMany deletes every object matching the caller's filter inside
// the scope, returning the matched objects with logical collection
// names.
func (s *Service) DeleteMany(ctx context.Context, tenant, collectionName, applicationID, sessionID string, filter vectorstore.Filter) (*vectorstore.DeleteManyResult, error) {
	ctx, span := s.tracer.Start(ctx, "data.DeleteMany")
	defer span.End()

	scope, merged, err := s.scopedFilter(tenant, collectionName, applicationID, sessionID, filter)
	if err != nil {
		return nil, err
	}

	result, err := s.store.DeleteMany(ctx, scope, merged)
	if err != nil {
		return nil, err
	}
	for i := range result.Objects {
		result.Objects[i].Collection = naming.ShortName(result.Objects[i].Collection)
	}
	if s.deleteCounter != nil {
		s.deleteCounter.Add(ctx, result.Successful, metric.WithAttributes(
			attribute.String("collection", collectionName),
		))
	}
	return result, nil
}

// FetchObjects lists objects inside the scope.
func (s *Service) FetchObjects(ctx context.Context, tenant, collectionName, applicationID, sessionID string, filter vectorstore.Filter, opts vectorstore.FetchOptions) ([]vectorstore.Object, error) {
	ctx, span := s.tracer.Start(ctx, "data.FetchObjects")
	defer span.End()

	scope, merged, err := s.scopedFilter(tenant, collectionName, applicationID, sessionID, filter)
	if err != nil {
		return nil, err
	}

	objs, err := s.store.FetchObjects(ctx, scope, merged, opts)
	if err != nil {
		return nil, err
	}
	s.countQuery(ctx, collectionName, "fetch")
	return stripPrefixes(objs), nil
}

// NearVector performs similarity search inside the scope.
func (s *Service) NearVector(ctx context.Context, tenant, collectionName, applicationID, sessionID string, vector []float32, filter vectorstore.Filter, limit uint64) ([]vectorstore.Object, error) {
	ctx, span := s.tracer.Start(ctx, "data.NearVector")
	defer span.End()

	scope, merged, err := s.scopedFilter(tenant, collectionName, applicationID, sessionID, filter)
	if err != nil {
		return nil, err
	}

	objs, err := s.store.NearVector(ctx, scope, vector, merged, limit)
	if err != nil {
		return nil, err
	}
	s.countQuery(ctx, collectionName, "near_vector")
	return stripPrefixes(objs), nil
}

// Hybrid fuses keyword and vector search inside the scope.
func (s *Service) Hybrid(ctx context.Context, tenant, collectionName, applicationID, sessionID, query string, vector []float32, alpha float32, filter vectorstore.Filter, limit uint64) ([]vectorstore.Object, error) {
	ctx, span := s.tracer.Start(ctx, "data.Hybrid")
	defer span.End()

	scope, merged, err := s.scopedFilter(tenant, collectionName, applicationID, sessionID, filter)
	if err != nil {
		return nil, err
	}

	objs, err := s.store.Hybrid(ctx, scope, query, vector, alpha, merged, limit)
	if err != nil {
		return nil, err
	}
	s.countQuery(ctx, collectionName, "hybrid")
	return stripPrefixes(objs), nil
}

// NearText embeds the query and performs similarity search inside the
// scope.
func (s *Service) NearText(ctx context.Context, tenant, collectionName, applicationID, sessionID, query string, filter vectorstore.Filter, limit uint64) ([]vectorstore.Object, error) {
	ctx, span := s.tracer.Start(ctx, "data.NearText")
	defer span.End()

	scope, merged, err := s.scopedFilter(tenant, collectionName, applicationID, sessionID, filter)
	if err != nil {
		return nil, err
	}

	objs, err := s.store.NearText(ctx, scope, query, merged, limit)
	if err != nil {
		return nil, err
	}
	s.countQuery(ctx, collectionName, "near_text")
	return stripPrefixes(objs), nil
}

// GenerateNearText retrieves near-text matches inside the scope and
// runs the generative task over them. Ranking and generation semantics
// are fully delegated to the store and the model backend.
func (s *Service) GenerateNearText(ctx context.Context, tenant, collectionName, applicationID, sessionID, query string, filter vectorstore.Filter, limit uint64, task generative.Task) (*GenerateResult, error) {
	ctx, span := s.tracer.Start(ctx, "data.GenerateNearText")
	defer span.End()

	if s.generator == nil {
		return nil, ErrNoGenerator
	}

	objs, err := s.NearText(ctx, tenant, collectionName, applicationID, sessionID, query, filter, limit)
	if err != nil {
		return nil, err
	}

	generations, err := s.generator.Generate(ctx, task, objs)
	if err != nil {
		return nil, err
	}
	return &GenerateResult{Generations: generations, Objects: objs}, nil
}

func (s *Service) scope(tenant, collectionName string) (vectorstore.Scope, error) {
	physical, err := naming.FullName(tenant, collectionName)
	if err != nil {
		return vectorstore.Scope{}, err
	}
	return vectorstore.Scope{
		Collection: physical,
		Tenant:     naming.PartitionName(tenant),
	}, nil
}

// scopedFilter resolves the scope and conjoins the caller's filter with
// the derived application/session filter. An empty application id means
// an unscoped read, which only admin workspaces may run.
func (s *Service) scopedFilter(tenant, collectionName, applicationID, sessionID string, filter vectorstore.Filter) (vectorstore.Scope, vectorstore.Filter, error) {
	scope, err := s.scope(tenant, collectionName)
	if err != nil {
		return vectorstore.Scope{}, vectorstore.Filter{}, err
	}

	if applicationID == "" {
		if !s.checker.IsAdminTenant(tenant) {
			return vectorstore.Scope{}, vectorstore.Filter{}, ErrUnscopedQuery
		}
		merged, err := vectorstore.MergeScopeFilter(filter, vectorstore.Filter{})
		return scope, merged, err
	}

	derived := vectorstore.Eq(vectorstore.ApplicationKey, applicationID)
	if sessionID != "" {
		derived = derived.And(vectorstore.Condition{Field: vectorstore.SessionKey, Equal: sessionID})
	}
	merged, err := vectorstore.MergeScopeFilter(filter, derived)
	return scope, merged, err
}

// verifyMembership reads the object and checks it carries the stated
// scope tags. Objects outside the scope surface as not found; callers
// must not learn whether an id exists in a different scope.
func (s *Service) verifyMembership(ctx context.Context, scope vectorstore.Scope, applicationID, sessionID, id string) error {
	if applicationID == "" {
		return ErrMissingApplication
	}
	obj, err := s.store.GetByID(ctx, scope, id)
	if err != nil {
		return err
	}
	if obj.Properties[vectorstore.ApplicationKey] != applicationID {
		return fmt.Errorf("%w: %s", vectorstore.ErrObjectNotFound, id)
	}
	if sessionID != "" && obj.Properties[vectorstore.SessionKey] != sessionID {
		return fmt.Errorf("%w: %s", vectorstore.ErrObjectNotFound, id)
	}
	return nil
}

func (s *Service) countQuery(ctx context.Context, collectionName, kind string) {
	if s.queryCounter != nil {
		s.queryCounter.Add(ctx, 1, metric.WithAttributes(
			attribute.String("collection", collectionName),
			attribute.String("kind", kind),
		))
	}
}

// stamp copies the object with the scope tags applied. The stamp always
// wins over caller-supplied property values.
func stamp(obj vectorstore.Object, applicationID, sessionID string) vectorstore.Object {
	props := make(map[string]any, len(obj.Properties)+2)
	for k, v := range obj.Properties {
		props[k] = v
	}
	props[vectorstore.ApplicationKey] = applicationID
	if sessionID != "" {
		props[vectorstore.SessionKey] = sessionID
	}
	out := obj
	out.Properties = props
	return out
}

func isReservedKey(key string) bool {
	return key == vectorstore.ApplicationKey || key == vectorstore.SessionKey || key == vectorstore.TenantKey
}

func stripPrefixes(objs []vectorstore.Object) []vectorstore.Object {
	for i := range objs {
		objs[i].Collection = naming.ShortName(objs[i].Collection)
	}
	return objs
}
