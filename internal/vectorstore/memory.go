package vectorstore

import (
	"context"
	"errors"
	"fmt"
	"math"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
)

// MemoryStore is a deterministic in-memory Store for tests and the
// embedded/local mode. All operations are linear scans; results are
// ordered by score descending with ID as tie-break so repeated runs
// produce identical output.
type MemoryStore struct {
	mu          sync.RWMutex
	collections map[string]*memCollection
	embedder    Embedder
}

type memCollection struct {
	settings Settings
	tenants  map[string]struct{}
	objects  map[string]memObject
}

type memObject struct {
	tenant     string
	properties map[string]any
	vector     []float32
}

// NewMemoryStore creates an empty in-memory store. The embedder is
// optional; without one, text queries score by substring overlap.
func NewMemoryStore(embedder Embedder) *MemoryStore {
	return &MemoryStore{
		collections: make(map[string]*memCollection),
		embedder:    embedder,
	}
}

func (s *MemoryStore) CreateCollection(_ context.Context, settings Settings) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if settings.Name == "" {
		return fmt.Errorf("%w: collection name required", ErrInvalidConfig)
	}
	if _, ok := s.collections[settings.Name]; ok {
		return fmt.Errorf("%w: %s", ErrCollectionExists, settings.Name)
	}
	s.collections[settings.Name] = &memCollection{
		settings: settings,
		tenants:  make(map[string]struct{}),
		objects:  make(map[string]memObject),
	}
	return nil
}

func (s *MemoryStore) GetCollection(_ context.Context, name string) (*CollectionInfo, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	coll, ok := s.collections[name]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrCollectionNotFound, name)
	}
	return &CollectionInfo{
		Name:       name,
		PointCount: uint64(len(coll.objects)),
		VectorSize: coll.settings.VectorSize,
	}, nil
}

func (s *MemoryStore) DeleteCollection(_ context.Context, name string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.collections[name]; !ok {
		return fmt.Errorf("%w: %s", ErrCollectionNotFound, name)
	}
	delete(s.collections, name)
	return nil
}

func (s *MemoryStore) CollectionExists(_ context.Context, name string) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.collections[name]
	return ok, nil
}

func (s *MemoryStore) ListCollections(_ context.Context) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	names := make([]string, 0, len(s.collections))
	for name := range s.collections {
		names = append(names, name)
	}
	sort.Strings(names)
	return names, nil
}

func (s *MemoryStore) EnsureTenant(_ context.Context, collection, tenant string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if tenant == "" {
		return fmt.Errorf("%w: tenant required", ErrInvalidConfig)
	}
	coll, ok := s.collections[collection]
	if !ok {
		return fmt.Errorf("%w: %s", ErrCollectionNotFound, collection)
	}
	coll.tenants[tenant] = struct{}{}
	return nil
}

func (s *MemoryStore) Insert(ctx context.Context, scope Scope, obj Object) (string, error) {
	res, err := s.InsertMany(ctx, scope, []Object{obj})
	if err != nil {
		return "", err
	}
	return res.IDs[0], nil
}

func (s *MemoryStore) InsertMany(_ context.Context, scope Scope, objs []Object) (*InsertManyResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if len(objs) == 0 {
		return nil, ErrEmptyObjects
	}
	start := time.Now()

	coll, ok := s.collections[scope.Collection]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrCollectionNotFound, scope.Collection)
	}

	ids := make([]string, len(objs))
	for i, obj := range objs {
		id := obj.ID
		if id == "" {
			id = uuid.New().String()
		}
		ids[i] = id

		props := make(map[string]any, len(obj.Properties))
		for k, v := range obj.Properties {
			props[k] = v
		}
		coll.objects[id] = memObject{
			tenant:     scope.Tenant,
			properties: props,
			vector:     obj.Vector,
		}
	}

	return &InsertManyResult{
		Successful: len(objs),
		IDs:        ids,
		Elapsed:    time.Since(start),
	}, nil
}

func (s *MemoryStore) Update(_ context.Context, scope Scope, id string, properties map[string]any) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	coll, ok := s.collections[scope.Collection]
	if !ok {
		return fmt.Errorf("%w: %s", ErrCollectionNotFound, scope.Collection)
	}
	obj, ok := coll.objects[id]
	if !ok || !inTenant(obj, scope) {
		return fmt.Errorf("%w: %s", ErrObjectNotFound, id)
	}
	for k, v := range properties {
		obj.properties[k] = v
	}
	coll.objects[id] = obj
	return nil
}

func (s *MemoryStore) DeleteByID(_ context.Context, scope Scope, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	coll, ok := s.collections[scope.Collection]
	if !ok {
		return fmt.Errorf("%w: %s", ErrCollectionNotFound, scope.Collection)
	}
	if obj, ok := coll.objects[id]; ok && inTenant(obj, scope) {
		delete(coll.objects, id)
	}
	return nil
}

func (s *MemoryStore) ExistsByID(ctx context.Context, scope Scope, id string) (bool, error) {
	_, err := s.GetByID(ctx, scope, id)
	if err != nil {
		if errors.Is(err, ErrObjectNotFound) {
			return false, nil
		}
		return false, err
	}
	return true, nil
}

func (s *MemoryStore) GetByID(_ context.Context, scope Scope, id string) (*Object, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	coll, ok := s.collections[scope.Collection]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrCollectionNotFound, scope.Collection)
	}
	obj, ok := coll.objects[id]
	if !ok || !inTenant(obj, scope) {
		return nil, fmt.Errorf("%w: %s", ErrObjectNotFound, id)
	}
	out := toObject(id, obj, scope.Collection)
	return &out, nil
}

func (s *MemoryStore) DeleteMany(_ context.Context, scope Scope, filter Filter) (*DeleteManyResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	coll, ok := s.collections[scope.Collection]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrCollectionNotFound, scope.Collection)
	}

	result := &DeleteManyResult{}
	for _, id := range sortedIDs(coll) {
		obj := coll.objects[id]
		if !inTenant(obj, scope) || !matches(obj, filter) {
			continue
		}
		result.Objects = append(result.Objects, toObject(id, obj, scope.Collection))
		delete(coll.objects, id)
		result.Successful++
		result.Matches++
	}
	return result, nil
}

func (s *MemoryStore) FetchObjects(_ context.Context, scope Scope, filter Filter, opts FetchOptions) ([]Object, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	coll, ok := s.collections[scope.Collection]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrCollectionNotFound, scope.Collection)
	}

	var out []Object
	for _, id := range sortedIDs(coll) {
		obj := coll.objects[id]
		if !inTenant(obj, scope) || !matches(obj, filter) {
			continue
		}
		out = append(out, toObject(id, obj, scope.Collection))
	}

	if opts.Offset >= uint64(len(out)) {
		return nil, nil
	}
	out = out[opts.Offset:]
	if opts.Limit > 0 && uint32(len(out)) > opts.Limit {
		out = out[:opts.Limit]
	}
	return out, nil
}

func (s *MemoryStore) NearVector(_ context.Context, scope Scope, vector []float32, filter Filter, limit uint64) ([]Object, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	coll, ok := s.collections[scope.Collection]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrCollectionNotFound, scope.Collection)
	}

	var out []Object
	for _, id := range sortedIDs(coll) {
		obj := coll.objects[id]
		if !inTenant(obj, scope) || !matches(obj, filter) {
			continue
		}
		scored := toObject(id, obj, scope.Collection)
		scored.Score = cosine(vector, obj.vector)
		out = append(out, scored)
	}
	sortByScore(out)
	return truncate(out, limit), nil
}

func (s *MemoryStore) NearText(ctx context.Context, scope Scope, query string, filter Filter, limit uint64) ([]Object, error) {
	if s.embedder != nil {
		vector, err := s.embedder.EmbedQuery(ctx, query)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrEmbeddingFailed, err)
		}
		return s.NearVector(ctx, scope, vector, filter, limit)
	}
	return s.textSearch(scope, query, filter, limit)
}

func (s *MemoryStore) Hybrid(ctx context.Context, scope Scope, query string, vector []float32, alpha float32, filter Filter, limit uint64) ([]Object, error) {
	textHits, err := s.textSearch(scope, query, filter, 0)
	if err != nil {
		return nil, err
	}
	if alpha <= 0 || (vector == nil && s.embedder == nil) {
		return truncate(textHits, limit), nil
	}

	if vector == nil {
		vector, err = s.embedder.EmbedQuery(ctx, query)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrEmbeddingFailed, err)
		}
	}
	vectorHits, err := s.NearVector(ctx, scope, vector, filter, 0)
	if err != nil {
		return nil, err
	}

	// Weighted score fusion: alpha on the vector leg, 1-alpha on text.
	fused := make(map[string]Object)
	for _, hit := range textHits {
		hit.Score *= 1 - alpha
		fused[hit.ID] = hit
	}
	for _, hit := range vectorHits {
		if prev, ok := fused[hit.ID]; ok {
			prev.Score += alpha * hit.Score
			fused[hit.ID] = prev
			continue
		}
		hit.Score *= alpha
		fused[hit.ID] = hit
	}

	out := make([]Object, 0, len(fused))
	for _, hit := range fused {
		out = append(out, hit)
	}
	sortByScore(out)
	return truncate(out, limit), nil
}

func (s *MemoryStore) Health(context.Context) error { return nil }

func (s *MemoryStore) Close() error { return nil }

func (s *MemoryStore) textSearch(scope Scope, query string, filter Filter, limit uint64) ([]Object, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	coll, ok := s.collections[scope.Collection]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrCollectionNotFound, scope.Collection)
	}

	terms := strings.Fields(strings.ToLower(query))
	var out []Object
	for _, id := range sortedIDs(coll) {
		obj := coll.objects[id]
		if !inTenant(obj, scope) || !matches(obj, filter) {
			continue
		}
		score := textScore(obj, terms)
		if score == 0 {
			continue
		}
		scored := toObject(id, obj, scope.Collection)
		scored.Score = score
		out = append(out, scored)
	}
	sortByScore(out)
	return truncate(out, limit), nil
}

// textScore counts the fraction of query terms occurring in any string
// property.
func textScore(obj memObject, terms []string) float32 {
	if len(terms) == 0 {
		return 0
	}
	var haystack strings.Builder
	for _, v := range obj.properties {
		if str, ok := v.(string); ok {
			haystack.WriteString(strings.ToLower(str))
			haystack.WriteByte(' ')
		}
	}
	text := haystack.String()

	var found int
	for _, term := range terms {
		if strings.Contains(text, term) {
			found++
		}
	}
	return float32(found) / float32(len(terms))
}

func inTenant(obj memObject, scope Scope) bool {
	return scope.Tenant == "" || obj.tenant == scope.Tenant
}

func matches(obj memObject, filter Filter) bool {
	for _, cond := range filter.Must {
		v, ok := obj.properties[cond.Field]
		if !ok || fmt.Sprintf("%v", v) != fmt.Sprintf("%v", cond.Equal) {
			return false
		}
	}
	return true
}

func toObject(id string, obj memObject, collection string) Object {
	props := make(map[string]any, len(obj.properties))
	for k, v := range obj.properties {
		props[k] = v
	}
	return Object{
		ID:         id,
		Properties: props,
		Collection: collection,
	}
}

func sortedIDs(coll *memCollection) []string {
	ids := make([]string, 0, len(coll.objects))
	for id := range coll.objects {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

func sortByScore(objs []Object) {
	sort.SliceStable(objs, func(i, j int) bool {
		if objs[i].Score != objs[j].Score {
			return objs[i].Score > objs[j].Score
		}
		return objs[i].ID < objs[j].ID
	})
}

func truncate(objs []Object, limit uint64) []Object {
	if limit > 0 && uint64(len(objs)) > limit {
		return objs[:limit]
	}
	return objs
}

func cosine(a, b []float32) float32 {
	if len(a) == 0 || len(a) != len(b) {
		return 0
	}
	var dot, normA, normB float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}
	if normA == 0 || normB == 0 {
		return 0
	}
	return float32(dot / (math.Sqrt(normA) * math.Sqrt(normB)))
}
