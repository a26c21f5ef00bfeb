package vectorstore

import (
	"testing"
	"time"

	"github.com/qdrant/go-client/qdrant"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestQdrantConfigApplyDefaults(t *testing.T) {
	var cfg QdrantConfig
	cfg.ApplyDefaults()

	assert.Equal(t, "localhost", cfg.Host)
	assert.Equal(t, 6334, cfg.Port)
	assert.Equal(t, 30*time.Second, cfg.Timeout)
	assert.Equal(t, 60*time.Second, cfg.StartupTimeout)
	assert.Equal(t, 50*1024*1024, cfg.MaxMessageSize)
	assert.Equal(t, "content", cfg.TextField)
}

func TestQdrantConfigApplyDefaultsKeepsSetValues(t *testing.T) {
	cfg := QdrantConfig{Host: "qdrant.internal", Port: 7000, TextField: "body"}
	cfg.ApplyDefaults()

	assert.Equal(t, "qdrant.internal", cfg.Host)
	assert.Equal(t, 7000, cfg.Port)
	assert.Equal(t, "body", cfg.TextField)
}

func TestQdrantConfigValidate(t *testing.T) {
	tests := []struct {
		name    string
		cfg     QdrantConfig
		wantErr bool
	}{
		{name: "valid", cfg: QdrantConfig{Host: "localhost", Port: 6334}},
		{name: "missing host", cfg: QdrantConfig{Port: 6334}, wantErr: true},
		{name: "port too low", cfg: QdrantConfig{Host: "localhost", Port: 0}, wantErr: true},
		{name: "port too high", cfg: QdrantConfig{Host: "localhost", Port: 70000}, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.cfg.Validate()
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrInvalidConfig)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestAppendUnseenPointsSkipsPageOverlap(t *testing.T) {
	point := func(id string) *qdrant.RetrievedPoint {
		return &qdrant.RetrievedPoint{
			Id:      pointID(id),
			Payload: qdrant.NewValueMap(map[string]any{idKey: id}),
		}
	}

	seen := make(map[string]struct{})
	var matched []Object

	matched = appendUnseenPoints(matched, seen, []*qdrant.RetrievedPoint{
		point("a"), point("b"), point("c"),
	}, "Movie")
	require.Len(t, matched, 3)

	// The next page resumes from the previous tail point, so it repeats
	// "c" before the new point. Only "d" may be collected again.
	matched = appendUnseenPoints(matched, seen, []*qdrant.RetrievedPoint{
		point("c"), point("d"),
	}, "Movie")

	require.Len(t, matched, 4)
	ids := make([]string, len(matched))
	for i, obj := range matched {
		ids[i] = obj.ID
	}
	assert.Equal(t, []string{"a", "b", "c", "d"}, ids)
}

func TestPointIDStable(t *testing.T) {
	// UUIDs pass through unchanged.
	id := "0f8fad5b-d9cb-469f-a165-70867728950e"
	assert.Equal(t, id, pointID(id).GetUuid())

	// Non-UUID identifiers hash deterministically.
	a := pointID("movie-42").GetUuid()
	b := pointID("movie-42").GetUuid()
	c := pointID("movie-43").GetUuid()
	assert.Equal(t, a, b)
	assert.NotEqual(t, a, c)
}
