package vectorstore

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMergeScopeFilter(t *testing.T) {
	scope := Eq(ApplicationKey, "app-1").And(Condition{Field: SessionKey, Equal: "sess-1"})

	t.Run("empty user filter returns scope", func(t *testing.T) {
		merged, err := MergeScopeFilter(Filter{}, scope)
		require.NoError(t, err)
		assert.Equal(t, scope, merged)
	})

	t.Run("user conditions are conjoined after scope", func(t *testing.T) {
		merged, err := MergeScopeFilter(Eq("genre", "scifi"), scope)
		require.NoError(t, err)
		require.Len(t, merged.Must, 3)
		assert.Equal(t, ApplicationKey, merged.Must[0].Field)
		assert.Equal(t, SessionKey, merged.Must[1].Field)
		assert.Equal(t, "genre", merged.Must[2].Field)
	})

	t.Run("reserved keys rejected", func(t *testing.T) {
		for _, key := range []string{ApplicationKey, SessionKey, TenantKey} {
			_, err := MergeScopeFilter(Eq(key, "evil"), scope)
			assert.ErrorIs(t, err, ErrReservedFilterKey, key)
		}
	})

	t.Run("merging does not mutate inputs", func(t *testing.T) {
		user := Eq("year", 1999)
		_, err := MergeScopeFilter(user, scope)
		require.NoError(t, err)
		assert.Len(t, user.Must, 1)
		assert.Len(t, scope.Must, 2)
	})
}

func TestFilterAnd(t *testing.T) {
	f := Eq("a", 1).And(Condition{Field: "b", Equal: 2})
	assert.Len(t, f.Must, 2)
	assert.False(t, f.Empty())
	assert.True(t, Filter{}.Empty())
}
