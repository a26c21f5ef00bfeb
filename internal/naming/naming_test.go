package naming

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFormatTenant(t *testing.T) {
	tests := []struct {
		name   string
		tenant string
		want   string
	}{
		{
			name:   "hyphens replaced and capitalized",
			tenant: "ws-user-alice",
			want:   "Ws_user_alice",
		},
		{
			name:   "already capitalized",
			tenant: "Alice",
			want:   "Alice",
		},
		{
			name:   "empty",
			tenant: "",
			want:   "",
		},
		{
			name:   "single rune",
			tenant: "a",
			want:   "A",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, FormatTenant(tt.tenant))
		})
	}
}

func TestFullName_DistinctAcrossTenants(t *testing.T) {
	n1, err := FullName("tenant-one", "Movie")
	require.NoError(t, err)
	n2, err := FullName("tenant-two", "Movie")
	require.NoError(t, err)

	assert.NotEqual(t, n1, n2)
	assert.True(t, IsInTenant(n1, "tenant-one"))
	assert.False(t, IsInTenant(n1, "tenant-two"))
	assert.True(t, IsInTenant(n2, "tenant-two"))
}

func TestFullName_RejectsDelimiter(t *testing.T) {
	_, err := FullName("alice", "bad"+Delimiter+"name")
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrInvalidName)
}

func TestFullNames(t *testing.T) {
	names, err := FullNames("alice", []string{"Movie", "Book"})
	require.NoError(t, err)
	require.Len(t, names, 2)
	assert.Equal(t, "Alice"+Delimiter+"Movie", names[0])
	assert.Equal(t, "Alice"+Delimiter+"Book", names[1])

	_, err = FullNames("alice", []string{"ok", "bad" + Delimiter})
	assert.ErrorIs(t, err, ErrInvalidName)
}

func TestShortName_RoundTrip(t *testing.T) {
	for _, logical := range []string{"Movie", "a", "with_underscores", "CamelCase"} {
		full, err := FullName("ws-team", logical)
		require.NoError(t, err)
		assert.Equal(t, logical, ShortName(full))
	}
}

func TestShortName_UnprefixedPassthrough(t *testing.T) {
	assert.Equal(t, "Movie", ShortName("Movie"))
}

func TestPartitionName(t *testing.T) {
	assert.Equal(t, "ws_user_google_104", PartitionName("ws_user_google|104"))
	assert.Equal(t, "alice", PartitionName("Alice"))
}

func TestApplicationArtifactName(t *testing.T) {
	name, err := ApplicationArtifactName("Alice"+Delimiter+"Movie", "app1")
	require.NoError(t, err)
	assert.Equal(t, "Alice"+Delimiter+"Movie:app1", name)

	_, err = ApplicationArtifactName("Alice"+Delimiter+"Movie", "bad:app")
	assert.ErrorIs(t, err, ErrInvalidName)
}

func TestSessionRecordName(t *testing.T) {
	name, err := SessionRecordName("Alice"+Delimiter+"Movie", "app1", "sess1")
	require.NoError(t, err)
	assert.Equal(t, "Alice"+Delimiter+"Movie:app1:sess1", name)

	_, err = SessionRecordName("Alice"+Delimiter+"Movie", "app1", "s:1")
	assert.ErrorIs(t, err, ErrInvalidName)

	_, err = SessionRecordName("Alice"+Delimiter+"Movie", "a:pp", "s1")
	assert.ErrorIs(t, err, ErrInvalidName)
}
