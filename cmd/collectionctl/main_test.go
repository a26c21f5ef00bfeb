package main

import (
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestReadBody(t *testing.T) {
	t.Run("defaults to empty object", func(t *testing.T) {
		body, err := readBody([]string{"collections", "list"})
		require.NoError(t, err)
		assert.Equal(t, "{}", string(body))
	})

	t.Run("passes literal JSON through", func(t *testing.T) {
		body, err := readBody([]string{"collections", "get", `{"name":"docs"}`})
		require.NoError(t, err)
		assert.JSONEq(t, `{"name":"docs"}`, string(body))
	})

	t.Run("reads from file with @ prefix", func(t *testing.T) {
		path := t.TempDir() + "/body.json"
		require.NoError(t, os.WriteFile(path, []byte(`{"name":"docs"}`), 0o600))

		body, err := readBody([]string{"collections", "get", "@" + path})
		require.NoError(t, err)
		assert.JSONEq(t, `{"name":"docs"}`, string(body))
	})

	t.Run("errors on missing file", func(t *testing.T) {
		_, err := readBody([]string{"collections", "get", "@/nonexistent/body.json"})
		assert.Error(t, err)
	})
}
