package backup

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sampleExport = `{
  "__collections__": {
    "users": {
      "alice": {
        "name": "Alice",
        "age": 31,
        "score": 9.5,
        "joined": {"__datatype__": "timestamp", "value": {"_seconds": 1600000000, "_nanoseconds": 500}},
        "home": {"__datatype__": "geopoint", "value": {"_latitude": 51.5, "_longitude": -0.12}},
        "manager": {"__datatype__": "documentReference", "value": "users/bob"},
        "tags": ["a", 1, {"__datatype__": "documentReference", "value": "tags/x"}],
        "__collections__": {
          "posts": {"p1": {"title": "hello"}}
        }
      }
    }
  }
}`

func TestLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "backup.json")
	require.NoError(t, os.WriteFile(path, []byte(sampleExport), 0o600))

	node, err := Load(path)
	require.NoError(t, err)

	cols, ok, err := Collections(node)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Contains(t, cols, "users")
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.json"))
	assert.Error(t, err)
}

func TestParseErrors(t *testing.T) {
	tests := []struct {
		name  string
		input string
	}{
		{name: "empty", input: "   "},
		{name: "array top level", input: `[1,2]`},
		{name: "invalid json", input: `{"a":`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse(strings.NewReader(tt.input))
			assert.Error(t, err)
		})
	}
}

func TestDecodeDocument(t *testing.T) {
	node, err := Parse(strings.NewReader(sampleExport))
	require.NoError(t, err)
	cols, _, err := Collections(node)
	require.NoError(t, err)
	docs, err := Documents(cols["users"])
	require.NoError(t, err)

	fields, err := DecodeDocument(docs["alice"])
	require.NoError(t, err)

	assert.NotContains(t, fields, CollectionsKey)
	assert.Equal(t, "Alice", fields["name"])
	assert.Equal(t, int64(31), fields["age"])
	assert.Equal(t, 9.5, fields["score"])
	assert.Equal(t, time.Unix(1600000000, 500).UTC(), fields["joined"])
	assert.Equal(t, GeoPoint{Latitude: 51.5, Longitude: -0.12}, fields["home"])
	assert.Equal(t, DocumentRef{Path: "users/bob"}, fields["manager"])
	assert.Equal(t, []any{"a", int64(1), DocumentRef{Path: "tags/x"}}, fields["tags"])

	sub, ok, err := Collections(docs["alice"])
	require.NoError(t, err)
	require.True(t, ok)
	assert.Contains(t, sub, "posts")
}

func TestDecodeDocumentErrors(t *testing.T) {
	tests := []struct {
		name  string
		input string
	}{
		{name: "unknown datatype", input: `{"f": {"__datatype__": "blob", "value": "x"}}`},
		{name: "timestamp not object", input: `{"f": {"__datatype__": "timestamp", "value": 12}}`},
		{name: "timestamp missing seconds", input: `{"f": {"__datatype__": "timestamp", "value": {"_nanoseconds": 1}}}`},
		{name: "geopoint out of range", input: `{"f": {"__datatype__": "geopoint", "value": {"_latitude": 91, "_longitude": 0}}}`},
		{name: "empty reference", input: `{"f": {"__datatype__": "documentReference", "value": ""}}`},
		{name: "nested unknown", input: `{"f": {"g": [{"__datatype__": "nope"}]}}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			node, err := Parse(strings.NewReader(tt.input))
			require.NoError(t, err)
			_, err = DecodeDocument(node)
			assert.Error(t, err)
		})
	}
}

func TestDocumentsRejectsCollectionsKey(t *testing.T) {
	_, err := Documents(Node{CollectionsKey: Node{}})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unexpected")
}

func TestCollectionsAbsent(t *testing.T) {
	_, ok, err := Collections(Node{"field": "x"})
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestCollectionsInvalid(t *testing.T) {
	_, _, err := Collections(Node{CollectionsKey: "nope"})
	assert.Error(t, err)
	_, _, err = Collections(Node{CollectionsKey: Node{"users": 1}})
	assert.Error(t, err)
}
