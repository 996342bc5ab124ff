// Package backup loads exported Firestore snapshots and decodes the special
// value encodings used by the exporter.
//
// A root or document node carries its subcollections under CollectionsKey; a
// collection node maps document ids to document nodes. Timestamps, geopoints
// and document references are wrapped as {"__datatype__": ..., "value": ...}.
package backup

import (
	"bytes"
	"encoding/json"
	"io"
	"os"

	"github.com/cockroachdb/errors"
)

// Reserved keys in the export format.
const (
	CollectionsKey = "__collections__"
	DataTypeKey    = "__datatype__"
	ValueKey       = "value"
)

// Node is a decoded-but-untyped JSON object from a backup file.
type Node = map[string]any

// Load reads and parses the backup file at path. The top level must be a
// JSON object.
func Load(path string) (Node, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.Wrap(err, "opening backup file")
	}
	defer f.Close()

	node, err := Parse(f)
	if err != nil {
		return nil, errors.Wrapf(err, "parsing backup file %s", path)
	}
	return node, nil
}

// Parse decodes a backup document from r. Numbers are kept as json.Number so
// integers survive the round trip; DecodeDocument narrows them later.
func Parse(r io.Reader) (Node, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, errors.Wrap(err, "reading backup")
	}
	if len(bytes.TrimSpace(data)) == 0 {
		return nil, errors.New("backup is empty")
	}

	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()

	var v any
	if err := dec.Decode(&v); err != nil {
		return nil, errors.Wrap(err, "decoding json")
	}
	node, ok := v.(Node)
	if !ok {
		return nil, errors.Newf("backup must be a JSON object, got %T", v)
	}
	return node, nil
}

// Collections returns the subcollections of a root or document node. The
// boolean is false when the node has no CollectionsKey member.
func Collections(node Node) (map[string]Node, bool, error) {
	raw, ok := node[CollectionsKey]
	if !ok {
		return nil, false, nil
	}
	obj, ok := raw.(Node)
	if !ok {
		return nil, true, errors.Newf("%s must be an object, got %T", CollectionsKey, raw)
	}
	out := make(map[string]Node, len(obj))
	for id, v := range obj {
		col, ok := v.(Node)
		if !ok {
			return nil, true, errors.Newf("collection %q must be an object, got %T", id, v)
		}
		out[id] = col
	}
	return out, true, nil
}

// Documents returns the document nodes of a collection node.
func Documents(collection Node) (map[string]Node, error) {
	if _, ok := collection[CollectionsKey]; ok {
		return nil, errors.Newf("found unexpected %q in collection data; does the starting node match the root of the incoming data?", CollectionsKey)
	}
	out := make(map[string]Node, len(collection))
	for id, v := range collection {
		doc, ok := v.(Node)
		if !ok {
			return nil, errors.Newf("document %q must be an object, got %T", id, v)
		}
		out[id] = doc
	}
	return out, nil
}

// DecodeDocument converts a document node into Firestore field data. The
// CollectionsKey member is dropped and special values are unwrapped.
func DecodeDocument(node Node) (map[string]any, error) {
	out := make(map[string]any, len(node))
	for k, v := range node {
		if k == CollectionsKey {
			continue
		}
		dv, err := decodeValue(v)
		if err != nil {
			return nil, errors.Wrapf(err, "field %q", k)
		}
		out[k] = dv
	}
	return out, nil
}
