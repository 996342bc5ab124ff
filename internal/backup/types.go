package backup

import (
	"encoding/json"
	"math"
	"time"

	"github.com/cockroachdb/errors"
)

// Special value type names.
const (
	TypeTimestamp         = "timestamp"
	TypeGeoPoint          = "geopoint"
	TypeDocumentReference = "documentReference"
)

// GeoPoint is a latitude/longitude pair.
type GeoPoint struct {
	Latitude  float64
	Longitude float64
}

// DocumentRef is a reference to another document by its slash path.
type DocumentRef struct {
	Path string
}

func decodeValue(v any) (any, error) {
	switch t := v.(type) {
	case json.Number:
		return decodeNumber(t)
	case Node:
		if dt, ok := t[DataTypeKey]; ok {
			return decodeSpecial(dt, t[ValueKey])
		}
		out := make(map[string]any, len(t))
		for k, child := range t {
			dv, err := decodeValue(child)
			if err != nil {
				return nil, errors.Wrapf(err, "key %q", k)
			}
			out[k] = dv
		}
		return out, nil
	case []any:
		out := make([]any, len(t))
		for i, child := range t {
			dv, err := decodeValue(child)
			if err != nil {
				return nil, errors.Wrapf(err, "index %d", i)
			}
			out[i] = dv
		}
		return out, nil
	default:
		return v, nil
	}
}

func decodeNumber(n json.Number) (any, error) {
	if i, err := n.Int64(); err == nil {
		return i, nil
	}
	f, err := n.Float64()
	if err != nil {
		return nil, errors.Wrapf(err, "invalid number %q", n.String())
	}
	return f, nil
}

func decodeSpecial(dt, value any) (any, error) {
	name, ok := dt.(string)
	if !ok {
		return nil, errors.Newf("%s must be a string, got %T", DataTypeKey, dt)
	}
	switch name {
	case TypeTimestamp:
		obj, ok := value.(Node)
		if !ok {
			return nil, errors.Newf("timestamp value must be an object, got %T", value)
		}
		secs, err := numberField(obj, "_seconds", "seconds")
		if err != nil {
			return nil, errors.Wrap(err, "timestamp")
		}
		nanos, err := numberField(obj, "_nanoseconds", "nanoseconds")
		if err != nil {
			return nil, errors.Wrap(err, "timestamp")
		}
		return time.Unix(int64(secs), int64(nanos)).UTC(), nil
	case TypeGeoPoint:
		obj, ok := value.(Node)
		if !ok {
			return nil, errors.Newf("geopoint value must be an object, got %T", value)
		}
		lat, err := numberField(obj, "_latitude", "latitude")
		if err != nil {
			return nil, errors.Wrap(err, "geopoint")
		}
		lng, err := numberField(obj, "_longitude", "longitude")
		if err != nil {
			return nil, errors.Wrap(err, "geopoint")
		}
		if math.Abs(lat) > 90 || math.Abs(lng) > 180 {
			return nil, errors.Newf("geopoint out of range: %v,%v", lat, lng)
		}
		return GeoPoint{Latitude: lat, Longitude: lng}, nil
	case TypeDocumentReference:
		path, ok := value.(string)
		if !ok || path == "" {
			return nil, errors.Newf("documentReference value must be a non-empty string, got %v", value)
		}
		return DocumentRef{Path: path}, nil
	default:
		return nil, errors.Newf("unknown %s %q", DataTypeKey, name)
	}
}

// numberField reads the first present key as a float64.
func numberField(obj Node, keys ...string) (float64, error) {
	for _, k := range keys {
		raw, ok := obj[k]
		if !ok {
			continue
		}
		switch n := raw.(type) {
		case json.Number:
			return n.Float64()
		case float64:
			return n, nil
		default:
			return 0, errors.Newf("%s must be a number, got %T", k, raw)
		}
	}
	return 0, errors.Newf("missing %s", keys[0])
}
