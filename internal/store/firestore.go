// Package store commits import batches to Cloud Firestore.
package store

import (
	"context"
	"maps"
	"slices"

	"cloud.google.com/go/firestore"
	"github.com/cockroachdb/errors"
	"go.uber.org/zap"
	"google.golang.org/api/option"
	"google.golang.org/genproto/googleapis/type/latlng"

	"github.com/HerbHall/firestore-import/internal/backup"
	"github.com/HerbHall/firestore-import/internal/importer"
)

// Compile-time interface guard.
var _ importer.Sink = (*FirestoreStore)(nil)

// FirestoreStore implements importer.Sink on top of a firestore.Client.
type FirestoreStore struct {
	client *firestore.Client
	logger *zap.Logger
}

// Open connects to databaseID in projectID. An empty databaseID selects the
// default database. FIRESTORE_EMULATOR_HOST is honoured by the client.
func Open(ctx context.Context, projectID, databaseID string, logger *zap.Logger, opts ...option.ClientOption) (*FirestoreStore, error) {
	if databaseID == "" {
		databaseID = firestore.DefaultDatabaseID
	}
	client, err := firestore.NewClientWithDatabase(ctx, projectID, databaseID, opts...)
	if err != nil {
		return nil, errors.Wrapf(err, "open firestore %s/%s", projectID, databaseID)
	}
	logger.Debug("firestore client opened",
		zap.String("project", projectID),
		zap.String("database", databaseID))
	return &FirestoreStore{client: client, logger: logger}, nil
}

// Commit writes one batch through a BulkWriter and waits for every write to
// finish. The first failed write is returned.
func (s *FirestoreStore) Commit(ctx context.Context, writes []importer.Write) error {
	bw := s.client.BulkWriter(ctx)
	jobs := make([]*firestore.BulkWriterJob, 0, len(writes))
	for _, w := range writes {
		ref := s.client.Doc(w.Path)
		if ref == nil {
			bw.End()
			return errors.Newf("invalid document path %q", w.Path)
		}
		data, err := convertFields(w.Data, s.doc)
		if err != nil {
			bw.End()
			return errors.Wrapf(err, "document %s", w.Path)
		}
		job, err := bw.Set(ref, data, setOptions(w.Merge, data)...)
		if err != nil {
			bw.End()
			return errors.Wrapf(err, "queue %s", w.Path)
		}
		jobs = append(jobs, job)
	}
	bw.End()

	for i, job := range jobs {
		if _, err := job.Results(); err != nil {
			return errors.Wrapf(err, "write %s", writes[i].Path)
		}
	}
	return nil
}

// Close closes the client connection.
func (s *FirestoreStore) Close() error {
	return s.client.Close()
}

func (s *FirestoreStore) doc(path string) (*firestore.DocumentRef, error) {
	ref := s.client.Doc(path)
	if ref == nil {
		return nil, errors.Newf("invalid document reference %q", path)
	}
	return ref, nil
}

// setOptions picks the merge mode for one write. MergeAll skips empty
// nested maps, so merges name every leaf path explicitly, an empty map
// counting as a leaf.
func setOptions(merge bool, data map[string]any) []firestore.SetOption {
	if !merge {
		return nil
	}
	paths := mergePaths(nil, data)
	if len(paths) == 0 {
		return []firestore.SetOption{firestore.MergeAll}
	}
	return []firestore.SetOption{firestore.Merge(paths...)}
}

// mergePaths appends the leaf field paths of data below prefix.
func mergePaths(prefix firestore.FieldPath, data map[string]any) []firestore.FieldPath {
	var paths []firestore.FieldPath
	for _, k := range slices.Sorted(maps.Keys(data)) {
		fp := append(slices.Clone(prefix), k)
		if child, ok := data[k].(map[string]any); ok && len(child) > 0 {
			paths = append(paths, mergePaths(fp, child)...)
			continue
		}
		paths = append(paths, fp)
	}
	return paths
}

// docResolver maps a slash path to a document reference.
type docResolver func(path string) (*firestore.DocumentRef, error)

func convertFields(fields map[string]any, doc docResolver) (map[string]any, error) {
	out := make(map[string]any, len(fields))
	for k, v := range fields {
		cv, err := convertValue(v, doc)
		if err != nil {
			return nil, errors.Wrapf(err, "field %q", k)
		}
		out[k] = cv
	}
	return out, nil
}

// convertValue swaps decoded backup values for their Firestore client types.
func convertValue(v any, doc docResolver) (any, error) {
	switch t := v.(type) {
	case backup.DocumentRef:
		return doc(t.Path)
	case backup.GeoPoint:
		return &latlng.LatLng{Latitude: t.Latitude, Longitude: t.Longitude}, nil
	case map[string]any:
		return convertFields(t, doc)
	case []any:
		out := make([]any, len(t))
		for i, child := range t {
			cv, err := convertValue(child, doc)
			if err != nil {
				return nil, errors.Wrapf(err, "index %d", i)
			}
			out[i] = cv
		}
		return out, nil
	default:
		return v, nil
	}
}
