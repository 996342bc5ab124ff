// Package importer writes an exported document/collection tree back into a
// database, starting at the root, a collection, or a document.
package importer

import (
	"context"
	"slices"
	"time"

	"github.com/cockroachdb/errors"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/semaphore"
	"golang.org/x/time/rate"

	"github.com/HerbHall/firestore-import/internal/backup"
	"github.com/HerbHall/firestore-import/internal/dbref"
)

const (
	// DefaultBatchSize is the number of documents committed per batch.
	DefaultBatchSize = 25
	// MaxBatchSize is the largest batch Firestore accepts.
	MaxBatchSize = 500
	// DefaultConcurrency bounds how many collections are written at once.
	DefaultConcurrency = 4
)

// ErrNoCollections is returned when a root or document target is given data
// without a __collections__ member.
var ErrNoCollections = errors.New("root or document reference doesn't contain a __collections__ property")

// Write is a single document set.
type Write struct {
	Path  string
	Data  map[string]any
	Merge bool
}

// Sink commits batches of document writes. Implementations must be safe for
// concurrent use.
type Sink interface {
	Commit(ctx context.Context, writes []Write) error
}

// Option configures an Importer.
type Option func(*Importer)

// WithBatchSize sets the number of documents per commit. Values outside
// 1..MaxBatchSize are clamped.
func WithBatchSize(n int) Option {
	return func(im *Importer) { im.batchSize = min(max(n, 1), MaxBatchSize) }
}

// WithConcurrency sets how many collections may be written at once across
// the whole tree.
func WithConcurrency(n int) Option {
	return func(im *Importer) { im.concurrency = max(n, 1) }
}

// WithMerge controls whether writes merge into existing documents.
func WithMerge(merge bool) Option {
	return func(im *Importer) { im.merge = merge }
}

// WithLimiter throttles document writes; each document costs one token.
func WithLimiter(l *rate.Limiter) Option {
	return func(im *Importer) { im.limiter = l }
}

// WithMetrics records progress into m.
func WithMetrics(m *Metrics) Option {
	return func(im *Importer) { im.metrics = m }
}

// Importer walks a backup tree and commits its documents to a Sink.
type Importer struct {
	sink        Sink
	logger      *zap.Logger
	batchSize   int
	concurrency int
	merge       bool
	limiter     *rate.Limiter
	metrics     *Metrics

	// slots is shared by every level of the tree. A collection holds a slot
	// only while its own batches commit, never while its children run.
	slots *semaphore.Weighted
}

// New returns an Importer writing to sink.
func New(sink Sink, logger *zap.Logger, opts ...Option) *Importer {
	if logger == nil {
		logger = zap.NewNop()
	}
	im := &Importer{
		sink:        sink,
		logger:      logger,
		batchSize:   DefaultBatchSize,
		concurrency: DefaultConcurrency,
		merge:       true,
	}
	for _, opt := range opts {
		opt(im)
	}
	im.slots = semaphore.NewWeighted(int64(im.concurrency))
	return im
}

// collectionJob is a collection node waiting to be written at ref.
type collectionJob struct {
	ref  dbref.Ref
	node backup.Node
}

// Import writes tree at target.
//
// For the root or a document, tree must carry __collections__. A document
// target also gets its own fields written before its collections. For a
// collection, tree maps document ids to documents.
func (im *Importer) Import(ctx context.Context, tree backup.Node, target dbref.Ref) error {
	start := time.Now()
	err := im.importAt(ctx, tree, target)
	if im.metrics != nil {
		im.metrics.Duration.Set(time.Since(start).Seconds())
		if err == nil {
			im.metrics.LastSuccess.SetToCurrentTime()
		}
	}
	return err
}

func (im *Importer) importAt(ctx context.Context, tree backup.Node, target dbref.Ref) error {
	if !target.IsDocumentLike() {
		return im.importCollections(ctx, []collectionJob{{ref: target, node: tree}})
	}

	cols, ok, err := backup.Collections(tree)
	if err != nil {
		return err
	}
	if !ok {
		return ErrNoCollections
	}

	if !target.IsRoot() {
		fields, err := backup.DecodeDocument(tree)
		if err != nil {
			return errors.Wrapf(err, "document %s", target.Path())
		}
		im.logger.Info("writing document", zap.String("path", target.Path()))
		if err := im.commit(ctx, []Write{{Path: target.Path(), Data: fields, Merge: im.merge}}); err != nil {
			return err
		}
	}

	jobs, err := childJobs(target, cols)
	if err != nil {
		return err
	}
	return im.importCollections(ctx, jobs)
}

// importCollections writes each job and its descendants. The slots
// semaphore, not the group, bounds how many collections write at once.
func (im *Importer) importCollections(ctx context.Context, jobs []collectionJob) error {
	g, gctx := errgroup.WithContext(ctx)
	for _, job := range jobs {
		g.Go(func() error {
			return im.importCollection(gctx, job.ref, job.node)
		})
	}
	return g.Wait()
}

// importCollection commits every document of node in batches, then descends
// into their subcollections once the whole collection is written.
func (im *Importer) importCollection(ctx context.Context, ref dbref.Ref, node backup.Node) error {
	children, err := im.writeCollection(ctx, ref, node)
	if err != nil || len(children) == 0 {
		return err
	}
	return im.importCollections(ctx, children)
}

// writeCollection commits the documents of node while holding one slot and
// returns the subcollections still to be written.
func (im *Importer) writeCollection(ctx context.Context, ref dbref.Ref, node backup.Node) ([]collectionJob, error) {
	docs, err := backup.Documents(node)
	if err != nil {
		return nil, errors.Wrapf(err, "collection %s", ref.Path())
	}

	if err := im.slots.Acquire(ctx, 1); err != nil {
		return nil, errors.Wrapf(err, "collection %s", ref.Path())
	}
	defer im.slots.Release(1)
	im.logger.Info("writing documents", zap.String("path", ref.Path()))

	ids := sortedKeys(docs)
	var children []collectionJob
	for start := 0; start < len(ids); start += im.batchSize {
		end := min(start+im.batchSize, len(ids))
		writes := make([]Write, 0, end-start)
		for _, id := range ids[start:end] {
			docRef, err := ref.Doc(id)
			if err != nil {
				return nil, errors.Wrapf(err, "collection %s", ref.Path())
			}
			fields, err := backup.DecodeDocument(docs[id])
			if err != nil {
				return nil, errors.Wrapf(err, "document %s", docRef.Path())
			}
			writes = append(writes, Write{Path: docRef.Path(), Data: fields, Merge: im.merge})

			cols, _, err := backup.Collections(docs[id])
			if err != nil {
				return nil, errors.Wrapf(err, "document %s", docRef.Path())
			}
			jobs, err := childJobs(docRef, cols)
			if err != nil {
				return nil, err
			}
			children = append(children, jobs...)
		}
		if err := im.commit(ctx, writes); err != nil {
			return nil, err
		}
	}
	im.metrics.collection()
	return children, nil
}

func (im *Importer) commit(ctx context.Context, writes []Write) error {
	if err := im.wait(ctx, len(writes)); err != nil {
		return err
	}
	err := im.sink.Commit(ctx, writes)
	im.metrics.batch(len(writes), err)
	if err != nil {
		return errors.Wrapf(err, "committing %d documents starting at %s", len(writes), writes[0].Path)
	}
	im.logger.Debug("batch committed",
		zap.Int("documents", len(writes)),
		zap.String("first", writes[0].Path))
	return nil
}

// wait blocks until the limiter grants n tokens, in chunks no larger than
// its burst.
func (im *Importer) wait(ctx context.Context, n int) error {
	if im.limiter == nil {
		return nil
	}
	burst := max(im.limiter.Burst(), 1)
	for n > 0 {
		step := min(n, burst)
		if err := im.limiter.WaitN(ctx, step); err != nil {
			return errors.Wrap(err, "waiting for write budget")
		}
		n -= step
	}
	return nil
}

func childJobs(parent dbref.Ref, cols map[string]backup.Node) ([]collectionJob, error) {
	jobs := make([]collectionJob, 0, len(cols))
	for _, id := range sortedKeys(cols) {
		ref, err := parent.Collection(id)
		if err != nil {
			return nil, err
		}
		jobs = append(jobs, collectionJob{ref: ref, node: cols[id]})
	}
	return jobs, nil
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	return keys
}
