package store

import (
	"context"
	"net"
	"strings"
	"sync"
	"testing"

	"cloud.google.com/go/firestore/apiv1/firestorepb"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	rpcstatus "google.golang.org/genproto/googleapis/rpc/status"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/timestamppb"

	"github.com/HerbHall/firestore-import/internal/importer"
	"github.com/HerbHall/firestore-import/internal/testutil"
)

// fakeFirestore records BatchWrite calls and acknowledges every write.
type fakeFirestore struct {
	firestorepb.UnimplementedFirestoreServer

	mu     sync.Mutex
	writes []*firestorepb.Write
	err    error
}

func (f *fakeFirestore) BatchWrite(_ context.Context, req *firestorepb.BatchWriteRequest) (*firestorepb.BatchWriteResponse, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return nil, f.err
	}
	f.writes = append(f.writes, req.GetWrites()...)

	resp := &firestorepb.BatchWriteResponse{}
	for range req.GetWrites() {
		resp.WriteResults = append(resp.WriteResults, &firestorepb.WriteResult{UpdateTime: timestamppb.Now()})
		resp.Status = append(resp.Status, &rpcstatus.Status{})
	}
	return resp, nil
}

// written returns the recorded writes keyed by document path relative to
// the database root.
func (f *fakeFirestore) written() map[string]*firestorepb.Write {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make(map[string]*firestorepb.Write, len(f.writes))
	for _, w := range f.writes {
		name := w.GetUpdate().GetName()
		if i := strings.Index(name, "/documents/"); i >= 0 {
			name = name[i+len("/documents/"):]
		}
		out[name] = w
	}
	return out
}

// openFake starts fake on a loopback port and opens a store against it.
func openFake(t *testing.T, fake *fakeFirestore) *FirestoreStore {
	t.Helper()
	lis, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)

	srv := grpc.NewServer()
	firestorepb.RegisterFirestoreServer(srv, fake)
	go func() { _ = srv.Serve(lis) }()
	t.Cleanup(srv.Stop)

	t.Setenv("FIRESTORE_EMULATOR_HOST", lis.Addr().String())

	s, err := Open(context.Background(), "demo-project", "", testutil.Logger(t))
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func TestCommitMergeAndReplace(t *testing.T) {
	fake := &fakeFirestore{}
	s := openFake(t, fake)

	err := s.Commit(context.Background(), []importer.Write{
		{Path: "users/alice", Data: map[string]any{"name": "Alice", "address": map[string]any{"city": "Leeds"}}, Merge: true},
		{Path: "users/bob", Data: map[string]any{"name": "Bob"}, Merge: false},
	})
	require.NoError(t, err)

	got := fake.written()
	require.Contains(t, got, "users/alice")
	require.Contains(t, got, "users/bob")

	alice := got["users/alice"]
	require.NotNil(t, alice.GetUpdateMask(), "merge writes carry an update mask")
	assert.ElementsMatch(t, []string{"address.city", "name"}, alice.GetUpdateMask().GetFieldPaths())
	assert.Equal(t, "Leeds", alice.GetUpdate().GetFields()["address"].GetMapValue().GetFields()["city"].GetStringValue())

	bob := got["users/bob"]
	assert.Nil(t, bob.GetUpdateMask(), "replace writes have no update mask")
	assert.Equal(t, "Bob", bob.GetUpdate().GetFields()["name"].GetStringValue())
}

func TestCommitMergeKeepsEmptyMaps(t *testing.T) {
	fake := &fakeFirestore{}
	s := openFake(t, fake)

	err := s.Commit(context.Background(), []importer.Write{{
		Path:  "users/alice",
		Data:  map[string]any{"name": "Alice", "prefs": map[string]any{}},
		Merge: true,
	}})
	require.NoError(t, err)

	alice := fake.written()["users/alice"]
	require.NotNil(t, alice)
	assert.ElementsMatch(t, []string{"name", "prefs"}, alice.GetUpdateMask().GetFieldPaths())

	prefs, ok := alice.GetUpdate().GetFields()["prefs"]
	require.True(t, ok, "empty map field must be sent")
	assert.NotNil(t, prefs.GetMapValue())
	assert.Empty(t, prefs.GetMapValue().GetFields())
}

func TestCommitMergeEmptyDocument(t *testing.T) {
	fake := &fakeFirestore{}
	s := openFake(t, fake)

	require.NoError(t, s.Commit(context.Background(), []importer.Write{{Path: "users/empty", Data: map[string]any{}, Merge: true}}))
	assert.Contains(t, fake.written(), "users/empty")
}

func TestCommitBatchWriteFailure(t *testing.T) {
	fake := &fakeFirestore{err: status.Error(codes.PermissionDenied, "missing or insufficient permissions")}
	s := openFake(t, fake)

	err := s.Commit(context.Background(), []importer.Write{{Path: "users/alice", Data: map[string]any{"name": "Alice"}, Merge: true}})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "users/alice")
	assert.Equal(t, codes.PermissionDenied, status.Code(err))
}

func TestCommitInvalidPath(t *testing.T) {
	s := openFake(t, &fakeFirestore{})

	err := s.Commit(context.Background(), []importer.Write{{Path: "users", Data: map[string]any{}}})
	assert.Error(t, err)
}
