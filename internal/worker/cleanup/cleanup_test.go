package cleanup

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"testing"
	"time"

	"github.com/hitoshi/folio/internal/storage"
)

var testNow = time.Date(2026, 5, 1, 12, 0, 0, 0, time.UTC)

// mockBlobs はstorage.BlobStoreのモック。
type mockBlobs struct {
	objects   []storage.Object
	listErr   error
	removeErr map[string]error
	removed   []string
	listedFor string
}

func (m *mockBlobs) Put(context.Context, string, []byte, string) error { return nil }
func (m *mockBlobs) PublicURL(path string) string                      { return path }

func (m *mockBlobs) Remove(_ context.Context, path string) error {
	if err := m.removeErr[path]; err != nil {
		return err
	}
	m.removed = append(m.removed, path)
	return nil
}

func (m *mockBlobs) List(_ context.Context, prefix string) ([]storage.Object, error) {
	m.listedFor = prefix
	return m.objects, m.listErr
}

// mockIndex はrepository.MediaPathIndexのモック。
type mockIndex struct {
	referenced map[string]bool
	err        error
	calls      [][]string
}

func (m *mockIndex) ReferencedPaths(_ context.Context, paths []string) (map[string]bool, error) {
	m.calls = append(m.calls, paths)
	if m.err != nil {
		return nil, m.err
	}
	out := make(map[string]bool)
	for _, p := range paths {
		if m.referenced[p] {
			out[p] = true
		}
	}
	return out, nil
}

type mockRecorder struct {
	removed []int
}

func (m *mockRecorder) RecordOrphansRemoved(count int) { m.removed = append(m.removed, count) }

func newTestJob(blobs *mockBlobs, index *mockIndex, buf *bytes.Buffer, rec Recorder) *OrphanSweepJob {
	logger := slog.New(slog.NewJSONHandler(buf, &slog.HandlerOptions{Level: slog.LevelInfo}))
	job := NewOrphanSweepJob(blobs, index, logger, rec)
	job.now = func() time.Time { return testNow }
	return job
}

func TestNewOrphanSweepJob_DefaultGracePeriod(t *testing.T) {
	var buf bytes.Buffer
	job := newTestJob(&mockBlobs{}, &mockIndex{}, &buf, nil)
	if job.GracePeriod != time.Hour {
		t.Errorf("GracePeriod = %v, want 1h", job.GracePeriod)
	}
}

func TestOrphanSweepJob_Run_RemovesOnlyOldUnreferencedBlobs(t *testing.T) {
	blobs := &mockBlobs{objects: []storage.Object{
		{Path: "media/2026/referenced.png", LastModified: testNow.Add(-48 * time.Hour)},
		{Path: "media/2026/orphan.png", LastModified: testNow.Add(-48 * time.Hour)},
		{Path: "media/2026/in-flight.png", LastModified: testNow.Add(-time.Minute)},
	}}
	index := &mockIndex{referenced: map[string]bool{"media/2026/referenced.png": true}}
	rec := &mockRecorder{}
	var buf bytes.Buffer

	removed, err := newTestJob(blobs, index, &buf, rec).Run(context.Background())
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}

	if removed != 1 {
		t.Errorf("removed = %d, want 1", removed)
	}
	if len(blobs.removed) != 1 || blobs.removed[0] != "media/2026/orphan.png" {
		t.Errorf("removed paths = %v", blobs.removed)
	}
	if blobs.listedFor != "media/" {
		t.Errorf("listed prefix = %q, want media/", blobs.listedFor)
	}
	// 猶予期間内のBlobは参照確認にも渡さない
	for _, call := range index.calls {
		for _, p := range call {
			if p == "media/2026/in-flight.png" {
				t.Error("in-flight blob should not be a candidate")
			}
		}
	}
	if len(rec.removed) != 1 || rec.removed[0] != 1 {
		t.Errorf("recorded = %v, want [1]", rec.removed)
	}
	if !strings.Contains(buf.String(), `"removed_count":1`) {
		t.Errorf("completion log missing: %s", buf.String())
	}
}

func TestOrphanSweepJob_Run_Idempotent(t *testing.T) {
	blobs := &mockBlobs{objects: []storage.Object{
		{Path: "media/2026/a.png", LastModified: testNow.Add(-48 * time.Hour)},
	}}
	index := &mockIndex{referenced: map[string]bool{"media/2026/a.png": true}}
	rec := &mockRecorder{}
	var buf bytes.Buffer
	job := newTestJob(blobs, index, &buf, rec)

	for i := 0; i < 2; i++ {
		removed, err := job.Run(context.Background())
		if err != nil || removed != 0 {
			t.Errorf("run %d: removed = %d, err = %v", i, removed, err)
		}
	}
	if len(rec.removed) != 0 {
		t.Errorf("nothing removed should record nothing, got %v", rec.removed)
	}
}

func TestOrphanSweepJob_Run_BatchesLookups(t *testing.T) {
	var objects []storage.Object
	for i := 0; i < lookupBatchSize+10; i++ {
		objects = append(objects, storage.Object{
			Path:         fmt.Sprintf("media/2025/%04d.png", i),
			LastModified: testNow.Add(-48 * time.Hour),
		})
	}
	blobs := &mockBlobs{objects: objects}
	index := &mockIndex{}
	var buf bytes.Buffer

	removed, err := newTestJob(blobs, index, &buf, nil).Run(context.Background())
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if len(index.calls) != 2 {
		t.Errorf("lookup calls = %d, want 2", len(index.calls))
	}
	if removed != lookupBatchSize+10 {
		t.Errorf("removed = %d, want %d", removed, lookupBatchSize+10)
	}
}

func TestOrphanSweepJob_Run_RemoveFailureContinues(t *testing.T) {
	blobs := &mockBlobs{
		objects: []storage.Object{
			{Path: "media/2026/a.png", LastModified: testNow.Add(-48 * time.Hour)},
			{Path: "media/2026/b.png", LastModified: testNow.Add(-48 * time.Hour)},
		},
		removeErr: map[string]error{"media/2026/a.png": errors.New("access denied")},
	}
	var buf bytes.Buffer

	removed, err := newTestJob(blobs, &mockIndex{}, &buf, nil).Run(context.Background())
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if removed != 1 {
		t.Errorf("removed = %d, want 1", removed)
	}
	if !strings.Contains(buf.String(), "access denied") {
		t.Error("remove failure should be logged")
	}
}

func TestOrphanSweepJob_Run_ListError(t *testing.T) {
	blobs := &mockBlobs{listErr: errors.New("bucket unavailable")}
	var buf bytes.Buffer

	_, err := newTestJob(blobs, &mockIndex{}, &buf, nil).Run(context.Background())
	if err == nil {
		t.Fatal("expected error")
	}
	if !strings.Contains(err.Error(), "bucket unavailable") {
		t.Errorf("error = %v", err)
	}
}

func TestOrphanSweepJob_Run_IndexError_RemovesNothing(t *testing.T) {
	blobs := &mockBlobs{objects: []storage.Object{
		{Path: "media/2026/a.png", LastModified: testNow.Add(-48 * time.Hour)},
	}}
	index := &mockIndex{err: errors.New("db down")}
	var buf bytes.Buffer

	_, err := newTestJob(blobs, index, &buf, nil).Run(context.Background())
	if err == nil {
		t.Fatal("expected error")
	}
	if len(blobs.removed) != 0 {
		t.Errorf("removed = %v, want none", blobs.removed)
	}
}
