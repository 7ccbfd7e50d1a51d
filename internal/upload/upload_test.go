package upload

import (
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/google/uuid"
)

// TestStateDBRoundTrip verifies upload state survives and keys on
// path+size+hash.
func TestStateDBRoundTrip(t *testing.T) {
	state, err := OpenStateDB(t.TempDir())
	if err != nil {
		t.Fatalf("open state db: %v", err)
	}
	defer state.Close()

	up, err := state.IsUploaded("a.json", 100, "abc")
	if err != nil {
		t.Fatalf("is uploaded: %v", err)
	}
	if up {
		t.Fatal("fresh db reports file uploaded")
	}

	if err := state.MarkUploaded("a.json", 100, "abc"); err != nil {
		t.Fatalf("mark uploaded: %v", err)
	}
	if up, _ = state.IsUploaded("a.json", 100, "abc"); !up {
		t.Error("marked file not reported uploaded")
	}

	// A changed file (different size or hash) is not considered uploaded.
	if up, _ = state.IsUploaded("a.json", 101, "abc"); up {
		t.Error("size change still reported uploaded")
	}
	if up, _ = state.IsUploaded("a.json", 100, "def"); up {
		t.Error("hash change still reported uploaded")
	}
}

// TestHashFile verifies hashing is content-addressed and stable.
func TestHashFile(t *testing.T) {
	dir := t.TempDir()
	p1 := filepath.Join(dir, "one.json")
	p2 := filepath.Join(dir, "two.json")
	if err := os.WriteFile(p1, []byte(`{"id":"x"}`), 0o644); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(p2, []byte(`{"id":"x"}`), 0o644); err != nil {
		t.Fatal(err)
	}

	h1, err := HashFile(p1)
	if err != nil {
		t.Fatalf("hash: %v", err)
	}
	h2, _ := HashFile(p2)
	if h1 != h2 {
		t.Error("identical content hashed differently")
	}

	if err := os.WriteFile(p2, []byte(`{"id":"y"}`), 0o644); err != nil {
		t.Fatal(err)
	}
	if h2, _ = HashFile(p2); h1 == h2 {
		t.Error("different content hashed identically")
	}
}

func spoolFile(t *testing.T, dir, name string, rec map[string]any) {
	t.Helper()
	data, err := json.Marshal(rec)
	if err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(dir, name), data, 0o644); err != nil {
		t.Fatal(err)
	}
}

// TestUploaderRun walks a spool dir, sends new files once, and skips them on
// the next run.
func TestUploaderRun(t *testing.T) {
	var received int
	var lastKey string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/v1/ingest/sessions" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		lastKey = r.Header.Get("X-API-Key")
		received++
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	spool := t.TempDir()
	spoolFile(t, spool, "s1.json", map[string]any{
		"id": uuid.NewString(), "user_id": 1, "sets": []any{map[string]any{"reps": 5}},
	})
	spoolFile(t, spool, "s2.json", map[string]any{
		"id": uuid.NewString(), "user_id": 1, "sets": []any{},
	})
	// Not a session record: counted as an error, not sent.
	spoolFile(t, spool, "junk.json", map[string]any{"hello": "world"})

	state, err := OpenStateDB(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	defer state.Close()

	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	client := NewClient(srv.URL, "spool-key")

	stats, err := New(client, state, spool, false, log).Run()
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if received != 2 {
		t.Errorf("server received %d records, want 2", received)
	}
	if lastKey != "spool-key" {
		t.Errorf("api key = %q, want spool-key", lastKey)
	}
	if stats.FilesUploaded != 2 || stats.FilesErrored != 1 {
		t.Errorf("stats = %+v, want 2 uploaded / 1 errored", stats)
	}
	if stats.SetsSent != 1 {
		t.Errorf("sets sent = %d, want 1", stats.SetsSent)
	}

	// Second run: everything already uploaded.
	stats, err = New(client, state, spool, false, log).Run()
	if err != nil {
		t.Fatalf("second run: %v", err)
	}
	if received != 2 {
		t.Errorf("server received %d records after rerun, want 2", received)
	}
	if stats.FilesSkipped != 2 {
		t.Errorf("skipped = %d, want 2", stats.FilesSkipped)
	}
}

// TestUploaderDryRun verifies nothing is sent or marked in dry-run mode.
func TestUploaderDryRun(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Error("dry run sent a request")
	}))
	defer srv.Close()

	spool := t.TempDir()
	spoolFile(t, spool, "s1.json", map[string]any{"id": uuid.NewString()})

	state, err := OpenStateDB(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	defer state.Close()

	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	stats, err := New(NewClient(srv.URL, "k"), state, spool, true, log).Run()
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if stats.FilesUploaded != 1 {
		t.Errorf("dry-run uploaded = %d, want 1 (counted, not sent)", stats.FilesUploaded)
	}

	// Nothing marked: a wet run would still send it.
	up, err := state.IsUploaded("s1.json", 0, "")
	if err != nil {
		t.Fatal(err)
	}
	if up {
		t.Error("dry run marked the file uploaded")
	}
}

// TestClientRetriesServerErrors verifies transient failures are retried and
// auth failures are not.
func TestClientRetriesServerErrors(t *testing.T) {
	var calls int
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		if calls < 3 {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	if err := NewClient(srv.URL, "k").SendRecord([]byte(`{}`)); err != nil {
		t.Fatalf("send: %v", err)
	}
	if calls != 3 {
		t.Errorf("calls = %d, want 3", calls)
	}

	calls = 0
	authSrv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		w.WriteHeader(http.StatusForbidden)
	}))
	defer authSrv.Close()

	if err := NewClient(authSrv.URL, "bad").SendRecord([]byte(`{}`)); err == nil {
		t.Fatal("auth failure reported success")
	}
	if calls != 1 {
		t.Errorf("auth failure retried: calls = %d, want 1", calls)
	}
}
