package txstate

import (
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"
)

type counter struct {
	N int `json:"n"`
}

func newTestStore(t *testing.T) (*Store, string) {
	t.Helper()
	dir := t.TempDir()
	return New(WithBaseDir(dir)), dir
}

func TestWriteAndRead(t *testing.T) {
	s, dir := newTestStore(t)

	if err := s.Write("state.json", counter{N: 7}, nil); err != nil {
		t.Fatalf("Write failed: %v", err)
	}

	got, err := Read(s, "state.json", counter{})
	if err != nil {
		t.Fatalf("Read failed: %v", err)
	}
	if got.N != 7 {
		t.Errorf("Read = %+v, want n=7", got)
	}

	// On-disk format is pretty-printed JSON.
	raw, err := os.ReadFile(filepath.Join(dir, "state.json"))
	if err != nil {
		t.Fatalf("read file: %v", err)
	}
	if !strings.Contains(string(raw), "\n  \"n\": 7") {
		t.Errorf("state not pretty-printed: %q", raw)
	}
}

func TestWriteCreatesParentDirectories(t *testing.T) {
	s, dir := newTestStore(t)

	if err := s.Write(filepath.Join("nested", "deep", "state.json"), counter{N: 1}, nil); err != nil {
		t.Fatalf("Write failed: %v", err)
	}
	if _, err := os.Stat(filepath.Join(dir, "nested", "deep", "state.json")); err != nil {
		t.Errorf("nested state file not created: %v", err)
	}
}

func TestWriteValidationRejectedLeavesDiskUntouched(t *testing.T) {
	s, dir := newTestStore(t)

	err := s.Write("state.json", counter{N: -1}, &WriteOptions{
		Validate: func(v any) bool { return v.(counter).N >= 0 },
	})
	var ve *ValidationError
	if !errors.As(err, &ve) {
		t.Fatalf("expected ValidationError, got %v", err)
	}
	if _, err := os.Stat(filepath.Join(dir, "state.json")); !os.IsNotExist(err) {
		t.Error("validation failure must not create the target file")
	}
}

func TestWriteFailurePreservesOriginal(t *testing.T) {
	s, dir := newTestStore(t)

	if err := s.Write("state.json", counter{N: 1}, nil); err != nil {
		t.Fatalf("initial Write failed: %v", err)
	}
	before, err := os.ReadFile(filepath.Join(dir, "state.json"))
	if err != nil {
		t.Fatalf("read file: %v", err)
	}

	// Channels are not JSON-serializable; the write must fail before any
	// disk mutation.
	if err := s.Write("state.json", map[string]any{"ch": make(chan int)}, nil); err == nil {
		t.Fatal("expected marshal failure")
	}

	after, err := os.ReadFile(filepath.Join(dir, "state.json"))
	if err != nil {
		t.Fatalf("read file: %v", err)
	}
	if string(before) != string(after) {
		t.Errorf("failed write mutated the target: before %q after %q", before, after)
	}

	// No temp litter on the marshal-failure path.
	entries, _ := os.ReadDir(dir)
	for _, e := range entries {
		if strings.Contains(e.Name(), tempSuffix) {
			t.Errorf("leftover temp file %s", e.Name())
		}
	}
}

func TestReadDefaultOnMissing(t *testing.T) {
	s, dir := newTestStore(t)

	got, err := Read(s, "absent.json", counter{N: 42})
	if err != nil {
		t.Fatalf("Read failed: %v", err)
	}
	if got.N != 42 {
		t.Errorf("Read = %+v, want default n=42", got)
	}

	// Default-on-missing performs no disk writes.
	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatalf("ReadDir: %v", err)
	}
	if len(entries) != 0 {
		t.Errorf("read of missing file created %d entries", len(entries))
	}
}

func TestReadEmptyFileReturnsDefault(t *testing.T) {
	s, dir := newTestStore(t)

	if err := os.WriteFile(filepath.Join(dir, "empty.json"), nil, 0o644); err != nil {
		t.Fatalf("setup: %v", err)
	}
	got, err := Read(s, "empty.json", counter{N: 9})
	if err != nil {
		t.Fatalf("Read failed: %v", err)
	}
	if got.N != 9 {
		t.Errorf("Read = %+v, want default n=9", got)
	}
}

func TestReadCorruptJSONIsHardError(t *testing.T) {
	s, dir := newTestStore(t)

	if err := os.WriteFile(filepath.Join(dir, "bad.json"), []byte(`{"n": tru`), 0o644); err != nil {
		t.Fatalf("setup: %v", err)
	}
	_, err := Read(s, "bad.json", counter{})
	if err == nil {
		t.Fatal("expected parse error")
	}
	if errors.Is(err, ErrLockTimeout) {
		t.Error("parse failure must be distinct from lock timeout")
	}
	var te *TransactionError
	if !errors.As(err, &te) {
		t.Errorf("expected TransactionError, got %T", err)
	}
}

func TestReadLockTimeoutWhileExclusivelyHeld(t *testing.T) {
	s, dir := newTestStore(t)
	path := filepath.Join(dir, "held.json")

	if err := s.Write("held.json", counter{N: 1}, nil); err != nil {
		t.Fatalf("Write failed: %v", err)
	}

	holder, err := os.OpenFile(path, os.O_RDWR, 0o644)
	if err != nil {
		t.Fatalf("open holder: %v", err)
	}
	defer holder.Close()
	if err := acquireLock(holder, true, time.Second); err != nil {
		t.Fatalf("holder lock: %v", err)
	}
	defer releaseLock(holder)

	_, err = ReadTimeout(s, "held.json", counter{}, 100*time.Millisecond)
	if !errors.Is(err, ErrLockTimeout) {
		t.Fatalf("expected ErrLockTimeout, got %v", err)
	}
}

func TestUpdateSequentialCounter(t *testing.T) {
	s, dir := newTestStore(t)

	inc := func(c counter) (counter, error) {
		c.N++
		return c, nil
	}
	for i := 0; i < 3; i++ {
		if _, err := Update(s, "count.json", counter{}, inc, nil); err != nil {
			t.Fatalf("Update %d failed: %v", i, err)
		}
	}

	raw, err := os.ReadFile(filepath.Join(dir, "count.json"))
	if err != nil {
		t.Fatalf("read file: %v", err)
	}
	var got counter
	if err := json.Unmarshal(raw, &got); err != nil {
		t.Fatalf("final state unparsable: %v", err)
	}
	if got.N != 3 {
		t.Errorf("final count = %d, want 3", got.N)
	}
}

func TestUpdateReturnsNewState(t *testing.T) {
	s, _ := newTestStore(t)

	got, err := Update(s, "s.json", counter{N: 10}, func(c counter) (counter, error) {
		c.N *= 2
		return c, nil
	}, nil)
	if err != nil {
		t.Fatalf("Update failed: %v", err)
	}
	if got.N != 20 {
		t.Errorf("returned state = %+v, want n=20", got)
	}
}

func TestUpdateConcurrentNoLostIncrements(t *testing.T) {
	s, _ := newTestStore(t)

	const workers = 8
	const perWorker = 10

	var wg sync.WaitGroup
	errs := make(chan error, workers)
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := 0; i < perWorker; i++ {
				_, err := Update(s, "shared.json", counter{}, func(c counter) (counter, error) {
					c.N++
					return c, nil
				}, &UpdateOptions{Timeout: 5 * time.Second, Retries: 10})
				if err != nil {
					errs <- err
					return
				}
			}
		}()
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		t.Fatalf("concurrent update failed: %v", err)
	}

	got, err := Read(s, "shared.json", counter{})
	if err != nil {
		t.Fatalf("Read failed: %v", err)
	}
	if got.N != workers*perWorker {
		t.Errorf("final count = %d, want %d (lost updates)", got.N, workers*perWorker)
	}
}

func TestUpdateSelfHealsCorruptState(t *testing.T) {
	s, dir := newTestStore(t)

	if err := os.WriteFile(filepath.Join(dir, "corrupt.json"), []byte(`{"n": 5, "tru`), 0o644); err != nil {
		t.Fatalf("setup: %v", err)
	}

	got, err := Update(s, "corrupt.json", counter{N: 100}, func(c counter) (counter, error) {
		c.N++
		return c, nil
	}, nil)
	if err != nil {
		t.Fatalf("Update over corrupt file failed: %v", err)
	}
	if got.N != 101 {
		t.Errorf("transform ran against %+v, want the default n=100", got)
	}

	// The corrupted bytes are preserved in a sidecar for inspection.
	entries, _ := os.ReadDir(dir)
	var sidecar bool
	for _, e := range entries {
		if strings.Contains(e.Name(), ".corrupt-") {
			sidecar = true
		}
	}
	if !sidecar {
		t.Error("corrupted content was not preserved aside")
	}

	// And the file itself is valid again.
	reread, err := Read(s, "corrupt.json", counter{})
	if err != nil {
		t.Fatalf("Read after self-heal failed: %v", err)
	}
	if reread.N != 101 {
		t.Errorf("healed state = %+v, want n=101", reread)
	}
}

func TestUpdateTransformErrorPropagatesWithoutRetry(t *testing.T) {
	s, _ := newTestStore(t)

	calls := 0
	boom := errors.New("transform bug")
	_, err := Update(s, "t.json", counter{}, func(c counter) (counter, error) {
		calls++
		return c, boom
	}, &UpdateOptions{Retries: 5})
	if !errors.Is(err, boom) {
		t.Fatalf("expected transform error, got %v", err)
	}
	if calls != 1 {
		t.Errorf("transform called %d times, want 1 (no retry on transform errors)", calls)
	}
}

func TestUpdateConcurrentModificationSentinel(t *testing.T) {
	s, _ := newTestStore(t)

	type versioned struct {
		Version int `json:"version"`
	}
	_, err := Update(s, "v.json", versioned{Version: 3}, func(v versioned) (versioned, error) {
		// Optimistic-concurrency callers raise the sentinel themselves.
		if v.Version != 2 {
			return v, ErrConcurrentModification
		}
		return v, nil
	}, nil)
	if !errors.Is(err, ErrConcurrentModification) {
		t.Fatalf("expected ErrConcurrentModification, got %v", err)
	}
}

func TestUpdateLockTimeoutBounded(t *testing.T) {
	s, dir := newTestStore(t)
	path := filepath.Join(dir, "busy.json")

	if err := s.Write("busy.json", counter{}, nil); err != nil {
		t.Fatalf("Write failed: %v", err)
	}

	holder, err := os.OpenFile(path, os.O_RDWR, 0o644)
	if err != nil {
		t.Fatalf("open holder: %v", err)
	}
	defer holder.Close()
	if err := acquireLock(holder, true, time.Second); err != nil {
		t.Fatalf("holder lock: %v", err)
	}
	defer releaseLock(holder)

	start := time.Now()
	_, err = Update(s, "busy.json", counter{}, func(c counter) (counter, error) {
		return c, nil
	}, &UpdateOptions{Timeout: 100 * time.Millisecond, Retries: 0})
	elapsed := time.Since(start)

	if !errors.Is(err, ErrLockTimeout) {
		t.Fatalf("expected ErrLockTimeout, got %v", err)
	}
	if elapsed > 500*time.Millisecond {
		t.Errorf("timeout took %v, want well under 500ms", elapsed)
	}
}

func TestUpdateRetriesLockContention(t *testing.T) {
	s, dir := newTestStore(t)
	path := filepath.Join(dir, "contended.json")

	if err := s.Write("contended.json", counter{}, nil); err != nil {
		t.Fatalf("Write failed: %v", err)
	}

	holder, err := os.OpenFile(path, os.O_RDWR, 0o644)
	if err != nil {
		t.Fatalf("open holder: %v", err)
	}
	defer holder.Close()
	if err := acquireLock(holder, true, time.Second); err != nil {
		t.Fatalf("holder lock: %v", err)
	}

	// Release the lock while the update is busy retrying.
	go func() {
		time.Sleep(150 * time.Millisecond)
		_ = releaseLock(holder)
	}()

	got, err := Update(s, "contended.json", counter{}, func(c counter) (counter, error) {
		c.N++
		return c, nil
	}, &UpdateOptions{Timeout: 100 * time.Millisecond, Retries: 10})
	if err != nil {
		t.Fatalf("Update should have succeeded after retries: %v", err)
	}
	if got.N != 1 {
		t.Errorf("count = %d, want 1", got.N)
	}
}

func TestUpdateReopensWhenFileDeletedUnderLock(t *testing.T) {
	s, dir := newTestStore(t)
	path := filepath.Join(dir, "vanishing.json")

	if err := s.Write("vanishing.json", counter{N: 5}, nil); err != nil {
		t.Fatalf("Write failed: %v", err)
	}

	holder, err := os.OpenFile(path, os.O_RDWR, 0o644)
	if err != nil {
		t.Fatalf("open holder: %v", err)
	}
	defer holder.Close()
	if err := acquireLock(holder, true, time.Second); err != nil {
		t.Fatalf("holder lock: %v", err)
	}

	// Unlink the path while the update is blocked on the lock, then release.
	// The update's original handle now points at an orphaned inode; it must
	// reopen with create semantics and run the transform against the default,
	// not the n=5 it would read through the stale handle.
	go func() {
		time.Sleep(150 * time.Millisecond)
		if err := os.Remove(path); err != nil {
			t.Errorf("remove: %v", err)
		}
		_ = releaseLock(holder)
	}()

	got, err := Update(s, "vanishing.json", counter{N: 100}, func(c counter) (counter, error) {
		c.N++
		return c, nil
	}, &UpdateOptions{Timeout: 2 * time.Second, Retries: 0})
	if err != nil {
		t.Fatalf("Update failed: %v", err)
	}
	if got.N != 101 {
		t.Errorf("update result = %+v, want the default n=100 incremented to 101", got)
	}

	reread, err := Read(s, "vanishing.json", counter{})
	if err != nil {
		t.Fatalf("Read of recreated file failed: %v", err)
	}
	if reread.N != 101 {
		t.Errorf("recreated state = %+v, want n=101", reread)
	}
}

func TestReadersNeverObservePartialWrites(t *testing.T) {
	s, _ := newTestStore(t)

	stop := make(chan struct{})
	var wg sync.WaitGroup

	wg.Add(1)
	go func() {
		defer wg.Done()
		for i := 0; ; i++ {
			select {
			case <-stop:
				return
			default:
			}
			if err := s.Write("doc.json", map[string]int{"a": i}, nil); err != nil {
				t.Errorf("Write failed: %v", err)
				return
			}
		}
	}()

	for r := 0; r < 4; r++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			def := map[string]int{"a": -1}
			for i := 0; i < 100; i++ {
				got, err := Read(s, "doc.json", def)
				if err != nil {
					t.Errorf("Read failed: %v", err)
					return
				}
				if _, ok := got["a"]; !ok {
					t.Errorf("reader observed malformed document: %v", got)
					return
				}
			}
		}()
	}

	time.Sleep(200 * time.Millisecond)
	close(stop)
	wg.Wait()
}
