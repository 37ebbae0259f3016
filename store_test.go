package kvcache

import (
	"context"
	"errors"
	"path/filepath"
	"runtime"
	"slices"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/unkn0wn-root/kvcache/backend"
	"github.com/unkn0wn-root/kvcache/codec"
	"github.com/unkn0wn-root/kvcache/internal/coherent"
)

// countingBackend counts backend reads and can fail or block on demand.
type countingBackend struct {
	backend.Backend
	reads   atomic.Int64
	writes  atomic.Int64
	removes atomic.Int64

	readErr  error
	writeErr error
	// beforeRead, when set, runs inside every read before the inner backend.
	beforeRead func()
	// intGate, when set, holds SetInt until it is closed.
	intGate chan struct{}
}

func newCountingBackend() *countingBackend {
	return &countingBackend{Backend: backend.NewMemoryBackend()}
}

func (b *countingBackend) read() error {
	b.reads.Add(1)
	if b.beforeRead != nil {
		b.beforeRead()
	}
	return b.readErr
}

func (b *countingBackend) Int(ctx context.Context, key string) (int, bool, error) {
	if err := b.read(); err != nil {
		return 0, false, err
	}
	return b.Backend.Int(ctx, key)
}

func (b *countingBackend) String(ctx context.Context, key string) (string, bool, error) {
	if err := b.read(); err != nil {
		return "", false, err
	}
	return b.Backend.String(ctx, key)
}

func (b *countingBackend) Bytes(ctx context.Context, key string) ([]byte, bool, error) {
	if err := b.read(); err != nil {
		return nil, false, err
	}
	return b.Backend.Bytes(ctx, key)
}

func (b *countingBackend) SetInt(ctx context.Context, key string, v int) error {
	if b.intGate != nil {
		<-b.intGate
	}
	b.writes.Add(1)
	if b.writeErr != nil {
		return b.writeErr
	}
	return b.Backend.SetInt(ctx, key, v)
}

func (b *countingBackend) SetBytes(ctx context.Context, key string, v []byte) error {
	b.writes.Add(1)
	if b.writeErr != nil {
		return b.writeErr
	}
	return b.Backend.SetBytes(ctx, key, v)
}

func (b *countingBackend) Remove(ctx context.Context, key string) error {
	b.removes.Add(1)
	return b.Backend.Remove(ctx, key)
}

type recordingHooks struct {
	NopHooks
	mu         sync.Mutex
	hits       int
	misses     int
	mismatches []string
	dropped    int
	decodeErrs int
	encodeErrs int
	backendErr []*BackendError
	swaps      []bool

	// onMiss and onMismatch run after the event is recorded.
	onMiss     func(key string)
	onMismatch func(key string)
}

func (h *recordingHooks) CacheHit(string) { h.mu.Lock(); h.hits++; h.mu.Unlock() }
func (h *recordingHooks) CacheMiss(key string) {
	h.mu.Lock()
	h.misses++
	h.mu.Unlock()
	if h.onMiss != nil {
		h.onMiss(key)
	}
}
func (h *recordingHooks) TypeMismatch(key, want string) {
	h.mu.Lock()
	h.mismatches = append(h.mismatches, want)
	h.mu.Unlock()
	if h.onMismatch != nil {
		h.onMismatch(key)
	}
}
func (h *recordingHooks) FillDropped(string)         { h.mu.Lock(); h.dropped++; h.mu.Unlock() }
func (h *recordingHooks) DecodeFailed(string, error) { h.mu.Lock(); h.decodeErrs++; h.mu.Unlock() }
func (h *recordingHooks) EncodeFailed(string, error) { h.mu.Lock(); h.encodeErrs++; h.mu.Unlock() }
func (h *recordingHooks) BackendSwapped(custom bool) {
	h.mu.Lock()
	h.swaps = append(h.swaps, custom)
	h.mu.Unlock()
}
func (h *recordingHooks) BackendFailed(e *BackendError) {
	h.mu.Lock()
	h.backendErr = append(h.backendErr, e)
	h.mu.Unlock()
}

type profile struct {
	Name string `json:"name"`
}

func newTestStore(t *testing.T, b backend.Backend, h Hooks) *Store {
	t.Helper()
	s, err := New(Options{Backend: b, Hooks: h})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	t.Cleanup(func() { _ = s.Close(context.Background()) })
	return s
}

func TestNewRequiresBackendPathOrName(t *testing.T) {
	if _, err := New(Options{}); err == nil {
		t.Fatalf("expected error without backend, path or name")
	}
}

func TestNewOpensDefaultFileBackend(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "prefs.kv")

	s, err := New(Options{Path: path})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	Set(ctx, s, String, "theme", "dark")
	if err := s.Close(ctx); err != nil {
		t.Fatalf("Close: %v", err)
	}

	// a new store on the same file starts cold and reads through
	s2, err := New(Options{Path: path})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	defer s2.Close(ctx)
	if got := GetOr(ctx, s2, String, "theme", "light"); got != "dark" {
		t.Fatalf("theme=%q want dark", got)
	}
}

func TestNeverWrittenKeyReadsDefault(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t, backend.NewMemoryBackend(), nil)

	if _, ok := Get(ctx, s, Int, "nope"); ok {
		t.Fatalf("Get on never-written key returned a value")
	}
	if got := GetOr(ctx, s, Int, "nope", 7); got != 7 {
		t.Fatalf("GetOr=%d want 7", got)
	}
}

func TestAgeScenario(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t, backend.NewMemoryBackend(), nil)
	s.Reset()

	Set(ctx, s, Int, "age", 10)
	if got, ok := Get(ctx, s, Int, "age"); !ok || got != 10 {
		t.Fatalf("age=%d ok=%v want 10", got, ok)
	}

	SetOptional[int](ctx, s, Int, "age", nil)
	if _, ok := Get(ctx, s, Int, "age"); ok {
		t.Fatalf("age still present after nil write")
	}
	if got := GetOr(ctx, s, Int, "age", 0); got != 0 {
		t.Fatalf("GetOr=%d want 0", got)
	}
}

func TestReadYourWriteAllTypes(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t, backend.NewMemoryBackend(), nil)

	Set(ctx, s, Int, "i", 1)
	Set(ctx, s, Float64, "f64", 2.5)
	Set(ctx, s, Float32, "f32", 1.25)
	Set(ctx, s, Bool, "b", true)
	Set(ctx, s, String, "s", "x")
	Set(ctx, s, Bytes, "raw", []byte("y"))
	Set(ctx, s, JSON[profile](), "p", profile{Name: "a"})

	check := func(label string) {
		t.Helper()
		if v, ok := Get(ctx, s, Int, "i"); !ok || v != 1 {
			t.Fatalf("%s: int=%v ok=%v", label, v, ok)
		}
		if v, ok := Get(ctx, s, Float64, "f64"); !ok || v != 2.5 {
			t.Fatalf("%s: float64=%v ok=%v", label, v, ok)
		}
		if v, ok := Get(ctx, s, Float32, "f32"); !ok || v != 1.25 {
			t.Fatalf("%s: float32=%v ok=%v", label, v, ok)
		}
		if v, ok := Get(ctx, s, Bool, "b"); !ok || !v {
			t.Fatalf("%s: bool=%v ok=%v", label, v, ok)
		}
		if v, ok := Get(ctx, s, String, "s"); !ok || v != "x" {
			t.Fatalf("%s: string=%q ok=%v", label, v, ok)
		}
		if v, ok := Get(ctx, s, Bytes, "raw"); !ok || string(v) != "y" {
			t.Fatalf("%s: bytes=%q ok=%v", label, v, ok)
		}
		if v, ok := Get(ctx, s, JSON[profile](), "p"); !ok || v.Name != "a" {
			t.Fatalf("%s: profile=%+v ok=%v", label, v, ok)
		}
	}

	check("warm")
	s.Reset()
	check("after reset")
}

func TestProfileRoundTripThroughDecode(t *testing.T) {
	ctx := context.Background()
	b := newCountingBackend()
	s := newTestStore(t, b, nil)
	pt := Object[profile](codec.MustCBOR[profile](true))

	Set(ctx, s, pt, "profile", profile{Name: "a"})
	s.Reset()

	got, ok := Get(ctx, s, pt, "profile")
	if !ok || got != (profile{Name: "a"}) {
		t.Fatalf("profile=%+v ok=%v", got, ok)
	}
	if b.reads.Load() != 1 {
		t.Fatalf("expected the decode path to read the backend once, reads=%d", b.reads.Load())
	}
}

func TestDeleteDoesNotFallThroughToStaleBackend(t *testing.T) {
	ctx := context.Background()
	b := newCountingBackend()
	s := newTestStore(t, b, nil)

	Set(ctx, s, Int, "k", 1)
	s.Delete(ctx, "k")

	if _, ok := Get(ctx, s, Int, "k"); ok {
		t.Fatalf("value visible after delete")
	}
	if b.reads.Load() != 0 {
		t.Fatalf("read after delete hit the backend: reads=%d", b.reads.Load())
	}
	if b.removes.Load() != 1 {
		t.Fatalf("removes=%d want 1", b.removes.Load())
	}

	// even if the backend still held the value, the cached absence wins
	_ = b.Backend.SetInt(ctx, "k", 99)
	if _, ok := Get(ctx, s, Int, "k"); ok {
		t.Fatalf("stale backend value leaked through cached absence")
	}
}

func TestDeleteUnknownKey(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t, backend.NewMemoryBackend(), nil)
	s.Delete(ctx, "never")
	if _, ok := Get(ctx, s, String, "never"); ok {
		t.Fatalf("value after deleting an unknown key")
	}
}

func TestOverwrite(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t, backend.NewMemoryBackend(), nil)
	Set(ctx, s, String, "k", "v1")
	Set(ctx, s, String, "k", "v2")
	if got, _ := Get(ctx, s, String, "k"); got != "v2" {
		t.Fatalf("got %q want v2", got)
	}
	s.Reset()
	if got, _ := Get(ctx, s, String, "k"); got != "v2" {
		t.Fatalf("after reset got %q want v2", got)
	}
}

func TestCacheHitSkipsBackend(t *testing.T) {
	ctx := context.Background()
	b := newCountingBackend()
	h := &recordingHooks{}
	s := newTestStore(t, b, h)

	Set(ctx, s, Int, "k", 5)
	for i := 0; i < 10; i++ {
		if v, _ := Get(ctx, s, Int, "k"); v != 5 {
			t.Fatalf("v=%d", v)
		}
	}
	if b.reads.Load() != 0 {
		t.Fatalf("reads=%d want 0", b.reads.Load())
	}
	if h.hits != 10 || h.misses != 0 {
		t.Fatalf("hits=%d misses=%d", h.hits, h.misses)
	}
}

func TestNegativeCache(t *testing.T) {
	ctx := context.Background()
	b := newCountingBackend()
	s := newTestStore(t, b, nil)

	for i := 0; i < 5; i++ {
		if _, ok := Get(ctx, s, Int, "missing"); ok {
			t.Fatalf("unexpected value")
		}
	}
	if b.reads.Load() != 1 {
		t.Fatalf("missing key read the backend %d times, want 1", b.reads.Load())
	}
	if s.Cached() != 1 {
		t.Fatalf("Cached=%d want 1", s.Cached())
	}
}

func TestBackendReadErrorReadsAsAbsent(t *testing.T) {
	ctx := context.Background()
	b := newCountingBackend()
	b.readErr = errors.New("disk on fire")
	h := &recordingHooks{}
	s := newTestStore(t, b, h)

	if got := GetOr(ctx, s, String, "k", "def"); got != "def" {
		t.Fatalf("got %q want def", got)
	}
	if len(h.backendErr) != 1 || h.backendErr[0].Op != OpGet || !errors.Is(h.backendErr[0], b.readErr) {
		t.Fatalf("backend errors=%v", h.backendErr)
	}
}

func TestBackendWriteErrorIsAbsorbed(t *testing.T) {
	ctx := context.Background()
	b := newCountingBackend()
	b.writeErr = errors.New("read-only")
	h := &recordingHooks{}
	s := newTestStore(t, b, h)

	Set(ctx, s, Int, "k", 3)
	if v, ok := Get(ctx, s, Int, "k"); !ok || v != 3 {
		t.Fatalf("cache lost the write: v=%d ok=%v", v, ok)
	}
	if len(h.backendErr) != 1 || h.backendErr[0].Op != OpSet {
		t.Fatalf("backend errors=%v", h.backendErr)
	}
}

func TestCachedTypeMismatchRefetches(t *testing.T) {
	ctx := context.Background()
	b := newCountingBackend()
	h := &recordingHooks{}
	s := newTestStore(t, b, h)

	Set(ctx, s, JSON[profile](), "p", profile{Name: "a"})

	// cached as profile, read as bytes: falls through to the backend
	raw, ok := Get(ctx, s, Bytes, "p")
	if !ok || string(raw) != `{"name":"a"}` {
		t.Fatalf("raw=%q ok=%v", raw, ok)
	}
	if b.reads.Load() != 1 {
		t.Fatalf("reads=%d want 1", b.reads.Load())
	}
	if len(h.mismatches) != 1 || h.mismatches[0] != "bytes" {
		t.Fatalf("mismatches=%v", h.mismatches)
	}

	// and back again
	if p, ok := Get(ctx, s, JSON[profile](), "p"); !ok || p.Name != "a" {
		t.Fatalf("profile=%+v ok=%v", p, ok)
	}
}

func TestStoredTypeMismatchDoesNotPoisonKey(t *testing.T) {
	ctx := context.Background()
	b := newCountingBackend()
	s := newTestStore(t, b, nil)
	_ = b.Backend.SetInt(ctx, "n", 42)

	if _, ok := Get(ctx, s, String, "n"); ok {
		t.Fatalf("int read as string")
	}
	if v, ok := Get(ctx, s, Int, "n"); !ok || v != 42 {
		t.Fatalf("int reader saw v=%d ok=%v after a string reader", v, ok)
	}
}

func TestDecodeFailureReadsAsAbsent(t *testing.T) {
	ctx := context.Background()
	b := newCountingBackend()
	h := &recordingHooks{}
	s := newTestStore(t, b, h)
	_ = b.Backend.SetBytes(ctx, "p", []byte("{not json"))

	def := profile{Name: "default"}
	if got := GetOr(ctx, s, JSON[profile](), "p", def); got != def {
		t.Fatalf("got %+v want default", got)
	}
	if h.decodeErrs != 1 {
		t.Fatalf("decodeErrs=%d", h.decodeErrs)
	}
	if len(h.backendErr) != 0 {
		t.Fatalf("decode failure reported as backend error: %v", h.backendErr)
	}
}

func TestEncodeFailureDeletes(t *testing.T) {
	ctx := context.Background()
	b := newCountingBackend()
	h := &recordingHooks{}
	s := newTestStore(t, b, h)

	failing := Object[int](codec.Func[int]{
		EncodeFunc: func(v int) ([]byte, error) {
			if v < 0 {
				return nil, errors.New("negative")
			}
			return []byte{byte(v)}, nil
		},
		DecodeFunc: func(b []byte) (int, error) { return int(b[0]), nil },
	})

	Set(ctx, s, failing, "k", 3)
	Set(ctx, s, failing, "k", -1)

	if _, ok := Get(ctx, s, failing, "k"); ok {
		t.Fatalf("value present after failed encode")
	}
	s.Reset()
	if _, ok := Get(ctx, s, failing, "k"); ok {
		t.Fatalf("stale value persisted after failed encode")
	}
	if h.encodeErrs != 1 {
		t.Fatalf("encodeErrs=%d", h.encodeErrs)
	}
}

func TestBytesAreCopied(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t, backend.NewMemoryBackend(), nil)

	in := []byte("abc")
	Set(ctx, s, Bytes, "k", in)
	in[0] = 'z'

	out, _ := Get(ctx, s, Bytes, "k")
	if string(out) != "abc" {
		t.Fatalf("cache aliases caller input: %q", out)
	}
	out[0] = 'q'
	if again, _ := Get(ctx, s, Bytes, "k"); string(again) != "abc" {
		t.Fatalf("cache aliases returned slice: %q", again)
	}
}

type tagged struct {
	Tags []string `json:"tags"`
}

func TestObjectCloneIsolatesCallers(t *testing.T) {
	ctx := context.Background()
	b := newCountingBackend()
	s := newTestStore(t, b, nil)
	tt := ObjectClone(codec.JSON[tagged]{}, func(v tagged) tagged {
		v.Tags = slices.Clone(v.Tags)
		return v
	})

	in := tagged{Tags: []string{"x"}}
	Set(ctx, s, tt, "t", in)
	in.Tags[0] = "mutated-input"

	out, ok := Get(ctx, s, tt, "t")
	if !ok || out.Tags[0] != "x" {
		t.Fatalf("cache aliases caller input: %+v ok=%v", out, ok)
	}
	out.Tags[0] = "mutated-output"

	if again, _ := Get(ctx, s, tt, "t"); again.Tags[0] != "x" {
		t.Fatalf("cache aliases returned value: %+v", again)
	}
	if b.reads.Load() != 0 {
		t.Fatalf("reads=%d, values should come from the cache", b.reads.Load())
	}
}

// startIntWrite runs Set(key, v) in the background and returns once the cache
// holds v. The backend write stays blocked on the backend's intGate.
func startIntWrite(ctx context.Context, s *Store, wg *sync.WaitGroup, key string, v int) {
	wg.Add(1)
	go func() {
		defer wg.Done()
		Set(ctx, s, Int, key, v)
	}()
	for {
		if st, cv, _ := s.cache.Lookup(key); st == coherent.Present && cv == any(v) {
			return
		}
		runtime.Gosched()
	}
}

func TestWriteBetweenLookupAndBackendReadKeepsWrite(t *testing.T) {
	ctx := context.Background()
	b := newCountingBackend()
	_ = b.Backend.SetInt(ctx, "k", 1)
	gate := make(chan struct{})
	b.intGate = gate
	h := &recordingHooks{}
	s := newTestStore(t, b, h)

	var wg sync.WaitGroup
	var once sync.Once
	h.onMiss = func(key string) {
		// the reader has seen the key unresolved; now a writer caches 2 while
		// the backend still holds 1
		once.Do(func() { startIntWrite(ctx, s, &wg, key, 2) })
	}

	v, ok := Get(ctx, s, Int, "k")
	close(gate)
	wg.Wait()

	if !ok || v != 2 {
		t.Fatalf("racing read returned v=%d ok=%v, want the newer write", v, ok)
	}
	if v, _ := Get(ctx, s, Int, "k"); v != 2 {
		t.Fatalf("stale backend read overwrote a newer write: cache=%d", v)
	}
	if bv, _, _ := b.Backend.Int(ctx, "k"); bv != 2 {
		t.Fatalf("backend=%d want 2", bv)
	}
	if h.dropped != 1 {
		t.Fatalf("dropped=%d want 1", h.dropped)
	}
}

func TestWriteDuringTypeMismatchIsNotInvalidated(t *testing.T) {
	ctx := context.Background()
	b := newCountingBackend()
	h := &recordingHooks{}
	s := newTestStore(t, b, h)
	Set(ctx, s, String, "k", "old")

	gate := make(chan struct{})
	b.intGate = gate
	var wg sync.WaitGroup
	var once sync.Once
	h.onMismatch = func(key string) {
		once.Do(func() { startIntWrite(ctx, s, &wg, key, 2) })
	}

	v, ok := Get(ctx, s, Int, "k")
	close(gate)
	wg.Wait()

	if !ok || v != 2 {
		t.Fatalf("got v=%d ok=%v, want the write that landed during the mismatch", v, ok)
	}
	if st, cv, _ := s.cache.Lookup("k"); st != coherent.Present || cv != any(2) {
		t.Fatalf("cache state=%v v=%v", st, cv)
	}
	if b.reads.Load() != 0 {
		t.Fatalf("reads=%d, the cached write should have answered", b.reads.Load())
	}
}

func TestUseCustomIsNotRetroactive(t *testing.T) {
	ctx := context.Background()
	def := newCountingBackend()
	custom := newCountingBackend()
	h := &recordingHooks{}
	s := newTestStore(t, def, h)

	Set(ctx, s, Int, "k", 1)
	s.UseCustom(custom)
	if s.Custom() != custom {
		t.Fatalf("Custom() does not return the configured backend")
	}

	// cached value from before the swap is still served
	if v, _ := Get(ctx, s, Int, "k"); v != 1 {
		t.Fatalf("v=%d want 1", v)
	}

	Set(ctx, s, Int, "k", 2)
	if def.writes.Load() != 1 || custom.writes.Load() != 1 {
		t.Fatalf("writes default=%d custom=%d", def.writes.Load(), custom.writes.Load())
	}

	s.Reset()
	if v, _ := Get(ctx, s, Int, "k"); v != 2 {
		t.Fatalf("custom backend not consulted, v=%d", v)
	}
	if def.reads.Load() != 0 {
		t.Fatalf("default backend consulted while custom is set")
	}

	s.UseCustom(nil)
	s.Reset()
	if v, _ := Get(ctx, s, Int, "k"); v != 1 {
		t.Fatalf("default backend not restored, v=%d", v)
	}
	if len(h.swaps) != 2 || !h.swaps[0] || h.swaps[1] {
		t.Fatalf("swaps=%v", h.swaps)
	}
}

func TestOptionsCustom(t *testing.T) {
	ctx := context.Background()
	custom := backend.NewMemoryBackend()
	s, err := New(Options{Backend: backend.NewMemoryBackend(), Custom: custom})
	if err != nil {
		t.Fatal(err)
	}
	Set(ctx, s, Bool, "flag", true)
	if v, ok, _ := custom.Bool(ctx, "flag"); !ok || !v {
		t.Fatalf("write did not reach the custom backend")
	}
}

func TestIndependentStores(t *testing.T) {
	ctx := context.Background()
	a := newTestStore(t, backend.NewMemoryBackend(), nil)
	b := newTestStore(t, backend.NewMemoryBackend(), nil)

	Set(ctx, a, String, "k", "a")
	if _, ok := Get(ctx, b, String, "k"); ok {
		t.Fatalf("stores share state")
	}
}

func TestFillRacingWriteKeepsWrite(t *testing.T) {
	ctx := context.Background()
	b := newCountingBackend()
	h := &recordingHooks{}
	s := newTestStore(t, b, h)
	_ = b.Backend.SetInt(ctx, "k", 1)

	var once sync.Once
	b.beforeRead = func() {
		// a writer lands between the reader's snapshot and its fill
		once.Do(func() { Set(ctx, s, Int, "k", 2) })
	}

	if v, ok := Get(ctx, s, Int, "k"); !ok || v != 2 {
		t.Fatalf("racing read returned v=%d ok=%v, want the newer write", v, ok)
	}
	if v, _ := Get(ctx, s, Int, "k"); v != 2 {
		t.Fatalf("stale read overwrote the cache: v=%d", v)
	}
	if h.dropped != 1 {
		t.Fatalf("dropped=%d want 1", h.dropped)
	}
}

func TestFillRacingDeleteKeepsAbsence(t *testing.T) {
	ctx := context.Background()
	b := newCountingBackend()
	s := newTestStore(t, b, nil)
	_ = b.Backend.SetString(ctx, "k", "old")

	var once sync.Once
	b.beforeRead = func() {
		once.Do(func() { s.Delete(ctx, "k") })
	}

	if _, ok := Get(ctx, s, String, "k"); ok {
		t.Fatalf("racing read resurrected a deleted key")
	}
	if _, ok := Get(ctx, s, String, "k"); ok {
		t.Fatalf("deleted key cached as present")
	}
}

func TestConcurrentWriters(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t, backend.NewMemoryBackend(), nil)

	const n = 32
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(id int) {
			defer wg.Done()
			Set(ctx, s, Int, "k", id)
		}(i)
	}
	wg.Wait()

	v, ok := Get(ctx, s, Int, "k")
	if !ok || v < 0 || v >= n {
		t.Fatalf("v=%d ok=%v is not one of the issued ids", v, ok)
	}
}

func TestConcurrentReadersAndWriters(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t, backend.NewMemoryBackend(), nil)

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(2)
		go func(id int) {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				Set(ctx, s, Int, "shared", id)
				if j%10 == 0 {
					s.Delete(ctx, "shared")
				}
			}
		}(i)
		go func() {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				if v, ok := Get(ctx, s, Int, "shared"); ok && (v < 0 || v >= 8) {
					t.Errorf("corrupt value %d", v)
				}
				if j%25 == 0 {
					s.Reset()
				}
			}
		}()
	}
	wg.Wait()
}
