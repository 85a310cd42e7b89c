package autosave

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aimcr/aimcr/internal/models"
	"github.com/aimcr/aimcr/internal/review"
	"github.com/aimcr/aimcr/internal/validate"
)

type mockSaver struct {
	mu        sync.Mutex
	saved     []*models.ReviewDocument
	submitted []*models.ReviewDocument
	active    int32
	overlap   atomic.Bool
	delay     time.Duration
	err       error
	attempts  int
}

func (m *mockSaver) SaveDraft(ctx context.Context, doc *models.ReviewDocument) (*review.Result, error) {
	if atomic.AddInt32(&m.active, 1) > 1 {
		m.overlap.Store(true)
	}
	defer atomic.AddInt32(&m.active, -1)
	time.Sleep(m.delay)

	m.mu.Lock()
	defer m.mu.Unlock()
	m.attempts++
	if m.err != nil {
		return nil, m.err
	}
	m.saved = append(m.saved, doc)
	return &review.Result{Path: "draft.json"}, nil
}

func (m *mockSaver) Submit(ctx context.Context, doc *models.ReviewDocument) (*review.Result, error) {
	if atomic.AddInt32(&m.active, 1) > 1 {
		m.overlap.Store(true)
	}
	defer atomic.AddInt32(&m.active, -1)
	time.Sleep(m.delay)

	m.mu.Lock()
	defer m.mu.Unlock()
	m.submitted = append(m.submitted, doc)
	return &review.Result{Path: "submissions/P_20250101_000000"}, nil
}

func (m *mockSaver) submitCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.submitted)
}

func (m *mockSaver) count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.saved)
}

func (m *mockSaver) attemptCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.attempts
}

type docHolder struct {
	mu  sync.Mutex
	doc *models.ReviewDocument
}

func (h *docHolder) set(doc *models.ReviewDocument) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.doc = doc
}

func (h *docHolder) snapshot() *models.ReviewDocument {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.doc == nil {
		return nil
	}
	return h.doc.Clone()
}

func testDoc(obs string) *models.ReviewDocument {
	doc := models.NewReviewDocument()
	doc.Metadata.ProjectID = "P"
	doc.Observations = obs
	return doc
}

func startWriter(t *testing.T, saver Saver, h *docHolder) *Writer {
	t.Helper()
	w := NewWriter(saver, h.snapshot, nil)
	w.Start(context.Background())
	t.Cleanup(w.Stop)
	return w
}

func TestSave_Foreground(t *testing.T) {
	saver := &mockSaver{}
	h := &docHolder{doc: testDoc("one")}
	w := startWriter(t, saver, h)

	var saved atomic.Int32
	w.OnSaved = func(*review.Result) { saved.Add(1) }

	res, err := w.Save(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "draft.json", res.Path)
	assert.Equal(t, 1, saver.count())
	assert.Equal(t, int32(1), saved.Load())

	// foreground saves happen even without changes
	_, err = w.Save(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, saver.count())
}

func TestSave_NoDocument(t *testing.T) {
	w := startWriter(t, &mockSaver{}, &docHolder{})
	_, err := w.Save(context.Background())
	assert.ErrorIs(t, err, review.ErrNoDocument)
}

func TestTrigger_SkipsNilAndUnchanged(t *testing.T) {
	saver := &mockSaver{}
	h := &docHolder{}
	w := startWriter(t, saver, h)

	w.Trigger()
	// nothing is open, so neither the tick nor the foreground save writes
	_, _ = w.Save(context.Background())
	assert.Equal(t, 0, saver.count())

	h.set(testDoc("v1"))
	w.Trigger()
	assert.Eventually(t, func() bool { return saver.count() == 1 }, time.Second, 5*time.Millisecond)

	w.Trigger()
	_, err := w.Save(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, saver.count(), "unchanged tick skipped, foreground saved")

	h.set(testDoc("v2"))
	w.Trigger()
	assert.Eventually(t, func() bool { return saver.count() == 3 }, time.Second, 5*time.Millisecond)
}

func TestTrigger_ValidationFailureSkipped(t *testing.T) {
	saver := &mockSaver{err: validate.Errors{{Field: "metadata.reviewer_name", Reason: "is required"}}}
	h := &docHolder{doc: testDoc("x")}
	w := startWriter(t, saver, h)

	w.Trigger()
	assert.Eventually(t, func() bool { return saver.attemptCount() == 1 }, time.Second, 5*time.Millisecond)

	_, err := w.Save(context.Background())
	_, ok := validate.AsErrors(err)
	assert.True(t, ok, "foreground save reports validation errors")
}

func TestSavesNeverOverlap(t *testing.T) {
	saver := &mockSaver{delay: 5 * time.Millisecond}
	h := &docHolder{doc: testDoc("x")}
	w := startWriter(t, saver, h)

	var wg sync.WaitGroup
	for i := 0; i < 5; i++ {
		wg.Add(2)
		go func(i int) {
			defer wg.Done()
			h.set(testDoc(string(rune('a' + i))))
			w.Trigger()
		}(i)
		go func() {
			defer wg.Done()
			_, _ = w.Save(context.Background())
		}()
	}
	wg.Wait()

	assert.False(t, saver.overlap.Load(), "writer must serialize saves")
	assert.GreaterOrEqual(t, saver.count(), 5)
}

func TestSubmit_UsesSnapshotAndSkipsNextTick(t *testing.T) {
	saver := &mockSaver{}
	h := &docHolder{doc: testDoc("final")}
	w := startWriter(t, saver, h)

	var saved atomic.Int32
	w.OnSaved = func(*review.Result) { saved.Add(1) }

	res, err := w.Submit(context.Background(), nil)
	require.NoError(t, err)
	assert.Equal(t, "submissions/P_20250101_000000", res.Path)
	require.Equal(t, 1, saver.submitCount())
	assert.Equal(t, "final", saver.submitted[0].Observations)
	assert.Equal(t, int32(0), saved.Load(), "submit does not report a draft save")

	// the submitted state is unchanged, so the tick writes nothing
	w.Trigger()
	_, err = w.Submit(context.Background(), nil)
	require.NoError(t, err)
	assert.Equal(t, 0, saver.count())

	_, err = w.Submit(context.Background(), testDoc("explicit"))
	require.NoError(t, err)
	assert.Equal(t, 3, saver.submitCount())
	assert.Equal(t, "explicit", saver.submitted[2].Observations)
}

func TestSubmit_NoDocument(t *testing.T) {
	w := startWriter(t, &mockSaver{}, &docHolder{})
	_, err := w.Submit(context.Background(), nil)
	assert.ErrorIs(t, err, review.ErrNoDocument)
}

func TestSubmitNeverOverlapsTick(t *testing.T) {
	saver := &mockSaver{delay: 10 * time.Millisecond}
	h := &docHolder{doc: testDoc("x")}
	w := startWriter(t, saver, h)

	var wg sync.WaitGroup
	for i := 0; i < 5; i++ {
		wg.Add(2)
		go func(i int) {
			defer wg.Done()
			h.set(testDoc(string(rune('a' + i))))
			w.Trigger()
		}(i)
		go func() {
			defer wg.Done()
			_, err := w.Submit(context.Background(), h.snapshot())
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	assert.False(t, saver.overlap.Load(), "submit must not run during a periodic save")
	assert.Equal(t, 5, saver.submitCount())
}

func TestSubmit_AfterStop(t *testing.T) {
	w := NewWriter(&mockSaver{}, (&docHolder{doc: testDoc("x")}).snapshot, nil)
	w.Start(context.Background())
	w.Stop()

	_, err := w.Submit(context.Background(), nil)
	assert.ErrorIs(t, err, ErrStopped)
}

func TestSave_AfterStop(t *testing.T) {
	w := NewWriter(&mockSaver{}, (&docHolder{doc: testDoc("x")}).snapshot, nil)
	w.Start(context.Background())
	w.Stop()

	_, err := w.Save(context.Background())
	assert.ErrorIs(t, err, ErrStopped)
	w.Stop()
}

func TestSave_ContextCancelledStopsWriter(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	w := NewWriter(&mockSaver{}, (&docHolder{}).snapshot, nil)
	w.Start(ctx)
	cancel()

	assert.Eventually(t, func() bool {
		_, err := w.Save(context.Background())
		return errors.Is(err, ErrStopped)
	}, time.Second, 5*time.Millisecond)
}
