package task

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/phrazzld/genforge-api/internal/domain"
	"github.com/phrazzld/genforge-api/internal/events"
	"github.com/phrazzld/genforge-api/internal/mocks"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var discardLogger = slog.New(slog.NewTextHandler(io.Discard, nil))

type countingHandler struct {
	mu     sync.Mutex
	events []events.GenerationFinished
}

func (h *countingHandler) HandleEvent(ctx context.Context, event *events.Event) error {
	var payload events.GenerationFinished
	if err := event.UnmarshalPayload(&payload); err != nil {
		return err
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	h.events = append(h.events, payload)
	return nil
}

func (h *countingHandler) received() []events.GenerationFinished {
	h.mu.Lock()
	defer h.mu.Unlock()
	return append([]events.GenerationFinished(nil), h.events...)
}

func seedPending(t *testing.T, db *mocks.MemoryDB, started time.Time) *domain.Generation {
	t.Helper()
	gen, err := domain.NewGeneration(uuid.New(), "a prompt", "auto", domain.Parameters{}, nil)
	require.NoError(t, err)
	gen.StartTime = started
	db.Seed(gen)
	return gen
}

func newTestReconciler(db *mocks.MemoryDB, emitter events.EventEmitter, now time.Time) *Reconciler {
	r := NewReconciler(db.Generations(), db, emitter, ReconcilerConfig{
		StaleAfter: 10 * time.Minute,
		Interval:   time.Hour,
		BatchSize:  50,
	}, discardLogger)
	r.now = func() time.Time { return now }
	return r
}

func TestReconciler_RunOnceFailsOnlyStalePending(t *testing.T) {
	t.Parallel()

	now := time.Now().UTC()
	db := mocks.NewMemoryDB()
	stale := seedPending(t, db, now.Add(-time.Hour))
	fresh := seedPending(t, db, now.Add(-time.Minute))

	completed := seedPending(t, db, now.Add(-2*time.Hour))
	require.NoError(t, completed.Complete("done", nil, []byte(`{"provider":"openai"}`)))
	db.Seed(completed)

	emitter := events.NewInMemoryEventEmitter(discardLogger)
	handler := &countingHandler{}
	emitter.RegisterHandler(handler)

	closed, err := newTestReconciler(db, emitter, now).RunOnce(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, closed)

	got := db.Generation(stale.ID)
	assert.Equal(t, domain.GenerationStatusFailed, got.Status)
	assert.Equal(t, AbandonedMessage, got.Error)
	require.NotNil(t, got.EndTime)
	require.NoError(t, got.Validate())

	assert.Equal(t, domain.GenerationStatusPending, db.Generation(fresh.ID).Status)
	assert.Equal(t, domain.GenerationStatusCompleted, db.Generation(completed.ID).Status)

	recorded := db.Events()
	require.Len(t, recorded, 1)
	assert.Equal(t, stale.ID, recorded[0].GenerationID)
	assert.Contains(t, string(recorded[0].Metadata), AbandonedMessage)

	received := handler.received()
	require.Len(t, received, 1)
	assert.Equal(t, events.SourceReconciler, received[0].Source)
	assert.Equal(t, "FAILED", received[0].Status)
}

func TestReconciler_RunOnceNothingToDo(t *testing.T) {
	t.Parallel()

	db := mocks.NewMemoryDB()
	closed, err := newTestReconciler(db, nil, time.Now().UTC()).RunOnce(context.Background())
	require.NoError(t, err)
	assert.Zero(t, closed)
	assert.Zero(t, db.TxCount())
}

func TestReconciler_TransactionFailureLeavesRecordPending(t *testing.T) {
	t.Parallel()

	now := time.Now().UTC()
	db := mocks.NewMemoryDB()
	stale := seedPending(t, db, now.Add(-time.Hour))
	db.AnalyticsErr = errors.New("analytics unavailable")

	closed, err := newTestReconciler(db, nil, now).RunOnce(context.Background())
	require.NoError(t, err)
	assert.Zero(t, closed)

	assert.Equal(t, domain.GenerationStatusPending, db.Generation(stale.ID).Status)
	assert.Empty(t, db.Events())
}

func TestReconciler_RespectsBatchSize(t *testing.T) {
	t.Parallel()

	now := time.Now().UTC()
	db := mocks.NewMemoryDB()
	for i := 0; i < 5; i++ {
		seedPending(t, db, now.Add(-time.Duration(i+20)*time.Minute))
	}

	r := NewReconciler(db.Generations(), db, nil, ReconcilerConfig{
		StaleAfter: 10 * time.Minute,
		BatchSize:  2,
	}, discardLogger)
	r.now = func() time.Time { return now }

	closed, err := r.RunOnce(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, closed)
	assert.Len(t, db.Events(), 2)
}

func TestReconciler_StartSweepsImmediatelyAndStops(t *testing.T) {
	t.Parallel()

	now := time.Now().UTC()
	db := mocks.NewMemoryDB()
	stale := seedPending(t, db, now.Add(-time.Hour))
	r := newTestReconciler(db, nil, now)

	require.NoError(t, r.Start(context.Background()))
	assert.Error(t, r.Start(context.Background()), "second start must fail")

	assert.Equal(t, domain.GenerationStatusFailed, db.Generation(stale.ID).Status)

	done := make(chan struct{})
	go func() {
		r.Stop()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("Stop did not return")
	}

	r.Stop()
}

func TestNewReconciler_AppliesDefaults(t *testing.T) {
	t.Parallel()

	db := mocks.NewMemoryDB()
	r := NewReconciler(db.Generations(), db, nil, ReconcilerConfig{}, nil)
	assert.Equal(t, DefaultReconcilerConfig(), r.config)
}
