// Package importer replays batch-created students to the remote system of
// record without overwhelming it. The local write is atomic and immediate;
// remote delivery is spaced, best-effort, and loss-tolerant.
package importer

import (
	"context"
	"log/slog"
	gosync "sync"
	"time"

	"github.com/google/uuid"

	"github.com/rfachrizal/mutabaah/internal/model"
	"github.com/rfachrizal/mutabaah/internal/store"
	"github.com/rfachrizal/mutabaah/internal/sync"
)

const jobBuffer = 1024

// DefaultInterval spaces remote pushes to stay under the endpoint's rate
// limits. It is time-based only; observed errors do not slow the queue down.
const DefaultInterval = time.Second

// Queue dispatches one sync push per imported student at a fixed interval.
type Queue struct {
	store    *store.Store
	gateway  *sync.Gateway
	interval time.Duration
	logger   *slog.Logger
	jobs     chan model.Student

	mu     gosync.RWMutex
	cancel context.CancelFunc
	done   chan struct{}
}

// New creates an import queue. A non-positive interval falls back to the
// default one-per-second spacing.
func New(st *store.Store, gw *sync.Gateway, interval time.Duration, logger *slog.Logger) *Queue {
	if interval <= 0 {
		interval = DefaultInterval
	}
	return &Queue{
		store:    st,
		gateway:  gw,
		interval: interval,
		logger:   logger,
		jobs:     make(chan model.Student, jobBuffer),
	}
}

// Start begins the dispatch loop.
func (q *Queue) Start(ctx context.Context) {
	q.mu.Lock()
	ctx, q.cancel = context.WithCancel(ctx)
	q.done = make(chan struct{})
	q.mu.Unlock()

	go func() {
		defer close(q.done)
		for {
			select {
			case <-ctx.Done():
				return
			case st := <-q.jobs:
				q.gateway.Push(sync.ActionSaveStudent, st.ID, st)
				select {
				case <-ctx.Done():
					return
				case <-time.After(q.interval):
				}
			}
		}
	}()
}

// Stop gracefully stops the dispatch loop. Jobs still queued are abandoned;
// the local store already holds them, so only the remote mirror misses out.
func (q *Queue) Stop() {
	q.mu.RLock()
	cancel := q.cancel
	done := q.done
	q.mu.RUnlock()

	if cancel != nil {
		cancel()
	}
	if done != nil {
		<-done
	}
}

// Import appends the batch to the local students collection in one write,
// then schedules one remote push per record. The returned count is the
// number of students persisted locally; remote delivery is not awaited and
// individual push failures do not affect it.
func (q *Queue) Import(batch []model.Student) (int, error) {
	if len(batch) == 0 {
		return 0, nil
	}

	now := time.Now().UTC().Format(time.RFC3339)
	for i := range batch {
		if batch[i].ID == "" {
			batch[i].ID = "stu_" + uuid.NewString()
		}
		batch[i].Normalize(now)
	}

	if err := q.store.AppendStudents(batch); err != nil {
		return 0, err
	}

	for _, st := range batch {
		select {
		case q.jobs <- st:
		default:
			q.logger.Warn("import queue full, skipping remote push", "student", st.ID)
		}
	}

	q.logger.Info("imported students", "count", len(batch))
	return len(batch), nil
}
