package presence

import (
	"context"
	"time"

	"github.com/fathima-sithara/realtime-service/internal/metrics"
	"github.com/fathima-sithara/realtime-service/internal/utils"
	"go.uber.org/zap"
)

type PresenceStore interface {
	UpdateUserPresence(ctx context.Context, id string, online bool, lastSeen time.Time) error
}

// Tracker persists online state on the 0->1 and 1->0 transitions of a
// user's connection count. Errors are logged, never returned.
type Tracker struct {
	counter Counter
	store   PresenceStore
	log     *zap.SugaredLogger
	stripes *utils.Stripes
	now     func() time.Time
}

func NewTracker(counter Counter, store PresenceStore, log *zap.SugaredLogger) *Tracker {
	return &Tracker{
		counter: counter,
		store:   store,
		log:     log,
		stripes: utils.NewStripes(64),
		now:     utils.NowUTC,
	}
}

func (t *Tracker) Connect(ctx context.Context, userID string) {
	n, err := t.counter.Incr(ctx, userID)
	if err != nil {
		t.log.Warnw("presence incr failed", "user_id", userID, "err", err)
		return
	}
	if n == 1 {
		t.persist(ctx, userID)
	}
}

func (t *Tracker) Disconnect(ctx context.Context, userID string) {
	n, ok, err := t.counter.Decr(ctx, userID)
	if err != nil {
		t.log.Warnw("presence decr failed", "user_id", userID, "err", err)
		return
	}
	if ok && n == 0 {
		t.persist(ctx, userID)
	}
}

// persist writes whatever the count says now, so a late offline write
// cannot overwrite a reconnect that happened in between.
func (t *Tracker) persist(ctx context.Context, userID string) {
	unlock := t.stripes.Lock(userID)
	defer unlock()

	n, err := t.counter.Get(ctx, userID)
	if err != nil {
		t.log.Warnw("presence read failed", "user_id", userID, "err", err)
		return
	}
	online := n > 0
	if err := t.store.UpdateUserPresence(ctx, userID, online, t.now()); err != nil {
		t.log.Warnw("presence write failed", "user_id", userID, "online", online, "err", err)
		return
	}
	state := "offline"
	if online {
		state = "online"
	}
	metrics.PresenceWrites.WithLabelValues(state).Inc()
	t.log.Debugw("presence updated", "user_id", userID, "online", online)
}

// Connections returns the live connection count for userID.
func (t *Tracker) Connections(ctx context.Context, userID string) (int64, error) {
	return t.counter.Get(ctx, userID)
}
