package service

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/noah-isme/tutor-booking-api/internal/models"
)

// ErrFeedClosed is returned when subscribing to a closed feed.
var ErrFeedClosed = errors.New("reservation feed closed")

// SnapshotFunc loads the complete set of reservations matching a filter.
type SnapshotFunc func(ctx context.Context, filter models.ReservationFilter) ([]models.Reservation, error)

type changeListener interface {
	Listen(ctx context.Context, handle func(models.ReservationChange)) error
}

// ReservationFeed fans ledger changes out to live subscribers. Every delivery is
// a full snapshot of the subscriber's filter; bursts of changes coalesce into one.
type ReservationFeed struct {
	snapshot SnapshotFunc
	metrics  *MetricsService
	logger   *zap.Logger

	mu     sync.Mutex
	subs   map[string]*feedSubscription
	closed bool
	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

type feedSubscription struct {
	id       string
	filter   models.ReservationFilter
	callback func([]models.Reservation)
	signal   chan struct{}
	done     chan struct{}

	mu      sync.Mutex
	stopped bool
	once    sync.Once
}

// NewReservationFeed constructs a feed reading snapshots through snapshot.
func NewReservationFeed(snapshot SnapshotFunc, metrics *MetricsService, logger *zap.Logger) *ReservationFeed {
	if logger == nil {
		logger = zap.NewNop()
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &ReservationFeed{
		snapshot: snapshot,
		metrics:  metrics,
		logger:   logger,
		subs:     make(map[string]*feedSubscription),
		ctx:      ctx,
		cancel:   cancel,
	}
}

// Subscribe registers callback for filter and delivers the current snapshot
// immediately. The returned function ends the subscription; once it returns no
// further callbacks run. It must not be called from inside callback.
// Cancelling ctx also ends the subscription.
func (f *ReservationFeed) Subscribe(ctx context.Context, filter models.ReservationFilter, callback func([]models.Reservation)) (func(), error) {
	sub := &feedSubscription{
		id:       uuid.NewString(),
		filter:   filter,
		callback: callback,
		signal:   make(chan struct{}, 1),
		done:     make(chan struct{}),
	}
	sub.signal <- struct{}{}

	f.mu.Lock()
	if f.closed {
		f.mu.Unlock()
		return nil, ErrFeedClosed
	}
	f.subs[sub.id] = sub
	count := len(f.subs)
	f.wg.Add(1)
	f.mu.Unlock()

	f.metrics.SetFeedSubscriptions(count)
	go f.run(ctx, sub)

	return func() { f.remove(sub) }, nil
}

// Publish notifies local subscribers of a change. It satisfies the ledger's
// change publisher contract when no cross-instance bus is configured.
func (f *ReservationFeed) Publish(_ context.Context, change models.ReservationChange) error {
	f.Notify(change)
	return nil
}

// Notify wakes every subscription whose filter covers the changed reservation.
func (f *ReservationFeed) Notify(change models.ReservationChange) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, sub := range f.subs {
		scope := sub.filter
		scope.Status = ""
		if !scope.Matches(change.Reservation) {
			continue
		}
		select {
		case sub.signal <- struct{}{}:
		default:
		}
	}
}

// Listen relays changes from a cross-instance bus until ctx ends or the feed
// closes. A dropped bus connection is retried after retry.
func (f *ReservationFeed) Listen(ctx context.Context, bus changeListener, retry time.Duration) {
	if retry <= 0 {
		retry = time.Second
	}
	for {
		err := bus.Listen(ctx, f.Notify)
		if ctx.Err() != nil || f.ctx.Err() != nil {
			return
		}
		f.logger.Warn("reservation change bus dropped, reconnecting", zap.Duration("retry", retry), zap.Error(err))

		timer := time.NewTimer(retry)
		select {
		case <-ctx.Done():
			timer.Stop()
			return
		case <-f.ctx.Done():
			timer.Stop()
			return
		case <-timer.C:
		}
	}
}

// Len returns the number of active subscriptions.
func (f *ReservationFeed) Len() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.subs)
}

// Close ends every subscription and waits for their goroutines.
func (f *ReservationFeed) Close() {
	f.mu.Lock()
	if f.closed {
		f.mu.Unlock()
		return
	}
	f.closed = true
	subs := make([]*feedSubscription, 0, len(f.subs))
	for _, sub := range f.subs {
		subs = append(subs, sub)
	}
	f.mu.Unlock()

	f.cancel()
	for _, sub := range subs {
		f.remove(sub)
	}
	f.wg.Wait()
}

func (f *ReservationFeed) remove(sub *feedSubscription) {
	sub.once.Do(func() {
		sub.mu.Lock()
		sub.stopped = true
		sub.mu.Unlock()
		close(sub.done)

		f.mu.Lock()
		delete(f.subs, sub.id)
		count := len(f.subs)
		f.mu.Unlock()
		f.metrics.SetFeedSubscriptions(count)
	})
}

func (f *ReservationFeed) run(ctx context.Context, sub *feedSubscription) {
	defer f.wg.Done()
	defer f.remove(sub)

	for {
		select {
		case <-ctx.Done():
			return
		case <-f.ctx.Done():
			return
		case <-sub.done:
			return
		case <-sub.signal:
			items, err := f.snapshot(ctx, sub.filter)
			if err != nil {
				if ctx.Err() != nil {
					return
				}
				f.logger.Warn("reservation feed snapshot failed", zap.String("subscription", sub.id), zap.Error(err))
				continue
			}
			if items == nil {
				items = []models.Reservation{}
			}
			sub.deliver(items)
		}
	}
}

func (s *feedSubscription) deliver(items []models.Reservation) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.stopped {
		return
	}
	s.callback(items)
}
