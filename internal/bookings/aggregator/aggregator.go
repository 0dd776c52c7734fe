// Package aggregator merges a user's tour, hotel and flight bookings into one
// list. Each kind is fetched concurrently and in isolation: a failing fetch
// is logged and contributes nothing, it never fails the whole listing.
package aggregator

import (
	"context"
	"sort"
	"sync"
	"time"

	bookingserrors "gotour/internal/bookings/errors"
	"gotour/internal/bookings/normalizer"
	"gotour/pkg/locale"
	"gotour/pkg/logger"
	"gotour/pkg/metrics"
	"gotour/pkg/model"
)

type Filter string

const (
	FilterAll    Filter = "all"
	FilterTour   Filter = Filter(model.KindTour)
	FilterHotel  Filter = Filter(model.KindHotel)
	FilterFlight Filter = Filter(model.KindFlight)
)

// ParseFilter maps a query value to a Filter. An empty value means all.
func ParseFilter(s string) (Filter, error) {
	switch Filter(s) {
	case "", FilterAll:
		return FilterAll, nil
	case FilterTour, FilterHotel, FilterFlight:
		return Filter(s), nil
	}
	return "", bookingserrors.ErrInvalidFilter
}

func (f Filter) Matches(kind model.BookingKind) bool {
	return f == FilterAll || f == Filter(kind)
}

// BookingSource returns every booking of one kind owned by userID.
type BookingSource interface {
	FindByUser(ctx context.Context, userID string) ([]*model.Booking, error)
}

type SourceFunc func(ctx context.Context, userID string) ([]*model.Booking, error)

func (f SourceFunc) FindByUser(ctx context.Context, userID string) ([]*model.Booking, error) {
	return f(ctx, userID)
}

// BackfillFunc assigns and persists a booking reference for a record that has
// none. It must set b.BookingReference on success.
type BackfillFunc func(ctx context.Context, kind model.BookingKind, b *model.Booking) error

type Aggregator struct {
	sources  map[model.BookingKind]BookingSource
	retries  map[model.BookingKind]RetryPolicy
	backfill BackfillFunc
	metrics  *metrics.Metrics
	log      *logger.Logger
}

type Option func(*Aggregator)

func WithRetry(kind model.BookingKind, policy RetryPolicy) Option {
	return func(a *Aggregator) {
		a.retries[kind] = policy
	}
}

func WithBackfill(fn BackfillFunc) Option {
	return func(a *Aggregator) {
		a.backfill = fn
	}
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(a *Aggregator) {
		a.metrics = m
	}
}

// New builds an aggregator over the given per-kind sources. Hotel fetches are
// retried once unless overridden with WithRetry.
func New(log *logger.Logger, sources map[model.BookingKind]BookingSource, opts ...Option) *Aggregator {
	a := &Aggregator{
		sources: sources,
		retries: map[model.BookingKind]RetryPolicy{
			model.KindHotel: FixedRetry{Retries: 1},
		},
		log: log,
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

type fetchResult struct {
	kind     model.BookingKind
	bookings []*model.Booking
}

// ListMyBookings returns userID's bookings matching filter, newest first.
// Records with no resolvable id are dropped.
func (a *Aggregator) ListMyBookings(ctx context.Context, userID string, filter Filter, loc locale.Locale) ([]model.BookingView, error) {
	if _, err := ParseFilter(string(filter)); err != nil {
		return nil, err
	}

	results := make([]fetchResult, len(model.BookingKinds))
	var wg sync.WaitGroup
	for i, kind := range model.BookingKinds {
		source, ok := a.sources[kind]
		if !ok {
			continue
		}
		wg.Add(1)
		go func(i int, kind model.BookingKind, source BookingSource) {
			defer wg.Done()
			results[i] = fetchResult{kind: kind, bookings: a.fetch(ctx, kind, source, userID)}
		}(i, kind, source)
	}
	wg.Wait()

	var records []*model.Booking
	for _, r := range results {
		records = append(records, r.bookings...)
	}

	views := make([]model.BookingView, 0, len(records))
	for _, b := range records {
		if normalizer.ResolveID(b) == "" {
			continue
		}
		kind := normalizer.ResolveKind(b)
		if !filter.Matches(kind) {
			continue
		}
		if b.BookingReference == "" && a.backfill != nil {
			if err := a.backfill(ctx, kind, b); err != nil {
				a.log.Warn("Failed to backfill booking reference",
					"booking_id", normalizer.ResolveID(b),
					"kind", kind,
					"error", err,
				)
			}
		}
		views = append(views, normalizer.Normalize(b, loc))
	}

	SortNewestFirst(views)
	return views, nil
}

func (a *Aggregator) fetch(ctx context.Context, kind model.BookingKind, source BookingSource, userID string) []*model.Booking {
	policy, ok := a.retries[kind]
	if !ok {
		policy = NoRetry{}
	}

	var bookings []*model.Booking
	attempts := 0
	err := policy.Do(ctx, func(ctx context.Context) error {
		attempts++
		if attempts > 1 {
			a.metrics.FetchRetried(string(kind))
			a.log.Info("Retrying booking fetch", "kind", kind, "user_id", userID, "attempt", attempts)
		}
		found, err := source.FindByUser(ctx, userID)
		if err != nil {
			return err
		}
		bookings = found
		return nil
	})
	if err != nil {
		a.metrics.FetchFailed(string(kind))
		a.log.Error("Failed to fetch bookings, continuing without them",
			"kind", kind,
			"user_id", userID,
			"attempts", attempts,
			"error", err,
		)
		return nil
	}
	return bookings
}

var epoch = time.Unix(0, 0).UTC()

// SortNewestFirst orders views by CreatedAt descending. A missing CreatedAt
// counts as the Unix epoch. Ties keep their input order.
func SortNewestFirst(views []model.BookingView) {
	sort.SliceStable(views, func(i, j int) bool {
		return createdOrEpoch(views[i]).After(createdOrEpoch(views[j]))
	})
}

func createdOrEpoch(v model.BookingView) time.Time {
	if v.CreatedAt.IsZero() {
		return epoch
	}
	return v.CreatedAt
}
