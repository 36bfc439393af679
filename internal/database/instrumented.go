package database

import (
	"context"
	"errors"
	"time"

	"github.com/itemstack/backend/pkg/metrics"
	"github.com/itemstack/backend/pkg/tracing"
)

const itemsTable = "items"

// instrumentedItemRepo records query metrics and spans around an ItemRepository.
type instrumentedItemRepo struct {
	next         ItemRepository
	metrics      *metrics.BackendMetrics
	queryTimeout time.Duration
}

// InstrumentOption configures an instrumented repository.
type InstrumentOption func(*instrumentedItemRepo)

// WithQueryTimeout bounds every repository call by d. Zero disables the bound.
func WithQueryTimeout(d time.Duration) InstrumentOption {
	return func(r *instrumentedItemRepo) {
		r.queryTimeout = d
	}
}

// NewInstrumentedItemRepo wraps repo so every call is traced and, when m is
// non-nil, counted and timed.
func NewInstrumentedItemRepo(repo ItemRepository, m *metrics.BackendMetrics, opts ...InstrumentOption) ItemRepository {
	r := &instrumentedItemRepo{next: repo, metrics: m}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

func (r *instrumentedItemRepo) observe(ctx context.Context, op string, fn func(ctx context.Context) error) error {
	if r.queryTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, r.queryTimeout)
		defer cancel()
	}

	ctx, span := tracing.StartSpan(ctx, "db.items."+op)
	defer span.End()

	start := time.Now()
	err := fn(ctx)

	status := "success"
	switch {
	case err == nil:
	case errors.Is(err, ErrNotFound):
		status = "not_found"
	default:
		status = "error"
		tracing.RecordError(ctx, err)
	}

	if r.metrics != nil {
		r.metrics.RecordDBQuery(op, itemsTable, status, time.Since(start).Seconds())
	}
	return err
}

func (r *instrumentedItemRepo) Create(ctx context.Context, item *Item) error {
	return r.observe(ctx, "insert", func(ctx context.Context) error {
		if err := r.next.Create(ctx, item); err != nil {
			return err
		}
		tracing.AddSpanAttributes(ctx, tracing.AttrItemID.Int64(item.ID))
		return nil
	})
}

func (r *instrumentedItemRepo) Get(ctx context.Context, id int64) (*Item, error) {
	var item *Item
	err := r.observe(ctx, "select", func(ctx context.Context) error {
		tracing.AddSpanAttributes(ctx, tracing.AttrItemID.Int64(id))
		var err error
		item, err = r.next.Get(ctx, id)
		return err
	})
	return item, err
}

func (r *instrumentedItemRepo) Update(ctx context.Context, item *Item) error {
	return r.observe(ctx, "update", func(ctx context.Context) error {
		tracing.AddSpanAttributes(ctx, tracing.AttrItemID.Int64(item.ID))
		return r.next.Update(ctx, item)
	})
}

func (r *instrumentedItemRepo) Delete(ctx context.Context, id int64) error {
	return r.observe(ctx, "delete", func(ctx context.Context) error {
		tracing.AddSpanAttributes(ctx, tracing.AttrItemID.Int64(id))
		return r.next.Delete(ctx, id)
	})
}

func (r *instrumentedItemRepo) List(ctx context.Context, page Pagination) ([]Item, error) {
	var items []Item
	err := r.observe(ctx, "list", func(ctx context.Context) error {
		var err error
		items, err = r.next.List(ctx, page)
		return err
	})
	return items, err
}

func (r *instrumentedItemRepo) Count(ctx context.Context) (int64, error) {
	var n int64
	err := r.observe(ctx, "count", func(ctx context.Context) error {
		var err error
		n, err = r.next.Count(ctx)
		return err
	})
	return n, err
}
