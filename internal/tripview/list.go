package tripview

import (
	"context"
	"sync"
	"time"

	"github.com/ukydev/fleet-ops/internal/apiclient"
	"github.com/ukydev/fleet-ops/internal/debounce"
	"github.com/ukydev/fleet-ops/internal/models"
)

// ListFetcher loads one page of trips.
type ListFetcher func(ctx context.Context, f models.TripFilter) (*apiclient.TripPage, error)

// ListFilter holds the filters of the trip list. Every change schedules a
// reload; changes within one debounce window produce a single request.
type ListFilter struct {
	mu     sync.Mutex
	ctx    context.Context
	filter models.TripFilter
	fetch  ListFetcher
	result func(*apiclient.TripPage, error)
	d      *debounce.Debouncer
}

// NewListFilter creates a filter that reloads through fetch and reports
// each outcome to result.
func NewListFilter(ctx context.Context, delay time.Duration, fetch ListFetcher, result func(*apiclient.TripPage, error)) *ListFilter {
	return &ListFilter{
		ctx:    ctx,
		filter: models.TripFilter{Page: 1},
		fetch:  fetch,
		result: result,
		d:      debounce.New(delay),
	}
}

// Filter returns the current filter.
func (l *ListFilter) Filter() models.TripFilter {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.filter
}

func (l *ListFilter) update(fn func(f *models.TripFilter)) {
	l.mu.Lock()
	fn(&l.filter)
	l.mu.Unlock()
	l.d.Trigger(l.reload)
}

func (l *ListFilter) SetStatus(s models.TripStatus) {
	l.update(func(f *models.TripFilter) { f.Status = s; f.Page = 1 })
}

func (l *ListFilter) SetClient(id string) {
	l.update(func(f *models.TripFilter) { f.ClientID = id; f.Page = 1 })
}

func (l *ListFilter) SetDriver(id string) {
	l.update(func(f *models.TripFilter) { f.DriverID = id; f.Page = 1 })
}

func (l *ListFilter) SetSearch(q string) {
	l.update(func(f *models.TripFilter) { f.Search = q; f.Page = 1 })
}

func (l *ListFilter) SetPage(p int) {
	l.update(func(f *models.TripFilter) { f.Page = p })
}

// Reload fetches immediately with the current filter.
func (l *ListFilter) Reload() {
	l.d.Trigger(l.reload)
	l.d.Flush()
}

// Stop cancels any pending reload.
func (l *ListFilter) Stop() {
	l.d.Stop()
}

func (l *ListFilter) reload() {
	if l.ctx.Err() != nil {
		return
	}
	page, err := l.fetch(l.ctx, l.Filter())
	if l.ctx.Err() != nil {
		return
	}
	l.result(page, err)
}
