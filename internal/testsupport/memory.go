// Package testsupport provides in-memory repository implementations
// shared by package tests.
package testsupport

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"augur/internal/domain/market_data"
	"augur/internal/domain/prediction"
	"augur/internal/domain/signal"
	"augur/pkg/errors"
)

// PredictionStore is an in-memory prediction.Repository.
type PredictionStore struct {
	mu    sync.Mutex
	preds map[uuid.UUID]*prediction.Prediction
}

var _ prediction.Repository = (*PredictionStore)(nil)

func NewPredictionStore() *PredictionStore {
	return &PredictionStore{preds: make(map[uuid.UUID]*prediction.Prediction)}
}

func (s *PredictionStore) Create(_ context.Context, p *prediction.Prediction) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.preds[p.ID]; ok {
		return errors.Wrapf(errors.ErrAlreadyExists, "prediction %s", p.ID)
	}
	cp := *p
	s.preds[p.ID] = &cp
	return nil
}

func (s *PredictionStore) GetByID(_ context.Context, id uuid.UUID) (*prediction.Prediction, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.preds[id]
	if !ok {
		return nil, errors.Wrapf(errors.ErrNotFound, "prediction %s", id)
	}
	cp := *p
	return &cp, nil
}

func (s *PredictionStore) ListPending(_ context.Context, symbol string, limit int) ([]*prediction.Prediction, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var out []*prediction.Prediction
	for _, p := range s.preds {
		if p.Symbol == symbol && !p.Verified() {
			cp := *p
			out = append(out, &cp)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (s *PredictionStore) ListVerifiedSince(_ context.Context, symbol string, since time.Time, limit int) ([]*prediction.Prediction, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var out []*prediction.Prediction
	for _, p := range s.preds {
		if p.Symbol != symbol || !p.Verified() {
			continue
		}
		if !since.IsZero() && p.VerifiedAt.Before(since) {
			continue
		}
		cp := *p
		out = append(out, &cp)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].VerifiedAt.After(*out[j].VerifiedAt) })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (s *PredictionStore) MarkVerified(_ context.Context, p *prediction.Prediction) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	stored, ok := s.preds[p.ID]
	if !ok {
		return false, errors.Wrapf(errors.ErrNotFound, "prediction %s", p.ID)
	}
	if stored.Verified() {
		return false, nil
	}
	cp := *p
	s.preds[p.ID] = &cp
	return true, nil
}

func (s *PredictionStore) CountVerifiedSince(_ context.Context, symbol string, since time.Time) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	count := 0
	for _, p := range s.preds {
		if symbol != "" && p.Symbol != symbol {
			continue
		}
		if p.Verified() && !p.VerifiedAt.Before(since) {
			count++
		}
	}
	return count, nil
}

// EventStore is an in-memory prediction.EventRepository.
type EventStore struct {
	mu     sync.Mutex
	events []*prediction.RetrainingEvent
}

var _ prediction.EventRepository = (*EventStore)(nil)

func NewEventStore() *EventStore {
	return &EventStore{}
}

func (s *EventStore) Append(_ context.Context, ev *prediction.RetrainingEvent) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := *ev
	s.events = append(s.events, &cp)
	return nil
}

func (s *EventStore) Latest(_ context.Context, symbol string) (*prediction.RetrainingEvent, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var latest *prediction.RetrainingEvent
	for _, ev := range s.events {
		if ev.Symbol != symbol {
			continue
		}
		if latest == nil || ev.Timestamp.After(latest.Timestamp) {
			latest = ev
		}
	}
	if latest == nil {
		return nil, nil
	}
	cp := *latest
	return &cp, nil
}

func (s *EventStore) List(_ context.Context, symbol string, limit int) ([]*prediction.RetrainingEvent, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var out []*prediction.RetrainingEvent
	for _, ev := range s.events {
		if ev.Symbol == symbol {
			cp := *ev
			out = append(out, &cp)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Timestamp.After(out[j].Timestamp) })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

// ElementStore is an in-memory signal.ElementRepository.
type ElementStore struct {
	mu  sync.Mutex
	els map[uuid.UUID]*signal.SMCElement
}

var _ signal.ElementRepository = (*ElementStore)(nil)

func NewElementStore() *ElementStore {
	return &ElementStore{els: make(map[uuid.UUID]*signal.SMCElement)}
}

func (s *ElementStore) Save(_ context.Context, el *signal.SMCElement) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := *el
	s.els[el.ID] = &cp
	return nil
}

func (s *ElementStore) SaveBatch(ctx context.Context, els []*signal.SMCElement) error {
	for _, el := range els {
		if err := s.Save(ctx, el); err != nil {
			return err
		}
	}
	return nil
}

func (s *ElementStore) GetByID(_ context.Context, id uuid.UUID) (*signal.SMCElement, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	el, ok := s.els[id]
	if !ok {
		return nil, errors.Wrapf(errors.ErrNotFound, "element %s", id)
	}
	cp := *el
	return &cp, nil
}

func (s *ElementStore) ListActive(_ context.Context, symbol string, tf signal.Timeframe) ([]*signal.SMCElement, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var out []*signal.SMCElement
	for _, el := range s.els {
		if el.Symbol == symbol && el.Timeframe == tf && el.Active {
			cp := *el
			out = append(out, &cp)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

func (s *ElementStore) List(_ context.Context, symbol string, tf signal.Timeframe, limit int) ([]*signal.SMCElement, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var out []*signal.SMCElement
	for _, el := range s.els {
		if el.Symbol == symbol && el.Timeframe == tf {
			cp := *el
			out = append(out, &cp)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

// BarStore is an in-memory market_data.Repository fed by tests.
type BarStore struct {
	mu   sync.Mutex
	bars map[string][]market_data.Bar // keyed by symbol+"/"+timeframe
}

var _ market_data.Repository = (*BarStore)(nil)

func NewBarStore() *BarStore {
	return &BarStore{bars: make(map[string][]market_data.Bar)}
}

// SetBars replaces the stored series. Bars must be chronological.
func (s *BarStore) SetBars(symbol, timeframe string, bars []market_data.Bar) {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := make([]market_data.Bar, len(bars))
	copy(cp, bars)
	s.bars[symbol+"/"+timeframe] = cp
}

func (s *BarStore) GetBars(_ context.Context, symbol, timeframe string, count int) ([]market_data.Bar, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	series := s.bars[symbol+"/"+timeframe]
	if len(series) == 0 {
		return nil, errors.Wrapf(errors.ErrDataUnavailable, "no bars for %s %s", symbol, timeframe)
	}
	if len(series) > count {
		series = series[len(series)-count:]
	}
	out := make([]market_data.Bar, len(series))
	copy(out, series)
	return out, nil
}

func (s *BarStore) LatestPrice(_ context.Context, symbol string) (float64, time.Time, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var best market_data.Bar
	found := false
	for key, series := range s.bars {
		if len(series) == 0 || !strings.HasPrefix(key, symbol+"/") {
			continue
		}
		last := series[len(series)-1]
		if !found || last.OpenTime.After(best.OpenTime) {
			best = last
			found = true
		}
	}
	if !found {
		return 0, time.Time{}, errors.Wrapf(errors.ErrDataUnavailable, "no price for %s", symbol)
	}
	return best.Close, best.OpenTime, nil
}
