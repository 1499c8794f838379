// Package scripted provides an in-memory IMarketSource whose responses are set
// by the caller, used to drive the engine without a live terminal.
package scripted

import (
	"context"
	"fmt"
	"sync"
	"time"

	"terminal-bridge/src/helpers"
	"terminal-bridge/src/models"
)

type Source struct {
	mu sync.Mutex

	connected    bool
	bars         map[string][]models.MCandle
	barErr       map[string]error
	positions    []models.MPosition
	positionsErr error
	deals        []models.MDeal
	dealsErr     error
	account      *models.MAccount

	barCalls      map[string]int
	positionCalls int
	dealCalls     int
}

// -----------------------------------------------------------------------------

func New() *Source {
	return &Source{
		connected: true,
		bars:      make(map[string][]models.MCandle),
		barErr:    make(map[string]error),
		barCalls:  make(map[string]int),
	}
}

// -----------------------------------------------------------------------------
// Script setters
// -----------------------------------------------------------------------------

// SetBars replaces the bars served for a timeframe, oldest first.
func (s *Source) SetBars(tf string, bars ...models.MCandle) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.bars[tf] = append([]models.MCandle(nil), bars...)
}

// FailBars makes every poll of tf return err until cleared with a nil err.
func (s *Source) FailBars(tf string, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.barErr[tf] = err
}

func (s *Source) SetPositions(positions ...models.MPosition) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.positions = append([]models.MPosition(nil), positions...)
	s.positionsErr = nil
}

func (s *Source) FailPositions(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.positionsErr = err
}

func (s *Source) AddDeals(deals ...models.MDeal) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.deals = append(s.deals, deals...)
}

func (s *Source) FailDeals(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.dealsErr = err
}

func (s *Source) SetAccount(acc models.MAccount) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.account = &acc
}

func (s *Source) SetConnected(connected bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.connected = connected
}

// -----------------------------------------------------------------------------
// Call counters
// -----------------------------------------------------------------------------

func (s *Source) BarCalls(tf string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.barCalls[tf]
}

func (s *Source) PositionCalls() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.positionCalls
}

func (s *Source) DealCalls() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.dealCalls
}

// -----------------------------------------------------------------------------
// IMarketSource
// -----------------------------------------------------------------------------

func (s *Source) GetLatestBars(ctx context.Context, symbol, timeframe string, count int) ([]models.MCandle, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.barCalls[timeframe]++
	if !s.connected {
		return nil, helpers.NewSourceUnavailable("bars", nil)
	}
	if err := s.barErr[timeframe]; err != nil {
		return nil, err
	}
	bars := s.bars[timeframe]
	if len(bars) == 0 {
		return nil, helpers.NewSourceUnavailable(fmt.Sprintf("bars %s %s", symbol, timeframe), nil)
	}
	if count > 0 && len(bars) > count {
		bars = bars[len(bars)-count:]
	}
	return append([]models.MCandle(nil), bars...), nil
}

// -----------------------------------------------------------------------------

func (s *Source) GetOpenPositions(ctx context.Context) ([]models.MPosition, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.positionCalls++
	if !s.connected {
		return nil, helpers.NewSourceUnavailable("positions", nil)
	}
	if s.positionsErr != nil {
		return nil, s.positionsErr
	}
	return append([]models.MPosition{}, s.positions...), nil
}

// -----------------------------------------------------------------------------

func (s *Source) GetDealsInRange(ctx context.Context, from, to time.Time) ([]models.MDeal, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.dealCalls++
	if !s.connected {
		return nil, helpers.NewSourceUnavailable("deals", nil)
	}
	if s.dealsErr != nil {
		return nil, s.dealsErr
	}

	var out []models.MDeal
	for _, d := range s.deals {
		if d.Time >= from.Unix() && d.Time <= to.Unix() {
			out = append(out, d)
		}
	}
	return out, nil
}

// -----------------------------------------------------------------------------

func (s *Source) GetAccountInfo(ctx context.Context) (*models.MAccount, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.connected || s.account == nil {
		return nil, helpers.NewSourceUnavailable("account", nil)
	}
	acc := *s.account
	return &acc, nil
}

// -----------------------------------------------------------------------------

func (s *Source) IsConnected(ctx context.Context) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.connected
}
