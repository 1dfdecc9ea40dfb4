// Package portfolio keeps the rendered holdings in memory, fetches their
// prices and persists them after every change.
package portfolio

import (
	"context"
	"fmt"
	"math"
	"strconv"
	"strings"
	"sync"

	"crypto-portfolio-go/internal/catalog"
	"crypto-portfolio-go/internal/models"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/sourcegraph/conc"
	"go.uber.org/zap"
)

// TargetSlots is the number of price-target inputs per row.
const TargetSlots = 3

// PriceSource returns the current USD price for a price key.
type PriceSource interface {
	GetPrice(ctx context.Context, id string) (float64, error)
}

// Store persists the ordered holdings list.
type Store interface {
	Save(ctx context.Context, holdings []models.Holding) error
	Load(ctx context.Context) ([]models.Holding, error)
}

// PriceState is the lifecycle of a row's price cells.
type PriceState string

const (
	StateLoading   PriceState = "loading"
	StatePopulated PriceState = "populated"
	StateError     PriceState = "error"
)

// Options tunes a Tracker.
type Options struct {
	// ResolveByID prices holdings by catalog id when they carry one.
	ResolveByID bool
}

type target struct {
	input string
	label string
}

type row struct {
	id      string
	holding models.Holding
	state   PriceState
	price   decimal.Decimal
	targets [TargetSlots]target

	// gen identifies the latest fetch; completions of older fetches are dropped.
	gen    uint64
	cancel context.CancelFunc
}

// Tracker owns the portfolio rows. It is safe for concurrent use.
type Tracker struct {
	logger      *zap.Logger
	prices      PriceSource
	store       Store
	resolveByID bool

	ctx  context.Context
	stop context.CancelFunc

	mu    sync.Mutex
	rows  []*row
	byID  map[string]*row
	tasks conc.WaitGroup

	// saveMu spans the row snapshot and the store write.
	saveMu sync.Mutex

	listenersMu sync.RWMutex
	listeners   []func()
}

// NewTracker creates an empty tracker.
func NewTracker(logger *zap.Logger, prices PriceSource, store Store, opts Options) *Tracker {
	ctx, stop := context.WithCancel(context.Background())
	return &Tracker{
		logger:      logger.Named("tracker"),
		prices:      prices,
		store:       store,
		resolveByID: opts.ResolveByID,
		ctx:         ctx,
		stop:        stop,
		byID:        make(map[string]*row),
	}
}

// OnChange registers fn to be called after every change to the rows.
// Callbacks run outside the tracker lock and may call back into it.
func (t *Tracker) OnChange(fn func()) {
	t.listenersMu.Lock()
	t.listeners = append(t.listeners, fn)
	t.listenersMu.Unlock()
}

func (t *Tracker) notify() {
	t.listenersMu.RLock()
	listeners := make([]func(), len(t.listeners))
	copy(listeners, t.listeners)
	t.listenersMu.RUnlock()

	for _, fn := range listeners {
		fn()
	}
}

// Add appends a holding for a coin of the catalog snapshot and persists.
// Quantity and cost must both be positive.
func (t *Tracker) Add(ctx context.Context, cat catalog.Catalog, coinID string, quantity, cost float64) (string, error) {
	coin, ok := cat.Find(coinID)
	if !ok || !positive(quantity) || !positive(cost) {
		return "", ErrMissingFields
	}

	id := t.appendRow(models.Holding{
		Name:     coin.Name,
		Symbol:   strings.ToUpper(coin.Symbol),
		Quantity: quantity,
		Cost:     cost,
		CoinID:   coin.ID,
	})
	t.logger.Info("Holding added",
		zap.String("row", id),
		zap.String("symbol", strings.ToUpper(coin.Symbol)),
		zap.Float64("quantity", quantity),
		zap.Float64("cost", cost))

	err := t.Save(ctx)
	t.notify()
	return id, err
}

// Render appends one row without persisting and starts its price fetch.
func (t *Tracker) Render(h models.Holding) string {
	id := t.appendRow(h)
	t.notify()
	return id
}

func (t *Tracker) appendRow(h models.Holding) string {
	r := &row{
		id:      uuid.NewString(),
		holding: h,
	}
	for i := range r.targets {
		r.targets[i].label = profitLabel(decimal.Zero)
	}

	t.mu.Lock()
	t.rows = append(t.rows, r)
	t.byID[r.id] = r
	t.startFetchLocked(r)
	t.mu.Unlock()

	return r.id
}

// Edit overwrites a row's quantity and cost from raw user input and re-fetches its price.
// Empty input on either field leaves an existing row untouched.
func (t *Tracker) Edit(ctx context.Context, id, quantityInput, costInput string) error {
	t.mu.Lock()
	_, ok := t.byID[id]
	t.mu.Unlock()
	if !ok {
		return ErrRowNotFound
	}

	quantityInput = strings.TrimSpace(quantityInput)
	costInput = strings.TrimSpace(costInput)
	if quantityInput == "" || costInput == "" {
		return nil
	}

	quantity, err := parseAmount(quantityInput)
	if err != nil {
		return err
	}
	cost, err := parseAmount(costInput)
	if err != nil {
		return err
	}

	t.mu.Lock()
	r, ok := t.byID[id]
	if !ok {
		t.mu.Unlock()
		return ErrRowNotFound
	}
	r.holding.Quantity = quantity
	r.holding.Cost = cost
	t.startFetchLocked(r)
	t.mu.Unlock()

	t.logger.Info("Holding edited",
		zap.String("row", id),
		zap.Float64("quantity", quantity),
		zap.Float64("cost", cost))

	err = t.Save(ctx)
	t.notify()
	return err
}

// Delete removes a row, cancels its in-flight fetch and persists.
func (t *Tracker) Delete(ctx context.Context, id string) error {
	t.mu.Lock()
	r, ok := t.byID[id]
	if !ok {
		t.mu.Unlock()
		return ErrRowNotFound
	}
	if r.cancel != nil {
		r.cancel()
		r.cancel = nil
	}
	delete(t.byID, id)
	for i, candidate := range t.rows {
		if candidate == r {
			t.rows = append(t.rows[:i], t.rows[i+1:]...)
			break
		}
	}
	t.mu.Unlock()

	t.logger.Info("Holding deleted", zap.String("row", id), zap.String("symbol", r.holding.Symbol))

	err := t.Save(ctx)
	t.notify()
	return err
}

// SetTarget records a multiplier for a row's target slot (1-based) and returns the slot's label.
// Empty or non-numeric input keeps the previous label.
func (t *Tracker) SetTarget(id string, slot int, input string) (string, error) {
	if slot < 1 || slot > TargetSlots {
		return "", ErrInvalidTargetSlot
	}

	t.mu.Lock()
	r, ok := t.byID[id]
	if !ok {
		t.mu.Unlock()
		return "", ErrRowNotFound
	}
	tg := &r.targets[slot-1]
	tg.input = input

	multiplier, err := decimal.NewFromString(strings.TrimSpace(input))
	if err != nil {
		label := tg.label
		t.mu.Unlock()
		t.notify()
		return label, nil
	}
	if r.state != StatePopulated {
		label := tg.label
		t.mu.Unlock()
		t.notify()
		return label, ErrPriceUnavailable
	}

	quantity := decimal.NewFromFloat(r.holding.Quantity)
	cost := decimal.NewFromFloat(r.holding.Cost)
	profit := r.price.Mul(multiplier).Sub(cost).Mul(quantity)
	tg.label = profitLabel(profit)
	label := tg.label
	t.mu.Unlock()

	t.notify()
	return label, nil
}

// Holdings returns the rows projected to holdings, in display order.
func (t *Tracker) Holdings() []models.Holding {
	t.mu.Lock()
	defer t.mu.Unlock()

	holdings := make([]models.Holding, 0, len(t.rows))
	for _, r := range t.rows {
		holdings = append(holdings, r.holding)
	}
	return holdings
}

// Save persists the current rows, overwriting the stored portfolio.
func (t *Tracker) Save(ctx context.Context) error {
	t.saveMu.Lock()
	defer t.saveMu.Unlock()

	holdings := t.Holdings()
	if err := t.store.Save(ctx, holdings); err != nil {
		t.logger.Error("Failed to save portfolio", zap.Error(err))
		return fmt.Errorf("could not save portfolio: %w", err)
	}
	return nil
}

// Load replays the stored holdings as rows, in stored order, and returns how many were loaded.
func (t *Tracker) Load(ctx context.Context) (int, error) {
	holdings, err := t.store.Load(ctx)
	if err != nil {
		return 0, fmt.Errorf("could not load portfolio: %w", err)
	}
	for _, h := range holdings {
		t.appendRow(h)
	}
	t.logger.Info("Portfolio loaded", zap.Int("holdings", len(holdings)))
	t.notify()
	return len(holdings), nil
}

// Wait blocks until every in-flight price fetch has completed.
func (t *Tracker) Wait() {
	t.tasks.Wait()
}

// Close cancels all in-flight price fetches and waits for them to return.
func (t *Tracker) Close() {
	t.stop()
	t.tasks.Wait()
}

// startFetchLocked supersedes any running fetch of r and launches a new one. t.mu must be held.
func (t *Tracker) startFetchLocked(r *row) {
	if r.cancel != nil {
		r.cancel()
	}
	ctx, cancel := context.WithCancel(t.ctx)
	r.gen++
	r.cancel = cancel
	r.state = StateLoading

	id, gen, key := r.id, r.gen, t.priceKey(r.holding)
	t.tasks.Go(func() {
		defer cancel()
		t.fetch(ctx, id, gen, key)
	})
}

func (t *Tracker) fetch(ctx context.Context, id string, gen uint64, key string) {
	price, err := t.prices.GetPrice(ctx, key)

	t.mu.Lock()
	r, ok := t.byID[id]
	if !ok || r.gen != gen {
		t.mu.Unlock()
		t.logger.Debug("Dropping stale price result", zap.String("row", id), zap.String("key", key))
		return
	}
	r.cancel = nil
	if err != nil {
		r.state = StateError
	} else {
		r.state = StatePopulated
		r.price = decimal.NewFromFloat(price)
	}
	t.mu.Unlock()

	if err != nil {
		t.logger.Warn("Failed to fetch price", zap.String("row", id), zap.String("key", key), zap.Error(err))
	} else {
		t.logger.Debug("Price fetched", zap.String("row", id), zap.String("key", key), zap.Float64("price", price))
	}
	t.notify()
}

// priceKey is the id sent to the price endpoint. By default it is the
// lower-cased symbol, which only matches CoinGecko ids by coincidence.
func (t *Tracker) priceKey(h models.Holding) string {
	if t.resolveByID && h.CoinID != "" {
		return h.CoinID
	}
	return strings.ToLower(h.Symbol)
}

func parseAmount(s string) (float64, error) {
	v, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) || v < 0 {
		return 0, ErrInvalidInput
	}
	return v, nil
}

func positive(v float64) bool {
	return v > 0 && !math.IsInf(v, 0)
}
