package auth

import (
	"crypto/rand"
	"encoding/base64"
	"errors"
	"fmt"
	"sync"
	"time"
)

// ErrTooManyExchanges is returned when the live-exchange cap is reached.
var ErrTooManyExchanges = errors.New("too many concurrent exchanges")

const (
	// DefaultMaxExchanges caps concurrent authentication exchanges.
	DefaultMaxExchanges = 256

	// exchangeSweepInterval is how often leaked exchanges are reaped.
	exchangeSweepInterval = 30 * time.Second
)

// Exchange is one registered live authentication exchange.
type Exchange struct {
	ID         string
	RemoteAddr string
	Deadline   time.Time
}

// ExchangeRegistry tracks live authentication exchanges so the daemon can
// bound their number and reap entries whose connection died without
// unregistering. Each WebSocket connection registers exactly one exchange
// for the time its driver runs.
type ExchangeRegistry struct {
	max int
	ttl time.Duration

	mu     sync.Mutex
	live   map[string]*Exchange
	stopCh chan struct{}
}

// NewExchangeRegistry creates a registry capping concurrent exchanges at
// max and reaping entries older than ttl. Non-positive arguments select
// the defaults.
func NewExchangeRegistry(max int, ttl time.Duration) *ExchangeRegistry {
	if max <= 0 {
		max = DefaultMaxExchanges
	}
	if ttl <= 0 {
		ttl = 10 * time.Second
	}
	r := &ExchangeRegistry{
		max:    max,
		ttl:    ttl,
		live:   make(map[string]*Exchange),
		stopCh: make(chan struct{}),
	}
	go r.sweepLoop()
	return r
}

// Begin registers a new exchange for the given client address. It fails
// with ErrTooManyExchanges at the cap.
func (r *ExchangeRegistry) Begin(remoteAddr string) (*Exchange, error) {
	idBytes := make([]byte, 16)
	if _, err := rand.Read(idBytes); err != nil {
		return nil, fmt.Errorf("generating exchange ID: %w", err)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if len(r.live) >= r.max {
		return nil, fmt.Errorf("%w: %d live", ErrTooManyExchanges, len(r.live))
	}
	ex := &Exchange{
		ID:         base64.URLEncoding.EncodeToString(idBytes),
		RemoteAddr: remoteAddr,
		Deadline:   time.Now().Add(r.ttl),
	}
	r.live[ex.ID] = ex
	return ex, nil
}

// End unregisters a finished exchange. Ending an already-reaped exchange
// is a no-op.
func (r *ExchangeRegistry) End(ex *Exchange) {
	if ex == nil {
		return
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.live, ex.ID)
}

// Count returns the number of live exchanges.
func (r *ExchangeRegistry) Count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.live)
}

// Stop terminates the background sweeper.
func (r *ExchangeRegistry) Stop() {
	close(r.stopCh)
}

func (r *ExchangeRegistry) sweepLoop() {
	ticker := time.NewTicker(exchangeSweepInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			r.sweep(time.Now())
		case <-r.stopCh:
			return
		}
	}
}

// sweep drops exchanges past their deadline. The connection goroutine
// normally calls End first; the sweep only recovers capacity after
// abnormal exits.
func (r *ExchangeRegistry) sweep(now time.Time) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for id, ex := range r.live {
		if now.After(ex.Deadline) {
			delete(r.live, id)
		}
	}
}
