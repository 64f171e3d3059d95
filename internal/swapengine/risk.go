package swapengine

import (
	"fmt"
	"math/big"
	"sync"
	"time"

	"github.com/aman-zulfiqar/chattrade/internal/constants"
	"github.com/aman-zulfiqar/chattrade/internal/errs"
	"github.com/aman-zulfiqar/chattrade/internal/models"
	"github.com/shopspring/decimal"
)

// RiskConfig defines risk management parameters. Zero disables a limit.
type RiskConfig struct {
	MaxSwapAmountETH float64 // per swap, ETH-equivalent
	DailyLimitETH    float64 // rolling 24h window
}

// DefaultRiskConfig leaves both limits off.
func DefaultRiskConfig() RiskConfig {
	return RiskConfig{}
}

// RiskManager enforces risk limits. Safe for concurrent use by many sessions.
type RiskManager struct {
	config       RiskConfig
	dailyTracker *DailyLimitTracker
}

func NewRiskManager(config RiskConfig) *RiskManager {
	return &RiskManager{
		config:       config,
		dailyTracker: NewDailyLimitTracker(time.Now),
	}
}

// CheckSwap validates a quote against the configured limits without
// counting it. Executions and transfers go through Reserve.
func (rm *RiskManager) CheckSwap(quote *models.SwapQuote) *RiskCheckResult {
	return rm.evaluate(swapValueETH(quote), rm.dailyTracker.GetDailyUsage())
}

// Reserve checks valueETH against the limits and counts it towards the
// daily window in one step, so concurrent sessions cannot both pass on the
// same headroom. release returns the reservation for an attempt that moved
// no funds; calling it more than once is harmless.
func (rm *RiskManager) Reserve(valueETH float64) (release func(), err error) {
	t := rm.dailyTracker
	t.mu.Lock()
	defer t.mu.Unlock()

	t.cleanup()
	res := rm.evaluate(valueETH, t.usageLocked())
	if !res.Allowed {
		return nil, fmt.Errorf("%w: %s", errs.ErrRiskRejected, res.Reason)
	}

	id := t.appendLocked(valueETH)
	var once sync.Once
	return func() { once.Do(func() { t.remove(id) }) }, nil
}

// RecordSwap counts a completed swap that was not reserved up front
func (rm *RiskManager) RecordSwap(quote *models.SwapQuote) {
	rm.dailyTracker.RecordSwap(swapValueETH(quote))
}

func (rm *RiskManager) evaluate(value, dailyUsed float64) *RiskCheckResult {
	result := &RiskCheckResult{
		Allowed:          true,
		SwapValueETH:     value,
		MaxSwapAmountETH: rm.config.MaxSwapAmountETH,
		DailyLimitETH:    rm.config.DailyLimitETH,
		DailyUsedETH:     dailyUsed,
	}
	if rm.config.DailyLimitETH > 0 {
		result.DailyRemainingETH = rm.config.DailyLimitETH - dailyUsed
	}

	// 1. Per-transaction limit
	if rm.config.MaxSwapAmountETH > 0 && value > rm.config.MaxSwapAmountETH {
		result.Allowed = false
		result.ExceedsMaxSwapAmount = true
		result.Reason = fmt.Sprintf("value %.4f ETH exceeds max %.4f ETH per transaction",
			value, rm.config.MaxSwapAmountETH)
		return result
	}

	// 2. Daily limit
	if rm.config.DailyLimitETH > 0 && dailyUsed+value > rm.config.DailyLimitETH {
		result.Allowed = false
		result.ExceedsDailyLimit = true
		result.Reason = fmt.Sprintf("daily limit exceeded: used %.4f + %.4f > %.4f ETH",
			dailyUsed, value, rm.config.DailyLimitETH)
		return result
	}

	return result
}

func (rm *RiskManager) Config() RiskConfig {
	return rm.config
}

func (rm *RiskManager) DailyUsage() float64 {
	return rm.dailyTracker.GetDailyUsage()
}

// swapValueETH takes the native leg of the swap. Every supported pair has one.
func swapValueETH(quote *models.SwapQuote) float64 {
	if quote == nil {
		return 0
	}
	var wei *big.Int
	switch {
	case IsNative(quote.Route.From):
		wei = quote.AmountIn
	case IsNative(quote.Route.To):
		wei = quote.AmountOut
	}
	return weiToETH(wei)
}

func weiToETH(wei *big.Int) float64 {
	if wei == nil {
		return 0
	}
	return decimal.NewFromBigInt(wei, -constants.NativeDecimals).InexactFloat64()
}

// DailyLimitTracker tracks rolling 24-hour usage
type DailyLimitTracker struct {
	mu     sync.Mutex
	now    func() time.Time
	swaps  []swapRecord
	nextID uint64
}

type swapRecord struct {
	id        uint64
	timestamp time.Time
	amountETH float64
}

func NewDailyLimitTracker(now func() time.Time) *DailyLimitTracker {
	if now == nil {
		now = time.Now
	}
	return &DailyLimitTracker{now: now}
}

func (t *DailyLimitTracker) RecordSwap(amountETH float64) {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.appendLocked(amountETH)
	t.cleanup()
}

// GetDailyUsage calculates total usage in the last 24 hours
func (t *DailyLimitTracker) GetDailyUsage() float64 {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.cleanup()
	return t.usageLocked()
}

func (t *DailyLimitTracker) appendLocked(amountETH float64) uint64 {
	t.nextID++
	t.swaps = append(t.swaps, swapRecord{id: t.nextID, timestamp: t.now(), amountETH: amountETH})
	return t.nextID
}

func (t *DailyLimitTracker) usageLocked() float64 {
	total := 0.0
	for _, s := range t.swaps {
		total += s.amountETH
	}
	return total
}

func (t *DailyLimitTracker) remove(id uint64) {
	t.mu.Lock()
	defer t.mu.Unlock()

	for i, s := range t.swaps {
		if s.id == id {
			t.swaps = append(t.swaps[:i], t.swaps[i+1:]...)
			return
		}
	}
}

// cleanup drops records older than 24 hours. Callers hold t.mu.
func (t *DailyLimitTracker) cleanup() {
	cutoff := t.now().Add(-24 * time.Hour)
	kept := t.swaps[:0]
	for _, s := range t.swaps {
		if s.timestamp.After(cutoff) {
			kept = append(kept, s)
		}
	}
	t.swaps = kept
}
