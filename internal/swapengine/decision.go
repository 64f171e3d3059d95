package swapengine

import (
	"fmt"
	"strings"
	"time"

	"github.com/aman-zulfiqar/chattrade/internal/amount"
	"github.com/aman-zulfiqar/chattrade/internal/errs"
)

// ErrSameToken still matches errs.ErrUnsupportedPair.
var ErrSameToken = fmt.Errorf("%w: cannot swap a token for itself", errs.ErrUnsupportedPair)

type DecisionEngine struct {
	registry *TokenRegistry
}

func NewDecisionEngine(registry *TokenRegistry) *DecisionEngine {
	return &DecisionEngine{registry: registry}
}

func (de *DecisionEngine) ValidateIntent(intent *SwapIntent) error {
	if intent == nil {
		return fmt.Errorf("intent is nil")
	}
	if intent.InputToken == "" || intent.OutputToken == "" {
		return fmt.Errorf("input/output token required")
	}
	if strings.EqualFold(intent.InputToken, intent.OutputToken) {
		return ErrSameToken
	}
	_, inOK := de.registry.BySymbol(intent.InputToken)
	_, outOK := de.registry.BySymbol(intent.OutputToken)
	if !inOK || !outOK {
		return fmt.Errorf("%w: %s/%s. Only %s are supported",
			errs.ErrUnsupportedPair, intent.InputToken, intent.OutputToken, strings.Join(de.registry.Symbols(), " and "))
	}
	return nil
}

func (de *DecisionEngine) EnrichIntent(intent *SwapIntent) {
	if intent.RequestedAt.IsZero() {
		intent.RequestedAt = time.Now()
	}
	intent.InputToken = strings.ToUpper(intent.InputToken)
	intent.OutputToken = strings.ToUpper(intent.OutputToken)
}

// ParseIntent validates the intent and resolves it into executable parameters.
// Every check here runs before any network call.
func (de *DecisionEngine) ParseIntent(intent *SwapIntent) (*SwapParams, error) {
	if err := de.ValidateIntent(intent); err != nil {
		return nil, err
	}
	de.EnrichIntent(intent)

	from, _ := de.registry.BySymbol(intent.InputToken)
	to, _ := de.registry.BySymbol(intent.OutputToken)

	amountIn, err := amount.ParseUnits(intent.Amount, from.Decimals)
	if err != nil {
		return nil, err
	}
	if amountIn.Sign() == 0 {
		return nil, fmt.Errorf("%w: amount must be > 0", errs.ErrInvalidAmount)
	}

	return &SwapParams{
		From:     from,
		To:       to,
		Amount:   intent.Amount,
		AmountIn: amountIn,
		Intent:   intent,
		ParsedAt: time.Now(),
	}, nil
}
