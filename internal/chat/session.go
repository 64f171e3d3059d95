package chat

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/aman-zulfiqar/chattrade/internal/constants"
	"github.com/aman-zulfiqar/chattrade/internal/errs"
	"github.com/aman-zulfiqar/chattrade/internal/models"
	"github.com/aman-zulfiqar/chattrade/internal/parser"
	"github.com/aman-zulfiqar/chattrade/internal/swapengine"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

// Engine is the chain side of a session. *swapengine.Engine satisfies it.
type Engine interface {
	Balance(ctx context.Context, address, token string) (models.TokenBalance, error)
	Quote(ctx context.Context, intent *swapengine.SwapIntent) (*models.SwapQuote, error)
	Execute(ctx context.Context, quote *models.SwapQuote) (*swapengine.SwapExecution, error)
	Transfer(ctx context.Context, to, amountETH string) (string, error)
	WalletAddress() string
}

// Rephraser maps text the parser rejected onto a canonical command.
type Rephraser interface {
	Rephrase(ctx context.Context, text string) (string, error)
}

// Switches gates optional behaviour at runtime. *flags.Store satisfies it.
type Switches interface {
	Enabled(ctx context.Context, key string, def bool) bool
}

// PendingSwap is the single quote a session is waiting to have confirmed.
type PendingSwap struct {
	Amount    string            `json:"amount"`
	From      string            `json:"from"`
	To        string            `json:"to"`
	Quote     *models.SwapQuote `json:"quote"`
	CreatedAt time.Time         `json:"created_at"`
}

type SessionConfig struct {
	Engine    Engine
	Rephraser Rephraser // optional
	Switches  Switches  // optional, every switch reads as its default
	Logger    *logrus.Logger
}

// Session is one conversation. All operations hold the session lock for
// their whole duration, so commands of one session never interleave.
type Session struct {
	id        string
	createdAt time.Time

	engine    Engine
	rephraser Rephraser
	switches  Switches
	logger    *logrus.Logger

	mu         sync.Mutex
	messages   []models.ChatMessage
	pending    *PendingSwap
	balance    models.TokenBalance
	hasBalance bool
}

func NewSession(cfg SessionConfig) *Session {
	if cfg.Logger == nil {
		cfg.Logger = logrus.New()
	}
	s := &Session{
		id:        uuid.NewString(),
		createdAt: time.Now(),
		engine:    cfg.Engine,
		rephraser: cfg.Rephraser,
		switches:  cfg.Switches,
		logger:    cfg.Logger,
	}
	s.reply(welcomeText)
	return s
}

func (s *Session) ID() string           { return s.id }
func (s *Session) CreatedAt() time.Time { return s.createdAt }

// Parse classifies text without touching session state.
func (s *Session) Parse(text string) parser.Intent {
	return parser.Parse(text)
}

// HandleCommand records text as a user message, runs it and returns every
// message appended by this call, the user message first.
func (s *Session) HandleCommand(ctx context.Context, text string) []models.ChatMessage {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	start := len(s.messages)
	s.append(models.OriginUser, text)

	intent := parser.Parse(text)
	s.logger.WithFields(logrus.Fields{
		"session": s.id,
		"intent":  intent.Name(),
	}).Debug("handling command")

	s.dispatch(ctx, intent, true)
	return s.since(start)
}

// ConfirmPendingSwap executes the pending quote, if any. The slot is empty
// afterwards whatever the outcome.
func (s *Session) ConfirmPendingSwap(ctx context.Context) []models.ChatMessage {
	s.mu.Lock()
	defer s.mu.Unlock()

	start := len(s.messages)
	s.confirm(ctx)
	return s.since(start)
}

// LoadBalance refreshes the cached balance of address, or of the session
// wallet when address is empty, and reports it in the log.
func (s *Session) LoadBalance(ctx context.Context, address string) (models.TokenBalance, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	bal, err := s.readBalance(ctx, address)
	if err != nil {
		s.reply(errorText(err))
		return models.TokenBalance{}, err
	}
	s.reply(fmt.Sprintf("Your balance: %s %s", bal.Balance, bal.Symbol))
	return bal, nil
}

// Messages returns a copy of the log, oldest first.
func (s *Session) Messages() []models.ChatMessage {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.since(0)
}

// PendingSwap returns a copy of the pending slot, or nil.
func (s *Session) PendingSwap() *PendingSwap {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.pending == nil {
		return nil
	}
	p := *s.pending
	return &p
}

// Balance is the last balance read for the session wallet.
func (s *Session) Balance() (models.TokenBalance, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.balance, s.hasBalance
}

func (s *Session) dispatch(ctx context.Context, intent parser.Intent, allowRephrase bool) {
	switch in := intent.(type) {
	case parser.Balance:
		bal, err := s.readBalance(ctx, in.Address)
		if err != nil {
			s.reply(errorText(fmt.Errorf("checking balance: %w", err)))
			return
		}
		s.reply(fmt.Sprintf("Balance: %s %s", bal.Balance, bal.Symbol))

	case parser.Send:
		s.send(ctx, in)

	case parser.Swap:
		s.quote(ctx, in)

	case parser.ConfirmSwap:
		s.confirm(ctx)

	case parser.Help:
		s.reply(helpText)

	case parser.Unknown:
		if allowRephrase && s.rephrase(ctx, in.Text) {
			return
		}
		s.reply(unknownText)
	}
}

func (s *Session) readBalance(ctx context.Context, address string) (models.TokenBalance, error) {
	own := s.engine.WalletAddress()
	if address == "" {
		address = own
	}
	if address == "" {
		return models.TokenBalance{}, errs.ErrNoWallet
	}

	bal, err := s.engine.Balance(ctx, address, "")
	if err != nil {
		return models.TokenBalance{}, err
	}
	if strings.EqualFold(address, own) {
		s.balance, s.hasBalance = bal, true
	}
	return bal, nil
}

func (s *Session) send(ctx context.Context, in parser.Send) {
	hash, err := s.engine.Transfer(ctx, in.Recipient, in.Amount)
	if err != nil {
		s.reply(errorText(err))
		return
	}
	s.reply(fmt.Sprintf("Initiating transfer of %s ETH to %s...", in.Amount, in.Recipient))
	s.reply("Transfer submitted. Transaction: " + hash)

	s.logger.WithFields(logrus.Fields{
		"session": s.id,
		"to":      in.Recipient,
		"amount":  in.Amount,
		"tx_hash": hash,
	}).Info("transfer submitted")
}

func (s *Session) quote(ctx context.Context, in parser.Swap) {
	if strings.EqualFold(in.From, in.To) {
		s.reply("Error: " + sameTokenText)
		return
	}

	quote, err := s.engine.Quote(ctx, &swapengine.SwapIntent{
		InputToken:  in.From,
		OutputToken: in.To,
		Amount:      in.Amount,
		RequestedAt: time.Now(),
	})
	if err != nil {
		s.pending = nil
		s.reply(errorText(err))
		return
	}

	s.pending = &PendingSwap{
		Amount:    in.Amount,
		From:      in.From,
		To:        in.To,
		Quote:     quote,
		CreatedAt: time.Now(),
	}
	s.reply(quoteText(quote, in.From, in.To))
}

func (s *Session) confirm(ctx context.Context) {
	if s.pending == nil {
		s.reply("Error: " + noPendingSwapText)
		return
	}
	if s.switches != nil && !s.switches.Enabled(ctx, constants.FlagSwapExecute, true) {
		s.reply(errorText(errs.ErrSwapsDisabled))
		return
	}

	// a quote is never reused, whatever happens next
	p := s.pending
	s.pending = nil

	exec, err := s.engine.Execute(ctx, p.Quote)
	if err != nil {
		s.reply(errorText(err))
		return
	}
	s.reply("Swap executed successfully! Transaction: " + exec.TxHash)

	bal, err := s.readBalance(ctx, "")
	if err != nil {
		s.logger.WithField("session", s.id).WithError(err).Warn("balance refresh after swap failed")
		return
	}
	s.reply(fmt.Sprintf("Your balance: %s %s", bal.Balance, bal.Symbol))
}

// rephrase asks the LLM for a canonical command and runs it. Commands that
// move funds are only suggested: the user has to type them.
func (s *Session) rephrase(ctx context.Context, text string) bool {
	if s.rephraser == nil {
		return false
	}
	if s.switches != nil && !s.switches.Enabled(ctx, constants.FlagLLMRephrase, true) {
		return false
	}

	cmd, err := s.rephraser.Rephrase(ctx, text)
	if err != nil {
		s.logger.WithField("session", s.id).WithError(err).Debug("rephrase unavailable")
		return false
	}

	intent := parser.Parse(cmd)
	switch intent.(type) {
	case parser.Unknown, parser.ConfirmSwap:
		return false
	case parser.Send:
		s.reply(suggestText(cmd))
		return true
	}

	s.reply(fmt.Sprintf("Interpreting that as %q.", cmd))
	s.dispatch(ctx, intent, false)
	return true
}

func (s *Session) reply(content string) {
	s.append(models.OriginSystem, content)
}

func (s *Session) append(origin models.Origin, content string) {
	s.messages = append(s.messages, models.NewMessage(origin, content))
}

func (s *Session) since(start int) []models.ChatMessage {
	out := make([]models.ChatMessage, len(s.messages)-start)
	copy(out, s.messages[start:])
	return out
}
