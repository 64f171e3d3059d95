package parser

// Intent is the typed result of parsing one chat command. The set of
// variants is closed; switch over the concrete types below.
type Intent interface {
	Name() string
	sealed()
}

// Balance asks for a balance. An empty Address means the session's own wallet.
type Balance struct {
	Address string
}

type Send struct {
	Recipient string
	Amount    string
}

// Swap symbols are upper-cased ("ETH", "USDC"). Amount is in human units.
type Swap struct {
	Amount string
	From   string
	To     string
}

type ConfirmSwap struct{}

type Help struct{}

type Unknown struct {
	Text string
}

func (Balance) Name() string     { return "balance" }
func (Send) Name() string        { return "send" }
func (Swap) Name() string        { return "swap" }
func (ConfirmSwap) Name() string { return "confirm_swap" }
func (Help) Name() string        { return "help" }
func (Unknown) Name() string     { return "unknown" }

func (Balance) sealed()     {}
func (Send) sealed()        {}
func (Swap) sealed()        {}
func (ConfirmSwap) sealed() {}
func (Help) sealed()        {}
func (Unknown) sealed()     {}
