package parser

import (
	"regexp"
	"strings"

	"github.com/aman-zulfiqar/chattrade/internal/models"
)

const (
	amountExpr  = `(\d+(?:\.\d+)?)`
	addressExpr = `(0x[0-9a-fA-F]{40})`
	balanceExpr = `(?:check|show|what'?s|what\s+is|get|view)\s+(?:the\s+|my\s+)?(?:wallet\s+)?balance(?:\s+for|\s+of)?`
)

var (
	bareAddressRe    = regexp.MustCompile(`^` + addressExpr + `$`)
	balanceRe        = regexp.MustCompile(`(?i)^` + balanceExpr + `$`)
	balanceAddressRe = regexp.MustCompile(`(?i)^` + balanceExpr + `\s+` + addressExpr + `$`)
	sendRe           = regexp.MustCompile(`(?i)^send\s+` + amountExpr + `\s*eth\s+to\s+` + addressExpr + `$`)
	swapRe           = regexp.MustCompile(`(?i)^swap\s+` + amountExpr + `\s*(eth|usdc)\s+to\s+(eth|usdc)$`)
	helpRe           = regexp.MustCompile(`(?i)^(?:help|commands|what\s+can\s+you\s+do|how\s+do\s+i|how\s+to)$`)
)

type rule struct {
	name  string
	match func(text string) (Intent, bool)
}

// rules are evaluated in order; the first match wins.
var rules = []rule{
	{"bare_address", func(text string) (Intent, bool) {
		m := bareAddressRe.FindStringSubmatch(text)
		if m == nil {
			return nil, false
		}
		return Balance{Address: m[1]}, true
	}},
	{"own_balance", func(text string) (Intent, bool) {
		if !balanceRe.MatchString(text) {
			return nil, false
		}
		return Balance{}, true
	}},
	{"address_balance", func(text string) (Intent, bool) {
		m := balanceAddressRe.FindStringSubmatch(text)
		if m == nil || !models.IsAddress(m[1]) {
			return nil, false
		}
		return Balance{Address: m[1]}, true
	}},
	{"send", func(text string) (Intent, bool) {
		m := sendRe.FindStringSubmatch(text)
		if m == nil {
			return nil, false
		}
		return Send{Amount: m[1], Recipient: m[2]}, true
	}},
	{"swap", func(text string) (Intent, bool) {
		m := swapRe.FindStringSubmatch(text)
		if m == nil {
			return nil, false
		}
		return Swap{Amount: m[1], From: strings.ToUpper(m[2]), To: strings.ToUpper(m[3])}, true
	}},
	{"confirm_swap", func(text string) (Intent, bool) {
		if !strings.EqualFold(text, "confirm swap") {
			return nil, false
		}
		return ConfirmSwap{}, true
	}},
	{"help", func(text string) (Intent, bool) {
		if !helpRe.MatchString(text) {
			return nil, false
		}
		return Help{}, true
	}},
}

// Parse classifies free text into an Intent. It never performs I/O and
// never fails; unmatched input is Unknown.
func Parse(text string) Intent {
	trimmed := strings.TrimSpace(text)
	for _, r := range rules {
		if in, ok := r.match(trimmed); ok {
			return in
		}
	}
	return Unknown{Text: trimmed}
}
