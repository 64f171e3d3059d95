package chat

import (
	"fmt"
	"strings"

	"github.com/aman-zulfiqar/chattrade/internal/models"
)

const (
	welcomeText = "Welcome to Arbitrum AI Trading, I'm an AI Agent that can check balance, send and swap tokens for you."

	helpText = `I can help you with the following:

• Check balance: "check balance" or "check balance for 0x..."
• Send tokens: "send 1 ETH to 0x..."
• Swap tokens: "swap 1 ETH to USDC" or "swap 1 USDC to ETH"

You can also directly paste a wallet address to check its balance!`

	unknownText = "I didn't understand that command. Try asking for 'help' to see what I can do!"

	sameTokenText     = "Cannot swap a token for itself."
	noPendingSwapText = "No pending swap to confirm. Please start a new swap."
)

func quoteText(q *models.SwapQuote, from, to string) string {
	var b strings.Builder
	b.WriteString("Swap Quote:\n")
	fmt.Fprintf(&b, "• Input: %s %s\n", q.InputAmount, from)
	fmt.Fprintf(&b, "• Output: %s %s\n", q.OutputAmount, to)
	fmt.Fprintf(&b, "• Price: 1 %s = %s %s\n", from, q.ExecutionPrice, to)
	fmt.Fprintf(&b, "• Price Impact: %s%%\n", q.PriceImpact)
	fmt.Fprintf(&b, "• Minimum Received: %s %s\n", q.MinimumReceived, to)
	if q.Fallback {
		b.WriteString("• Estimated: the router could not be reached, this is an approximate quote\n")
	}
	b.WriteString("\nWould you like to proceed with the swap? Type 'confirm swap' to execute.")
	return b.String()
}

func errorText(err error) string {
	return "Error: " + err.Error()
}

func suggestText(cmd string) string {
	return fmt.Sprintf("Did you mean %q? Type the command yourself to send funds.", cmd)
}
