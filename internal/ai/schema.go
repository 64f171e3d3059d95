package ai

// commandGrammar lists the only command shapes the chat parser accepts.
// Rephrased output must be exactly one of these.
const commandGrammar = `
Commands (lowercase keywords, amounts as plain decimals like 1 or 0.25):
  check balance
  check balance for <0x address, 40 hex digits>
  send <amount> eth to <0x address>
  swap <amount> eth to usdc
  swap <amount> usdc to eth
  help

Rules:
  - Reply with exactly one command from the list, or the single word unknown.
  - Never invent an address or an amount that the user did not give.
  - Only ETH and USDC exist; anything else is unknown.
  - Never reply with confirm swap; confirmation must be typed by the user.
`
