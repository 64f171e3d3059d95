package constants

// Arbitrum Sepolia defaults
const (
	DefaultRPCURL = "https://sepolia-rollup.arbitrum.io/rpc"
	CamelotRouter = "0xc873fEcbd354f5A56E00E710B90EF4201db2448d"
	USDCAddress   = "0x75faf114eafb1BDbe2F0316DF893fd58CE46AA4d"
	WETHAddress   = "0xE591bf0A0CF924A0674d7792db046B23CEbF5f34"
)

// NativeToken stands in for ETH wherever a token address is expected.
const NativeToken = "0x0000000000000000000000000000000000000000"

const (
	NativeSymbol   = "ETH"
	NativeDecimals = 18
)

// Redis keys
const (
	RedisKeyRecentSwaps = "swaps:recent"
)

// Redis Pub/Sub channels
const (
	PubSubChannelSwaps = "swaps:live"
	PubSubPairPrefix   = "swaps:pair:"
)

// Limits
const (
	MaxRecentSwaps = 100
)

// Feature switches
const (
	FlagSwapExecute = "swaps.execute"
	FlagLLMRephrase = "chat.rephrase"
)
