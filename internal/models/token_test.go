package models

import (
	"strings"
	"testing"

	"github.com/aman-zulfiqar/chattrade/internal/errs"
	"github.com/stretchr/testify/assert"
)

func TestValidateAddress(t *testing.T) {
	good := "0x" + strings.Repeat("aB", 20)
	assert.NoError(t, ValidateAddress(good))

	for _, bad := range []string{"0x123", good[:41], good + "0", "0X" + good[2:], "0x" + strings.Repeat("g", 40)} {
		assert.ErrorIs(t, ValidateAddress(bad), errs.ErrInvalidAddress, "input %q", bad)
	}
}

func TestUnknownBalance(t *testing.T) {
	b := UnknownBalance()
	assert.True(t, b.IsUnknown())
	assert.Equal(t, TokenBalance{Symbol: "UNKNOWN", Balance: "0", Decimals: 18}, b)
	assert.False(t, TokenBalance{Symbol: "ETH", Balance: "0", Decimals: 18}.IsUnknown())
}

func TestNewMessage_OrderedIDs(t *testing.T) {
	a := NewMessage(OriginUser, "hi")
	b := NewMessage(OriginSystem, "hello")
	assert.NotEqual(t, a.ID, b.ID)
	assert.Less(t, a.ID, b.ID)
	assert.Equal(t, OriginUser, a.Origin)
}
