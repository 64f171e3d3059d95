package flags

import (
	"errors"
	"time"

	"github.com/aman-zulfiqar/chattrade/internal/constants"
)

var (
	ErrNotFound   = errors.New("flag not found")
	ErrInvalidKey = errors.New("invalid flag key")
)

type Flag struct {
	Key       string    `json:"key"`
	Value     bool      `json:"value"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Defaults are the switches the services consult, with the value used
// while a switch has never been written.
var Defaults = map[string]bool{
	constants.FlagSwapExecute: true,
	constants.FlagLLMRephrase: true,
}
