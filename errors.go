package amr

import (
	"errors"

	"github.com/scigolib/amr/internal/utils"
)

// Sentinels matched with errors.Is against any *Error of the same kind.
var (
	ErrFormat              = utils.ErrFormat
	ErrIO                  = utils.ErrIO
	ErrUnsupportedEncoding = utils.ErrUnsupportedEncoding
	ErrConfiguration       = utils.ErrConfiguration
)

// ErrClosed is returned for reads after Close.
var ErrClosed = errors.New("amr: reader closed")

// Error is the structured failure carrying a kind and, when scoped to one
// block, its flat index and field name.
type Error = utils.AMRError
