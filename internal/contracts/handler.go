package contracts

import (
	"context"
	"errors"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"

	"evmlogindexer/internal/model"
)

var (
	// ErrUnsupportedAddress is returned when an address has no configured contract kind.
	ErrUnsupportedAddress = errors.New("unsupported address")
	// ErrUnsupportedContract is returned when a contract kind has no handler.
	ErrUnsupportedContract = errors.New("unsupported contract")
	// ErrMissingEvent is returned when a topic signature matches no event of the descriptor.
	ErrMissingEvent = errors.New("missing event")
	// ErrMissingEventHandler is returned when an event is known but not handled.
	ErrMissingEventHandler = errors.New("missing event handler")
)

// Handler interprets logs emitted by one contract kind.
type Handler interface {
	Kind() string
	// EventSignatureToName resolves a topic0 signature hash to the event name.
	EventSignatureToName(signature common.Hash) (string, error)
	HandleEvent(ctx context.Context, name string, log types.Log) error
	// Process resolves the event of a stored record and handles it.
	Process(ctx context.Context, record model.LogRecord) error
}
