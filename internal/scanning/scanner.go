package scanning

import (
	"errors"

	"github.com/zombor/receipt-ledger/internal/extraction"
)

// ErrNoText is returned when an engine ran but found nothing readable.
var ErrNoText = errors.New("no readable text in image")

// Source defines the interface for text recognition engines
type Source interface {
	extraction.TextSource
	// Close releases engine resources
	Close() error
}
