package sources

import (
	"context"

	"github.com/user/signalhub/internal/db"
)

// Source defines the interface for raw record collectors
type Source interface {
	// Name returns the source identifier (tiktok, x_mock, hn, rss, reddit)
	Name() string
	// Fetch collects raw records. keyword is the active rotation keyword and
	// may be empty; collectors that do not search by keyword ignore it.
	Fetch(ctx context.Context, keyword string) ([]db.RawRecord, error)
	// Available reports whether the collector can run with the current config
	Available() bool
}
