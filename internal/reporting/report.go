// Package reporting renders computed portfolio snapshots as Markdown and
// CSV documents. Rendering is pure; the Generator owns file output.
package reporting

import (
	"time"

	"github.com/bastian110/bitcoin-dca-tracker/internal/domain"
)

// Report is one fully computed snapshot ready for rendering.
type Report struct {
	GeneratedAt time.Time
	SeriesID    string

	Metrics    *domain.PortfolioMetrics
	Points     []*domain.PerformancePoint
	Currencies []string
}
