package reporting

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/bastian110/bitcoin-dca-tracker/internal/domain"
)

// RenderMarkdown renders a report as a Markdown string.
func RenderMarkdown(r *Report) string {
	var sb strings.Builder

	// Header
	sb.WriteString("# Portfolio Report\n\n")
	sb.WriteString(fmt.Sprintf("Generated: %s\n\n", r.GeneratedAt.Format(time.RFC3339)))
	if r.SeriesID != "" {
		sb.WriteString(fmt.Sprintf("Series: %s\n\n", r.SeriesID))
	}

	m := r.Metrics
	if m == nil {
		sb.WriteString("No metrics available.\n")
		return sb.String()
	}

	sb.WriteString(fmt.Sprintf("Target fiat: %s | Cost basis: %s\n\n", m.TargetFiat, m.Basis))

	// Summary
	sb.WriteString("## Summary\n\n")
	sb.WriteString("| Metric | Value |\n")
	sb.WriteString("|--------|-------|\n")
	sb.WriteString(fmt.Sprintf("| Purchases | %d |\n", m.PurchaseCount))
	sb.WriteString(fmt.Sprintf("| Total BTC | %.8f |\n", m.TotalBTC))
	sb.WriteString(fmt.Sprintf("| Total Invested | %.2f |\n", m.TotalInvested))
	sb.WriteString(fmt.Sprintf("| Total Cost (excl. fees) | %.2f |\n", m.TotalCostExclFees))
	sb.WriteString(fmt.Sprintf("| Total Fees | %.2f |\n", m.TotalFees))
	sb.WriteString(fmt.Sprintf("| Avg Cost (execution) | %.2f |\n", m.AvgCostExecution))
	sb.WriteString(fmt.Sprintf("| Avg Cost (effective) | %.2f |\n", m.AvgCostEffective))
	sb.WriteString(fmt.Sprintf("| Current Price | %.2f |\n", m.CurrentPrice))
	sb.WriteString(fmt.Sprintf("| Current Value | %.2f |\n", m.CurrentValue))
	sb.WriteString(fmt.Sprintf("| Unrealized PnL | %.2f |\n", m.UnrealizedPnL))
	sb.WriteString(fmt.Sprintf("| Unrealized PnL %% | %.2f |\n", m.UnrealizedPnLPercent))
	if m.FirstPurchaseDate != "" {
		sb.WriteString(fmt.Sprintf("| First Purchase | %s |\n", m.FirstPurchaseDate))
		sb.WriteString(fmt.Sprintf("| Last Purchase | %s |\n", m.LastPurchaseDate))
	}
	sb.WriteString("\n")

	// Currencies
	sb.WriteString("## Currencies\n\n")
	if len(r.Currencies) > 0 {
		sb.WriteString(fmt.Sprintf("Detected: %s\n\n", strings.Join(r.Currencies, ", ")))
	}
	if m.PrimaryFiatCurrency != "" {
		sb.WriteString(fmt.Sprintf("Primary: %s\n\n", m.PrimaryFiatCurrency))
	}
	if len(m.ByCurrency) > 0 {
		sb.WriteString("| Currency | Purchases | Total Fiat |\n")
		sb.WriteString("|----------|-----------|------------|\n")
		for _, code := range sortedKeys(m.ByCurrency) {
			c := m.ByCurrency[code]
			sb.WriteString(fmt.Sprintf("| %s | %d | %.2f |\n", code, c.Count, c.TotalFiat))
		}
		sb.WriteString("\n")
	}

	// Exchanges
	sb.WriteString("## Exchanges\n\n")
	if len(m.ByExchange) > 0 {
		sb.WriteString("| Exchange | Purchases | BTC | Fiat | Avg Price |\n")
		sb.WriteString("|----------|-----------|-----|------|-----------|\n")
		for _, name := range sortedKeys(m.ByExchange) {
			e := m.ByExchange[name]
			sb.WriteString(fmt.Sprintf("| %s | %d | %.8f | %.2f | %.2f |\n",
				name, e.Count, e.TotalBTC, e.TotalFiat, e.AvgPrice))
		}
	} else {
		sb.WriteString("No exchange data available.\n")
	}
	sb.WriteString("\n")

	// Extremes
	if m.LargestByBTC != nil || m.LargestByFiat != nil {
		sb.WriteString("## Notable Purchases\n\n")
		sb.WriteString("| | Date | BTC | Fiat Cost |\n")
		sb.WriteString("|-|------|-----|----------|\n")
		writeExtreme(&sb, "Largest by BTC", m.LargestByBTC)
		writeExtreme(&sb, "Smallest by BTC", m.SmallestByBTC)
		writeExtreme(&sb, "Largest by cost", m.LargestByFiat)
		writeExtreme(&sb, "Smallest by cost", m.SmallestByFiat)
		sb.WriteString("\n")
	}

	// Performance series
	sb.WriteString("## Performance\n\n")
	if len(r.Points) > 0 {
		sb.WriteString("| # | Date | BTC | Price | Running BTC | Invested | Value | PnL | PnL% |\n")
		sb.WriteString("|---|------|-----|-------|-------------|----------|-------|-----|------|\n")
		for _, p := range r.Points {
			sb.WriteString(fmt.Sprintf("| %d | %s | %.8f | %.2f | %.8f | %.2f | %.2f | %.2f | %.2f |\n",
				p.PurchaseIndex, p.Date, p.AmountBTC, p.PriceAtBuy,
				p.RunningBTC, p.RunningInvested, p.ToDateValue, p.ToDatePnL, p.ToDatePnLPercent))
		}
	} else {
		sb.WriteString("No performance data available.\n")
	}
	sb.WriteString("\n")

	// Warnings
	if len(m.Warnings) > 0 {
		sb.WriteString("## Warnings\n\n")
		for _, w := range m.Warnings {
			sb.WriteString(fmt.Sprintf("- %s\n", w))
		}
		sb.WriteString("\n")
	}

	return sb.String()
}

func writeExtreme(sb *strings.Builder, label string, e *domain.PurchaseExtreme) {
	if e == nil {
		return
	}
	sb.WriteString(fmt.Sprintf("| %s | %s | %.8f | %.2f |\n", label, e.Date, e.AmountBTC, e.FiatCost))
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
