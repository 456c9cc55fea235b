package reporting

import (
	"fmt"
	"strings"

	"github.com/bastian110/bitcoin-dca-tracker/internal/domain"
)

// RenderCSV renders a performance series as a CSV string.
func RenderCSV(points []*domain.PerformancePoint) string {
	var sb strings.Builder

	// Header
	sb.WriteString("purchase_index,date,amount_btc,price_at_buy,")
	sb.WriteString("running_btc,running_invested,running_fees,")
	sb.WriteString("mark_to_market_price,mark_to_market_value,mark_to_market_pnl,mark_to_market_pnl_percent,")
	sb.WriteString("to_date_price,to_date_value,to_date_pnl,to_date_pnl_percent\n")

	// Rows
	for _, p := range points {
		sb.WriteString(fmt.Sprintf("%d,%s,%.8f,%.6f,%.8f,%.6f,%.6f,%.6f,%.6f,%.6f,%.6f,%.6f,%.6f,%.6f,%.6f\n",
			p.PurchaseIndex,
			p.Date,
			p.AmountBTC,
			p.PriceAtBuy,
			p.RunningBTC,
			p.RunningInvested,
			p.RunningFees,
			p.MarkToMarketPrice,
			p.MarkToMarketValue,
			p.MarkToMarketPnL,
			p.MarkToMarketPnLPercent,
			p.ToDatePrice,
			p.ToDateValue,
			p.ToDatePnL,
			p.ToDatePnLPercent,
		))
	}

	return sb.String()
}
