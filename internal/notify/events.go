package notify

import (
	"fmt"
	"strings"

	"github.com/skinwatch/skinarb/internal/domain"
)

// Event types emitted by the scanner. Operators subscribe to a subset via
// configuration.
const (
	EventArbDetected   = "arb.detected"
	EventScanFailed    = "scan.failed"
	EventArchiveFailed = "archive.failed"
)

// FormatOpportunities renders a scan's findings as a plain-text alert body,
// one line per opportunity, best spread first.
func FormatOpportunities(gameCode string, opps []domain.ArbitrageOpportunity) (title, message string) {
	title = fmt.Sprintf("%d arbitrage opportunities (%s)", len(opps), gameCode)

	var b strings.Builder
	for _, opp := range opps {
		fmt.Fprintf(&b, "%s: buy %s @ $%.2f, sell %s @ $%.2f (+%.1f%%, %s)\n",
			opp.ItemName,
			opp.BuyFrom, opp.BuyPrice,
			opp.SellTo, opp.SellPrice,
			opp.PriceDiffPercent, opp.ProfitPotential,
		)
	}
	return title, strings.TrimRight(b.String(), "\n")
}
