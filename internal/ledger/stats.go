package ledger

import (
	"math"

	"github.com/shopspring/decimal"

	"github.com/josh-kwaku/rice-ledger/internal/calc"
	"github.com/josh-kwaku/rice-ledger/internal/domain"
)

// Stats are the aggregate figures shown above the table. A record counts as
// pending until a payment date is entered.
type Stats struct {
	Total          int             `json:"total"`
	Pending        int             `json:"pending"`
	Cleared        int             `json:"cleared"`
	TotalAmount    decimal.Decimal `json:"total_amount"`
	TotalNet       decimal.Decimal `json:"total_net"`
	PendingNet     decimal.Decimal `json:"pending_net"`
	AvgPendingDays int             `json:"avg_pending_days"`
	Commission     decimal.Decimal `json:"commission"`
	ChequeTotal    decimal.Decimal `json:"cheque_total"`
}

func ComputeStats(c *calc.Calculator, records []domain.Record) Stats {
	s := Stats{Total: len(records)}
	var pendingDays, dated int

	for _, r := range records {
		net := calc.ParseAmount(r.NetAmount)
		s.TotalAmount = s.TotalAmount.Add(calc.ParseAmount(r.Amount))
		s.TotalNet = s.TotalNet.Add(net)
		s.ChequeTotal = s.ChequeTotal.Add(calc.ParseAmount(r.ChequeAmount))
		s.Commission = s.Commission.
			Add(calc.ParseAmount(r.Commission)).
			Add(calc.ParseAmount(r.SellerCommission))

		if r.PaymentDate != "" {
			s.Cleared++
			continue
		}
		s.Pending++
		s.PendingNet = s.PendingNet.Add(net)
		if days, ok := c.PendingDays(r); ok {
			pendingDays += days
			dated++
		}
	}

	if dated > 0 {
		s.AvgPendingDays = int(math.Round(float64(pendingDays) / float64(dated)))
	}
	return s
}
