// Package calc recomputes the derived fields of a ledger record from its
// editable fields.
//
// The calculator is total: blank or malformed numbers count as zero and
// unparsable dates yield empty labels. Applying it to its own output returns
// the same record, as long as the clock reads the same calendar day.
package calc

import (
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/josh-kwaku/rice-ledger/internal/domain"
)

const (
	LabelCleared        = domain.StatusCleared
	LabelPaymentNotRecd = "PAYMENT NOT RECD"

	// Pending records older than this many days are overdue.
	overdueAfterDays = 30
)

var hundred = decimal.NewFromInt(100)

type Calculator struct {
	now func() time.Time
}

// New returns a calculator reading the current day from now. A nil now
// uses time.Now.
func New(now func() time.Time) *Calculator {
	if now == nil {
		now = time.Now
	}
	return &Calculator{now: now}
}

// Today returns the current local calendar day as YYYY-MM-DD.
func (c *Calculator) Today() string {
	return c.now().Local().Format(dateLayout)
}

// Apply returns r with every derived field overwritten.
func (c *Calculator) Apply(r domain.Record) domain.Record {
	qty := parseNumber(r.Qty)
	rate := parseNumber(r.Rate)
	r.Amount = ""
	if !qty.IsZero() && !rate.IsZero() {
		r.Amount = money(qty.Mul(rate))
	}

	amount := parseNumber(r.Amount)
	r.Commission = ""
	if r.CommissionPct != "" && !amount.IsZero() {
		pct := parseNumber(r.CommissionPct)
		r.Commission = money(amount.Mul(pct).Div(hundred))
	}

	r.NetAmount = ""
	if !amount.IsZero() {
		net := amount.
			Sub(parseNumber(r.Freight)).
			Sub(parseNumber(r.Commission)).
			Sub(parseNumber(r.SellerCommission))
		r.NetAmount = money(net)
	}

	net := parseNumber(r.NetAmount)
	cheque := parseNumber(r.ChequeAmount)
	r.Difference = ""
	if !cheque.IsZero() || !net.IsZero() {
		r.Difference = money(cheque.Sub(net))
	}

	c.applyStatus(&r)
	return r
}

func (c *Calculator) applyStatus(r *domain.Record) {
	if r.PaymentDate != "" && r.Date != "" {
		if days, ok := DaysBetween(r.Date, r.PaymentDate); ok {
			r.DaysPending = LabelCleared
			r.DaysReceived = plural(days, "day", "days")
			r.Status = LabelCleared
			return
		}
	}

	r.DaysPending = ""
	if elapsed, ok := c.elapsed(r.Date); ok {
		r.DaysPending = plural(elapsed, "DAY PENDING", "DAYS PENDING")
	}
	r.DaysReceived = LabelPaymentNotRecd
	r.Status = r.DaysPending
	if r.Status == "" {
		r.Status = LabelPaymentNotRecd
	}
}

// PendingDays returns the days elapsed since the transaction date, or false
// when the date is missing or invalid.
func (c *Calculator) PendingDays(r domain.Record) (int, bool) {
	return c.elapsed(r.Date)
}

func (c *Calculator) elapsed(date string) (int, bool) {
	if date == "" {
		return 0, false
	}
	return DaysBetween(date, c.Today())
}

// NewRecord returns a blank draft with a placeholder id. An empty date
// defaults to today.
func (c *Calculator) NewRecord(date string) domain.Record {
	if date == "" {
		date = c.Today()
	}
	return c.Apply(domain.Record{
		ID:    "new-" + uuid.NewString(),
		Draft: true,
		Date:  date,
	})
}

type Tone string

const (
	ToneNone    Tone = ""
	ToneCleared Tone = "cleared"
	ToneRecent  Tone = "recent"
	ToneOverdue Tone = "overdue"
)

// Tone classifies a row for display: paid, pending within a month, or
// pending longer.
func (c *Calculator) Tone(r domain.Record) Tone {
	if r.PaymentDate != "" {
		return ToneCleared
	}
	days, ok := c.PendingDays(r)
	switch {
	case !ok:
		return ToneNone
	case days <= overdueAfterDays:
		return ToneRecent
	default:
		return ToneOverdue
	}
}

func plural(n int, one, many string) string {
	if n == 1 {
		return "1 " + one
	}
	return strconv.Itoa(n) + " " + many
}
