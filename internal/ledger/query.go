// Package ledger holds the read-side rules of the record table: filtering,
// sorting, aggregate stats and the CSV/XLSX formats.
package ledger

import (
	"slices"
	"strings"

	"github.com/josh-kwaku/rice-ledger/internal/calc"
	"github.com/josh-kwaku/rice-ledger/internal/domain"
)

// StatusPending matches every record that is not cleared.
const StatusPending = "PENDING"

// Query is the current view of the table. The zero value shows every record
// sorted by date ascending.
type Query struct {
	Search string       `json:"search"`
	Status string       `json:"status"`
	From   string       `json:"from"`
	To     string       `json:"to"`
	SortBy domain.Field `json:"-"`
	Desc   bool         `json:"desc"`
}

// ToggleSort flips the direction when f is already the sort column and
// otherwise sorts ascending by f.
func (q Query) ToggleSort(f domain.Field) Query {
	if q.SortBy == f {
		q.Desc = !q.Desc
		return q
	}
	q.SortBy = f
	q.Desc = false
	return q
}

// Apply returns the records matching q in display order. The input slice is
// not modified.
func (q Query) Apply(records []domain.Record) []domain.Record {
	needle := strings.ToLower(strings.TrimSpace(q.Search))
	from := calc.NormalizeDate(q.From)
	to := calc.NormalizeDate(q.To)

	out := make([]domain.Record, 0, len(records))
	for _, r := range records {
		if needle != "" && !strings.Contains(haystack(r), needle) {
			continue
		}
		if !q.matchesStatus(r) {
			continue
		}
		date := calc.NormalizeDate(r.Date)
		if from != "" && date < from {
			continue
		}
		if to != "" && date > to {
			continue
		}
		out = append(out, r)
	}

	sortBy := q.SortBy
	if !sortBy.IsValid() {
		sortBy = domain.FieldDate
	}
	slices.SortStableFunc(out, func(a, b domain.Record) int {
		c := compareField(sortBy, a, b)
		if q.Desc {
			return -c
		}
		return c
	})
	return out
}

func (q Query) matchesStatus(r domain.Record) bool {
	switch q.Status {
	case "":
		return true
	case StatusPending:
		return !r.Cleared()
	default:
		return r.Status == q.Status
	}
}

func haystack(r domain.Record) string {
	return strings.ToLower(strings.Join([]string{
		r.Miller, r.Brand, r.Shop, r.Area, r.Place, r.SellerCommission,
	}, " "))
}

func compareField(f domain.Field, a, b domain.Record) int {
	va, vb := a.Get(f), b.Get(f)
	switch f.Kind() {
	case domain.FieldKindNumber:
		return calc.ParseAmount(va).Cmp(calc.ParseAmount(vb))
	case domain.FieldKindDate:
		return strings.Compare(calc.NormalizeDate(va), calc.NormalizeDate(vb))
	default:
		return strings.Compare(strings.ToLower(va), strings.ToLower(vb))
	}
}
