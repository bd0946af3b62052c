package ledger

import (
	"fmt"
	"strings"
)

// StatsMarkdown renders s as a markdown summary. filter describes the view
// the figures were computed over and may be empty.
func StatsMarkdown(s Stats, today, filter string) string {
	var b strings.Builder
	fmt.Fprintf(&b, "# Ledger summary, %s\n\n", today)
	if filter != "" {
		fmt.Fprintf(&b, "_%s_\n\n", filter)
	}

	b.WriteString("| | Records |\n|---|---:|\n")
	fmt.Fprintf(&b, "| Total | %d |\n", s.Total)
	fmt.Fprintf(&b, "| Pending | %d |\n", s.Pending)
	fmt.Fprintf(&b, "| Cleared | %d |\n\n", s.Cleared)

	b.WriteString("| | Amount |\n|---|---:|\n")
	fmt.Fprintf(&b, "| Gross amount | %s |\n", FormatMoney(s.TotalAmount))
	fmt.Fprintf(&b, "| Commission | %s |\n", FormatMoney(s.Commission))
	fmt.Fprintf(&b, "| Net amount | %s |\n", FormatMoney(s.TotalNet))
	fmt.Fprintf(&b, "| Cheques received | %s |\n", FormatMoney(s.ChequeTotal))
	fmt.Fprintf(&b, "| Outstanding | %s |\n\n", FormatMoney(s.PendingNet))

	if s.Pending > 0 {
		fmt.Fprintf(&b, "Pending bills wait **%d days** on average.\n", s.AvgPendingDays)
	}
	return b.String()
}

// Describe summarizes the filters of q for display.
func (q Query) Describe() string {
	var parts []string
	if q.Search != "" {
		parts = append(parts, fmt.Sprintf("matching %q", q.Search))
	}
	if q.Status != "" {
		parts = append(parts, "status "+q.Status)
	}
	switch {
	case q.From != "" && q.To != "":
		parts = append(parts, fmt.Sprintf("from %s to %s", q.From, q.To))
	case q.From != "":
		parts = append(parts, "from "+q.From)
	case q.To != "":
		parts = append(parts, "up to "+q.To)
	}
	return strings.Join(parts, ", ")
}
