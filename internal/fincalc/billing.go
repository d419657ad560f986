package fincalc

import "time"

// CycleWindow holds the boundaries of a card's closed (payable now) and
// open (still accumulating) billing cycles. Windows are inclusive of the
// start boundary and exclusive of the end boundary.
type CycleWindow struct {
	ClosedStart time.Time
	ClosedEnd   time.Time
	OpenStart   time.Time
	OpenEnd     time.Time
}

// CardLineItem is one card expense entry, possibly a single installment of
// a split purchase.
type CardLineItem struct {
	ID              string    `json:"id"`
	Amount          float64   `json:"amount"`
	Date            time.Time `json:"date"`
	Paid            bool      `json:"paid"`
	PurchaseGroupID string    `json:"purchase_group_id,omitempty"`
	InstallmentNum  int       `json:"installment_num,omitempty"`
	Installments    int       `json:"installments,omitempty"`
}

// CycleTotals is the aggregation of a card's line items against a cycle
// window. Utilization is the outstanding unpaid balance across ALL items
// (cycle-independent) as a percentage of the credit limit, clamped to
// [0,100].
type CycleTotals struct {
	ClosedTotal     float64 `json:"closed_total"`
	ClosedUnpaid    float64 `json:"closed_unpaid"`
	ClosedCount     int     `json:"closed_count"`
	ClosedPaidCount int     `json:"closed_paid_count"`
	OpenTotal       float64 `json:"open_total"`
	OpenCount       int     `json:"open_count"`
	Utilization     float64 `json:"utilization"`
}

// Invoice status labels, in display precedence order.
const (
	StatusNoDebts     = "no_debts"
	StatusClosesToday = "closes_today"
	StatusDueToday    = "due_today"
	StatusOverdue     = "overdue"
	StatusOpen        = "open"
)

// ComputeCycleWindow derives the closed and open cycle boundaries from a
// card's closing day and a reference date. When now's day-of-month is on
// or before the closing day, the most recent closing belongs to the prior
// month. A closing day past the end of a month clamps to that month's last
// day (closing day 31 closes February on the 28th or 29th).
func ComputeCycleWindow(closingDay int, now time.Time) CycleWindow {
	year, month := now.Year(), now.Month()
	if now.Day() <= closingDay {
		year, month = prevMonth(year, month)
	}
	closedEnd := clampedDate(year, month, closingDay)

	py, pm := prevMonth(year, month)
	prevClosing := clampedDate(py, pm, closingDay)

	ny, nm := nextMonth(year, month)

	return CycleWindow{
		ClosedStart: prevClosing.AddDate(0, 0, 1),
		ClosedEnd:   closedEnd,
		OpenStart:   closedEnd.AddDate(0, 0, 1),
		OpenEnd:     clampedDate(ny, nm, closingDay),
	}
}

// Summarize partitions items into the closed and open cycle buckets and
// computes the totals the invoice view displays. Items outside both
// windows do not enter per-cycle totals but still count toward utilization
// when unpaid.
func Summarize(items []CardLineItem, window CycleWindow, creditLimit float64) CycleTotals {
	var totals CycleTotals
	var unpaidAll float64

	for _, item := range items {
		if !item.Paid {
			unpaidAll += item.Amount
		}

		d := dateOnly(item.Date)
		switch {
		case inWindow(d, window.ClosedStart, window.ClosedEnd):
			totals.ClosedTotal += item.Amount
			totals.ClosedCount++
			if item.Paid {
				totals.ClosedPaidCount++
			} else {
				totals.ClosedUnpaid += item.Amount
			}
		case inWindow(d, window.OpenStart, window.OpenEnd):
			totals.OpenTotal += item.Amount
			totals.OpenCount++
		}
	}

	if creditLimit > 0 {
		totals.Utilization = unpaidAll / creditLimit * 100
		if totals.Utilization > 100 {
			totals.Utilization = 100
		}
		if totals.Utilization < 0 {
			totals.Utilization = 0
		}
	}

	return totals
}

// InvoiceStatus derives the advisory status label for the closed cycle.
// The precedence is fixed: the closing-day check wins over the due-day
// check when both fall on the same day.
func InvoiceStatus(closedUnpaid float64, closingDay, dueDay int, now time.Time) string {
	if closedUnpaid == 0 {
		return StatusNoDebts
	}
	switch {
	case now.Day() == closingDay:
		return StatusClosesToday
	case now.Day() == dueDay:
		return StatusDueToday
	case now.Day() > dueDay:
		return StatusOverdue
	default:
		return StatusOpen
	}
}

// Reconcile marks the selected unpaid items as paid and recomputes the
// aggregate payment amount for the closed cycle: the fresh sum of every
// paid item inside the closed window. The caller persists the returned
// items and upserts the single aggregate payment record per cycle.
func Reconcile(items []CardLineItem, selectedIDs map[string]bool, window CycleWindow) ([]CardLineItem, float64) {
	updated := make([]CardLineItem, len(items))
	copy(updated, items)

	for i := range updated {
		if selectedIDs[updated[i].ID] && !updated[i].Paid {
			updated[i].Paid = true
		}
	}

	var aggregate float64
	for _, item := range updated {
		if item.Paid && inWindow(dateOnly(item.Date), window.ClosedStart, window.ClosedEnd) {
			aggregate += item.Amount
		}
	}

	return updated, round2(aggregate)
}

// inWindow reports whether d falls in [start, end).
func inWindow(d, start, end time.Time) bool {
	return !d.Before(dateOnly(start)) && d.Before(dateOnly(end))
}

// clampedDate builds a date clamping the requested day to the month's
// last valid day.
func clampedDate(year int, month time.Month, day int) time.Time {
	last := lastDayOfMonth(year, month)
	if day > last {
		day = last
	}
	return time.Date(year, month, day, 0, 0, 0, 0, time.UTC)
}

func lastDayOfMonth(year int, month time.Month) int {
	return time.Date(year, month+1, 0, 0, 0, 0, 0, time.UTC).Day()
}

func prevMonth(year int, month time.Month) (int, time.Month) {
	t := time.Date(year, month, 1, 0, 0, 0, 0, time.UTC).AddDate(0, -1, 0)
	return t.Year(), t.Month()
}

func nextMonth(year int, month time.Month) (int, time.Month) {
	t := time.Date(year, month, 1, 0, 0, 0, 0, time.UTC).AddDate(0, 1, 0)
	return t.Year(), t.Month()
}
