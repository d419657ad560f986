// Package fincalc implements the pure financial calculations used by the
// application: investment growth (flat and historical benchmark rates) and
// credit card billing cycle aggregation. Functions here perform no I/O,
// take the reference date as an explicit parameter, and never return
// errors — every edge case degrades to a defined numeric output.
package fincalc

import (
	"math"
	"sort"
	"time"
)

// EventKind distinguishes deposits from withdrawals in an investment ledger.
type EventKind int

const (
	Deposit EventKind = iota
	Withdrawal
)

// LedgerEvent is a single deposit or withdrawal applied to an investment
// account. Amount is always positive; direction is carried by Kind.
type LedgerEvent struct {
	Kind   EventKind
	Amount float64
	Date   time.Time
}

// Result is the outcome of a growth computation. All fields are rounded to
// 2 decimal places and CurrentValue = Invested + Interest within rounding.
type Result struct {
	CurrentValue float64 `json:"current_value"`
	Invested     float64 `json:"invested"`
	Interest     float64 `json:"interest"`
}

// businessDaysPerYear is the Brazilian business-day convention used to
// convert annual rates to daily compounding rates. Changing this changes
// every computed value, so it is a numeric contract, not a tunable.
const businessDaysPerYear = 252

// DateKey is the map key format for historical daily rate tables.
const DateKey = "2006-01-02"

// ComputeFlat replays deposit/withdrawal events in chronological order,
// compounding a single flat annual rate over the business days between
// events and from the last event up to asOf.
//
// A rate ≤ 0 means no interest accrues: the result is the net invested
// amount with zero interest. Withdrawals beyond the available principal are
// capped silently rather than rejected.
func ComputeFlat(events []LedgerEvent, annualPercent float64, asOf time.Time) Result {
	if len(events) == 0 {
		return Result{}
	}

	sorted := sortedByDate(events)

	if annualPercent <= 0 {
		invested := netInvested(sorted)
		return Result{
			CurrentValue: round2(invested),
			Invested:     round2(invested),
			Interest:     0,
		}
	}

	dailyRate := math.Pow(1+annualPercent/100, 1.0/businessDaysPerYear) - 1

	var principal, invested float64
	prev := sorted[0].Date
	for _, ev := range sorted {
		days := BusinessDaysBetween(prev, ev.Date)
		principal *= math.Pow(1+dailyRate, float64(days))
		principal, invested = applyEvent(ev, principal, invested)
		prev = ev.Date
	}

	days := BusinessDaysBetween(prev, asOf)
	principal *= math.Pow(1+dailyRate, float64(days))

	return finishResult(principal, invested)
}

// ComputeHistorical replays events while compounding a day-by-day rate
// table. The table maps DateKey-formatted dates to annual benchmark
// percentages. Missing dates carry the last observed rate forward; days
// before the first observed rate accrue nothing. The account's percentage
// of the benchmark scales every daily rate.
//
// accountPercentOfBase ≤ 0 disables accrual entirely and returns the raw
// net invested amount.
func ComputeHistorical(events []LedgerEvent, table map[string]float64, accountPercentOfBase float64, asOf time.Time) Result {
	if len(events) == 0 {
		return Result{}
	}

	sorted := sortedByDate(events)

	if accountPercentOfBase <= 0 {
		invested := netInvested(sorted)
		return Result{
			CurrentValue: round2(invested),
			Invested:     round2(invested),
			Interest:     0,
		}
	}

	var principal, invested float64
	var lastRate float64
	rateSeen := false
	idx := 0

	start := dateOnly(sorted[0].Date)
	end := dateOnly(asOf)

	for d := start; !d.After(end); d = d.AddDate(0, 0, 1) {
		// Events apply on their calendar date, before that day's accrual,
		// so weekend-dated entries are never dropped.
		for idx < len(sorted) && !dateOnly(sorted[idx].Date).After(d) {
			principal, invested = applyEvent(sorted[idx], principal, invested)
			idx++
		}

		if !isBusinessDay(d) {
			continue
		}

		if r, ok := table[d.Format(DateKey)]; ok {
			lastRate = r
			rateSeen = true
		}
		if !rateSeen {
			continue
		}

		effectiveAnnual := (lastRate / 100) * (accountPercentOfBase / 100)
		dailyRate := math.Pow(1+effectiveAnnual, 1.0/businessDaysPerYear) - 1
		principal *= 1 + dailyRate
	}

	return finishResult(principal, invested)
}

// applyEvent mutates principal and net invested for one ledger event.
// Withdrawals first consume accrued interest (principal beyond invested)
// and only reduce the net invested figure by what remains, floored at 0.
func applyEvent(ev LedgerEvent, principal, invested float64) (float64, float64) {
	switch ev.Kind {
	case Deposit:
		principal += ev.Amount
		invested += ev.Amount
	case Withdrawal:
		reduction := math.Min(ev.Amount, principal)
		principal -= reduction
		invested -= math.Min(reduction, invested)
	}
	return principal, invested
}

// netInvested replays only the capital flow: deposits minus withdrawals,
// never dropping below zero.
func netInvested(sorted []LedgerEvent) float64 {
	var total float64
	for _, ev := range sorted {
		switch ev.Kind {
		case Deposit:
			total += ev.Amount
		case Withdrawal:
			total -= math.Min(ev.Amount, total)
		}
	}
	return total
}

func finishResult(principal, invested float64) Result {
	interest := principal - invested
	if interest < 0 {
		// Over-withdrawals can eat past accrued interest; the UI contract
		// never shows negative interest.
		interest = 0
	}
	return Result{
		CurrentValue: round2(principal),
		Invested:     round2(invested),
		Interest:     round2(interest),
	}
}

func sortedByDate(events []LedgerEvent) []LedgerEvent {
	sorted := make([]LedgerEvent, len(events))
	copy(sorted, events)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].Date.Before(sorted[j].Date)
	})
	return sorted
}

// round2 rounds half-up to 2 fraction digits. The epsilon compensates for
// binary float artifacts on exact .005 boundaries.
func round2(v float64) float64 {
	return math.Round((v+1e-9)*100) / 100
}
