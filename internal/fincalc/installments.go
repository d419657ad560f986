package fincalc

import (
	"sort"
	"time"
)

// InstallmentPlan is the outcome of regenerating a purchase group after an
// edit to its installment count or starting number. Keep holds existing
// items repositioned in the new sequence, Create holds brand-new items for
// any excess positions, and DeleteIDs lists items beyond the new count.
type InstallmentPlan struct {
	Keep      []CardLineItem
	Create    []CardLineItem
	DeleteIDs []string
}

// MonthlyDates returns the installment date sequence for a purchase made
// on base: installment n falls n-1 months after the base date, with
// day-of-month overflow handled by time.AddDate's normalization.
func MonthlyDates(base time.Time, startNum, count int) []time.Time {
	dates := make([]time.Time, 0, count)
	for i := 0; i < count; i++ {
		dates = append(dates, base.AddDate(0, startNum+i-1, 0))
	}
	return dates
}

// SplitEvenly divides a purchase total into n installment amounts rounded
// to cents, putting the rounding remainder on the first installment so the
// parts always sum back to the total.
func SplitEvenly(total float64, n int) []float64 {
	if n < 1 {
		n = 1
	}
	per := round2(total / float64(n))
	parts := make([]float64, n)
	for i := range parts {
		parts[i] = per
	}
	parts[0] = round2(total - per*float64(n-1))
	return parts
}

// RegenerateInstallments rebuilds a purchase group's line items for a new
// total count and starting installment number.
//
// The base purchase date is reconstructed from the earliest existing item:
// its date minus (installment number − 1) months. Existing items are
// reused position-by-position — keeping their identity, amount and paid
// flag — up to the smaller of the old and new counts. Positions beyond the
// existing items are created fresh (unpaid, with newAmount), and existing
// items beyond the new count are scheduled for deletion. A paid item that
// survives the edit is only repositioned and renumbered; its paid flag is
// never cleared.
func RegenerateInstallments(existing []CardLineItem, newTotal, startNum int, newAmount float64) InstallmentPlan {
	if newTotal < 1 {
		newTotal = 1
	}
	if startNum < 1 {
		startNum = 1
	}

	sorted := make([]CardLineItem, len(existing))
	copy(sorted, existing)
	sort.SliceStable(sorted, func(i, j int) bool {
		if sorted[i].InstallmentNum != sorted[j].InstallmentNum {
			return sorted[i].InstallmentNum < sorted[j].InstallmentNum
		}
		return sorted[i].Date.Before(sorted[j].Date)
	})

	var plan InstallmentPlan
	if len(sorted) == 0 {
		return plan
	}

	first := sorted[0]
	firstNum := first.InstallmentNum
	if firstNum < 1 {
		firstNum = 1
	}
	base := dateOnly(first.Date).AddDate(0, -(firstNum - 1), 0)
	dates := MonthlyDates(base, startNum, newTotal)

	groupID := first.PurchaseGroupID

	for i := 0; i < newTotal; i++ {
		num := startNum + i
		if i < len(sorted) {
			item := sorted[i]
			item.InstallmentNum = num
			item.Installments = newTotal
			item.Date = dates[i]
			plan.Keep = append(plan.Keep, item)
			continue
		}
		plan.Create = append(plan.Create, CardLineItem{
			Amount:          newAmount,
			Date:            dates[i],
			Paid:            false,
			PurchaseGroupID: groupID,
			InstallmentNum:  num,
			Installments:    newTotal,
		})
	}

	for i := newTotal; i < len(sorted); i++ {
		plan.DeleteIDs = append(plan.DeleteIDs, sorted[i].ID)
	}

	return plan
}
