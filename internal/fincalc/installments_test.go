package fincalc

import (
	"testing"
	"time"
)

func groupItems() []CardLineItem {
	// Purchase of 3x100 made on 2024-01-15: installments fall monthly.
	return []CardLineItem{
		{ID: "i1", Amount: 100, Date: date(2024, 1, 15), Paid: true, PurchaseGroupID: "g1", InstallmentNum: 1, Installments: 3},
		{ID: "i2", Amount: 100, Date: date(2024, 2, 15), PurchaseGroupID: "g1", InstallmentNum: 2, Installments: 3},
		{ID: "i3", Amount: 100, Date: date(2024, 3, 15), PurchaseGroupID: "g1", InstallmentNum: 3, Installments: 3},
	}
}

func TestRegenerateInstallments_Grow(t *testing.T) {
	plan := RegenerateInstallments(groupItems(), 5, 1, 60)

	if len(plan.Keep) != 3 || len(plan.Create) != 2 || len(plan.DeleteIDs) != 0 {
		t.Fatalf("expected keep=3 create=2 delete=0, got %+v", plan)
	}

	for i, item := range plan.Keep {
		if item.InstallmentNum != i+1 || item.Installments != 5 {
			t.Errorf("keep[%d]: wrong numbering: %+v", i, item)
		}
	}
	if !plan.Create[0].Date.Equal(date(2024, 4, 15)) || !plan.Create[1].Date.Equal(date(2024, 5, 15)) {
		t.Errorf("created installments have wrong dates: %+v", plan.Create)
	}
	if plan.Create[0].Amount != 60 || plan.Create[0].Paid {
		t.Errorf("created installments must be unpaid with the new amount: %+v", plan.Create[0])
	}
	if plan.Create[0].PurchaseGroupID != "g1" {
		t.Errorf("created installments must share the purchase group: %+v", plan.Create[0])
	}
}

func TestRegenerateInstallments_ShrinkKeepsPaidFlag(t *testing.T) {
	plan := RegenerateInstallments(groupItems(), 2, 1, 100)

	if len(plan.Keep) != 2 || len(plan.Create) != 0 {
		t.Fatalf("expected keep=2 create=0, got %+v", plan)
	}
	if len(plan.DeleteIDs) != 1 || plan.DeleteIDs[0] != "i3" {
		t.Errorf("expected i3 deleted, got %v", plan.DeleteIDs)
	}
	if !plan.Keep[0].Paid {
		t.Error("paid flag must survive regeneration")
	}
}

func TestRegenerateInstallments_ReconstructsBaseDate(t *testing.T) {
	// Only installments 3 and 4 of an original plan exist; the base
	// purchase date is the earliest item's date minus (num-1) months.
	existing := []CardLineItem{
		{ID: "i3", Amount: 100, Date: date(2024, 3, 10), PurchaseGroupID: "g2", InstallmentNum: 3, Installments: 4},
		{ID: "i4", Amount: 100, Date: date(2024, 4, 10), PurchaseGroupID: "g2", InstallmentNum: 4, Installments: 4},
	}

	plan := RegenerateInstallments(existing, 3, 1, 100)

	// Base reconstructed as 2024-01-10; new sequence starts there.
	if !plan.Keep[0].Date.Equal(date(2024, 1, 10)) {
		t.Errorf("expected first installment on base date 2024-01-10, got %v", plan.Keep[0].Date)
	}
	if len(plan.Keep) != 2 || len(plan.Create) != 1 {
		t.Fatalf("expected keep=2 create=1, got %+v", plan)
	}
	if !plan.Create[0].Date.Equal(date(2024, 3, 10)) {
		t.Errorf("expected created installment on 2024-03-10, got %v", plan.Create[0].Date)
	}
}

func TestRegenerateInstallments_StartNumberOffset(t *testing.T) {
	plan := RegenerateInstallments(groupItems(), 3, 2, 100)

	want := []time.Time{date(2024, 2, 15), date(2024, 3, 15), date(2024, 4, 15)}
	for i, item := range plan.Keep {
		if item.InstallmentNum != i+2 {
			t.Errorf("keep[%d]: expected number %d, got %d", i, i+2, item.InstallmentNum)
		}
		if !item.Date.Equal(want[i]) {
			t.Errorf("keep[%d]: expected date %v, got %v", i, want[i], item.Date)
		}
	}
}

func TestRegenerateInstallments_EmptyGroup(t *testing.T) {
	plan := RegenerateInstallments(nil, 4, 1, 100)
	if len(plan.Keep) != 0 || len(plan.Create) != 0 || len(plan.DeleteIDs) != 0 {
		t.Errorf("expected empty plan for empty group, got %+v", plan)
	}
}

func TestMonthlyDates_EndOfMonthNormalization(t *testing.T) {
	dates := MonthlyDates(date(2024, 1, 31), 1, 3)
	// time.AddDate normalizes Feb 31 to Mar 2 in a leap year; the sequence
	// stays monotonic even if the day-of-month drifts.
	for i := 1; i < len(dates); i++ {
		if !dates[i].After(dates[i-1]) {
			t.Errorf("dates not monotonic: %v", dates)
		}
	}
}
