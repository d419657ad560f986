package service_test

import (
	"context"
	"testing"

	"github.com/grana-finance/grana-go/internal/domain"
	"github.com/grana-finance/grana-go/internal/fincalc"
)

func testCard() domain.CreditCard {
	return domain.CreditCard{
		ID: "c1", UserID: "u1", Name: "Roxinho",
		ClosingDay: 10, DueDay: 17, CreditLimit: 1000,
	}
}

// Closed cycle at 2024-03-15 with closing day 10: [2024-02-11, 2024-03-10),
// open [2024-03-11, 2024-04-10).
func cardLedger() *mockLedgerStore {
	return &mockLedgerStore{txs: []domain.Transaction{
		{ID: "t1", Type: domain.TxDespesa, Amount: 100, Date: day("2024-02-20"), CardID: "c1"},
		{ID: "t2", Type: domain.TxDespesa, Amount: 50, Date: day("2024-03-12"), CardID: "c1"},
		{ID: "t3", Type: domain.TxDespesa, Amount: 30, Date: day("2024-02-25"), CardID: "c1", Paid: true},
	}}
}

func TestGetInvoice_TotalsAndWindow(t *testing.T) {
	cards := &mockCardStore{cards: []domain.CreditCard{testCard()}}
	svc := newTracker(cardLedger(), nil, cards, nil)

	inv, err := svc.GetInvoice(context.Background(), "u1", "c1", day("2024-03-15"))
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}

	if inv.Window.ClosedStart != "2024-02-11" || inv.Window.ClosedEnd != "2024-03-10" {
		t.Errorf("unexpected closed window: %s..%s", inv.Window.ClosedStart, inv.Window.ClosedEnd)
	}
	if inv.Window.OpenStart != "2024-03-11" || inv.Window.OpenEnd != "2024-04-10" {
		t.Errorf("unexpected open window: %s..%s", inv.Window.OpenStart, inv.Window.OpenEnd)
	}
	if inv.Totals.ClosedTotal != 130 || inv.Totals.ClosedUnpaid != 100 {
		t.Errorf("expected closed 130/unpaid 100, got %f/%f", inv.Totals.ClosedTotal, inv.Totals.ClosedUnpaid)
	}
	if inv.Totals.OpenTotal != 50 {
		t.Errorf("expected open total 50, got %f", inv.Totals.OpenTotal)
	}
	// 150 unpaid over a 1000 limit.
	if inv.Totals.Utilization != 15 {
		t.Errorf("expected utilization 15, got %f", inv.Totals.Utilization)
	}
	if inv.Status != fincalc.StatusOpen {
		t.Errorf("expected status open, got %s", inv.Status)
	}
}

func TestGetInvoice_NoDebts(t *testing.T) {
	cards := &mockCardStore{cards: []domain.CreditCard{testCard()}}
	ledger := &mockLedgerStore{txs: []domain.Transaction{
		{ID: "t1", Type: domain.TxDespesa, Amount: 100, Date: day("2024-02-20"), CardID: "c1", Paid: true},
	}}
	svc := newTracker(ledger, nil, cards, nil)

	inv, err := svc.GetInvoice(context.Background(), "u1", "c1", day("2024-03-15"))
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if inv.Status != fincalc.StatusNoDebts {
		t.Errorf("expected status no_debts, got %s", inv.Status)
	}
}

func TestPayInvoice_MarksAndAggregates(t *testing.T) {
	cards := &mockCardStore{cards: []domain.CreditCard{testCard()}}
	ledger := cardLedger()
	svc := newTracker(ledger, nil, cards, nil)

	resp, err := svc.PayInvoice(context.Background(), "u1", "c1", &domain.PayInvoiceRequest{
		ItemIDs:   []string{"t1"},
		AccountID: "a1",
	}, day("2024-03-15"))
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}

	if len(resp.PaidItemIDs) != 1 || resp.PaidItemIDs[0] != "t1" {
		t.Errorf("expected t1 paid, got %v", resp.PaidItemIDs)
	}
	if resp.CycleKey != "2024-03" {
		t.Errorf("expected cycle key 2024-03, got %s", resp.CycleKey)
	}
	// t1 (100) newly paid plus t3 (30) already paid, both in the closed window.
	if resp.AggregateAmount != 130 {
		t.Errorf("expected aggregate 130, got %f", resp.AggregateAmount)
	}

	if len(ledger.paidIDs) != 1 || ledger.paidIDs[0] != "t1" {
		t.Errorf("expected store to mark t1, got %v", ledger.paidIDs)
	}
	if ledger.paidAccID != "a1" {
		t.Errorf("expected payment account a1, got %s", ledger.paidAccID)
	}
	if cards.upserted == nil || cards.upserted.Amount != 130 || cards.upserted.CycleKey != "2024-03" {
		t.Errorf("expected aggregate payment upsert of 130 for 2024-03, got %+v", cards.upserted)
	}
}

func TestPayInvoice_AlreadyPaidSelectionRejected(t *testing.T) {
	cards := &mockCardStore{cards: []domain.CreditCard{testCard()}}
	svc := newTracker(cardLedger(), nil, cards, nil)

	_, err := svc.PayInvoice(context.Background(), "u1", "c1", &domain.PayInvoiceRequest{
		ItemIDs: []string{"t3"},
	}, day("2024-03-15"))
	if _, ok := err.(*domain.ErrValidation); !ok {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestPayInvoice_EmptySelectionRejected(t *testing.T) {
	svc := newTracker(nil, nil, nil, nil)

	_, err := svc.PayInvoice(context.Background(), "u1", "c1", &domain.PayInvoiceRequest{}, day("2024-03-15"))
	if _, ok := err.(*domain.ErrValidation); !ok {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestUpdateInstallmentPlan_Grow(t *testing.T) {
	cards := &mockCardStore{cards: []domain.CreditCard{testCard()}}
	ledger := &mockLedgerStore{txs: []domain.Transaction{
		{ID: "i1", Type: domain.TxDespesa, Amount: 60, Date: day("2024-01-15"), CardID: "c1",
			PurchaseGroupID: "g1", InstallmentNum: 1, Installments: 2, Paid: true},
		{ID: "i2", Type: domain.TxDespesa, Amount: 60, Date: day("2024-02-15"), CardID: "c1",
			PurchaseGroupID: "g1", InstallmentNum: 2, Installments: 2},
	}}
	svc := newTracker(ledger, nil, cards, nil)

	_, err := svc.UpdateInstallmentPlan(context.Background(), "u1", "c1", "g1", &domain.UpdateInstallmentsRequest{
		Installments: 4,
	})
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}

	// Both existing rows renumbered, two new rows inserted, nothing deleted.
	if len(ledger.updated) != 2 {
		t.Errorf("expected 2 updated rows, got %d", len(ledger.updated))
	}
	if len(ledger.inserted) != 2 {
		t.Fatalf("expected 2 inserted rows, got %d", len(ledger.inserted))
	}
	if len(ledger.deleted) != 0 {
		t.Errorf("expected no deletions, got %v", ledger.deleted)
	}
	for i, tx := range ledger.inserted {
		if tx.PurchaseGroupID != "g1" || tx.Paid {
			t.Errorf("inserted row %d: expected unpaid in group g1, got %+v", i, tx)
		}
		if tx.Installments != 4 || tx.InstallmentNum != 3+i {
			t.Errorf("inserted row %d: expected installment %d/4, got %d/%d", i, 3+i, tx.InstallmentNum, tx.Installments)
		}
	}
	if !ledger.inserted[0].Date.Equal(day("2024-03-15")) {
		t.Errorf("expected third installment on 2024-03-15, got %s", ledger.inserted[0].Date)
	}
}

func TestUpdateInstallmentPlan_ShrinkDeletesTail(t *testing.T) {
	cards := &mockCardStore{cards: []domain.CreditCard{testCard()}}
	ledger := &mockLedgerStore{txs: []domain.Transaction{
		{ID: "i1", Type: domain.TxDespesa, Amount: 40, Date: day("2024-01-15"), CardID: "c1",
			PurchaseGroupID: "g1", InstallmentNum: 1, Installments: 3},
		{ID: "i2", Type: domain.TxDespesa, Amount: 40, Date: day("2024-02-15"), CardID: "c1",
			PurchaseGroupID: "g1", InstallmentNum: 2, Installments: 3},
		{ID: "i3", Type: domain.TxDespesa, Amount: 40, Date: day("2024-03-15"), CardID: "c1",
			PurchaseGroupID: "g1", InstallmentNum: 3, Installments: 3},
	}}
	svc := newTracker(ledger, nil, cards, nil)

	_, err := svc.UpdateInstallmentPlan(context.Background(), "u1", "c1", "g1", &domain.UpdateInstallmentsRequest{
		Installments: 2,
	})
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if len(ledger.deleted) != 1 || ledger.deleted[0] != "i3" {
		t.Errorf("expected i3 deleted, got %v", ledger.deleted)
	}
	if len(ledger.inserted) != 0 {
		t.Errorf("expected no insertions, got %d", len(ledger.inserted))
	}
}

func TestUpdateInstallmentPlan_UnknownGroup(t *testing.T) {
	cards := &mockCardStore{cards: []domain.CreditCard{testCard()}}
	svc := newTracker(&mockLedgerStore{}, nil, cards, nil)

	_, err := svc.UpdateInstallmentPlan(context.Background(), "u1", "c1", "nope", &domain.UpdateInstallmentsRequest{
		Installments: 2,
	})
	if _, ok := err.(*domain.ErrNotFound); !ok {
		t.Fatalf("expected not found, got %v", err)
	}
}

func TestCreateCard_ValidatesDays(t *testing.T) {
	svc := newTracker(nil, nil, &mockCardStore{}, nil)

	_, err := svc.CreateCard(context.Background(), "u1", &domain.CreateCardRequest{
		Name: "X", ClosingDay: 0, DueDay: 17,
	})
	if _, ok := err.(*domain.ErrValidation); !ok {
		t.Fatalf("expected validation error, got %v", err)
	}

	_, err = svc.CreateCard(context.Background(), "u1", &domain.CreateCardRequest{
		Name: "X", ClosingDay: 10, DueDay: 32,
	})
	if _, ok := err.(*domain.ErrValidation); !ok {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestUpdateCard_ValidatesPatch(t *testing.T) {
	cards := &mockCardStore{cards: []domain.CreditCard{testCard()}}
	svc := newTracker(nil, nil, cards, nil)

	err := svc.UpdateCard(context.Background(), "u1", "c1", map[string]any{"closing_day": float64(0)})
	if _, ok := err.(*domain.ErrValidation); !ok {
		t.Fatalf("expected validation error for day 0, got %v", err)
	}

	err = svc.UpdateCard(context.Background(), "u1", "c1", map[string]any{"user_id": "other"})
	if _, ok := err.(*domain.ErrValidation); !ok {
		t.Fatalf("expected validation error for protected field, got %v", err)
	}

	if err := svc.UpdateCard(context.Background(), "u1", "c1", map[string]any{"credit_limit": float64(2000)}); err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
}
