package service

import (
	"github.com/grana-finance/grana-go/internal/domain"
	"github.com/grana-finance/grana-go/internal/fincalc"
)

// Ingestion boundary: raw ledger transactions are converted into the typed
// shapes the fincalc engines consume, exactly once, here. The engines never
// see loosely-shaped transaction records or dispatch on category strings.

// LedgerEventsForAccount filters a transaction stream down to the
// investment deposit/withdrawal events of one account.
//
// A deposit is a transaction tagged aporte_investimento whose destination
// account is the one under evaluation; a withdrawal is tagged
// resgate_investimento with the account as origin. Transactions with a
// non-positive amount are skipped rather than rejected.
func LedgerEventsForAccount(txs []domain.Transaction, accountID string) []fincalc.LedgerEvent {
	events := make([]fincalc.LedgerEvent, 0, len(txs))
	for _, tx := range txs {
		if tx.Amount <= 0 {
			continue
		}
		switch tag(tx) {
		case domain.CategoryInvestmentDeposit:
			if tx.ToAccountID == accountID || tx.AccountID == accountID {
				events = append(events, fincalc.LedgerEvent{Kind: fincalc.Deposit, Amount: tx.Amount, Date: tx.Date})
			}
		case domain.CategoryInvestmentWithdrawal:
			if tx.FromAccountID == accountID || tx.AccountID == accountID {
				events = append(events, fincalc.LedgerEvent{Kind: fincalc.Withdrawal, Amount: tx.Amount, Date: tx.Date})
			}
		}
	}
	return events
}

// CardLineItemsFor converts a card's expense transactions into billing
// line items. Non-card or non-positive entries are skipped.
func CardLineItemsFor(txs []domain.Transaction, cardID string) []fincalc.CardLineItem {
	items := make([]fincalc.CardLineItem, 0, len(txs))
	for _, tx := range txs {
		if tx.CardID != cardID || tx.Amount <= 0 {
			continue
		}
		items = append(items, fincalc.CardLineItem{
			ID:              tx.ID,
			Amount:          tx.Amount,
			Date:            tx.Date,
			Paid:            tx.Paid,
			PurchaseGroupID: tx.PurchaseGroupID,
			InstallmentNum:  tx.InstallmentNum,
			Installments:    tx.Installments,
		})
	}
	return items
}

// tag resolves the category tag of a transaction, falling back to the
// category name for ledgers created before tags existed.
func tag(tx domain.Transaction) string {
	if tx.CategoryTag != "" {
		return tx.CategoryTag
	}
	return tx.Category
}
