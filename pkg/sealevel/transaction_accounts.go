package sealevel

import (
	"github.com/Overclock-Validator/rewardpool/pkg/accounts"
)

// TransactionAccounts holds the working copies of every account referenced by
// a transaction. Nothing here is visible outside the transaction until the
// touched accounts are committed back to the slot.
type TransactionAccounts struct {
	Accounts []*accounts.Account
	Touched  []bool
	borrowed []bool
}

func NewTransactionAccounts(accts []accounts.Account) *TransactionAccounts {
	txAccounts := new(TransactionAccounts)
	txAccounts.Accounts = make([]*accounts.Account, 0, len(accts))
	for idx := range accts {
		txAccounts.Accounts = append(txAccounts.Accounts, accts[idx].Clone())
	}
	txAccounts.Touched = make([]bool, len(accts))
	txAccounts.borrowed = make([]bool, len(accts))
	return txAccounts
}

func (txAccounts *TransactionAccounts) Len() uint64 {
	return uint64(len(txAccounts.Accounts))
}

func (txAccounts *TransactionAccounts) GetAccount(idx uint64) (*accounts.Account, error) {
	if idx >= txAccounts.Len() {
		return nil, InstrErrMissingAccount
	}
	return txAccounts.Accounts[idx], nil
}

func (txAccounts *TransactionAccounts) Touch(idx uint64) error {
	if idx >= txAccounts.Len() {
		return InstrErrMissingAccount
	}
	txAccounts.Touched[idx] = true
	return nil
}

func (txAccounts *TransactionAccounts) IsTouched(idx uint64) bool {
	return idx < txAccounts.Len() && txAccounts.Touched[idx]
}

// TouchedAccounts returns the accounts modified by the transaction, in
// transaction order.
func (txAccounts *TransactionAccounts) TouchedAccounts() []*accounts.Account {
	var touched []*accounts.Account
	for idx, acct := range txAccounts.Accounts {
		if txAccounts.Touched[idx] {
			touched = append(touched, acct)
		}
	}
	return touched
}

func (txAccounts *TransactionAccounts) borrow(idx uint64) (*accounts.Account, error) {
	if idx >= txAccounts.Len() {
		return nil, InstrErrMissingAccount
	}
	if txAccounts.borrowed[idx] {
		return nil, InstrErrAccountBorrowOutstanding
	}
	txAccounts.borrowed[idx] = true
	return txAccounts.Accounts[idx], nil
}

func (txAccounts *TransactionAccounts) unborrow(idx uint64) {
	if idx < txAccounts.Len() {
		txAccounts.borrowed[idx] = false
	}
}

func (txAccounts *TransactionAccounts) anyBorrowed() bool {
	for _, b := range txAccounts.borrowed {
		if b {
			return true
		}
	}
	return false
}
