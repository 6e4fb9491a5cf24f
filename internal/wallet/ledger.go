package wallet

import (
	"errors"
	"fmt"
	"sort"

	"github.com/carrypal/carrypal-backend/internal/metrics"
	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

var (
	ErrInvalidAmount     = errors.New("amount must be positive")
	ErrInsufficientFunds = errors.New("insufficient balance")
	ErrInsufficientHeld  = errors.New("insufficient held funds")
	ErrWalletNotFound    = errors.New("wallet not found")
	ErrUnknownKind       = errors.New("unknown ledger kind")
	ErrCurrencyMismatch  = errors.New("wallet currencies differ")
)

// apply moves amount according to kind. The wallet is left untouched on error.
func apply(w *Wallet, kind string, amount int64) error {
	if amount <= 0 {
		return ErrInvalidAmount
	}

	balance, held := w.Balance, w.Held
	switch kind {
	case KindDeposit, KindPayout, KindFee:
		balance += amount
	case KindWithdraw:
		if balance < amount {
			return ErrInsufficientFunds
		}
		balance -= amount
	case KindHold:
		if balance < amount {
			return ErrInsufficientFunds
		}
		balance -= amount
		held += amount
	case KindRefund:
		if held < amount {
			return ErrInsufficientHeld
		}
		held -= amount
		balance += amount
	case KindRelease:
		if held < amount {
			return ErrInsufficientHeld
		}
		held -= amount
	default:
		return fmt.Errorf("%w: %s", ErrUnknownKind, kind)
	}

	w.Balance, w.Held = balance, held
	return nil
}

// EnsureWallet creates an empty wallet for userID if none exists.
func EnsureWallet(tx *gorm.DB, userID string) error {
	w := Wallet{UserID: userID, Currency: DefaultCurrency}
	return tx.Clauses(clause.OnConflict{DoNothing: true}).Create(&w).Error
}

func lockWallet(tx *gorm.DB, userID string) (Wallet, error) {
	var w Wallet
	err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).First(&w, "user_id = ?", userID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return w, ErrWalletNotFound
	}
	return w, err
}

// move locks the wallet, applies the movement and appends one ledger row.
func move(tx *gorm.DB, userID string, claimID *uuid.UUID, kind string, amount int64, memo string) (Transaction, error) {
	w, err := lockWallet(tx, userID)
	if err != nil {
		return Transaction{}, err
	}

	if err := apply(&w, kind, amount); err != nil {
		return Transaction{}, err
	}

	if err := tx.Model(&w).Updates(map[string]interface{}{
		"balance": w.Balance,
		"held":    w.Held,
	}).Error; err != nil {
		return Transaction{}, fmt.Errorf("update wallet %s: %w", userID, err)
	}

	entry := Transaction{
		UserID:       userID,
		ClaimID:      claimID,
		Kind:         kind,
		Amount:       amount,
		BalanceAfter: w.Balance,
		HeldAfter:    w.Held,
		Memo:         memo,
	}
	if err := tx.Create(&entry).Error; err != nil {
		return Transaction{}, fmt.Errorf("append ledger for %s: %w", userID, err)
	}

	return entry, nil
}

// RecordMovements feeds committed ledger rows to the metrics. Call it only
// after the transaction that wrote them has committed.
func RecordMovements(entries ...Transaction) {
	for _, e := range entries {
		if e.Kind == "" {
			continue
		}
		metrics.RecordWalletMovement(e.Kind, e.Amount)
	}
}

// Deposit credits an existing wallet. It never opens one, so a mistyped
// user ID fails with ErrWalletNotFound.
func Deposit(tx *gorm.DB, userID string, amount int64, memo string) (Transaction, error) {
	return move(tx, userID, nil, KindDeposit, amount, memo)
}

func Withdraw(tx *gorm.DB, userID string, amount int64) (Transaction, error) {
	return move(tx, userID, nil, KindWithdraw, amount, "")
}

// Hold moves amount from the payer's balance into escrow for a claim.
func Hold(tx *gorm.DB, userID string, claimID uuid.UUID, amount int64) (Transaction, error) {
	return move(tx, userID, &claimID, KindHold, amount, "")
}

// Refund returns escrowed money for a claim to the payer's balance.
func Refund(tx *gorm.DB, userID string, claimID uuid.UUID, amount int64) (Transaction, error) {
	return move(tx, userID, &claimID, KindRefund, amount, "")
}

// sameCurrency rejects a movement between wallets of different currencies.
func sameCurrency(from, to Wallet) error {
	if from.Currency != to.Currency {
		return fmt.Errorf("%w: %s has %s, %s has %s", ErrCurrencyMismatch,
			from.UserID, from.Currency, to.UserID, to.Currency)
	}
	return nil
}

// Settle releases the payer's escrow and pays the payee, less fee, which is
// credited to the platform wallet. It returns the ledger rows written.
func Settle(tx *gorm.DB, payerID, payeeID string, claimID uuid.UUID, amount, fee int64) ([]Transaction, error) {
	if fee < 0 || fee > amount {
		return nil, fmt.Errorf("%w: fee %d for amount %d", ErrInvalidAmount, fee, amount)
	}

	if err := EnsureWallet(tx, payeeID); err != nil {
		return nil, err
	}
	if err := EnsureWallet(tx, PlatformUserID); err != nil {
		return nil, err
	}

	// Lock in user ID order so opposite settlements between two users
	// cannot deadlock.
	ids := []string{payerID, payeeID, PlatformUserID}
	sort.Strings(ids)
	locked := make(map[string]Wallet, len(ids))
	for _, id := range ids {
		if _, ok := locked[id]; ok {
			continue
		}
		w, err := lockWallet(tx, id)
		if err != nil {
			return nil, err
		}
		locked[id] = w
	}
	for _, id := range []string{payeeID, PlatformUserID} {
		if err := sameCurrency(locked[payerID], locked[id]); err != nil {
			return nil, err
		}
	}

	var entries []Transaction
	release, err := move(tx, payerID, &claimID, KindRelease, amount, "")
	if err != nil {
		return nil, err
	}
	entries = append(entries, release)

	if net := amount - fee; net > 0 {
		payout, err := move(tx, payeeID, &claimID, KindPayout, net, fmt.Sprintf("fee %d", fee))
		if err != nil {
			return nil, err
		}
		entries = append(entries, payout)
	}

	if fee > 0 {
		cut, err := move(tx, PlatformUserID, &claimID, KindFee, fee, "")
		if err != nil {
			return nil, err
		}
		entries = append(entries, cut)
	}
	return entries, nil
}

// Fee returns the platform fee for amount at feeBps basis points, rounded down.
func Fee(amount, feeBps int64) int64 {
	if amount <= 0 || feeBps <= 0 {
		return 0
	}
	return amount * feeBps / 10000
}
