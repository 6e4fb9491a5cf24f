package wallet

import (
	"time"

	"github.com/google/uuid"
)

// PlatformUserID owns the wallet that collects platform fees.
const PlatformUserID = "platform"

const DefaultCurrency = "USD"

// Ledger kinds
const (
	KindDeposit  = "deposit"
	KindWithdraw = "withdraw"
	KindHold     = "hold"
	KindRefund   = "refund"
	KindRelease  = "release"
	KindPayout   = "payout"
	KindFee      = "fee"
)

// Wallet balances are in cents. Held is money in escrow for paid claims.
type Wallet struct {
	UserID    string    `gorm:"primaryKey" json:"user_id"`
	Balance   int64     `gorm:"not null;default:0;check:balance >= 0" json:"balance"`
	Held      int64     `gorm:"not null;default:0;check:held >= 0" json:"held"`
	Currency  string    `gorm:"not null;default:'USD'" json:"currency"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (Wallet) TableName() string {
	return "wallet.wallets"
}

// Transaction is one ledger row. BalanceAfter/HeldAfter snapshot the wallet
// after the movement was applied.
type Transaction struct {
	ID           uuid.UUID  `gorm:"type:uuid;primaryKey;default:uuid_generate_v4()" json:"id"`
	UserID       string     `gorm:"not null;index" json:"user_id"`
	ClaimID      *uuid.UUID `gorm:"type:uuid;index" json:"claim_id,omitempty"`
	Kind         string     `gorm:"not null" json:"kind"`
	Amount       int64      `gorm:"not null" json:"amount"`
	BalanceAfter int64      `gorm:"not null" json:"balance_after"`
	HeldAfter    int64      `gorm:"not null" json:"held_after"`
	Memo         string     `json:"memo,omitempty"`
	CreatedAt    time.Time  `json:"created_at"`
}

func (Transaction) TableName() string {
	return "wallet.transactions"
}
