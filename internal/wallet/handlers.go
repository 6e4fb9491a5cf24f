package wallet

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/carrypal/carrypal-backend/internal/db"
	"github.com/carrypal/carrypal-backend/internal/utils"
	"gorm.io/gorm"
)

func httpStatus(err error) int {
	switch {
	case errors.Is(err, ErrInvalidAmount):
		return http.StatusBadRequest
	case errors.Is(err, ErrInsufficientFunds), errors.Is(err, ErrInsufficientHeld),
		errors.Is(err, ErrCurrencyMismatch):
		return http.StatusConflict
	case errors.Is(err, ErrWalletNotFound):
		return http.StatusNotFound
	default:
		return http.StatusInternalServerError
	}
}

// GetWallet returns the caller's wallet
func GetWallet(w http.ResponseWriter, r *http.Request) {
	userID, ok := utils.GetUserIDFromContext(r.Context())
	if !ok {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	var wallet Wallet
	if err := db.DB.First(&wallet, "user_id = ?", userID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			http.Error(w, "Wallet not found", http.StatusNotFound)
			return
		}
		http.Error(w, "Failed to fetch wallet: "+err.Error(), http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(wallet)
}

// ListTransactions returns the caller's ledger, newest first
func ListTransactions(w http.ResponseWriter, r *http.Request) {
	userID, ok := utils.GetUserIDFromContext(r.Context())
	if !ok {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	limit := 50
	if s := r.URL.Query().Get("limit"); s != "" {
		n, err := strconv.Atoi(s)
		if err != nil || n <= 0 || n > 500 {
			http.Error(w, "Invalid limit", http.StatusBadRequest)
			return
		}
		limit = n
	}

	query := db.DB.Where("user_id = ?", userID)
	if kind := r.URL.Query().Get("kind"); kind != "" {
		query = query.Where("kind = ?", kind)
	}

	var txs []Transaction
	if err := query.Order("created_at DESC").Limit(limit).Find(&txs).Error; err != nil {
		http.Error(w, "Failed to fetch transactions: "+err.Error(), http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(txs)
}

// DepositFunds credits a user's wallet (admin only)
func DepositFunds(w http.ResponseWriter, r *http.Request) {
	var req struct {
		UserID string `json:"user_id"`
		Amount int64  `json:"amount"`
		Memo   string `json:"memo"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}
	if req.UserID == "" {
		http.Error(w, "user_id is required", http.StatusBadRequest)
		return
	}

	var entry Transaction
	err := db.DB.Transaction(func(tx *gorm.DB) error {
		var err error
		entry, err = Deposit(tx, req.UserID, req.Amount, req.Memo)
		return err
	})
	if err != nil {
		http.Error(w, "Failed to deposit: "+err.Error(), httpStatus(err))
		return
	}
	RecordMovements(entry)

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	json.NewEncoder(w).Encode(entry)
}

// WithdrawFunds debits the caller's available balance
func WithdrawFunds(w http.ResponseWriter, r *http.Request) {
	userID, ok := utils.GetUserIDFromContext(r.Context())
	if !ok {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	var req struct {
		Amount int64 `json:"amount"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	var entry Transaction
	err := db.DB.Transaction(func(tx *gorm.DB) error {
		var err error
		entry, err = Withdraw(tx, userID, req.Amount)
		return err
	})
	if err != nil {
		http.Error(w, "Failed to withdraw: "+err.Error(), httpStatus(err))
		return
	}
	RecordMovements(entry)

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(entry)
}
