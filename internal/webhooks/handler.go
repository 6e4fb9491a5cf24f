package webhooks

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"io"
	"log"
	"net/http"
	"strings"
	"time"

	"github.com/carrypal/carrypal-backend/internal/db"
	"github.com/carrypal/carrypal-backend/internal/wallet"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

var ErrCurrencyMismatch = errors.New("top-up currency does not match wallet")

// TopupEvent records each provider event once so redeliveries do not
// credit twice.
type TopupEvent struct {
	EventID   string    `gorm:"primaryKey" json:"event_id"`
	UserID    string    `gorm:"not null;index" json:"user_id"`
	Amount    int64     `gorm:"not null" json:"amount"`
	Currency  string    `gorm:"not null" json:"currency"`
	Payload   string    `gorm:"type:jsonb" json:"-"`
	CreatedAt time.Time `json:"created_at"`
}

func (TopupEvent) TableName() string {
	return "webhooks.topup_events"
}

type topupPayload struct {
	UserID   string `json:"user_id"`
	Amount   int64  `json:"amount"`
	Currency string `json:"currency"`
}

type Handler struct {
	Secret string
}

func (h Handler) Topup(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, 1<<20) // 1 MiB
	raw, err := io.ReadAll(r.Body)
	if err != nil {
		http.Error(w, "payload too large or unreadable", http.StatusRequestEntityTooLarge)
		return
	}
	defer r.Body.Close()

	sig := r.Header.Get("Topup-Signature")
	eventID := r.Header.Get("Topup-Event-Id")
	if eventID == "" {
		http.Error(w, "missing event id", http.StatusBadRequest)
		return
	}

	if h.Secret == "" {
		http.Error(w, "server misconfigured", http.StatusInternalServerError)
		return
	}
	if !verifySignature(sig, eventID, raw, h.Secret) {
		http.Error(w, "invalid signature", http.StatusUnauthorized)
		return
	}

	var p topupPayload
	if err := json.Unmarshal(raw, &p); err != nil {
		http.Error(w, "bad json", http.StatusBadRequest)
		return
	}
	p.UserID = strings.TrimSpace(p.UserID)
	p.Currency = strings.ToUpper(strings.TrimSpace(p.Currency))
	if p.UserID == "" || p.Amount <= 0 {
		http.Error(w, "user_id and a positive amount are required", http.StatusBadRequest)
		return
	}

	duplicate := false
	var credit wallet.Transaction
	err = db.DB.Transaction(func(tx *gorm.DB) error {
		res := tx.Clauses(clause.OnConflict{DoNothing: true}).Create(&TopupEvent{
			EventID:  eventID,
			UserID:   p.UserID,
			Amount:   p.Amount,
			Currency: p.Currency,
			Payload:  string(raw),
		})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			duplicate = true
			return nil
		}

		var wl wallet.Wallet
		if err := tx.First(&wl, "user_id = ?", p.UserID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return wallet.ErrWalletNotFound
			}
			return err
		}
		if p.Currency != "" && p.Currency != wl.Currency {
			return ErrCurrencyMismatch
		}

		var err error
		credit, err = wallet.Deposit(tx, p.UserID, p.Amount, "top-up "+eventID)
		return err
	})
	switch {
	case errors.Is(err, wallet.ErrWalletNotFound):
		http.Error(w, err.Error(), http.StatusNotFound)
		return
	case errors.Is(err, ErrCurrencyMismatch):
		http.Error(w, err.Error(), http.StatusConflict)
		return
	case err != nil:
		log.Printf("[webhooks] top-up %s failed: %v", eventID, err)
		http.Error(w, "db insert failed", http.StatusInternalServerError)
		return
	}

	wallet.RecordMovements(credit)
	if duplicate {
		log.Printf("[webhooks] top-up %s already processed", eventID)
	} else {
		log.Printf("[webhooks] top-up %s credited %d to %s", eventID, p.Amount, p.UserID)
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	json.NewEncoder(w).Encode(map[string]bool{"ok": true, "duplicate": duplicate})
}

// verifySignature checks sig against HMAC-SHA256(secret, body || eventID).
func verifySignature(sig, eventID string, raw []byte, secret string) bool {
	if !strings.HasPrefix(sig, "sha256=") {
		return false
	}
	return hmac.Equal([]byte(sig), []byte(Sign(secret, eventID, raw)))
}

// Sign returns the signature header value a provider sends for raw.
func Sign(secret, eventID string, raw []byte) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(raw)
	mac.Write([]byte(eventID))
	return "sha256=" + hex.EncodeToString(mac.Sum(nil))
}
