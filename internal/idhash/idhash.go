package idhash

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"

	"github.com/bastian110/bitcoin-dca-tracker/internal/domain"
)

// PurchaseID computes a deterministic purchase identifier using SHA256.
// Formula: SHA256(date|amount_btc|price_usd|exchange|external_id)
// Returns hex-encoded hash (64 characters).
//
// Purchase records have no natural key; hashing the identifying fields lets
// append-only stores detect re-ingested duplicates.
func PurchaseID(p *domain.Purchase) string {
	data := fmt.Sprintf("%s|%.12f|%.12f|%s|%s",
		p.Date,
		p.AmountBTC,
		p.PriceUSD,
		p.Exchange,
		p.ExternalID,
	)

	hash := sha256.Sum256([]byte(data))
	return hex.EncodeToString(hash[:])
}
