package domain

import "time"

// SignatureMaxAge is how long a verified wallet signature remains valid as an
// eligibility gate for key issuance.
const SignatureMaxAge = 365 * 24 * time.Hour

// SignatureRecord stores the most recent verified signature for a wallet.
// One record per wallet; a new verification overwrites the previous one.
type SignatureRecord struct {
	Wallet     string    `json:"wallet" db:"wallet"`
	VerifiedAt time.Time `json:"verifiedAt" db:"verified_at"`
}

// Eligible reports whether the record still satisfies the issuance gate at
// the given instant.
func (r *SignatureRecord) Eligible(now time.Time) bool {
	return now.Sub(r.VerifiedAt) <= SignatureMaxAge
}
