// Package web3 holds the wallet-facing collaborators: sign-message issuance,
// signature recovery and the ERC-20 balance gate.
package web3

import (
	"fmt"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/accounts"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/google/uuid"
)

// SignMessage builds the challenge a wallet signs to prove ownership.
func SignMessage(wallet string) string {
	return fmt.Sprintf("zhankai_auth_%s_%d_%s",
		strings.ToLower(wallet), time.Now().UnixMilli(), uuid.New().String())
}

// RecoverSigner recovers the address that produced an EIP-191 personal-sign
// signature over message. Pure computation, no I/O.
func RecoverSigner(message, signature string) (string, error) {
	sig, err := hexutil.Decode(signature)
	if err != nil {
		return "", fmt.Errorf("decoding signature: %w", err)
	}
	if len(sig) != 65 {
		return "", fmt.Errorf("signature must be 65 bytes, got %d", len(sig))
	}

	// Wallets return V as 27/28; crypto.SigToPub wants 0/1.
	if sig[64] >= 27 {
		sig = append([]byte(nil), sig...)
		sig[64] -= 27
	}

	pub, err := crypto.SigToPub(accounts.TextHash([]byte(message)), sig)
	if err != nil {
		return "", fmt.Errorf("recovering public key: %w", err)
	}
	return crypto.PubkeyToAddress(*pub).Hex(), nil
}

// VerifySignature reports whether signature over message was produced by
// wallet.
func VerifySignature(message, signature, wallet string) bool {
	recovered, err := RecoverSigner(message, signature)
	if err != nil {
		return false
	}
	return strings.EqualFold(recovered, wallet)
}
