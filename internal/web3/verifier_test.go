package web3

import (
	"strings"
	"testing"

	"github.com/ethereum/go-ethereum/accounts"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/crypto"
)

// personalSign produces the signature a browser wallet would: an EIP-191
// personal-sign with V offset to 27/28.
func personalSign(t *testing.T, message string) (wallet, signature string) {
	t.Helper()

	key, err := crypto.GenerateKey()
	if err != nil {
		t.Fatalf("generating key: %v", err)
	}
	sig, err := crypto.Sign(accounts.TextHash([]byte(message)), key)
	if err != nil {
		t.Fatalf("signing: %v", err)
	}
	sig[64] += 27
	return crypto.PubkeyToAddress(key.PublicKey).Hex(), hexutil.Encode(sig)
}

func TestRecoverSignerRoundTrip(t *testing.T) {
	message := SignMessage("0xD8a394e7d7894bDF2C57139fF17e5CBAa29Dd977")
	wallet, signature := personalSign(t, message)

	recovered, err := RecoverSigner(message, signature)
	if err != nil {
		t.Fatalf("recover: %v", err)
	}
	if !strings.EqualFold(recovered, wallet) {
		t.Errorf("recovered %s, want %s", recovered, wallet)
	}
}

func TestVerifySignatureCaseInsensitiveWallet(t *testing.T) {
	message := "sign me"
	wallet, signature := personalSign(t, message)

	if !VerifySignature(message, signature, strings.ToLower(wallet)) {
		t.Error("lowercased wallet should still verify")
	}
	if !VerifySignature(message, signature, strings.ToUpper(wallet[:2])+wallet[2:]) {
		t.Error("casing variations of the same address should verify")
	}
}

func TestVerifySignatureWrongWallet(t *testing.T) {
	message := "sign me"
	_, signature := personalSign(t, message)

	if VerifySignature(message, signature, "0x0000000000000000000000000000000000000001") {
		t.Error("signature must not verify for a different wallet")
	}
}

func TestVerifySignatureTamperedMessage(t *testing.T) {
	wallet, signature := personalSign(t, "original")

	if VerifySignature("tampered", signature, wallet) {
		t.Error("signature over a different message must not verify")
	}
}

func TestRecoverSignerMalformedInput(t *testing.T) {
	for _, sig := range []string{"", "not-hex", "0xdeadbeef", "0x" + strings.Repeat("00", 64)} {
		if _, err := RecoverSigner("msg", sig); err == nil {
			t.Errorf("RecoverSigner with %q should fail", sig)
		}
	}
}

func TestSignMessageShape(t *testing.T) {
	wallet := "0xD8a394e7d7894bDF2C57139fF17e5CBAa29Dd977"
	message := SignMessage(wallet)

	if !strings.HasPrefix(message, "zhankai_auth_"+strings.ToLower(wallet)+"_") {
		t.Errorf("unexpected challenge prefix: %q", message)
	}
	if message == SignMessage(wallet) {
		t.Error("each challenge must carry a fresh nonce")
	}
}
