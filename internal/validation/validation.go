// Package validation provides validation for request fields the gateway
// accepts: wallet addresses and context document names.
package validation

import (
	"regexp"
)

var walletAddressRe = regexp.MustCompile(`^0x[0-9a-fA-F]{40}$`)

// IsWalletAddress reports whether s is a well-formed Ethereum address.
// Checksum casing is not enforced; addresses are compared case-insensitively.
func IsWalletAddress(s string) bool {
	return walletAddressRe.MatchString(s)
}

// ValidateWalletAddress validates a wallet address field.
func ValidateWalletAddress(field, value string) *ValidationError {
	if !IsWalletAddress(value) {
		return NewValidationError(field, value, "must be a 0x-prefixed 40-hex-digit address")
	}
	return nil
}

var filenameRe = regexp.MustCompile(`(?i)^[^/\\]+\.(md|markdown)$`)

// ValidateDocumentName validates a context document filename.
func ValidateDocumentName(field, value string) *ValidationError {
	if !filenameRe.MatchString(value) {
		return NewValidationError(field, value, "must be a markdown filename without path separators")
	}
	return nil
}
