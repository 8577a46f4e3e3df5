package errors

import (
	"math"
	"regexp"
	"unicode"
)

// maxAssetIDLength bounds asset identifiers. CoinGecko ids stay well below it.
const maxAssetIDLength = 64

// assetIDRegex matches lowercase CoinGecko-style identifiers ("bitcoin", "shiba-inu").
var assetIDRegex = regexp.MustCompile(`^[a-z0-9][a-z0-9._-]*$`)

// ValidateAssetID rejects malformed asset identifiers.
//
// An identifier that is well formed but unknown to the catalog is valid: it
// falls through to the default shape. Validation rules:
//   - No empty identifiers
//   - No control characters or whitespace
//   - Lowercase letters, digits, '.', '_' and '-' only, starting with a letter or digit
//   - Maximum length of 64 characters
func ValidateAssetID(id string) error {
	if id == "" {
		return New(ErrCodeInvalidAsset, "asset id cannot be empty")
	}

	if len(id) > maxAssetIDLength {
		return New(ErrCodeInvalidAsset, "asset id too long (max %d characters)", maxAssetIDLength)
	}

	for _, r := range id {
		if unicode.IsControl(r) || unicode.IsSpace(r) {
			return New(ErrCodeInvalidAsset, "asset id contains invalid characters: %q", id)
		}
	}

	if !assetIDRegex.MatchString(id) {
		return New(ErrCodeInvalidAsset, "invalid asset id: %q", id)
	}

	return nil
}

// ValidateQuantity rejects non-positive and non-finite quantities.
func ValidateQuantity(q float64) error {
	if math.IsNaN(q) || math.IsInf(q, 0) {
		return New(ErrCodeInvalidQuantity, "quantity must be a finite number")
	}
	if q <= 0 {
		return New(ErrCodeInvalidQuantity, "quantity must be positive, got %v", q)
	}
	return nil
}

// ValidateBlockID rejects empty or oversized block identifiers before lookup.
func ValidateBlockID(id string) error {
	if id == "" {
		return New(ErrCodeInvalidInput, "block id cannot be empty")
	}
	if len(id) > 128 {
		return New(ErrCodeInvalidInput, "block id too long")
	}
	return nil
}
