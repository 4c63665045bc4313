package ledger

import (
	"encoding/hex"
	"fmt"
	"strings"
)

const standardCurrencyChars = "ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz0123456789?!@#$%^&*<>(){}[]|"

// CurrencyCode maps a token symbol to the currency code used on trust
// lines: three-character symbols use the standard form, anything longer
// (up to 20 bytes) becomes a 160-bit nonstandard code.
func CurrencyCode(symbol string) (string, error) {
	if strings.EqualFold(symbol, "XRP") {
		return "", fmt.Errorf("currency code XRP is reserved")
	}
	if len(symbol) == 3 && isStandardCurrency(symbol) {
		return symbol, nil
	}
	if len(symbol) < 3 || len(symbol) > 20 {
		return "", fmt.Errorf("symbol %q cannot be represented as a currency code", symbol)
	}
	code := make([]byte, 20)
	copy(code, symbol)
	return strings.ToUpper(hex.EncodeToString(code)), nil
}

func isStandardCurrency(s string) bool {
	for _, r := range s {
		if !strings.ContainsRune(standardCurrencyChars, r) {
			return false
		}
	}
	return true
}
