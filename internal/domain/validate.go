package domain

import (
	"fmt"
	"strings"
	"time"
	"unicode"
	"unicode/utf8"

	"github.com/shopspring/decimal"
	"golang.org/x/text/unicode/norm"
)

// DateLayout is the layout of issue and valuation dates.
const DateLayout = "2006-01-02"

// ValidationError reports a single invalid field.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Reason)
}

func invalid(field, format string, args ...any) error {
	return &ValidationError{Field: field, Reason: fmt.Sprintf(format, args...)}
}

// ValidateSymbol checks the symbol shape shared by both issuance modes.
func ValidateSymbol(symbol string) error {
	if !utf8.ValidString(symbol) || !norm.NFC.IsNormalString(symbol) {
		return invalid("symbol", "must be valid, NFC-normalized UTF-8")
	}
	if n := len(symbol); n < MinSymbolLength || n > MaxSymbolLength {
		return invalid("symbol", "must be between %d and %d bytes, got %d", MinSymbolLength, MaxSymbolLength, n)
	}
	for _, r := range symbol {
		if !unicode.IsPrint(r) || unicode.IsSpace(r) {
			return invalid("symbol", "must contain only printable, non-space characters")
		}
	}
	if strings.EqualFold(symbol, "XRP") {
		return invalid("symbol", "XRP is reserved")
	}
	return nil
}

// Validate checks the token spec before anything touches the network.
func (s TokenSpec) Validate() error {
	if err := ValidateSymbol(s.Symbol); err != nil {
		return err
	}
	if s.TotalSupply == 0 {
		return invalid("total_supply", "must be positive")
	}
	if s.TotalSupply > MaxTokenSupply {
		return invalid("total_supply", "must not exceed %d", MaxTokenSupply)
	}
	if s.Decimals > MaxDecimals {
		return invalid("decimals", "must be between 0 and %d", MaxDecimals)
	}
	if s.Mode != "" && !s.Mode.Valid() {
		return invalid("mode", "unsupported issuance mode %q", s.Mode)
	}
	if p := s.TransferFeePercent; p != nil {
		if p.IsNegative() || p.GreaterThan(decimal.NewFromInt(100)) {
			return invalid("transfer_fee_percent", "must be between 0 and 100")
		}
	}
	return nil
}

// ValidateText rejects any text field that is not valid UTF-8. JSON
// encoding would substitute U+FFFD for such bytes and the ledger copy
// would no longer match the description.
func (a AssetDescriptor) ValidateText() error {
	fields := []struct {
		name, value string
	}{
		{"name", a.Name},
		{"category", string(a.Category)},
		{"description", a.Description},
		{"location", a.Location},
		{"custodian", a.Custodian},
		{"jurisdiction", a.Jurisdiction},
		{"currency", a.Currency},
		{"issue_date", a.IssueDate},
		{"valuation.currency", a.Valuation.Currency},
		{"valuation.method", a.Valuation.Method},
		{"valuation.date", a.Valuation.Date},
	}
	for _, f := range fields {
		if !utf8.ValidString(f.value) {
			return invalid(f.name, "must be valid UTF-8")
		}
	}
	for i, ref := range a.LegalReferences {
		if !utf8.ValidString(ref) {
			return invalid(fmt.Sprintf("legal_references[%d]", i), "must be valid UTF-8")
		}
	}
	for k, v := range a.Attributes {
		if !utf8.ValidString(k) || !utf8.ValidString(v) {
			return invalid("attributes", "keys and values must be valid UTF-8")
		}
	}
	return nil
}

// Validate checks the required shape of an asset description.
func (a AssetDescriptor) Validate() error {
	if err := a.ValidateText(); err != nil {
		return err
	}
	if strings.TrimSpace(a.Name) == "" {
		return invalid("name", "is required")
	}
	if len(a.Name) > 200 {
		return invalid("name", "must be at most 200 bytes")
	}
	if !a.Category.Valid() {
		return invalid("category", "unknown category %q", a.Category)
	}
	if !isCurrencyCode(a.Currency) {
		return invalid("currency", "must be a 3-letter currency code")
	}
	if a.FaceValue.IsNegative() {
		return invalid("face_value", "must not be negative")
	}
	if !a.Valuation.Amount.IsPositive() {
		return invalid("valuation.amount", "must be positive")
	}
	if a.Valuation.Currency != "" && !isCurrencyCode(a.Valuation.Currency) {
		return invalid("valuation.currency", "must be a 3-letter currency code")
	}
	if err := validateDate("issue_date", a.IssueDate); err != nil {
		return err
	}
	if err := validateDate("valuation.date", a.Valuation.Date); err != nil {
		return err
	}
	for i, ref := range a.LegalReferences {
		if strings.TrimSpace(ref) == "" {
			return invalid(fmt.Sprintf("legal_references[%d]", i), "must not be blank")
		}
	}
	for k := range a.Attributes {
		if strings.TrimSpace(k) == "" {
			return invalid("attributes", "keys must not be blank")
		}
	}
	return nil
}

func validateDate(field, value string) error {
	if value == "" {
		return nil
	}
	if _, err := time.Parse(DateLayout, value); err != nil {
		return invalid(field, "must be a YYYY-MM-DD date")
	}
	return nil
}

func isCurrencyCode(s string) bool {
	if len(s) != 3 {
		return false
	}
	for _, r := range s {
		if r < 'A' || r > 'Z' {
			return false
		}
	}
	return true
}
