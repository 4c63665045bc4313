// Package metadata converts asset descriptions to and from the hex blob
// carried in an issuance transaction's MPTokenMetadata field.
package metadata

import (
	"bytes"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/shopspring/decimal"

	"rwatoken/internal/domain"
)

const (
	// SchemaVersion is the version written by Encode.
	SchemaVersion = 1
	// MaxMetadataBytes is the ledger limit on MPTokenMetadata, in raw bytes.
	MaxMetadataBytes = 1024
)

// ErrMetadataTooLarge is returned by Encode when the encoded document does
// not fit on the ledger.
var ErrMetadataTooLarge = errors.New("metadata exceeds ledger size limit")

// DecodeError is returned for any blob Decode cannot turn into a Document.
// Raw holds whatever bytes could be recovered, for forensic inspection.
type DecodeError struct {
	Reason string
	Raw    []byte
	Err    error
}

func (e *DecodeError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("decode metadata: %s: %v", e.Reason, e.Err)
	}
	return "decode metadata: " + e.Reason
}

func (e *DecodeError) Unwrap() error { return e.Err }

// Document is the versioned record embedded on the ledger.
type Document struct {
	SchemaVersion   int                  `json:"schemaVersion"`
	Name            string               `json:"name"`
	Symbol          string               `json:"symbol"`
	Category        domain.AssetCategory `json:"category"`
	Location        string               `json:"location,omitempty"`
	Custodian       string               `json:"custodian,omitempty"`
	Description     string               `json:"description,omitempty"`
	FaceValue       decimal.Decimal      `json:"faceValue"`
	TotalSupply     uint64               `json:"totalSupply"`
	Decimals        uint8                `json:"decimals"`
	Currency        string               `json:"currency"`
	IssueDate       string               `json:"issueDate,omitempty"`
	Jurisdiction    string               `json:"jurisdiction,omitempty"`
	Valuation       domain.Valuation     `json:"valuation"`
	LegalReferences []string             `json:"legalReferences,omitempty"`
	Attributes      map[string]string    `json:"attributes,omitempty"`
}

// NewDocument builds the on-ledger record for an asset and its token.
func NewDocument(asset domain.AssetDescriptor, spec domain.TokenSpec) Document {
	return Document{
		SchemaVersion:   SchemaVersion,
		Name:            asset.Name,
		Symbol:          spec.Symbol,
		Category:        asset.Category,
		Location:        asset.Location,
		Custodian:       asset.Custodian,
		Description:     asset.Description,
		FaceValue:       asset.FaceValue,
		TotalSupply:     spec.TotalSupply,
		Decimals:        spec.Decimals,
		Currency:        asset.Currency,
		IssueDate:       asset.IssueDate,
		Jurisdiction:    asset.Jurisdiction,
		Valuation:       asset.Valuation,
		LegalReferences: asset.LegalReferences,
		Attributes:      asset.Attributes,
	}
}

// Asset returns the asset description carried by the document.
func (d Document) Asset() domain.AssetDescriptor {
	return domain.AssetDescriptor{
		Name:            d.Name,
		Category:        d.Category,
		Description:     d.Description,
		Location:        d.Location,
		Custodian:       d.Custodian,
		Jurisdiction:    d.Jurisdiction,
		Currency:        d.Currency,
		FaceValue:       d.FaceValue,
		IssueDate:       d.IssueDate,
		Valuation:       d.Valuation,
		LegalReferences: d.LegalReferences,
		Attributes:      d.Attributes,
	}
}

// Encode serialises d to upper-case hex. The JSON form is deterministic:
// struct fields keep declaration order and map keys are sorted.
func Encode(d Document) (string, error) {
	if d.SchemaVersion == 0 {
		d.SchemaVersion = SchemaVersion
	}
	if d.SchemaVersion != SchemaVersion {
		return "", fmt.Errorf("encode metadata: unsupported schema version %d", d.SchemaVersion)
	}
	if !utf8.ValidString(d.Symbol) {
		return "", fmt.Errorf("encode metadata: %w", &domain.ValidationError{Field: "symbol", Reason: "must be valid UTF-8"})
	}
	if err := d.Asset().ValidateText(); err != nil {
		return "", fmt.Errorf("encode metadata: %w", err)
	}
	raw, err := json.Marshal(d)
	if err != nil {
		return "", fmt.Errorf("encode metadata: %w", err)
	}
	if len(raw) > MaxMetadataBytes {
		return "", fmt.Errorf("%w: %d bytes, limit %d", ErrMetadataTooLarge, len(raw), MaxMetadataBytes)
	}
	return strings.ToUpper(hex.EncodeToString(raw)), nil
}

// Decode parses a hex blob produced by Encode.
func Decode(blob string) (Document, error) {
	raw, err := hex.DecodeString(strings.TrimSpace(blob))
	if err != nil {
		return Document{}, &DecodeError{Reason: "invalid hex", Raw: []byte(blob), Err: err}
	}
	if len(raw) == 0 {
		return Document{}, &DecodeError{Reason: "empty metadata", Raw: raw}
	}

	var header struct {
		SchemaVersion *int `json:"schemaVersion"`
	}
	if err := json.Unmarshal(raw, &header); err != nil {
		return Document{}, &DecodeError{Reason: "invalid JSON", Raw: raw, Err: err}
	}
	if header.SchemaVersion == nil {
		return Document{}, &DecodeError{Reason: "missing schemaVersion", Raw: raw}
	}

	switch *header.SchemaVersion {
	case 1:
		return decodeV1(raw)
	default:
		return Document{}, &DecodeError{
			Reason: fmt.Sprintf("unsupported schema version %d", *header.SchemaVersion),
			Raw:    raw,
		}
	}
}

func decodeV1(raw []byte) (Document, error) {
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.DisallowUnknownFields()

	var d Document
	if err := dec.Decode(&d); err != nil {
		return Document{}, &DecodeError{Reason: "invalid v1 document", Raw: raw, Err: err}
	}
	switch {
	case d.Name == "":
		return Document{}, &DecodeError{Reason: "missing name", Raw: raw}
	case d.Symbol == "":
		return Document{}, &DecodeError{Reason: "missing symbol", Raw: raw}
	case d.TotalSupply == 0:
		return Document{}, &DecodeError{Reason: "missing totalSupply", Raw: raw}
	}
	return d, nil
}

// Equal compares two documents field by field. Decimals compare by value
// and nil collections equal empty ones.
func (d Document) Equal(o Document) bool {
	if d.SchemaVersion != o.SchemaVersion ||
		d.Name != o.Name ||
		d.Symbol != o.Symbol ||
		d.Category != o.Category ||
		d.Location != o.Location ||
		d.Custodian != o.Custodian ||
		d.Description != o.Description ||
		!d.FaceValue.Equal(o.FaceValue) ||
		d.TotalSupply != o.TotalSupply ||
		d.Decimals != o.Decimals ||
		d.Currency != o.Currency ||
		d.IssueDate != o.IssueDate ||
		d.Jurisdiction != o.Jurisdiction {
		return false
	}
	if !d.Valuation.Amount.Equal(o.Valuation.Amount) ||
		d.Valuation.Currency != o.Valuation.Currency ||
		d.Valuation.Method != o.Valuation.Method ||
		d.Valuation.Date != o.Valuation.Date {
		return false
	}
	if len(d.LegalReferences) != len(o.LegalReferences) {
		return false
	}
	for i := range d.LegalReferences {
		if d.LegalReferences[i] != o.LegalReferences[i] {
			return false
		}
	}
	if len(d.Attributes) != len(o.Attributes) {
		return false
	}
	for k, v := range d.Attributes {
		if ov, ok := o.Attributes[k]; !ok || ov != v {
			return false
		}
	}
	return true
}
