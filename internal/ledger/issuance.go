package ledger

import (
	"encoding/binary"
	"encoding/hex"
	"fmt"
	"strings"
)

const (
	entryMPTokenIssuance = "MPTokenIssuance"
	entryRippleState     = "RippleState"
)

// ComputeMPTIssuanceID derives the 192-bit issuance id: the issuing
// transaction's sequence, big endian, followed by the issuer account id.
func ComputeMPTIssuanceID(sequence uint32, issuer string) (string, error) {
	accountID, err := DecodeAddress(issuer)
	if err != nil {
		return "", err
	}
	buf := make([]byte, 4, 4+accountIDLength)
	binary.BigEndian.PutUint32(buf, sequence)
	buf = append(buf, accountID...)
	return strings.ToUpper(hex.EncodeToString(buf)), nil
}

// MPTIssuanceID finds the MPTokenIssuance entry created by a transaction
// and returns its id.
func MPTIssuanceID(meta Meta) (string, error) {
	for _, node := range meta.AffectedNodes {
		created := node.CreatedNode
		if created == nil || created.LedgerEntryType != entryMPTokenIssuance {
			continue
		}
		seq, ok := numberField(created.NewFields, "Sequence")
		issuer, _ := created.NewFields["Issuer"].(string)
		if !ok || issuer == "" {
			return "", fmt.Errorf("%w: created entry lacks sequence or issuer", ErrIssuanceNotFound)
		}
		id, err := ComputeMPTIssuanceID(seq, issuer)
		if err != nil {
			return "", fmt.Errorf("%w: %v", ErrIssuanceNotFound, err)
		}
		if meta.MPTIssuanceID != "" && !strings.EqualFold(meta.MPTIssuanceID, id) {
			return "", fmt.Errorf("%w: node reported %s, entry derives %s", ErrIssuanceNotFound, meta.MPTIssuanceID, id)
		}
		return id, nil
	}
	return "", ErrIssuanceNotFound
}

// TrustLineIssuanceID finds the RippleState entry for currency with
// issuer on one side and returns "currency.issuer".
func TrustLineIssuanceID(meta Meta, currency, issuer string) (string, error) {
	for _, node := range meta.AffectedNodes {
		for _, entry := range []*NodeFields{node.CreatedNode, node.ModifiedNode} {
			if entry == nil || entry.LedgerEntryType != entryRippleState {
				continue
			}
			fields := entry.NewFields
			if entry.FinalFields != nil {
				fields = entry.FinalFields
			}
			if rippleStateMatches(fields, currency, issuer) {
				return currency + "." + issuer, nil
			}
		}
	}
	return "", ErrIssuanceNotFound
}

func rippleStateMatches(fields map[string]any, currency, issuer string) bool {
	for _, side := range []string{"HighLimit", "LowLimit"} {
		limit, ok := fields[side].(map[string]any)
		if !ok {
			continue
		}
		if limit["currency"] == currency && limit["issuer"] == issuer {
			return true
		}
	}
	return false
}

func numberField(fields map[string]any, key string) (uint32, bool) {
	switch v := fields[key].(type) {
	case float64:
		if v < 0 || v > float64(^uint32(0)) {
			return 0, false
		}
		return uint32(v), true
	case int:
		return uint32(v), true
	case uint32:
		return v, true
	}
	return 0, false
}
