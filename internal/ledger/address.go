package ledger

import (
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"

	"github.com/mr-tron/base58"
)

const (
	xrplAlphabet     = "rpshnaf39wBUDNEGHJKLM4PQRST7VWXYZ2bcdeCg65jkm8oFqi1tuvAxyz"
	accountIDLength  = 20
	accountIDPrefix  = 0x00
	checksumLength   = 4
	classicAddrBytes = 1 + accountIDLength + checksumLength
)

var alphabet = base58.NewAlphabet(xrplAlphabet)

// ErrInvalidAddress is returned for strings that are not classic addresses.
var ErrInvalidAddress = errors.New("invalid classic address")

// DecodeAddress returns the 20-byte account id of a classic address.
func DecodeAddress(address string) ([]byte, error) {
	if !strings.HasPrefix(address, "r") {
		return nil, fmt.Errorf("%w: %q", ErrInvalidAddress, address)
	}
	raw, err := base58.DecodeAlphabet(address, alphabet)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidAddress, err)
	}
	if len(raw) != classicAddrBytes || raw[0] != accountIDPrefix {
		return nil, fmt.Errorf("%w: %q", ErrInvalidAddress, address)
	}
	payload, sum := raw[:1+accountIDLength], raw[1+accountIDLength:]
	if !bytes.Equal(checksum(payload), sum) {
		return nil, fmt.Errorf("%w: bad checksum", ErrInvalidAddress)
	}
	return payload[1:], nil
}

// EncodeAccountID returns the classic address of a 20-byte account id.
func EncodeAccountID(accountID []byte) (string, error) {
	if len(accountID) != accountIDLength {
		return "", fmt.Errorf("account id must be %d bytes, got %d", accountIDLength, len(accountID))
	}
	payload := append([]byte{accountIDPrefix}, accountID...)
	return base58.EncodeAlphabet(append(payload, checksum(payload)...), alphabet), nil
}

// ValidAddress reports whether address decodes as a classic address.
func ValidAddress(address string) bool {
	_, err := DecodeAddress(address)
	return err == nil
}

// AccountIDHex returns the upper-case hex account id of address.
func AccountIDHex(address string) (string, error) {
	id, err := DecodeAddress(address)
	if err != nil {
		return "", err
	}
	return strings.ToUpper(hex.EncodeToString(id)), nil
}

func checksum(payload []byte) []byte {
	first := sha256.Sum256(payload)
	second := sha256.Sum256(first[:])
	return second[:checksumLength]
}
