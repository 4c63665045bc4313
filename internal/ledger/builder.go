package ledger

import "fmt"

// MPTIssuance describes an MPTokenIssuanceCreate.
type MPTIssuance struct {
	Issuer        string
	MetadataHex   string
	MaximumAmount uint64
	AssetScale    uint8
	Flags         uint32
	TransferFee   uint16
}

// BuildMPTIssuance returns the unsigned issuance transaction. A transfer
// fee is only accepted when the issuance is transferable.
func BuildMPTIssuance(p MPTIssuance) (Transaction, error) {
	if !ValidAddress(p.Issuer) {
		return Transaction{}, fmt.Errorf("issuer: %w", ErrInvalidAddress)
	}
	if p.MaximumAmount == 0 {
		return Transaction{}, fmt.Errorf("maximum amount must be positive")
	}
	if p.TransferFee > 0 && p.Flags&FlagMPTCanTransfer == 0 {
		return Transaction{}, fmt.Errorf("transfer fee requires a transferable issuance")
	}
	if p.TransferFee > MPTTransferFeeMax {
		return Transaction{}, fmt.Errorf("transfer fee %d exceeds %d", p.TransferFee, MPTTransferFeeMax)
	}
	return Transaction{
		TransactionType: TxTypeMPTokenIssuanceCreate,
		Account:         p.Issuer,
		Flags:           p.Flags,
		AssetScale:      p.AssetScale,
		MaximumAmount:   formatUint(p.MaximumAmount),
		TransferFee:     p.TransferFee,
		MPTokenMetadata: p.MetadataHex,
	}, nil
}

// BuildAccountSet configures the issuing account of a trust-line token.
func BuildAccountSet(account string, flags AccountFlagSet, transferRate uint32) Transaction {
	tx := Transaction{
		TransactionType: TxTypeAccountSet,
		Account:         account,
		Flags:           flags.Flags,
	}
	if flags.SetFlag != nil {
		tx.SetFlag = *flags.SetFlag
	}
	if flags.ClearFlag != nil {
		tx.ClearFlag = *flags.ClearFlag
	}
	if transferRate > TransferRateNeutral {
		tx.TransferRate = transferRate
	}
	return tx
}

// BuildTrustSet opens a trust line from holder to issuer for currency.
func BuildTrustSet(holder, issuer, currency string, limit uint64) Transaction {
	return Transaction{
		TransactionType: TxTypeTrustSet,
		Account:         holder,
		LimitAmount: &Amount{
			Currency: currency,
			Issuer:   issuer,
			Value:    formatUint(limit),
		},
	}
}

// BuildIssuePayment moves the full supply from issuer to destination,
// which creates it on the trust line.
func BuildIssuePayment(issuer, destination, currency string, amount uint64) Transaction {
	return Transaction{
		TransactionType: TxTypePayment,
		Account:         issuer,
		Destination:     destination,
		Amount: &Amount{
			Currency: currency,
			Issuer:   issuer,
			Value:    formatUint(amount),
		},
	}
}
