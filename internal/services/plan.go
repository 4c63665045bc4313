package services

import (
	"errors"
	"fmt"

	"rwatoken/internal/domain"
	"rwatoken/internal/ledger"
	"rwatoken/internal/metadata"
	"rwatoken/internal/models"
)

// errIssuerNotConfigured means the service holds no usable key material.
var errIssuerNotConfigured = errors.New("issuer credentials are not configured")

// plannedTx is one transaction of an issuance, in submission order.
type plannedTx struct {
	role   string
	tx     ledger.Transaction
	secret string
}

// issuancePlan is everything known before the ledger is touched.
type issuancePlan struct {
	asset       domain.AssetDescriptor
	spec        domain.TokenSpec
	caller      domain.Caller
	mode        domain.IssuanceMode
	metadataHex string
	identity    domain.TokenIdentity
	distributor string
	txs         []plannedTx
	warnings    []string
}

// issuing returns the transaction that creates the token.
func (p *issuancePlan) issuing() plannedTx {
	return p.txs[len(p.txs)-1]
}

// planIssuance validates a request and builds its transactions. It has no
// side effects. Input problems come back as *domain.ValidationError.
func planIssuance(asset domain.AssetDescriptor, spec domain.TokenSpec, creds domain.IssuerCredentials, caller domain.Caller) (*issuancePlan, error) {
	if err := spec.Validate(); err != nil {
		return nil, err
	}
	if err := asset.Validate(); err != nil {
		return nil, err
	}
	if caller.UserID == "" {
		return nil, &domain.ValidationError{Field: "caller", Reason: "user id is required"}
	}
	if !ledger.ValidAddress(caller.WalletAddress) {
		return nil, &domain.ValidationError{Field: "wallet_address", Reason: "must be a valid classic address"}
	}
	if !ledger.ValidAddress(creds.Address) || creds.Secret == "" {
		return nil, errIssuerNotConfigured
	}

	hexBlob, err := metadata.Encode(metadata.NewDocument(asset, spec))
	if errors.Is(err, metadata.ErrMetadataTooLarge) {
		return nil, &domain.ValidationError{Field: "metadata", Reason: err.Error()}
	}
	if err != nil {
		return nil, fmt.Errorf("encoding metadata: %w", err)
	}

	plan := &issuancePlan{
		asset:       asset,
		spec:        spec,
		caller:      caller,
		mode:        spec.EffectiveMode(),
		metadataHex: hexBlob,
		identity: domain.TokenIdentity{
			Symbol:      spec.Symbol,
			Issuer:      creds.Address,
			Mode:        spec.EffectiveMode(),
			TotalSupply: spec.TotalSupply,
			Decimals:    spec.Decimals,
			MetadataHex: hexBlob,
		},
	}

	switch plan.mode {
	case domain.IssuanceModeTrustLine:
		err = plan.trustLine(creds)
	default:
		err = plan.mpt(creds)
	}
	if err != nil {
		return nil, err
	}
	return plan, nil
}

func (p *issuancePlan) mpt(creds domain.IssuerCredentials) error {
	flags, err := ledger.IssuanceFlags(ledger.IssuanceOptions{
		CanLock:     p.spec.Freezable,
		RequireAuth: p.spec.AuthRequired,
		CanTrade:    p.spec.Tradable,
		CanTransfer: p.spec.Transferable,
		CanClawback: p.spec.Clawback,
		Burnable:    p.spec.Burnable,
		Mintable:    p.spec.Mintable,
	})
	if err != nil {
		return err
	}

	var fee uint16
	if pct := p.spec.TransferFeePercent; pct != nil && pct.IsPositive() {
		if fee, err = ledger.MPTTransferFee(*pct); err != nil {
			return &domain.ValidationError{Field: "transfer_fee_percent", Reason: err.Error()}
		}
		if flags&ledger.FlagMPTCanTransfer == 0 {
			return &domain.ValidationError{Field: "transfer_fee_percent", Reason: "a transfer fee requires a transferable token"}
		}
	}

	tx, err := ledger.BuildMPTIssuance(ledger.MPTIssuance{
		Issuer:        creds.Address,
		MetadataHex:   p.metadataHex,
		MaximumAmount: p.spec.TotalSupply,
		AssetScale:    p.spec.Decimals,
		Flags:         flags,
		TransferFee:   fee,
	})
	if err != nil {
		return err
	}

	if domain.IsSet(p.spec.Mintable) {
		p.warnings = append(p.warnings, "mintable: supply is capped at total_supply; more units need a new issuance")
	}
	p.identity.Flags = flags
	p.identity.FlagNames = ledger.IssuanceFlagNames(flags)
	p.identity.TransferFee = uint32(fee)
	p.txs = []plannedTx{{role: models.TxRoleIssuance, tx: tx, secret: creds.Secret}}
	return nil
}

func (p *issuancePlan) trustLine(creds domain.IssuerCredentials) error {
	currency, err := ledger.CurrencyCode(p.spec.Symbol)
	if err != nil {
		return &domain.ValidationError{Field: "symbol", Reason: err.Error()}
	}
	if !ledger.ValidAddress(creds.DistributorAddress) || creds.DistributorSecret == "" {
		return errIssuerNotConfigured
	}
	if creds.DistributorAddress == creds.Address {
		return fmt.Errorf("%w: distributor must differ from issuer", errIssuerNotConfigured)
	}

	var rate uint32
	if pct := p.spec.TransferFeePercent; pct != nil && pct.IsPositive() {
		if rate, err = ledger.TransferFee(*pct); err != nil {
			return &domain.ValidationError{Field: "transfer_fee_percent", Reason: err.Error()}
		}
	}

	transferable := p.spec.Transferable == nil || *p.spec.Transferable
	opts := ledger.AccountOptions{
		RequireAuth:            p.spec.AuthRequired,
		DefaultRipple:          domain.Bool(transferable),
		AllowTrustLineClawback: p.spec.Clawback,
	}
	if p.spec.Freezable != nil && !*p.spec.Freezable {
		opts.NoFreeze = domain.Bool(true)
	}
	accountFlags := ledger.AccountFlags(opts)
	for _, name := range accountFlags.Ignored {
		p.warnings = append(p.warnings, fmt.Sprintf("account flag %s not applied: an AccountSet carries one SetFlag and one ClearFlag", name))
	}
	if domain.IsSet(p.spec.Burnable) || domain.IsSet(p.spec.Mintable) {
		p.warnings = append(p.warnings, "burnable and mintable have no trust-line flag; the issuer can always redeem and issue")
	}
	p.warnings = append(p.warnings, "trust-line tokens carry no on-ledger metadata; the asset record is kept off-ledger")

	p.distributor = creds.DistributorAddress
	p.identity.CurrencyCode = currency
	p.identity.Flags = accountFlags.Flags
	p.identity.TransferRate = rate
	p.txs = []plannedTx{
		{role: models.TxRoleAccountSet, tx: ledger.BuildAccountSet(creds.Address, accountFlags, rate), secret: creds.Secret},
		{role: models.TxRoleTrustSet, tx: ledger.BuildTrustSet(creds.DistributorAddress, creds.Address, currency, p.spec.TotalSupply), secret: creds.DistributorSecret},
		{role: models.TxRoleIssuance, tx: ledger.BuildIssuePayment(creds.Address, creds.DistributorAddress, currency, p.spec.TotalSupply), secret: creds.Secret},
	}
	return nil
}

// issuanceID pulls the token's ledger identifier out of the issuing
// transaction's metadata.
func issuanceID(token domain.TokenIdentity, meta ledger.Meta) (string, error) {
	if token.Mode == domain.IssuanceModeTrustLine {
		return ledger.TrustLineIssuanceID(meta, token.CurrencyCode, token.Issuer)
	}
	return ledger.MPTIssuanceID(meta)
}
