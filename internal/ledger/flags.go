package ledger

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// Trust-line TransferRate encoding: 1e9 means no fee, every percent adds 1e7.
const (
	TransferRateNeutral    uint32 = 1_000_000_000
	TransferRatePerPercent        = 10_000_000
	TransferRateMax        uint32 = 2_000_000_000
)

// MPT TransferFee encoding: units of 1/1000 percent, capped at 50%.
const (
	MPTTransferFeePerPercent        = 1_000
	MPTTransferFeeMax        uint16 = 50_000
)

const errPercent = "transfer fee percent must be between 0 and %s, got %s"

var (
	hundred   = decimal.NewFromInt(100)
	mptFeeCap = decimal.NewFromInt(50)
)

// TransferFee converts a fee percent into a trust-line TransferRate.
func TransferFee(percent decimal.Decimal) (uint32, error) {
	if percent.IsNegative() || percent.GreaterThan(hundred) {
		return 0, fmt.Errorf(errPercent, hundred, percent)
	}
	offset := percent.Mul(decimal.NewFromInt(TransferRatePerPercent)).IntPart()
	return TransferRateNeutral + uint32(offset), nil
}

// MPTTransferFee converts a fee percent into an MPT TransferFee.
func MPTTransferFee(percent decimal.Decimal) (uint16, error) {
	if percent.IsNegative() || percent.GreaterThan(mptFeeCap) {
		return 0, fmt.Errorf(errPercent, mptFeeCap, percent)
	}
	return uint16(percent.Mul(decimal.NewFromInt(MPTTransferFeePerPercent)).IntPart()), nil
}

// MPTokenIssuanceCreate flags.
const (
	FlagMPTCanLock     uint32 = 0x00000002
	FlagMPTRequireAuth uint32 = 0x00000004
	FlagMPTCanEscrow   uint32 = 0x00000008
	FlagMPTCanTrade    uint32 = 0x00000010
	FlagMPTCanTransfer uint32 = 0x00000020
	FlagMPTCanClawback uint32 = 0x00000040

	issuanceFlagMask = FlagMPTCanLock | FlagMPTRequireAuth | FlagMPTCanEscrow |
		FlagMPTCanTrade | FlagMPTCanTransfer | FlagMPTCanClawback
)

// IssuanceOptions are the tri-state switches of an MPT issuance. Nil
// leaves the option at its default.
type IssuanceOptions struct {
	CanLock     *bool
	RequireAuth *bool
	CanEscrow   *bool
	CanTrade    *bool
	CanTransfer *bool
	CanClawback *bool
	Burnable    *bool
	Mintable    *bool
}

type issuanceFlag struct {
	name string
	bit  uint32
	def  bool
	pick func(IssuanceOptions) *bool
}

// issuanceTable is the complete option to bit mapping. Rows with bit 0
// have no protocol flag: holders can always return tokens to the issuer
// and the issuer mints by paying out up to MaximumAmount.
var issuanceTable = []issuanceFlag{
	{name: "can_lock", bit: FlagMPTCanLock, pick: func(o IssuanceOptions) *bool { return o.CanLock }},
	{name: "require_auth", bit: FlagMPTRequireAuth, pick: func(o IssuanceOptions) *bool { return o.RequireAuth }},
	{name: "can_escrow", bit: FlagMPTCanEscrow, pick: func(o IssuanceOptions) *bool { return o.CanEscrow }},
	{name: "can_trade", bit: FlagMPTCanTrade, def: true, pick: func(o IssuanceOptions) *bool { return o.CanTrade }},
	{name: "can_transfer", bit: FlagMPTCanTransfer, def: true, pick: func(o IssuanceOptions) *bool { return o.CanTransfer }},
	{name: "can_clawback", bit: FlagMPTCanClawback, pick: func(o IssuanceOptions) *bool { return o.CanClawback }},
	{name: "burnable", pick: func(o IssuanceOptions) *bool { return o.Burnable }},
	{name: "mintable", pick: func(o IssuanceOptions) *bool { return o.Mintable }},
}

// IssuanceFlags computes the Flags field of an MPTokenIssuanceCreate.
func IssuanceFlags(opts IssuanceOptions) (uint32, error) {
	var flags uint32
	for _, row := range issuanceTable {
		on := row.def
		if v := row.pick(opts); v != nil {
			on = *v
		}
		if on {
			flags |= row.bit
		}
	}
	if flags&^issuanceFlagMask != 0 {
		return 0, fmt.Errorf("issuance flags 0x%08X set reserved bits", flags)
	}
	return flags, nil
}

// IssuanceFlagNames lists the option names whose bits are set in flags.
func IssuanceFlagNames(flags uint32) []string {
	var names []string
	for _, row := range issuanceTable {
		if row.bit != 0 && flags&row.bit != 0 {
			names = append(names, row.name)
		}
	}
	return names
}

// AccountSet transaction flags, in set/clear pairs.
const (
	FlagRequireDestTag  uint32 = 0x00010000
	FlagOptionalDestTag uint32 = 0x00020000
	FlagRequireAuth     uint32 = 0x00040000
	FlagOptionalAuth    uint32 = 0x00080000
	FlagDisallowXRP     uint32 = 0x00100000
	FlagAllowXRP        uint32 = 0x00200000
)

// AccountSet SetFlag/ClearFlag ids.
const (
	AsfRequireDest            uint32 = 1
	AsfRequireAuth            uint32 = 2
	AsfDisallowXRP            uint32 = 3
	AsfDisableMaster          uint32 = 4
	AsfNoFreeze               uint32 = 6
	AsfGlobalFreeze           uint32 = 7
	AsfDefaultRipple          uint32 = 8
	AsfDepositAuth            uint32 = 9
	AsfAllowTrustLineClawback uint32 = 16
)

// AccountOptions configure an issuing account. Nil leaves a setting
// untouched.
type AccountOptions struct {
	RequireDestTag         *bool
	RequireAuth            *bool
	DisallowXRP            *bool
	DefaultRipple          *bool
	DepositAuth            *bool
	AllowTrustLineClawback *bool
	NoFreeze               *bool
	GlobalFreeze           *bool
	DisableMaster          *bool
}

// AccountFlagSet is the flag part of one AccountSet transaction. A
// transaction carries at most one SetFlag and one ClearFlag, so options
// that lose that race are reported in Ignored.
type AccountFlagSet struct {
	Flags     uint32
	SetFlag   *uint32
	ClearFlag *uint32
	Ignored   []string
}

type accountFlag struct {
	name     string
	setBit   uint32
	clearBit uint32
	asf      uint32
	pick     func(AccountOptions) *bool
}

var accountTable = []accountFlag{
	{name: "require_dest_tag", setBit: FlagRequireDestTag, clearBit: FlagOptionalDestTag, pick: func(o AccountOptions) *bool { return o.RequireDestTag }},
	{name: "require_auth", setBit: FlagRequireAuth, clearBit: FlagOptionalAuth, pick: func(o AccountOptions) *bool { return o.RequireAuth }},
	{name: "disallow_xrp", setBit: FlagDisallowXRP, clearBit: FlagAllowXRP, pick: func(o AccountOptions) *bool { return o.DisallowXRP }},
	{name: "default_ripple", asf: AsfDefaultRipple, pick: func(o AccountOptions) *bool { return o.DefaultRipple }},
	{name: "deposit_auth", asf: AsfDepositAuth, pick: func(o AccountOptions) *bool { return o.DepositAuth }},
	{name: "allow_trustline_clawback", asf: AsfAllowTrustLineClawback, pick: func(o AccountOptions) *bool { return o.AllowTrustLineClawback }},
	{name: "no_freeze", asf: AsfNoFreeze, pick: func(o AccountOptions) *bool { return o.NoFreeze }},
	{name: "global_freeze", asf: AsfGlobalFreeze, pick: func(o AccountOptions) *bool { return o.GlobalFreeze }},
	{name: "disable_master", asf: AsfDisableMaster, pick: func(o AccountOptions) *bool { return o.DisableMaster }},
}

// AccountFlags maps account options onto an AccountSet. Options with a
// set/clear transaction flag pair are ORed into Flags. The rest compete
// for SetFlag (first true in table order) and ClearFlag (first false).
func AccountFlags(opts AccountOptions) AccountFlagSet {
	var out AccountFlagSet
	for _, row := range accountTable {
		v := row.pick(opts)
		if v == nil {
			continue
		}
		if row.asf == 0 {
			if *v {
				out.Flags |= row.setBit
			} else {
				out.Flags |= row.clearBit
			}
			continue
		}
		asf := row.asf
		switch {
		case *v && out.SetFlag == nil:
			out.SetFlag = &asf
		case !*v && out.ClearFlag == nil:
			out.ClearFlag = &asf
		default:
			out.Ignored = append(out.Ignored, row.name)
		}
	}
	return out
}
