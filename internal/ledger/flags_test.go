package ledger_test

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"rwatoken/internal/ledger"
)

func boolPtr(v bool) *bool { return &v }

func TestTransferFee_RangeAndMonotonic(t *testing.T) {
	prev := uint32(0)
	for i := 0; i <= 1000; i++ {
		pct := decimal.New(int64(i), -1) // 0.0 .. 100.0
		rate, err := ledger.TransferFee(pct)
		require.NoError(t, err, "percent %s", pct)
		assert.GreaterOrEqual(t, rate, ledger.TransferRateNeutral)
		assert.LessOrEqual(t, rate, ledger.TransferRateMax)
		assert.GreaterOrEqual(t, rate, prev, "not monotonic at %s", pct)
		prev = rate
	}
}

func TestTransferFee_KnownValues(t *testing.T) {
	cases := map[string]uint32{
		"0":      1_000_000_000,
		"0.5":    1_005_000_000,
		"1":      1_010_000_000,
		"2.5":    1_025_000_000,
		"100":    2_000_000_000,
		"0.0001": 1_000_001_000,
	}
	for in, want := range cases {
		got, err := ledger.TransferFee(decimal.RequireFromString(in))
		require.NoError(t, err)
		assert.Equal(t, want, got, in)
	}
}

func TestTransferFee_RejectsOutOfRange(t *testing.T) {
	for _, in := range []string{"-0.01", "-5", "100.0001", "250"} {
		_, err := ledger.TransferFee(decimal.RequireFromString(in))
		assert.Error(t, err, in)
	}
}

func TestMPTTransferFee(t *testing.T) {
	got, err := ledger.MPTTransferFee(decimal.RequireFromString("1.25"))
	require.NoError(t, err)
	assert.Equal(t, uint16(1250), got)

	got, err = ledger.MPTTransferFee(decimal.NewFromInt(50))
	require.NoError(t, err)
	assert.Equal(t, ledger.MPTTransferFeeMax, got)

	_, err = ledger.MPTTransferFee(decimal.RequireFromString("50.001"))
	assert.Error(t, err)
	_, err = ledger.MPTTransferFee(decimal.NewFromInt(-1))
	assert.Error(t, err)
}

func TestIssuanceFlags_Defaults(t *testing.T) {
	flags, err := ledger.IssuanceFlags(ledger.IssuanceOptions{})
	require.NoError(t, err)
	assert.Equal(t, ledger.FlagMPTCanTrade|ledger.FlagMPTCanTransfer, flags)
}

func TestIssuanceFlags_EachOptionOneBit(t *testing.T) {
	cases := []struct {
		name string
		opts ledger.IssuanceOptions
		bit  uint32
	}{
		{"can_lock", ledger.IssuanceOptions{CanLock: boolPtr(true)}, ledger.FlagMPTCanLock},
		{"require_auth", ledger.IssuanceOptions{RequireAuth: boolPtr(true)}, ledger.FlagMPTRequireAuth},
		{"can_escrow", ledger.IssuanceOptions{CanEscrow: boolPtr(true)}, ledger.FlagMPTCanEscrow},
		{"can_clawback", ledger.IssuanceOptions{CanClawback: boolPtr(true)}, ledger.FlagMPTCanClawback},
		{"burnable", ledger.IssuanceOptions{Burnable: boolPtr(true)}, 0},
		{"mintable", ledger.IssuanceOptions{Mintable: boolPtr(true)}, 0},
	}
	base, err := ledger.IssuanceFlags(ledger.IssuanceOptions{})
	require.NoError(t, err)
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			flags, err := ledger.IssuanceFlags(tc.opts)
			require.NoError(t, err)
			assert.Equal(t, base|tc.bit, flags)
		})
	}
}

func TestIssuanceFlags_ExplicitFalseClearsDefault(t *testing.T) {
	flags, err := ledger.IssuanceFlags(ledger.IssuanceOptions{
		CanTransfer: boolPtr(false),
		CanTrade:    boolPtr(false),
	})
	require.NoError(t, err)
	assert.Zero(t, flags)
}

func TestIssuanceFlags_AllSetStaysInKnownMask(t *testing.T) {
	yes := boolPtr(true)
	flags, err := ledger.IssuanceFlags(ledger.IssuanceOptions{
		CanLock: yes, RequireAuth: yes, CanEscrow: yes, CanTrade: yes,
		CanTransfer: yes, CanClawback: yes, Burnable: yes, Mintable: yes,
	})
	require.NoError(t, err)
	assert.Equal(t, uint32(0x7E), flags)
	assert.ElementsMatch(t,
		[]string{"can_lock", "require_auth", "can_escrow", "can_trade", "can_transfer", "can_clawback"},
		ledger.IssuanceFlagNames(flags))
}

func TestAccountFlags_PairsAreAdditive(t *testing.T) {
	got := ledger.AccountFlags(ledger.AccountOptions{
		RequireDestTag: boolPtr(true),
		RequireAuth:    boolPtr(false),
		DisallowXRP:    boolPtr(true),
	})
	assert.Equal(t, ledger.FlagRequireDestTag|ledger.FlagOptionalAuth|ledger.FlagDisallowXRP, got.Flags)
	assert.Nil(t, got.SetFlag)
	assert.Nil(t, got.ClearFlag)
	assert.Empty(t, got.Ignored)
}

func TestAccountFlags_FirstTrueAndFirstFalseWin(t *testing.T) {
	got := ledger.AccountFlags(ledger.AccountOptions{
		DefaultRipple: boolPtr(true),
		DepositAuth:   boolPtr(true),
		NoFreeze:      boolPtr(false),
		GlobalFreeze:  boolPtr(false),
	})
	require.NotNil(t, got.SetFlag)
	require.NotNil(t, got.ClearFlag)
	assert.Equal(t, ledger.AsfDefaultRipple, *got.SetFlag)
	assert.Equal(t, ledger.AsfNoFreeze, *got.ClearFlag)
	assert.Equal(t, []string{"deposit_auth", "global_freeze"}, got.Ignored)
}

func TestAccountFlags_Empty(t *testing.T) {
	got := ledger.AccountFlags(ledger.AccountOptions{})
	assert.Zero(t, got.Flags)
	assert.Nil(t, got.SetFlag)
	assert.Nil(t, got.ClearFlag)
}
