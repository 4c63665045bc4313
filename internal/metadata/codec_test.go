package metadata

import (
	"encoding/hex"
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"rwatoken/internal/domain"
)

var decimalComparer = cmp.Comparer(func(a, b decimal.Decimal) bool { return a.Equal(b) })

func goldDocument() Document {
	return NewDocument(domain.AssetDescriptor{
		Name:         "Zurich Vault Gold Reserve",
		Category:     domain.AssetCategoryPreciousMetal,
		Description:  "400 oz LBMA good delivery bars",
		Location:     "Zurich, CH",
		Custodian:    "Alpine Vaults AG",
		Jurisdiction: "CH",
		Currency:     "USD",
		FaceValue:    decimal.RequireFromString("1.50"),
		IssueDate:    "2026-01-15",
		Valuation: domain.Valuation{
			Amount:   decimal.RequireFromString("1000000.00"),
			Currency: "USD",
			Method:   "spot",
			Date:     "2026-01-10",
		},
		LegalReferences: []string{"CH-REG-2026-0042"},
		Attributes:      map[string]string{"bars": "12", "purity": "999.9"},
	}, domain.TokenSpec{Symbol: "GOLD001", TotalSupply: 500000, Decimals: 6})
}

func TestEncodeDecode_RoundTrip(t *testing.T) {
	cases := map[string]Document{
		"full": goldDocument(),
		"minimal": {
			SchemaVersion: SchemaVersion,
			Name:          "Minimal",
			Symbol:        "MIN",
			Category:      domain.AssetCategoryOther,
			TotalSupply:   1,
			Currency:      "EUR",
			Valuation:     domain.Valuation{Amount: decimal.NewFromInt(1)},
		},
		"unicode": {
			SchemaVersion: SchemaVersion,
			Name:          "Œuvre « Lumière »",
			Symbol:        "ART",
			Category:      domain.AssetCategoryArt,
			TotalSupply:   domain.MaxTokenSupply,
			Currency:      "EUR",
			Valuation:     domain.Valuation{Amount: decimal.RequireFromString("0.000001")},
			Attributes:    map[string]string{},
		},
	}

	for name, doc := range cases {
		t.Run(name, func(t *testing.T) {
			blob, err := Encode(doc)
			require.NoError(t, err)
			assert.Equal(t, strings.ToUpper(blob), blob)

			got, err := Decode(blob)
			require.NoError(t, err)
			assert.True(t, doc.Equal(got), cmp.Diff(doc, got, decimalComparer))
		})
	}
}

func TestEncode_Deterministic(t *testing.T) {
	doc := goldDocument()
	first, err := Encode(doc)
	require.NoError(t, err)
	for i := 0; i < 20; i++ {
		again, err := Encode(doc)
		require.NoError(t, err)
		require.Equal(t, first, again)
	}
}

func TestEncode_DefaultsSchemaVersion(t *testing.T) {
	doc := goldDocument()
	doc.SchemaVersion = 0
	blob, err := Encode(doc)
	require.NoError(t, err)

	got, err := Decode(blob)
	require.NoError(t, err)
	assert.Equal(t, SchemaVersion, got.SchemaVersion)
}

func TestEncode_RejectsOversize(t *testing.T) {
	doc := goldDocument()
	doc.Description = strings.Repeat("x", MaxMetadataBytes)

	_, err := Encode(doc)
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrMetadataTooLarge))
}

func TestEncode_RejectsInvalidUTF8(t *testing.T) {
	cases := map[string]struct {
		mutate func(*Document)
		field  string
	}{
		"name":       {func(d *Document) { d.Name = "Vault \xff Gold" }, "name"},
		"attr value": {func(d *Document) { d.Attributes = map[string]string{"k": "v\xfe"} }, "attributes"},
		"attr key":   {func(d *Document) { d.Attributes = map[string]string{"k\xfe": "v"} }, "attributes"},
		"legal ref":  {func(d *Document) { d.LegalReferences = []string{"ok", "\xc3\x28"} }, "legal_references[1]"},
		"method":     {func(d *Document) { d.Valuation.Method = "\xed\xa0\x80" }, "valuation.method"},
		"symbol":     {func(d *Document) { d.Symbol = "GO\xffLD" }, "symbol"},
	}
	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			doc := goldDocument()
			tc.mutate(&doc)

			blob, err := Encode(doc)
			require.Error(t, err, "encoded as %q", blob)
			var invalid *domain.ValidationError
			require.True(t, errors.As(err, &invalid), "got %v", err)
			assert.Equal(t, tc.field, invalid.Field)
		})
	}
}

func TestEncodeDecode_RoundTripNonASCII(t *testing.T) {
	doc := goldDocument()
	doc.Name = "Tresor Zürich 金庫"
	doc.Attributes = map[string]string{"poinçon": "999,9 ‰"}

	blob, err := Encode(doc)
	require.NoError(t, err)
	got, err := Decode(blob)
	require.NoError(t, err)
	if diff := cmp.Diff(doc, got, decimalComparer); diff != "" {
		t.Errorf("round trip mismatch (-want +got):\n%s", diff)
	}
}

func TestEncode_FitsExactlyAtLimit(t *testing.T) {
	doc := goldDocument()
	doc.Description = ""
	blob, err := Encode(doc)
	require.NoError(t, err)

	room := MaxMetadataBytes - len(blob)/2 - len(`,"description":""`)
	require.Positive(t, room)
	doc.Description = strings.Repeat("y", room)

	blob, err = Encode(doc)
	require.NoError(t, err)
	assert.Equal(t, MaxMetadataBytes, len(blob)/2)
}

func TestDecode_Malformed(t *testing.T) {
	encode := func(s string) string { return hex.EncodeToString([]byte(s)) }

	cases := map[string]struct {
		blob   string
		reason string
	}{
		"not hex":         {blob: "zz-not-hex", reason: "invalid hex"},
		"empty":           {blob: "", reason: "empty metadata"},
		"not json":        {blob: encode("{oops"), reason: "invalid JSON"},
		"no version":      {blob: encode(`{"name":"x"}`), reason: "missing schemaVersion"},
		"future version":  {blob: encode(`{"schemaVersion":9,"name":"x"}`), reason: "unsupported schema version 9"},
		"unknown field":   {blob: encode(`{"schemaVersion":1,"name":"x","symbol":"ABC","totalSupply":1,"extra":true}`), reason: "invalid v1 document"},
		"missing symbol":  {blob: encode(`{"schemaVersion":1,"name":"x","totalSupply":1}`), reason: "missing symbol"},
		"missing supply":  {blob: encode(`{"schemaVersion":1,"name":"x","symbol":"ABC"}`), reason: "missing totalSupply"},
		"wrong type":      {blob: encode(`{"schemaVersion":1,"name":5}`), reason: "invalid v1 document"},
		"lowercase valid": {blob: strings.ToLower(mustEncode(t, goldDocument())), reason: ""},
	}

	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := Decode(tc.blob)
			if tc.reason == "" {
				require.NoError(t, err)
				return
			}
			var decErr *DecodeError
			require.True(t, errors.As(err, &decErr), "expected *DecodeError, got %T", err)
			assert.Equal(t, tc.reason, decErr.Reason)
			if tc.blob != "" {
				assert.NotEmpty(t, decErr.Raw)
			}
		})
	}
}

func TestDocument_AssetRoundTrip(t *testing.T) {
	doc := goldDocument()
	rebuilt := NewDocument(doc.Asset(), domain.TokenSpec{
		Symbol:      doc.Symbol,
		TotalSupply: doc.TotalSupply,
		Decimals:    doc.Decimals,
	})
	assert.True(t, doc.Equal(rebuilt))
}

func TestDocument_EqualTreatsNilAsEmpty(t *testing.T) {
	a := goldDocument()
	b := goldDocument()
	a.LegalReferences, b.LegalReferences = nil, []string{}
	a.Attributes, b.Attributes = nil, map[string]string{}
	assert.True(t, a.Equal(b))

	b.Attributes = map[string]string{"k": "v"}
	assert.False(t, a.Equal(b))
}

func mustEncode(t *testing.T, d Document) string {
	t.Helper()
	blob, err := Encode(d)
	if err != nil {
		panic(fmt.Sprintf("encode: %v", err))
	}
	return blob
}
