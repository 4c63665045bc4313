package handlers

import (
	"context"
	"net/http"
	"testing"

	"github.com/gin-gonic/gin"

	"rwatoken/internal/domain"
	apperrors "rwatoken/internal/errors"
	"rwatoken/internal/ledger/ledgertest"
	"rwatoken/internal/services"
)

// --- mock tokenization service ---

type mockTokenizationService struct {
	tokenizeFn func(ctx context.Context, asset domain.AssetDescriptor, spec domain.TokenSpec, creds domain.IssuerCredentials, caller domain.Caller) (*domain.TokenizationResult, error)
	mintMPTFn  func(ctx context.Context, asset domain.AssetDescriptor, spec domain.TokenSpec, creds domain.IssuerCredentials, caller domain.Caller) (*domain.TokenizationResult, error)
}

var _ services.TokenizationServicer = (*mockTokenizationService)(nil)

func (m *mockTokenizationService) Tokenize(ctx context.Context, asset domain.AssetDescriptor, spec domain.TokenSpec, creds domain.IssuerCredentials, caller domain.Caller) (*domain.TokenizationResult, error) {
	if m.tokenizeFn != nil {
		return m.tokenizeFn(ctx, asset, spec, creds, caller)
	}
	return completeResult(spec), nil
}

func (m *mockTokenizationService) MintMPT(ctx context.Context, asset domain.AssetDescriptor, spec domain.TokenSpec, creds domain.IssuerCredentials, caller domain.Caller) (*domain.TokenizationResult, error) {
	if m.mintMPTFn != nil {
		return m.mintMPTFn(ctx, asset, spec, creds, caller)
	}
	return completeResult(spec), nil
}

func completeResult(spec domain.TokenSpec) *domain.TokenizationResult {
	return &domain.TokenizationResult{
		OperationID: "op-1",
		Ledger:      domain.LedgerOutcome{Status: "validated", Transaction: domain.LedgerTransactionResult{Hash: "ABC", Validated: true}},
		Bookkeeping: domain.BookkeepingOutcome{Status: domain.BookkeepingComplete, CompletedSteps: []string{"asset", "token"}},
		Token:       domain.TokenIdentity{Symbol: spec.Symbol, TotalSupply: spec.TotalSupply, Mode: spec.EffectiveMode()},
	}
}

// --- router setup ---

var testCreds = domain.IssuerCredentials{Address: ledgertest.Address(1), Secret: "sIssuer"}

func setupTokenizationRouter(handler *TokenizationHandler) *gin.Engine {
	r := gin.New()
	auth := r.Group("", injectUserID("user-1"))
	auth.POST("/tokenizations", handler.Tokenize)
	auth.POST("/mpt/issuances", handler.MintMPT)
	r.POST("/anonymous/tokenizations", handler.Tokenize)
	return r
}

func goldBody() string {
	return `{
		"wallet_address": "` + ledgertest.Address(9) + `",
		"asset": {
			"name": "London Good Delivery Gold Bar",
			"category": "precious_metal",
			"currency": "USD",
			"face_value": "1000000",
			"custodian": "Brinks",
			"valuation": {"amount": "1000000", "currency": "USD", "method": "spot", "date": "2024-01-31"},
			"legal_references": ["LBMA-2024-001"]
		},
		"token": {
			"symbol": "GOLD001",
			"total_supply": 500000,
			"decimals": 6,
			"transferable": true,
			"transfer_fee_percent": "0.5"
		}
	}`
}

// --- tests ---

func TestTokenizationHandler_Tokenize(t *testing.T) {
	t.Run("returns_201_on_complete_bookkeeping", func(t *testing.T) {
		var gotAsset domain.AssetDescriptor
		var gotSpec domain.TokenSpec
		var gotCreds domain.IssuerCredentials
		var gotCaller domain.Caller
		svc := &mockTokenizationService{
			tokenizeFn: func(_ context.Context, asset domain.AssetDescriptor, spec domain.TokenSpec, creds domain.IssuerCredentials, caller domain.Caller) (*domain.TokenizationResult, error) {
				gotAsset, gotSpec, gotCreds, gotCaller = asset, spec, creds, caller
				return completeResult(spec), nil
			},
		}
		r := setupTokenizationRouter(NewTokenizationHandler(svc, testCreds))

		rec := doRequest(r, http.MethodPost, "/tokenizations", goldBody())

		if rec.Code != http.StatusCreated {
			t.Fatalf("expected 201, got %d: %s", rec.Code, rec.Body.String())
		}
		result := parseJSON(t, rec)
		if result["operation_id"] != "op-1" {
			t.Errorf("expected operation_id=op-1, got %v", result["operation_id"])
		}
		if gotAsset.Category != domain.AssetCategoryPreciousMetal || gotAsset.Valuation.Amount.String() != "1000000" {
			t.Errorf("asset not mapped: %+v", gotAsset)
		}
		if gotSpec.Symbol != "GOLD001" || gotSpec.TotalSupply != 500000 || gotSpec.Decimals != 6 {
			t.Errorf("spec not mapped: %+v", gotSpec)
		}
		if !domain.IsSet(gotSpec.Transferable) || gotSpec.Burnable != nil {
			t.Errorf("tri-state flags not preserved: transferable=%v burnable=%v", gotSpec.Transferable, gotSpec.Burnable)
		}
		if gotSpec.TransferFeePercent == nil || gotSpec.TransferFeePercent.String() != "0.5" {
			t.Errorf("transfer fee not mapped: %v", gotSpec.TransferFeePercent)
		}
		if gotCreds != testCreds {
			t.Error("expected server-held credentials to be passed through")
		}
		if gotCaller.UserID != "user-1" || gotCaller.WalletAddress != ledgertest.Address(9) || gotCaller.IPAddress == "" {
			t.Errorf("caller not populated: %+v", gotCaller)
		}
	})

	t.Run("returns_202_on_degraded_bookkeeping", func(t *testing.T) {
		svc := &mockTokenizationService{
			tokenizeFn: func(_ context.Context, _ domain.AssetDescriptor, spec domain.TokenSpec, _ domain.IssuerCredentials, _ domain.Caller) (*domain.TokenizationResult, error) {
				res := completeResult(spec)
				res.Bookkeeping = domain.BookkeepingOutcome{
					Status:            domain.BookkeepingDegraded,
					CompletedSteps:    []string{},
					FailedSteps:       []string{"asset", "token"},
					ReconciliationRef: "op-1",
				}
				res.Warnings = []string{"asset record was not written"}
				return res, nil
			},
		}
		r := setupTokenizationRouter(NewTokenizationHandler(svc, testCreds))

		rec := doRequest(r, http.MethodPost, "/tokenizations", goldBody())

		if rec.Code != http.StatusAccepted {
			t.Fatalf("expected 202, got %d: %s", rec.Code, rec.Body.String())
		}
		result := parseJSON(t, rec)
		ledger := result["ledger"].(map[string]interface{})
		if ledger["status"] != "validated" {
			t.Errorf("expected ledger status validated, got %v", ledger["status"])
		}
		bk := result["bookkeeping"].(map[string]interface{})
		if bk["reconciliation_ref"] != "op-1" {
			t.Errorf("expected reconciliation_ref=op-1, got %v", bk["reconciliation_ref"])
		}
	})

	t.Run("returns_202_when_ledger_pending", func(t *testing.T) {
		svc := &mockTokenizationService{
			tokenizeFn: func(context.Context, domain.AssetDescriptor, domain.TokenSpec, domain.IssuerCredentials, domain.Caller) (*domain.TokenizationResult, error) {
				return nil, apperrors.WithDetails(apperrors.ErrLedgerPending, "tx_hash", "ABC", "operation_id", "op-1")
			},
		}
		r := setupTokenizationRouter(NewTokenizationHandler(svc, testCreds))

		rec := doRequest(r, http.MethodPost, "/tokenizations", goldBody())

		if rec.Code != http.StatusAccepted {
			t.Fatalf("expected 202, got %d", rec.Code)
		}
		result := parseJSON(t, rec)
		assertErrorCode(t, result, "LEDGER_PENDING")
		if errorDetails(t, result)["tx_hash"] != "ABC" {
			t.Error("expected tx_hash in details")
		}
	})

	t.Run("returns_409_in_progress_with_operation_id", func(t *testing.T) {
		svc := &mockTokenizationService{
			tokenizeFn: func(context.Context, domain.AssetDescriptor, domain.TokenSpec, domain.IssuerCredentials, domain.Caller) (*domain.TokenizationResult, error) {
				return nil, apperrors.WithDetails(apperrors.ErrTokenizationInProgress, "operation_id", "first-op")
			},
		}
		r := setupTokenizationRouter(NewTokenizationHandler(svc, testCreds))

		rec := doRequest(r, http.MethodPost, "/tokenizations", goldBody())

		if rec.Code != http.StatusConflict {
			t.Fatalf("expected 409, got %d", rec.Code)
		}
		result := parseJSON(t, rec)
		assertErrorCode(t, result, "TOKENIZATION_IN_PROGRESS")
		if errorDetails(t, result)["operation_id"] != "first-op" {
			t.Error("expected the first operation id in details")
		}
	})

	t.Run("maps_service_errors", func(t *testing.T) {
		tests := []struct {
			err    *apperrors.AppError
			status int
		}{
			{apperrors.ErrRateLimited, http.StatusTooManyRequests},
			{apperrors.ErrDuplicateSymbol, http.StatusConflict},
			{apperrors.ErrLedgerRejected, http.StatusUnprocessableEntity},
			{apperrors.ErrLedgerUnavailable, http.StatusBadGateway},
			{apperrors.ErrCacheUnavailable, http.StatusServiceUnavailable},
			{apperrors.ErrNotConfigured, http.StatusServiceUnavailable},
		}
		for _, tt := range tests {
			t.Run(tt.err.Code, func(t *testing.T) {
				svc := &mockTokenizationService{
					tokenizeFn: func(context.Context, domain.AssetDescriptor, domain.TokenSpec, domain.IssuerCredentials, domain.Caller) (*domain.TokenizationResult, error) {
						return nil, tt.err
					},
				}
				r := setupTokenizationRouter(NewTokenizationHandler(svc, testCreds))
				rec := doRequest(r, http.MethodPost, "/tokenizations", goldBody())
				if rec.Code != tt.status {
					t.Fatalf("expected %d, got %d", tt.status, rec.Code)
				}
				assertErrorCode(t, parseJSON(t, rec), tt.err.Code)
			})
		}
	})

	t.Run("returns_401_without_user", func(t *testing.T) {
		r := setupTokenizationRouter(NewTokenizationHandler(&mockTokenizationService{}, testCreds))
		rec := doRequest(r, http.MethodPost, "/anonymous/tokenizations", goldBody())
		if rec.Code != http.StatusUnauthorized {
			t.Fatalf("expected 401, got %d", rec.Code)
		}
		assertErrorCode(t, parseJSON(t, rec), "UNAUTHORIZED")
	})
}

func TestTokenizationHandler_InvalidInput(t *testing.T) {
	called := false
	svc := &mockTokenizationService{
		tokenizeFn: func(context.Context, domain.AssetDescriptor, domain.TokenSpec, domain.IssuerCredentials, domain.Caller) (*domain.TokenizationResult, error) {
			called = true
			return nil, nil
		},
	}
	r := setupTokenizationRouter(NewTokenizationHandler(svc, testCreds))

	wallet := ledgertest.Address(9)
	asset := `"asset":{"name":"Bar","category":"precious_metal","currency":"USD","valuation":{"amount":"10"}}`
	tests := []struct {
		name      string
		body      string
		wantField string
	}{
		{
			name:      "missing_wallet",
			body:      `{` + asset + `,"token":{"symbol":"GOLD001","total_supply":1}}`,
			wantField: "wallet_address",
		},
		{
			name:      "bad_wallet",
			body:      `{"wallet_address":"not-an-address",` + asset + `,"token":{"symbol":"GOLD001","total_supply":1}}`,
			wantField: "wallet_address",
		},
		{
			name:      "reserved_symbol",
			body:      `{"wallet_address":"` + wallet + `",` + asset + `,"token":{"symbol":"XRP","total_supply":1}}`,
			wantField: "token.symbol",
		},
		{
			name:      "zero_supply",
			body:      `{"wallet_address":"` + wallet + `",` + asset + `,"token":{"symbol":"GOLD001","total_supply":0}}`,
			wantField: "token.total_supply",
		},
		{
			name:      "too_many_decimals",
			body:      `{"wallet_address":"` + wallet + `",` + asset + `,"token":{"symbol":"GOLD001","total_supply":1,"decimals":16}}`,
			wantField: "token.decimals",
		},
		{
			name:      "unknown_mode",
			body:      `{"wallet_address":"` + wallet + `",` + asset + `,"token":{"symbol":"GOLD001","total_supply":1,"mode":"nft"}}`,
			wantField: "token.mode",
		},
		{
			name:      "unknown_category",
			body:      `{"wallet_address":"` + wallet + `","asset":{"name":"Bar","category":"ship","currency":"USD"},"token":{"symbol":"GOLD001","total_supply":1}}`,
			wantField: "asset.category",
		},
		{
			name:      "unknown_currency",
			body:      `{"wallet_address":"` + wallet + `","asset":{"name":"Bar","category":"art","currency":"ZZZ"},"token":{"symbol":"GOLD001","total_supply":1}}`,
			wantField: "asset.currency",
		},
		{
			name:      "bad_valuation_date",
			body:      `{"wallet_address":"` + wallet + `","asset":{"name":"Bar","category":"art","currency":"USD","valuation":{"amount":"1","date":"yesterday"}},"token":{"symbol":"GOLD001","total_supply":1}}`,
			wantField: "asset.valuation.date",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := doRequest(r, http.MethodPost, "/tokenizations", tt.body)
			if rec.Code != http.StatusBadRequest {
				t.Fatalf("expected 400, got %d: %s", rec.Code, rec.Body.String())
			}
			result := parseJSON(t, rec)
			assertErrorCode(t, result, "INVALID_INPUT")
			if got := errorDetails(t, result)["field"]; got != tt.wantField {
				t.Errorf("field = %v, want %s", got, tt.wantField)
			}
		})
	}

	t.Run("malformed_json", func(t *testing.T) {
		rec := doRequest(r, http.MethodPost, "/tokenizations", `{"asset":`)
		if rec.Code != http.StatusBadRequest {
			t.Fatalf("expected 400, got %d", rec.Code)
		}
		assertErrorCode(t, parseJSON(t, rec), "INVALID_INPUT")
	})

	if called {
		t.Error("service must not be called for invalid input")
	}
}

func TestTokenizationHandler_MintMPT(t *testing.T) {
	t.Run("routes_to_mint_mpt", func(t *testing.T) {
		var mintCalled, tokenizeCalled bool
		svc := &mockTokenizationService{
			tokenizeFn: func(_ context.Context, _ domain.AssetDescriptor, spec domain.TokenSpec, _ domain.IssuerCredentials, _ domain.Caller) (*domain.TokenizationResult, error) {
				tokenizeCalled = true
				return completeResult(spec), nil
			},
			mintMPTFn: func(_ context.Context, _ domain.AssetDescriptor, spec domain.TokenSpec, _ domain.IssuerCredentials, _ domain.Caller) (*domain.TokenizationResult, error) {
				mintCalled = true
				return completeResult(spec), nil
			},
		}
		r := setupTokenizationRouter(NewTokenizationHandler(svc, testCreds))

		rec := doRequest(r, http.MethodPost, "/mpt/issuances", goldBody())

		if rec.Code != http.StatusCreated {
			t.Fatalf("expected 201, got %d: %s", rec.Code, rec.Body.String())
		}
		if !mintCalled || tokenizeCalled {
			t.Errorf("expected MintMPT only, mint=%v tokenize=%v", mintCalled, tokenizeCalled)
		}
	})

	t.Run("returns_400_on_trustline_mode", func(t *testing.T) {
		svc := &mockTokenizationService{
			mintMPTFn: func(context.Context, domain.AssetDescriptor, domain.TokenSpec, domain.IssuerCredentials, domain.Caller) (*domain.TokenizationResult, error) {
				return nil, apperrors.WithDetails(apperrors.ErrInvalidInput, "field", "mode")
			},
		}
		r := setupTokenizationRouter(NewTokenizationHandler(svc, testCreds))

		rec := doRequest(r, http.MethodPost, "/mpt/issuances", goldBody())

		if rec.Code != http.StatusBadRequest {
			t.Fatalf("expected 400, got %d", rec.Code)
		}
		assertErrorCode(t, parseJSON(t, rec), "INVALID_INPUT")
	})
}
