package handlers

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"

	"rwatoken/internal/domain"
	"rwatoken/internal/services"
)

// TokenizationHandler handles issuance requests.
type TokenizationHandler struct {
	tokenizationService services.TokenizationServicer
	creds               domain.IssuerCredentials
}

// NewTokenizationHandler creates a new TokenizationHandler. creds is the
// server-held issuer key material; callers never send secrets.
func NewTokenizationHandler(tokenizationService services.TokenizationServicer, creds domain.IssuerCredentials) *TokenizationHandler {
	return &TokenizationHandler{tokenizationService: tokenizationService, creds: creds}
}

// ValuationRequest is the appraised value of the asset.
type ValuationRequest struct {
	Amount   decimal.Decimal `json:"amount" swaggertype:"string"`
	Currency string          `json:"currency,omitempty" binding:"omitempty,iso4217"`
	Method   string          `json:"method,omitempty" binding:"max=100"`
	Date     string          `json:"date,omitempty" binding:"omitempty,iso_date"`
}

// AssetRequest describes the real-world asset.
type AssetRequest struct {
	Name            string            `json:"name" binding:"required,max=200"`
	Category        string            `json:"category" binding:"required,asset_category"`
	Description     string            `json:"description,omitempty" binding:"max=2000"`
	Location        string            `json:"location,omitempty" binding:"max=200"`
	Custodian       string            `json:"custodian,omitempty" binding:"max=200"`
	Jurisdiction    string            `json:"jurisdiction,omitempty" binding:"max=100"`
	Currency        string            `json:"currency" binding:"required,iso4217"`
	FaceValue       decimal.Decimal   `json:"face_value" swaggertype:"string"`
	IssueDate       string            `json:"issue_date,omitempty" binding:"omitempty,iso_date"`
	Valuation       ValuationRequest  `json:"valuation"`
	LegalReferences []string          `json:"legal_references,omitempty" binding:"omitempty,max=20,dive,required,max=500"`
	Attributes      map[string]string `json:"attributes,omitempty" binding:"omitempty,max=50"`
}

// TokenRequest describes the token to issue.
type TokenRequest struct {
	Symbol             string           `json:"symbol" binding:"required,token_symbol"`
	TotalSupply        uint64           `json:"total_supply" binding:"required,min=1"`
	Decimals           uint8            `json:"decimals" binding:"max=15"`
	Mode               string           `json:"mode,omitempty" binding:"issuance_mode"`
	Transferable       *bool            `json:"transferable,omitempty"`
	Burnable           *bool            `json:"burnable,omitempty"`
	Mintable           *bool            `json:"mintable,omitempty"`
	Freezable          *bool            `json:"freezable,omitempty"`
	Tradable           *bool            `json:"tradable,omitempty"`
	Clawback           *bool            `json:"clawback,omitempty"`
	AuthRequired       *bool            `json:"auth_required,omitempty"`
	TransferFeePercent *decimal.Decimal `json:"transfer_fee_percent,omitempty" swaggertype:"string"`
}

// TokenizeRequest represents the request payload for a tokenization.
type TokenizeRequest struct {
	WalletAddress string       `json:"wallet_address" binding:"required,xrpl_address"`
	Asset         AssetRequest `json:"asset"`
	Token         TokenRequest `json:"token"`
}

func (r TokenizeRequest) toDomain() (domain.AssetDescriptor, domain.TokenSpec) {
	a := r.Asset
	asset := domain.AssetDescriptor{
		Name:         a.Name,
		Category:     domain.AssetCategory(a.Category),
		Description:  a.Description,
		Location:     a.Location,
		Custodian:    a.Custodian,
		Jurisdiction: a.Jurisdiction,
		Currency:     a.Currency,
		FaceValue:    a.FaceValue,
		IssueDate:    a.IssueDate,
		Valuation: domain.Valuation{
			Amount:   a.Valuation.Amount,
			Currency: a.Valuation.Currency,
			Method:   a.Valuation.Method,
			Date:     a.Valuation.Date,
		},
		LegalReferences: a.LegalReferences,
		Attributes:      a.Attributes,
	}

	t := r.Token
	spec := domain.TokenSpec{
		Symbol:             t.Symbol,
		TotalSupply:        t.TotalSupply,
		Decimals:           t.Decimals,
		Mode:               domain.IssuanceMode(t.Mode),
		Transferable:       t.Transferable,
		Burnable:           t.Burnable,
		Mintable:           t.Mintable,
		Freezable:          t.Freezable,
		Tradable:           t.Tradable,
		Clawback:           t.Clawback,
		AuthRequired:       t.AuthRequired,
		TransferFeePercent: t.TransferFeePercent,
	}
	return asset, spec
}

type issueFunc func(ctx context.Context, asset domain.AssetDescriptor, spec domain.TokenSpec, creds domain.IssuerCredentials, caller domain.Caller) (*domain.TokenizationResult, error)

// Tokenize handles a tokenization in either issuance mode.
// @Summary     Tokenize an asset
// @Description Issue a token backed by a real-world asset on the XRP Ledger and record it
// @Tags        tokenizations
// @Accept      json
// @Produce     json
// @Security    BearerAuth
// @Param       request body TokenizeRequest true "Asset and token details"
// @Success     201 {object} domain.TokenizationResult "Issued and fully recorded"
// @Success     202 {object} domain.TokenizationResult "Issued; bookkeeping queued for reconciliation"
// @Failure     400 {object} ErrorResponse "Invalid input"
// @Failure     401 {object} ErrorResponse "Unauthorized"
// @Failure     409 {object} ErrorResponse "Duplicate symbol or tokenization in progress"
// @Failure     422 {object} ErrorResponse "Rejected by the ledger"
// @Failure     429 {object} ErrorResponse "Rate limited"
// @Failure     502 {object} ErrorResponse "Ledger unavailable"
// @Failure     503 {object} ErrorResponse "Coordination store unavailable"
// @Router      /tokenizations [post]
func (h *TokenizationHandler) Tokenize(c *gin.Context) {
	h.issue(c, h.tokenizationService.Tokenize)
}

// MintMPT handles the multi-purpose-token-only entry point.
// @Summary     Mint a multi-purpose token
// @Description Issue an MPT backed by a real-world asset; trust-line mode is refused
// @Tags        tokenizations
// @Accept      json
// @Produce     json
// @Security    BearerAuth
// @Param       request body TokenizeRequest true "Asset and token details"
// @Success     201 {object} domain.TokenizationResult "Issued and fully recorded"
// @Success     202 {object} domain.TokenizationResult "Issued; bookkeeping queued for reconciliation"
// @Failure     400 {object} ErrorResponse "Invalid input"
// @Failure     409 {object} ErrorResponse "Duplicate symbol or tokenization in progress"
// @Router      /mpt/issuances [post]
func (h *TokenizationHandler) MintMPT(c *gin.Context) {
	h.issue(c, h.tokenizationService.MintMPT)
}

func (h *TokenizationHandler) issue(c *gin.Context, run issueFunc) {
	userID, err := getUserID(c)
	if err != nil {
		respondWithError(c, err)
		return
	}

	var req TokenizeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondWithError(c, bindingError(err))
		return
	}

	asset, spec := req.toDomain()
	caller := domain.Caller{
		UserID:        userID,
		WalletAddress: req.WalletAddress,
		IPAddress:     c.ClientIP(),
	}

	result, err := run(c.Request.Context(), asset, spec, h.creds, caller)
	if err != nil {
		respondWithError(c, err)
		return
	}

	status := http.StatusCreated
	if result.Bookkeeping.Status != domain.BookkeepingComplete {
		status = http.StatusAccepted
	}
	c.JSON(status, result)
}
