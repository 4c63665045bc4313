package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"rwatoken/internal/services"
)

// TokenHandler serves reads of issued tokens and the caller's holdings.
type TokenHandler struct {
	tokenService     services.TokenServicer
	portfolioService services.PortfolioServicer
}

// NewTokenHandler creates a new TokenHandler.
func NewTokenHandler(tokenService services.TokenServicer, portfolioService services.PortfolioServicer) *TokenHandler {
	return &TokenHandler{tokenService: tokenService, portfolioService: portfolioService}
}

// GetToken handles retrieving a token by symbol.
// @Summary     Get token
// @Description Get an issued token and its asset by symbol
// @Tags        tokens
// @Produce     json
// @Security    BearerAuth
// @Param       symbol path string true "Token symbol"
// @Success     200 {object} map[string]interface{} "Token details"
// @Failure     404 {object} ErrorResponse "Token not found"
// @Router      /tokens/{symbol} [get]
func (h *TokenHandler) GetToken(c *gin.Context) {
	symbol, err := pathParam(c, "symbol")
	if err != nil {
		respondWithError(c, err)
		return
	}

	token, err := h.tokenService.GetTokenBySymbol(c.Request.Context(), symbol)
	if err != nil {
		respondWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"token": token})
}

// ListTokens handles listing the tokens the caller issued.
// @Summary     List my tokens
// @Tags        tokens
// @Produce     json
// @Security    BearerAuth
// @Param       page      query int false "Page number"
// @Param       page_size query int false "Page size (max 100)"
// @Success     200 {object} map[string]interface{} "Paginated tokens"
// @Failure     401 {object} ErrorResponse "Unauthorized"
// @Router      /tokens [get]
func (h *TokenHandler) ListTokens(c *gin.Context) {
	userID, err := getUserID(c)
	if err != nil {
		respondWithError(c, err)
		return
	}
	page, err := bindPage(c)
	if err != nil {
		respondWithError(c, err)
		return
	}

	result, err := h.tokenService.GetUserTokens(c.Request.Context(), userID, page)
	if err != nil {
		respondWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, result)
}

// GetPortfolio handles listing the caller's portfolio entries.
// @Summary     Get my portfolio
// @Tags        portfolio
// @Produce     json
// @Security    BearerAuth
// @Param       page      query int false "Page number"
// @Param       page_size query int false "Page size (max 100)"
// @Success     200 {object} map[string]interface{} "Paginated portfolio entries"
// @Failure     401 {object} ErrorResponse "Unauthorized"
// @Router      /portfolio [get]
func (h *TokenHandler) GetPortfolio(c *gin.Context) {
	userID, err := getUserID(c)
	if err != nil {
		respondWithError(c, err)
		return
	}
	page, err := bindPage(c)
	if err != nil {
		respondWithError(c, err)
		return
	}

	result, err := h.portfolioService.GetUserEntries(c.Request.Context(), userID, page)
	if err != nil {
		respondWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, result)
}
