package services

import (
	"strings"

	"github.com/shopspring/decimal"

	"rwatoken/internal/domain"
)

const economicsPrecision = 8

// Category baselines. Liquidity reflects how easily the underlying asset
// trades, risk how hard it is to value and custody.
var (
	categoryLiquidity = map[domain.AssetCategory]int{
		domain.AssetCategoryEquity:        70,
		domain.AssetCategoryCommodity:     65,
		domain.AssetCategoryDebt:          60,
		domain.AssetCategoryPreciousMetal: 60,
		domain.AssetCategoryRealEstate:    40,
		domain.AssetCategoryOther:         35,
		domain.AssetCategoryCollectible:   30,
		domain.AssetCategoryArt:           25,
	}
	categoryRisk = map[domain.AssetCategory]int{
		domain.AssetCategoryDebt:          30,
		domain.AssetCategoryPreciousMetal: 30,
		domain.AssetCategoryRealEstate:    40,
		domain.AssetCategoryCommodity:     45,
		domain.AssetCategoryEquity:        55,
		domain.AssetCategoryOther:         60,
		domain.AssetCategoryArt:           65,
		domain.AssetCategoryCollectible:   70,
	}
)

// computeEconomics derives the token figures from the request alone.
func computeEconomics(asset domain.AssetDescriptor, spec domain.TokenSpec) domain.TokenEconomics {
	supply := decimal.NewFromUint64(spec.TotalSupply)
	valuation := asset.Valuation.Amount

	price := valuation.Div(supply).Round(economicsPrecision)
	ratio := decimal.Zero
	if valuation.IsPositive() {
		ratio = supply.Div(valuation).Round(economicsPrecision)
	}
	risk := riskScore(asset, spec)

	return domain.TokenEconomics{
		PricePerToken:     price,
		MinimumInvestment: price,
		TokenizationRatio: ratio,
		MarketCap:         valuation,
		Currency:          valuationCurrency(asset),
		LiquidityScore:    liquidityScore(asset, spec),
		RiskScore:         risk,
		RiskLevel:         riskLevel(risk),
	}
}

func liquidityScore(asset domain.AssetDescriptor, spec domain.TokenSpec) int {
	score := categoryLiquidity[asset.Category]
	if spec.Transferable == nil || *spec.Transferable {
		score += 15
	}
	if spec.Tradable == nil || *spec.Tradable {
		score += 10
	}
	if domain.IsSet(spec.AuthRequired) {
		score -= 15
	}
	if domain.IsSet(spec.Freezable) {
		score -= 5
	}
	if spec.TotalSupply >= 1_000_000 {
		score += 5
	}
	return clampScore(score)
}

func riskScore(asset domain.AssetDescriptor, spec domain.TokenSpec) int {
	score := categoryRisk[asset.Category]
	if strings.TrimSpace(asset.Jurisdiction) == "" {
		score += 10
	}
	if strings.TrimSpace(asset.Custodian) == "" {
		score += 10
	}
	if len(asset.LegalReferences) == 0 {
		score += 10
	}
	if asset.Valuation.Method == "" || asset.Valuation.Date == "" {
		score += 5
	}
	if domain.IsSet(spec.AuthRequired) {
		score -= 5
	}
	if domain.IsSet(spec.Clawback) {
		score += 5
	}
	return clampScore(score)
}

func riskLevel(score int) string {
	switch {
	case score < 35:
		return "low"
	case score < 65:
		return "medium"
	}
	return "high"
}

func clampScore(v int) int {
	return max(0, min(100, v))
}

func valuationCurrency(asset domain.AssetDescriptor) string {
	if asset.Valuation.Currency != "" {
		return asset.Valuation.Currency
	}
	return asset.Currency
}
