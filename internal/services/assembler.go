package services

import (
	"fmt"

	"rwatoken/internal/domain"
)

type documentStub struct {
	kind     string
	title    string
	required bool
}

var baseDocuments = []documentStub{
	{kind: "offering_memorandum", title: "Offering memorandum", required: true},
	{kind: "token_terms", title: "Token terms and conditions", required: true},
	{kind: "kyc_aml_policy", title: "KYC/AML policy", required: true},
}

var categoryDocuments = map[domain.AssetCategory][]documentStub{
	domain.AssetCategoryRealEstate: {
		{kind: "title_deed", title: "Title deed", required: true},
		{kind: "property_appraisal", title: "Independent property appraisal", required: true},
		{kind: "insurance_certificate", title: "Property insurance certificate"},
	},
	domain.AssetCategoryPreciousMetal: {
		{kind: "custody_certificate", title: "Vault custody certificate", required: true},
		{kind: "assay_report", title: "Assay report", required: true},
		{kind: "audit_report", title: "Periodic bar-list audit"},
	},
	domain.AssetCategoryCommodity: {
		{kind: "custody_certificate", title: "Warehouse custody certificate", required: true},
		{kind: "quality_certificate", title: "Quality certificate", required: true},
	},
	domain.AssetCategoryArt: {
		{kind: "provenance_record", title: "Provenance record", required: true},
		{kind: "authenticity_certificate", title: "Certificate of authenticity", required: true},
		{kind: "condition_report", title: "Condition report"},
	},
	domain.AssetCategoryCollectible: {
		{kind: "authenticity_certificate", title: "Certificate of authenticity", required: true},
		{kind: "condition_report", title: "Condition report"},
	},
	domain.AssetCategoryEquity: {
		{kind: "shareholder_agreement", title: "Shareholder agreement", required: true},
		{kind: "cap_table", title: "Capitalisation table", required: true},
	},
	domain.AssetCategoryDebt: {
		{kind: "loan_agreement", title: "Loan agreement", required: true},
		{kind: "collateral_schedule", title: "Collateral schedule"},
	},
}

// complianceDocuments lists the document stubs the issuer has to complete
// for an asset category.
func complianceDocuments(category domain.AssetCategory) []domain.ComplianceDocument {
	stubs := append(append([]documentStub(nil), baseDocuments...), categoryDocuments[category]...)
	docs := make([]domain.ComplianceDocument, 0, len(stubs))
	for _, s := range stubs {
		docs = append(docs, domain.ComplianceDocument{
			Type:     s.kind,
			Title:    s.title,
			Status:   "pending",
			Required: s.required,
		})
	}
	return docs
}

// assemble builds the caller-facing result. It performs no I/O.
func assemble(rec *issuanceRecord, rep *bookkeepingReport, warnings []string) *domain.TokenizationResult {
	fact := rec.issuing()
	token := rec.Token
	if rep.asset != nil {
		token.AssetID = rep.asset.ID
	}
	if rep.token != nil {
		token.TokenID = rep.token.ID
	}
	if rep.entry != nil {
		token.PortfolioID = rep.entry.PortfolioID
		token.EntryQuantity = rep.entry.Quantity
	}

	bookkeeping := domain.BookkeepingOutcome{
		Status:         rep.status(),
		CompletedSteps: nonNil(rep.completed),
		FailedSteps:    rep.failed,
	}
	if len(rep.failed) > 0 {
		bookkeeping.ReconciliationRef = rec.OperationID
	}

	return &domain.TokenizationResult{
		OperationID: rec.OperationID,
		Ledger:      domain.LedgerOutcome{Status: "validated", Transaction: fact.Result},
		Bookkeeping: bookkeeping,
		Token:       token,
		Economics:   computeEconomics(rec.Asset, rec.Spec),
		Documents:   complianceDocuments(rec.Asset.Category),
		Warnings:    nonNil(append(append([]string(nil), warnings...), rep.warnings...)),
		NextSteps:   nextSteps(rec, bookkeeping, fact.Result.Hash),
	}
}

func nextSteps(rec *issuanceRecord, bookkeeping domain.BookkeepingOutcome, hash string) []string {
	var steps []string
	if bookkeeping.ReconciliationRef != "" {
		steps = append(steps, fmt.Sprintf(
			"Bookkeeping is queued for reconciliation under %s; it will complete without another ledger submission",
			bookkeeping.ReconciliationRef))
	}
	steps = append(steps, "Upload the required compliance documents")

	t := rec.Token
	switch t.Mode {
	case domain.IssuanceModeTrustLine:
		steps = append(steps, fmt.Sprintf("Holders open a trust line to %s for %s before receiving tokens", t.Issuer, t.CurrencyCode))
		steps = append(steps, fmt.Sprintf("Distribute %s from the distributor account %s", t.Symbol, rec.Distributor))
	default:
		steps = append(steps, fmt.Sprintf("Holders opt in to issuance %s with MPTokenAuthorize before receiving tokens", t.IssuanceID))
		if domain.IsSet(rec.Spec.AuthRequired) {
			steps = append(steps, "Authorize each approved holder from the issuer account")
		}
	}
	steps = append(steps, fmt.Sprintf("Check the issuance at any time by transaction hash %s", hash))
	return steps
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
