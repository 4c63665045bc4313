package services

import (
	"context"
	"errors"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	apperrors "rwatoken/internal/errors"
	"rwatoken/internal/models"
	"rwatoken/internal/pagination"
)

// portfolioService handles portfolio bookkeeping.
type portfolioService struct {
	db *gorm.DB
}

// NewPortfolioService creates a new PortfolioServicer.
func NewPortfolioService(db *gorm.DB) PortfolioServicer {
	return &portfolioService{db: db}
}

// DefaultPortfolio returns the user's default portfolio, creating it on
// first use. Concurrent creators race on the (user_id, name) index; the
// loser re-reads the winner's row.
func (s *portfolioService) DefaultPortfolio(ctx context.Context, userID string) (*models.Portfolio, error) {
	db := s.db.WithContext(ctx)

	portfolio, err := s.findDefault(db, userID)
	if err == nil {
		return portfolio, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}

	created := &models.Portfolio{
		UserID:    userID,
		Name:      models.DefaultPortfolioName,
		IsDefault: true,
	}
	if createErr := db.Create(created).Error; createErr != nil {
		if portfolio, err := s.findDefault(db, userID); err == nil {
			return portfolio, nil
		}
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, createErr)
	}
	return created, nil
}

func (s *portfolioService) findDefault(db *gorm.DB, userID string) (*models.Portfolio, error) {
	var portfolio models.Portfolio
	err := db.Where("user_id = ? AND name = ?", userID, models.DefaultPortfolioName).First(&portfolio).Error
	if err != nil {
		return nil, err
	}
	return &portfolio, nil
}

// CreditToken appends the entry for a newly issued token. A token is
// credited once; repeated calls return the existing entry.
func (s *portfolioService) CreditToken(
	ctx context.Context,
	portfolioID string,
	token *models.Token,
	quantity uint64,
	value decimal.Decimal,
	currency string,
) (*models.PortfolioEntry, error) {
	if token == nil {
		return nil, apperrors.WithMessage(apperrors.ErrInvalidInput, "token is required")
	}
	db := s.db.WithContext(ctx)

	var existing models.PortfolioEntry
	err := db.Where("token_id = ?", token.ID).First(&existing).Error
	if err == nil {
		return &existing, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}

	entry := &models.PortfolioEntry{
		PortfolioID:      portfolioID,
		TokenID:          token.ID,
		Symbol:           token.Symbol,
		Quantity:         quantity,
		AcquisitionValue: value,
		Currency:         currency,
	}
	if err := db.Create(entry).Error; err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	return entry, nil
}

// GetUserEntries retrieves a paginated list of the user's holdings across
// all portfolios, newest first.
func (s *portfolioService) GetUserEntries(ctx context.Context, userID string, page pagination.PageRequest) (*pagination.PageResponse[models.PortfolioEntry], error) {
	page.Defaults()

	var totalItems int64
	base := s.db.WithContext(ctx).Model(&models.PortfolioEntry{}).
		Joins("JOIN portfolios ON portfolios.id = portfolio_entries.portfolio_id AND portfolios.deleted_at IS NULL").
		Where("portfolios.user_id = ?", userID)
	if err := base.Count(&totalItems).Error; err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}

	var entries []models.PortfolioEntry
	if err := base.Scopes(pagination.Paginate(page, "portfolio_entries.created_at DESC", "portfolio_entries.id DESC")).
		Find(&entries).Error; err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}

	result := pagination.NewPageResponse(entries, page.Page, page.PageSize, totalItems)
	return &result, nil
}
