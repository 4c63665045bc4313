package services

import (
	"context"
	"errors"

	"gorm.io/gorm"

	apperrors "rwatoken/internal/errors"
	"rwatoken/internal/models"
	"rwatoken/internal/pagination"
)

// tokenService handles reads of issued tokens.
type tokenService struct {
	db *gorm.DB
}

// NewTokenService creates a new TokenServicer.
func NewTokenService(db *gorm.DB) TokenServicer {
	return &tokenService{db: db}
}

// GetTokenBySymbol retrieves a token and its asset.
func (s *tokenService) GetTokenBySymbol(ctx context.Context, symbol string) (*models.Token, error) {
	var token models.Token
	if err := s.db.WithContext(ctx).Preload("Asset").Where("symbol = ?", symbol).First(&token).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.ErrTokenNotFound
		}
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	return &token, nil
}

// GetUserTokens retrieves a paginated list of tokens the user issued.
func (s *tokenService) GetUserTokens(ctx context.Context, userID string, page pagination.PageRequest) (*pagination.PageResponse[models.Token], error) {
	page.Defaults()

	var totalItems int64
	base := s.db.WithContext(ctx).Model(&models.Token{}).Where("created_by = ?", userID)
	if err := base.Count(&totalItems).Error; err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}

	var tokens []models.Token
	if err := base.Scopes(pagination.Paginate(page, "created_at DESC", "id DESC")).Find(&tokens).Error; err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}

	result := pagination.NewPageResponse(tokens, page.Page, page.PageSize, totalItems)
	return &result, nil
}
