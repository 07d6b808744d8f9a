package services

import (
	"errors"
	"strings"

	"gorm.io/gorm"

	apperrors "brokersync/internal/errors"
	"brokersync/internal/models"
	"brokersync/internal/pagination"
)

// registryService is the durable keyed store of confirmed broker-symbol to
// ticker mappings. Writes are last-write-wins on broker_symbol; there is no
// merge or conflict resolution because the store is local and single-user.
type registryService struct {
	db *gorm.DB
}

// NewRegistryService creates a new RegistryServicer.
func NewRegistryService(db *gorm.DB) RegistryServicer {
	return &registryService{db: db}
}

// Get returns the mapping for a broker symbol, or ErrMappingNotFound.
func (s *registryService) Get(brokerSymbol string) (*models.SymbolMapping, error) {
	var mapping models.SymbolMapping
	err := s.db.Where("broker_symbol = ?", normalizeSymbol(brokerSymbol)).First(&mapping).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.ErrMappingNotFound
		}
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	return &mapping, nil
}

// Upsert writes a mapping, overwriting any existing entry for the same
// broker symbol entirely.
func (s *registryService) Upsert(brokerSymbol, ticker string, source models.MappingSource, confidence int) (*models.SymbolMapping, error) {
	brokerSymbol = normalizeSymbol(brokerSymbol)
	ticker = normalizeSymbol(ticker)
	if brokerSymbol == "" {
		return nil, apperrors.WithMessage(apperrors.ErrInvalidInput, "Broker symbol is required")
	}
	if ticker == "" {
		return nil, apperrors.WithMessage(apperrors.ErrInvalidInput, "Ticker is required")
	}
	if confidence < 0 || confidence > 100 {
		return nil, apperrors.WithMessage(apperrors.ErrInvalidInput, "Confidence must be between 0 and 100")
	}

	var mapping models.SymbolMapping
	err := s.db.Where("broker_symbol = ?", brokerSymbol).First(&mapping).Error
	switch {
	case errors.Is(err, gorm.ErrRecordNotFound):
		mapping = models.SymbolMapping{
			BrokerSymbol: brokerSymbol,
			YahooTicker:  ticker,
			Source:       source,
			Confidence:   confidence,
		}
		if err := s.db.Create(&mapping).Error; err != nil {
			return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
		}
	case err != nil:
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	default:
		updates := map[string]interface{}{
			"yahoo_ticker": ticker,
			"source":       source,
			"confidence":   confidence,
		}
		if err := s.db.Model(&mapping).Updates(updates).Error; err != nil {
			return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
		}
	}

	return &mapping, nil
}

// List returns a paginated list of learned mappings ordered by broker symbol.
func (s *registryService) List(page pagination.PageRequest) (*pagination.PageResponse[models.SymbolMapping], error) {
	page.Defaults()

	var totalItems int64
	base := s.db.Model(&models.SymbolMapping{})
	if err := base.Count(&totalItems).Error; err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}

	var mappings []models.SymbolMapping
	if err := base.Order("broker_symbol ASC").Scopes(pagination.Paginate(page)).Find(&mappings).Error; err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}

	result := pagination.NewPageResponse(mappings, page.Page, page.PageSize, totalItems)
	return &result, nil
}

// Delete removes a learned mapping by broker symbol.
func (s *registryService) Delete(brokerSymbol string) error {
	result := s.db.Where("broker_symbol = ?", normalizeSymbol(brokerSymbol)).Delete(&models.SymbolMapping{})
	if result.Error != nil {
		return apperrors.Wrap(apperrors.ErrInternalServer, result.Error)
	}
	if result.RowsAffected == 0 {
		return apperrors.ErrMappingNotFound
	}
	return nil
}

// normalizeSymbol trims and uppercases a symbol so registry keys are stable
// across broker exports.
func normalizeSymbol(symbol string) string {
	return strings.ToUpper(strings.TrimSpace(symbol))
}
