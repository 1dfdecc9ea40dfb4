package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"crypto-portfolio-go/internal/models"
	"go.uber.org/zap"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// DefaultKey is the storage key holding the serialized portfolio.
const DefaultKey = "portfolio"

// PortfolioStore keeps the ordered holdings list under one key.
type PortfolioStore struct {
	db     *gorm.DB
	key    string
	logger *zap.Logger
}

// NewPortfolioStore creates a store writing under key, or DefaultKey when key is empty.
func NewPortfolioStore(db *gorm.DB, key string, logger *zap.Logger) *PortfolioStore {
	if key == "" {
		key = DefaultKey
	}
	return &PortfolioStore{
		db:     db,
		key:    key,
		logger: logger.Named("storage"),
	}
}

// Save overwrites the stored holdings with the given ordered sequence.
func (s *PortfolioStore) Save(ctx context.Context, holdings []models.Holding) error {
	if holdings == nil {
		holdings = []models.Holding{}
	}
	payload, err := json.Marshal(holdings)
	if err != nil {
		return fmt.Errorf("failed to encode portfolio: %w", err)
	}

	entry := models.Entry{Key: s.key, Value: string(payload)}
	err = s.db.WithContext(ctx).
		Clauses(clause.OnConflict{UpdateAll: true}).
		Create(&entry).Error
	if err != nil {
		return fmt.Errorf("failed to write portfolio under key %q: %w", s.key, err)
	}

	s.logger.Debug("Portfolio saved", zap.String("key", s.key), zap.Int("holdings", len(holdings)))
	return nil
}

// Load returns the stored holdings in stored order.
// An absent or malformed entry yields an empty portfolio.
func (s *PortfolioStore) Load(ctx context.Context) ([]models.Holding, error) {
	var entry models.Entry
	err := s.db.WithContext(ctx).Where("key = ?", s.key).First(&entry).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return []models.Holding{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read portfolio under key %q: %w", s.key, err)
	}

	var holdings []models.Holding
	if err := json.Unmarshal([]byte(entry.Value), &holdings); err != nil {
		s.logger.Warn("Stored portfolio is malformed, starting empty", zap.String("key", s.key), zap.Error(err))
		return []models.Holding{}, nil
	}
	if holdings == nil {
		holdings = []models.Holding{}
	}
	return holdings, nil
}
