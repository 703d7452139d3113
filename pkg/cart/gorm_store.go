package cart

import (
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Slot is one row of the cart_slots table.
type Slot struct {
	Key       string `gorm:"primaryKey;column:slot_key;size:191"`
	Data      []byte
	UpdatedAt time.Time
}

// TableName overrides the default table name.
func (Slot) TableName() string {
	return "cart_slots"
}

// GormStore keeps slots in a database table.
type GormStore struct {
	db *gorm.DB
}

// NewGormStore migrates the cart_slots table and returns a store backed by it.
func NewGormStore(db *gorm.DB) (*GormStore, error) {
	if err := db.AutoMigrate(&Slot{}); err != nil {
		return nil, fmt.Errorf("failed to migrate cart slots: %w", err)
	}
	return &GormStore{db: db}, nil
}

// Load returns the slot saved under key.
func (s *GormStore) Load(key string) ([]byte, error) {
	var slot Slot
	if err := s.db.First(&slot, "slot_key = ?", key).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrSlotNotFound
		}
		return nil, err
	}
	return slot.Data, nil
}

// Save upserts the slot under key.
func (s *GormStore) Save(key string, data []byte) error {
	slot := Slot{Key: key, Data: data, UpdatedAt: time.Now()}
	return s.db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "slot_key"}},
		DoUpdates: clause.AssignmentColumns([]string{"data", "updated_at"}),
	}).Create(&slot).Error
}
