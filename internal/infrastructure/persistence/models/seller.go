package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/sellerpnl/backend/internal/domain/seller"
)

// StoreModel is the persistence model for a seller store
type StoreModel struct {
	ID        uuid.UUID `gorm:"type:uuid;primary_key"`
	Name      string    `gorm:"type:varchar(200);not null"`
	Timezone  string    `gorm:"type:varchar(64);not null;default:''"`
	CreatedAt time.Time `gorm:"not null"`
}

// TableName returns the table name for GORM
func (StoreModel) TableName() string {
	return "stores"
}

// ToDomain converts the persistence model to a domain Store
func (m *StoreModel) ToDomain() *seller.Store {
	return &seller.Store{ID: m.ID, Name: m.Name, Timezone: m.Timezone, CreatedAt: m.CreatedAt}
}

// StoreModelFromDomain creates a persistence model from a domain Store
func StoreModelFromDomain(s *seller.Store) *StoreModel {
	return &StoreModel{ID: s.ID, Name: s.Name, Timezone: s.Timezone, CreatedAt: s.CreatedAt}
}
