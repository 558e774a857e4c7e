// internal/service/creative/infrastructure/gorm_model.go
package infrastructure

import (
	"time"

	"adforge/internal/service/creative/domain"
)

// AdRunModel maps the ad_run table. Runs use the caller-supplied uuid as the
// primary key; the snapshots (analysis, selection) are stored as JSON text so
// reads never need a join.
type AdRunModel struct {
	ID              string       `gorm:"primaryKey;size:36"`
	ProductID       string       `gorm:"size:64;index"`
	ReferenceAdPath string       `gorm:"size:512"`
	State           domain.State `gorm:"size:16;index"`
	AnalysisJSON    string       `gorm:"type:text"`
	SelectionJSON   string       `gorm:"type:text"`
	ImagesJSON      string       `gorm:"type:text"`
	ErrorMessage    string       `gorm:"type:text"`
	ApprovedCount   int
	RejectedCount   int
	FlaggedCount    int
	CreatedAt       time.Time
	UpdatedAt       time.Time
	CompletedAt     *time.Time
}

func (AdRunModel) TableName() string {
	return "ad_run"
}

// GeneratedAdModel maps the generated_ad table. The review pair lands in two
// nullable JSON columns appended after insert; everything else is written
// once.
type GeneratedAdModel struct {
	ID             string `gorm:"primaryKey;size:36"`
	AdRunID        string `gorm:"size:36;index:idx_run_index,unique"`
	AdIndex        int    `gorm:"index:idx_run_index,unique"`
	PromptText     string `gorm:"type:text"`
	PromptSpec     string `gorm:"type:text"`
	HookRef        string `gorm:"size:64"`
	StoragePath    string `gorm:"size:512"`
	ReviewAJSON    string `gorm:"type:text"`
	ReviewBJSON    string `gorm:"type:text"`
	ReviewersAgree bool
	FinalStatus    domain.FinalStatus `gorm:"size:16;index"`
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

func (GeneratedAdModel) TableName() string {
	return "generated_ad"
}

// HookModel maps the hook bank. Rows are written by the scoring service;
// this service reads them and flips active on retirement.
type HookModel struct {
	ID             string                `gorm:"primaryKey;size:64"`
	ProductID      string                `gorm:"size:64;index"`
	Text           string                `gorm:"type:text"`
	Category       domain.HookCategory   `gorm:"size:32"`
	Framework      string                `gorm:"size:64"`
	ImpactScore    int
	EmotionalScore domain.EmotionalScore `gorm:"size:16"`
	Active         bool                  `gorm:"index"`
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

func (HookModel) TableName() string {
	return "hook"
}

// ProductModel maps the product catalog, owned by another context. Read-only
// here.
type ProductModel struct {
	ID     string              `gorm:"primaryKey;size:64"`
	Name   string              `gorm:"size:256"`
	Images []ProductImageModel `gorm:"foreignKey:ProductID"`
}

func (ProductModel) TableName() string {
	return "product"
}

type ProductImageModel struct {
	ID        uint   `gorm:"primaryKey;autoIncrement"`
	ProductID string `gorm:"size:64;index"`
	Path      string `gorm:"size:512"`
	IsMain    bool
	Position  int
}

func (ProductImageModel) TableName() string {
	return "product_image"
}
