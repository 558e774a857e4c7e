// internal/service/creative/infrastructure/gorm_repository.go
package infrastructure

import (
	"context"
	"errors"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"adforge/internal/service/creative/domain"
)

// GormAdRunRepository is the GORM implementation of domain.AdRunRepository.
type GormAdRunRepository struct {
	db *gorm.DB
}

func NewGormAdRunRepository(db *gorm.DB) *GormAdRunRepository {
	return &GormAdRunRepository{db: db}
}

func (r *GormAdRunRepository) Create(ctx context.Context, run *domain.AdRun) error {
	model, err := FromDomainAdRun(run)
	if err != nil {
		return err
	}
	return r.db.WithContext(ctx).Create(model).Error
}

// Save persists the whole aggregate. The pipeline writes every state
// transition through here before starting the next stage, so the row is the
// source of truth for recovery.
func (r *GormAdRunRepository) Save(ctx context.Context, run *domain.AdRun) error {
	model, err := FromDomainAdRun(run)
	if err != nil {
		return err
	}
	return r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "id"}},
			UpdateAll: true,
		}).
		Create(model).Error
}

func (r *GormAdRunRepository) FindByID(ctx context.Context, id string) (*domain.AdRun, error) {
	var model AdRunModel
	err := r.db.WithContext(ctx).Where("id = ?", id).First(&model).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domain.ErrRunNotFound
		}
		return nil, err
	}
	return ToDomainAdRun(&model)
}

// GormGeneratedAdRepository is the GORM implementation of
// domain.GeneratedAdRepository.
type GormGeneratedAdRepository struct {
	db *gorm.DB
}

func NewGormGeneratedAdRepository(db *gorm.DB) *GormGeneratedAdRepository {
	return &GormGeneratedAdRepository{db: db}
}

func (r *GormGeneratedAdRepository) Insert(ctx context.Context, ad *domain.GeneratedAd) error {
	model, err := FromDomainGeneratedAd(ad)
	if err != nil {
		return err
	}
	return r.db.WithContext(ctx).Create(model).Error
}

// SaveReviews appends the review pair to an existing row and refuses to
// touch one that already carries reviews.
func (r *GormGeneratedAdRepository) SaveReviews(ctx context.Context, ad *domain.GeneratedAd) error {
	model, err := FromDomainGeneratedAd(ad)
	if err != nil {
		return err
	}
	res := r.db.WithContext(ctx).
		Model(&GeneratedAdModel{}).
		Where("id = ? AND review_a_json = '' AND review_b_json = ''", ad.ID).
		Updates(map[string]interface{}{
			"review_a_json":   model.ReviewAJSON,
			"review_b_json":   model.ReviewBJSON,
			"reviewers_agree": model.ReviewersAgree,
			"final_status":    model.FinalStatus,
		})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return errors.New("generated ad missing or already reviewed")
	}
	return nil
}

func (r *GormGeneratedAdRepository) FindByRun(ctx context.Context, runID string) ([]*domain.GeneratedAd, error) {
	var models []GeneratedAdModel
	err := r.db.WithContext(ctx).
		Where("ad_run_id = ?", runID).
		Order("ad_index asc").
		Find(&models).Error
	if err != nil {
		return nil, err
	}
	ads := make([]*domain.GeneratedAd, 0, len(models))
	for i := range models {
		ad, err := ToDomainGeneratedAd(&models[i])
		if err != nil {
			return nil, err
		}
		ads = append(ads, ad)
	}
	return ads, nil
}

// GormHookRepository reads the hook bank.
type GormHookRepository struct {
	db *gorm.DB
}

func NewGormHookRepository(db *gorm.DB) *GormHookRepository {
	return &GormHookRepository{db: db}
}

func (r *GormHookRepository) FindActiveByProduct(ctx context.Context, productID string) ([]*domain.Hook, error) {
	var models []HookModel
	err := r.db.WithContext(ctx).
		Where("product_id = ? AND active = ?", productID, true).
		Order("created_at asc").
		Find(&models).Error
	if err != nil {
		return nil, err
	}
	hooks := make([]*domain.Hook, 0, len(models))
	for i := range models {
		hooks = append(hooks, ToDomainHook(&models[i]))
	}
	return hooks, nil
}

func (r *GormHookRepository) Retire(ctx context.Context, hookID string) error {
	return r.db.WithContext(ctx).
		Model(&HookModel{}).
		Where("id = ?", hookID).
		Update("active", false).Error
}

// GormProductRepository reads the product catalog.
type GormProductRepository struct {
	db *gorm.DB
}

func NewGormProductRepository(db *gorm.DB) *GormProductRepository {
	return &GormProductRepository{db: db}
}

func (r *GormProductRepository) FindByID(ctx context.Context, id string) (*domain.Product, error) {
	var model ProductModel
	err := r.db.WithContext(ctx).
		Preload("Images", func(db *gorm.DB) *gorm.DB {
			return db.Order("position asc")
		}).
		Where("id = ?", id).
		First(&model).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, errors.New("product not found: " + id)
		}
		return nil, err
	}
	return ToDomainProduct(&model), nil
}
