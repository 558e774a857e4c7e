// internal/service/creative/infrastructure/mapper.go
package infrastructure

import (
	"encoding/json"

	"github.com/pkg/errors"

	"adforge/internal/service/creative/domain"
)

// The mappers keep the JSON snapshot columns honest in both directions: a
// corrupt stored snapshot surfaces as an error instead of a half-hydrated
// aggregate.

func FromDomainAdRun(run *domain.AdRun) (*AdRunModel, error) {
	model := &AdRunModel{
		ID:              run.ID,
		ProductID:       run.ProductID,
		ReferenceAdPath: run.ReferenceAdPath,
		State:           run.State,
		ErrorMessage:    run.ErrorMessage,
		ApprovedCount:   run.ApprovedCount,
		RejectedCount:   run.RejectedCount,
		FlaggedCount:    run.FlaggedCount,
		CreatedAt:       run.CreatedAt,
		UpdatedAt:       run.UpdatedAt,
		CompletedAt:     run.CompletedAt,
	}
	if run.Analysis != nil {
		raw, err := json.Marshal(run.Analysis)
		if err != nil {
			return nil, errors.Wrap(err, "marshal analysis snapshot")
		}
		model.AnalysisJSON = string(raw)
	}
	if run.SelectedHooks != nil {
		raw, err := json.Marshal(run.SelectedHooks)
		if err != nil {
			return nil, errors.Wrap(err, "marshal selection snapshot")
		}
		model.SelectionJSON = string(raw)
	}
	if run.SelectedImages != nil {
		raw, err := json.Marshal(run.SelectedImages)
		if err != nil {
			return nil, errors.Wrap(err, "marshal image order snapshot")
		}
		model.ImagesJSON = string(raw)
	}
	return model, nil
}

func ToDomainAdRun(model *AdRunModel) (*domain.AdRun, error) {
	if model == nil {
		return nil, nil
	}
	run := &domain.AdRun{
		ID:              model.ID,
		ProductID:       model.ProductID,
		ReferenceAdPath: model.ReferenceAdPath,
		State:           model.State,
		ErrorMessage:    model.ErrorMessage,
		ApprovedCount:   model.ApprovedCount,
		RejectedCount:   model.RejectedCount,
		FlaggedCount:    model.FlaggedCount,
		CreatedAt:       model.CreatedAt,
		UpdatedAt:       model.UpdatedAt,
		CompletedAt:     model.CompletedAt,
	}
	if model.AnalysisJSON != "" {
		var analysis domain.AdAnalysis
		if err := json.Unmarshal([]byte(model.AnalysisJSON), &analysis); err != nil {
			return nil, errors.Wrapf(err, "run %s: corrupt analysis snapshot", model.ID)
		}
		run.Analysis = &analysis
	}
	if model.SelectionJSON != "" {
		if err := json.Unmarshal([]byte(model.SelectionJSON), &run.SelectedHooks); err != nil {
			return nil, errors.Wrapf(err, "run %s: corrupt selection snapshot", model.ID)
		}
	}
	if model.ImagesJSON != "" {
		if err := json.Unmarshal([]byte(model.ImagesJSON), &run.SelectedImages); err != nil {
			return nil, errors.Wrapf(err, "run %s: corrupt image order snapshot", model.ID)
		}
	}
	return run, nil
}

func FromDomainGeneratedAd(ad *domain.GeneratedAd) (*GeneratedAdModel, error) {
	model := &GeneratedAdModel{
		ID:             ad.ID,
		AdRunID:        ad.AdRunID,
		AdIndex:        ad.Index,
		PromptText:     ad.PromptText,
		PromptSpec:     ad.PromptSpec,
		HookRef:        ad.HookRef,
		StoragePath:    ad.StoragePath,
		ReviewersAgree: ad.ReviewersAgree,
		FinalStatus:    ad.FinalStatus,
		CreatedAt:      ad.CreatedAt,
	}
	var err error
	if model.ReviewAJSON, err = marshalReview(ad.ReviewA); err != nil {
		return nil, err
	}
	if model.ReviewBJSON, err = marshalReview(ad.ReviewB); err != nil {
		return nil, err
	}
	return model, nil
}

func ToDomainGeneratedAd(model *GeneratedAdModel) (*domain.GeneratedAd, error) {
	if model == nil {
		return nil, nil
	}
	ad := &domain.GeneratedAd{
		ID:             model.ID,
		AdRunID:        model.AdRunID,
		Index:          model.AdIndex,
		PromptText:     model.PromptText,
		PromptSpec:     model.PromptSpec,
		HookRef:        model.HookRef,
		StoragePath:    model.StoragePath,
		ReviewersAgree: model.ReviewersAgree,
		FinalStatus:    model.FinalStatus,
		CreatedAt:      model.CreatedAt,
	}
	var err error
	if ad.ReviewA, err = unmarshalReview(model.ID, model.ReviewAJSON); err != nil {
		return nil, err
	}
	if ad.ReviewB, err = unmarshalReview(model.ID, model.ReviewBJSON); err != nil {
		return nil, err
	}
	return ad, nil
}

func marshalReview(review *domain.ReviewResult) (string, error) {
	if review == nil {
		return "", nil
	}
	raw, err := json.Marshal(review)
	if err != nil {
		return "", errors.Wrap(err, "marshal review")
	}
	return string(raw), nil
}

func unmarshalReview(adID, raw string) (*domain.ReviewResult, error) {
	if raw == "" {
		return nil, nil
	}
	var review domain.ReviewResult
	if err := json.Unmarshal([]byte(raw), &review); err != nil {
		return nil, errors.Wrapf(err, "ad %s: corrupt stored review", adID)
	}
	return &review, nil
}

func ToDomainHook(model *HookModel) *domain.Hook {
	if model == nil {
		return nil
	}
	return &domain.Hook{
		ID:             model.ID,
		ProductID:      model.ProductID,
		Text:           model.Text,
		Category:       model.Category,
		Framework:      model.Framework,
		ImpactScore:    model.ImpactScore,
		EmotionalScore: model.EmotionalScore,
		Active:         model.Active,
	}
}

func ToDomainProduct(model *ProductModel) *domain.Product {
	if model == nil {
		return nil
	}
	product := &domain.Product{
		ID:     model.ID,
		Name:   model.Name,
		Images: make([]domain.ProductImage, 0, len(model.Images)),
	}
	for _, img := range model.Images {
		product.Images = append(product.Images, domain.ProductImage{
			Path:     img.Path,
			IsMain:   img.IsMain,
			Position: img.Position,
		})
	}
	return product
}
