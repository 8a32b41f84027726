package service

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/sakif/miniblog/internal/model"
	"github.com/sakif/miniblog/internal/repository"
)

// CategoryService serves the read-only category list.
//
// Categories are a fixed lookup table: seeded once at startup and never
// created, renamed or deleted by users. Every page's navigation lists them.
type CategoryService struct {
	repo   repository.CategoryRepository
	logger *slog.Logger
}

// NewCategoryService creates a new CategoryService.
func NewCategoryService(repo repository.CategoryRepository, logger *slog.Logger) *CategoryService {
	return &CategoryService{repo: repo, logger: logger}
}

// Seed writes model.DefaultCategories when the table is empty.
//
// IDEMPOTENT:
// The store reports whether it actually inserted anything. On every start
// after the first, seeded is false and this is a no-op, so server.New can
// call Seed unconditionally.
func (s *CategoryService) Seed(ctx context.Context) error {
	seeded, err := s.repo.SeedCategories(ctx, model.DefaultCategories)
	if err != nil {
		return fmt.Errorf("service/category: seeding: %w", err)
	}
	if seeded {
		s.logger.Info("categories seeded", slog.Int("count", len(model.DefaultCategories)))
	}
	return nil
}

// List returns all categories in ID order.
func (s *CategoryService) List(ctx context.Context) ([]model.Category, error) {
	categories, err := s.repo.ListCategories(ctx)
	if err != nil {
		return nil, fmt.Errorf("service/category: listing: %w", err)
	}
	return categories, nil
}
