package service

import (
	"context"
	"errors"
	"testing"

	"github.com/sakif/miniblog/internal/model"
)

func TestCategorySeed_Idempotent(t *testing.T) {
	s := newTestServices(t) // seeds once

	if err := s.categories.Seed(context.Background()); err != nil {
		t.Fatalf("second Seed() error = %v", err)
	}

	categories, err := s.categories.List(context.Background())
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}
	if len(categories) != len(model.DefaultCategories) {
		t.Fatalf("List() returned %d categories, want %d", len(categories), len(model.DefaultCategories))
	}
	for i, name := range model.DefaultCategories {
		if categories[i].Name != name {
			t.Errorf("categories[%d] = %q, want %q", i, categories[i].Name, name)
		}
	}
}

func TestCategory_StoreFailure(t *testing.T) {
	s := newTestServices(t)
	s.store.failWith = errDBDown

	if err := s.categories.Seed(context.Background()); !errors.Is(err, errDBDown) {
		t.Errorf("Seed() error = %v, want the store error", err)
	}
	if _, err := s.categories.List(context.Background()); !errors.Is(err, errDBDown) {
		t.Errorf("List() error = %v, want the store error", err)
	}
}
