package testutil

import (
	"context"
	"testing"

	"github.com/abrezinsky/gaterace/internal/models"
	"github.com/abrezinsky/gaterace/internal/repository"
)

// NewTestRepository creates a new in-memory repository for testing.
// Each call creates a fresh database with all migrations applied.
func NewTestRepository(t *testing.T) *repository.Repository {
	t.Helper()

	repo, err := repository.New(":memory:")
	if err != nil {
		t.Fatalf("failed to create test repository: %v", err)
	}

	t.Cleanup(func() {
		repo.Close()
	})

	return repo
}

// SeedCategory creates a MIX category covering birth years 2010-2020
func SeedCategory(t *testing.T, repo *repository.Repository, name string) int {
	t.Helper()
	id, err := repo.CreateCategory(context.Background(), models.Category{
		Name: name, Gender: "MIX", BirthYearMin: 2010, BirthYearMax: 2020,
	})
	if err != nil {
		t.Fatalf("failed to seed category: %v", err)
	}
	return int(id)
}

// SeedRiders registers n riders eligible for a SeedCategory category and
// returns their IDs in creation order.
func SeedRiders(t *testing.T, repo *repository.Repository, n int) []int {
	t.Helper()
	ids := make([]int, 0, n)
	for i := 0; i < n; i++ {
		id, err := repo.CreateRider(context.Background(), models.Rider{
			Name:      "Rider",
			Plate:     string(rune('A'+i%26)) + string(rune('0'+i/26)),
			BirthYear: 2015,
			Gender:    "MALE",
		})
		if err != nil {
			t.Fatalf("failed to seed rider: %v", err)
		}
		ids = append(ids, int(id))
	}
	return ids
}
