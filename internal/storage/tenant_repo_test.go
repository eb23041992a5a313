package storage_test

import (
	"context"
	"testing"

	"github.com/radiusdt/funnelpulse/internal/models"
	"github.com/radiusdt/funnelpulse/internal/storage"
)

func TestInMemoryTenantRepoLookup(t *testing.T) {
	repo := storage.NewInMemoryTenantRepo()
	repo.Add(&models.Tenant{ID: "t1", Name: "Acme", APIKey: "key-acme"})

	got, err := repo.GetByAPIKey(context.Background(), "key-acme")
	if err != nil {
		t.Fatalf("lookup failed: %v", err)
	}
	if got == nil || got.ID != "t1" {
		t.Errorf("tenant = %+v, want t1", got)
	}

	// Unknown keys are a nil tenant, not an error.
	got, err = repo.GetByAPIKey(context.Background(), "key-unknown")
	if err != nil {
		t.Fatalf("unknown key errored: %v", err)
	}
	if got != nil {
		t.Errorf("tenant = %+v, want nil for an unknown key", got)
	}
}
