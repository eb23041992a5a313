package storage

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/radiusdt/funnelpulse/internal/models"
)

// PostgresTenantRepo resolves tenants from the tenants table.
type PostgresTenantRepo struct {
	pool *pgxpool.Pool
}

// NewPostgresTenantRepo creates a Postgres-backed tenant repository.
func NewPostgresTenantRepo(pool *pgxpool.Pool) *PostgresTenantRepo {
	return &PostgresTenantRepo{pool: pool}
}

func (r *PostgresTenantRepo) GetByAPIKey(ctx context.Context, apiKey string) (*models.Tenant, error) {
	var t models.Tenant
	err := r.pool.QueryRow(ctx, `
		SELECT id, name, api_key, created_at
		FROM tenants
		WHERE api_key = $1
	`, apiKey).Scan(&t.ID, &t.Name, &t.APIKey, &t.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to look up tenant by api key: %w", err)
	}
	return &t, nil
}

// InMemoryTenantRepo holds tenants in a map, for development and tests.
type InMemoryTenantRepo struct {
	mu       sync.RWMutex
	byAPIKey map[string]*models.Tenant
}

// NewInMemoryTenantRepo creates an empty in-memory tenant repository.
func NewInMemoryTenantRepo() *InMemoryTenantRepo {
	return &InMemoryTenantRepo{
		byAPIKey: make(map[string]*models.Tenant),
	}
}

// Add registers a tenant.
func (r *InMemoryTenantRepo) Add(t *models.Tenant) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.byAPIKey[t.APIKey] = t
}

func (r *InMemoryTenantRepo) GetByAPIKey(ctx context.Context, apiKey string) (*models.Tenant, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	t, ok := r.byAPIKey[apiKey]
	if !ok {
		return nil, nil
	}
	return t, nil
}
