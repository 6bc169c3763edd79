package postgres

import (
	"context"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/jafarshop/groceryadmin/internal/config"
	"github.com/jafarshop/groceryadmin/internal/domain"
	"github.com/jafarshop/groceryadmin/pkg/errors"
)

// Runs against a real PostgreSQL when AUDIT_TEST_DB_HOST is set.
func setupTestDB(t *testing.T) *auditRepository {
	t.Helper()
	host := os.Getenv("AUDIT_TEST_DB_HOST")
	if host == "" {
		t.Skip("AUDIT_TEST_DB_HOST not set")
	}

	db, err := NewConnection(config.DatabaseConfig{
		Host:     host,
		Port:     "5432",
		User:     "postgres",
		Password: os.Getenv("AUDIT_TEST_DB_PASSWORD"),
		DBName:   "postgres",
		SSLMode:  "disable",
	})
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	require.NoError(t, EnsureSchema(context.Background(), db))
	return NewAuditRepository(db, zap.NewNop())
}

func TestAuditRepository_RecordAndList(t *testing.T) {
	repo := setupTestDB(t)
	ctx := context.Background()

	entry := &domain.AuditEntry{
		Action:  "order.bulk_assign",
		Target:  "orders:3",
		Outcome: domain.AuditOutcomePartial,
		Message: "Order already delivered (failed: 102)",
		Role:    "ADMIN",
	}
	require.NoError(t, repo.Record(ctx, entry))
	assert.NotEmpty(t, entry.ID)

	got, err := repo.GetByID(ctx, entry.ID)
	require.NoError(t, err)
	assert.Equal(t, entry.Message, got.Message)

	recent, err := repo.ListRecent(ctx, 10)
	require.NoError(t, err)
	require.NotEmpty(t, recent)
	assert.Equal(t, entry.ID, recent[0].ID)
}

func TestAuditRepository_GetByIDRejectsMalformedID(t *testing.T) {
	repo := NewAuditRepository(nil, zap.NewNop())

	_, err := repo.GetByID(context.Background(), "not-a-uuid")
	var nf *errors.ErrNotFound
	assert.ErrorAs(t, err, &nf)
}
