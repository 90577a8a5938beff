package audit

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/rentworks/rentworks-backend/pkg/db/models"
	"github.com/rentworks/rentworks-backend/pkg/enums"
	pkgerrors "github.com/rentworks/rentworks-backend/pkg/errors"
	"github.com/rentworks/rentworks-backend/pkg/pagination"
)

type stubRepo struct {
	created    []*models.AuditEvent
	deleted    int64
	lastCutoff time.Time
	boundTx    *gorm.DB
}

func (r *stubRepo) WithTx(tx *gorm.DB) Repository {
	r.boundTx = tx
	return r
}

func (r *stubRepo) Create(ctx context.Context, event *models.AuditEvent) error {
	r.created = append(r.created, event)
	return nil
}

func (r *stubRepo) ListByEntity(ctx context.Context, entityType string, entityID uuid.UUID) ([]models.AuditEvent, error) {
	return nil, nil
}

func (r *stubRepo) List(ctx context.Context, filters ListFilters, page pagination.Params) ([]models.AuditEvent, error) {
	return nil, nil
}

func (r *stubRepo) DeleteOlderThan(ctx context.Context, cutoff time.Time) (int64, error) {
	r.lastCutoff = cutoff
	return r.deleted, nil
}

func TestRecordEncodesMetadata(t *testing.T) {
	repo := &stubRepo{}
	svc, err := NewService(repo)
	require.NoError(t, err)

	actor := uuid.New()
	entity := uuid.New()
	err = svc.Record(context.Background(), nil, Entry{
		ActorUserID: &actor,
		Action:      enums.AuditActionStatus,
		EntityType:  EntityInventoryUnit,
		EntityID:    &entity,
		Summary:     "unit rented",
		Metadata:    map[string]string{"from": "available", "to": "rented"},
	})
	require.NoError(t, err)
	require.Len(t, repo.created, 1)

	event := repo.created[0]
	assert.Equal(t, enums.AuditActionStatus, event.Action)
	assert.Equal(t, EntityInventoryUnit, event.EntityType)
	assert.JSONEq(t, `{"from":"available","to":"rented"}`, string(event.Metadata))
}

func TestRecordRejectsInvalidEntry(t *testing.T) {
	repo := &stubRepo{}
	svc, err := NewService(repo)
	require.NoError(t, err)

	err = svc.Record(context.Background(), nil, Entry{
		Action:     enums.AuditAction("bogus"),
		EntityType: EntityItem,
		Summary:    "x",
	})
	require.Error(t, err)
	assert.Equal(t, pkgerrors.CodeValidation, pkgerrors.As(err).Code())

	err = svc.Record(context.Background(), nil, Entry{
		Action:  enums.AuditActionCreate,
		Summary: "x",
	})
	require.Error(t, err)

	err = svc.Record(context.Background(), nil, Entry{
		Action:     enums.AuditActionCreate,
		EntityType: EntityItem,
	})
	require.Error(t, err)
	assert.Empty(t, repo.created)
}

func TestPruneOlderThan(t *testing.T) {
	repo := &stubRepo{deleted: 42}
	svc, err := NewService(repo)
	require.NoError(t, err)

	cutoff := time.Now().Add(-365 * 24 * time.Hour)
	deleted, err := svc.PruneOlderThan(context.Background(), cutoff)
	require.NoError(t, err)
	assert.Equal(t, int64(42), deleted)
	assert.Equal(t, cutoff, repo.lastCutoff)

	_, err = svc.PruneOlderThan(context.Background(), time.Time{})
	require.Error(t, err)
}
