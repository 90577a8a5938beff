package audit

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/rentworks/rentworks-backend/pkg/db/models"
	"github.com/rentworks/rentworks-backend/pkg/enums"
	pkgerrors "github.com/rentworks/rentworks-backend/pkg/errors"
	"github.com/rentworks/rentworks-backend/pkg/pagination"
)

// Recorder is the write-side surface domain services depend on. Record
// joins the caller's transaction when one is provided so the trail
// commits or rolls back with the mutation it describes.
type Recorder interface {
	Record(ctx context.Context, tx *gorm.DB, entry Entry) error
}

// Service exposes the audit trail.
type Service interface {
	Recorder
	List(ctx context.Context, filters ListFilters, page pagination.Params) ([]models.AuditEvent, error)
	ListByEntity(ctx context.Context, entityType string, entityID uuid.UUID) ([]models.AuditEvent, error)
	PruneOlderThan(ctx context.Context, cutoff time.Time) (int64, error)
}

// Entry captures the immutable data an audit event requires.
type Entry struct {
	ActorUserID *uuid.UUID
	Action      enums.AuditAction
	EntityType  string
	EntityID    *uuid.UUID
	Summary     string
	Metadata    any
}

type service struct {
	repo Repository
}

// NewService wires an audit service with the provided repository.
func NewService(repo Repository) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("audit repository required")
	}
	return &service{repo: repo}, nil
}

func (s *service) Record(ctx context.Context, tx *gorm.DB, entry Entry) error {
	if !entry.Action.IsValid() {
		return pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("invalid audit action %q", entry.Action))
	}
	if entry.EntityType == "" {
		return pkgerrors.New(pkgerrors.CodeValidation, "audit entity type required")
	}
	if entry.Summary == "" {
		return pkgerrors.New(pkgerrors.CodeValidation, "audit summary required")
	}

	var metadata json.RawMessage
	if entry.Metadata != nil {
		encoded, err := json.Marshal(entry.Metadata)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "encode audit metadata")
		}
		metadata = encoded
	}

	event := &models.AuditEvent{
		ActorUserID: entry.ActorUserID,
		Action:      entry.Action,
		EntityType:  entry.EntityType,
		EntityID:    entry.EntityID,
		Summary:     entry.Summary,
		Metadata:    metadata,
	}

	repo := s.repo.WithTx(tx)
	if err := repo.Create(ctx, event); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "record audit event")
	}
	return nil
}

func (s *service) List(ctx context.Context, filters ListFilters, page pagination.Params) ([]models.AuditEvent, error) {
	events, err := s.repo.List(ctx, filters, page)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list audit events")
	}
	return events, nil
}

func (s *service) ListByEntity(ctx context.Context, entityType string, entityID uuid.UUID) ([]models.AuditEvent, error) {
	if entityType == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "entity type required")
	}
	if entityID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "entity id required")
	}
	events, err := s.repo.ListByEntity(ctx, entityType, entityID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list audit events for entity")
	}
	return events, nil
}

func (s *service) PruneOlderThan(ctx context.Context, cutoff time.Time) (int64, error) {
	if cutoff.IsZero() {
		return 0, pkgerrors.New(pkgerrors.CodeValidation, "cutoff required")
	}
	deleted, err := s.repo.DeleteOlderThan(ctx, cutoff)
	if err != nil {
		return 0, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "prune audit events")
	}
	return deleted, nil
}
