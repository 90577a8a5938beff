package users

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/rentworks/rentworks-backend/internal/audit"
	"github.com/rentworks/rentworks-backend/pkg/config"
	"github.com/rentworks/rentworks-backend/pkg/db"
	"github.com/rentworks/rentworks-backend/pkg/db/models"
	"github.com/rentworks/rentworks-backend/pkg/enums"
	pkgerrors "github.com/rentworks/rentworks-backend/pkg/errors"
	"github.com/rentworks/rentworks-backend/pkg/pagination"
	"github.com/rentworks/rentworks-backend/pkg/security"
)

const tempPasswordLength = 16

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

// Service defines user administration operations.
type Service interface {
	Create(ctx context.Context, input CreateInput) (*models.User, string, error)
	Update(ctx context.Context, id uuid.UUID, input UpdateInput) (*models.User, error)
	SetActive(ctx context.Context, id uuid.UUID, active bool, actorID uuid.UUID) (*models.User, error)
	SetRole(ctx context.Context, id uuid.UUID, role enums.UserRole, actorID uuid.UUID) (*models.User, error)
	ChangePassword(ctx context.Context, id uuid.UUID, current, next string) error
	ResetPassword(ctx context.Context, id uuid.UUID, actorID uuid.UUID) (string, error)
	Get(ctx context.Context, id uuid.UUID) (*models.User, error)
	List(ctx context.Context, filters ListFilters, page pagination.Params) ([]models.User, error)
}

// CreateInput provisions a new user. When Password is empty a temporary
// one is generated and returned alongside the user.
type CreateInput struct {
	Email    string         `json:"email" validate:"required,email"`
	FullName string         `json:"full_name" validate:"required"`
	Phone    *string        `json:"phone"`
	Role     enums.UserRole `json:"role" validate:"required"`
	Password string         `json:"password"`
	ActorID  uuid.UUID      `json:"-"`
}

// UpdateInput edits profile fields. Nil pointers keep the current value.
type UpdateInput struct {
	FullName *string   `json:"full_name"`
	Phone    *string   `json:"phone"`
	ActorID  uuid.UUID `json:"-"`
}

type service struct {
	repo   Repository
	tx     txRunner
	audit  audit.Recorder
	pwdCfg config.PasswordConfig
	minPwd int
}

// NewService builds a users service with the required dependencies.
func NewService(repo Repository, tx txRunner, recorder audit.Recorder, pwdCfg config.PasswordConfig) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("user repository required")
	}
	if tx == nil {
		return nil, fmt.Errorf("transaction runner required")
	}
	if recorder == nil {
		return nil, fmt.Errorf("audit recorder required")
	}
	minPwd := pwdCfg.MinLength
	if minPwd <= 0 {
		minPwd = 8
	}
	return &service{repo: repo, tx: tx, audit: recorder, pwdCfg: pwdCfg, minPwd: minPwd}, nil
}

// Create provisions a user. The caller receives the temporary password
// exactly once when none was supplied.
func (s *service) Create(ctx context.Context, input CreateInput) (*models.User, string, error) {
	email := strings.ToLower(strings.TrimSpace(input.Email))
	if email == "" {
		return nil, "", pkgerrors.New(pkgerrors.CodeValidation, "email required")
	}
	if strings.TrimSpace(input.FullName) == "" {
		return nil, "", pkgerrors.New(pkgerrors.CodeValidation, "full name required")
	}
	if !input.Role.IsValid() {
		return nil, "", pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("invalid role %q", input.Role))
	}

	password := input.Password
	tempPassword := ""
	if password == "" {
		generated, err := security.GenerateTempPassword(tempPasswordLength)
		if err != nil {
			return nil, "", pkgerrors.Wrap(pkgerrors.CodeInternal, err, "generate temporary password")
		}
		password = generated
		tempPassword = generated
	} else if len(password) < s.minPwd {
		return nil, "", pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("password must be at least %d characters", s.minPwd))
	}

	hash, err := security.HashPassword(password, s.pwdCfg)
	if err != nil {
		return nil, "", pkgerrors.Wrap(pkgerrors.CodeInternal, err, "hash password")
	}

	user := &models.User{
		ID:           uuid.New(),
		Email:        email,
		PasswordHash: hash,
		FullName:     strings.TrimSpace(input.FullName),
		Phone:        input.Phone,
		Role:         input.Role,
		IsActive:     true,
	}

	err = s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		if err := repo.Create(ctx, user); err != nil {
			if db.IsUniqueViolation(err, "idx_users_email") {
				return pkgerrors.New(pkgerrors.CodeConflict, fmt.Sprintf("email %s already in use", email))
			}
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create user")
		}
		return s.audit.Record(ctx, tx, audit.Entry{
			ActorUserID: actorRef(input.ActorID),
			Action:      enums.AuditActionCreate,
			EntityType:  audit.EntityUser,
			EntityID:    &user.ID,
			Summary:     fmt.Sprintf("user %s created with role %s", user.Email, user.Role),
		})
	})
	if err != nil {
		return nil, "", err
	}
	return user, tempPassword, nil
}

func (s *service) Update(ctx context.Context, id uuid.UUID, input UpdateInput) (*models.User, error) {
	if id == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "user id required")
	}
	if input.FullName != nil && strings.TrimSpace(*input.FullName) == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "full name cannot be blank")
	}

	var updated *models.User
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		user, err := repo.FindByID(ctx, id)
		if err != nil {
			return mapLookupErr(err)
		}

		if input.FullName != nil {
			user.FullName = strings.TrimSpace(*input.FullName)
		}
		if input.Phone != nil {
			user.Phone = input.Phone
		}

		if err := repo.Update(ctx, user); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update user")
		}

		updated = user
		return s.audit.Record(ctx, tx, audit.Entry{
			ActorUserID: actorRef(input.ActorID),
			Action:      enums.AuditActionUpdate,
			EntityType:  audit.EntityUser,
			EntityID:    &user.ID,
			Summary:     fmt.Sprintf("user %s updated", user.Email),
		})
	})
	if err != nil {
		return nil, err
	}
	return updated, nil
}

// SetActive enables or disables a login. The last active admin cannot
// be deactivated.
func (s *service) SetActive(ctx context.Context, id uuid.UUID, active bool, actorID uuid.UUID) (*models.User, error) {
	if id == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "user id required")
	}

	var updated *models.User
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		user, err := repo.FindByID(ctx, id)
		if err != nil {
			return mapLookupErr(err)
		}
		if user.IsActive == active {
			updated = user
			return nil
		}
		if !active && user.Role == enums.UserRoleAdmin {
			if err := s.ensureAnotherAdmin(ctx, repo); err != nil {
				return err
			}
		}

		user.IsActive = active
		if err := repo.Update(ctx, user); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update user")
		}

		verb := "deactivated"
		if active {
			verb = "reactivated"
		}
		updated = user
		return s.audit.Record(ctx, tx, audit.Entry{
			ActorUserID: actorRef(actorID),
			Action:      enums.AuditActionUpdate,
			EntityType:  audit.EntityUser,
			EntityID:    &user.ID,
			Summary:     fmt.Sprintf("user %s %s", user.Email, verb),
		})
	})
	if err != nil {
		return nil, err
	}
	return updated, nil
}

// SetRole changes a user's role. The last active admin cannot be
// demoted.
func (s *service) SetRole(ctx context.Context, id uuid.UUID, role enums.UserRole, actorID uuid.UUID) (*models.User, error) {
	if id == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "user id required")
	}
	if !role.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("invalid role %q", role))
	}

	var updated *models.User
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		user, err := repo.FindByID(ctx, id)
		if err != nil {
			return mapLookupErr(err)
		}
		if user.Role == role {
			updated = user
			return nil
		}
		if user.Role == enums.UserRoleAdmin && user.IsActive {
			if err := s.ensureAnotherAdmin(ctx, repo); err != nil {
				return err
			}
		}

		previous := user.Role
		user.Role = role
		if err := repo.Update(ctx, user); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update user role")
		}

		updated = user
		return s.audit.Record(ctx, tx, audit.Entry{
			ActorUserID: actorRef(actorID),
			Action:      enums.AuditActionUpdate,
			EntityType:  audit.EntityUser,
			EntityID:    &user.ID,
			Summary:     fmt.Sprintf("user %s role changed from %s to %s", user.Email, previous, role),
		})
	})
	if err != nil {
		return nil, err
	}
	return updated, nil
}

// ChangePassword lets a user rotate their own credential after proving
// the current one.
func (s *service) ChangePassword(ctx context.Context, id uuid.UUID, current, next string) error {
	if id == uuid.Nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "user id required")
	}
	if len(next) < s.minPwd {
		return pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("password must be at least %d characters", s.minPwd))
	}

	user, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return mapLookupErr(err)
	}

	valid, err := security.VerifyPassword(current, user.PasswordHash)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "verify password")
	}
	if !valid {
		return pkgerrors.New(pkgerrors.CodeUnauthorized, "current password is incorrect")
	}

	hash, err := security.HashPassword(next, s.pwdCfg)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "hash password")
	}

	return s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		user.PasswordHash = hash
		if err := repo.Update(ctx, user); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update password")
		}
		return s.audit.Record(ctx, tx, audit.Entry{
			ActorUserID: &user.ID,
			Action:      enums.AuditActionUpdate,
			EntityType:  audit.EntityUser,
			EntityID:    &user.ID,
			Summary:     fmt.Sprintf("user %s changed their password", user.Email),
		})
	})
}

// ResetPassword issues a fresh temporary password for a user. The
// caller receives it exactly once.
func (s *service) ResetPassword(ctx context.Context, id uuid.UUID, actorID uuid.UUID) (string, error) {
	if id == uuid.Nil {
		return "", pkgerrors.New(pkgerrors.CodeValidation, "user id required")
	}

	temp, err := security.GenerateTempPassword(tempPasswordLength)
	if err != nil {
		return "", pkgerrors.Wrap(pkgerrors.CodeInternal, err, "generate temporary password")
	}
	hash, err := security.HashPassword(temp, s.pwdCfg)
	if err != nil {
		return "", pkgerrors.Wrap(pkgerrors.CodeInternal, err, "hash password")
	}

	err = s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		user, err := repo.FindByID(ctx, id)
		if err != nil {
			return mapLookupErr(err)
		}

		user.PasswordHash = hash
		if err := repo.Update(ctx, user); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update password")
		}
		return s.audit.Record(ctx, tx, audit.Entry{
			ActorUserID: actorRef(actorID),
			Action:      enums.AuditActionUpdate,
			EntityType:  audit.EntityUser,
			EntityID:    &user.ID,
			Summary:     fmt.Sprintf("password reset for user %s", user.Email),
		})
	})
	if err != nil {
		return "", err
	}
	return temp, nil
}

func (s *service) Get(ctx context.Context, id uuid.UUID) (*models.User, error) {
	if id == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "user id required")
	}
	user, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, mapLookupErr(err)
	}
	return user, nil
}

func (s *service) List(ctx context.Context, filters ListFilters, page pagination.Params) ([]models.User, error) {
	rows, err := s.repo.List(ctx, filters, page)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list users")
	}
	return rows, nil
}

func (s *service) ensureAnotherAdmin(ctx context.Context, repo Repository) error {
	admins, err := repo.CountByRole(ctx, enums.UserRoleAdmin)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "count admins")
	}
	if admins <= 1 {
		return pkgerrors.New(pkgerrors.CodeStateConflict, "cannot remove the last active admin")
	}
	return nil
}

func mapLookupErr(err error) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return pkgerrors.New(pkgerrors.CodeNotFound, "user not found")
	}
	return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load user")
}

func actorRef(id uuid.UUID) *uuid.UUID {
	if id == uuid.Nil {
		return nil
	}
	return &id
}
