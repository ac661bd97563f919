package auth

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"gorm.io/gorm"

	"github.com/MudassirSafi/Wolf-Backend/internal/users"
	"github.com/MudassirSafi/Wolf-Backend/pkg/config"
	"github.com/MudassirSafi/Wolf-Backend/pkg/db/models"
	"github.com/MudassirSafi/Wolf-Backend/pkg/enums"
	pkgerrors "github.com/MudassirSafi/Wolf-Backend/pkg/errors"
	"github.com/MudassirSafi/Wolf-Backend/pkg/logger"
	"github.com/MudassirSafi/Wolf-Backend/pkg/security"
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

// AdminBootstrapParams names the dependencies for the admin bootstrap flow.
type AdminBootstrapParams struct {
	DB             txRunner
	Users          *users.Repository
	PasswordConfig config.PasswordConfig
	Admin          config.AdminConfig
	Logger         *logger.Logger
}

// AdminBootstrapper seeds or repairs the configured admin account.
type AdminBootstrapper struct {
	db          txRunner
	users       *users.Repository
	passwordCfg config.PasswordConfig
	admin       config.AdminConfig
	logg        *logger.Logger
}

func NewAdminBootstrapper(params AdminBootstrapParams) (*AdminBootstrapper, error) {
	if params.DB == nil {
		return nil, fmt.Errorf("db is required")
	}
	if params.Users == nil {
		return nil, fmt.Errorf("users repository is required")
	}
	return &AdminBootstrapper{
		db:          params.DB,
		users:       params.Users,
		passwordCfg: params.PasswordConfig,
		admin:       params.Admin,
		logg:        params.Logger,
	}, nil
}

// Run creates the admin when the email is unknown, otherwise rewrites the
// existing row in place. The stored hash is read back and verified against
// the configured password before Run reports success.
func (b *AdminBootstrapper) Run(ctx context.Context) (*users.UserDTO, error) {
	email := normalizeEmail(b.admin.Email)
	if email == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "admin email is required")
	}
	if err := security.ValidatePassword(b.admin.Password); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "admin password: "+err.Error())
	}
	name := strings.TrimSpace(b.admin.Name)
	if name == "" {
		name = "Admin"
	}

	hash, err := security.HashPassword(b.admin.Password, b.passwordCfg)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "hash admin password")
	}

	created := false
	err = b.db.WithTx(ctx, func(tx *gorm.DB) error {
		repo := b.users.WithTx(tx)
		existing, err := repo.FindByEmail(ctx, email)
		switch {
		case errors.Is(err, gorm.ErrRecordNotFound):
			active := true
			if _, err := repo.Create(ctx, users.CreateUserDTO{
				Email:        email,
				PasswordHash: hash,
				Name:         name,
				Role:         enums.UserRoleAdmin,
				IsActive:     &active,
			}); err != nil {
				return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "create admin")
			}
			created = true
			return nil
		case err != nil:
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "lookup admin")
		}
		if err := repo.PromoteAdmin(ctx, existing.ID, name, hash); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "update admin")
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	stored, err := b.users.FindByEmail(ctx, email)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "reload admin")
	}
	if err := verifyAdmin(stored, b.admin.Password); err != nil {
		if b.logg != nil {
			b.logg.Error(b.logg.WithUserID(ctx, stored.ID.String()), "admin bootstrap verification failed", err)
		}
		return nil, err
	}

	if b.logg != nil {
		ctx = b.logg.WithFields(ctx, map[string]any{"user_id": stored.ID.String(), "created": created})
		b.logg.Info(ctx, "admin account ready")
	}
	return users.FromModel(stored), nil
}

func verifyAdmin(user *models.User, password string) error {
	ok, err := security.VerifyPassword(password, user.PasswordHash)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeIntegrity, err, "stored admin hash is unreadable")
	}
	if !ok {
		return pkgerrors.New(pkgerrors.CodeIntegrity, "stored admin hash does not match configured password")
	}
	if user.Role != enums.UserRoleAdmin || !user.IsActive {
		return pkgerrors.New(pkgerrors.CodeIntegrity, "admin account is not an active admin")
	}
	return nil
}
