package users

import (
	"context"
	"database/sql"
	"strings"
	"time"

	"github.com/booknetwork/booknet/pkg/database"
	"github.com/booknetwork/booknet/pkg/errcodes"
	"github.com/booknetwork/booknet/pkg/models"
	"github.com/pkg/errors"
	"github.com/uptrace/bun"
	"golang.org/x/crypto/bcrypt"
)

// BcryptCost is the cost factor for bcrypt hashing.
const BcryptCost = bcrypt.DefaultCost

// Service handles user records. It accepts either a *bun.DB or a bun.Tx so
// callers can create users inside a larger transaction.
type Service struct {
	db bun.IDB
}

// NewService creates a new users service.
func NewService(db bun.IDB) *Service {
	return &Service{db: db}
}

// CreateUserOptions contains options for creating a user.
type CreateUserOptions struct {
	FirstName string
	LastName  string
	Email     string
	Password  string
	Enabled   bool
}

type RetrieveUserOptions struct {
	ID    *int
	Email *string
}

// NormalizeEmail is applied to every email before it is stored or looked up.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// Create creates a new user with the default role. Users start disabled
// unless opts.Enabled is set.
func (s *Service) Create(ctx context.Context, opts CreateUserOptions) (*models.User, error) {
	email := NormalizeEmail(opts.Email)

	exists, err := s.db.NewSelect().
		Model((*models.User)(nil)).
		Where("email = ?", email).
		Exists(ctx)
	if err != nil {
		return nil, errors.WithStack(err)
	}
	if exists {
		return nil, errcodes.ValidationError("Email already exists")
	}

	role := &models.Role{}
	err = s.db.NewSelect().
		Model(role).
		Where("name = ?", models.RoleUser).
		Scan(ctx)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, errors.Errorf("role %q is not seeded", models.RoleUser)
		}
		return nil, errors.WithStack(err)
	}

	hashedPassword, err := HashPassword(opts.Password)
	if err != nil {
		return nil, err
	}

	now := time.Now()
	user := &models.User{
		CreatedAt:    now,
		UpdatedAt:    now,
		FirstName:    opts.FirstName,
		LastName:     opts.LastName,
		Email:        email,
		PasswordHash: hashedPassword,
		RoleID:       role.ID,
		Enabled:      opts.Enabled,
	}

	_, err = s.db.NewInsert().Model(user).Returning("*").Exec(ctx)
	if err != nil {
		// Two registrations can race past the existence check.
		if database.IsUniqueViolation(err) {
			return nil, errcodes.ValidationError("Email already exists")
		}
		return nil, errors.WithStack(err)
	}
	user.Role = role

	return user, nil
}

// Retrieve gets a user by ID or email.
func (s *Service) Retrieve(ctx context.Context, opts RetrieveUserOptions) (*models.User, error) {
	user := &models.User{}
	q := s.db.NewSelect().
		Model(user).
		Relation("Role")

	if opts.ID != nil {
		q = q.Where("u.id = ?", *opts.ID)
	}
	if opts.Email != nil {
		q = q.Where("u.email = ?", NormalizeEmail(*opts.Email))
	}

	err := q.Scan(ctx)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, errcodes.NotFound("User")
		}
		return nil, errors.WithStack(err)
	}
	return user, nil
}

// Enable marks an account as activated.
func (s *Service) Enable(ctx context.Context, userID int) error {
	res, err := s.db.NewUpdate().
		Model((*models.User)(nil)).
		Set("enabled = ?", true).
		Set("updated_at = ?", time.Now()).
		Where("id = ?", userID).
		Exec(ctx)
	if err != nil {
		return errors.WithStack(err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return errcodes.NotFound("User")
	}
	return nil
}

// SetLocked locks or unlocks an account.
func (s *Service) SetLocked(ctx context.Context, userID int, locked bool) error {
	_, err := s.db.NewUpdate().
		Model((*models.User)(nil)).
		Set("account_locked = ?", locked).
		Set("updated_at = ?", time.Now()).
		Where("id = ?", userID).
		Exec(ctx)
	return errors.WithStack(err)
}

// HashPassword hashes a password using bcrypt.
func HashPassword(password string) (string, error) {
	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(password), BcryptCost)
	if err != nil {
		return "", errors.WithStack(err)
	}
	return string(hashedPassword), nil
}

// CheckPassword compares a password with a hash.
func CheckPassword(password, hash string) bool {
	err := bcrypt.CompareHashAndPassword([]byte(hash), []byte(password))
	return err == nil
}
