package auth

import (
	"context"
	"crypto/rand"
	"database/sql"
	"math/big"
	"time"

	"github.com/booknetwork/booknet/pkg/config"
	"github.com/booknetwork/booknet/pkg/errcodes"
	"github.com/booknetwork/booknet/pkg/jobs"
	"github.com/booknetwork/booknet/pkg/models"
	"github.com/booknetwork/booknet/pkg/users"
	"github.com/golang-jwt/jwt/v5"
	"github.com/pkg/errors"
	"github.com/robinjoseph08/golib/logger"
	"github.com/uptrace/bun"
)

const (
	activationCodeLength   = 6
	activationCodeAttempts = 5
	badCredentialsMessage  = "Login email or password is incorrect."
)

// JWTClaims represents the claims in a JWT token.
type JWTClaims struct {
	UserID   int    `json:"user_id"`
	Email    string `json:"email"`
	FullName string `json:"full_name"`
	jwt.RegisteredClaims
}

// Service handles registration, activation and authentication.
type Service struct {
	db        *bun.DB
	jwtSecret []byte
	jwtExpiry time.Duration
	now       func() time.Time
}

// NewService creates a new auth service.
func NewService(db *bun.DB, cfg *config.Config) *Service {
	return &Service{
		db:        db,
		jwtSecret: []byte(cfg.JWTSecret),
		jwtExpiry: cfg.JWTExpiry,
		now:       time.Now,
	}
}

type RegisterOptions struct {
	FirstName string
	LastName  string
	Email     string
	Password  string
}

// Register creates a disabled account and queues its activation email.
func (s *Service) Register(ctx context.Context, opts RegisterOptions) (*models.User, error) {
	var user *models.User
	err := s.db.RunInTx(ctx, &sql.TxOptions{}, func(ctx context.Context, tx bun.Tx) error {
		var err error
		user, err = users.NewService(tx).Create(ctx, users.CreateUserOptions{
			FirstName: opts.FirstName,
			LastName:  opts.LastName,
			Email:     opts.Email,
			Password:  opts.Password,
		})
		if err != nil {
			return err
		}
		_, err = s.issueActivationToken(ctx, tx, user.ID)
		return err
	})
	if err != nil {
		return nil, err
	}

	logger.FromContext(ctx).Info("user registered", logger.Data{"user_id": user.ID})
	return user, nil
}

// issueActivationToken stores a fresh activation code for the user and queues
// the email carrying it.
func (s *Service) issueActivationToken(ctx context.Context, idb bun.IDB, userID int) (*models.Token, error) {
	var code string
	for attempt := 0; ; attempt++ {
		if attempt == activationCodeAttempts {
			return nil, errors.New("failed to generate a unique activation code")
		}
		var err error
		code, err = generateActivationCode(activationCodeLength)
		if err != nil {
			return nil, err
		}
		taken, err := idb.NewSelect().
			Model((*models.Token)(nil)).
			Where("token = ?", code).
			Exists(ctx)
		if err != nil {
			return nil, errors.WithStack(err)
		}
		if !taken {
			break
		}
	}

	now := s.now()
	token := &models.Token{
		CreatedAt: now,
		UserID:    userID,
		Token:     code,
		ExpiresAt: now.Add(models.ActivationTokenTTL),
	}
	_, err := idb.NewInsert().Model(token).Returning("*").Exec(ctx)
	if err != nil {
		return nil, errors.WithStack(err)
	}

	_, err = jobs.NewService(idb).EnqueueActivationEmail(ctx, userID, code)
	if err != nil {
		return nil, err
	}

	return token, nil
}

// generateActivationCode returns a string of n random decimal digits.
func generateActivationCode(n int) (string, error) {
	code := make([]byte, n)
	for i := range code {
		d, err := rand.Int(rand.Reader, big.NewInt(10))
		if err != nil {
			return "", errors.WithStack(err)
		}
		code[i] = byte('0' + d.Int64())
	}
	return string(code), nil
}

// Activate enables the account the code was issued for. An expired code gets
// replaced by a new one, which is emailed before TokenExpired is returned.
func (s *Service) Activate(ctx context.Context, code string) error {
	token := &models.Token{}
	err := s.db.NewSelect().
		Model(token).
		Where("t.token = ?", code).
		Scan(ctx)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return errcodes.NotFound("Token")
		}
		return errors.WithStack(err)
	}

	if token.ValidatedAt != nil {
		return errcodes.Conflict("Account has already been activated.")
	}

	now := s.now()
	if token.Expired(now) {
		if _, err := s.issueActivationToken(ctx, s.db, token.UserID); err != nil {
			return err
		}
		return errcodes.TokenExpired()
	}

	return s.db.RunInTx(ctx, &sql.TxOptions{}, func(ctx context.Context, tx bun.Tx) error {
		if err := users.NewService(tx).Enable(ctx, token.UserID); err != nil {
			return err
		}
		token.ValidatedAt = &now
		_, err := tx.NewUpdate().
			Model(token).
			Column("validated_at").
			WherePK().
			Exec(ctx)
		return errors.WithStack(err)
	})
}

// Authenticate checks credentials and account status and returns the user
// with a signed token.
func (s *Service) Authenticate(ctx context.Context, email, password string) (*models.User, string, error) {
	user, err := users.NewService(s.db).Retrieve(ctx, users.RetrieveUserOptions{Email: &email})
	if err != nil {
		if errors.Is(err, errcodes.NotFound("User")) {
			return nil, "", errcodes.Unauthorized(badCredentialsMessage)
		}
		return nil, "", err
	}

	if !users.CheckPassword(password, user.PasswordHash) {
		return nil, "", errcodes.Unauthorized(badCredentialsMessage)
	}
	if err := checkAccountStatus(user); err != nil {
		return nil, "", err
	}

	token, err := s.GenerateToken(user)
	if err != nil {
		return nil, "", err
	}
	return user, token, nil
}

func checkAccountStatus(user *models.User) error {
	if user.AccountLocked {
		return errcodes.AccountLocked()
	}
	if !user.Enabled {
		return errcodes.AccountDisabled()
	}
	return nil
}

// GenerateToken creates a new JWT token for the user.
func (s *Service) GenerateToken(user *models.User) (string, error) {
	now := s.now()
	claims := JWTClaims{
		UserID:   user.ID,
		Email:    user.Email,
		FullName: user.FullName(),
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   user.Email,
			ExpiresAt: jwt.NewNumericDate(now.Add(s.jwtExpiry)),
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signedToken, err := token.SignedString(s.jwtSecret)
	if err != nil {
		return "", errors.WithStack(err)
	}

	return signedToken, nil
}

// ValidateToken validates a JWT token and returns the claims.
func (s *Service) ValidateToken(tokenString string) (*JWTClaims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &JWTClaims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errors.New("unexpected signing method")
		}
		return s.jwtSecret, nil
	}, jwt.WithTimeFunc(s.now))
	if err != nil {
		return nil, errors.WithStack(err)
	}

	claims, ok := token.Claims.(*JWTClaims)
	if !ok || !token.Valid {
		return nil, errors.New("invalid token")
	}

	return claims, nil
}

// GetUserByID retrieves a user by ID.
func (s *Service) GetUserByID(ctx context.Context, id int) (*models.User, error) {
	return users.NewService(s.db).Retrieve(ctx, users.RetrieveUserOptions{ID: &id})
}
