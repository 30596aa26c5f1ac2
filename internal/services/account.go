package services

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"unicode/utf8"

	"github.com/kooshamoradpour/G5-TechStore/internal/auth"
	"github.com/kooshamoradpour/G5-TechStore/internal/store"
	"github.com/kooshamoradpour/G5-TechStore/types"
	"github.com/rs/zerolog"
)

const (
	MinPasswordLength = 5
	// bcrypt ignores everything past 72 bytes.
	maxPasswordBytes = 72
)

var emailPattern = regexp.MustCompile(`^.+@.+\..+$`)

// UserRepository defines persistence operations for users.
type UserRepository interface {
	Create(ctx context.Context, user types.User) (types.User, error)
	GetByID(ctx context.Context, id string) (types.User, error)
	GetByEmail(ctx context.Context, email string) (types.User, error)
	UpdatePassword(ctx context.Context, id, passwordHash string) error
	SetAdmin(ctx context.Context, email string, isAdmin bool) (types.User, error)
}

// CartReader loads a user's joined cart.
type CartReader interface {
	ListLines(ctx context.Context, userID string) ([]types.CartItem, error)
}

type RegisterInput struct {
	Username string
	Email    string
	Password string
}

// AccountService owns credentials: registration, login and the current
// user's profile.
type AccountService struct {
	users  UserRepository
	carts  CartReader
	hasher *auth.PasswordHasher
	issuer *auth.Issuer
	events *Events
	logger zerolog.Logger
}

func NewAccountService(
	users UserRepository,
	carts CartReader,
	hasher *auth.PasswordHasher,
	issuer *auth.Issuer,
	events *Events,
	logger zerolog.Logger,
) *AccountService {
	return &AccountService{
		users:  users,
		carts:  carts,
		hasher: hasher,
		issuer: issuer,
		events: events,
		logger: logger,
	}
}

// Register creates an account and returns it with a fresh token.
func (s *AccountService) Register(ctx context.Context, in RegisterInput) (types.User, string, error) {
	username := strings.TrimSpace(in.Username)
	email := normalizeEmail(in.Email)
	if username == "" {
		return types.User{}, "", invalidInput("username is required")
	}
	if !emailPattern.MatchString(email) {
		return types.User{}, "", invalidInput("must use a valid email address")
	}
	if err := validatePassword(in.Password); err != nil {
		return types.User{}, "", err
	}

	hash, err := s.hasher.Hash(in.Password)
	if err != nil {
		return types.User{}, "", internalError("hash password", err)
	}

	user, err := s.users.Create(ctx, types.User{
		Username:     username,
		Email:        email,
		PasswordHash: hash,
	})
	if err != nil {
		var conflict *store.ConflictError
		if errors.As(err, &conflict) {
			field := "email"
			if conflict.Constraint == store.ConstraintUsername {
				field = "username"
			}
			return types.User{}, "", fmt.Errorf("%w: %s already in use", ErrDuplicateIdentity, field)
		}
		return types.User{}, "", internalError("create user", err)
	}
	user.Cart = []types.CartItem{}

	token, err := s.issue(user)
	if err != nil {
		return types.User{}, "", err
	}

	s.logger.Info().Str("user_id", user.ID).Str("username", user.Username).Msg("user registered")
	s.events.Emit(ctx, Event{Type: EventUserRegistered, UserID: user.ID})
	return user, token, nil
}

// Login verifies credentials and returns the user with a fresh token.
func (s *AccountService) Login(ctx context.Context, email, password string) (types.User, string, error) {
	user, err := s.VerifyCredentials(ctx, email, password)
	if err != nil {
		return types.User{}, "", err
	}
	if user, err = s.withCart(ctx, user); err != nil {
		return types.User{}, "", err
	}
	token, err := s.issue(user)
	if err != nil {
		return types.User{}, "", err
	}
	s.logger.Info().Str("user_id", user.ID).Msg("user logged in")
	return user, token, nil
}

// VerifyCredentials returns the user owning email iff password matches.
// Unknown emails and wrong passwords fail identically.
func (s *AccountService) VerifyCredentials(ctx context.Context, email, password string) (types.User, error) {
	email = normalizeEmail(email)
	user, err := s.users.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			s.hasher.CompareDummy(password)
			s.logger.Warn().Msg("login failed")
			return types.User{}, ErrInvalidCredentials
		}
		return types.User{}, internalError("load user", err)
	}

	if err := s.hasher.Compare(user.PasswordHash, password); err != nil {
		if errors.Is(err, auth.ErrPasswordMismatch) {
			s.logger.Warn().Str("user_id", user.ID).Msg("login failed")
			return types.User{}, ErrInvalidCredentials
		}
		return types.User{}, internalError("compare password", err)
	}
	return user, nil
}

// Me returns the caller's user record with its cart.
func (s *AccountService) Me(ctx context.Context) (types.User, error) {
	id, err := CurrentIdentity(ctx)
	if err != nil {
		return types.User{}, err
	}
	return loadUser(ctx, s.users, s.carts, id.UserID)
}

// ChangePassword replaces the caller's password after checking the current one.
func (s *AccountService) ChangePassword(ctx context.Context, current, next string) error {
	id, err := CurrentIdentity(ctx)
	if err != nil {
		return err
	}
	user, err := s.users.GetByID(ctx, id.UserID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return ErrUnauthenticated
		}
		return internalError("load user", err)
	}
	if err := s.hasher.Compare(user.PasswordHash, current); err != nil {
		if errors.Is(err, auth.ErrPasswordMismatch) {
			return ErrInvalidCredentials
		}
		return internalError("compare password", err)
	}
	if err := validatePassword(next); err != nil {
		return err
	}

	hash, err := s.hasher.Hash(next)
	if err != nil {
		return internalError("hash password", err)
	}
	if err := s.users.UpdatePassword(ctx, user.ID, hash); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return ErrUnauthenticated
		}
		return internalError("update password", err)
	}
	s.logger.Info().Str("user_id", user.ID).Msg("password changed")
	return nil
}

// SetAdmin grants or revokes admin rights. It is not exposed over the API.
func (s *AccountService) SetAdmin(ctx context.Context, email string, isAdmin bool) (types.User, error) {
	user, err := s.users.SetAdmin(ctx, normalizeEmail(email), isAdmin)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return types.User{}, fmt.Errorf("%w: no user with that email", ErrNotFound)
		}
		return types.User{}, internalError("set admin", err)
	}
	s.logger.Info().Str("user_id", user.ID).Bool("is_admin", isAdmin).Msg("admin flag changed")
	return user, nil
}

func (s *AccountService) issue(user types.User) (string, error) {
	token, err := s.issuer.Issue(auth.Identity{
		UserID:   user.ID,
		Username: user.Username,
		Email:    user.Email,
		IsAdmin:  user.IsAdmin,
	})
	if err != nil {
		return "", internalError("issue token", err)
	}
	return token, nil
}

func (s *AccountService) withCart(ctx context.Context, user types.User) (types.User, error) {
	items, err := s.carts.ListLines(ctx, user.ID)
	if err != nil {
		return types.User{}, internalError("load cart", err)
	}
	user.Cart = items
	return user, nil
}

// loadUser reads a user and its joined cart. A user that disappeared after
// its token was issued is treated as unauthenticated.
func loadUser(ctx context.Context, users UserRepository, carts CartReader, userID string) (types.User, error) {
	user, err := users.GetByID(ctx, userID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return types.User{}, ErrUnauthenticated
		}
		return types.User{}, internalError("load user", err)
	}
	items, err := carts.ListLines(ctx, userID)
	if err != nil {
		return types.User{}, internalError("load cart", err)
	}
	user.Cart = items
	return user, nil
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func validatePassword(password string) error {
	if utf8.RuneCountInString(password) < MinPasswordLength {
		return invalidInput("password must be at least %d characters", MinPasswordLength)
	}
	if len(password) > maxPasswordBytes {
		return invalidInput("password must be at most %d bytes", maxPasswordBytes)
	}
	return nil
}
