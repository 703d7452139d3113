package services

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/dgrijalva/jwt-go"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"storefront/internal/apperr"
	"storefront/internal/models"
	"storefront/internal/repositories"
	"storefront/pkg/ids"
)

// DefaultTokenTTL is the lifetime of a session token.
const DefaultTokenTTL = time.Hour

const minPasswordLength = 6

var errInvalidCredentials = apperr.New(apperr.Unauthenticated, "invalid credentials")

// AuthService handles business logic for authentication and authorization.
type AuthService struct {
	userRepo  repositories.UserRepository
	jwtSecret []byte
	tokenTTL  time.Duration
	rt        Runtime
}

// NewAuthService creates a new AuthService.
func NewAuthService(userRepo repositories.UserRepository, jwtSecret string, tokenTTL time.Duration, rt Runtime) *AuthService {
	if tokenTTL <= 0 {
		tokenTTL = DefaultTokenTTL
	}
	return &AuthService{
		userRepo:  userRepo,
		jwtSecret: []byte(jwtSecret),
		tokenTTL:  tokenTTL,
		rt:        rt.normalize(),
	}
}

// ProfileUpdate is a partial profile change. Nil fields are left as they are.
type ProfileUpdate struct {
	Name     *string
	Phone    *string
	Avatar   *string
	Password *string
}

// Register creates a user with the default role and returns it.
func (s *AuthService) Register(ctx context.Context, email, password, name string) (*models.User, error) {
	email = strings.TrimSpace(email)
	name = strings.TrimSpace(name)

	fields := map[string]string{}
	if email == "" {
		fields["email"] = "email is required"
	}
	if len(password) < minPasswordLength {
		fields["password"] = fmt.Sprintf("password must be at least %d characters", minPasswordLength)
	}
	if name == "" {
		fields["name"] = "name is required"
	}
	if len(fields) > 0 {
		return nil, apperr.Invalid("validation failed", fields)
	}

	ctx, cancel := s.rt.bounded(ctx)
	defer cancel()

	existing, err := s.userRepo.GetByEmail(ctx, email)
	if err == nil && existing != nil {
		return nil, apperr.Newf(apperr.Conflict, "email '%s' already registered", email)
	}
	if err != nil && !apperr.Is(err, apperr.NotFound) {
		return nil, err
	}

	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, apperr.Wrap(apperr.Internal, "failed to hash password", err)
	}

	user := &models.User{
		Email:        email,
		Name:         name,
		PasswordHash: string(hashedPassword),
		Role:         models.RoleUser,
	}
	if err := s.userRepo.Create(ctx, user); err != nil {
		if apperr.Is(err, apperr.Conflict) {
			return nil, apperr.Newf(apperr.Conflict, "email '%s' already registered", email)
		}
		return nil, err
	}

	s.rt.Logger.Info("user registered", zap.String("user_id", user.ID))
	return user, nil
}

// Login verifies credentials and returns a signed token with the caller's profile.
// Unknown email and wrong password produce the same error.
func (s *AuthService) Login(ctx context.Context, email, password string) (string, *models.Profile, error) {
	ctx, cancel := s.rt.bounded(ctx)
	defer cancel()

	user, err := s.userRepo.GetByEmail(ctx, strings.TrimSpace(email))
	if err != nil {
		if apperr.Is(err, apperr.NotFound) {
			return "", nil, errInvalidCredentials
		}
		return "", nil, err
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		return "", nil, errInvalidCredentials
	}

	token, err := s.IssueToken(user)
	if err != nil {
		return "", nil, err
	}

	profile := user.Profile()
	return token, &profile, nil
}

// IssueToken signs a session token for user.
func (s *AuthService) IssueToken(user *models.User) (string, error) {
	now := time.Now()
	claims := models.Claims{
		UserID: user.ID,
		Email:  user.Email,
		Role:   user.Role,
		StandardClaims: jwt.StandardClaims{
			Id:        ids.NewKSUID(),
			Subject:   user.ID,
			IssuedAt:  now.Unix(),
			ExpiresAt: now.Add(s.tokenTTL).Unix(),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	tokenString, err := token.SignedString(s.jwtSecret)
	if err != nil {
		return "", apperr.Wrap(apperr.Internal, "failed to generate token", err)
	}
	return tokenString, nil
}

// ValidateToken parses and validates a token. A missing token is
// Unauthenticated; a malformed, expired or forged one is Forbidden.
func (s *AuthService) ValidateToken(tokenString string) (*models.Claims, error) {
	if strings.TrimSpace(tokenString) == "" {
		return nil, apperr.New(apperr.Unauthenticated, "missing token")
	}

	claims := &models.Claims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return s.jwtSecret, nil
	})
	if err != nil {
		return nil, apperr.Wrap(apperr.Forbidden, "invalid or expired token", err)
	}
	if !token.Valid || claims.UserID == "" || !claims.Role.Valid() {
		return nil, apperr.New(apperr.Forbidden, "invalid or expired token")
	}
	return claims, nil
}

// Profile returns the sanitized profile of userID.
func (s *AuthService) Profile(ctx context.Context, userID string) (*models.Profile, error) {
	ctx, cancel := s.rt.bounded(ctx)
	defer cancel()

	user, err := s.userRepo.GetByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	profile := user.Profile()
	return &profile, nil
}

// UpdateProfile applies a partial update and returns the refreshed profile.
// Email cannot be changed here; the token is not reissued.
func (s *AuthService) UpdateProfile(ctx context.Context, userID string, update ProfileUpdate) (*models.Profile, error) {
	fields := map[string]string{}
	if update.Name != nil && strings.TrimSpace(*update.Name) == "" {
		fields["name"] = "name cannot be empty"
	}
	if update.Password != nil && *update.Password != "" && len(*update.Password) < minPasswordLength {
		fields["password"] = fmt.Sprintf("password must be at least %d characters", minPasswordLength)
	}
	if len(fields) > 0 {
		return nil, apperr.Invalid("validation failed", fields)
	}

	ctx, cancel := s.rt.bounded(ctx)
	defer cancel()

	user, err := s.userRepo.GetByID(ctx, userID)
	if err != nil {
		return nil, err
	}

	if update.Name != nil {
		user.Name = strings.TrimSpace(*update.Name)
	}
	if update.Phone != nil {
		user.Phone = strings.TrimSpace(*update.Phone)
	}
	if update.Avatar != nil {
		user.Avatar = *update.Avatar
	}
	if update.Password != nil && *update.Password != "" {
		hashed, err := bcrypt.GenerateFromPassword([]byte(*update.Password), bcrypt.DefaultCost)
		if err != nil {
			return nil, apperr.Wrap(apperr.Internal, "failed to hash password", err)
		}
		user.PasswordHash = string(hashed)
	}

	if err := s.userRepo.UpdateProfile(ctx, user); err != nil {
		return nil, err
	}

	s.rt.Logger.Info("profile updated", zap.String("user_id", user.ID))
	profile := user.Profile()
	return &profile, nil
}
