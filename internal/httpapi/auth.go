package httpapi

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	jwtlib "github.com/golang-jwt/jwt/v5"
	"golang.org/x/crypto/bcrypt"

	"craftstock/backend/internal/domain"
	"craftstock/backend/internal/store"
	"craftstock/backend/internal/xid"
)

var (
	errInvalidCredentials = errors.New("invalid credentials")
	errInvalidToken       = errors.New("invalid or expired token")
)

const tokenIssuer = "craftstock"

type UserStore interface {
	CreateUser(ctx context.Context, user domain.User) error
	GetUserByUsername(ctx context.Context, username string) (*domain.User, error)
	UserExists(ctx context.Context, username string, email string) (bool, error)
}

type AuthManager struct {
	secret   []byte
	tokenTTL time.Duration
	users    UserStore
	validate *validator.Validate
	now      func() time.Time
}

type accessClaims struct {
	jwtlib.RegisteredClaims
	Username string `json:"username"`
}

func NewAuthManager(secret string, tokenTTL time.Duration, users UserStore) *AuthManager {
	if secret == "" {
		secret = "dev-change-me"
	}
	if tokenTTL <= 0 {
		tokenTTL = 8 * time.Hour
	}
	return &AuthManager{
		secret:   []byte(secret),
		tokenTTL: tokenTTL,
		users:    users,
		validate: validator.New(validator.WithRequiredStructEnabled()),
		now:      func() time.Time { return time.Now().UTC() },
	}
}

func (a *AuthManager) Register(ctx context.Context, req domain.RegisterRequest) (domain.AuthResponse, error) {
	req.Username = strings.TrimSpace(req.Username)
	req.Email = strings.ToLower(strings.TrimSpace(req.Email))
	if err := a.validate.Struct(req); err != nil {
		var fieldErrs validator.ValidationErrors
		if errors.As(err, &fieldErrs) && len(fieldErrs) > 0 {
			fe := fieldErrs[0]
			return domain.AuthResponse{}, store.Invalidf("%s failed on %s", strings.ToLower(fe.Field()), fe.Tag())
		}
		return domain.AuthResponse{}, store.Invalidf("%v", err)
	}
	if strings.ContainsAny(req.Username, " \t\r\n") {
		return domain.AuthResponse{}, store.Invalidf("username must not contain spaces")
	}

	exists, err := a.users.UserExists(ctx, req.Username, req.Email)
	if err != nil {
		return domain.AuthResponse{}, err
	}
	if exists {
		return domain.AuthResponse{}, fmt.Errorf("username or email already registered: %w", store.ErrConflict)
	}

	hash, err := hashPassword(req.Password)
	if err != nil {
		return domain.AuthResponse{}, fmt.Errorf("hash password: %w", err)
	}
	user := domain.User{
		ID:           xid.New(),
		Username:     req.Username,
		Email:        req.Email,
		PasswordHash: hash,
		CreatedAt:    a.now(),
	}
	if err := a.users.CreateUser(ctx, user); err != nil {
		return domain.AuthResponse{}, err
	}
	return a.issue(user)
}

func (a *AuthManager) Login(ctx context.Context, req domain.LoginRequest) (domain.AuthResponse, error) {
	username := strings.TrimSpace(req.Username)
	if username == "" || req.Password == "" {
		return domain.AuthResponse{}, errInvalidCredentials
	}

	user, err := a.users.GetUserByUsername(ctx, username)
	if errors.Is(err, store.ErrNotFound) {
		return domain.AuthResponse{}, errInvalidCredentials
	}
	if err != nil {
		return domain.AuthResponse{}, err
	}
	if !verifyPassword(user.PasswordHash, req.Password) {
		return domain.AuthResponse{}, errInvalidCredentials
	}
	return a.issue(*user)
}

func (a *AuthManager) issue(user domain.User) (domain.AuthResponse, error) {
	expiresAt := a.now().Add(a.tokenTTL)
	token, err := a.sign(user, expiresAt)
	if err != nil {
		return domain.AuthResponse{}, err
	}
	return domain.AuthResponse{
		Token:     token,
		ExpiresAt: expiresAt.Format(time.RFC3339),
		User:      user,
	}, nil
}

func (a *AuthManager) ParseToken(tokenStr string) (domain.Actor, error) {
	claims := &accessClaims{}
	token, err := jwtlib.ParseWithClaims(tokenStr, claims, func(t *jwtlib.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwtlib.SigningMethodHMAC); !ok {
			return nil, errors.New("unexpected signing method")
		}
		return a.secret, nil
	}, jwtlib.WithValidMethods([]string{"HS256"}), jwtlib.WithIssuer(tokenIssuer))
	if err != nil || !token.Valid {
		return domain.Actor{}, errInvalidToken
	}
	sub, err := claims.GetSubject()
	if err != nil || sub == "" {
		return domain.Actor{}, errors.New("invalid token subject")
	}
	return domain.Actor{UserID: sub, Username: claims.Username}, nil
}

func (a *AuthManager) sign(user domain.User, expiresAt time.Time) (string, error) {
	claims := accessClaims{
		RegisteredClaims: jwtlib.RegisteredClaims{
			Subject:   user.ID,
			IssuedAt:  jwtlib.NewNumericDate(a.now()),
			ExpiresAt: jwtlib.NewNumericDate(expiresAt),
			Issuer:    tokenIssuer,
		},
		Username: user.Username,
	}
	token := jwtlib.NewWithClaims(jwtlib.SigningMethodHS256, claims)
	return token.SignedString(a.secret)
}

func verifyPassword(stored string, input string) bool {
	if stored == "" || strings.TrimSpace(input) == "" || !isPasswordHash(stored) {
		return false
	}
	return bcrypt.CompareHashAndPassword([]byte(stored), []byte(input)) == nil
}

func hashPassword(password string) (string, error) {
	bytes, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", err
	}
	return string(bytes), nil
}

func isPasswordHash(value string) bool {
	return strings.HasPrefix(value, "$2a$") || strings.HasPrefix(value, "$2b$") || strings.HasPrefix(value, "$2y$")
}
