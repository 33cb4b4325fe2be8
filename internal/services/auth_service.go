package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/prudhvinik1/nurseaide/internal/models"
	"github.com/prudhvinik1/nurseaide/internal/repositories"
	"github.com/prudhvinik1/nurseaide/internal/utils"
)

var (
	ErrInvalidCredentials = errors.New("invalid email or password")
	ErrEmailExists        = errors.New("email already exists")
	ErrInvalidToken       = errors.New("invalid token")
)

// AuthService handles caregiver accounts and dashboard sessions.
type AuthService struct {
	caregiverRepo repositories.CaregiverRepository
	sessionRepo   repositories.SessionRepository
	jwtSecret     string
	jwtExpiry     time.Duration
}

type LoginResponse struct {
	Token       string    `json:"token"`
	ExpiresAt   time.Time `json:"expires_at"`
	CaregiverID uuid.UUID `json:"caregiver_id"`
}

type TokenClaims struct {
	CaregiverID uuid.UUID
	SessionID   string
}

func NewAuthService(
	caregiverRepo repositories.CaregiverRepository,
	sessionRepo repositories.SessionRepository,
	jwtSecret string,
	jwtExpiry time.Duration,
) *AuthService {
	return &AuthService{
		caregiverRepo: caregiverRepo,
		sessionRepo:   sessionRepo,
		jwtSecret:     jwtSecret,
		jwtExpiry:     jwtExpiry,
	}
}

func (s *AuthService) Register(ctx context.Context, email, displayName, password string) (*models.Caregiver, error) {
	email = normalizeEmail(email)

	existing, err := s.caregiverRepo.GetByEmail(ctx, email)
	if err == nil && existing != nil {
		return nil, ErrEmailExists
	}
	if err != nil && !errors.Is(err, repositories.ErrNotFound) {
		return nil, fmt.Errorf("failed to check email: %w", err)
	}

	hashedPassword, err := utils.HashPassword(password)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	caregiver := &models.Caregiver{
		Email:        email,
		DisplayName:  displayName,
		PasswordHash: hashedPassword,
	}
	if err := s.caregiverRepo.Create(ctx, caregiver); err != nil {
		return nil, fmt.Errorf("failed to create caregiver: %w", err)
	}
	return caregiver, nil
}

func (s *AuthService) Login(ctx context.Context, email, password string) (*LoginResponse, error) {
	caregiver, err := s.caregiverRepo.GetByEmail(ctx, normalizeEmail(email))
	if errors.Is(err, repositories.ErrNotFound) {
		return nil, ErrInvalidCredentials
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get caregiver: %w", err)
	}

	if !utils.CheckPassword(caregiver.PasswordHash, password) {
		return nil, ErrInvalidCredentials
	}

	now := time.Now()
	session := &models.Session{
		ID:          uuid.New().String(),
		CaregiverID: caregiver.ID,
		ExpiresAt:   now.Add(s.jwtExpiry),
		CreatedAt:   now,
	}
	if err := s.sessionRepo.Create(ctx, session); err != nil {
		return nil, fmt.Errorf("failed to create session: %w", err)
	}

	token, err := s.generateToken(session)
	if err != nil {
		return nil, fmt.Errorf("failed to generate token: %w", err)
	}

	return &LoginResponse{
		Token:       token,
		ExpiresAt:   session.ExpiresAt,
		CaregiverID: caregiver.ID,
	}, nil
}

func (s *AuthService) generateToken(session *models.Session) (string, error) {
	claims := jwt.RegisteredClaims{
		Subject:   session.CaregiverID.String(),
		ID:        session.ID,
		ExpiresAt: jwt.NewNumericDate(session.ExpiresAt),
		IssuedAt:  jwt.NewNumericDate(session.CreatedAt),
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(s.jwtSecret))
}

// VerifyToken checks the signature, expiry and that the session is still live.
func (s *AuthService) VerifyToken(ctx context.Context, tokenString string) (*TokenClaims, error) {
	var claims jwt.RegisteredClaims
	token, err := jwt.ParseWithClaims(tokenString, &claims, func(token *jwt.Token) (interface{}, error) {
		return []byte(s.jwtSecret), nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}), jwt.WithExpirationRequired())
	if err != nil || !token.Valid {
		return nil, ErrInvalidToken
	}

	caregiverID, err := uuid.Parse(claims.Subject)
	if err != nil || claims.ID == "" {
		return nil, ErrInvalidToken
	}

	session, err := s.sessionRepo.GetByID(ctx, claims.ID)
	if errors.Is(err, repositories.ErrNotFound) {
		return nil, ErrInvalidToken
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get session: %w", err)
	}
	if session.CaregiverID != caregiverID {
		return nil, ErrInvalidToken
	}

	return &TokenClaims{CaregiverID: caregiverID, SessionID: claims.ID}, nil
}

// Logout revokes the session behind an already verified token.
func (s *AuthService) Logout(ctx context.Context, claims *TokenClaims) error {
	err := s.sessionRepo.Delete(ctx, claims.SessionID)
	if err != nil && !errors.Is(err, repositories.ErrNotFound) {
		return fmt.Errorf("failed to delete session: %w", err)
	}
	return nil
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
