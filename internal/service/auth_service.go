package service

import (
	"context"
	"errors"
	"fmt"

	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"

	"adcards/internal/auth"
	"adcards/internal/model"
	"adcards/internal/repository"
)

const bcryptCost = 10

var (
	// ErrInvalidCredentials is returned when email or password is incorrect.
	ErrInvalidCredentials = errors.New("invalid email or password")
	// ErrOperatorAlreadyExists is returned when trying to register an existing operator.
	ErrOperatorAlreadyExists = errors.New("operator already exists")
	// ErrInvalidRefreshToken is returned when refresh token is invalid or expired.
	ErrInvalidRefreshToken = errors.New("invalid or expired refresh token")
	// ErrUnknownRole is returned when registering with a role outside the known set.
	ErrUnknownRole = errors.New("unknown role")
)

// AuthService handles operator authentication.
type AuthService interface {
	Register(ctx context.Context, email, password, name, role string) (*model.Operator, error)
	Login(ctx context.Context, email, password string) (accessToken, refreshToken string, operator *model.Operator, err error)
	RefreshToken(ctx context.Context, refreshToken string) (string, error)
	Logout(ctx context.Context, refreshToken string) error
}

type authService struct {
	operatorRepo repository.OperatorRepository
	jwtService   *auth.JWTService
	tokenStore   auth.TokenStoreInterface
}

// NewAuthService creates a new auth service.
func NewAuthService(
	operatorRepo repository.OperatorRepository,
	jwtService *auth.JWTService,
	tokenStore auth.TokenStoreInterface,
) AuthService {
	return &authService{
		operatorRepo: operatorRepo,
		jwtService:   jwtService,
		tokenStore:   tokenStore,
	}
}

// Register creates a new operator with a bcrypt password hash. An empty
// role defaults to account.
func (s *authService) Register(ctx context.Context, email, password, name, role string) (*model.Operator, error) {
	if role == "" {
		role = model.RoleAccount
	}
	if role != model.RoleAdmin && role != model.RoleAccount && role != model.RoleViewer {
		return nil, ErrUnknownRole
	}

	if _, err := s.operatorRepo.FindByEmail(ctx, email); err == nil {
		return nil, ErrOperatorAlreadyExists
	} else if err != gorm.ErrRecordNotFound {
		return nil, fmt.Errorf("check operator: %w", err)
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcryptCost)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}

	operator := &model.Operator{
		Name:         name,
		Email:        email,
		PasswordHash: string(hash),
		Role:         role,
		Active:       true,
	}
	if err := s.operatorRepo.Create(ctx, operator); err != nil {
		if err == gorm.ErrDuplicatedKey {
			return nil, ErrOperatorAlreadyExists
		}
		return nil, fmt.Errorf("create operator: %w", err)
	}
	return operator, nil
}

// Login verifies credentials and issues an access/refresh token pair.
func (s *authService) Login(ctx context.Context, email, password string) (string, string, *model.Operator, error) {
	operator, err := s.operatorRepo.FindByEmail(ctx, email)
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return "", "", nil, ErrInvalidCredentials
		}
		return "", "", nil, fmt.Errorf("find operator: %w", err)
	}

	if !operator.Active {
		return "", "", nil, ErrInvalidCredentials
	}
	if bcrypt.CompareHashAndPassword([]byte(operator.PasswordHash), []byte(password)) != nil {
		return "", "", nil, ErrInvalidCredentials
	}

	accessToken, err := s.jwtService.GenerateAccessToken(operator.ID, operator.Email, operator.Role)
	if err != nil {
		return "", "", nil, fmt.Errorf("generate access token: %w", err)
	}

	tokenID, refreshToken, err := s.jwtService.GenerateRefreshToken(operator.ID, operator.Email, operator.Role)
	if err != nil {
		return "", "", nil, fmt.Errorf("generate refresh token: %w", err)
	}
	if err := s.tokenStore.StoreRefreshToken(ctx, tokenID, operator.ID, operator.Email, operator.Role, auth.RefreshTokenExpiry); err != nil {
		return "", "", nil, fmt.Errorf("store refresh token: %w", err)
	}

	return accessToken, refreshToken, operator, nil
}

// RefreshToken issues a fresh access token against a stored refresh token.
func (s *authService) RefreshToken(ctx context.Context, refreshToken string) (string, error) {
	tokenID, err := s.jwtService.ExtractTokenID(refreshToken)
	if err != nil {
		return "", ErrInvalidRefreshToken
	}

	operatorID, email, role, err := s.tokenStore.GetRefreshToken(ctx, tokenID)
	if err != nil {
		return "", ErrInvalidRefreshToken
	}

	accessToken, err := s.jwtService.GenerateAccessToken(operatorID, email, role)
	if err != nil {
		return "", fmt.Errorf("generate access token: %w", err)
	}
	return accessToken, nil
}

// Logout invalidates the refresh token.
func (s *authService) Logout(ctx context.Context, refreshToken string) error {
	tokenID, err := s.jwtService.ExtractTokenID(refreshToken)
	if err != nil {
		return ErrInvalidRefreshToken
	}
	if _, _, _, err := s.tokenStore.GetRefreshToken(ctx, tokenID); err != nil {
		return ErrInvalidRefreshToken
	}
	return s.tokenStore.DeleteRefreshToken(ctx, tokenID)
}
