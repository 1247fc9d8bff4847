package usecases

import (
	"errors"
	"fmt"
	"time"
	"zapdesk/internal/entities"
	"zapdesk/internal/repository"

	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/crypto/bcrypt"
)

type AuthUsecase struct {
	userRepo      *repository.UserRepository
	tenantManager *repository.TenantManager
	jwtSecret     []byte
}

func NewAuthUsecase(repo *repository.UserRepository, tenants *repository.TenantManager, secret string) *AuthUsecase {
	return &AuthUsecase{
		userRepo:      repo,
		tenantManager: tenants,
		jwtSecret:     []byte(secret),
	}
}

// Register creates the user plus its isolated tenant schema.
func (uc *AuthUsecase) Register(username, password string) error {
	existing, err := uc.userRepo.GetByUsername(username)
	if err != nil {
		return err
	}
	if existing != nil {
		return errors.New("username already exists")
	}

	hashed, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return err
	}

	user := &entities.User{
		Username:     username,
		PasswordHash: string(hashed),
		Role:         "user",
	}

	if err := uc.userRepo.Create(user); err != nil {
		return err
	}

	schemaName, err := uc.tenantManager.CreateTenantSchema(user.ID)
	if err != nil {
		return fmt.Errorf("provision tenant schema: %w", err)
	}
	return uc.userRepo.UpdateSchemaName(user.ID, schemaName)
}

func (uc *AuthUsecase) Login(username, password string) (string, error) {
	user, err := uc.userRepo.GetByUsername(username)
	if err != nil {
		return "", err
	}
	if user == nil {
		return "", errors.New("invalid credentials")
	}
	if !user.IsActive {
		return "", errors.New("account disabled")
	}

	err = bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password))
	if err != nil {
		return "", errors.New("invalid credentials")
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"user_id":     user.ID,
		"role":        user.Role,
		"schema_name": user.SchemaName,
		"exp":         time.Now().Add(time.Hour * 24).Unix(),
	})

	tokenString, err := token.SignedString(uc.jwtSecret)
	if err != nil {
		return "", fmt.Errorf("failed to sign token: %v", err)
	}

	return tokenString, nil
}

// EnsureAdmin creates a root user if none exists (called on startup)
func (uc *AuthUsecase) EnsureAdmin(username, password string) error {
	user, err := uc.userRepo.GetByUsername(username)
	if err != nil {
		return err
	}
	if user == nil {
		hashed, _ := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
		admin := &entities.User{
			Username:     username,
			PasswordHash: string(hashed),
			Role:         "admin",
		}
		if err := uc.userRepo.Create(admin); err != nil {
			return err
		}
		schemaName, err := uc.tenantManager.CreateTenantSchema(admin.ID)
		if err != nil {
			return err
		}
		return uc.userRepo.UpdateSchemaName(admin.ID, schemaName)
	}
	return nil
}
