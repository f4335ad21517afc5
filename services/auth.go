package services

import (
	"context"
	"errors"
	"fmt"
	"law_consult_app/models"
	"strings"
	"unicode"

	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

const (
	// BcryptCost is the cost factor for bcrypt hashing
	BcryptCost = 10
	// MinPasswordLength is the shortest accepted password
	MinPasswordLength = 10
)

// ErrInvalidCredentials is returned for an unknown email, an inactive user or a wrong password
var ErrInvalidCredentials = errors.New("invalid email or password")

// HashPassword hashes a password using bcrypt
func HashPassword(password string) (string, error) {
	bytes, err := bcrypt.GenerateFromPassword([]byte(password), BcryptCost)
	if err != nil {
		return "", fmt.Errorf("failed to hash password: %w", err)
	}
	return string(bytes), nil
}

// CheckPassword verifies a password against a hash
func CheckPassword(password, hash string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)) == nil
}

// PasswordProblems lists every complexity rule the password breaks
func PasswordProblems(password string) []string {
	var problems []string
	if len(password) < MinPasswordLength {
		problems = append(problems, fmt.Sprintf("password must be at least %d characters long", MinPasswordLength))
	}

	var hasUpper, hasLower, hasNumber bool
	for _, char := range password {
		switch {
		case unicode.IsUpper(char):
			hasUpper = true
		case unicode.IsLower(char):
			hasLower = true
		case unicode.IsNumber(char):
			hasNumber = true
		}
	}
	if !hasUpper {
		problems = append(problems, "password must contain at least one uppercase letter")
	}
	if !hasLower {
		problems = append(problems, "password must contain at least one lowercase letter")
	}
	if !hasNumber {
		problems = append(problems, "password must contain at least one number")
	}
	return problems
}

// Authenticate returns the active user matching email and password
func Authenticate(ctx context.Context, db *gorm.DB, email, password string) (*models.User, error) {
	var user models.User
	err := db.WithContext(ctx).
		Where("LOWER(email) = ? AND is_active = ?", strings.ToLower(strings.TrimSpace(email)), true).
		First(&user).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrInvalidCredentials
		}
		return nil, dependency("load user", err)
	}
	if !CheckPassword(password, user.Password) {
		return nil, ErrInvalidCredentials
	}
	return &user, nil
}

// UserInput creates a user account
type UserInput struct {
	Name          string   `json:"name" validate:"required,min=3,max=200"`
	Email         string   `json:"email" validate:"required,email,max=255"`
	Password      string   `json:"password"`
	Phone         string   `json:"phone"`
	Role          string   `json:"role" validate:"oneof=admin lawyer"`
	Language      string   `json:"language" validate:"omitempty,oneof=en es"`
	PracticeAreas []string `json:"practice_areas"` // codes; unknown codes are created
}

// CreateUser validates the input, hashes the password and stores the user with its practice areas
func CreateUser(ctx context.Context, db *gorm.DB, in UserInput) (*models.User, error) {
	in.Name = SanitizeText(in.Name)
	in.Email = strings.ToLower(strings.TrimSpace(in.Email))
	in.Role = strings.ToLower(strings.TrimSpace(in.Role))
	if in.Role == "" {
		in.Role = models.RoleLawyer
	}

	in.Language = strings.ToLower(strings.TrimSpace(in.Language))

	problems := structProblems(validate.StructCtx(ctx, &in))
	problems = append(problems, PasswordProblems(in.Password)...)
	if len(problems) > 0 {
		return nil, NewValidationError(problems...)
	}

	hash, err := HashPassword(in.Password)
	if err != nil {
		return nil, err
	}

	user := &models.User{
		Name:     in.Name,
		Email:    in.Email,
		Password: hash,
		Phone:    strings.TrimSpace(in.Phone),
		Role:     in.Role,
		IsActive: true,
		Language: in.Language,
	}
	if user.Language == "" {
		user.Language = "es"
	}

	err = db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var existing int64
		if err := tx.Model(&models.User{}).Where("LOWER(email) = ?", in.Email).Count(&existing).Error; err != nil {
			return err
		}
		if existing > 0 {
			return NewValidationError("a user with this email already exists")
		}

		areas, err := EnsurePracticeAreas(tx, in.PracticeAreas)
		if err != nil {
			return err
		}
		user.PracticeAreas = areas
		return tx.Create(user).Error
	})
	if err != nil {
		return nil, dependency("create user", err)
	}
	return user, nil
}

// EnsurePracticeAreas returns the practice areas with the given codes, creating missing ones
func EnsurePracticeAreas(db *gorm.DB, codes []string) ([]models.PracticeArea, error) {
	var areas []models.PracticeArea
	for _, code := range uniqueStrings(codes) {
		code = strings.ToLower(code)
		area := models.PracticeArea{Code: code}
		err := db.Where(models.PracticeArea{Code: code}).
			Attrs(models.PracticeArea{Name: displayName(code), IsActive: true}).
			FirstOrCreate(&area).Error
		if err != nil {
			return nil, err
		}
		areas = append(areas, area)
	}
	return areas, nil
}

// displayName turns a code like "family_law" into "Family Law"
func displayName(code string) string {
	words := strings.FieldsFunc(code, func(r rune) bool { return r == '_' || r == '-' || r == ' ' })
	for i, w := range words {
		if w != "" {
			words[i] = strings.ToUpper(w[:1]) + w[1:]
		}
	}
	return strings.Join(words, " ")
}
