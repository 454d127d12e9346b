package utils

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// Capability token purposes. Onboarding tokens open the full session
// wizard; module tokens are scoped to exactly one form type.
const (
	PurposeOnboarding = "onboarding"
	PurposeModule     = "module"
)

const DefaultSessionTokenTTL = 168 * time.Hour // 7 days

// Internally distinguishable token failures. Employee-facing responses
// collapse all three into one generic message; the audit log keeps the
// real reason.
var (
	ErrTokenExpired = errors.New("token expired")
	ErrTokenInvalid = errors.New("token invalid")
	ErrTokenRevoked = errors.New("token revoked")
)

// OnboardingClaims is the self-describing payload of an employee
// capability token. Employees have no accounts, so this token is their
// entire identity: it must be signed, carry its own expiry, and bind the
// exact session or module it opens.
type OnboardingClaims struct {
	Purpose    string `json:"purpose"`
	EmployeeID uint   `json:"employee_id"`
	SessionID  uint   `json:"session_id,omitempty"`
	ModuleID   uint   `json:"module_id,omitempty"`
	ModuleType string `json:"module_type,omitempty"`
	jwt.RegisteredClaims
}

func IssueSessionToken(employeeID, sessionID uint, ttl time.Duration) (string, time.Time, error) {
	exp := time.Now().Add(ttl)
	claims := &OnboardingClaims{
		Purpose:    PurposeOnboarding,
		EmployeeID: employeeID,
		SessionID:  sessionID,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.NewString(),
			ExpiresAt: jwt.NewNumericDate(exp),
			IssuedAt:  jwt.NewNumericDate(time.Now()),
			Issuer:    "onboarding-app",
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	s, err := token.SignedString(JWTSecret)
	return s, exp, err
}

// IssueModuleToken binds module_type into the signature so a token minted
// for one form cannot be replayed against another form's endpoints.
func IssueModuleToken(employeeID, moduleID uint, moduleType string, ttl time.Duration) (string, time.Time, error) {
	exp := time.Now().Add(ttl)
	claims := &OnboardingClaims{
		Purpose:    PurposeModule,
		EmployeeID: employeeID,
		ModuleID:   moduleID,
		ModuleType: moduleType,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.NewString(),
			ExpiresAt: jwt.NewNumericDate(exp),
			IssuedAt:  jwt.NewNumericDate(time.Now()),
			Issuer:    "onboarding-app",
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	s, err := token.SignedString(JWTSecret)
	return s, exp, err
}

// ValidateCapabilityToken checks signature and expiry. Terminal-state and
// revocation checks need the database and live in the middleware layer.
func ValidateCapabilityToken(tokenString string) (*OnboardingClaims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &OnboardingClaims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, ErrTokenInvalid
		}
		return JWTSecret, nil
	})
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, ErrTokenExpired
		}
		return nil, ErrTokenInvalid
	}
	if !token.Valid {
		return nil, ErrTokenInvalid
	}

	claims, ok := token.Claims.(*OnboardingClaims)
	if !ok || claims.EmployeeID == 0 {
		return nil, ErrTokenInvalid
	}
	switch claims.Purpose {
	case PurposeOnboarding:
		if claims.SessionID == 0 {
			return nil, ErrTokenInvalid
		}
	case PurposeModule:
		if claims.ModuleID == 0 || claims.ModuleType == "" {
			return nil, ErrTokenInvalid
		}
	default:
		return nil, ErrTokenInvalid
	}
	return claims, nil
}
