package jwttoken

import (
	"taskportal/internal/platform/middleware"
	"taskportal/pkg/domain"
)

func ToMiddlewareClaims(claims *Claims) *middleware.Claims {
	return &middleware.Claims{
		UserID: domain.UserID(claims.Subject),
		Role:   claims.Role,
	}
}

// JWTServiceAdapter exposes a JWTService as a middleware.TokenValidator.
type JWTServiceAdapter struct {
	service *JWTService
}

func NewJWTServiceAdapter(service *JWTService) *JWTServiceAdapter {
	return &JWTServiceAdapter{service: service}
}

func (a *JWTServiceAdapter) ValidateToken(tokenString string) (*middleware.Claims, error) {
	claims, err := a.service.ValidateToken(tokenString)
	if err != nil {
		return nil, err
	}
	return ToMiddlewareClaims(claims), nil
}
