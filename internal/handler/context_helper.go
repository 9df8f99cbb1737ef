package handler

import (
	"github.com/gin-gonic/gin"

	"github.com/pharmetric/fieldops-api/internal/middleware"
	"github.com/pharmetric/fieldops-api/internal/models"
)

func claimsFromContext(c *gin.Context) *models.JWTClaims {
	value, exists := c.Get(middleware.ContextUserKey)
	if !exists {
		return nil
	}
	claims, ok := value.(*models.JWTClaims)
	if !ok {
		return nil
	}
	return claims
}

// actorFromContext rebuilds a minimal user from the JWT claims. Enough
// for scoping decisions that only need ID and role; handlers that need
// the full record load it through the auth service.
func actorFromContext(c *gin.Context) *models.User {
	claims := claimsFromContext(c)
	if claims == nil {
		return nil
	}
	return &models.User{
		ID:       claims.UserID,
		Email:    claims.Email,
		FullName: claims.FullName,
		Role:     claims.Role,
		Active:   true,
	}
}
