package middleware

import (
	"github.com/dmehra2102/prod-golang-projects/clinicflow/internal/domain"
	"github.com/dmehra2102/prod-golang-projects/clinicflow/internal/service"
	"github.com/gin-gonic/gin"
)

const (
	CtxRequestID = "request_id"
	CtxClaims    = "claims"

	HeaderRequestID = "X-Request-ID"
)

func ClaimsFrom(c *gin.Context) (*domain.Claims, bool) {
	v, ok := c.Get(CtxClaims)
	if !ok {
		return nil, false
	}
	claims, ok := v.(*domain.Claims)
	return claims, ok
}

// CallerFrom builds the service identity of an authenticated request.
func CallerFrom(c *gin.Context) service.Caller {
	caller := service.Caller{IP: c.ClientIP(), RequestID: c.GetString(CtxRequestID)}
	if claims, ok := ClaimsFrom(c); ok {
		caller.UserID = claims.UserID
		caller.Role = claims.Role
		caller.ProviderID = claims.ProviderID
	}
	return caller
}
