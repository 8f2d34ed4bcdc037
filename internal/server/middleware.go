package server

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/smallbiznis/campus/internal/authorization"
	"github.com/smallbiznis/campus/internal/tenantctx"
)

// CORSMiddleware adds CORS headers to every response, errors included, and
// answers preflight requests before identity extraction runs.
func CORSMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Header("Access-Control-Allow-Origin", "*")
		c.Header("Access-Control-Allow-Methods", "GET, POST, PUT, PATCH, DELETE, OPTIONS")
		c.Header("Access-Control-Allow-Headers", "Authorization, Content-Type, X-Tenant-ID, X-Request-Id, X-Webhook-Signature")
		c.Header("Access-Control-Expose-Headers", "X-Request-Id")

		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(http.StatusOK)
			return
		}
		c.Next()
	}
}

// IdentityMiddleware derives the caller identity from bearer token claims
// with header and config fallbacks. It never rejects: unauthenticated
// callers proceed as anonymous members and per-route authorization decides
// what they may do.
func (s *Server) IdentityMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		claims := s.parseClaims(c)

		tenantID := claimString(claims, "custom:organization_id")
		if tenantID == "" {
			tenantID = strings.TrimSpace(c.GetHeader("X-Tenant-ID"))
		}
		if tenantID == "" {
			tenantID = s.cfg.DefaultTenantID
		}

		userID := claimString(claims, "sub")
		if userID == "" {
			userID = tenantctx.AnonymousUserID
		}

		identity := tenantctx.Identity{
			TenantID: tenantID,
			UserID:   userID,
			Role:     tenantctx.NormalizeRole(claimString(claims, "custom:role")),
		}
		ctx := tenantctx.WithIdentity(c.Request.Context(), identity)
		c.Request = c.Request.WithContext(ctx)
		c.Next()
	}
}

// parseClaims extracts JWT claims from the Authorization header. With a
// configured secret the signature is verified; otherwise claims are taken
// as-is, assuming a trusted gateway already verified the token.
func (s *Server) parseClaims(c *gin.Context) jwt.MapClaims {
	header := strings.TrimSpace(c.GetHeader("Authorization"))
	token, ok := strings.CutPrefix(header, "Bearer ")
	if !ok {
		return nil
	}
	token = strings.TrimSpace(token)
	if token == "" {
		return nil
	}

	claims := jwt.MapClaims{}
	if s.cfg.AuthJWTSecret != "" {
		parsed, err := jwt.ParseWithClaims(token, claims, func(t *jwt.Token) (any, error) {
			return []byte(s.cfg.AuthJWTSecret), nil
		}, jwt.WithValidMethods([]string{"HS256", "HS384", "HS512"}))
		if err != nil || !parsed.Valid {
			return nil
		}
		return claims
	}

	parser := jwt.NewParser()
	if _, _, err := parser.ParseUnverified(token, claims); err != nil {
		return nil
	}
	return claims
}

func claimString(claims jwt.MapClaims, key string) string {
	if claims == nil {
		return ""
	}
	value, _ := claims[key].(string)
	return strings.TrimSpace(value)
}

// requirePermission gates a route on the caller's role.
func (s *Server) requirePermission(object, action string) gin.HandlerFunc {
	return func(c *gin.Context) {
		identity, ok := tenantctx.IdentityFromContext(c.Request.Context())
		if !ok {
			AbortWithError(c, tenantctx.ErrMissingIdentity)
			return
		}

		allowed, err := s.authz.Authorize(identity.Role, object, action)
		if err != nil {
			AbortWithError(c, err)
			return
		}
		if !allowed {
			AbortWithError(c, authorization.ErrForbidden)
			return
		}
		c.Next()
	}
}
