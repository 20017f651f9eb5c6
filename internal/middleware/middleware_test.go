package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/require"

	"github.com/siscuentas/radicados-api/internal/models"
	"github.com/siscuentas/radicados-api/internal/service"
	"github.com/siscuentas/radicados-api/pkg/config"
)

func init() {
	gin.SetMode(gin.TestMode)
}

const testSecret = "test-secret"

func newTokenService() *service.TokenService {
	return service.NewTokenService(config.JWTConfig{Secret: testSecret, Issuer: "radicados-api"})
}

func signTestToken(t *testing.T, subject, name, role string) string {
	t.Helper()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub":  subject,
		"name": name,
		"role": role,
		"iss":  "radicados-api",
		"exp":  time.Now().Add(time.Hour).Unix(),
	})
	signed, err := token.SignedString([]byte(testSecret))
	require.NoError(t, err)
	return signed
}

func TestJWTRejectsMissingHeader(t *testing.T) {
	r := gin.New()
	r.GET("/probe", JWT(newTokenService()), func(c *gin.Context) { c.Status(http.StatusOK) })

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/probe", nil)
	r.ServeHTTP(w, req)

	require.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestJWTRejectsMalformedHeader(t *testing.T) {
	r := gin.New()
	r.GET("/probe", JWT(newTokenService()), func(c *gin.Context) { c.Status(http.StatusOK) })

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/probe", nil)
	req.Header.Set("Authorization", "Token abc")
	r.ServeHTTP(w, req)

	require.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestJWTRejectsBadSignature(t *testing.T) {
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub":  "u-1",
		"role": string(models.RoleAuditor),
		"iss":  "radicados-api",
		"exp":  time.Now().Add(time.Hour).Unix(),
	})
	signed, err := token.SignedString([]byte("other-secret"))
	require.NoError(t, err)

	r := gin.New()
	r.GET("/probe", JWT(newTokenService()), func(c *gin.Context) { c.Status(http.StatusOK) })

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/probe", nil)
	req.Header.Set("Authorization", "Bearer "+signed)
	r.ServeHTTP(w, req)

	require.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestJWTSetsClaims(t *testing.T) {
	r := gin.New()
	var seen *models.JWTClaims
	r.GET("/probe", JWT(newTokenService()), func(c *gin.Context) {
		value, _ := c.Get(ContextUserKey)
		seen = value.(*models.JWTClaims)
		c.Status(http.StatusOK)
	})

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/probe", nil)
	req.Header.Set("Authorization", "Bearer "+signTestToken(t, "u-1", "Aud One", string(models.RoleAuditor)))
	r.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	require.NotNil(t, seen)
	require.Equal(t, "u-1", seen.UserID)
	require.Equal(t, "Aud One", seen.FullName)
	require.Equal(t, models.RoleAuditor, seen.Role)
}

func withTestClaims(claims *models.JWTClaims) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Set(ContextUserKey, claims)
		c.Next()
	}
}

func TestRequireRolesAllowsListedRole(t *testing.T) {
	claims := &models.JWTClaims{UserID: "u-1", Role: models.RoleFiler}
	r := gin.New()
	r.POST("/probe", withTestClaims(claims), RequireRoles(models.RoleFiler), func(c *gin.Context) { c.Status(http.StatusOK) })

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/probe", nil))

	require.Equal(t, http.StatusOK, w.Code)
}

func TestRequireRolesRejectsOtherRole(t *testing.T) {
	claims := &models.JWTClaims{UserID: "u-1", Role: models.RoleTreasury}
	r := gin.New()
	r.POST("/probe", withTestClaims(claims), RequireRoles(models.RoleFiler), func(c *gin.Context) { c.Status(http.StatusOK) })

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/probe", nil))

	require.Equal(t, http.StatusForbidden, w.Code)
}

func TestRequireRolesAdminBypass(t *testing.T) {
	claims := &models.JWTClaims{UserID: "adm-1", Role: models.RoleAdmin}
	r := gin.New()
	r.POST("/probe", withTestClaims(claims), RequireRoles(models.RoleFiler), func(c *gin.Context) { c.Status(http.StatusOK) })

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/probe", nil))

	require.Equal(t, http.StatusOK, w.Code)
}

func TestRequireRolesWithoutClaims(t *testing.T) {
	r := gin.New()
	r.POST("/probe", RequireRoles(models.RoleFiler), func(c *gin.Context) { c.Status(http.StatusOK) })

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/probe", nil))

	require.Equal(t, http.StatusUnauthorized, w.Code)
}
