package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"

	"github.com/elimu-labs/elimu-api/internal/models"
	"github.com/elimu-labs/elimu-api/internal/policy"
)

func setClaims(claims *models.JWTClaims) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Set(ContextUserKey, claims)
		c.Next()
	}
}

func serveWith(handlers ...gin.HandlerFunc) int {
	gin.SetMode(gin.TestMode)
	recorder := httptest.NewRecorder()
	router := gin.New()
	chain := append(handlers, func(c *gin.Context) { c.Status(http.StatusNoContent) })
	router.GET("/resource/:id", chain...)

	req := httptest.NewRequest(http.MethodGet, "/resource/7", nil)
	router.ServeHTTP(recorder, req)
	return recorder.Code
}

func TestAuthorize(t *testing.T) {
	admin := &models.JWTClaims{UserID: 1, Roles: []string{models.RoleAdmin}}
	teacher := &models.JWTClaims{UserID: 7, Roles: []string{models.RoleTeacher}}

	assert.Equal(t, http.StatusNoContent,
		serveWith(setClaims(admin), Authorize(policy.ResourceUsers, policy.ActionList)))
	assert.Equal(t, http.StatusForbidden,
		serveWith(setClaims(teacher), Authorize(policy.ResourceUsers, policy.ActionList)))
	assert.Equal(t, http.StatusUnauthorized,
		serveWith(Authorize(policy.ResourceUsers, policy.ActionList)))
}

func TestAuthorizeSelf(t *testing.T) {
	self := &models.JWTClaims{UserID: 7, Roles: []string{models.RoleTeacher}}
	other := &models.JWTClaims{UserID: 8, Roles: []string{models.RoleTeacher}}
	admin := &models.JWTClaims{UserID: 1, Roles: []string{models.RoleAdmin}}

	assert.Equal(t, http.StatusNoContent,
		serveWith(setClaims(self), AuthorizeSelf(policy.ResourceUsers, policy.ActionRead, "id")))
	assert.Equal(t, http.StatusNoContent,
		serveWith(setClaims(self), AuthorizeSelf(policy.ResourceUsers, policy.ActionUpdate, "id")))
	assert.Equal(t, http.StatusForbidden,
		serveWith(setClaims(other), AuthorizeSelf(policy.ResourceUsers, policy.ActionRead, "id")))
	assert.Equal(t, http.StatusNoContent,
		serveWith(setClaims(admin), AuthorizeSelf(policy.ResourceUsers, policy.ActionUpdate, "id")))
}

func TestRequireRoles(t *testing.T) {
	headteacher := &models.JWTClaims{UserID: 2, Roles: []string{models.RoleHeadteacher}}
	teacher := &models.JWTClaims{UserID: 7, Roles: []string{models.RoleTeacher}}

	gate := RequireRoles(models.RoleAdmin, models.RoleHeadteacher)
	assert.Equal(t, http.StatusNoContent, serveWith(setClaims(headteacher), gate))
	assert.Equal(t, http.StatusForbidden, serveWith(setClaims(teacher), gate))
}
