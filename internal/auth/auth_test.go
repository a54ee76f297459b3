package auth

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tutoring/internal/model"
)

const (
	testKey    = "test-signing-key"
	testIssuer = "tutoring"
)

func TestIssueAndParse(t *testing.T) {
	tok, err := Issue("user-1", model.RoleStudent, testIssuer, testKey, time.Hour)
	require.NoError(t, err)
	assert.WithinDuration(t, time.Now().Add(time.Hour), tok.ExpiresAt, time.Minute)

	claims, err := Parse(tok.AccessToken, testKey, testIssuer)
	require.NoError(t, err)
	assert.Equal(t, "user-1", claims.Subject)
	assert.Equal(t, model.RoleStudent, claims.Role)
}

func TestParseRejects(t *testing.T) {
	tok, err := Issue("user-1", model.RoleAdmin, testIssuer, testKey, time.Hour)
	require.NoError(t, err)

	_, err = Parse(tok.AccessToken, "other-key", testIssuer)
	assert.Error(t, err)
	_, err = Parse(tok.AccessToken, testKey, "someone-else")
	assert.Error(t, err)

	expired, err := Issue("user-1", model.RoleAdmin, testIssuer, testKey, -time.Minute)
	require.NoError(t, err)
	_, err = Parse(expired.AccessToken, testKey, testIssuer)
	assert.Error(t, err)

	_, err = Parse("not-a-token", testKey, testIssuer)
	assert.Error(t, err)
}

func newRouter() *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.GET("/me", Required(testKey, testIssuer), func(c *gin.Context) {
		claims, _ := FromContext(c)
		c.String(http.StatusOK, claims.Subject)
	})
	r.GET("/admin", Required(testKey, testIssuer), RequireRole(model.RoleAdmin), func(c *gin.Context) {
		c.Status(http.StatusNoContent)
	})
	return r
}

func do(r http.Handler, path, token string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, path, nil)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestMiddleware(t *testing.T) {
	r := newRouter()
	student, err := Issue("s1", model.RoleStudent, testIssuer, testKey, time.Hour)
	require.NoError(t, err)
	admin, err := Issue("a1", model.RoleAdmin, testIssuer, testKey, time.Hour)
	require.NoError(t, err)

	tests := []struct {
		name  string
		path  string
		token string
		code  int
	}{
		{"no token", "/me", "", http.StatusUnauthorized},
		{"garbage token", "/me", "abc", http.StatusUnauthorized},
		{"student self", "/me", student.AccessToken, http.StatusOK},
		{"student on admin route", "/admin", student.AccessToken, http.StatusForbidden},
		{"admin on admin route", "/admin", admin.AccessToken, http.StatusNoContent},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := do(r, tt.path, tt.token)
			assert.Equal(t, tt.code, w.Code)
		})
	}

	w := do(r, "/me", student.AccessToken)
	assert.Equal(t, "s1", w.Body.String())
}
