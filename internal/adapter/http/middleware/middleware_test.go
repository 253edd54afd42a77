package middleware

import (
	"bytes"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	domain "github.com/Sharath05hk/Minimart/internal/entity"
	"github.com/Sharath05hk/Minimart/internal/logging"
	"github.com/Sharath05hk/Minimart/internal/security"
)

func init() { gin.SetMode(gin.TestMode) }

func newTokens() *security.Tokens {
	return security.NewTokens(security.TokenConfig{Secret: "k", Issuer: "minimart", Audience: "api", TTL: time.Hour})
}

func bearer(t *testing.T, tk *security.Tokens, roles ...string) string {
	t.Helper()
	raw, _, err := tk.Issue(1, "u@minimart.local", roles)
	require.NoError(t, err)
	return "Bearer " + raw
}

func TestAuthz(t *testing.T) {
	tk := newTokens()
	a := NewAuthz(tk)
	r := gin.New()
	r.GET("/admin", a.Authenticate(), a.RequireRoles(domain.RoleAdmin, domain.RoleManager), func(c *gin.Context) {
		c.String(http.StatusOK, ClaimsFrom(c).Email)
	})

	cases := []struct {
		name   string
		header string
		want   int
	}{
		{"no token", "", http.StatusUnauthorized},
		{"garbage", "Bearer abc", http.StatusUnauthorized},
		{"wrong role", bearer(t, tk, "CASHIER"), http.StatusForbidden},
		{"manager", bearer(t, tk, "MANAGER"), http.StatusOK},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/admin", nil)
			if tc.header != "" {
				req.Header.Set("Authorization", tc.header)
			}
			w := httptest.NewRecorder()
			r.ServeHTTP(w, req)
			assert.Equal(t, tc.want, w.Code)
		})
	}
}

func TestLogging_KeepsBodyAndSetsRequestID(t *testing.T) {
	r := gin.New()
	r.Use(Logging(logging.New("test")))
	var seen string
	r.POST("/login", func(c *gin.Context) {
		b, _ := io.ReadAll(c.Request.Body)
		seen = string(b)
		assert.NotNil(t, logging.FromCtx(c.Request.Context()))
		c.JSON(http.StatusOK, gin.H{"token": "t"})
	})

	body := `{"email":"a@b.c","password":"Admin@123"}`
	req := httptest.NewRequest(http.MethodPost, "/login", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	assert.Equal(t, body, seen, "handler must see the unredacted body")
	assert.NotEmpty(t, w.Header().Get("X-Request-Id"))
}

func TestLogging_LargeBodyPassesThrough(t *testing.T) {
	r := gin.New()
	r.Use(Logging(logging.New("test")))
	var n int
	r.POST("/big", func(c *gin.Context) {
		b, _ := io.ReadAll(c.Request.Body)
		n = len(b)
		c.Status(http.StatusNoContent)
	})

	big := append([]byte(`{"x":"`), bytes.Repeat([]byte("a"), reqBodyLimit*2)...)
	big = append(big, []byte(`"}`)...)
	req := httptest.NewRequest(http.MethodPost, "/big", bytes.NewReader(big))
	req.Header.Set("Content-Type", "application/json")
	r.ServeHTTP(httptest.NewRecorder(), req)

	assert.Equal(t, len(big), n)
}

func TestRedactJSON(t *testing.T) {
	out := string(redactJSON([]byte(`{"email":"a","password":"p","nested":[{"token":"t"}]}`)))
	assert.NotContains(t, out, `"p"`)
	assert.NotContains(t, out, `"t"`)
	assert.Contains(t, out, "***redacted***")
}
