package rbac

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"outreach-dashboard/internal/auth"

	"github.com/gin-gonic/gin"
)

func newRouter(role string, mw gin.HandlerFunc) *gin.Engine {
	gin.SetMode(gin.TestMode)

	r := gin.New()
	r.GET("/x", func(c *gin.Context) {
		ctx := auth.WithIdentity(c.Request.Context(), "u", role)
		c.Request = c.Request.WithContext(ctx)
		c.Next()
	}, mw, func(c *gin.Context) {
		c.Status(200)
	})
	return r
}

func serve(r *gin.Engine) int {
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/x", nil)
	r.ServeHTTP(w, req)
	return w.Code
}

func TestRequireAnyRole_AdminBypasses(t *testing.T) {
	if code := serve(newRouter(RoleAdmin, RequireAnyRole(RoleOperator))); code != 200 {
		t.Fatalf("expected 200, got %d", code)
	}
}

func TestRequireAdmin_DeniesOperator(t *testing.T) {
	if code := serve(newRouter(RoleOperator, RequireAdmin())); code != 403 {
		t.Fatalf("expected 403, got %d", code)
	}
}

func TestRequireAnyRole_UnknownRoleDenied(t *testing.T) {
	if code := serve(newRouter("intruder", RequireAnyRole("intruder"))); code != 403 {
		t.Fatalf("expected 403, got %d", code)
	}
}

func TestRequireAnyRole_RoleRequired(t *testing.T) {
	if code := serve(newRouter("", RequireAnyRole(RoleOperator))); code != 401 {
		t.Fatalf("expected 401, got %d", code)
	}
}
