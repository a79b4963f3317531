package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"

	"github.com/qs3c/research_go_server/internal/pkg/response"
	"github.com/qs3c/research_go_server/internal/repository"
	"github.com/qs3c/research_go_server/internal/testutil"
)

func TestAdminOnly(t *testing.T) {
	db := testutil.SetupTestDB(t)
	defer testutil.CleanupTestDB(t, db)

	users := repository.NewUserRepository(db)
	admin := testutil.TestUser(t, db, testutil.WithAdmin())
	user := testutil.TestUser(t, db)

	tests := []struct {
		name   string
		userID int64
		code   int
	}{
		{"admin", admin.ID, response.CodeSuccess},
		{"regular user", user.ID, response.CodePermissionDenied},
		{"deleted user", 99999, response.CodePermissionDenied},
		{"anonymous", 0, response.CodeAuthFailed},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			router := gin.New()
			if tt.userID > 0 {
				router.Use(withUser(tt.userID))
			}
			router.Use(AdminOnly(users))
			router.GET("/admin/stats", func(c *gin.Context) {
				response.Success(c, nil)
			})

			w := httptest.NewRecorder()
			router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/admin/stats", nil))
			assert.Equal(t, tt.code, parseResponse(t, w).Code)
		})
	}
}
