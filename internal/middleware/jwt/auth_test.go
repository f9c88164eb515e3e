package jwt

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"ChatNest/pkg/back"
	"ChatNest/pkg/util/myjwt"
	"ChatNest/pkg/xerr"

	"github.com/gin-gonic/gin"
)

func newEngine() *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	parse := func(tok string) (*myjwt.CustomClaims, error) { return myjwt.Parse("k", tok) }
	r.GET("/me", AuthWith(parse), func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"uuid": c.GetString("uuid")})
	})
	return r
}

func TestAuthMissingHeader(t *testing.T) {
	w := httptest.NewRecorder()
	newEngine().ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/me", nil))

	var resp back.Response
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if resp.Code != xerr.Unauthorized {
		t.Fatalf("code=%d, want %d", resp.Code, xerr.Unauthorized)
	}
}

func TestAuthValidToken(t *testing.T) {
	tok, err := myjwt.Sign("k", "chatnest", time.Hour, "acc-9", "bob")
	if err != nil {
		t.Fatalf("sign: %v", err)
	}
	req := httptest.NewRequest(http.MethodGet, "/me", nil)
	req.Header.Set("Authorization", "Bearer "+tok)
	w := httptest.NewRecorder()
	newEngine().ServeHTTP(w, req)

	var body map[string]string
	if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if body["uuid"] != "acc-9" {
		t.Fatalf("uuid=%q", body["uuid"])
	}
}
