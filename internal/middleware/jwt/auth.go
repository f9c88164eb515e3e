package jwt

import (
	"strings"

	"ChatNest/pkg/back"
	"ChatNest/pkg/util/myjwt"
	"ChatNest/pkg/xerr"

	"github.com/gin-gonic/gin"
)

// TokenParser 解析 bearer token
type TokenParser func(token string) (*myjwt.CustomClaims, error)

func Auth() gin.HandlerFunc {
	return AuthWith(myjwt.ParseToken)
}

// AuthWith 使用指定解析器鉴权，通过后在上下文写入 uuid/username
func AuthWith(parse TokenParser) gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		if authHeader == "" || !strings.HasPrefix(authHeader, "Bearer ") {
			back.Error(c, xerr.Unauthorized, "missing or invalid authorization header")
			c.Abort()
			return
		}

		tokenString := strings.TrimPrefix(authHeader, "Bearer ")
		claims, err := parse(tokenString)
		if err != nil {
			back.Error(c, xerr.Unauthorized, "invalid token")
			c.Abort()
			return
		}

		c.Set("uuid", claims.Uuid)
		c.Set("username", claims.Username)
		c.Next()
	}
}
