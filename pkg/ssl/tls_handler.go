package ssl

import (
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/unrolled/secure"
)

// TlsHandler 安全响应头；sslRedirect 为 true 时将 http 重定向到 https。
// Widget 需要被第三方站点以 iframe 嵌入，因此不设置 X-Frame-Options。
func TlsHandler(host string, port int, sslRedirect bool) gin.HandlerFunc {
	secureMiddleware := secure.New(secure.Options{
		SSLRedirect:        sslRedirect,
		SSLHost:            host + ":" + strconv.Itoa(port),
		ContentTypeNosniff: true,
		BrowserXssFilter:   true,
		ReferrerPolicy:     "strict-origin-when-cross-origin",
		IsDevelopment:      !sslRedirect,
	})
	return func(c *gin.Context) {
		err := secureMiddleware.Process(c.Writer, c.Request)

		// Process 已经写入响应（重定向），只需中止
		if err != nil {
			c.Abort()
			return
		}

		c.Next()
	}
}
