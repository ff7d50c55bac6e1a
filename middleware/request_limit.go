package middleware

import (
	"net/http"

	"csv-rag-service/internal/logger"
	"csv-rag-service/utils"

	"github.com/gin-gonic/gin"
)

// RequestSizeLimit rejects uploads whose declared length exceeds maxSize and
// caps the readable body of the rest, so chunked bodies stop at maxSize too.
func RequestSizeLimit(maxSize int64) gin.HandlerFunc {
	return func(c *gin.Context) {
		if c.Request.ContentLength > maxSize {
			logger.WarnContext(c.Request.Context(), "Upload rejected, body too large",
				"path", c.FullPath(), "content_length", c.Request.ContentLength, "limit", maxSize)
			utils.RespondWithTooLarge(c, maxSize)
			c.Abort()
			return
		}
		c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxSize)
		c.Next()
	}
}
