// Package httpx holds the response helpers shared by the API handlers.
package httpx

import (
	"chilljobs-api/internal/apperr"

	"github.com/gin-gonic/gin"
)

// Error writes {"error": msg} with the status of err's kind, plus "code"
// when the error carries a processor code.
func Error(c *gin.Context, err error) {
	body := gin.H{"error": apperr.Message(err)}
	if code := apperr.Code(err); code != "" {
		body["code"] = code
	}
	c.JSON(apperr.KindOf(err).Status(), body)
}

// Fail is Error with an explicit status, for the few places where the kind
// alone does not decide it (the job API answers 502).
func Fail(c *gin.Context, status int, err error) {
	c.JSON(status, gin.H{"error": apperr.Message(err)})
}
