package rest

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
)

const accountIDKey = "accountID"

type authService interface {
	GenerateToken(accountID int) (string, error)
	ParseToken(token string) (int, error)
}

// authRequired rejects requests without a valid bearer token and stores the account id.
func authRequired(auth authService) gin.HandlerFunc {
	return func(c *gin.Context) {
		token, ok := strings.CutPrefix(c.GetHeader("Authorization"), "Bearer ")
		if !ok || token == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "missing bearer token"})
			return
		}

		accountID, err := auth.ParseToken(token)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid token"})
			return
		}

		c.Set(accountIDKey, accountID)
		c.Next()
	}
}

func currentAccount(c *gin.Context) int {
	return c.GetInt(accountIDKey)
}
