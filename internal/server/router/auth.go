package router

import (
	"crypto/subtle"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/mamadbah2/barberdash/internal/config"
)

const authRealm = `Basic realm="barberdash"`

// operatorAuth gates the dashboard behind HTTP basic auth. A bcrypt hash in
// cfg.PasswordHash takes precedence over the plain password.
func operatorAuth(cfg config.OperatorConfig, logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		user, password, ok := c.Request.BasicAuth()
		if !ok || !checkOperator(cfg, user, password) {
			if ok {
				logger.Warn("operator login rejected", zap.String("user", user), zap.String("client_ip", c.ClientIP()))
			}
			c.Header("WWW-Authenticate", authRealm)
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
			return
		}
		c.Set(gin.AuthUserKey, user)
		c.Next()
	}
}

func checkOperator(cfg config.OperatorConfig, user, password string) bool {
	if subtle.ConstantTimeCompare([]byte(user), []byte(cfg.User)) != 1 {
		return false
	}
	if cfg.PasswordHash != "" {
		return bcrypt.CompareHashAndPassword([]byte(cfg.PasswordHash), []byte(password)) == nil
	}
	return subtle.ConstantTimeCompare([]byte(password), []byte(cfg.Password)) == 1
}
