package httpserver

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"lean-commerce/internal/domain"
)

const sessionCtxKey = "ln.session"

// sessionMiddleware resolves the session cookie, issuing a new session when
// the cookie is missing or stale.
func (s *server) sessionMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		id, _ := c.Cookie(s.cookie)
		sess, issued, err := s.sessions.Start(c.Request.Context(), id)
		if err != nil {
			s.renderError(c, err)
			return
		}
		if issued {
			c.SetSameSite(http.SameSiteLaxMode)
			c.SetCookie(s.cookie, sess.ID, int(s.sessions.TTL().Seconds()), "/", "", s.secure, true)
		}
		c.Set(sessionCtxKey, *sess)
		c.Next()
	}
}

func sessionFrom(c *gin.Context) domain.Session {
	v, ok := c.Get(sessionCtxKey)
	if !ok {
		return domain.Session{}
	}
	sess, _ := v.(domain.Session)
	return sess
}

func accessLog(logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		status := c.Writer.Status()
		fields := []zap.Field{
			zap.String("method", c.Request.Method),
			zap.String("path", c.Request.URL.Path),
			zap.Int("status", status),
			zap.Duration("latency", time.Since(start)),
			zap.String("client_ip", c.ClientIP()),
		}
		if sess := sessionFrom(c); sess.ID != "" {
			fields = append(fields, zap.String("session_id", sess.ID))
		}
		switch {
		case status >= http.StatusInternalServerError:
			logger.Error("request", fields...)
		case status >= http.StatusBadRequest:
			logger.Warn("request", fields...)
		default:
			logger.Info("request", fields...)
		}
	}
}

type errorBody struct {
	Code    string    `json:"code"`
	Message string    `json:"message"`
	Data    errorData `json:"data"`
}

type errorData struct {
	Status int `json:"status"`
}

// renderError writes err as a structured error body. Internal causes are
// logged, never returned.
func (s *server) renderError(c *gin.Context, err error) {
	status := domain.ErrorStatus(err)
	code := domain.ErrorCode(err)
	if code == domain.EINTERNAL || status >= http.StatusInternalServerError {
		s.logger.Error("request failed",
			zap.String("code", code),
			zap.String("op", domain.ErrorOp(err)),
			zap.Error(err),
		)
	}
	c.AbortWithStatusJSON(status, errorBody{
		Code:    code,
		Message: domain.ErrorMessage(err),
		Data:    errorData{Status: status},
	})
}
