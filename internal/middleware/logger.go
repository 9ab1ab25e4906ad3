package middleware

import (
	"time"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
)

// quiet paths are scraped constantly and only logged at debug level
var quiet = map[string]bool{"/metrics": true, "/v1/health": true}

func RequestLogger(logger *zap.SugaredLogger) fiber.Handler {
	return func(c *fiber.Ctx) error {
		start := time.Now()
		err := c.Next()

		fields := []interface{}{
			"method", c.Method(),
			"path", c.Path(),
			"ip", c.IP(),
			"status", c.Response().StatusCode(),
			"latency", time.Since(start),
		}
		if u := CurrentUser(c); u != nil {
			fields = append(fields, "user_id", u.ID)
		}
		switch {
		case err != nil:
			logger.Errorw("HTTP Request Error", append(fields, "error", err)...)
		case quiet[c.Path()]:
			logger.Debugw("HTTP Request", fields...)
		default:
			logger.Infow("HTTP Request", fields...)
		}
		return err
	}
}
