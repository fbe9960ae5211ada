package notification

import "github.com/tphakala/monadwatch/internal/logger"

func getLogger() logger.Logger {
	return logger.Global().Module("notification")
}
