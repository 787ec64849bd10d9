package routertesting

import (
	"log/slog"
	"os"

	"github.com/cascadelabs/feerouter/utils/pkg/logger"
)

// NewLogger returns the logger tests run with. Set TEST_VERBOSE=1 to
// see debug output.
func NewLogger() *slog.Logger {
	return logger.New(os.Getenv("TEST_VERBOSE") == "1")
}
