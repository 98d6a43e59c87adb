package loadgen

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/morywal/CalendarApp/pkg/logger"
)

const logFilePermission = 0600

// SetupLogging initializes the global logger on console, and additionally on
// logFile when it is not empty. The returned func closes the file.
func SetupLogging(console io.Writer, logFile string, verbose bool) (func() error, error) {
	w := console
	closeFn := func() error { return nil }
	if logFile != "" {
		file, err := os.OpenFile(logFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, logFilePermission)
		if err != nil {
			return nil, fmt.Errorf("failed to create log file: %w", err)
		}
		w = io.MultiWriter(console, file)
		closeFn = file.Close
	}
	if err := logger.Init(logger.WithWriter(w)); err != nil {
		return nil, fmt.Errorf("failed to initialize logger: %w", err)
	}
	if verbose {
		_ = logger.SetLevelString("debug")
	}
	if logFile != "" {
		logger.Get().Info(context.Background(), "logging to file", logger.String("logFile", logFile))
	}
	return closeFn, nil
}
