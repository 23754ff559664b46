// Package commands contains the CLI command implementations. Each Run function receives
// its collaborators explicitly so it can be tested without a container.
package commands

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/golang-migrate/migrate/v4"

	"github.com/allisson/medledger/internal/app"
)

// Output formats.
const (
	FormatText = "text"
	FormatJSON = "json"
)

// timeLayout renders timestamps in command output.
const timeLayout = "2006-01-02T15:04:05.000000Z07:00"

// IOTuple holds reader and writer for commands, allowing for testing.
type IOTuple struct {
	Reader io.Reader
	Writer io.Writer
}

// DefaultIO returns an IOTuple with os.Stdin and os.Stdout.
func DefaultIO() IOTuple {
	return IOTuple{
		Reader: os.Stdin,
		Writer: os.Stdout,
	}
}

// CloseContainer releases the container's resources and logs any failure.
func CloseContainer(container *app.Container, logger *slog.Logger) {
	if err := container.Shutdown(context.Background()); err != nil {
		logger.Error("failed to shutdown container", slog.Any("error", err))
	}
}

// closeMigrate closes the migration instance and logs any errors.
func closeMigrate(m *migrate.Migrate, logger *slog.Logger) {
	sourceError, databaseError := m.Close()
	if sourceError != nil || databaseError != nil {
		logger.Error(
			"failed to close the migrate",
			slog.Any("source_error", sourceError),
			slog.Any("database_error", databaseError),
		)
	}
}

// ValidateFormat rejects anything but "text" and "json".
func ValidateFormat(format string) error {
	if format != FormatText && format != FormatJSON {
		return fmt.Errorf("invalid format: %s (valid options: text, json)", format)
	}
	return nil
}

func writeJSON(writer io.Writer, v any) error {
	jsonBytes, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal JSON: %w", err)
	}
	_, _ = fmt.Fprintln(writer, string(jsonBytes))
	return nil
}

// readPayload returns the inline payload, else the file's content, else everything on
// reader. The payload must not be empty.
func readPayload(inline, path string, reader io.Reader) ([]byte, error) {
	var (
		payload []byte
		err     error
	)
	switch {
	case inline != "":
		payload = []byte(inline)
	case path != "":
		payload, err = os.ReadFile(path)
	default:
		payload, err = io.ReadAll(reader)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read payload: %w", err)
	}
	if len(payload) == 0 {
		return nil, fmt.Errorf("payload is empty")
	}
	return payload, nil
}
