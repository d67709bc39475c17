package minify

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// ErrOutputExists is returned when output file is already present and
// overwriting was not requested.
var ErrOutputExists = errors.New("output file already exists")

// writeOutput writes data next to outputName under unique temporary name and
// renames it into place, so readers never see partially written stylesheet.
func writeOutput(data []byte, outputName string, overwrite bool, log *zap.Logger) (err error) {
	if _, err := os.Stat(outputName); err == nil {
		if !overwrite {
			return fmt.Errorf("%w: %s", ErrOutputExists, outputName)
		}
		log.Warn("Overwriting existing file", zap.String("file", outputName))
	} else if !os.IsNotExist(err) {
		return err
	} else if err := os.MkdirAll(filepath.Dir(outputName), 0755); err != nil {
		return fmt.Errorf("unable to create output directory: %w", err)
	}

	tmpName := filepath.Join(filepath.Dir(outputName), "."+uuid.NewString()+".tmp")
	if err := os.WriteFile(tmpName, data, 0644); err != nil {
		return fmt.Errorf("unable to write output: %w", err)
	}
	defer func() {
		if err != nil {
			os.Remove(tmpName)
		}
	}()

	if err := os.Rename(tmpName, outputName); err != nil {
		return fmt.Errorf("unable to finalize output: %w", err)
	}
	return nil
}
