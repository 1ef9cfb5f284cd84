package config

import (
	"context"
	"errors"
	"fmt"
)

// ErrMissingInputFile is the sentinel wrapped by MissingInputFileError.
var ErrMissingInputFile = errors.New("missing input file")

// MissingInputFileError reports a required configuration file that could not
// be found.
type MissingInputFileError struct {
	Path string
}

func (e *MissingInputFileError) Error() string {
	return fmt.Sprintf("missing input file: %s", e.Path)
}

func (e *MissingInputFileError) Unwrap() error { return ErrMissingInputFile }

// Source locates the configuration files of one simulation. Empty file names
// are looked up in Dir.
type Source struct {
	Dir          string
	SettingsFile string
	SegmentsFile string
}

// Loader is the interface for a format-specific configuration loader.
type Loader interface {
	// Load reads the settings and segment records, translates them into the
	// format-agnostic model and validates the result.
	Load(ctx context.Context, src Source) (*Model, error)
}
