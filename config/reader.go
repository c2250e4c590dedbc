package config

import (
	"bytes"
	"context"
	"encoding/json"
	"io"

	"github.com/a8m/envsubst"
	"github.com/pkg/errors"

	"github.com/viam-labs/depthoverlay/logging"
)

// Read reads a config from the given file. ${VAR} placeholders are replaced from the environment
// before parsing.
func Read(ctx context.Context, filePath string, logger logging.Logger) (*Config, error) {
	buf, err := envsubst.ReadFile(filePath)
	if err != nil {
		return nil, err
	}
	return FromReader(ctx, filePath, bytes.NewReader(buf), logger)
}

// FromReader reads a config from the given reader and specifies
// where, if applicable, the file the reader originated from.
func FromReader(ctx context.Context, originalPath string, r io.Reader, logger logging.Logger) (*Config, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	cfg := Config{ConfigFilePath: originalPath}
	dec := json.NewDecoder(r)
	dec.DisallowUnknownFields()
	if err := dec.Decode(&cfg); err != nil {
		return nil, errors.Wrap(err, "failed to decode Config from json")
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if cfg.Camera != nil && cfg.Camera.Name == "" {
		cfg.Camera.Name = cfg.Camera.Model
	}
	logger.CDebugw(ctx, "read config", "path", originalPath, "camera", cfg.Camera != nil)
	return &cfg, nil
}

// NewLogger builds the process logger described by the config, writing to out and to the
// configured file. debug forces the DEBUG level.
func (c LogConfig) NewLogger(name string, out io.Writer, debug bool) logging.Logger {
	logger := logging.NewBlankLogger(name)
	logger.AddAppender(logging.NewWriterAppender(out))
	logger.SetLevel(c.Level)
	if debug {
		logger.SetLevel(logging.DEBUG)
	}
	if c.File != nil {
		logger.AddAppender(logging.NewFileAppender(*c.File))
	}
	return logger
}
