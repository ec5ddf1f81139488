package vtu

import (
	"log/slog"

	"github.com/logicossoftware/go-vtu/internal/endian"
)

type readConfig struct {
	limits Limits
	logger *slog.Logger
}

type ReadOption func(*readConfig)

func WithReadLimits(l Limits) ReadOption {
	return func(c *readConfig) { c.limits = l }
}

// WithReadLogger sets the logger for repair and diagnostic messages.
// Defaults to slog.Default().
func WithReadLogger(l *slog.Logger) ReadOption {
	return func(c *readConfig) { c.logger = l }
}

type writeConfig struct {
	binary      bool
	compressor  Compressor
	headerType  ScalarKind
	appended    bool
	rawAppended bool
	order       endian.Engine
	logger      *slog.Logger
}

type WriteOption func(*writeConfig)

// WithBinary selects base64 binary arrays (true, the default) or ASCII text.
// ASCII output is large and loses float precision; use it for debugging.
func WithBinary(v bool) WriteOption {
	return func(c *writeConfig) { c.binary = v }
}

// WithCompressor selects the block compressor for binary arrays.
// CompressorNone disables compression. Defaults to CompressorZLib.
func WithCompressor(comp Compressor) WriteOption {
	return func(c *writeConfig) { c.compressor = comp }
}

// WithHeaderType sets the integer kind of binary array headers.
// Defaults to UInt32.
func WithHeaderType(k ScalarKind) WriteOption {
	return func(c *writeConfig) { c.headerType = k }
}

// WithAppended stores all binary arrays in one AppendedData section.
func WithAppended(v bool) WriteOption {
	return func(c *writeConfig) { c.appended = v }
}

// WithRawAppended stores all binary arrays in one AppendedData section as
// raw bytes instead of base64. Implies WithAppended(true).
func WithRawAppended(v bool) WriteOption {
	return func(c *writeConfig) { c.rawAppended = v }
}

// WithByteOrder overrides the declared byte order. Defaults to the host's.
func WithByteOrder(e endian.Engine) WriteOption {
	return func(c *writeConfig) { c.order = e }
}

func WithWriteLogger(l *slog.Logger) WriteOption {
	return func(c *writeConfig) { c.logger = l }
}
