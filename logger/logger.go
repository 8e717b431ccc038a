/*
Copyright 2026 The Flux authors

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

    http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/

// Package logger builds the structured logger of the argh commands.
package logger

import (
	"errors"
	"fmt"
	"io"
	"os"
	"slices"

	"github.com/go-logr/logr"
	"github.com/spf13/pflag"
	"go.uber.org/zap/zapcore"
	ctrl "sigs.k8s.io/controller-runtime"
	"sigs.k8s.io/controller-runtime/pkg/log/zap"
)

// Verbosity levels for log.V(...). logr's V(n) is zap level -n.
const (
	TraceLevel = 2
	DebugLevel = 1
	InfoLevel  = 0
)

type level struct {
	min zapcore.Level
	// stack is the level from which stack traces are attached.
	stack zapcore.Level
}

var levels = map[string]level{
	"trace": {min: -TraceLevel, stack: zapcore.ErrorLevel},
	"debug": {min: -DebugLevel, stack: zapcore.ErrorLevel},
	"info":  {min: zapcore.InfoLevel, stack: zapcore.PanicLevel},
	"error": {min: zapcore.ErrorLevel, stack: zapcore.PanicLevel},
}

var encodings = []string{"console", "json"}

// Options configures the command logger.
type Options struct {
	LogEncoding string
	LogLevel    string
}

// BindFlags binds --log-encoding and --log-level to the options.
func (o *Options) BindFlags(fs *pflag.FlagSet) {
	fs.StringVar(&o.LogEncoding, "log-encoding", "console",
		"Log encoding format. Can be 'json' or 'console'.")
	fs.StringVar(&o.LogLevel, "log-level", "info",
		"Log verbosity level. Can be one of 'trace', 'debug', 'info', 'error'.")
}

// Validate rejects unknown encodings and levels.
func (o Options) Validate() error {
	var errs []error
	if !slices.Contains(encodings, o.LogEncoding) {
		errs = append(errs, fmt.Errorf("invalid log encoding '%s', must be one of %v", o.LogEncoding, encodings))
	}
	if _, ok := levels[o.LogLevel]; !ok {
		errs = append(errs, fmt.Errorf("invalid log level '%s', must be one of trace, debug, info, error", o.LogLevel))
	}
	return errors.Join(errs...)
}

// NewLogger returns a logger writing to stderr with ISO8601 timestamps.
// Invalid options fall back to console encoding at info level.
func NewLogger(opts Options) logr.Logger {
	return newLogger(opts, os.Stderr)
}

func newLogger(opts Options, w io.Writer) logr.Logger {
	isoTime := func(c *zapcore.EncoderConfig) {
		c.EncodeTime = zapcore.ISO8601TimeEncoder
	}
	encoder := zap.ConsoleEncoder(isoTime)
	if opts.LogEncoding == "json" {
		encoder = zap.JSONEncoder(isoTime)
	}
	l, ok := levels[opts.LogLevel]
	if !ok {
		l = levels["info"]
	}
	return zap.New(zap.WriteTo(w), encoder, zap.Level(l.min), zap.StacktraceLevel(l.stack))
}

// SetLogger sets the logger returned by ctrl.Log and ctrl.LoggerFrom.
func SetLogger(logger logr.Logger) {
	ctrl.SetLogger(logger)
}
