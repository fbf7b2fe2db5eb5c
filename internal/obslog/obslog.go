/*
MIT License

Copyright (c) 2025 Advanced Micro Devices, Inc.

Permission is hereby granted, free of charge, to any person obtaining a copy
of this software and associated documentation files (the "Software"), to deal
in the Software without restriction, including without limitation the rights
to use, copy, modify, merge, publish, distribute, sublicense, and/or sell
copies of the Software, and to permit persons to whom the Software is
furnished to do so, subject to the following conditions:

The above copyright notice and this permission notice shall be included in all
copies or substantial portions of the Software.

THE SOFTWARE IS PROVIDED "AS IS", WITHOUT WARRANTY OF ANY KIND, EXPRESS OR
IMPLIED, INCLUDING BUT NOT LIMITED TO THE WARRANTIES OF MERCHANTABILITY,
FITNESS FOR A PARTICULAR PURPOSE AND NONINFRINGEMENT. IN NO EVENT SHALL THE
AUTHORS OR COPYRIGHT HOLDERS BE LIABLE FOR ANY CLAIM, DAMAGES OR OTHER
LIABILITY, WHETHER IN AN ACTION OF CONTRACT, TORT OR OTHERWISE, ARISING FROM,
OUT OF OR IN CONNECTION WITH THE SOFTWARE OR THE USE OR OTHER DEALINGS IN THE
SOFTWARE.
*/

// Package obslog builds the logr.Logger both cmd/aimdeploy and
// cmd/aim-controller log through, backed by zap the way the rest of this
// module's logr.Logger values are in production (controller-runtime's own
// manager logger is a zapr.Logger under the hood; this package gives our own
// binaries the same backing implementation instead of controller-runtime's
// default stdlib logger).
package obslog

import (
	"fmt"

	"github.com/go-logr/logr"
	"github.com/go-logr/zapr"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// New builds a logr.Logger backed by zap and returns it alongside a sync
// func the caller should defer. debug selects development config (console
// encoding, debug level, caller/stacktrace on); otherwise production config
// (JSON encoding, info level) is used.
func New(debug bool) (logr.Logger, func() error, error) {
	var cfg zap.Config
	if debug {
		cfg = zap.NewDevelopmentConfig()
	} else {
		cfg = zap.NewProductionConfig()
		cfg.EncoderConfig.TimeKey = "ts"
		cfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	}

	zl, err := cfg.Build()
	if err != nil {
		return logr.Logger{}, nil, fmt.Errorf("obslog: building zap logger: %w", err)
	}

	return zapr.NewLogger(zl), zl.Sync, nil
}
