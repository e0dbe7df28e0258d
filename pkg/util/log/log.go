// Copyright 2026 The Pgbridge Authors.
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or
// implied. See the License for the specific language governing
// permissions and limitations under the License.

// Package log is a small leveled logger. Messages are formatted through
// redact so accidentally-sensitive arguments can be stripped, and are
// prefixed with the logtags carried by the context, which is how each
// connection's id ends up on every line it logs.
package log

import (
	"context"
	"fmt"
	stdlog "log"
	"os"
	"sync/atomic"

	"github.com/cockroachdb/logtags"
	"github.com/cockroachdb/redact"
)

var logger = stdlog.New(os.Stderr, "", stdlog.LstdFlags|stdlog.Lmicroseconds)

var verbosity int32

// SetVerbosity sets the level below which VEventf calls are emitted.
func SetVerbosity(v int) {
	atomic.StoreInt32(&verbosity, int32(v))
}

// V reports whether verbose events at the given level are enabled.
func V(level int) bool {
	return atomic.LoadInt32(&verbosity) >= int32(level)
}

// Infof logs an informational message.
func Infof(ctx context.Context, format string, args ...interface{}) {
	output(ctx, 'I', format, args...)
}

// Warningf logs a warning.
func Warningf(ctx context.Context, format string, args ...interface{}) {
	output(ctx, 'W', format, args...)
}

// Errorf logs an error.
func Errorf(ctx context.Context, format string, args ...interface{}) {
	output(ctx, 'E', format, args...)
}

// VEventf logs only when verbosity is at least level.
func VEventf(ctx context.Context, level int, format string, args ...interface{}) {
	if V(level) {
		output(ctx, 'I', format, args...)
	}
}

func output(ctx context.Context, sev byte, format string, args ...interface{}) {
	msg := redact.Sprintf(format, args...).StripMarkers()
	if tags := logtags.FromContext(ctx); tags != nil {
		logger.Output(2, fmt.Sprintf("%c [%s] %s", sev, tags.String(), msg))
		return
	}
	logger.Output(2, fmt.Sprintf("%c %s", sev, msg))
}
