// Package stacktrace shortens panic stacks to the frames of this module.
package stacktrace

import (
	"runtime"
	"runtime/debug"
	"strconv"
	"strings"
)

const (
	marker   = "/internal/"
	maxDepth = 64
)

// Internal returns "internal/<path>.go:<line>" for each frame of the calling
// goroutine that belongs to this module, innermost first. skip counts frames
// above the caller of Internal.
func Internal(skip int) []string {
	pcs := make([]uintptr, maxDepth)
	n := runtime.Callers(skip+2, pcs)
	frames := runtime.CallersFrames(pcs[:n])

	var out []string
	for {
		f, more := frames.Next()
		if _, rel, ok := strings.Cut(f.File, marker); ok && !strings.HasPrefix(rel, "pkg/stacktrace/") {
			out = append(out, "internal/"+rel+":"+strconv.Itoa(f.Line))
		}
		if !more {
			return out
		}
	}
}

// Stack is meant for log attributes inside a recover: the module frames
// when there are any, otherwise the full goroutine dump.
func Stack() any {
	if frames := Internal(1); len(frames) > 0 {
		return frames
	}
	return string(debug.Stack())
}
