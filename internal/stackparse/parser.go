// Package stackparse turns a raw stack-trace string, in whichever dialect
// the runtime produced it, into a slice of structured frames.
package stackparse

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/healops/healops-go/internal/healopserr"
	"github.com/healops/healops-go/internal/record"
)

// denylist holds substrings of file names that identify frames belonging to
// the SDK itself, plus the Go runtime's panic and scheduler files. Frames
// matching any of these are dropped before the caller ever sees them, so a
// reported "caller site" is never a line inside this module or the runtime
// panic machinery.
var denylist = []string{
	"/healops-go/",
	"/internal/intercept/",
	"/internal/global/",
	"/internal/enrich/",
	"runtime/panic.go",
	"runtime/proc.go",
}

// Dialect identifies the stack-string format a frame line matched.
type Dialect string

const (
	DialectV8      Dialect = "v8"
	DialectFirefox Dialect = "firefox"
	DialectSafari  Dialect = "safari"
	DialectGo      Dialect = "go"
)

// goLocationPattern matches the tab-indented location line runtime.Stack
// emits below each function line: "\t/path/to/file.go:42 +0x1a5" (the
// offset suffix is absent from some synthetic frames).
var goLocationPattern = regexp.MustCompile(`^\t(.+):(\d+)(?:\s\+0x[0-9a-f]+)?$`)

// Parse splits a raw stack string into frames using whichever dialect
// matcher recognizes its shape. Frames matching the deny-list are skipped.
// Lines with non-numeric line/column values are skipped rather than
// producing a zero-valued frame.
func Parse(raw string) ([]record.Frame, error) {
	all := collectFrames(raw)
	if len(all) == 0 {
		return nil, healopserr.StackParseError(raw, nil)
	}

	var frames []record.Frame
	for _, f := range all {
		if isDenied(f.FileName) {
			continue
		}
		frames = append(frames, f)
	}
	if len(frames) == 0 {
		return nil, healopserr.StackParseError(raw, nil)
	}
	return frames, nil
}

// FirstFrame returns the first frame recognized in raw without filtering
// SDK frames out. Extraction is more reliable against the raw stack than
// the cleaned one, so callers that only need a fallback file path use this
// instead of Parse.
func FirstFrame(raw string) (record.Frame, bool) {
	frames := collectFrames(raw)
	if len(frames) == 0 {
		return record.Frame{}, false
	}
	return frames[0], true
}

// collectFrames parses every frame recognizable in raw, in source order,
// without any SDK-frame filtering.
func collectFrames(raw string) []record.Frame {
	lines := strings.Split(raw, "\n")

	dialect := detectDialect(lines)
	if dialect == DialectGo {
		return parseGoLines(lines)
	}
	if dialect == "" {
		return nil
	}

	var frames []record.Frame
	for _, line := range lines {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		if frame, ok := parseLine(dialect, line); ok {
			frames = append(frames, frame)
		}
	}
	return frames
}

// detectDialect identifies which stack-string format raw's lines match.
// The Go two-line-per-frame shape is checked over the whole input first;
// otherwise lines are tried in order until one matches a JS dialect.
func detectDialect(lines []string) Dialect {
	if looksLikeGo(lines) {
		return DialectGo
	}

	for _, line := range lines {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		switch {
		case strings.HasPrefix(line, "at "):
			return DialectV8
		case strings.Contains(line, "@"):
			return DialectFirefox
		default:
			// Safari omits the "at " prefix but otherwise shares V8's
			// "func (file:line:col)" shape; fall through to try it.
			if looksLikeSafari(line) {
				return DialectSafari
			}
		}
	}
	return ""
}

func looksLikeSafari(line string) bool {
	return strings.Contains(line, "@") == false &&
		strings.Contains(line, ":") &&
		(strings.Contains(line, ".js:") || strings.Contains(line, ".ts:") || strings.Contains(line, ".mjs:"))
}

// looksLikeGo reports whether raw is a native Go stack trace as rendered
// by runtime.Stack/debug.Stack: a function-signature line immediately
// followed by a tab-indented "path/file.go:N +0xOFFSET" line, rather than
// the one-frame-per-line shape the three JS dialects produce.
func looksLikeGo(lines []string) bool {
	for _, line := range lines {
		if goLocationPattern.MatchString(line) {
			return true
		}
	}
	return false
}

// parseGoLines walks a native Go stack two lines at a time: the first line
// of a pair names the function (or "created by ..." for a goroutine's
// launch site), the second is the tab-indented file:line location.
func parseGoLines(lines []string) []record.Frame {
	var frames []record.Frame
	for i := 0; i < len(lines); i++ {
		fnLine := strings.TrimSpace(lines[i])
		if fnLine == "" || strings.HasPrefix(fnLine, "goroutine ") {
			continue
		}
		if i+1 >= len(lines) {
			break
		}
		m := goLocationPattern.FindStringSubmatch(lines[i+1])
		if m == nil {
			continue
		}
		i++

		fn := strings.TrimPrefix(fnLine, "created by ")
		if idx := strings.LastIndex(fn, "("); idx >= 0 {
			fn = fn[:idx]
		}

		lineNo, err := strconv.Atoi(m[2])
		if err != nil {
			continue
		}

		frames = append(frames, record.Frame{
			FunctionName: fn,
			FileName:     m[1],
			LineNumber:   lineNo,
		})
	}
	return frames
}

func parseLine(dialect Dialect, line string) (record.Frame, bool) {
	switch dialect {
	case DialectV8:
		return parseV8Line(line)
	case DialectFirefox:
		return parseFirefoxLine(line)
	case DialectSafari:
		return parseSafariLine(line)
	default:
		return record.Frame{}, false
	}
}

// parseV8Line parses lines of the shape:
//
//	at functionName (file:line:col)
//	at file:line:col
func parseV8Line(line string) (record.Frame, bool) {
	line = strings.TrimPrefix(line, "at ")
	var fn, loc string

	if idx := strings.LastIndex(line, "("); idx >= 0 && strings.HasSuffix(line, ")") {
		fn = strings.TrimSpace(line[:idx])
		loc = strings.TrimSuffix(line[idx+1:], ")")
	} else {
		loc = line
	}

	file, lineNo, col, ok := splitLocation(loc)
	if !ok {
		return record.Frame{}, false
	}

	return record.Frame{
		FunctionName: fn,
		FileName:     file,
		LineNumber:   lineNo,
		ColumnNumber: col,
	}, true
}

// parseFirefoxLine parses lines of the shape:
//
//	functionName@file:line:col
func parseFirefoxLine(line string) (record.Frame, bool) {
	idx := strings.LastIndex(line, "@")
	if idx < 0 {
		return record.Frame{}, false
	}
	fn := line[:idx]
	loc := line[idx+1:]

	file, lineNo, col, ok := splitLocation(loc)
	if !ok {
		return record.Frame{}, false
	}

	return record.Frame{
		FunctionName: fn,
		FileName:     file,
		LineNumber:   lineNo,
		ColumnNumber: col,
	}, true
}

// parseSafariLine parses the Safari-only shape lacking both "at " and "@":
//
//	functionName (file:line:col)
//	file:line:col
func parseSafariLine(line string) (record.Frame, bool) {
	var fn, loc string
	if idx := strings.LastIndex(line, "("); idx >= 0 && strings.HasSuffix(line, ")") {
		fn = strings.TrimSpace(line[:idx])
		loc = strings.TrimSuffix(line[idx+1:], ")")
	} else {
		loc = line
	}

	file, lineNo, col, ok := splitLocation(loc)
	if !ok {
		return record.Frame{}, false
	}

	return record.Frame{
		FunctionName: fn,
		FileName:     file,
		LineNumber:   lineNo,
		ColumnNumber: col,
	}, true
}

// splitLocation splits "file:line:col" from the right, validating that the
// last two colon-separated segments are numeric. A frame whose line/column
// are not valid integers is rejected rather than reported as 0.
func splitLocation(loc string) (file string, line, col int, ok bool) {
	parts := strings.Split(loc, ":")
	if len(parts) < 3 {
		return "", 0, 0, false
	}

	colStr := parts[len(parts)-1]
	lineStr := parts[len(parts)-2]
	file = strings.Join(parts[:len(parts)-2], ":")

	lineNo, err := strconv.Atoi(lineStr)
	if err != nil {
		return "", 0, 0, false
	}
	colNo, err := strconv.Atoi(colStr)
	if err != nil {
		return "", 0, 0, false
	}

	return file, lineNo, colNo, true
}

func isDenied(fileName string) bool {
	for _, d := range denylist {
		if strings.Contains(fileName, d) {
			return true
		}
	}
	return false
}
