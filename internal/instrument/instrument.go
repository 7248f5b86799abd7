// Package instrument rewrites submitted application source so its main loop
// runs at a fixed cadence. The transform is deterministic: the output is the
// input plus three inserted fragments, nothing is reformatted.
package instrument

import (
	"errors"
	"strings"
)

// IdealCycleMillis is the target wall-clock duration of one iteration of the
// user application's main loop. Iterations finishing early are padded with
// sleep; iterations running long are left alone.
const IdealCycleMillis = 20

// ErrNoLoop is returned when the source has no infinite-loop header to
// anchor the timing capture on. Producing malformed output silently is not
// an option, so the transform refuses.
var ErrNoLoop = errors.New("no infinite loop header found")

const headerFragment = `
import time
from datetime import datetime
ideal_cycle = 20
`

const startFragment = "\n    start_time_internal_freq_control = datetime.now()"

const tailFragment = `
    finish_time_internal_freq_control = datetime.now()
    dt = finish_time_internal_freq_control - start_time_internal_freq_control
    ms = (dt.days * 24 * 60 * 60 + dt.seconds) * 1000 + dt.microseconds / 1000.0

    if (ms < ideal_cycle):
        time.sleep((ideal_cycle - ms) / 1000.0)
`

// Apply injects fixed-cycle timing into source: the timing imports and
// ideal_cycle constant are prepended, a start-timestamp capture is inserted
// immediately after the first infinite-loop header, and an elapsed-time
// check with compensating sleep is appended at the end.
func Apply(source string) (string, error) {
	code := headerFragment + source

	end, ok := findLoopHeader(code)
	if !ok {
		return "", ErrNoLoop
	}

	var b strings.Builder
	b.Grow(len(code) + len(startFragment) + len(tailFragment))
	b.WriteString(code[:end])
	b.WriteString(startFragment)
	b.WriteString(code[end:])
	b.WriteString(tailFragment)
	return b.String(), nil
}

// CompatRewrite applies the two fixed backward-compatibility substitutions
// older exercises rely on.
func CompatRewrite(source string) string {
	source = strings.ReplaceAll(source, "from GUI import GUI", "import GUI")
	source = strings.ReplaceAll(source, "from HAL import HAL", "import HAL")
	return source
}

// findLoopHeader locates the first top-level infinite-loop header and
// returns the offset just past its trailing colon. Recognized spellings are
// the boolean-true conditioned indefinite loops: "while True:", "while 1:",
// and their parenthesized forms, with arbitrary interior spacing.
func findLoopHeader(code string) (int, bool) {
	for i := 0; i < len(code); i++ {
		if !strings.HasPrefix(code[i:], "while") {
			continue
		}
		// The loop must open a top-level statement: start of text or a
		// non-space predecessor (newline included). Indented whiles are
		// nested and skipped.
		if i > 0 && code[i-1] == ' ' {
			continue
		}
		if end, ok := matchLoopTail(code[i+len("while"):]); ok {
			return i + len("while") + end, true
		}
	}
	return 0, false
}

// matchLoopTail parses the remainder of a loop header after the "while"
// keyword: optional spaces, an optionally parenthesized True/1 condition,
// and the trailing colon. It returns the offset just past the colon.
func matchLoopTail(s string) (int, bool) {
	i := skipSpaces(s, 0)

	paren := false
	if i < len(s) && s[i] == '(' {
		paren = true
		i = skipSpaces(s, i+1)
	}

	matched := false
	for _, cond := range []string{"True", "1"} {
		if strings.HasPrefix(s[i:], cond) {
			i += len(cond)
			matched = true
			break
		}
	}
	if !matched {
		return 0, false
	}

	i = skipSpaces(s, i)
	if paren {
		if i >= len(s) || s[i] != ')' {
			return 0, false
		}
		i = skipSpaces(s, i+1)
	}

	if i >= len(s) || s[i] != ':' {
		return 0, false
	}
	return i + 1, true
}

func skipSpaces(s string, i int) int {
	for i < len(s) && s[i] == ' ' {
		i++
	}
	return i
}
