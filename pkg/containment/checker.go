package containment

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"math"
	"os/exec"
	"strconv"
	"strings"
	"time"
)

// Failure kinds produced by ExecChecker itself.
const (
	KindProtocolError = "ProtocolError"
	KindExecError     = "ExecError"
	KindException     = "Exception"
)

// Status markers of the tool protocol.
const (
	markerOK        = "OK"
	markerFail      = "Fail"
	markerException = "Exception"
)

const minProtocolLines = 3

// ErrProtocol reports tool output that does not follow the protocol.
var ErrProtocol = errors.New("unexpected tool output")

// Checker decides whether the schema at a is a subset of the schema at b.
// Failures are reported inside the Verdict.
type Checker interface {
	CheckSubset(ctx context.Context, a, b string) Verdict
}

// ExecChecker runs an external tool as `Command... a b` in Dir and parses its
// standard output.
//
// The tool prints one status line (OK, Fail or Exception), for Exception the
// error text whose first token is the kind, and finally two lines holding the
// start and end time in seconds since the epoch.
type ExecChecker struct {
	Command []string
	Dir     string
}

// CheckSubset implements Checker.
func (c *ExecChecker) CheckSubset(ctx context.Context, a, b string) Verdict {
	start := time.Now()

	if len(c.Command) == 0 {
		return Failed(KindExecError, "no command configured", start, time.Now())
	}

	args := append(append([]string{}, c.Command[1:]...), a, b)
	cmd := exec.CommandContext(ctx, c.Command[0], args...)
	cmd.Dir = c.Dir

	var stdout, stderr bytes.Buffer

	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	runErr := cmd.Run()

	var exitErr *exec.ExitError
	if runErr != nil && !errors.As(runErr, &exitErr) {
		return Failed(KindExecError, runErr.Error(), start, time.Now())
	}

	verdict, err := ParseOutput(stdout.Bytes())
	if err != nil {
		msg := err.Error()
		if stderr.Len() > 0 {
			msg += "\n" + strings.TrimSpace(stderr.String())
		}

		return Failed(KindProtocolError, msg, start, time.Now())
	}

	return verdict
}

// ParseOutput parses tool output into a Verdict.
func ParseOutput(out []byte) (Verdict, error) {
	text := strings.ReplaceAll(string(out), "\r\n", "\n")
	lines := strings.Split(strings.TrimRight(text, "\n"), "\n")

	if len(lines) < minProtocolLines {
		return Verdict{}, fmt.Errorf("%w: %d lines: %q", ErrProtocol, len(lines), text)
	}

	start, err := parseEpoch(lines[len(lines)-2])
	if err != nil {
		return Verdict{}, err
	}

	end, err := parseEpoch(lines[len(lines)-1])
	if err != nil {
		return Verdict{}, err
	}

	body := lines[:len(lines)-2]

	switch strings.TrimSpace(body[0]) {
	case markerOK:
		return Verdict{Outcome: Contained, Start: start, End: end}, nil
	case markerFail:
		return Verdict{Outcome: NotContained, Start: start, End: end}, nil
	case markerException:
		kind := KindException
		if len(body) > 1 {
			if fields := strings.Fields(body[1]); len(fields) > 0 {
				kind = fields[0]
			}
		}

		return Failed(kind, strings.Join(body[1:], "\n"), start, end), nil
	default:
		return Verdict{}, fmt.Errorf("%w: status %q", ErrProtocol, body[0])
	}
}

func parseEpoch(line string) (time.Time, error) {
	secs, err := strconv.ParseFloat(strings.TrimSpace(line), 64)
	if err != nil || math.IsNaN(secs) || math.IsInf(secs, 0) {
		return time.Time{}, fmt.Errorf("%w: timestamp %q", ErrProtocol, line)
	}

	whole, frac := math.Modf(secs)

	return time.Unix(int64(whole), int64(math.Round(frac*1e9))).UTC(), nil
}
