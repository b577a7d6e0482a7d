// Package probe runs the external capability probe against a completion
// endpoint and parses its report.
package probe

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os/exec"
	"strings"
	"time"
)

// Status is the outcome of one capability check.
type Status string

const (
	StatusSupported   Status = "supported"
	StatusUnsupported Status = "unsupported"
	StatusError       Status = "error"
)

// Request is written as JSON to the probe's stdin.
type Request struct {
	Endpoint   string `json:"endpoint"`
	APIVersion string `json:"api_version,omitempty"`
	Deployment string `json:"deployment,omitempty"`
	APIKey     string `json:"api_key"`
}

// Result is one capability check.
type Result struct {
	Name    string `json:"name"`
	Status  Status `json:"status"`
	Details string `json:"details,omitempty"`
}

// Report is the probe's stdout.
type Report struct {
	OK         bool     `json:"ok"`
	Results    []Result `json:"results"`
	Endpoint   string   `json:"endpoint"`
	Deployment string   `json:"deployment,omitempty"`
	APIVersion string   `json:"api_version,omitempty"`
}

// ProbeError reports a probe that could not run or produced an unusable report.
type ProbeError struct {
	Reason string
	Stderr string
	Err    error
}

func (e *ProbeError) Error() string {
	msg := "capability probe failed: " + e.Reason
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	if e.Stderr != "" {
		msg += " (stderr: " + e.Stderr + ")"
	}
	return msg
}

func (e *ProbeError) Unwrap() error { return e.Err }

// Runner executes the probe command.
type Runner struct {
	Command string
	Args    []string
	Timeout time.Duration
}

// Run executes the probe once. The API key is passed on stdin only.
func (r *Runner) Run(ctx context.Context, req Request) (*Report, error) {
	if r.Command == "" {
		return nil, &ProbeError{Reason: "no probe command configured"}
	}
	if req.Endpoint == "" {
		return nil, &ProbeError{Reason: "endpoint is required"}
	}

	if r.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, r.Timeout)
		defer cancel()
	}

	input, err := json.Marshal(req)
	if err != nil {
		return nil, &ProbeError{Reason: "encode request", Err: err}
	}

	cmd := exec.CommandContext(ctx, r.Command, r.Args...)
	cmd.Stdin = bytes.NewReader(input)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		errOut := strings.TrimSpace(stderr.String())
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			if ctx.Err() != nil {
				return nil, &ProbeError{Reason: "timed out", Stderr: errOut, Err: ctx.Err()}
			}
			return nil, &ProbeError{Reason: fmt.Sprintf("exit code %d", exitErr.ExitCode()), Stderr: errOut}
		}
		return nil, &ProbeError{Reason: "start", Stderr: errOut, Err: err}
	}

	return ParseReport(stdout.Bytes())
}

// ParseReport decodes and validates a probe report.
func ParseReport(data []byte) (*Report, error) {
	var report Report
	if err := json.Unmarshal(bytes.TrimSpace(data), &report); err != nil {
		return nil, &ProbeError{Reason: "invalid report", Err: err}
	}
	for i, res := range report.Results {
		switch res.Status {
		case StatusSupported, StatusUnsupported, StatusError:
		default:
			return nil, &ProbeError{Reason: fmt.Sprintf("result %d (%s) has unknown status %q", i, res.Name, res.Status)}
		}
	}
	return &report, nil
}
