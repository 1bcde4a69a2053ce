// internal/diff/external.go
package diff

import (
	"bytes"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"

	"docvc/internal/errors"

	"go.uber.org/zap"
)

// ExternalEngine shells out to a system diff tool. Availability is a cheap
// PATH probe; actual invocation failures surface as tool-unavailable so the
// selector can fall back rather than the caller seeing a raw exec error.
type ExternalEngine struct {
	tool   string
	logger *zap.Logger
}

func NewExternalEngine(tool string, logger *zap.Logger) *ExternalEngine {
	if tool == "" {
		tool = "diff"
	}
	return &ExternalEngine{tool: tool, logger: logger}
}

func (e *ExternalEngine) Name() string { return e.tool }

func (e *ExternalEngine) Available() bool {
	_, err := exec.LookPath(e.tool)
	return err == nil
}

func (e *ExternalEngine) Diff(oldText, newText string) (string, error) {
	dir, err := os.MkdirTemp("", "docvc-diff-")
	if err != nil {
		return "", fmt.Errorf("creating diff workspace: %w", err)
	}
	defer os.RemoveAll(dir)

	oldPath := filepath.Join(dir, "old")
	newPath := filepath.Join(dir, "new")
	if err := os.WriteFile(oldPath, []byte(oldText), 0600); err != nil {
		return "", fmt.Errorf("writing diff input: %w", err)
	}
	if err := os.WriteFile(newPath, []byte(newText), 0600); err != nil {
		return "", fmt.Errorf("writing diff input: %w", err)
	}

	cmd := exec.Command(e.tool, "-u", "--label", "old", "--label", "new", oldPath, newPath)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	err = cmd.Run()
	if err == nil {
		// Exit 0: no differences.
		return "", nil
	}

	// diff exits 1 when the inputs differ, anything else is trouble.
	if exitErr, ok := err.(*exec.ExitError); ok && exitErr.ExitCode() == 1 {
		return stdout.String(), nil
	}

	e.logger.Warn("external diff tool failed",
		zap.String("tool", e.tool),
		zap.String("stderr", stderr.String()),
		zap.Error(err))

	return "", errors.ToolUnavailable(e.tool, err)
}
