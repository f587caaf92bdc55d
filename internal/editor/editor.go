// Package editor resolves and runs the external program used by
// zipedit edit. The entry body goes to a temp file, the editor gets the
// terminal, and the caller learns whether the bytes changed.
package editor

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"os/exec"
	"path"
	"path/filepath"
	"strings"
	"time"

	"zipedit/internal/logging"
)

// Editor describes how to pick the external program.
type Editor struct {
	// Command overrides environment resolution when set. It may carry
	// arguments ("code --wait").
	Command string

	// Fallbacks are probed with exec.LookPath when neither Command nor
	// $VISUAL/$EDITOR resolve.
	Fallbacks []string
}

// Resolve returns the argv prefix to run. The entry's temp file path is
// appended by Edit.
func (e Editor) Resolve() ([]string, error) {
	for _, candidate := range []string{e.Command, os.Getenv("VISUAL"), os.Getenv("EDITOR")} {
		if candidate == "" {
			continue
		}
		argv := strings.Fields(candidate)
		if _, err := exec.LookPath(argv[0]); err != nil {
			return nil, fmt.Errorf("editor %q not found: %w", argv[0], err)
		}
		return argv, nil
	}

	for _, name := range e.Fallbacks {
		if p, err := exec.LookPath(name); err == nil {
			logging.EditorDebug("resolved fallback editor %s", p)
			return []string{name}, nil
		}
	}
	return nil, fmt.Errorf("no editor found (set $EDITOR, $VISUAL, or editor.command in the config)")
}

// Edit writes content to a temp file named after the entry, runs argv on
// it with the terminal attached, and returns the resulting bytes plus
// whether they differ from the input. The temp file never outlives the
// call.
func Edit(ctx context.Context, argv []string, entryName string, content []byte) ([]byte, bool, error) {
	tmp, err := WriteTemp(entryName, content)
	if err != nil {
		return nil, false, err
	}
	defer os.Remove(tmp)

	start := time.Now()
	logging.Editor("editing %s via %s", entryName, argv[0])
	args := append(append([]string{}, argv[1:]...), tmp)
	cmd := exec.CommandContext(ctx, argv[0], args...)
	cmd.Stdin = os.Stdin
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr
	if err := cmd.Run(); err != nil {
		if ctx.Err() != nil {
			return nil, false, ctx.Err()
		}
		return nil, false, fmt.Errorf("editor exited with error: %w", err)
	}

	edited, err := os.ReadFile(tmp)
	if err != nil {
		return nil, false, fmt.Errorf("failed to read edited file: %w", err)
	}
	changed := !bytes.Equal(content, edited)
	logging.Audit().EditorSession(entryName, argv[0], changed, time.Since(start).Milliseconds())
	return edited, changed, nil
}

// WriteTemp writes content to a fresh temp file whose name keeps the
// entry's base name, so editors pick up the right syntax mode. The
// caller owns the file and removes it when done.
func WriteTemp(entryName string, content []byte) (string, error) {
	base := path.Base(entryName)
	base = strings.ReplaceAll(base, string(filepath.Separator), "_")
	f, err := os.CreateTemp("", "zipedit-*-"+base)
	if err != nil {
		return "", fmt.Errorf("failed to create temp file: %w", err)
	}
	name := f.Name()
	if err := f.Close(); err != nil {
		os.Remove(name)
		return "", err
	}
	if err := os.WriteFile(name, content, 0600); err != nil {
		os.Remove(name)
		return "", fmt.Errorf("failed to write temp file: %w", err)
	}
	return name, nil
}
