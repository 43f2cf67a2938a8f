package generator

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os/exec"
	"strings"
	"syscall"
	"text/template"
	"time"
)

var prompts = map[Op]*template.Template{
	OpPRD: template.Must(template.New("prd").Parse(`You are writing a Product Requirements Document.

Turn the planning notes below into a PRD in markdown. Start with a level-1
heading. Cover goals, scope, functional requirements, non-functional
requirements and open questions. Output only the markdown.

{{ .Input }}
`)),
	OpTasks: template.Must(template.New("tasks").Parse(`Break the PRD below into implementation tasks.

Output only markdown. Start every task with a level-1 heading of the form
"# Task <N>: <title>", then a short description, then a "## Subtasks" list
and a "## Acceptance Criteria" list. Start every list item with "- ".

{{ .Input }}
`)),
}

// Prompt renders the instruction text sent for req.
func Prompt(req Request) (string, error) {
	tmpl, ok := prompts[req.Op]
	if !ok {
		return "", fmt.Errorf("unknown op %q", req.Op)
	}
	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, req); err != nil {
		return "", err
	}
	return buf.String(), nil
}

// CommandBackend runs a local LLM CLI in print mode with the prompt on
// stdin and reads markdown from stdout.
type CommandBackend struct {
	Binary string // default "claude"
	Dir    string
}

// NewCommandBackend returns a backend that runs binary.
func NewCommandBackend(binary string) *CommandBackend {
	return &CommandBackend{Binary: binary}
}

// Generate runs the CLI once. A binary that cannot be started is
// permanent; a non-zero exit is transient.
func (b *CommandBackend) Generate(ctx context.Context, req Request) (string, error) {
	prompt, err := Prompt(req)
	if err != nil {
		return "", Permanent(err)
	}

	cmd := b.command(ctx, req.Model)
	cmd.Stdin = strings.NewReader(prompt)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		if ctx.Err() != nil {
			return "", ctx.Err()
		}
		if errors.Is(err, exec.ErrNotFound) || errors.Is(err, fs.ErrNotExist) || errors.Is(err, fs.ErrPermission) {
			return "", Permanent(fmt.Errorf("start %s: %w", b.binary(), err))
		}
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			return "", Transient(fmt.Errorf("%s exited %d: %s",
				b.binary(), exitErr.ExitCode(), strings.TrimSpace(stderr.String())))
		}
		return "", Transient(fmt.Errorf("run %s: %w", b.binary(), err))
	}
	return stdout.String(), nil
}

func (b *CommandBackend) binary() string {
	if b.Binary == "" {
		return "claude"
	}
	return b.Binary
}

func (b *CommandBackend) command(ctx context.Context, model string) *exec.Cmd {
	args := []string{"-p", "--output-format", "text"}
	if model != "" {
		args = append(args, "--model", model)
	}
	cmd := exec.CommandContext(ctx, b.binary(), args...)
	if b.Dir != "" {
		cmd.Dir = b.Dir
	}
	cmd.Cancel = func() error {
		return cmd.Process.Signal(syscall.SIGTERM)
	}
	cmd.WaitDelay = 5 * time.Second
	return cmd
}
