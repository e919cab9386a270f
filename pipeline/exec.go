package pipeline

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"slices"
	"sort"
	"strings"

	"github.com/flanksource/commons/logger"
	"github.com/flanksource/gomplate/v3"
)

// Exec runs Configuration.Command with Configuration.Args in the fixture directory.
// Command, Args and Env values are gomplate templates over Input.TemplateData, e.g.
//
//	command: kotlinc-analyze
//	args: ["--frontend={{.frontend}}", "{{.file}}"]
//
// The fixture content is passed on stdin and stdout is the output. Analyzers commonly
// exit non-zero when they report errors, so exit codes listed in
// Configuration.ExitCodes (0 and 1 by default) are not failures. Any other exit code,
// and termination by a signal, is.
type Exec struct{}

func (e *Exec) Name() string {
	return "exec"
}

func (e *Exec) Analyze(ctx context.Context, in Input) (Output, error) {
	cfg := in.Configuration
	data := in.TemplateData()

	command, err := render(cfg.Command, data)
	if err != nil {
		return Output{}, fmt.Errorf("failed to template command: %w", err)
	}
	command = strings.TrimSpace(command)
	if command == "" {
		return Output{}, fmt.Errorf("no command configured for %s", cfg.Tuple)
	}

	args := make([]string, 0, len(cfg.Args))
	for i, arg := range cfg.Args {
		rendered, err := render(arg, data)
		if err != nil {
			return Output{}, fmt.Errorf("failed to template argument %d: %w", i, err)
		}
		args = append(args, rendered)
	}

	env := os.Environ()
	keys := make([]string, 0, len(cfg.Env))
	for k := range cfg.Env {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		v, err := render(cfg.Env[k], data)
		if err != nil {
			return Output{}, fmt.Errorf("failed to template env %s: %w", k, err)
		}
		env = append(env, k+"="+v)
	}

	logger.V(4).Infof("exec %s %s", command, strings.Join(args, " "))

	cmd := exec.CommandContext(ctx, command, args...)
	cmd.Dir = filepath.Dir(in.Fixture.AbsPath())
	cmd.Env = env
	cmd.Stdin = bytes.NewReader(in.Content)

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	out := Output{Format: cfg.OutputFormat()}
	runErr := cmd.Run()
	out.Raw = stdout.Bytes()
	out.Stderr = stderr.String()

	if ctx.Err() != nil {
		return out, ctx.Err()
	}
	if runErr != nil {
		var exitErr *exec.ExitError
		if errors.As(runErr, &exitErr) && exitErr.Exited() && slices.Contains(cfg.AcceptedExitCodes(), exitErr.ExitCode()) {
			out.ExitCode = exitErr.ExitCode()
			return out, nil
		}
		return out, fmt.Errorf("%s failed: %w: %s", command, runErr, strings.TrimSpace(stderr.String()))
	}
	return out, nil
}

func render(template string, data map[string]any) (string, error) {
	if !strings.Contains(template, "{{") {
		return template, nil
	}
	return gomplate.RunTemplate(data, gomplate.Template{
		Template: template,
	})
}
