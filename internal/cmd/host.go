package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os/exec"
	"strings"

	log "github.com/sirupsen/logrus"

	"github.com/adamancini/appupdate/internal/config"
	"github.com/adamancini/appupdate/internal/interactive"
)

// errInstallDeclined is returned when the user answers no at the install prompt.
var errInstallDeclined = errors.New("package installation declined")

// consoleNotifier prints progress messages, one per line.
type consoleNotifier struct {
	w io.Writer
}

func (n consoleNotifier) Show(message string) {
	_, _ = fmt.Fprintf(n.w, "==> %s\n", message)
}

// CommandRunner is an interface for running external commands.
// This allows for mocking in tests.
type CommandRunner interface {
	Run(ctx context.Context, name string, args ...string) ([]byte, error)
}

// DefaultCommandRunner uses os/exec to run commands.
type DefaultCommandRunner struct{}

func (r *DefaultCommandRunner) Run(ctx context.Context, name string, args ...string) ([]byte, error) {
	cmd := exec.CommandContext(ctx, name, args...)
	return cmd.CombinedOutput()
}

// commandInstaller hands a downloaded package to the configured command,
// with the package path as the last argument.
type commandInstaller struct {
	command    []string
	confirm    bool
	runner     CommandRunner
	prompter   *interactive.Prompter
	isTerminal func() bool
}

func newCommandInstaller(cfg config.InstallerConfig, in io.Reader, out io.Writer) *commandInstaller {
	return &commandInstaller{
		command:    cfg.Command,
		confirm:    cfg.Confirm,
		runner:     &DefaultCommandRunner{},
		prompter:   interactive.NewPrompterWithIO(in, out),
		isTerminal: interactive.IsTerminal,
	}
}

func (i *commandInstaller) Install(ctx context.Context, path string) error {
	// Without a terminal there is nobody to ask.
	if i.confirm && i.isTerminal() && !i.prompter.ConfirmInstall(path) {
		return errInstallDeclined
	}

	args := append(append([]string{}, i.command[1:]...), path)
	log.Debugf("running installer: %s %s", i.command[0], strings.Join(args, " "))

	output, err := i.runner.Run(ctx, i.command[0], args...)
	if err != nil {
		return fmt.Errorf("installer %s failed: %w\nOutput: %s", i.command[0], err, string(output))
	}
	return nil
}
