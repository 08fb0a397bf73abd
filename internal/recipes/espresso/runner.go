package espresso

import (
	"context"
	"os"
	"os/exec"
	"path/filepath"

	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
)

// CommandRunner runs argv with dir as working directory, sending stdout and stderr to logFile inside dir.
type CommandRunner interface {
	Run(ctx context.Context, dir string, logFile string, argv []string) error
}

// ExecRunner runs commands as child processes.
type ExecRunner struct{}

func (ExecRunner) Run(ctx context.Context, dir string, logFile string, argv []string) error {
	if len(argv) == 0 {
		return errors.New("empty command")
	}
	out, err := os.Create(filepath.Join(dir, logFile))
	if err != nil {
		return errors.WithStack(err)
	}
	defer out.Close()

	cmd := exec.CommandContext(ctx, argv[0], argv[1:]...)
	cmd.Dir = dir
	cmd.Stdout = out
	cmd.Stderr = out

	log.WithField("dir", dir).Debugf("Running %v", argv)
	if err := cmd.Run(); err != nil {
		return errors.Wrapf(err, "%s failed, see %s", argv[0], filepath.Join(dir, logFile))
	}
	return nil
}
