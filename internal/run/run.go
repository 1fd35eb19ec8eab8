// Package run wraps os/exec for the handful of external tools the CLI shells
// out to, logging each invocation at the debug level.
package run

import (
	"bytes"
	"context"
	"io"
	"os"
	"os/exec"
	"strings"

	"emperror.dev/errors"
	"github.com/apex/log"
)

// Command runs the named program with the given arguments and waits for it to
// exit. Stdout and stderr are inherited from the calling process.
func Command(ctx context.Context, name string, args ...string) error {
	cmd := exec.CommandContext(ctx, name, args...)
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr
	log.WithField("command", name+" "+strings.Join(args, " ")).Debug("executing external command")
	if err := cmd.Run(); err != nil {
		return errors.WrapIff(err, "run: command '%s' failed", name)
	}
	return nil
}

// Output runs the named program and returns its standard output. Standard
// error is captured and included in the returned error on failure.
func Output(ctx context.Context, name string, args ...string) ([]byte, error) {
	cmd := exec.CommandContext(ctx, name, args...)
	var stderr bytes.Buffer
	cmd.Stderr = &stderr
	log.WithField("command", name+" "+strings.Join(args, " ")).Debug("executing external command")
	out, err := cmd.Output()
	if err != nil {
		return nil, errors.WrapIff(err, "run: command '%s' failed: %s", name, strings.TrimSpace(stderr.String()))
	}
	return out, nil
}

// OutputToFile runs the named program with stdin (optionally) connected to
// the given reader and standard output written to path.
func OutputToFile(ctx context.Context, path string, stdin io.Reader, name string, args ...string) error {
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0o644)
	if err != nil {
		return errors.WithStack(err)
	}
	defer f.Close()

	cmd := exec.CommandContext(ctx, name, args...)
	cmd.Stdin = stdin
	cmd.Stdout = f
	cmd.Stderr = os.Stderr
	log.WithField("command", name+" "+strings.Join(args, " ")).WithField("output", path).Debug("executing external command")
	if err := cmd.Run(); err != nil {
		return errors.WrapIff(err, "run: command '%s' failed", name)
	}
	return nil
}

// Graphviz renders a graphviz dot file to the given output format using the
// dot program, which must be present on the PATH.
func Graphviz(ctx context.Context, src string, dst string, format string) error {
	if format == "" {
		format = "pdf"
	}
	return Command(ctx, "dot", "-T"+format, "-o", dst, src)
}
