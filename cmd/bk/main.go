// Command bk is a CLI client for the bookshelf review tracker.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/and161185/bookshelf/internal/config"
	"github.com/and161185/bookshelf/internal/errs"
)

var (
	version   = "dev"
	buildDate = "unknown"
)

// Exit codes.
const (
	exitOK          = 0
	exitError       = 1
	exitUsage       = 2
	exitValidation  = 3
	exitAuth        = 4
	exitInterrupted = 130
)

var (
	errUsage       = errors.New("usage")
	errInterrupted = errors.New("interrupted")
)

const usageText = `bk CLI
Usage:
  bk [-api URL] [-timeout D] [-debug] <cmd> [args]

Commands:
  version
  login       -u <username> -p <password>
  logout
  whoami
  useradd     -u <username> -p <password> -name <display name>   (direct mode)
  search      -q <keyword>
  add         -isbn <isbn13> -state <state> [-title .. -publisher .. -authors a,b -published YYYY-MM-DD]
              [-content <text>] [-draft] [-completed-at <date>]
  review-add  -book <uuid> -state <state> [-content <text>] [-draft] [-completed-at <date>]
  review-edit -book <uuid> -id <uuid> [-state <state>] [-content <text>] [-draft] [-completed-at <date>]
  review-rm   -id <uuid>
  mine        [-filter all|completed|in-progress|not-yet]
  latest      [-n <count>] [-filter ..]
  user        -id <uuid> [-filter ..]
  migrate     (direct mode)

States: not-yet, in-progress, completed.
`

func main() {
	os.Exit(run(os.Args[1:], os.Stdout, os.Stderr))
}

// run parses global flags, dispatches the command and maps its error to an exit code.
func run(args []string, stdout, stderr io.Writer) int {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintln(stderr, err)
		return exitError
	}

	fs := flag.NewFlagSet("bk", flag.ContinueOnError)
	fs.SetOutput(stderr)
	fs.Usage = func() { fmt.Fprint(stderr, usageText) }
	fs.StringVar(&cfg.APIRoot, "api", cfg.APIRoot, "API root URL")
	fs.DurationVar(&cfg.APITimeout, "timeout", cfg.APITimeout, "per-request timeout")
	fs.BoolVar(&cfg.Debug, "debug", cfg.Debug, "debug logging")
	if err := fs.Parse(args); err != nil {
		return exitUsage
	}
	if fs.NArg() < 1 {
		fs.Usage()
		return exitUsage
	}
	if err := cfg.Validate(); err != nil {
		fmt.Fprintln(stderr, err)
		return exitUsage
	}

	cmd, rest := fs.Arg(0), fs.Args()[1:]
	if cmd == "version" {
		fmt.Fprintf(stdout, "bk %s (%s)\n", version, buildDate)
		return exitOK
	}

	log := newLogger(cfg.Debug)
	defer func() { _ = log.Sync() }()

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	a, err := newApp(ctx, cfg, log)
	if err != nil {
		return report(stderr, err)
	}
	defer a.Close()

	c := &cli{app: a, stdout: stdout, stderr: stderr}
	return report(stderr, c.dispatch(ctx, cmd, rest))
}

func (c *cli) dispatch(ctx context.Context, cmd string, args []string) error {
	switch cmd {
	case "login":
		return c.login(ctx, args)
	case "logout":
		return c.logout()
	case "whoami":
		return c.whoami()
	case "useradd":
		return c.useradd(ctx, args)
	case "search":
		return c.searchBooks(ctx, args)
	case "add":
		return c.add(ctx, args)
	case "review-add":
		return c.reviewAdd(ctx, args)
	case "review-edit":
		return c.reviewEdit(ctx, args)
	case "review-rm":
		return c.reviewRemove(ctx, args)
	case "mine":
		return c.mine(ctx, args)
	case "latest":
		return c.latest(ctx, args)
	case "user":
		return c.user(ctx, args)
	case "migrate":
		return c.migrate(ctx)
	default:
		fmt.Fprint(c.stderr, usageText)
		return errUsage
	}
}

// report prints err and returns its exit code.
func report(w io.Writer, err error) int {
	code := exitCode(err)
	switch code {
	case exitOK, exitUsage:
	case exitAuth:
		fmt.Fprintf(w, "%v\nplease login again\n", err)
	default:
		fmt.Fprintln(w, err)
	}
	return code
}

func exitCode(err error) int {
	switch {
	case err == nil:
		return exitOK
	case errors.Is(err, errUsage):
		return exitUsage
	case errors.Is(err, errInterrupted):
		return exitInterrupted
	case errs.IsValidation(err), errors.Is(err, errs.ErrInvalidInput):
		return exitValidation
	case errors.Is(err, errs.ErrUnauthorized):
		return exitAuth
	default:
		return exitError
	}
}

// detached runs a store-mutating call to completion. An interrupt does not
// cancel it: the call finishes under its own deadline and its result is
// discarded.
func detached(timeout time.Duration, fn func(ctx context.Context) error) error {
	sig := make(chan os.Signal, 1)
	signal.Notify(sig, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(sig)

	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	done := make(chan error, 1)
	go func() { done <- fn(ctx) }()

	select {
	case err := <-done:
		return err
	case <-sig:
		<-done
		return errInterrupted
	}
}
