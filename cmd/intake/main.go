// intake is the command-line client for the profile intake API.
//
// Usage:
//
//	intake create-profile --first-name Ada --last-name Lovelace --email ada@example.com
//	intake upload <profile_id> ./resume.pdf
//	intake submit <submission_id>
//	intake status <submission_id>
//	intake wait <submission_id> [--timeout 30s]
//	intake tasks <submission_id>
//	intake token hash <secret>
//	intake token issue --secret S --subject ci-bot [--ttl 24h]
package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"

	"github.com/spf13/pflag"
)

const usage = `Profile Intake CLI

Usage:
  intake <command> [flags] [args]

Commands:
  create-profile   create a profile
  upload           upload a PDF for a profile: upload <profile_id> <file>
  submit           submit an uploaded document: submit <submission_id>
  status           show a submission: status <submission_id>
  wait             poll until a submission finishes: wait <submission_id>
  tasks            list completion tasks: tasks <submission_id>
  token hash       print the bcrypt hash of a shared token (API_TOKEN_BCRYPT)
  token issue      print a signed per-client token (needs the server's JWT_SECRET)

Connection flags (all API commands):
  --url, --token, --config   override INTAKE_API_URL, INTAKE_API_TOKEN and the config file
`

// usageError makes main exit with status 2.
type usageError struct{ msg string }

func (e *usageError) Error() string { return e.msg }

func usagef(format string, args ...any) error {
	return &usageError{msg: fmt.Sprintf(format, args...)}
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	if err := run(ctx, os.Args[1:], os.Stdout); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		var uerr *usageError
		if errors.As(err, &uerr) {
			os.Exit(2)
		}
		os.Exit(1)
	}
}

func run(ctx context.Context, args []string, stdout io.Writer) error {
	if len(args) == 0 || args[0] == "-h" || args[0] == "--help" || args[0] == "help" {
		fmt.Fprint(stdout, usage)
		return nil
	}

	cmd, rest := args[0], args[1:]
	switch cmd {
	case "create-profile":
		return runCreateProfile(ctx, rest, stdout)
	case "upload":
		return runUpload(ctx, rest, stdout)
	case "submit":
		return runSubmit(ctx, rest, stdout)
	case "status":
		return runStatus(ctx, rest, stdout)
	case "wait":
		return runWait(ctx, rest, stdout)
	case "tasks":
		return runTasks(ctx, rest, stdout)
	case "token":
		return runToken(rest, stdout)
	default:
		return usagef("unknown command %q\n\n%s", cmd, usage)
	}
}

func newFlagSet(name string) *pflag.FlagSet {
	fs := pflag.NewFlagSet("intake "+name, pflag.ContinueOnError)
	fs.SortFlags = false
	return fs
}

// parse returns the positional arguments, requiring exactly want of them.
func parse(fs *pflag.FlagSet, args []string, want int, names string) ([]string, error) {
	if err := fs.Parse(args); err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			return nil, usagef("usage: %s %s", fs.Name(), names)
		}
		return nil, usagef("%v", err)
	}
	if fs.NArg() != want {
		return nil, usagef("usage: %s %s", fs.Name(), names)
	}
	return fs.Args(), nil
}

func printJSON(w io.Writer, v any) error {
	out, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(w, string(out))
	return err
}
