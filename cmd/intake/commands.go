package main

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/cgrente/profile-intake-platform/client"
	"github.com/cgrente/profile-intake-platform/credentials"
)

func runCreateProfile(ctx context.Context, args []string, stdout io.Writer) error {
	var conn connection
	var input client.CreateProfileInput
	var githubURL string

	fs := newFlagSet("create-profile")
	fs.StringVar(&input.FirstName, "first-name", "", "first name (required)")
	fs.StringVar(&input.LastName, "last-name", "", "last name (required)")
	fs.StringVar(&input.Email, "email", "", "email address (required)")
	fs.StringVar(&githubURL, "github-url", "", "GitHub profile URL")
	conn.addFlags(fs)
	if _, err := parse(fs, args, 0, "--first-name NAME --last-name NAME --email EMAIL [--github-url URL]"); err != nil {
		return err
	}
	if fs.Changed("github-url") {
		input.GithubURL = &githubURL
	}

	c, err := conn.client()
	if err != nil {
		return err
	}
	profile, err := c.CreateProfile(ctx, input)
	if err != nil {
		return err
	}
	return printJSON(stdout, profile)
}

func runUpload(ctx context.Context, args []string, stdout io.Writer) error {
	var conn connection
	fs := newFlagSet("upload")
	conn.addFlags(fs)
	positional, err := parse(fs, args, 2, "<profile_id> <file>")
	if err != nil {
		return err
	}

	c, err := conn.client()
	if err != nil {
		return err
	}
	submission, err := c.UploadPDF(ctx, positional[0], positional[1])
	if err != nil {
		return err
	}
	return printJSON(stdout, submission)
}

func runSubmit(ctx context.Context, args []string, stdout io.Writer) error {
	var conn connection
	fs := newFlagSet("submit")
	conn.addFlags(fs)
	positional, err := parse(fs, args, 1, "<submission_id>")
	if err != nil {
		return err
	}

	c, err := conn.client()
	if err != nil {
		return err
	}
	submission, err := c.Submit(ctx, positional[0])
	if err != nil {
		return err
	}
	return printJSON(stdout, submission)
}

func runStatus(ctx context.Context, args []string, stdout io.Writer) error {
	var conn connection
	fs := newFlagSet("status")
	conn.addFlags(fs)
	positional, err := parse(fs, args, 1, "<submission_id>")
	if err != nil {
		return err
	}

	c, err := conn.client()
	if err != nil {
		return err
	}
	submission, err := c.Status(ctx, positional[0])
	if err != nil {
		return err
	}
	return printJSON(stdout, submission)
}

func runWait(ctx context.Context, args []string, stdout io.Writer) error {
	var conn connection
	var interval, timeout time.Duration
	var statuses []string

	fs := newFlagSet("wait")
	fs.DurationVar(&interval, "interval", 500*time.Millisecond, "poll interval")
	fs.DurationVar(&timeout, "timeout", time.Minute, "give up after this long")
	fs.StringSliceVar(&statuses, "status", nil, "statuses to wait for (default COMPLETED,REJECTED)")
	conn.addFlags(fs)
	positional, err := parse(fs, args, 1, "<submission_id>")
	if err != nil {
		return err
	}

	c, err := conn.client()
	if err != nil {
		return err
	}
	if timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}
	submission, err := c.WaitForStatus(ctx, positional[0], interval, statuses...)
	if err != nil {
		return err
	}
	return printJSON(stdout, submission)
}

func runTasks(ctx context.Context, args []string, stdout io.Writer) error {
	var conn connection
	fs := newFlagSet("tasks")
	conn.addFlags(fs)
	positional, err := parse(fs, args, 1, "<submission_id>")
	if err != nil {
		return err
	}

	c, err := conn.client()
	if err != nil {
		return err
	}
	tasks, err := c.Tasks(ctx, positional[0])
	if err != nil {
		return err
	}
	return printJSON(stdout, map[string]any{"tasks": tasks})
}

func runToken(args []string, stdout io.Writer) error {
	if len(args) == 0 {
		return usagef("usage: intake token <hash|issue>")
	}
	switch args[0] {
	case "hash":
		fs := newFlagSet("token hash")
		positional, err := parse(fs, args[1:], 1, "<secret>")
		if err != nil {
			return err
		}
		hash, err := credentials.HashToken(positional[0])
		if err != nil {
			return err
		}
		_, err = fmt.Fprintln(stdout, hash)
		return err

	case "issue":
		var secret, issuer, subject string
		var ttl time.Duration
		fs := newFlagSet("token issue")
		fs.StringVar(&secret, "secret", "", "signing secret, the server's JWT_SECRET (required)")
		fs.StringVar(&issuer, "issuer", "profile-intake", "issuer, the server's JWT_ISSUER")
		fs.StringVar(&subject, "subject", "", "client id recorded by the server (required)")
		fs.DurationVar(&ttl, "ttl", 24*time.Hour, "token lifetime")
		if _, err := parse(fs, args[1:], 0, "--secret SECRET --subject CLIENT [--issuer ISSUER] [--ttl 24h]"); err != nil {
			return err
		}
		if secret == "" || subject == "" {
			return usagef("usage: intake token issue --secret SECRET --subject CLIENT")
		}
		token, err := credentials.IssueToken(secret, issuer, subject, ttl)
		if err != nil {
			return err
		}
		_, err = fmt.Fprintln(stdout, token)
		return err

	default:
		return usagef("unknown token command %q", args[0])
	}
}
