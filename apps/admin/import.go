package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"text/tabwriter"

	"github.com/fatih/color"
	"github.com/pkg/errors"

	"github.com/trezcool/casebook/core/roster"
)

var noticeColors = map[roster.Level]*color.Color{
	roster.LevelInfo:    color.New(color.FgCyan),
	roster.LevelSuccess: color.New(color.FgGreen),
	roster.LevelWarning: color.New(color.FgYellow),
	roster.LevelError:   color.New(color.FgRed),
}

// importRoster extracts `path`, prints the review table then commits the valid rows as `operator`.
// Ctrl+C stops the commit after the record being inserted.
func (cli *commandLine) importRoster(path, operator string, dryRun bool) error {
	usr, err := cli.usrSvc.GetByUsernameOrEmail(context.Background(), operator)
	if err != nil {
		return errors.Wrap(err, "finding operator")
	}

	file, err := os.Open(path)
	if err != nil {
		return errors.Wrap(err, "opening roster")
	}
	defer file.Close()

	sess := roster.NewSession(usr.ID, cli.extractor, cli.committer)
	notice, err := sess.Load(filepath.Base(path), file)
	cli.printNotice(notice)
	if err != nil {
		return err
	}
	if sess.State() != roster.StateExtracted {
		return nil
	}
	cli.printBatch(sess.Batch())
	if dryRun {
		return nil
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()
	if err := sess.StartCommit(ctx, usr.ID); err != nil {
		cli.printNotice(roster.ErrorNotice(err))
		return err
	}

	updates, unsubscribe := sess.Subscribe()
	defer unsubscribe()
	for p := range updates {
		_, _ = fmt.Fprintf(cli.out, "\r%3d%% (%d/%d)", p.Percent, p.Completed, p.Total)
	}
	_, _ = fmt.Fprintln(cli.out)

	out, err := sess.Wait(context.Background())
	if err != nil {
		return errors.Wrap(err, "waiting for commit")
	}
	cli.printOutcome(out)
	return nil
}

func (cli *commandLine) printNotice(n roster.Notice) {
	if n.IsZero() {
		return
	}
	c, ok := noticeColors[n.Level]
	if !ok {
		c = color.New(color.Reset)
	}
	_, _ = c.Fprintln(cli.out, n.Message)
}

func (cli *commandLine) printBatch(b roster.Batch) {
	w := tabwriter.NewWriter(cli.out, 0, 4, 2, ' ', 0)
	_, _ = fmt.Fprintln(w, "ROW\tCODE\tNAME\tLEVEL\tSTATUS\tERRORS")
	for _, c := range b.Candidates {
		status := "valid"
		if !c.Validation.IsValid {
			status = "invalid"
		}
		_, _ = fmt.Fprintf(w, "%d\t%s\t%s\t%s\t%s\t%s\n",
			c.Row,
			c.Code(),
			c.Record[roster.FieldStudentName],
			c.Record[roster.FieldSchoolLevel],
			status,
			strings.Join(c.Validation.Errors, "; "),
		)
	}
	_ = w.Flush()

	for _, col := range b.Columns {
		if !col.Known() {
			_, _ = fmt.Fprintf(cli.out, "column %q is not a known field (read as %q)\n", col.Label, col.Field)
		}
	}
}

func (cli *commandLine) printOutcome(out roster.Outcome) {
	cli.printNotice(out.Notice)
	if len(out.Failures) == 0 {
		return
	}
	w := tabwriter.NewWriter(cli.out, 0, 4, 2, ' ', 0)
	_, _ = fmt.Fprintln(w, "ROW\tCODE\tERROR")
	for _, f := range out.Failures {
		_, _ = fmt.Fprintf(w, "%d\t%s\t%s\n", f.Row, f.StudentCode, f.Error)
	}
	_ = w.Flush()
}
