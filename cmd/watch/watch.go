package watch

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"strings"

	"github.com/cockroachdb/dbdelta"
	"github.com/cockroachdb/dbdelta/cmd/internal/cmdutil"
	"github.com/cockroachdb/dbdelta/report"
	"github.com/cockroachdb/errors"
	"github.com/spf13/cobra"
)

func Command() *cobra.Command {
	var expectUnchanged bool

	cmd := &cobra.Command{
		Use:   "watch [flags] -- command [args...]",
		Short: "Logs how a command changes a table or query.",
		Long: `Watch snapshots a table or query, runs a command and then logs the rows the command deleted and inserted.
With --expect-unchanged, watch fails if the command changed any row.`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			logger, err := cmdutil.Logger()
			if err != nil {
				return err
			}
			defer cmdutil.RunMetricsServer(logger)()
			src, err := cmdutil.Source()
			if err != nil {
				return err
			}

			ctx := context.Background()
			conn, err := cmdutil.LoadDBConn(ctx, logger)
			if err != nil {
				return err
			}
			db := dbdelta.New(
				conn,
				dbdelta.WithLogger(logger),
				dbdelta.WithOptions(report.DefaultOptions().Enable(report.LogAssertions, report.LogSnapshots)),
				dbdelta.WithReporter(report.MetricsReporter{}),
				dbdelta.WithCloseQuerier(true),
			)
			defer func() {
				if err := db.Close(ctx); err != nil {
					logger.Err(err).Msgf("error closing connection")
				}
			}()

			if _, err := db.TakeSnapshot(ctx, src); err != nil {
				return errors.Wrapf(err, "error taking snapshot of %s", src.Name())
			}

			c := exec.CommandContext(ctx, args[0], args[1:]...)
			c.Stdin, c.Stdout, c.Stderr = os.Stdin, os.Stdout, os.Stderr
			db.Status(fmt.Sprintf("running command %q", strings.Join(args, " ")), nil)
			runErr := c.Run()
			if runErr != nil {
				db.Status("command failed", runErr)
			}

			if expectUnchanged {
				res, err := db.AssertNoChanges(ctx, src)
				if err != nil {
					return errors.CombineErrors(err, runErr)
				}
				if !res.Passed() {
					return errors.CombineErrors(errors.Newf("%s", res.String()), runErr)
				}
				return runErr
			}
			if _, err := db.ComputeDelta(ctx, src); err != nil {
				return errors.CombineErrors(err, runErr)
			}
			return runErr
		},
	}

	cmd.PersistentFlags().BoolVar(
		&expectUnchanged,
		"expect-unchanged",
		false,
		"fail if the command changed any row",
	)
	cmdutil.RegisterDBConnFlags(cmd)
	cmdutil.RegisterLoggerFlags(cmd)
	cmdutil.RegisterSourceFlags(cmd)
	cmdutil.RegisterMetricsFlags(cmd)
	return cmd
}
