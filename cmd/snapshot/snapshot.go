package snapshot

import (
	"context"

	"github.com/cockroachdb/dbdelta"
	"github.com/cockroachdb/dbdelta/cmd/internal/cmdutil"
	"github.com/cockroachdb/dbdelta/report"
	"github.com/cockroachdb/errors"
	"github.com/spf13/cobra"
)

func Command() *cobra.Command {
	var logQueries bool

	cmd := &cobra.Command{
		Use:   "snapshot",
		Short: "Logs the current rows of a table or query.",
		Long:  `Snapshot reads every row of a table or query and logs them as structured records.`,
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
			opts := report.Options(0).Enable(report.LogSnapshots)
			if logQueries {
				opts = opts.Enable(report.LogQueries)
			}
			db := dbdelta.New(
				conn,
				dbdelta.WithLogger(logger),
				dbdelta.WithOptions(opts),
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
			return nil
		},
	}

	cmd.PersistentFlags().BoolVar(
		&logQueries,
		"log-queries",
		false,
		"whether to log the query run",
	)
	cmdutil.RegisterDBConnFlags(cmd)
	cmdutil.RegisterLoggerFlags(cmd)
	cmdutil.RegisterSourceFlags(cmd)
	cmdutil.RegisterMetricsFlags(cmd)
	return cmd
}
