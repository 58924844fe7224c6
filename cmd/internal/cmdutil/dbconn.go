package cmdutil

import (
	"context"
	"time"

	"github.com/cockroachdb/dbdelta/dbconn"
	"github.com/cockroachdb/dbdelta/retry"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
)

type dbConnConfig struct {
	connStr       string
	retrySettings retry.Settings
}

var dbConnCfg = dbConnConfig{
	retrySettings: retry.Settings{
		InitialBackoff: 250 * time.Millisecond,
		Multiplier:     2,
		MaxBackoff:     5 * time.Second,
		MaxRetries:     5,
	},
}

func RegisterDBConnFlags(cmd *cobra.Command) {
	cmd.PersistentFlags().StringVar(
		&dbConnCfg.connStr,
		"conn",
		"",
		"URL of the database (postgres://, mysql:// or sqlite://path)",
	)
	cmd.PersistentFlags().IntVar(
		&dbConnCfg.retrySettings.MaxRetries,
		"connect-max-retries",
		dbConnCfg.retrySettings.MaxRetries,
		"maximum number of connection attempts",
	)
	cmd.PersistentFlags().DurationVar(
		&dbConnCfg.retrySettings.InitialBackoff,
		"connect-initial-backoff",
		dbConnCfg.retrySettings.InitialBackoff,
		"amount of time to wait after the first failed connection attempt",
	)
	cmd.PersistentFlags().DurationVar(
		&dbConnCfg.retrySettings.MaxBackoff,
		"connect-max-backoff",
		dbConnCfg.retrySettings.MaxBackoff,
		"maximum amount of time to wait between connection attempts",
	)
	if err := cmd.MarkPersistentFlagRequired("conn"); err != nil {
		panic(err)
	}
}

// LoadDBConn connects to the database given by --conn, retrying with
// backoff.
func LoadDBConn(ctx context.Context, logger zerolog.Logger) (dbconn.Conn, error) {
	r, err := retry.NewRetry(dbConnCfg.retrySettings)
	if err != nil {
		return nil, err
	}
	var conn dbconn.Conn
	if err := r.Do(ctx, func() error {
		conn, err = dbconn.Connect(ctx, "", dbConnCfg.connStr)
		return err
	}, func(err error) {
		logger.Warn().Err(err).Int("attempt", r.Iteration).Msgf("error connecting, retrying")
	}); err != nil {
		return nil, err
	}
	logConnected(logger, conn)
	return conn, nil
}

func logConnected(logger zerolog.Logger, conn dbconn.Conn) {
	ev := logger.Info().
		Str("id", string(conn.ID())).
		Stringer("dialect", conn.Dialect())
	if pg, ok := conn.(*dbconn.PGConn); ok {
		ev = ev.
			Bool("cockroach", pg.IsCockroach()).
			Str("version", pg.Version())
	}
	ev.Msgf("connected")
}
