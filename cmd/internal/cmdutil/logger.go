package cmdutil

import (
	"io"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
	"gopkg.in/natefinch/lumberjack.v2"
)

type loggerConfig struct {
	level     string
	file      string
	maxSizeMB int
}

var loggerConfigInst = loggerConfig{
	level:     zerolog.InfoLevel.String(),
	maxSizeMB: 100,
}

func RegisterLoggerFlags(cmd *cobra.Command) {
	cmd.PersistentFlags().StringVar(
		&loggerConfigInst.level,
		"level",
		loggerConfigInst.level,
		"what level to log at - maps to zerolog.Level",
	)
	cmd.PersistentFlags().StringVar(
		&loggerConfigInst.file,
		"log-file",
		loggerConfigInst.file,
		"if set, logs JSON to this file instead of the console",
	)
	cmd.PersistentFlags().IntVar(
		&loggerConfigInst.maxSizeMB,
		"log-file-max-size",
		loggerConfigInst.maxSizeMB,
		"size in megabytes at which the log file is rotated",
	)
}

func Logger() (zerolog.Logger, error) {
	var w io.Writer = zerolog.NewConsoleWriter()
	if loggerConfigInst.file != "" {
		w = &lumberjack.Logger{
			Filename: loggerConfigInst.file,
			MaxSize:  loggerConfigInst.maxSizeMB,
		}
	}
	logger := zerolog.New(w).With().Timestamp().Logger()
	lvl, err := zerolog.ParseLevel(loggerConfigInst.level)
	if err != nil {
		return logger, err
	}
	return logger.Level(lvl), err
}
