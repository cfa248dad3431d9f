package z3y

import (
	"os"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// InitLogger installs a console-formatted zerolog.Logger as the package's
// default logger, tagged with the "z3y" component field so its lines are
// distinguishable in a host process that also logs from elsewhere. Hosts
// that already configured zerolog's global log.Logger themselves can skip
// calling this and the loader's logging will use whatever log.Logger
// already is.
func InitLogger(level zerolog.Level) zerolog.Logger {
	output := zerolog.ConsoleWriter{
		Out:        os.Stderr,
		TimeFormat: time.RFC3339,
	}
	logger := zerolog.New(output).Level(level).With().Timestamp().Str("component", "z3y").Logger()
	log.Logger = logger
	return logger
}
