package testlog

import (
	"testing"

	"github.com/danmuck/zbxctl/internal/logging"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// Start routes the global logger into t's output for the duration of the test.
func Start(t *testing.T) {
	t.Helper()
	logging.ConfigureTests()
	prev := log.Logger
	log.Logger = zerolog.New(zerolog.ConsoleWriter{Out: zerolog.TestWriter{T: t}, NoColor: true}).
		With().Str("test", t.Name()).Logger()
	t.Cleanup(func() { log.Logger = prev })
	log.Info().Msg("test start")
}
