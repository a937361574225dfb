package logsvc

import (
	"io"
	"os"
	"time"

	"github.com/rs/zerolog"

	"github.com/trezcool/davomat/core"
	"github.com/trezcool/davomat/core/user"
)

// ZeroLogger writes structured log lines with zerolog.
type ZeroLogger struct {
	zl zerolog.Logger
}

var _ core.Logger = (*ZeroLogger)(nil)

func NewZeroLogger(conf core.LogConfig, out io.Writer) *ZeroLogger {
	if out == nil {
		out = os.Stdout
	}
	if conf.Pretty {
		out = zerolog.ConsoleWriter{Out: out, TimeFormat: time.RFC3339}
	}

	level, err := zerolog.ParseLevel(conf.Level)
	if err != nil || conf.Level == "" {
		level = zerolog.InfoLevel
	}
	return &ZeroLogger{zl: zerolog.New(out).Level(level).With().Timestamp().Logger()}
}

// expected fmt: msg | error, map[string]interface{}, user.User
func (l ZeroLogger) write(ev *zerolog.Event, msg string, args []interface{}) {
	if ev == nil {
		return // level disabled
	}
	for _, arg := range args {
		switch a := arg.(type) {
		case error:
			ev = ev.Err(a)
		case map[string]interface{}:
			ev = ev.Fields(a)
		case user.User:
			ev = ev.Str("user_id", a.ID).Str("username", a.Username)
		default:
			ev = ev.Interface("extra", a)
		}
	}
	ev.Msg(msg)
}

func (l ZeroLogger) Debug(msg string, args ...interface{}) { l.write(l.zl.Debug(), msg, args) }
func (l ZeroLogger) Info(msg string, args ...interface{})  { l.write(l.zl.Info(), msg, args) }
func (l ZeroLogger) Warn(msg string, args ...interface{})  { l.write(l.zl.Warn(), msg, args) }
func (l ZeroLogger) Error(msg string, args ...interface{}) { l.write(l.zl.Error(), msg, args) }

// Fatal logs msg and exits the process.
func (l ZeroLogger) Fatal(msg string, args ...interface{}) { l.write(l.zl.Fatal(), msg, args) }
