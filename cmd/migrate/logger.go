package migrate

import (
	"fmt"
	"io"
	"os"

	"github.com/golang-migrate/migrate/v4"
)

var _ migrate.Logger = (*consoleLogger)(nil)

type consoleLogger struct {
	out     io.Writer
	prefix  string
	verbose bool
}

func (l *consoleLogger) Printf(format string, v ...interface{}) {
	out := l.out
	if out == nil {
		out = os.Stdout
	}
	fmt.Fprintf(out, l.prefix+format, v...)
}

func (l *consoleLogger) Verbose() bool {
	return l.verbose
}
