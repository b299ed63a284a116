package telemetry

import (
	"io"
	"log/slog"
	"os"
	"time"

	"github.com/lmittmann/tint"
	"github.com/mattn/go-isatty"
)

// NewHandler returns a tint handler writing to w, colors are only
// enabled when w is a terminal.
func NewHandler(w io.Writer, verbose bool) slog.Handler {
	level := slog.LevelInfo
	if verbose {
		level = slog.LevelDebug
	}

	color := false
	if f, ok := w.(*os.File); ok {
		color = isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
	}

	return tint.NewHandler(w, &tint.Options{
		Level:      level,
		TimeFormat: time.Kitchen,
		NoColor:    !color,
	})
}

// InitSlog installs the default logger, logs always go to stderr so that
// stdout only ever carries command output.
func InitSlog(verbose bool) {
	slog.SetDefault(slog.New(NewHandler(os.Stderr, verbose)))
}
