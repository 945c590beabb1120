// Package logging wires the process-wide slog handlers: a colored console
// handler for humans fanned out with a JSON handler for machines.
package logging

import (
	"context"
	"encoding/json"
	"io"
	"log"
	"log/slog"

	"github.com/fatih/color"
	slogmulti "github.com/samber/slog-multi"
)

type ConsoleHandlerOpts struct {
	SlogOpts slog.HandlerOptions
}

type ConsoleHandler struct {
	slog.Handler
	l *log.Logger
}

func (ch *ConsoleHandler) Handle(ctx context.Context, r slog.Record) error {
	level := r.Level.String() + ":"
	switch r.Level {
	case slog.LevelDebug:
		level = color.WhiteString(level)
	case slog.LevelInfo:
		level = color.GreenString(level)
	case slog.LevelWarn:
		level = color.YellowString(level)
	case slog.LevelError:
		level = color.RedString(level)
	default:
		level = color.HiWhiteString(level)
	}
	timeStr := r.Time.Format("[15:04:05]")
	message := color.HiWhiteString(r.Message)
	if r.NumAttrs() == 0 {
		ch.l.Println(timeStr, level, message)
		return nil
	}
	fields := make(map[string]interface{}, r.NumAttrs())
	r.Attrs(func(a slog.Attr) bool {
		fields[a.Key] = a.Value.Any()
		return true
	})
	j, err := json.Marshal(fields)
	if err != nil {
		return err
	}
	ch.l.Println(timeStr, level, message, color.WhiteString(string(j)))
	return nil
}

func NewConsoleHandler(out io.Writer, opts ConsoleHandlerOpts) *ConsoleHandler {
	return &ConsoleHandler{
		Handler: slog.NewTextHandler(out, &opts.SlogOpts),
		l:       log.New(out, "", 0),
	}
}

// NewLogger fans a console handler for stdout out with a JSON handler
// aimed at jsonOut. Pass io.Discard to drop the JSON stream.
func NewLogger(consoleOut io.Writer, jsonOut io.Writer, opts *slog.HandlerOptions) *slog.Logger {
	if opts == nil {
		opts = &slog.HandlerOptions{}
	}
	return slog.New(slogmulti.Fanout(
		NewConsoleHandler(consoleOut, ConsoleHandlerOpts{SlogOpts: *opts}),
		slog.NewJSONHandler(jsonOut, opts),
	))
}
