// Package logging provides the injected logging sink used by the acceptor
// and the default pipeline. Nothing in the pipeline's control flow depends
// on a log call having happened; logging is always a side channel.
package logging

import (
	"io"

	"github.com/sirupsen/logrus"
)

// Logger is the subset of logrus.FieldLogger the pipeline and acceptor rely
// on. Any *logrus.Logger or *logrus.Entry satisfies it, and so does a
// caller's own adapter.
type Logger = logrus.FieldLogger

// NewNop returns a Logger that discards everything, so a host program that
// supplies nothing still gets a working logger instead of a nil-check
// landmine.
func NewNop() Logger {
	l := logrus.New()
	l.SetOutput(io.Discard)
	return l
}

// NewDefault returns a Logger writing structured text to w at the given
// level, suitable for cmd/forwardproxy's default.
func NewDefault(w io.Writer, level logrus.Level) Logger {
	l := logrus.New()
	l.SetOutput(w)
	l.SetLevel(level)
	l.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	return l
}
