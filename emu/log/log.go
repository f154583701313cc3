// Package log provides leveled, module-gated logging for the emulator.
//
// Hardware components log through a Module value. Debug output is disabled
// per module unless explicitly enabled, so hot paths (ticked millions of
// times per second) stay silent and cheap by default.
package log

import (
	"io"

	"gopkg.in/Sirupsen/logrus.v0"
)

type Level uint8

const (
	PanicLevel Level = iota
	FatalLevel
	ErrorLevel
	WarnLevel
	InfoLevel
	DebugLevel
)

// Disable turns off all logging output.
func Disable() {
	logrus.SetOutput(io.Discard)
}

// SetOutput redirects all logging output to w.
func SetOutput(w io.Writer) {
	logrus.SetOutput(w)
}

func init() {
	logrus.SetLevel(logrus.DebugLevel)
	logrus.SetFormatter(&logrus.TextFormatter{
		FullTimestamp:   true,
		TimestampFormat: "15:04:05.000",
	})
}
