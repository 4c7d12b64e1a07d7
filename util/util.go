package util

import (
	"os"

	"github.com/sirupsen/logrus"
)

var Debug uint64 = 0

// Logger receives all output of DPrintf and the warnings of the command
// layer.
var Logger = newLogger()

func newLogger() *logrus.Logger {
	l := logrus.New()
	l.SetOutput(os.Stderr)
	l.SetLevel(logrus.InfoLevel)
	return l
}

// SetDebug sets the DPrintf threshold. Any non-zero level also lowers the
// logger to debug so that traces are emitted.
func SetDebug(level uint64) {
	Debug = level
	if level > 0 {
		Logger.SetLevel(logrus.DebugLevel)
	} else {
		Logger.SetLevel(logrus.InfoLevel)
	}
}

func DPrintf(level uint64, format string, a ...interface{}) {
	if level <= Debug {
		Logger.WithField("dlevel", level).Debugf(format, a...)
	}
}

func RoundUp(n uint64, sz uint64) uint64 {
	return (n + sz - 1) / sz
}

func Min(n uint64, m uint64) uint64 {
	if n < m {
		return n
	} else {
		return m
	}
}

// SumOverflows reports whether a+b overflows a uint64.
func SumOverflows(a uint64, b uint64) bool {
	return a+b < a
}

func CloneByteSlice(s []byte) []byte {
	s2 := make([]byte, len(s))
	copy(s2, s)
	return s2
}
