package logging

import (
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func newObservedLogger() (*Logger, *observer.ObservedLogs) {
	core, logs := observer.New(zapcore.DebugLevel)
	return fromZap(zap.New(core)), logs
}

func TestNewLoggerNeverReturnsNil(t *testing.T) {
	require.NotNil(t, NewLogger(nil))
	require.NotNil(t, NewLogger(&Config{Development: true}))
}

func TestLoggerLevelMethods(t *testing.T) {
	l, logs := newObservedLogger()

	l.Debugf("debug %s", "msg")
	l.Infof("info %s", "msg")
	l.Warnf("warn %s", "msg")
	l.Errorf("error %s", "msg")

	require.Equal(t, 4, logs.Len())
	entries := logs.All()
	require.Equal(t, zapcore.DebugLevel, entries[0].Level)
	require.Equal(t, "debug msg", entries[0].Message)
	require.Equal(t, zapcore.InfoLevel, entries[1].Level)
	require.Equal(t, zapcore.WarnLevel, entries[2].Level)
	require.Equal(t, zapcore.ErrorLevel, entries[3].Level)
}

func TestLoggerWithScopesFields(t *testing.T) {
	l, logs := newObservedLogger()

	scoped := l.With("client_id", 7, "ship", "~zod")
	scoped.Infof("handshake complete")

	require.Equal(t, 1, logs.Len())
	fields := logs.All()[0].ContextMap()
	require.Equal(t, int64(7), fields["client_id"])
	require.Equal(t, "~zod", fields["ship"])
}

func TestDefaultAndSetDefault(t *testing.T) {
	l, logs := newObservedLogger()
	SetDefault(l)
	defer SetDefault(NewLogger(nil))

	require.Same(t, l, Default())

	Infof("via package-level helper")
	require.Equal(t, 1, logs.Len())
}
