package protocol

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestSplitLineHappyPath(t *testing.T) {
	line, err := SplitLine([]byte("HELLO 0\n"))
	require.NoError(t, err)
	require.Equal(t, "HELLO 0", line)
}

func TestSplitLineRejectsTooLong(t *testing.T) {
	raw := make([]byte, 128)
	for i := range raw {
		raw[i] = 'a'
	}
	raw[127] = '\n'
	_, err := SplitLine(raw)
	require.Error(t, err)
}

func TestSplitLineAcceptsMaxLength(t *testing.T) {
	raw := make([]byte, 127)
	for i := range raw {
		raw[i] = 'a'
	}
	raw[126] = '\n'
	_, err := SplitLine(raw)
	require.NoError(t, err)
}

func TestSplitLineRejectsMissingTerminator(t *testing.T) {
	_, err := SplitLine([]byte("HELLO 0"))
	require.Error(t, err)
}

func TestParseHello(t *testing.T) {
	cmd, err := Parse("HELLO 0")
	require.NoError(t, err)
	require.Equal(t, KindHello, cmd.Kind)
}

func TestParseHelloRejectsWrongVersion(t *testing.T) {
	_, err := Parse("HELLO 1")
	require.Error(t, err)
}

func TestParsePoint(t *testing.T) {
	cmd, err := Parse("POINT ~zod")
	require.NoError(t, err)
	require.Equal(t, KindPoint, cmd.Kind)
	require.Equal(t, "~zod", cmd.Point)
}

func TestParsePointRejectsMissingTilde(t *testing.T) {
	_, err := Parse("POINT zod")
	require.Error(t, err)
}

func TestParseWrite(t *testing.T) {
	// Scenario B from spec.md §8.
	cmd, err := Parse("WRITE 1 5")
	require.NoError(t, err)
	require.Equal(t, KindWrite, cmd.Kind)
	require.Equal(t, uint64(1), cmd.ID)
	require.Equal(t, uint64(5), cmd.Length)
}

func TestParseWriteBatch(t *testing.T) {
	// Scenario D.
	cmd, err := Parse("WRITE BATCH 2 5 7")
	require.NoError(t, err)
	require.Equal(t, KindWriteBatch, cmd.Kind)
	require.Equal(t, uint64(2), cmd.NEvents)
	require.Equal(t, uint64(5), cmd.StartID)
	require.Equal(t, uint64(7), cmd.EndID)
}

func TestParseWriteBatchRejectsBadRange(t *testing.T) {
	_, err := Parse("WRITE BATCH 2 7 5")
	require.Error(t, err)
}

func TestParseEvent(t *testing.T) {
	cmd, err := Parse("EVENT 5 1")
	require.NoError(t, err)
	require.Equal(t, KindEvent, cmd.Kind)
	require.Equal(t, uint64(5), cmd.ID)
	require.Equal(t, uint64(1), cmd.Length)
}

func TestParseRead(t *testing.T) {
	cmd, err := Parse("READ 0 10")
	require.NoError(t, err)
	require.Equal(t, KindRead, cmd.Kind)
	require.Equal(t, uint64(0), cmd.StartID)
	require.Equal(t, uint64(10), cmd.Limit)
}

func TestParseRejectsUnknownCommand(t *testing.T) {
	_, err := Parse("DANCE")
	require.Error(t, err)
}

func TestParseRejectsMalformedArity(t *testing.T) {
	cases := []string{
		"WRITE 1",
		"WRITE 1 2 3",
		"EVENT 1",
		"READ 1",
		"WRITE BATCH 1 2",
	}
	for _, c := range cases {
		_, err := Parse(c)
		require.Error(t, err, "expected error for %q", c)
	}
}

func TestResponseFormatting(t *testing.T) {
	require.Equal(t, "SEGURO 0\n", Greeting())
	require.Equal(t, "IDENTIFY 0\n", Identify())
	require.Equal(t, "READY 0\n", Ready(0))
	require.Equal(t, "READY 42\n", Ready(42))
	require.Equal(t, "EVENT 5 1\n", EventHeader(5, 1))
}
