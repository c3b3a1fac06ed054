package client

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/seguro-db/seguro/internal/interfaces"
	"github.com/seguro-db/seguro/internal/store"
)

// fakeOut is an in-memory client.Out, capturing every byte the state
// machine writes back and whether Close was called.
type fakeOut struct {
	bytes.Buffer
	closed bool
}

func (f *fakeOut) Close() error {
	f.closed = true
	return nil
}

type noopLogger struct{}

func (noopLogger) Debugf(string, ...any)        {}
func (noopLogger) Infof(string, ...any)         {}
func (noopLogger) Warnf(string, ...any)         {}
func (noopLogger) Errorf(string, ...any)        {}
func (noopLogger) Debugw(string, ...any)        {}
func (noopLogger) With(...any) interfaces.Logger { return noopLogger{} }

type noopObserver struct{}

func (noopObserver) ObserveWrite(int, uint64, uint64, bool) {}
func (noopObserver) ObserveRead(int, uint64, bool)          {}
func (noopObserver) ObserveClientAccepted()                 {}
func (noopObserver) ObserveClientTerminated()               {}
func (noopObserver) ObserveProtocolViolation()              {}

var (
	_ interfaces.Logger   = noopLogger{}
	_ interfaces.Observer = noopObserver{}
)

func newTestClient(t *testing.T, st store.Store) (*Client, *fakeOut) {
	t.Helper()
	out := &fakeOut{}
	c := New(1, Options{
		ReadBufferSize: 4096,
		FragmentSize:   4,
		Store:          st,
		Out:            out,
		Logger:         noopLogger{},
		Observer:       noopObserver{},
	})
	require.NoError(t, c.Start())
	return c, out
}

func handshake(t *testing.T, c *Client, out *fakeOut) {
	t.Helper()
	require.NoError(t, c.Feed([]byte("HELLO 0\nPOINT ~zod\n")))
	require.False(t, c.Terminated())
	require.Equal(t, StateIdle, c.State())
}

// Scenario A: handshake.
func TestScenarioA_Handshake(t *testing.T) {
	st := store.NewMemStore(10000)
	c, out := newTestClient(t, st)

	handshake(t, c, out)
	require.Equal(t, "SEGURO 0\nIDENTIFY 0\nREADY 0\n", out.String())
	require.Equal(t, ReadCommand, c.readMode)
}

// Scenario B: single write.
func TestScenarioB_SingleWrite(t *testing.T) {
	st := store.NewMemStore(10000)
	c, out := newTestClient(t, st)
	handshake(t, c, out)

	require.NoError(t, c.Feed([]byte("WRITE 1 5\nHELLO\n\n")))
	require.False(t, c.Terminated())
	require.Equal(t, StateIdle, c.State())
	require.Equal(t, uint64(1), c.highestEID)

	got, err := st.ReadEvent(nil, 1)
	require.NoError(t, err)
	require.Equal(t, "HELLO", string(got))
}

// Scenario C: fragmented write (F=4, payload "ABCDEFGHIJK").
func TestScenarioC_FragmentedWrite(t *testing.T) {
	st := store.NewMemStore(4)
	c, out := newTestClient(t, st)
	handshake(t, c, out)

	require.NoError(t, c.Feed([]byte("WRITE 1 11\nABCDEFGHIJK\n\n")))
	require.False(t, c.Terminated())
	require.Equal(t, uint64(1), c.highestEID)

	got, err := st.ReadEvent(nil, 1)
	require.NoError(t, err)
	require.Equal(t, "ABCDEFGHIJK", string(got))
}

// Scenario D: batched write.
func TestScenarioD_BatchedWrite(t *testing.T) {
	st := store.NewMemStore(10000)
	c, out := newTestClient(t, st)
	handshake(t, c, out)

	require.NoError(t, c.Feed([]byte("WRITE BATCH 2 5 7\n")))
	require.Equal(t, StateWMHeader, c.State())

	require.NoError(t, c.Feed([]byte("EVENT 5 1\nA\n\n")))
	require.Equal(t, StateWMHeader, c.State())
	require.Equal(t, uint64(5), c.highestEID)

	require.NoError(t, c.Feed([]byte("EVENT 6 1\nB\n\n")))
	require.Equal(t, StateIdle, c.State())
	require.Equal(t, uint64(6), c.highestEID)
	require.False(t, c.Terminated())

	a, err := st.ReadEvent(nil, 5)
	require.NoError(t, err)
	require.Equal(t, "A", string(a))
	b, err := st.ReadEvent(nil, 6)
	require.NoError(t, err)
	require.Equal(t, "B", string(b))
}

// Scenario E: id regression.
func TestScenarioE_IDRegression(t *testing.T) {
	st := store.NewMemStore(10000)
	c, out := newTestClient(t, st)
	handshake(t, c, out)

	require.NoError(t, c.Feed([]byte("WRITE 1 5\nHELLO\n\n")))
	require.Equal(t, uint64(1), c.highestEID)

	err := c.Feed([]byte("WRITE 1 1\nX\n\n"))
	require.Error(t, err)
	require.True(t, c.Terminated())

	_, readErr := st.ReadEvent(nil, 2)
	require.Error(t, readErr)
}

// Scenario F: bad bracketing.
func TestScenarioF_BadBracketing(t *testing.T) {
	st := store.NewMemStore(10000)
	c, out := newTestClient(t, st)
	handshake(t, c, out)

	err := c.Feed([]byte("WRITE 1 3\nABCX\n"))
	require.Error(t, err)
	require.True(t, c.Terminated())

	_, readErr := st.ReadEvent(nil, 1)
	require.Error(t, readErr, "partial fragments must not be committed")
}

func TestReadServesStoredEvents(t *testing.T) {
	st := store.NewMemStore(10000)
	c, out := newTestClient(t, st)
	handshake(t, c, out)

	require.NoError(t, c.Feed([]byte("WRITE 1 5\nHELLO\n\n")))
	out.Reset()

	require.NoError(t, c.Feed([]byte("READ 1 1\n")))
	require.Equal(t, "EVENT 1 5\nHELLO\n\n", out.String())
	require.Equal(t, StateIdle, c.State())
}

func TestHelloRejectsWrongVersion(t *testing.T) {
	st := store.NewMemStore(10000)
	c, out := newTestClient(t, st)

	err := c.Feed([]byte("HELLO 1\n"))
	require.Error(t, err)
	require.True(t, c.Terminated())
	require.True(t, out.closed)
}

func TestCommandTooLongTerminates(t *testing.T) {
	st := store.NewMemStore(10000)
	c, out := newTestClient(t, st)

	line := bytes.Repeat([]byte("a"), 200)
	line = append(line, '\n')
	err := c.Feed(line)
	require.Error(t, err)
	require.True(t, c.Terminated())
	_ = out
}
