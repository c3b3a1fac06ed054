// Package client implements the per-connection protocol core (C4/C5):
// handshake, command dispatch, and data-block framing over a byte stream
// fed in from the network, driving writes and reads through internal/store.
//
// The original core runs one OS thread per server process and funnels FDB
// completions back onto it via an async-send primitive (spec.md §5); a
// goroutine-per-connection port has no such funnel to build, because the
// calling goroutine already blocks on whatever the FDB binding is doing
// (cgo futures under the hood). So the C3 consumer role collapses into a
// direct, synchronous call out of Feed once an END op is observed — see
// DESIGN.md for the full reasoning.
package client

import (
	"bytes"
	"context"
	"fmt"
	"math/big"

	seguro "github.com/seguro-db/seguro"
	"github.com/seguro-db/seguro/internal/fragment"
	"github.com/seguro-db/seguro/internal/interfaces"
	"github.com/seguro-db/seguro/internal/patp"
	"github.com/seguro-db/seguro/internal/protocol"
	"github.com/seguro-db/seguro/internal/ring"
	"github.com/seguro-db/seguro/internal/store"
)

// ProtoState is where in the conversation a client currently sits, per
// spec.md §4.4's state table.
type ProtoState int

const (
	StateStart ProtoState = iota
	StateHSHello
	StateHSPoint
	StateHSFetchEID
	StateIdle
	StateWMHeader
	StateWMData
	StateWData
	StateRData
	StateTerminated
)

func (s ProtoState) String() string {
	switch s {
	case StateStart:
		return "START"
	case StateHSHello:
		return "HS_HELLO"
	case StateHSPoint:
		return "HS_POINT"
	case StateHSFetchEID:
		return "HS_FETCH_EID"
	case StateIdle:
		return "IDLE"
	case StateWMHeader:
		return "WM_HEADER"
	case StateWMData:
		return "WM_DATA"
	case StateWData:
		return "W_DATA"
	case StateRData:
		return "R_DATA"
	case StateTerminated:
		return "TERMINATED"
	default:
		return "UNKNOWN"
	}
}

// ReadMode governs how the next incoming bytes are interpreted.
type ReadMode int

const (
	ReadCommand ReadMode = iota
	ReadData
	ReadNone
)

// eventInProgress tracks the payload currently streaming in W_DATA/WM_DATA.
// dataOps counts how many OpData records have been pushed for it, so
// finishEvent knows how many to pop back off the queue.
type eventInProgress struct {
	id      uint64
	left    uint64
	dataOps int
	bracket int // count of "\n\n" bytes matched once left reaches 0
}

// batchState tracks an in-progress WRITE BATCH flow. sources accumulates
// each event's reassembled payload as it finishes, so the whole batch can
// be committed through one WriteEventArray call once the last event lands
// — the cross-event transaction sharing spec.md §4.3 calls for.
type batchState struct {
	active     bool
	eventsLeft uint64
	startID    uint64
	endID      uint64
	sources    []fragment.Source
}

// Out is the outbound half of a connection: Write writes bytes to the
// client, Close tears the connection down. Satisfied directly by the
// net.Conn that internal/server accepts.
type Out interface {
	Write(p []byte) (int, error)
	Close() error
}

// Client is the per-connection state machine (C4), one instance per
// accepted TCP connection.
type Client struct {
	ID uint64

	point    string
	pointNum *big.Int

	highestEID uint64

	readBuf *ring.Buffer
	opQueue *OpQueue
	ctlBuf  []byte

	protoState ProtoState
	readMode   ReadMode

	event eventInProgress
	batch batchState

	store        store.Store
	fragmentSize int

	openForReading bool
	openForWriting bool

	out Out

	log      interfaces.Logger
	observer interfaces.Observer

	terminated bool
	termReason string
}

// Options configures a new Client.
type Options struct {
	ReadBufferSize int // tx_size * tx_buffering, spec.md §6
	FragmentSize   int // F, spec.md §6 chunk_size
	Store          store.Store
	Out            Out
	Logger         interfaces.Logger
	Observer       interfaces.Observer
}

// New allocates a client in StateStart, per spec.md §3's lifecycle: "created
// on accept, destroyed only when both open_for_reading and open_for_writing
// are false".
func New(id uint64, opt Options) *Client {
	return &Client{
		ID:             id,
		readBuf:        ring.New(opt.ReadBufferSize, 1, false),
		opQueue:        NewOpQueue(64),
		ctlBuf:         make([]byte, 0, 128),
		protoState:     StateStart,
		readMode:       ReadCommand,
		store:          opt.Store,
		fragmentSize:   opt.FragmentSize,
		openForReading: true,
		openForWriting: true,
		out:            opt.Out,
		log:            opt.Logger.With("client_id", id),
		observer:       opt.Observer,
	}
}

// Log returns this client's scoped logger, prefixed with its client id and
// (once known) its ship point, for callers outside the package — chiefly
// internal/server's connection loop — that need to log in the same scope
// rather than restating the id themselves.
func (c *Client) Log() interfaces.Logger { return c.log }

// Start sends the initial greeting and transitions to HS_HELLO, per spec.md
// §4.4's handshake: "On accept the server sends SEGURO 0\n."
func (c *Client) Start() error {
	if c.protoState != StateStart {
		return c.fatalf("Start called outside START state")
	}
	if err := c.send(protocol.Greeting()); err != nil {
		return err
	}
	c.protoState = StateHSHello
	return nil
}

// Terminated reports whether the connection has been torn down.
func (c *Client) Terminated() bool { return c.terminated }

// State exposes the current protocol state, chiefly for tests.
func (c *Client) State() ProtoState { return c.protoState }

// Feed accepts a slice of bytes just read off the socket and drives the
// state machine as far forward as the available data allows. It returns
// the first error encountered; any error from Feed means the connection
// must be terminated by the caller (internal/server does this via
// Terminate).
//
// There is no NeedsPause/read_stop signal back to the caller: Feed already
// calls process() to drain the read buffer before accepting more of data,
// and returns only once every byte handed to it has been consumed (or a
// terminal error hit). The server's read loop never has an FDB completion
// to wait on in between — it just calls conn.Read again — so there is no
// externally-observable moment where pausing reads would do anything a
// synchronous drain doesn't already do.
func (c *Client) Feed(data []byte) error {
	for len(data) > 0 {
		headroom := c.readBuf.WritableContiguousHeadroom()
		if headroom == 0 {
			// Backpressure: the read buffer is full. spec.md §5 says the
			// caller should read_stop here; in the synchronous
			// goroutine-per-connection port the caller simply stops
			// feeding more until process() has drained some.
			if err := c.process(); err != nil {
				return err
			}
			headroom = c.readBuf.WritableContiguousHeadroom()
			if headroom == 0 {
				return c.fail(c.newResourceExhaustionError("read buffer full and undrainable"))
			}
		}
		n := headroom
		if n > len(data) {
			n = len(data)
		}
		slot := c.readBuf.WriteSlot()
		copy(slot[:n], data[:n])
		c.readBuf.Produce(n)
		data = data[n:]

		if err := c.process(); err != nil {
			return err
		}
	}
	return nil
}

// process drains as much of the read buffer as the current state permits.
func (c *Client) process() error {
	for {
		switch c.readMode {
		case ReadNone:
			if c.readBuf.Occupied() > 0 {
				return c.fail(c.newProtocolError("talk while read_mode = NONE"))
			}
			return nil

		case ReadCommand:
			progressed, err := c.consumeCommandChunk()
			if err != nil {
				return err
			}
			if !progressed {
				return nil
			}

		case ReadData:
			progressed, err := c.consumeDataChunk()
			if err != nil {
				return err
			}
			if !progressed {
				return nil
			}
		}
	}
}

// consumeCommandChunk consumes one contiguous slice of readable bytes
// looking for a '\n' terminator, dispatching the accumulated line when
// found. Returns progressed=false when there is nothing left to read.
func (c *Client) consumeCommandChunk() (bool, error) {
	slice := c.readBuf.ReadSlot()
	if len(slice) == 0 {
		return false, nil
	}

	idx := bytes.IndexByte(slice, '\n')
	if idx == -1 {
		c.ctlBuf = append(c.ctlBuf, slice...)
		c.readBuf.Advance(len(slice))
		if len(c.ctlBuf) > 127 {
			return false, c.fail(c.newProtocolError("command too long"))
		}
		return true, nil
	}

	c.ctlBuf = append(c.ctlBuf, slice[:idx+1]...)
	c.readBuf.Advance(idx + 1)
	line := append([]byte(nil), c.ctlBuf...)
	c.ctlBuf = c.ctlBuf[:0]

	if err := c.dispatchLine(line); err != nil {
		return false, err
	}
	return true, nil
}

// consumeDataChunk consumes payload bytes (or, once the payload is fully
// received, the "\n\n" bracket) for the event currently in progress.
func (c *Client) consumeDataChunk() (bool, error) {
	slice := c.readBuf.ReadSlot()
	if len(slice) == 0 {
		return false, nil
	}

	if c.event.left > 0 {
		n := uint64(len(slice))
		if n > c.event.left {
			n = c.event.left
		}
		payload := append([]byte(nil), slice[:n]...)
		c.opQueue.Push(Op{Kind: OpData, EventID: c.event.id, Payload: payload})
		c.event.dataOps++
		c.event.left -= n
		c.readBuf.Advance(int(n))
		return true, nil
	}

	// event.left == 0: consume the two-byte bracket terminator.
	n := 2 - c.event.bracket
	if n > len(slice) {
		n = len(slice)
	}
	for i := 0; i < n; i++ {
		if slice[i] != '\n' {
			return false, c.fail(c.newProtocolError("bad bracketing"))
		}
	}
	c.event.bracket += n
	c.readBuf.Advance(n)
	if c.event.bracket < 2 {
		return true, nil
	}
	return true, c.finishEvent()
}

// dispatchLine parses one complete control line (with its trailing '\n')
// and applies it to the state machine per spec.md §4.4's transition table.
func (c *Client) dispatchLine(raw []byte) error {
	c.log.Debugw("enter", "fn", "processControl")
	defer c.log.Debugw("exit", "fn", "processControl")
	line, err := protocol.SplitLine(raw)
	if err != nil {
		return c.fail(c.newProtocolError(err.Error()))
	}

	switch c.protoState {
	case StateHSHello:
		return c.handleHello(line)
	case StateHSPoint:
		return c.handlePoint(line)
	case StateIdle:
		return c.handleIdleCommand(line)
	case StateWMHeader:
		return c.handleBatchHeader(line)
	default:
		return c.fatalf("dispatchLine called in unexpected state %s", c.protoState)
	}
}

func (c *Client) handleHello(line string) error {
	cmd, err := protocol.Parse(line)
	if err != nil || cmd.Kind != protocol.KindHello {
		return c.fail(c.newProtocolError("malformed HELLO"))
	}
	if err := c.send(protocol.Identify()); err != nil {
		return err
	}
	c.protoState = StateHSPoint
	return nil
}

func (c *Client) handlePoint(line string) error {
	cmd, err := protocol.Parse(line)
	if err != nil || cmd.Kind != protocol.KindPoint {
		return c.fail(c.newProtocolError("malformed POINT"))
	}
	num, err := patp.Decode(cmd.Point)
	if err != nil {
		return c.fail(c.newProtocolError("invalid @p: " + err.Error()))
	}
	c.point = cmd.Point
	c.pointNum = num
	c.log = c.log.With("ship", cmd.Point)
	c.protoState = StateHSFetchEID
	return c.fetchHighestEID()
}

// fetchHighestEID performs the (synchronous, in this port) highest_eid
// lookup and emits READY, per spec.md §4.4 and the Open Question decision
// recorded in DESIGN.md (READY is always emitted).
func (c *Client) fetchHighestEID() error {
	eid, err := c.lookupHighestEID()
	if err != nil {
		return c.fail(c.newTransactionError(err))
	}
	c.highestEID = eid
	if err := c.send(protocol.Ready(c.highestEID)); err != nil {
		return err
	}
	c.protoState = StateIdle
	c.readMode = ReadCommand
	return nil
}

// lookupHighestEID derives highest_eid from the store (spec.md §6 leaves
// its persistence out of scope) by probing ids 1, 2, 3, ... until the first
// read error, returning the last id found (0 when id 1 is absent). Id 0 is
// never probed because a write needs id > highest_eid >= 0. The result is
// the true highest id only when the ship's ids run from 1 without gaps;
// events stored after a gap are not found.
func (c *Client) lookupHighestEID() (uint64, error) {
	var eid uint64
	for i := uint64(1); ; i++ {
		_, err := c.store.ReadEvent(context.Background(), i)
		if err != nil {
			break
		}
		eid = i
	}
	return eid, nil
}

func (c *Client) handleIdleCommand(line string) error {
	cmd, err := protocol.Parse(line)
	if err != nil {
		return c.fail(c.newProtocolError(err.Error()))
	}

	switch cmd.Kind {
	case protocol.KindWrite:
		if cmd.ID <= c.highestEID {
			return c.fail(c.newProtocolError("malformed WRITE: id regression"))
		}
		c.beginEvent(cmd.ID, cmd.Length)
		c.protoState = StateWData
		c.readMode = ReadData
		return nil

	case protocol.KindWriteBatch:
		if cmd.StartID <= c.highestEID {
			return c.fail(c.newProtocolError("malformed WRITE BATCH: start id regression"))
		}
		c.batch = batchState{active: true, eventsLeft: cmd.NEvents, startID: cmd.StartID, endID: cmd.EndID}
		c.protoState = StateWMHeader
		c.readMode = ReadCommand
		return nil

	case protocol.KindRead:
		return c.handleRead(cmd.StartID, cmd.Limit)

	default:
		return c.fail(c.newProtocolError("illegal command in IDLE: " + cmd.Kind.String()))
	}
}

func (c *Client) handleBatchHeader(line string) error {
	cmd, err := protocol.Parse(line)
	if err != nil || cmd.Kind != protocol.KindEvent {
		return c.fail(c.newProtocolError("malformed EVENT"))
	}
	if cmd.ID <= c.highestEID {
		return c.fail(c.newProtocolError("malformed EVENT: id regression"))
	}
	c.beginEvent(cmd.ID, cmd.Length)
	c.protoState = StateWMData
	c.readMode = ReadData
	return nil
}

func (c *Client) beginEvent(id, length uint64) {
	c.event = eventInProgress{id: id, left: length}
	c.opQueue.Push(Op{Kind: OpStart, EventID: id, TotalLength: length})
	// highest_eid tracks the highest id this connection has accepted, not
	// the highest one durably committed, so id-regression checks on the
	// next WRITE/EVENT header in a batch stay correct even though the
	// commit itself is deferred to the end of the batch (see finishEvent).
	c.highestEID = id
}

// drainEventOps pops the START, all DATA, and the END record just pushed
// for the event currently finishing, and concatenates the DATA payloads in
// arrival order. This is the FDB consumer's role in spec.md §5: "the
// consumer pulls records ... assembles fragments"; here it runs inline in
// the same goroutine that produced them.
func (c *Client) drainEventOps() []byte {
	var payload bytes.Buffer
	for i := 0; i < 1+c.event.dataOps+1; i++ {
		op, ok := c.opQueue.Pop()
		if !ok {
			break
		}
		if op.Kind == OpData {
			payload.Write(op.Payload)
		}
	}
	return payload.Bytes()
}

// finishEvent is reached once an event's payload and bracket have both been
// fully consumed: it drains this event's op records back off the queue to
// reassemble the payload, commits it to storage (immediately for a plain
// WRITE, or deferred until the whole batch lands for WRITE BATCH so the
// commit can share transactions across event boundaries per spec.md §4.3),
// and advances proto_state per spec.md §4.4's end-of-DATA transition rule.
func (c *Client) finishEvent() error {
	c.log.Debugw("enter", "fn", "commitEvent")
	defer c.log.Debugw("exit", "fn", "commitEvent")
	c.opQueue.Push(Op{Kind: OpEnd, EventID: c.event.id})

	payload := c.drainEventOps()
	src := fragment.NewInMemory(c.event.id, payload, c.fragmentSize)
	c.event = eventInProgress{}

	if c.batch.active {
		c.batch.sources = append(c.batch.sources, src)
		c.batch.eventsLeft--
		if c.batch.eventsLeft > 0 {
			c.protoState = StateWMHeader
			c.readMode = ReadCommand
			return nil
		}
		sources := c.batch.sources
		c.batch = batchState{}
		if err := c.commitSources(sources); err != nil {
			return err
		}
		c.protoState = StateIdle
		c.readMode = ReadCommand
		return nil
	}

	if err := c.commitSources([]fragment.Source{src}); err != nil {
		return err
	}
	c.protoState = StateIdle
	c.readMode = ReadCommand
	return nil
}

// commitSources writes every source through one WriteEventArray call,
// letting FDBStore share transactions across their boundaries, then
// reports one ObserveWrite per source so per-event metrics stay accurate
// regardless of how many events actually shared a commit.
func (c *Client) commitSources(sources []fragment.Source) error {
	err := c.store.WriteEventArray(context.Background(), sources)
	for _, src := range sources {
		c.observer.ObserveWrite(src.NumFragments(), src.Length(), 0, err == nil)
	}
	if err != nil {
		return c.fail(c.newTransactionError(err))
	}
	return nil
}

// handleRead serves a READ command synchronously: for the goroutine-per-
// connection port there is no benefit to deferring the range-read and
// socket writes across suspension points the way the original's R_DATA
// state does, since both the store call and the socket write already block
// this goroutine and no other goroutine is waiting on it.
func (c *Client) handleRead(startID, limit uint64) error {
	c.protoState = StateRData
	c.readMode = ReadNone

	count := uint64(0)
	for id := startID; limit == 0 || count < limit; id++ {
		payload, err := c.store.ReadEvent(context.Background(), id)
		if err != nil {
			break
		}
		if err := c.send(protocol.EventHeader(id, uint64(len(payload)))); err != nil {
			return err
		}
		if err := c.sendRaw(payload); err != nil {
			return err
		}
		if err := c.sendRaw([]byte(protocol.Bracket)); err != nil {
			return err
		}
		count++
		frags := fragment.NewInMemory(id, payload, c.fragmentSize).NumFragments()
		c.observer.ObserveRead(frags, uint64(len(payload)), true)
	}

	c.protoState = StateIdle
	c.readMode = ReadCommand
	return nil
}

// newProtocolError builds a ship-scoped protocol-violation error, per
// spec.md §7's error-kind table.
func (c *Client) newProtocolError(msg string) error {
	return seguro.NewProtocolError("client", c.point, msg)
}

// newTransactionError wraps a storage-layer error as ErrCodeTransaction,
// per spec.md §7 ("Transient FDB errors ... surface ... as TransactionError").
func (c *Client) newTransactionError(inner error) error {
	return &seguro.Error{Op: "client", ShipPoint: c.point, Code: seguro.ErrCodeTransaction, Msg: inner.Error(), Inner: inner}
}

// newResourceExhaustionError reports an unrecoverable backpressure failure.
func (c *Client) newResourceExhaustionError(msg string) error {
	return &seguro.Error{Op: "client", ShipPoint: c.point, Code: seguro.ErrCodeResourceExhaustion, Msg: msg}
}

func (c *Client) send(s string) error { return c.sendRaw([]byte(s)) }

func (c *Client) sendRaw(b []byte) error {
	if _, err := c.out.Write(b); err != nil {
		return c.fail(c.newTransactionError(err))
	}
	return nil
}

// fail terminates the connection and returns err so callers can propagate
// it without re-wrapping. Only genuine protocol violations are tallied as
// such; transaction/resource-exhaustion failures still terminate but are
// not mis-recorded as protocol violations.
func (c *Client) fail(err error) error {
	if seguro.IsCode(err, seguro.ErrCodeProtocolViolation) {
		c.observer.ObserveProtocolViolation()
	}
	c.terminate(err.Error())
	return err
}

func (c *Client) fatalf(format string, args ...any) error {
	err := fmt.Errorf("client: fatal: "+format, args...)
	c.log.Errorf("%v", err)
	c.terminate(err.Error())
	return err
}

// terminate implements spec.md §4.5's split-close semantics: shutdown if
// writable, close if readable; the client is only considered fully freed
// once both flags clear, which this synchronous port collapses into one
// call since there is no separate read/write callback pair to race.
func (c *Client) terminate(reason string) {
	if c.terminated {
		return
	}
	c.terminated = true
	c.termReason = reason
	c.protoState = StateTerminated
	c.openForReading = false
	c.openForWriting = false
	c.log.Warnf("terminated: %s", reason)
	c.observer.ObserveClientTerminated()
	_ = c.out.Close()
}

// TermReason returns the reason the connection was terminated, if any.
func (c *Client) TermReason() string { return c.termReason }
