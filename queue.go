package mysql

import (
	"context"
	"errors"
	"sync"
)

// queueState tracks the three states of §4.5: idle (nothing queued,
// drain loop parked), active (drain loop running), disposed (closed,
// every future submit fails immediately).
type queueState int32

const (
	queueIdle queueState = iota
	queueActive
	queueDisposed
)

// responseChanCapacity is the bounded multicast capacity of §4.5;
// exceeding it is a fatal overflow since a single MySQL connection
// cannot drop a frame once it has been read off the wire.
const responseChanCapacity = 512

var errResponseOverflow = errors.New("mysql: response channel overflow")

// exchange is one (request-producer, response-handler, result-sink)
// triple (§4.5). write emits the client message(s); decode turns one
// assembled payload into a ServerMessage using whatever decodeContext
// the caller is driving; isTerminal reports whether a message ends the
// exchange, used by the discard-on-cancel drain to find the frame
// boundary without interpreting message contents.
type exchange struct {
	ctx        context.Context
	write      func(pc *packetConn) error
	decode     func(payload []byte) (ServerMessage, error)
	isTerminal func(ServerMessage) bool

	// onLocalInfile, when set, intercepts a localInfileRequestMessage
	// before it reaches the messages channel: it resolves the requested
	// filename and the drain loop writes the resulting chunk stream
	// itself, since that write must happen on the same single-writer
	// goroutine as everything else on this connection (§4.6).
	onLocalInfile func(filename string) (data []byte, err error)
	localInfileBufSz int

	// writeOnly marks an exchange that sends a command with no response
	// at all (COM_STMT_CLOSE, COM_STMT_SEND_LONG_DATA): the drain loop
	// performs the write and finishes immediately rather than reading a
	// packet that will never arrive.
	writeOnly bool

	messages chan ServerMessage
	done     chan struct{}
	err      error
}

func newExchange(ctx context.Context, write func(pc *packetConn) error, decode func([]byte) (ServerMessage, error), isTerminal func(ServerMessage) bool) *exchange {
	if ctx == nil {
		ctx = context.Background()
	}
	return &exchange{
		ctx:        ctx,
		write:      write,
		decode:     decode,
		isTerminal: isTerminal,
		messages:   make(chan ServerMessage, responseChanCapacity),
		done:       make(chan struct{}),
	}
}

// wait blocks until the exchange's drain loop pass has finished. Callers
// that stream messages (statement execution) read from ex.messages
// concurrently with calling wait; messages is closed once draining ends.
func (e *exchange) wait() error {
	<-e.done
	return e.err
}

func (e *exchange) finish(err error) {
	e.err = err
	close(e.messages)
	close(e.done)
}

// queue is the per-connection request queue & exchange core (§4.5). All
// actual wire I/O happens on the single drain goroutine started by
// newQueue, matching the single-reader/single-writer invariant
// packetConn documents.
type queue struct {
	pc *packetConn

	mu    sync.Mutex
	state queueState

	submit chan *exchange
	quit   chan struct{}
	closed chan struct{}
}

func newQueue(pc *packetConn) *queue {
	q := &queue{
		pc:     pc,
		submit: make(chan *exchange, 64),
		quit:   make(chan struct{}),
		closed: make(chan struct{}),
	}
	go q.drain()
	return q
}

// submitExchange enqueues ex; if the queue is disposed the result sink
// fails immediately per §4.5 step 1.
func (q *queue) submitExchange(ex *exchange) {
	q.mu.Lock()
	if q.state == queueDisposed {
		q.mu.Unlock()
		ex.finish(&ConnectionClosedError{Expected: true})
		return
	}
	if q.state == queueIdle {
		q.state = queueActive
	}
	q.mu.Unlock()

	select {
	case q.submit <- ex:
	case <-q.closed:
		ex.finish(&ConnectionClosedError{Expected: true})
	}
}

// drain is the connection's event-loop goroutine: it pops one exchange
// at a time, runs it to completion (or to a cancellation-driven discard
// of its frame boundary), and only then starts the next — "cancellation
// no-stall" per §8.
func (q *queue) drain() {
	defer close(q.closed)
	for {
		select {
		case ex := <-q.submit:
			q.runExchange(ex)
		case <-q.quit:
			q.drainRemainingOnShutdown()
			return
		}
	}
}

func (q *queue) runExchange(ex *exchange) {
	// Every independent command exchange starts a fresh sequence at 0
	// (§3/§4.1); the counter otherwise keeps climbing from whatever the
	// previous exchange (or the login burst) left it at, and the server
	// answers the first envelope with "Packets out of order" the moment
	// it diverges from what the server expects.
	q.pc.resetSequence()
	if err := ex.write(q.pc); err != nil {
		ex.finish(err)
		return
	}
	if ex.writeOnly {
		ex.finish(nil)
		return
	}

	cancelled := false
	// localInfileErr holds a permission/path error from resolving a
	// LOCAL INFILE request. The server still answers an empty data
	// stream with an ordinary OK (not an ERROR), so that terminal frame
	// must still be read off the wire to keep the connection usable
	// (§4.6 "LOCAL INFILE safety"); localInfileErr overrides it rather
	// than letting it finish the exchange as a success.
	var localInfileErr error
	for {
		if !cancelled {
			select {
			case <-ex.ctx.Done():
				cancelled = true
			default:
			}
		}

		payload, err := q.pc.readPacket()
		if err != nil {
			ex.finish(err)
			return
		}
		msg, err := ex.decode(payload)
		if err != nil {
			ex.finish(err)
			return
		}

		if req, ok := msg.(*localInfileRequestMessage); ok && !cancelled {
			var data []byte
			if ex.onLocalInfile != nil {
				data, localInfileErr = ex.onLocalInfile(req.filename)
			}
			if err := writeLocalInfileChunks(q.pc, data, ex.localInfileBufSz); err != nil {
				ex.finish(err)
				return
			}
			continue
		}

		terminal := ex.isTerminal(msg)
		if !cancelled && localInfileErr == nil {
			select {
			case ex.messages <- msg:
			default:
				ex.finish(errResponseOverflow)
				return
			}
		}
		if terminal {
			switch {
			case cancelled:
				ex.finish(ex.ctx.Err())
			case localInfileErr != nil:
				ex.finish(localInfileErr)
			default:
				ex.finish(nil)
			}
			return
		}
	}
}

// close implements the §4.5 shutdown sequence: mark the queue disposed,
// emit QUIT, then wait for the drain loop to stop; exchanges still
// queued at that point fail with "connection closed".
func (q *queue) close() error {
	q.mu.Lock()
	if q.state == queueDisposed {
		q.mu.Unlock()
		return nil
	}
	q.state = queueDisposed
	q.mu.Unlock()

	err := q.pc.writePacket((&quitMessage{}).encode())
	close(q.quit)
	<-q.closed
	return err
}

func (q *queue) drainRemainingOnShutdown() {
	closeErr := &ConnectionClosedError{Expected: true}
	for {
		select {
		case ex := <-q.submit:
			ex.finish(closeErr)
		default:
			return
		}
	}
}
