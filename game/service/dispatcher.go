package service

import (
	"context"
	"errors"
	"log"
	"math/rand"
	"time"

	"github.com/wricardo/tictactoe-arena/game/engine"
	"github.com/wricardo/tictactoe-arena/game/presence"
	"github.com/wricardo/tictactoe-arena/game/room"
	"github.com/wricardo/tictactoe-arena/metrics"
)

const (
	defaultQueueSize = 1024
	accountTimeout   = 10 * time.Second
)

// Stop reasons broadcast with stopGame
const (
	ReasonLeft      = "Player left the room."
	ReasonSurrender = "Player surrendered."
	ReasonKicked    = "Owner kicked a player."
)

var ErrStopped = errors.New("dispatcher stopped")

// InboundKind classifies items on the dispatcher queue
type InboundKind int

const (
	InboundConnect InboundKind = iota
	InboundFrame
	InboundClose
	InboundBind
	inboundCall
)

func (k InboundKind) String() string {
	switch k {
	case InboundConnect:
		return "connect"
	case InboundFrame:
		return "frame"
	case InboundClose:
		return "close"
	case InboundBind:
		return "bind"
	case inboundCall:
		return "query"
	}
	return "unknown"
}

// Inbound is one item processed by the dispatcher loop
type Inbound struct {
	Kind    InboundKind
	ConnID  string
	Token   string
	Payload []byte

	call func()
}

// Options configures a Dispatcher
type Options struct {
	// Coin picks starting sides and new owners. Defaults to a time-seeded source.
	Coin      engine.Coin
	Accounts  *Accounts
	Metrics   *metrics.Metrics
	QueueSize int
	Debug     bool
}

type handlerFunc func(c *presence.Connection, env Envelope) error

// Dispatcher owns the room and connection registries and applies every
// inbound event to them from a single goroutine.
type Dispatcher struct {
	rooms    *room.Registry
	conns    *presence.Registry
	out      Outbox
	reporter Reporter
	accounts *Accounts
	coin     engine.Coin
	metrics  *metrics.Metrics
	debug    bool

	handlers map[string]handlerFunc
	inbox    chan Inbound
	stopped  chan struct{}

	// async runs store-bound work off the loop; submit hands results back
	async  func(fn func())
	submit func(in Inbound)
}

// NewDispatcher wires the registries to out. reporter may be nil.
func NewDispatcher(rooms *room.Registry, conns *presence.Registry, out Outbox, reporter Reporter, opts Options) *Dispatcher {
	if opts.Coin == nil {
		opts.Coin = rand.New(rand.NewSource(time.Now().UnixNano()))
	}
	if opts.QueueSize <= 0 {
		opts.QueueSize = defaultQueueSize
	}

	d := &Dispatcher{
		rooms:    rooms,
		conns:    conns,
		out:      out,
		reporter: reporter,
		accounts: opts.Accounts,
		coin:     opts.Coin,
		metrics:  opts.Metrics,
		debug:    opts.Debug,
		inbox:    make(chan Inbound, opts.QueueSize),
		stopped:  make(chan struct{}),
	}
	d.async = func(fn func()) { go fn() }
	d.submit = d.enqueue

	d.handlers = map[string]handlerFunc{
		EvJoin:               d.onJoin,
		EvJoinRoom:           d.onJoinRoom,
		EvCreateRoom:         d.onCreateRoom,
		EvAddRoom:            d.onCreateRoom,
		EvDoesRoomExist:      d.onDoesRoomExist,
		EvGetRoom:            d.onGetRoom,
		EvPickSide:           d.onPickSide,
		EvMove:               d.onMove,
		EvRestart:            d.onRestart,
		EvKick:               d.onKick,
		EvMessage:            d.onMessage,
		EvHandleLeave:        d.onHandleLeave,
		EvCheckTokenValidity: d.onCheckTokenValidity,
		EvRegister:           d.onRegister,
		EvLogin:              d.onLogin,
		EvGuest:              d.onGuest,
		EvGetProfile:         d.onGetProfile,
		EvGetRanking:         d.onGetRanking,
	}

	rooms.OnRemove(d.roomRemoved)
	return d
}

// Run processes the queue until ctx is done
func (d *Dispatcher) Run(ctx context.Context) error {
	defer close(d.stopped)
	log.Printf("[DISPATCH] Event loop started")
	for {
		select {
		case <-ctx.Done():
			log.Printf("[DISPATCH] Event loop stopped")
			return ctx.Err()
		case in := <-d.inbox:
			d.Process(in)
		}
	}
}

func (d *Dispatcher) enqueue(in Inbound) {
	select {
	case d.inbox <- in:
	case <-d.stopped:
	}
}

// Connect registers a new transport connection, binding token when present
func (d *Dispatcher) Connect(connID, token string) {
	d.enqueue(Inbound{Kind: InboundConnect, ConnID: connID, Token: token})
}

// Receive queues one frame read from connID
func (d *Dispatcher) Receive(connID string, payload []byte) {
	d.enqueue(Inbound{Kind: InboundFrame, ConnID: connID, Payload: payload})
}

// Disconnect queues the transport close of connID
func (d *Dispatcher) Disconnect(connID string) {
	d.enqueue(Inbound{Kind: InboundClose, ConnID: connID})
}

// Process handles one item synchronously. It must only be called from the
// goroutine running the loop, or by tests that do not call Run.
func (d *Dispatcher) Process(in Inbound) {
	start := time.Now()
	name := in.Kind.String()
	defer func() {
		if r := recover(); r != nil {
			log.Printf("[DISPATCH] Recovered panic handling %s from %s: %v", name, in.ConnID, r)
			d.metrics.HandlerPanic()
		}
		d.metrics.ObserveEvent(name, time.Since(start))
	}()

	switch in.Kind {
	case InboundConnect:
		d.handleConnect(in.ConnID, in.Token)
	case InboundFrame:
		name = d.handleFrame(in.ConnID, in.Payload)
	case InboundClose:
		d.handleClose(in.ConnID)
	case InboundBind:
		if c, ok := d.conns.Get(in.ConnID); ok {
			d.bind(c, in.Token)
		}
	case inboundCall:
		in.call()
	}
}

// call runs fn on the loop and waits for it
func (d *Dispatcher) call(ctx context.Context, fn func()) error {
	done := make(chan struct{})
	in := Inbound{Kind: inboundCall, call: func() {
		defer close(done)
		fn()
	}}

	select {
	case d.inbox <- in:
	case <-d.stopped:
		return ErrStopped
	case <-ctx.Done():
		return ctx.Err()
	}

	select {
	case <-done:
		return nil
	case <-d.stopped:
		return ErrStopped
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (d *Dispatcher) handleConnect(connID, token string) {
	c := d.conns.Register(connID)
	if token != "" {
		d.bind(c, token)
	}
	d.metrics.SetConnections(d.conns.Len())
	d.debugf("[DISPATCH] Connection %s registered as %q", connID, c.Nick)
}

func (d *Dispatcher) handleFrame(connID string, payload []byte) string {
	c, ok := d.conns.Get(connID)
	if !ok {
		return "unknown"
	}
	env, err := Decode(payload)
	if err != nil {
		d.debugf("[DISPATCH] Dropping frame from %s: %v", connID, err)
		return "malformed"
	}
	h, ok := d.handlers[env.Event]
	if !ok {
		d.debugf("[DISPATCH] Unknown event %q from %s", env.Event, connID)
		return "unknown"
	}
	if err := h(c, env); err != nil {
		d.debugf("[DISPATCH] Dropping %s from %s: %v", env.Event, connID, err)
	}
	return env.Event
}

// identify returns the nick c acts as for one event. A supplied token is
// verified every time and bound when it names another identity. A rejected
// token yields "" so the event is dropped.
func (d *Dispatcher) identify(c *presence.Connection, token string) string {
	if token == "" {
		return c.Nick
	}
	if !d.bind(c, token) {
		return ""
	}
	return c.Nick
}

// later queues fn to run on the loop, for results of async work
func (d *Dispatcher) later(fn func()) {
	d.submit(Inbound{Kind: inboundCall, call: fn})
}

// bind verifies token for c. Switching identity runs the departure steps
// for the previous one.
func (d *Dispatcher) bind(c *presence.Connection, token string) bool {
	prev := c.Nick
	nick, err := d.conns.Bind(c.ID, token)
	if err != nil {
		d.debugf("[AUTH] Rejected token on %s: %v", c.ID, err)
		d.send(c.ID, OutIsTokenOk, false)
		return false
	}
	if prev != "" && prev != nick && d.conns.CountFor(prev) == 0 {
		ids := union(d.conns.RoomsOf(c.ID), d.roomsWith(prev))
		d.depart(prev, ids, func(string) bool { return true })
	}
	return true
}

func (d *Dispatcher) debugf(format string, args ...interface{}) {
	if d.debug {
		log.Printf(format, args...)
	}
}
