package ma2protocol

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"net"
	"slices"
	"strconv"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/google/uuid"
)

// State is the lifecycle state of a Session.
type State int

const (
	Disconnected State = iota
	Connecting
	Authenticating
	Ready
	Reconnecting
	Closed
)

// String returns a human-readable state name.
func (s State) String() string {
	switch s {
	case Disconnected:
		return "Disconnected"
	case Connecting:
		return "Connecting"
	case Authenticating:
		return "Authenticating"
	case Ready:
		return "Ready"
	case Reconnecting:
		return "Reconnecting"
	case Closed:
		return "Closed"
	default:
		return "State(" + strconv.Itoa(int(s)) + ")"
	}
}

// Dialer opens transports. *net.Dialer satisfies it.
type Dialer interface {
	DialContext(ctx context.Context, network, address string) (net.Conn, error)
}

// StateHandler is called after every state transition.
type StateHandler func(from, to State)

// DisconnectHandler is called when a Ready session loses its transport.
type DisconnectHandler func(err error)

// BackoffConfig bounds the reconnect delay. The first reconnect attempt is
// immediate; later ones wait Base, 2*Base, ... up to Max.
type BackoffConfig struct {
	Base       time.Duration
	Max        time.Duration
	MaxRetries uint64 // 0 retries until cancelled
}

// Config holds resolved session parameters. Zero durations take the
// package defaults. QueueDepth is used as given; 0 makes a second caller
// fail with ErrSessionBusy instead of waiting.
type Config struct {
	ConnectTimeout  time.Duration
	ResponseTimeout time.Duration
	IdleTimeout     time.Duration
	QueueDepth      int
	Backoff         BackoffConfig
	TranscriptSize  int

	// LoginSuccess and LoginReject override the login markers.
	LoginSuccess string
	LoginReject  []string

	Dialer Dialer
	Logger *slog.Logger
}

// DefaultConfig returns the configuration used for a typical console.
func DefaultConfig() Config {
	return Config{
		ConnectTimeout:  DefaultConnectTimeout,
		ResponseTimeout: DefaultResponseTimeout,
		IdleTimeout:     DefaultIdleTimeout,
		QueueDepth:      DefaultQueueDepth,
		Backoff:         BackoffConfig{Base: DefaultBackoffBase, Max: DefaultBackoffMax},
		TranscriptSize:  DefaultTranscriptSize,
	}
}

func (c Config) withDefaults() Config {
	if c.ConnectTimeout <= 0 {
		c.ConnectTimeout = DefaultConnectTimeout
	}
	if c.ResponseTimeout <= 0 {
		c.ResponseTimeout = DefaultResponseTimeout
	}
	if c.IdleTimeout <= 0 {
		c.IdleTimeout = DefaultIdleTimeout
	}
	if c.QueueDepth < 0 {
		c.QueueDepth = 0
	}
	if c.Backoff.Base <= 0 {
		c.Backoff.Base = DefaultBackoffBase
	}
	if c.Backoff.Max < c.Backoff.Base {
		c.Backoff.Max = max(DefaultBackoffMax, c.Backoff.Base)
	}
	if c.LoginSuccess == "" {
		c.LoginSuccess = LoginSuccessMarker
	}
	if c.LoginReject == nil {
		c.LoginReject = LoginRejectMarkers
	}
	if c.Dialer == nil {
		c.Dialer = &net.Dialer{}
	}
	if c.Logger == nil {
		c.Logger = slog.New(slog.DiscardHandler)
	}
	return c
}

// Session is an authenticated telnet connection to one console.
//
// Commands are processed one at a time. Send holds the session until the
// matching ReadResponse returns, or until ResponseTimeout passes if the
// caller never reads. Other callers queue behind it in submission order, up
// to Config.QueueDepth waiters; beyond that Send fails with ErrSessionBusy.
// Exec pairs Send and ReadResponse and is the usual entry point.
//
// When a Ready session loses its transport it moves to Reconnecting and
// retries with exponential backoff using the stored credentials. Commands
// issued meanwhile fail with *NotReadyError; nothing is replayed.
//
// Thread Safety:
// All methods are safe for concurrent use.
type Session struct {
	cfg        Config
	id         string
	log        *slog.Logger
	transcript *Transcript

	mu      sync.Mutex
	state   State
	changed chan struct{} // closed and replaced on every change

	endpoint Endpoint
	creds    Credentials

	conn       net.Conn
	gen        uint64 // bumped whenever conn is attached or dropped
	readerDone chan struct{}
	readErr    error

	buf      bytes.Buffer
	lastData time.Time
	partial  []byte // received bytes not yet ending a transcript line

	inflight *inflight

	stateHandler      StateHandler
	disconnectHandler DisconnectHandler

	reconnectCancel context.CancelFunc
	reconnectDone   chan struct{}

	writeMu   sync.Mutex
	turn      chan struct{} // holds one token; whoever owns it may talk
	waiters   atomic.Int32
	done      chan struct{} // closed by Shutdown
	closeOnce sync.Once
}

// inflight is the turn held between Send and ReadResponse. Its timer
// releases the turn when nobody reads within ResponseTimeout; a read in
// progress stops the timer and rearms it if the read times out.
type inflight struct {
	once  sync.Once
	timer *time.Timer
	turn  chan struct{}
	exec  bool // owned by Exec; a bare ReadResponse must not take it
}

func (f *inflight) release(s *Session) {
	f.once.Do(func() {
		if f.timer != nil {
			f.timer.Stop()
		}
		s.waiters.Add(-1)
		f.turn <- struct{}{}
	})
}

// hold stops the release timer for the duration of a read. It reports
// false when the timer already released the turn.
func (f *inflight) hold() bool {
	return f.timer.Stop()
}

// NewSession creates a disconnected session.
func NewSession(cfg Config) *Session {
	cfg = cfg.withDefaults()
	id := uuid.NewString()
	s := &Session{
		cfg:        cfg,
		id:         id,
		log:        cfg.Logger.With("session_id", id),
		transcript: NewTranscript(cfg.TranscriptSize),
		state:      Disconnected,
		changed:    make(chan struct{}),
		turn:       make(chan struct{}, 1),
		done:       make(chan struct{}),
	}
	s.turn <- struct{}{}
	return s
}

// ID returns the unique session identifier used in log records.
func (s *Session) ID() string {
	return s.id
}

// Transcript returns recent wire traffic.
func (s *Session) Transcript() *Transcript {
	return s.transcript
}

// Endpoint returns the endpoint given to Connect.
func (s *Session) Endpoint() Endpoint {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.endpoint
}

// State returns the current state.
func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// SetStateHandler sets the callback for state transitions.
func (s *Session) SetStateHandler(handler StateHandler) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.stateHandler = handler
}

// SetDisconnectHandler sets the callback for transport loss.
func (s *Session) SetDisconnectHandler(handler DisconnectHandler) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.disconnectHandler = handler
}

// WaitState blocks until the session is in one of states.
func (s *Session) WaitState(ctx context.Context, states ...State) (State, error) {
	for {
		s.mu.Lock()
		cur, ch := s.state, s.changed
		s.mu.Unlock()
		if slices.Contains(states, cur) {
			return cur, nil
		}
		select {
		case <-ch:
		case <-ctx.Done():
			return cur, ctx.Err()
		}
	}
}

// broadcastLocked wakes every waiter. Callers hold s.mu.
func (s *Session) broadcastLocked() {
	close(s.changed)
	s.changed = make(chan struct{})
}

// transition moves to a new state. Closed is terminal.
func (s *Session) transition(to State) error {
	s.mu.Lock()
	from := s.state
	if from == Closed {
		s.mu.Unlock()
		return ErrSessionClosed
	}
	s.state = to
	s.broadcastLocked()
	handler := s.stateHandler
	s.mu.Unlock()

	if from != to {
		s.log.Info("state change", "from", from.String(), "to", to.String())
		if handler != nil {
			handler(from, to)
		}
	}
	return nil
}

// transitionFrom moves from one state to another and reports whether the
// session was still in from.
func (s *Session) transitionFrom(from, to State) bool {
	s.mu.Lock()
	if s.state != from {
		s.mu.Unlock()
		return false
	}
	s.state = to
	s.broadcastLocked()
	handler := s.stateHandler
	s.mu.Unlock()

	s.log.Info("state change", "from", from.String(), "to", to.String())
	if handler != nil {
		handler(from, to)
	}
	return true
}

// Connect opens the transport and logs in. It blocks until the console
// accepts the login, rejects it, or ConnectTimeout passes. On failure the
// session returns to Disconnected.
func (s *Session) Connect(ctx context.Context, ep Endpoint, creds Credentials) error {
	s.mu.Lock()
	switch s.state {
	case Closed:
		s.mu.Unlock()
		return ErrSessionClosed
	case Disconnected:
	default:
		s.mu.Unlock()
		return ErrAlreadyConnected
	}
	s.endpoint = ep
	s.creds = creds
	s.mu.Unlock()

	s.log.Info("connecting", "endpoint", ep.String(), "credentials", creds)
	if err := s.establish(ctx, ep, creds); err != nil {
		if !errors.Is(err, ErrSessionClosed) {
			s.transition(Disconnected)
		}
		return err
	}
	return nil
}

// establish runs Connecting -> Authenticating -> Ready once.
func (s *Session) establish(ctx context.Context, ep Endpoint, creds Credentials) error {
	if err := s.transition(Connecting); err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(ctx, s.cfg.ConnectTimeout)
	defer cancel()

	conn, err := s.cfg.Dialer.DialContext(ctx, "tcp", ep.String())
	if err != nil {
		if ctx.Err() != nil {
			return &ConnectTimeoutError{Endpoint: ep, Stage: Connecting, Err: ctx.Err()}
		}
		return &TransportError{Op: "dial", Endpoint: ep, Err: err}
	}

	gen, done := s.attach(conn)
	if err := s.transition(Authenticating); err != nil {
		s.detach(gen, done)
		return err
	}
	if err := s.login(ctx, gen, ep, creds); err != nil {
		s.detach(gen, done)
		return err
	}
	if err := s.transition(Ready); err != nil {
		s.detach(gen, done)
		return err
	}
	return nil
}

// attach installs conn and starts its reader.
func (s *Session) attach(conn net.Conn) (uint64, chan struct{}) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.gen++
	s.conn = conn
	s.readErr = nil
	s.buf.Reset()
	s.partial = nil
	done := make(chan struct{})
	s.readerDone = done
	go s.readLoop(s.gen, conn, done)
	return s.gen, done
}

// detach closes the connection of generation gen and waits for its reader.
// A connection already dropped by connectionLost is left to its reader,
// which may be the caller.
func (s *Session) detach(gen uint64, done chan struct{}) {
	s.mu.Lock()
	var conn net.Conn
	if s.gen == gen && s.conn != nil {
		conn = s.conn
		s.conn = nil
		s.gen++
		s.broadcastLocked()
	}
	s.mu.Unlock()

	if conn == nil {
		return
	}
	conn.Close()
	if done != nil {
		<-done
	}
}

// loginLine renders the login command. It is never a CommandLine so that
// credentials cannot leak through the builder API.
func loginLine(creds Credentials) (wire, logged string, err error) {
	user, err := QuoteLabel(creds.User)
	if err != nil {
		return "", "", err
	}
	pass, err := QuoteLabel(creds.Password)
	if err != nil {
		return "", "", newInvalidLabelError("***", "password contains control characters")
	}
	return "login " + user + " " + pass, "login " + user + ` "***"`, nil
}

func (s *Session) login(ctx context.Context, gen uint64, ep Endpoint, creds Credentials) error {
	wire, logged, err := loginLine(creds)
	if err != nil {
		return err
	}

	s.mu.Lock()
	s.buf.Reset()
	s.mu.Unlock()

	if err := s.writeLine(gen, wire, logged); err != nil {
		return err
	}

	accepted := false
	_, err = s.await(ctx, func(text string, idle bool) (bool, error) {
		plain := StripANSI(text)
		for _, marker := range s.cfg.LoginReject {
			if strings.Contains(plain, marker) {
				return true, &AuthenticationError{User: creds.User, Reply: lineContaining(plain, marker)}
			}
		}
		if !accepted && strings.Contains(plain, s.cfg.LoginSuccess) {
			accepted = true
		}
		if !accepted {
			return false, nil
		}
		_, prompt := findPrompt(text)
		return prompt || idle, nil
	})
	if err != nil {
		var rte *ResponseTimeoutError
		if errors.As(err, &rte) {
			return &ConnectTimeoutError{Endpoint: ep, Stage: Authenticating, Err: rte.Err}
		}
		return err
	}
	s.log.Info("logged in", "user", creds.User)
	return nil
}

func lineContaining(text, marker string) string {
	for _, l := range strings.Split(text, "\n") {
		if strings.Contains(l, marker) {
			return strings.TrimSpace(l)
		}
	}
	return marker
}

// await blocks until check accepts the buffered output, then consumes and
// returns it. idle is true once output has been quiet for IdleTimeout. On
// cancellation the buffer is kept and a *ResponseTimeoutError returned.
func (s *Session) await(ctx context.Context, check func(text string, idle bool) (bool, error)) (string, error) {
	var timer *time.Timer
	defer func() {
		if timer != nil {
			timer.Stop()
		}
	}()

	for {
		s.mu.Lock()
		text := s.buf.String()
		idle := false
		var wait time.Duration
		if len(text) > 0 {
			quiet := time.Since(s.lastData)
			idle = quiet >= s.cfg.IdleTimeout
			wait = s.cfg.IdleTimeout - quiet
		}
		readErr, ch := s.readErr, s.changed

		done, err := check(text, idle)
		if err != nil {
			s.buf.Reset()
			s.mu.Unlock()
			return text, err
		}
		if done {
			s.buf.Reset()
			s.mu.Unlock()
			return text, nil
		}
		if readErr != nil {
			s.mu.Unlock()
			return "", readErr
		}
		s.mu.Unlock()

		var tick <-chan time.Time
		if wait > 0 {
			if timer == nil {
				timer = time.NewTimer(wait)
			} else {
				timer.Reset(wait)
			}
			tick = timer.C
		}

		select {
		case <-ch:
		case <-tick:
		case <-ctx.Done():
			s.mu.Lock()
			buffered := s.buf.Len()
			s.mu.Unlock()
			return "", &ResponseTimeoutError{Buffered: buffered, Err: ctx.Err()}
		}
	}
}

// readLoop copies console output into the response buffer until the
// transport fails or is closed.
func (s *Session) readLoop(gen uint64, conn net.Conn, done chan struct{}) {
	defer close(done)

	r := newTelnetReader(conn, conn, &s.writeMu)
	chunk := make([]byte, 4096)
	for {
		n, err := r.Read(chunk)
		if n > 0 {
			s.received(gen, chunk[:n])
		}
		if err != nil {
			s.connectionLost(gen, "read", err)
			return
		}
	}
}

func (s *Session) received(gen uint64, data []byte) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if gen != s.gen {
		return
	}
	s.buf.Write(data)
	s.lastData = time.Now()

	s.partial = append(s.partial, data...)
	for {
		i := bytes.IndexByte(s.partial, '\n')
		if i < 0 {
			break
		}
		text := strings.TrimRight(StripANSI(string(s.partial[:i])), "\r")
		s.partial = s.partial[i+1:]
		if text != "" {
			s.transcript.Record(Received, text)
		}
	}
	s.broadcastLocked()
}

// connectionLost handles transport failure for generation gen. A Ready
// session starts reconnecting; during Connect the waiter sees readErr.
func (s *Session) connectionLost(gen uint64, op string, cause error) {
	s.mu.Lock()
	if gen != s.gen || s.conn == nil {
		s.mu.Unlock()
		return
	}
	conn := s.conn
	s.conn = nil
	s.gen++
	terr := &TransportError{Op: op, Endpoint: s.endpoint, Err: cause}
	s.readErr = terr
	s.broadcastLocked()
	wasReady := s.state == Ready
	handler := s.disconnectHandler
	s.mu.Unlock()

	conn.Close()
	if !wasReady {
		return
	}

	s.log.Warn("connection lost", "error", cause)
	if !s.transitionFrom(Ready, Reconnecting) {
		return
	}
	s.startReconnect()
	if handler != nil {
		handler(terr)
	}
}

// startReconnect starts the reconnect loop unless Disconnect or Shutdown
// moved the session on first.
func (s *Session) startReconnect() {
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})

	s.mu.Lock()
	if s.state != Reconnecting {
		s.mu.Unlock()
		cancel()
		return
	}
	s.reconnectCancel = cancel
	s.reconnectDone = done
	ep, creds := s.endpoint, s.creds
	s.mu.Unlock()

	go s.reconnectLoop(ctx, ep, creds, done)
}

func (s *Session) reconnectLoop(ctx context.Context, ep Endpoint, creds Credentials, done chan struct{}) {
	defer close(done)

	exp := backoff.NewExponentialBackOff()
	exp.InitialInterval = s.cfg.Backoff.Base
	exp.MaxInterval = s.cfg.Backoff.Max
	exp.Multiplier = 2
	exp.RandomizationFactor = 0
	exp.MaxElapsedTime = 0

	var policy backoff.BackOff = exp
	if s.cfg.Backoff.MaxRetries > 0 {
		policy = backoff.WithMaxRetries(policy, s.cfg.Backoff.MaxRetries)
	}

	attempt := 0
	operation := func() error {
		attempt++
		err := s.establish(ctx, ep, creds)
		var auth *AuthenticationError
		switch {
		case err == nil:
			return nil
		case errors.Is(err, ErrSessionClosed), errors.As(err, &auth):
			return backoff.Permanent(err)
		}
		if terr := s.transition(Reconnecting); terr != nil {
			return backoff.Permanent(terr)
		}
		return err
	}
	notify := func(err error, next time.Duration) {
		s.log.Warn("reconnect failed", "attempt", attempt, "error", err, "retry_in", next)
	}

	err := backoff.RetryNotify(operation, backoff.WithContext(policy, ctx), notify)
	switch {
	case err == nil:
		s.log.Info("reconnected", "attempts", attempt)
	case ctx.Err() != nil, errors.Is(err, ErrSessionClosed):
		// Disconnect or Shutdown owns the final state.
	default:
		s.log.Error("giving up reconnect", "attempts", attempt, "error", err)
		s.transition(Disconnected)
	}
}

// stopReconnect cancels a running reconnect loop and waits for it.
func (s *Session) stopReconnect() {
	s.mu.Lock()
	cancel, done := s.reconnectCancel, s.reconnectDone
	s.reconnectCancel, s.reconnectDone = nil, nil
	s.mu.Unlock()

	if cancel != nil {
		cancel()
		<-done
	}
}

// Disconnect closes the transport and returns to Disconnected. The session
// may be connected again.
func (s *Session) Disconnect() {
	// Leaving Reconnecting first keeps a concurrent connection loss from
	// starting a new loop after stopReconnect.
	if err := s.transition(Disconnected); err != nil {
		return
	}
	s.stopReconnect()
	s.dropConn()
	s.transition(Disconnected)
}

// Shutdown closes the session for good. Waiting callers fail with
// ErrSessionClosed.
func (s *Session) Shutdown() {
	if err := s.transition(Closed); err != nil {
		return
	}
	s.closeOnce.Do(func() { close(s.done) })
	s.stopReconnect()
	s.dropConn()
}

func (s *Session) dropConn() {
	s.mu.Lock()
	gen, done := s.gen, s.readerDone
	s.mu.Unlock()
	s.detach(gen, done)
}

// acquire takes the session turn in FIFO order.
func (s *Session) acquire(ctx context.Context) error {
	if err := s.checkReady(); err != nil {
		return err
	}
	if int(s.waiters.Add(1)) > s.cfg.QueueDepth+1 {
		s.waiters.Add(-1)
		return ErrSessionBusy
	}
	select {
	case <-s.turn:
	case <-s.done:
		s.waiters.Add(-1)
		return ErrSessionClosed
	case <-ctx.Done():
		s.waiters.Add(-1)
		return errors.Join(ErrSessionBusy, ctx.Err())
	}
	if err := s.checkReady(); err != nil {
		s.releaseTurn()
		return err
	}
	return nil
}

func (s *Session) releaseTurn() {
	s.waiters.Add(-1)
	s.turn <- struct{}{}
}

func (s *Session) checkReady() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	switch s.state {
	case Ready:
		return nil
	case Closed:
		return ErrSessionClosed
	default:
		return &NotReadyError{State: s.state}
	}
}

// Send writes line followed by the line terminator. It waits for earlier
// commands to finish and holds the session until a ReadResponse returns
// the response, or ResponseTimeout passes without one. A read that times
// out keeps the session so it can be retried.
func (s *Session) Send(ctx context.Context, line CommandLine) error {
	_, err := s.send(ctx, line, false)
	return err
}

func (s *Session) send(ctx context.Context, line CommandLine, exec bool) (*inflight, error) {
	if line.IsZero() {
		return nil, newMissingArgumentError("empty command line")
	}
	if err := s.acquire(ctx); err != nil {
		return nil, err
	}

	// Output nobody read belongs to an earlier command.
	s.mu.Lock()
	gen := s.gen
	s.buf.Reset()
	s.mu.Unlock()

	if err := s.writeLine(gen, line.String(), line.String()); err != nil {
		s.releaseTurn()
		return nil, err
	}

	f := &inflight{turn: s.turn, exec: exec}
	s.mu.Lock()
	s.inflight = f
	f.timer = time.AfterFunc(s.cfg.ResponseTimeout, func() { s.settle(f) })
	s.mu.Unlock()
	return f, nil
}

// settle releases the turn of f.
func (s *Session) settle(f *inflight) {
	s.mu.Lock()
	if s.inflight == f {
		s.inflight = nil
	}
	s.mu.Unlock()
	f.release(s)
}

// writeLine writes text plus the terminator to the connection of gen.
// logged is what the transcript and log record instead of text.
func (s *Session) writeLine(gen uint64, text, logged string) error {
	s.mu.Lock()
	conn, ep := s.conn, s.endpoint
	if gen != s.gen || conn == nil {
		state := s.state
		s.mu.Unlock()
		return &NotReadyError{State: state}
	}
	s.mu.Unlock()

	s.writeMu.Lock()
	conn.SetWriteDeadline(time.Now().Add(s.cfg.ResponseTimeout))
	_, err := conn.Write([]byte(text + LineTerminator))
	s.writeMu.Unlock()
	if err != nil {
		s.connectionLost(gen, "write", err)
		return &TransportError{Op: "write", Endpoint: ep, Err: err}
	}

	s.transcript.Record(Sent, logged)
	s.log.Debug("sent", "line", logged)
	return nil
}

// ReadResponse waits for the console prompt, or for output to go quiet,
// and returns everything received since the last read. Without a deadline
// on ctx it waits at most ResponseTimeout.
//
// On *ResponseTimeoutError the output received so far stays buffered and
// the session stays with the command sent by Send, so ReadResponse may be
// called again. Any other outcome releases the session. While an Exec is
// waiting for its response ReadResponse fails with ErrSessionBusy.
func (s *Session) ReadResponse(ctx context.Context) (Response, error) {
	s.mu.Lock()
	f := s.inflight
	s.mu.Unlock()
	if f != nil && f.exec {
		return Response{}, ErrSessionBusy
	}
	return s.readTurn(ctx, f)
}

// readTurn reads the response to the command of f, which may be nil when
// no turn is held.
func (s *Session) readTurn(ctx context.Context, f *inflight) (Response, error) {
	if _, ok := ctx.Deadline(); !ok {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.cfg.ResponseTimeout)
		defer cancel()
	}
	if f != nil && !f.hold() {
		f = nil
	}

	resp, err := s.readResponse(ctx)
	if f != nil {
		var rte *ResponseTimeoutError
		if errors.As(err, &rte) {
			f.timer.Reset(s.cfg.ResponseTimeout)
		} else {
			s.settle(f)
		}
	}
	return resp, err
}

func (s *Session) readResponse(ctx context.Context) (Response, error) {
	s.mu.Lock()
	state, pending := s.state, s.buf.Len()
	s.mu.Unlock()
	if state == Closed {
		return Response{}, ErrSessionClosed
	}
	if state != Ready && pending == 0 {
		return Response{}, &NotReadyError{State: state}
	}

	var prompt string
	text, err := s.await(ctx, func(text string, idle bool) (bool, error) {
		if p, ok := findPrompt(text); ok {
			prompt = p
			return true, nil
		}
		return idle, nil
	})
	if err != nil {
		return Response{}, err
	}
	return Response{Text: text, Prompt: prompt, Complete: prompt != ""}, nil
}

// ReadResponseTimeout is ReadResponse with a fixed timeout.
func (s *Session) ReadResponseTimeout(timeout time.Duration) (Response, error) {
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()
	return s.ReadResponse(ctx)
}

// Exec sends line and reads its response as one queued unit. If the read
// times out the session stays reserved until ResponseTimeout passes, so
// the late output is not handed to the next caller.
func (s *Session) Exec(ctx context.Context, line CommandLine) (Response, error) {
	f, err := s.send(ctx, line, true)
	if err != nil {
		return Response{}, err
	}
	return s.readTurn(ctx, f)
}
