package whatsapp

import (
	"context"
	"errors"
	"fmt"
	"os"
	"sync"
	"sync/atomic"
	"time"

	"go.mau.fi/whatsmeow/types/events"

	"github.com/Deneth123456789/My-new-bot/internal/bus"
	"github.com/Deneth123456789/My-new-bot/internal/config"
	. "github.com/Deneth123456789/My-new-bot/internal/logging"
	"github.com/Deneth123456789/My-new-bot/internal/metrics"
	"github.com/Deneth123456789/My-new-bot/internal/transport"
)

var (
	// ErrLoggedOut is returned by Run when the account unlinked this device.
	ErrLoggedOut = errors.New("whatsapp: logged out")
	// ErrReconnectExhausted is returned by Run when MaxAttempts is reached.
	ErrReconnectExhausted = errors.New("whatsapp: reconnect attempts exhausted")
	// ErrReconnectDisabled is returned by Run when the connection closes
	// and reconnection is turned off.
	ErrReconnectDisabled = errors.New("whatsapp: connection closed, reconnect disabled")
)

// Conn is one client connection as seen by the Manager.
type Conn interface {
	Transport() transport.Transport
	// Connect starts the connection. Lifecycle events arrive through the
	// handler given to the Dialer.
	Connect() error
	Close()
}

// Dialer builds an unconnected Conn whose events go to handler.
// ctx is cancelled when the session is torn down.
type Dialer func(ctx context.Context, handler func(evt any)) (Conn, error)

// ManagerConfig configures a Manager.
type ManagerConfig struct {
	Reconnect       config.ReconnectConfig
	ConnectedNotice string
	Bus             *bus.Bus
	// OnPairingCode is called for each QR payload; defaults to printing
	// it on stdout.
	OnPairingCode func(code string)
}

type session struct {
	id      uint64
	ctx     context.Context
	cancel  context.CancelFunc
	conn    Conn
	opened  atomic.Bool
	closing atomic.Bool
}

type closeSignal struct {
	session  uint64
	terminal bool
	reason   string
}

// Manager owns the WhatsApp connection: it opens a session, fans message
// events out to subscribers, and replaces the session on every close that
// is not a logout. Events from a session that is no longer current are
// dropped.
type Manager struct {
	dial        Dialer
	subscribers []transport.Subscriber
	bus         *bus.Bus
	onPairing   func(code string)

	mu       sync.Mutex
	backoff  Backoff
	disabled bool
	notice   string
	state    State
	current  *session
	nextID   uint64

	closed chan closeSignal
}

// NewManager creates a Manager. Subscribers receive every message event in
// the order given.
func NewManager(dial Dialer, cfg ManagerConfig, subscribers ...transport.Subscriber) *Manager {
	m := &Manager{
		dial:        dial,
		subscribers: subscribers,
		bus:         cfg.Bus,
		onPairing:   cfg.OnPairingCode,
		state:       StateConnecting,
		closed:      make(chan closeSignal, 4),
	}
	if m.bus == nil {
		m.bus = bus.Default()
	}
	if m.onPairing == nil {
		m.onPairing = func(code string) { PrintPairingCode(os.Stdout, code) }
	}
	m.Configure(cfg.Reconnect, cfg.ConnectedNotice)
	return m
}

// Configure updates the reconnect policy and connected notice. Takes
// effect at the next close or open.
func (m *Manager) Configure(rc config.ReconnectConfig, notice string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.backoff = Backoff{
		Initial:     rc.InitialDelay.Std(),
		Max:         rc.MaxDelay.Std(),
		MaxAttempts: rc.MaxAttempts,
	}
	m.disabled = rc.Disabled
	m.notice = notice
}

// State returns the current connection state.
func (m *Manager) State() State {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state
}

// Run connects and keeps the connection alive until ctx is cancelled, the
// session is logged out, or reconnection gives up.
func (m *Manager) Run(ctx context.Context) error {
	attempt := 0
	for {
		sess, err := m.connect(ctx)
		if err != nil {
			if ctx.Err() != nil {
				m.setState(nil, StateClosedTerminal, "shutdown")
				return ctx.Err()
			}
			L_error("whatsapp: connect failed", "error", err)
			m.setState(nil, StateClosedReconnectable, err.Error())
		} else {
			sig, ok := m.waitClose(ctx, sess)
			m.teardown(sess)
			if !ok {
				m.setState(sess, StateClosedTerminal, "shutdown")
				return ctx.Err()
			}
			if sig.terminal {
				L_error("whatsapp: session ended", "reason", sig.reason)
				m.setState(sess, StateClosedTerminal, sig.reason)
				return ErrLoggedOut
			}
			L_warn("whatsapp: connection closed", "reason", sig.reason, "session", sess.id)
			m.setState(sess, StateClosedReconnectable, sig.reason)
			if sess.opened.Load() {
				attempt = 0
			}
		}

		m.mu.Lock()
		disabled, backoff := m.disabled, m.backoff
		m.mu.Unlock()

		if disabled {
			m.setState(nil, StateClosedTerminal, "reconnect disabled")
			return ErrReconnectDisabled
		}
		attempt++
		if backoff.Exhausted(attempt) {
			m.setState(nil, StateClosedTerminal, "reconnect attempts exhausted")
			return ErrReconnectExhausted
		}

		delay := backoff.Delay(attempt)
		metrics.MetricInc("whatsapp", "reconnect")
		L_info("whatsapp: reconnecting", "attempt", attempt, "delay", delay)
		select {
		case <-time.After(delay):
		case <-ctx.Done():
			m.setState(nil, StateClosedTerminal, "shutdown")
			return ctx.Err()
		}
	}
}

func (m *Manager) connect(ctx context.Context) (*session, error) {
	sctx, cancel := context.WithCancel(ctx)

	m.mu.Lock()
	m.nextID++
	sess := &session{id: m.nextID, ctx: sctx, cancel: cancel}
	m.current = sess
	m.mu.Unlock()

	m.setState(sess, StateConnecting, "")

	conn, err := m.dial(sctx, func(evt any) { m.dispatch(sess, evt) })
	if err != nil {
		m.teardown(sess)
		return nil, fmt.Errorf("dial: %w", err)
	}

	m.mu.Lock()
	sess.conn = conn
	m.mu.Unlock()

	if err := conn.Connect(); err != nil {
		m.teardown(sess)
		return nil, fmt.Errorf("connect: %w", err)
	}
	return sess, nil
}

// waitClose blocks until sess reports a close. Signals left over from
// earlier sessions are discarded.
func (m *Manager) waitClose(ctx context.Context, sess *session) (closeSignal, bool) {
	for {
		select {
		case <-ctx.Done():
			return closeSignal{}, false
		case sig := <-m.closed:
			if sig.session == sess.id {
				return sig, true
			}
			L_trace("whatsapp: stale close signal dropped", "session", sig.session)
		}
	}
}

// teardown detaches sess so later events from it are ignored, then closes
// its connection.
func (m *Manager) teardown(sess *session) {
	m.mu.Lock()
	if m.current == sess {
		m.current = nil
	}
	conn := sess.conn
	m.mu.Unlock()

	sess.closing.Store(true)
	sess.cancel()
	if conn != nil {
		conn.Close()
	}
}

func (m *Manager) isCurrent(sess *session) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.current == sess
}

func (m *Manager) dispatch(sess *session, evt any) {
	if !m.isCurrent(sess) {
		L_trace("whatsapp: event from stale session dropped", "session", sess.id, "type", fmt.Sprintf("%T", evt))
		return
	}

	switch v := evt.(type) {
	case *events.Message:
		m.fanOut(sess, ToMessageEvent(v))

	case *events.Connected:
		m.onOpen(sess)

	case *PairingCode:
		m.onPairing(v.Code)

	case *PairingFailed:
		m.signalClose(sess, false, "pairing "+v.Reason)

	case *events.PairSuccess:
		L_info("whatsapp: paired", "jid", v.ID.String(), "platform", v.Platform)

	case *events.LoggedOut:
		m.signalClose(sess, true, fmt.Sprintf("logged out: %v", v.Reason))

	case *events.ConnectFailure:
		m.signalClose(sess, v.Reason.IsLoggedOut(), fmt.Sprintf("connect failure: %v %s", v.Reason, v.Message))

	case *events.Disconnected:
		m.signalClose(sess, false, "disconnected")

	case *events.StreamReplaced:
		m.signalClose(sess, false, "stream replaced")

	case *events.TemporaryBan:
		m.signalClose(sess, false, fmt.Sprintf("temporary ban %v, expires in %s", v.Code, v.Expire))

	case *events.ClientOutdated:
		m.signalClose(sess, false, "client outdated")

	case *events.KeepAliveTimeout:
		L_warn("whatsapp: keepalive timeout", "errors", v.ErrorCount)

	case *events.KeepAliveRestored:
		L_info("whatsapp: keepalive restored")
	}
}

func (m *Manager) signalClose(sess *session, terminal bool, reason string) {
	if !sess.closing.CompareAndSwap(false, true) {
		return
	}
	select {
	case m.closed <- closeSignal{session: sess.id, terminal: terminal, reason: reason}:
	default:
		L_warn("whatsapp: close signal dropped", "session", sess.id, "reason", reason)
	}
}

func (m *Manager) onOpen(sess *session) {
	sess.opened.Store(true)

	m.mu.Lock()
	conn := sess.conn
	notice := m.notice
	m.mu.Unlock()

	tr := conn.Transport()
	self := tr.SelfID()
	L_info("whatsapp: connected", "self", self, "session", sess.id)
	m.setState(sess, StateOpen, "")

	if notice == "" || self == "" {
		return
	}
	if err := tr.SendText(sess.ctx, self, notice); err != nil {
		L_warn("whatsapp: connected notice failed", "error", err)
	}
}

func (m *Manager) fanOut(sess *session, evt *transport.MessageEvent) {
	m.mu.Lock()
	conn := sess.conn
	m.mu.Unlock()
	if conn == nil {
		return
	}
	tr := conn.Transport()
	for _, sub := range m.subscribers {
		m.deliver(sess.ctx, sub, tr, evt)
	}
}

func (m *Manager) deliver(ctx context.Context, sub transport.Subscriber, tr transport.Transport, evt *transport.MessageEvent) {
	defer func() {
		if r := recover(); r != nil {
			L_error("whatsapp: subscriber panicked", "panic", r, "chat", evt.Chat, "id", evt.Ref.ID)
		}
	}()
	sub.HandleMessage(ctx, tr, evt)
}

func (m *Manager) setState(sess *session, s State, reason string) {
	change := StateChange{State: s.String(), Reason: reason, At: time.Now()}

	m.mu.Lock()
	m.state = s
	if sess != nil {
		change.Session = sess.id
		if sess.conn != nil {
			change.Self = sess.conn.Transport().SelfID()
		}
	}
	m.mu.Unlock()

	L_debug("whatsapp: state", "state", change.State, "reason", reason, "session", change.Session)
	m.bus.Publish(bus.TopicSessionState, "whatsapp", change)
}
