package srp

import (
	"fmt"
	"time"
)

// DefaultExchangeTimeout bounds one full exchange from start to verdict.
const DefaultExchangeTimeout = 10 * time.Second

// Verdict is the single outcome of an exchange.
type Verdict struct {
	// Authenticated reports mutual success.
	Authenticated bool
	// Username is the identity the exchange ran for.
	Username string
	// Key is the shared session key K; nil unless Authenticated.
	Key []byte
	// Reason carries the failure kind; nil on success.
	Reason error
}

// ServerDriver runs a server session against a message stream: feed each
// decoded client message to Handle, send the reply, and act on the verdict
// once it appears. The driver enforces message order and the exchange
// deadline and emits exactly one verdict. Not safe for concurrent use; run
// one driver per connection goroutine.
type ServerDriver struct {
	session  *ServerSession
	deadline time.Time
	now      func() time.Time
	verdict  *Verdict
}

// NewServerDriver prepares a driver for one exchange. A non-positive
// timeout selects DefaultExchangeTimeout.
func NewServerDriver(cfg *Config, lookup Lookup, timeout time.Duration) (*ServerDriver, error) {
	session, err := NewServerSession(cfg, lookup)
	if err != nil {
		return nil, err
	}
	if timeout <= 0 {
		timeout = DefaultExchangeTimeout
	}
	return &ServerDriver{
		session:  session,
		deadline: time.Now().Add(timeout),
		now:      time.Now,
	}, nil
}

// Deadline returns the exchange deadline so transports can mirror it on
// their read timeouts.
func (d *ServerDriver) Deadline() time.Time { return d.deadline }

// Handle advances the exchange with one client message. It returns the
// reply to send and, once the exchange is decided, the verdict. After the
// verdict every further call fails with ErrProtocolOrder.
func (d *ServerDriver) Handle(msg Message) (Message, *Verdict, error) {
	if d.verdict != nil {
		return nil, nil, fmt.Errorf("%w: exchange already decided", ErrProtocolOrder)
	}
	if d.now().After(d.deadline) {
		return nil, d.decide(false, nil, ErrExchangeTimeout), nil
	}
	switch m := msg.(type) {
	case *ClientHello:
		reply, err := d.session.HandleHello(m)
		if err != nil {
			return nil, d.decide(false, nil, err), nil
		}
		return reply, nil, nil
	case *ClientProof:
		reply, err := d.session.HandleProof(m)
		if err != nil {
			return nil, d.decide(false, nil, err), nil
		}
		key, err := d.session.SessionKey()
		if err != nil {
			return nil, d.decide(false, nil, err), nil
		}
		return reply, d.decide(true, key, nil), nil
	default:
		return nil, d.decide(false, nil, fmt.Errorf("%w: unexpected %T", ErrProtocolOrder, msg)), nil
	}
}

// Abort decides the exchange from outside the message flow, e.g. when the
// transport closes or its context is canceled. If the exchange was already
// decided it returns the existing verdict unchanged.
func (d *ServerDriver) Abort(reason error) *Verdict {
	if d.verdict != nil {
		return d.verdict
	}
	return d.decide(false, nil, reason)
}

func (d *ServerDriver) decide(ok bool, key []byte, reason error) *Verdict {
	v := &Verdict{
		Authenticated: ok,
		Username:      d.session.Username(),
		Key:           key,
		Reason:        reason,
	}
	d.session.Close()
	d.verdict = v
	return v
}

// ClientDriver runs a client session against a message stream. Start emits
// the opening hello; every server message then goes through Handle.
type ClientDriver struct {
	session  *ClientSession
	deadline time.Time
	now      func() time.Time
	verdict  *Verdict
}

// NewClientDriver prepares a driver for one exchange. A non-positive
// timeout selects DefaultExchangeTimeout.
func NewClientDriver(cfg *Config, username, password string, timeout time.Duration) (*ClientDriver, error) {
	session, err := NewClientSession(cfg, username, password)
	if err != nil {
		return nil, err
	}
	if timeout <= 0 {
		timeout = DefaultExchangeTimeout
	}
	return &ClientDriver{
		session:  session,
		deadline: time.Now().Add(timeout),
		now:      time.Now,
	}, nil
}

// Deadline returns the exchange deadline.
func (d *ClientDriver) Deadline() time.Time { return d.deadline }

// Start opens the exchange and returns the hello message to send.
func (d *ClientDriver) Start() (*ClientHello, error) {
	if d.verdict != nil {
		return nil, fmt.Errorf("%w: exchange already decided", ErrProtocolOrder)
	}
	hello, err := d.session.Hello()
	if err != nil {
		d.decide(false, nil, err)
		return nil, err
	}
	return hello, nil
}

// Handle advances the exchange with one server message. It returns the
// reply to send (nil after the confirm) and, once the exchange is decided,
// the verdict.
func (d *ClientDriver) Handle(msg Message) (Message, *Verdict, error) {
	if d.verdict != nil {
		return nil, nil, fmt.Errorf("%w: exchange already decided", ErrProtocolOrder)
	}
	if d.now().After(d.deadline) {
		return nil, d.decide(false, nil, ErrExchangeTimeout), nil
	}
	switch m := msg.(type) {
	case *ServerChallenge:
		reply, err := d.session.HandleChallenge(m)
		if err != nil {
			return nil, d.decide(false, nil, err), nil
		}
		return reply, nil, nil
	case *ServerConfirm:
		if err := d.session.HandleConfirm(m); err != nil {
			return nil, d.decide(false, nil, err), nil
		}
		key, err := d.session.SessionKey()
		if err != nil {
			return nil, d.decide(false, nil, err), nil
		}
		return nil, d.decide(true, key, nil), nil
	default:
		return nil, d.decide(false, nil, fmt.Errorf("%w: unexpected %T", ErrProtocolOrder, msg)), nil
	}
}

// Abort decides the exchange from outside the message flow. If the
// exchange was already decided it returns the existing verdict unchanged.
func (d *ClientDriver) Abort(reason error) *Verdict {
	if d.verdict != nil {
		return d.verdict
	}
	return d.decide(false, nil, reason)
}

func (d *ClientDriver) decide(ok bool, key []byte, reason error) *Verdict {
	v := &Verdict{
		Authenticated: ok,
		Username:      d.session.Username(),
		Key:           key,
		Reason:        reason,
	}
	d.session.Close()
	d.verdict = v
	return v
}
