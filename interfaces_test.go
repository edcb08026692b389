package dashlink

import (
	"context"
	"net"
	"sync"
	"time"

	"github.com/jd3nn1s/dashlink/telemetry"
	"github.com/jd3nn1s/dashlink/transport"
	log "github.com/sirupsen/logrus"
)

type logLine struct {
	level log.Level
	msg   string
}

type presenterStub struct {
	mu      sync.Mutex
	records []telemetry.Record
	lines   []logLine
	changes []StateChange
}

func newPresenterStub() *presenterStub {
	return &presenterStub{}
}

func (p *presenterStub) OnTelemetry(r telemetry.Record) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.records = append(p.records, r)
}

func (p *presenterStub) OnLog(level log.Level, msg string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.lines = append(p.lines, logLine{level: level, msg: msg})
}

func (p *presenterStub) OnConnectionState(s StateChange) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.changes = append(p.changes, s)
}

func (p *presenterStub) telemetry() []telemetry.Record {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]telemetry.Record(nil), p.records...)
}

func (p *presenterStub) logs() []logLine {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]logLine(nil), p.lines...)
}

func (p *presenterStub) states() []ConnectionState {
	p.mu.Lock()
	defer p.mu.Unlock()
	var ret []ConnectionState
	for _, c := range p.changes {
		ret = append(ret, c.State)
	}
	return ret
}

type readResult struct {
	data []byte
	err  error
}

// connStub is a transport.Conn fed by the test. writeFn, when set, decides how much
// of each write is accepted.
type connStub struct {
	peer    string
	reads   chan readResult
	writeFn func(p []byte) (int, error)

	mu        sync.Mutex
	written   [][]byte
	closeOnce sync.Once
	closed    chan struct{}
	closes    int
}

func newConnStub(peer string) *connStub {
	return &connStub{
		peer:   peer,
		reads:  make(chan readResult),
		closed: make(chan struct{}),
	}
}

func (c *connStub) Read(p []byte) (int, error) {
	select {
	case r := <-c.reads:
		return copy(p, r.data), r.err
	case <-c.closed:
		return 0, net.ErrClosed
	}
}

func (c *connStub) Write(p []byte) (int, error) {
	n, err := len(p), error(nil)
	if c.writeFn != nil {
		n, err = c.writeFn(p)
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.written = append(c.written, append([]byte(nil), p[:n]...))
	return n, err
}

func (c *connStub) Close() error {
	c.mu.Lock()
	c.closes++
	c.mu.Unlock()
	c.closeOnce.Do(func() {
		close(c.closed)
	})
	return nil
}

func (c *connStub) SetWriteDeadline(time.Time) error {
	return nil
}

func (c *connStub) Peer() string {
	return c.peer
}

func (c *connStub) writes() [][]byte {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([][]byte(nil), c.written...)
}

func (c *connStub) isClosed() bool {
	select {
	case <-c.closed:
		return true
	default:
		return false
	}
}

type dialResult struct {
	conn transport.Conn
	err  error
}

// dialerStub hands out results in order and repeats the last one.
type dialerStub struct {
	mu       sync.Mutex
	results  []dialResult
	attempts []time.Time
}

func (d *dialerStub) Dial(ctx context.Context, timeout time.Duration) (transport.Conn, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.attempts = append(d.attempts, time.Now())
	r := d.results[0]
	if len(d.results) > 1 {
		d.results = d.results[1:]
	}
	if r.err != nil {
		return nil, r.err
	}
	return r.conn, nil
}

func (d *dialerStub) String() string {
	return "stub://peer"
}

func (d *dialerStub) dialTimes() []time.Time {
	d.mu.Lock()
	defer d.mu.Unlock()
	return append([]time.Time(nil), d.attempts...)
}

type listenerStub struct {
	conns chan transport.Conn
	errs  chan error
}

func newListenerStub() *listenerStub {
	return &listenerStub{
		conns: make(chan transport.Conn),
		errs:  make(chan error),
	}
}

func (l *listenerStub) Accept(ctx context.Context) (transport.Conn, error) {
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case c := <-l.conns:
		return c, nil
	case err := <-l.errs:
		return nil, err
	}
}

func (l *listenerStub) Addr() string {
	return "stub:1"
}

func (l *listenerStub) Close() error {
	return nil
}

type sensorStub struct {
	startChan chan struct{}
	errChan   chan error
	fnChan    chan func()
}

func createSensorStub() *sensorStub {
	ret := sensorStub{
		startChan: make(chan struct{}),
		errChan:   make(chan error),
		fnChan:    make(chan func()),
	}
	return &ret
}

func (s *sensorStub) Close() error {
	return nil
}

func (s *sensorStub) Start(ctx context.Context) error {
	select {
	case s.startChan <- struct{}{}:
	case <-ctx.Done():
		return ctx.Err()
	}

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case err := <-s.errChan:
			return err
		case fn := <-s.fnChan:
			fn()
		}
	}
}

type canBusStub struct {
	sensorStub

	mu         sync.Mutex
	speed      int
	battery    int
	engineTemp int
	lamps      uint8
	sends      int
}

func createCANBusStub() *canBusStub {
	return &canBusStub{
		sensorStub: *createSensorStub(),
	}
}

func (c *canBusStub) record(fn func()) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.sends++
	fn()
	return nil
}

func (c *canBusStub) SendSpeed(speed int) error {
	return c.record(func() { c.speed = speed })
}

func (c *canBusStub) SendBattery(percent int) error {
	return c.record(func() { c.battery = percent })
}

func (c *canBusStub) SendEngineTemp(celsius int) error {
	return c.record(func() { c.engineTemp = celsius })
}

func (c *canBusStub) SendLamps(lamps uint8) error {
	return c.record(func() { c.lamps = lamps })
}

func (c *canBusStub) sendCount() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.sends
}

type forwarderStub struct {
	telemetry []telemetry.Record
	prev      []telemetry.Record
	err       error
}

func (fwd *forwarderStub) Forward(newTelemetry *telemetry.Record, prevTelemetry *telemetry.Record) error {
	fwd.telemetry = append(fwd.telemetry, *newTelemetry)
	fwd.prev = append(fwd.prev, *prevTelemetry)
	return fwd.err
}
