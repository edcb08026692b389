package forwarder

import (
	"context"
	"fmt"
	"io"
	"net"
	"os"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/jd3nn1s/dashlink/telemetry"
	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
)

// to allow testing
var sendInterval = 100 * time.Millisecond

type UDPConfig struct {
	Server string
	Port   int
}

// UDPForwarder relays the latest telemetry to a UDP collector, at most once per
// send interval. Records arriving faster than that are dropped.
type UDPForwarder struct {
	Config *UDPConfig

	conn    net.Conn
	fwdChan chan *telemetry.Record
}

func NewUDPForwarder(fileName string) (*UDPForwarder, error) {
	file, err := os.Open(fileName)
	if err != nil {
		return nil, errors.Wrapf(err, "unable to open file %s", fileName)
	}
	defer file.Close()
	return NewUDPForwarderFromReader(file)
}

func NewUDPForwarderFromReader(configReader io.Reader) (*UDPForwarder, error) {
	config := UDPConfig{}
	if _, err := toml.NewDecoder(configReader).Decode(&config); err != nil {
		return nil, errors.Wrapf(err, "unable to load udp forwarder configuration")
	}
	if config.Server == "" || config.Port <= 0 {
		return nil, errors.New("udp forwarder configuration needs Server and Port")
	}
	udp := &UDPForwarder{
		Config:  &config,
		fwdChan: make(chan *telemetry.Record, 1),
	}
	if err := udp.connect(); err != nil {
		return nil, err
	}
	return udp, nil
}

func (udp *UDPForwarder) Close() error {
	return udp.conn.Close()
}

func (udp *UDPForwarder) Forward(newTelemetry *telemetry.Record, prevTelemetry *telemetry.Record) error {
	telemCopy := *newTelemetry
	select {
	// copy telemetry as we're processing it on another go-routine
	case udp.fwdChan <- &telemCopy:
	default:
		// if channel is full, skip
	}
	return nil
}

func (udp *UDPForwarder) Start(ctx context.Context) error {
	limiter := time.NewTicker(sendInterval)
	defer limiter.Stop()
	for {
		select {
		case <-limiter.C:
		case <-ctx.Done():
			return ctx.Err()
		}
		select {
		case t := <-udp.fwdChan:
			if err := udp.forward(t); err != nil {
				log.WithField("err", err).Error("unable to forward telemetry to server")
			}
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

func (udp *UDPForwarder) forward(telem *telemetry.Record) error {
	b, err := Encode(*telem)
	if err != nil {
		return err
	}
	_, err = udp.conn.Write(b)
	return errors.Wrap(err, "unable to write telemetry udp packet")
}

func (udp *UDPForwarder) connect() error {
	writeBufSize := maxTelemetrySize * 2

	conn, err := net.Dial("udp", fmt.Sprintf("%s:%d",
		udp.Config.Server,
		udp.Config.Port))
	if err != nil {
		return errors.Wrap(err, "unable to dial udp forwarder server")
	}
	udpConn := conn.(*net.UDPConn)
	if err = udpConn.SetWriteBuffer(writeBufSize); err != nil {
		conn.Close()
		return errors.Wrapf(err, "unable to set OS write buffer to %v", writeBufSize)
	}

	udp.conn = conn
	return nil
}
