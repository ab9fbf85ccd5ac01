package sink

import (
	"context"
	"fmt"
	"time"

	"github.com/mikecamilleri/mowasgw/internal/aprs"
	"github.com/mikecamilleri/mowasgw/internal/geodata"
	"github.com/mikecamilleri/mowasgw/internal/record"
	"github.com/tarm/serial"
	"go.uber.org/zap"
)

// SerialSink writes KISS-framed APRS packets to a TNC over a serial port,
// per spec.md 6.4/6.5. Each call to Alert opens the port, writes the
// optional init/pre/payload/post/teardown byte sequences, and releases the
// port on every exit path (spec.md 5).
type SerialSink struct {
	SinkName string
	Device   string
	Baud     int
	Port     int // KISS port nibble, <= 15

	CmdUp   []byte
	CmdPre  []byte
	CmdPost []byte
	CmdDown []byte

	Identity aprs.Identity
	AprsCfg  aprs.Config
	Filter   Filter
	GeoIdx   *geodata.Index
	Log      *zap.Logger

	sinkKey record.TxStateKey
	open    func(*serial.Config) (serialPort, error)
}

// serialPort is the subset of *serial.Port this sink depends on, so tests
// can substitute a fake without opening a real device.
type serialPort interface {
	Write(b []byte) (int, error)
	Close() error
}

// NewSerialSink returns a SerialSink; sinkName identifies it in TxState
// bookkeeping as ("aprs", sinkName).
func NewSerialSink(sinkName, device string, baud, port int, log *zap.Logger) *SerialSink {
	if log == nil {
		log = zap.NewNop()
	}
	return &SerialSink{
		SinkName: sinkName,
		Device:   device,
		Baud:     baud,
		Port:     port,
		Log:      log,
		sinkKey:  record.TxStateKey{Type: "aprs", Name: sinkName},
		open: func(c *serial.Config) (serialPort, error) {
			return serial.OpenPort(c)
		},
	}
}

func (s *SerialSink) Name() string { return s.SinkName }

// Alert implements Sink: filters heads, opens the port once, writes the
// cmd_up/pre/payload/post/down sequence, releases the port, and marks
// every written record as transmitted.
func (s *SerialSink) Alert(ctx context.Context, heads []*record.Record, now time.Time) error {
	due := selectDue(heads, s.sinkKey, s.Filter, now)
	if len(due) == 0 {
		return nil
	}
	payload := emitAndEncode(due, s.GeoIdx, s.Identity, s.AprsCfg, s.Port, now, s.Log)

	port, err := s.open(&serial.Config{Name: s.Device, Baud: s.Baud})
	if err != nil {
		return fmt.Errorf("sink: serial open %s: %w", s.Device, err)
	}
	defer port.Close()

	for _, seq := range [][]byte{s.CmdUp, s.CmdPre} {
		if len(seq) == 0 {
			continue
		}
		if _, err := port.Write(seq); err != nil {
			return fmt.Errorf("sink: serial write init sequence: %w", err)
		}
	}

	if _, err := port.Write(payload); err != nil {
		return fmt.Errorf("sink: serial write payload: %w", err)
	}

	for _, seq := range [][]byte{s.CmdPost, s.CmdDown} {
		if len(seq) == 0 {
			continue
		}
		if _, err := port.Write(seq); err != nil {
			return fmt.Errorf("sink: serial write teardown sequence: %w", err)
		}
	}

	for _, r := range due {
		r.TxDone(s.sinkKey, now)
	}
	return nil
}
