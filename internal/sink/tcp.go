package sink

import (
	"context"
	"errors"
	"fmt"
	"net"
	"syscall"
	"time"

	"github.com/mikecamilleri/mowasgw/internal/aprs"
	"github.com/mikecamilleri/mowasgw/internal/geodata"
	"github.com/mikecamilleri/mowasgw/internal/record"
	"go.uber.org/zap"
)

// TCPSink writes KISS-framed APRS packets to a TNC reachable over
// KISS-over-TCP. A connection-refused error is logged and treated as
// non-fatal (spec.md 5): the sink is simply skipped for this cycle.
type TCPSink struct {
	SinkName string
	Addr     string // "host:port"
	Port     int    // KISS port nibble

	Identity aprs.Identity
	AprsCfg  aprs.Config
	Filter   Filter
	GeoIdx   *geodata.Index
	Log      *zap.Logger

	sinkKey record.TxStateKey
	dial    func(network, addr string) (net.Conn, error)
}

// NewTCPSink returns a TCPSink; sinkName identifies it in TxState
// bookkeeping as ("aprs", sinkName).
func NewTCPSink(sinkName, addr string, port int, log *zap.Logger) *TCPSink {
	if log == nil {
		log = zap.NewNop()
	}
	return &TCPSink{
		SinkName: sinkName,
		Addr:     addr,
		Port:     port,
		Log:      log,
		sinkKey:  record.TxStateKey{Type: "aprs", Name: sinkName},
		dial:     net.Dial,
	}
}

func (s *TCPSink) Name() string { return s.SinkName }

// Alert implements Sink: filters heads, dials, writes the KISS stream in
// one operation, and marks every written record as transmitted.
func (s *TCPSink) Alert(ctx context.Context, heads []*record.Record, now time.Time) error {
	due := selectDue(heads, s.sinkKey, s.Filter, now)
	if len(due) == 0 {
		return nil
	}
	payload := emitAndEncode(due, s.GeoIdx, s.Identity, s.AprsCfg, s.Port, now, s.Log)

	conn, err := s.dial("tcp", s.Addr)
	if err != nil {
		if errors.Is(err, syscall.ECONNREFUSED) {
			s.Log.Warn("sink: tcp connection refused, skipping this cycle", zap.String("addr", s.Addr))
			return nil
		}
		return fmt.Errorf("sink: tcp dial %s: %w", s.Addr, err)
	}
	defer conn.Close()

	if _, err := conn.Write(payload); err != nil {
		return fmt.Errorf("sink: tcp write %s: %w", s.Addr, err)
	}

	for _, r := range due {
		r.TxDone(s.sinkKey, now)
	}
	return nil
}
