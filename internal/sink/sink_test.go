package sink

import (
	"context"
	"net"
	"syscall"
	"testing"
	"time"

	"github.com/mikecamilleri/mowasgw/internal/aprs"
	"github.com/mikecamilleri/mowasgw/internal/capmodel"
	"github.com/mikecamilleri/mowasgw/internal/geo"
	"github.com/mikecamilleri/mowasgw/internal/geodata"
	"github.com/mikecamilleri/mowasgw/internal/record"
	"github.com/mikecamilleri/mowasgw/internal/schedule"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tarm/serial"
)

func testFilter() Filter {
	return Filter{
		Region: geo.Reduce([]string{"091620000000"}),
		MaxAge: 4 * time.Hour,
		Ladder: schedule.Build([]schedule.Rung{{Threshold: time.Hour, Interval: 5 * time.Minute}}),
	}
}

func headRecord(now time.Time) *record.Record {
	a := capmodel.Alert{
		Identifier: "h1",
		Sent:       now.Add(-time.Minute),
		Infos: []capmodel.Info{
			{Headline: "Test", Areas: []capmodel.Area{
				{Geocodes: map[string][]string{"ARS": {"091620000000"}}},
			}},
		},
	}
	r := record.New(a)
	r.SetPIDs([]int{1})
	return r
}

type fakeSerialPort struct {
	writes [][]byte
	closed bool
}

func (f *fakeSerialPort) Write(b []byte) (int, error) {
	cp := make([]byte, len(b))
	copy(cp, b)
	f.writes = append(f.writes, cp)
	return len(b), nil
}
func (f *fakeSerialPort) Close() error { f.closed = true; return nil }

func TestSerialSinkWritesAndMarksTxDone(t *testing.T) {
	now := time.Date(2026, 7, 31, 12, 0, 0, 0, time.UTC)
	fake := &fakeSerialPort{}

	s := NewSerialSink("digi1", "/dev/ttyUSB0", 115200, 0, nil)
	s.open = func(c *serial.Config) (serialPort, error) { return fake, nil }
	s.Filter = testFilter()
	s.GeoIdx = geodata.Empty()
	s.Identity = aprs.Identity{DstCall: "APMOWA", MyCall: "DB0ABC"}
	s.AprsCfg = aprs.DefaultConfig()
	s.CmdUp = []byte("up")
	s.CmdDown = []byte("down")

	r := headRecord(now)
	require.NoError(t, s.Alert(context.Background(), []*record.Record{r}, now))

	assert.True(t, fake.closed)
	assert.GreaterOrEqual(t, len(fake.writes), 3) // up, payload, down
	first, last, ok := r.TxStatus(record.TxStateKey{Type: "aprs", Name: "digi1"})
	assert.True(t, ok)
	assert.Equal(t, now, first)
	assert.Equal(t, now, last)
}

func TestSerialSinkNoDueRecordsSkipsOpen(t *testing.T) {
	now := time.Date(2026, 7, 31, 12, 0, 0, 0, time.UTC)
	opened := false
	fake := &fakeSerialPort{}

	s := NewSerialSink("digi1", "/dev/ttyUSB0", 115200, 0, nil)
	s.open = func(c *serial.Config) (serialPort, error) { opened = true; return fake, nil }
	s.Filter = testFilter()
	s.GeoIdx = geodata.Empty()

	require.NoError(t, s.Alert(context.Background(), nil, now))
	assert.False(t, opened)
}

func TestTCPSinkConnectionRefusedIsNonFatal(t *testing.T) {
	now := time.Date(2026, 7, 31, 12, 0, 0, 0, time.UTC)
	s := NewTCPSink("tnc1", "127.0.0.1:9", 0, nil)
	s.Filter = testFilter()
	s.GeoIdx = geodata.Empty()
	s.Identity = aprs.Identity{DstCall: "APMOWA", MyCall: "DB0ABC"}
	s.AprsCfg = aprs.DefaultConfig()
	s.dial = func(network, addr string) (net.Conn, error) {
		return nil, &net.OpError{Op: "dial", Net: network, Err: syscall.ECONNREFUSED}
	}

	r := headRecord(now)
	err := s.Alert(context.Background(), []*record.Record{r}, now)
	assert.NoError(t, err)
	_, _, ok := r.TxStatus(record.TxStateKey{Type: "aprs", Name: "tnc1"})
	assert.False(t, ok)
}

func TestTCPSinkWritesPayload(t *testing.T) {
	now := time.Date(2026, 7, 31, 12, 0, 0, 0, time.UTC)
	var written []byte
	s := NewTCPSink("tnc1", "127.0.0.1:9", 0, nil)
	s.Filter = testFilter()
	s.GeoIdx = geodata.Empty()
	s.Identity = aprs.Identity{DstCall: "APMOWA", MyCall: "DB0ABC"}
	s.AprsCfg = aprs.DefaultConfig()
	s.dial = func(network, addr string) (net.Conn, error) {
		return &fakeConn{writeFn: func(b []byte) { written = append(written, b...) }}, nil
	}

	r := headRecord(now)
	require.NoError(t, s.Alert(context.Background(), []*record.Record{r}, now))
	assert.NotEmpty(t, written)
	_, _, ok := r.TxStatus(record.TxStateKey{Type: "aprs", Name: "tnc1"})
	assert.True(t, ok)
}

// fakeConn is a minimal net.Conn for tests that only exercises Write/Close.
type fakeConn struct {
	net.Conn
	writeFn func([]byte)
}

func (f *fakeConn) Write(b []byte) (int, error) {
	f.writeFn(b)
	return len(b), nil
}
func (f *fakeConn) Close() error { return nil }
