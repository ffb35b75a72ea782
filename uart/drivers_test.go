package uart

import (
	"io"
	"testing"
	"time"

	"tinygo.org/x/drivers/gps"
)

const ggaSentence = "$GPGGA,115739.00,4158.8441367,N,09147.4416929,W,4,13,0.9,255.747,M,-32.00,M,01,0000*6E"

func TestReaderWriter(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Timeout = 2 * time.Second
	u, f := newTestUART(t, cfg)
	f.SetLoopback(true)
	f.IRQ.Start()
	defer f.IRQ.Close()

	n, err := io.WriteString(u, "round trip")
	if err != nil || n != 10 {
		t.Fatalf("Write returned %d, %v", n, err)
	}

	buf := make([]byte, 10)
	if _, err := io.ReadFull(u, buf); err != nil {
		t.Fatalf("ReadFull failed: %v", err)
	}
	if string(buf) != "round trip" {
		t.Errorf("Expected %q, got %q", "round trip", buf)
	}
}

func TestWriteIgnoresNonBlockingMode(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Timeout = 2 * time.Second
	cfg.Mode = ModeNonBlockingWrite
	u, f := newTestUART(t, cfg)
	f.IRQ.Start()
	defer f.IRQ.Close()

	if err := u.WriteByte('a'); err != nil {
		t.Fatalf("WriteByte failed: %v", err)
	}
	if n, err := u.Write([]byte("bc")); err != nil || n != 2 {
		t.Fatalf("Write returned %d, %v", n, err)
	}
	if !u.WriteFinished() {
		t.Error("Write returned before the transmit finished")
	}
	if got := string(f.Wire()); got != "abc" {
		t.Errorf("Expected %q, got %q", "abc", got)
	}
}

func TestGPSOverUART(t *testing.T) {
	u, f := newTestUART(t, Config{RxCapacity: 256})

	// The gps driver reads in 100 byte chunks.
	f.Inject([]byte(ggaSentence + "\r\n" + ggaSentence + "\r\n"))
	f.IRQ.Drain()

	dev := gps.NewUART(u)
	sentence, err := dev.NextSentence()
	if err != nil {
		t.Fatalf("NextSentence failed: %v", err)
	}
	if sentence != ggaSentence {
		t.Fatalf("Expected %q, got %q", ggaSentence, sentence)
	}

	parser := gps.NewParser()
	fix, err := parser.Parse(sentence)
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}
	if fix.Altitude != 255 || fix.Satellites != 13 {
		t.Errorf("Unexpected fix: altitude=%d satellites=%d", fix.Altitude, fix.Satellites)
	}
}
