// Command serio-term drives the UART and SPI drivers from a terminal, either
// over a real serial device or over emulated loopback hardware.
package main

import (
	"bufio"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"time"

	"serio/core"
	"serio/host/hostlog"
	"serio/host/serial"
	"serio/internal/fakehw"
	"serio/spi"
	"serio/uart"
)

var (
	device   = flag.String("device", "", "Comma-separated serial devices (empty = emulated loopback UART)")
	baud     = flag.Int("baud", 115200, "Baud rate")
	timeout  = flag.Duration("timeout", 2*time.Second, "Driver timeout (0 = wait forever)")
	delim    = flag.String("delim", `\n`, "Line delimiter, Go escapes allowed")
	nonblock = flag.Bool("nonblock", false, "Start in non-blocking write mode")
	rxcap    = flag.Int("rxcap", uart.DefaultRxCapacity, "Receive ring capacity")
	logLevel = flag.String("log-level", "warn", "Log level: debug, info, warn, error")
	jsonLog  = flag.Bool("json", false, "Log as JSON")
)

func main() {
	flag.Parse()

	level, ok := hostlog.ParseLevel(*logLevel)
	if !ok {
		fmt.Fprintf(os.Stderr, "Error: unknown log level %q\n", *logLevel)
		os.Exit(2)
	}
	format := hostlog.FormatText
	if *jsonLog {
		format = hostlog.FormatJSON
	}
	hostlog.Setup(os.Stderr, format, level)

	core.SetDebugWriter(hostlog.DebugWriter(hostlog.ComponentDriver))
	core.InitAsyncDebug()
	core.SetDebugEnabled(level <= slog.LevelDebug)

	d, err := unescape(*delim)
	if err != nil || len(d) != 1 {
		fmt.Fprintf(os.Stderr, "Error: delimiter must be one byte, got %q\n", *delim)
		os.Exit(2)
	}

	cfg := uart.DefaultConfig()
	cfg.RxCapacity = *rxcap
	cfg.Delimiter = d[0]
	cfg.Timeout = *timeout
	if *nonblock {
		cfg.Mode = uart.ModeNonBlockingWrite
	}

	var devices []string
	if *device != "" {
		devices = strings.Split(*device, ",")
	}
	term, err := newTerminal(os.Stdout, devices, *baud, cfg)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	defer term.Close()

	fmt.Println("serio-term: type 'help' for commands, 'quit' to exit")
	if err := term.run(os.Stdin, true); err != nil {
		fmt.Fprintf(os.Stderr, "Error reading input: %v\n", err)
		os.Exit(1)
	}
}

// newTerminal opens one UART per device, or a single emulated loopback UART
// when devices is empty, plus an SPI engine on an emulated loopback slave.
func newTerminal(out io.Writer, devices []string, baud int, cfg uart.Config) (*terminal, error) {
	t := &terminal{out: out}

	var uarts []*uart.UART
	if len(devices) == 0 {
		f := fakehw.NewUART(uart.DefaultTxFifoDepth)
		f.SetLoopback(true)
		f.IRQ.Start()
		t.closers = append(t.closers, f.IRQ.Close)
		uarts = append(uarts, uart.New(f, cfg))
		hostlog.Info(hostlog.ComponentTerm, "using emulated loopback UART")
	}
	for i, name := range devices {
		sc := serial.DefaultConfig(strings.TrimSpace(name))
		sc.Baud = baud
		p, err := serial.Open(sc)
		if err != nil {
			t.Close()
			return nil, err
		}
		hw := serial.NewHardware(p, 0)
		t.closers = append(t.closers, func() { hw.Close() })
		c := cfg
		c.Unit = uint8(i)
		uarts = append(uarts, uart.New(hw, c))
		hostlog.Info(hostlog.ComponentTerm, "opened serial device", "device", name, "unit", i)
	}
	t.uarts = core.NewRegistry(uarts...)
	cur, err := t.uarts.Open(0)
	if err != nil {
		t.Close()
		return nil, err
	}
	t.cur, t.curNum = cur, 1

	s := fakehw.NewSPI(spi.DefaultFifoDepth, func(_ int, mosi byte) byte { return mosi })
	s.IRQ.Start()
	t.closers = append(t.closers, s.IRQ.Close)
	t.spi = spi.New(s, spi.Config{Timeout: cfg.Timeout})

	return t, nil
}

func (t *terminal) run(in io.Reader, prompt bool) error {
	scanner := bufio.NewScanner(in)
	for {
		if prompt {
			fmt.Fprint(t.out, "> ")
		}
		if !scanner.Scan() {
			break
		}
		quit, err := t.exec(scanner.Text())
		if err != nil {
			fmt.Fprintf(t.out, "Error: %v\n", err)
		}
		if quit {
			return nil
		}
	}
	return scanner.Err()
}
