package main

import (
	"encoding/hex"
	"errors"
	"flag"
	"fmt"
	"io"
	"slices"
	"strconv"
	"strings"

	"github.com/google/shlex"
	"tinygo.org/x/drivers/gps"

	"serio/core"
	"serio/spi"
	"serio/uart"
)

type terminal struct {
	out     io.Writer
	uarts   *core.Registry[*uart.UART]
	cur     *uart.UART
	curNum  int
	spi     *spi.Engine
	closers []func()
}

type command struct {
	usage string
	help  string
	run   func(t *terminal, args []string) error
}

var commands map[string]command

func init() {
	commands = map[string]command{
		"help":   {"help", "Show this help message", (*terminal).cmdHelp},
		"use":    {"use <n>", "Switch to UART n (1-origin)", (*terminal).cmdUse},
		"write":  {"write <text>", "Send text; single-quote it to keep Go escapes", (*terminal).cmdWrite},
		"putc":   {"putc <byte>", "Send one byte (char or 0x..)", (*terminal).cmdPutc},
		"read":   {"read <n>", "Read n bytes if that many are buffered", (*terminal).cmdRead},
		"recv":   {"recv <n>", "Wait for data and read up to n bytes", (*terminal).cmdRecv},
		"getc":   {"getc", "Wait for one byte", (*terminal).cmdGetc},
		"gets":   {"gets [size]", "Wait for one line", (*terminal).cmdGets},
		"line":   {"line", "Read a buffered line without waiting", (*terminal).cmdLine},
		"status": {"status", "Show buffer and transmit state", (*terminal).cmdStatus},
		"clear":  {"clear rx|tx", "Discard receive or transmit data", (*terminal).cmdClear},
		"delim":  {"delim <byte>", "Set the line delimiter", (*terminal).cmdDelim},
		"mode":   {"mode block|nonblock", "Set the write mode", (*terminal).cmdMode},
		"spi":    {"spi [-x] [-n count] <hex>", "SPI transfer on the loopback slave", (*terminal).cmdSPI},
		"nmea":   {"nmea [count]", "Read and decode NMEA sentences", (*terminal).cmdNMEA},
		"events": {"events [clear]", "Show or clear the driver event ring", (*terminal).cmdEvents},
	}
}

// Close releases the hardware behind the terminal.
func (t *terminal) Close() {
	for i := len(t.closers) - 1; i >= 0; i-- {
		t.closers[i]()
	}
	t.closers = nil
}

// exec runs one command line and reports whether the terminal should exit.
func (t *terminal) exec(line string) (bool, error) {
	words, err := shlex.Split(line)
	if err != nil {
		return false, fmt.Errorf("parse %q: %w", line, err)
	}
	if len(words) == 0 {
		return false, nil
	}

	name, args := words[0], words[1:]
	switch name {
	case "quit", "exit", "q":
		return true, nil
	case "?":
		name = "help"
	}
	cmd, ok := commands[name]
	if !ok {
		return false, fmt.Errorf("unknown command %q (type 'help' for available commands)", name)
	}
	return false, cmd.run(t, args)
}

func (t *terminal) printf(format string, args ...any) {
	fmt.Fprintf(t.out, format, args...)
}

func (t *terminal) cmdHelp(_ []string) error {
	names := make([]string, 0, len(commands))
	for name := range commands {
		names = append(names, name)
	}
	slices.Sort(names)

	t.printf("Available commands:\n")
	for _, name := range names {
		c := commands[name]
		t.printf("  %-26s - %s\n", c.usage, c.help)
	}
	t.printf("  %-26s - %s\n", "quit/exit/q", "Exit the program")
	return nil
}

func (t *terminal) cmdUse(args []string) error {
	n, err := intArg(args, 0, -1)
	if err != nil {
		return err
	}
	u, err := t.uarts.Open(n)
	if err != nil {
		return fmt.Errorf("uart %d: %w", n, err)
	}
	t.cur, t.curNum = u, n
	t.printf("using uart %d of %d\n", n, t.uarts.Len())
	return nil
}

func (t *terminal) cmdWrite(args []string) error {
	if len(args) == 0 {
		return errors.New("usage: write <text>")
	}
	data, err := unescape(strings.Join(args, " "))
	if err != nil {
		return err
	}
	t.printf("%v\n", t.cur.Send(data))
	return nil
}

func (t *terminal) cmdPutc(args []string) error {
	if len(args) != 1 {
		return errors.New("usage: putc <byte>")
	}
	b, err := byteArg(args[0])
	if err != nil {
		return err
	}
	t.printf("%v\n", t.cur.Putc(b))
	return nil
}

func (t *terminal) cmdRead(args []string) error {
	n, err := intArg(args, 0, -1)
	if err != nil {
		return err
	}
	data, r := t.cur.ReadAvailable(n)
	t.printf("%v %q\n", r, data)
	return nil
}

func (t *terminal) cmdRecv(args []string) error {
	n, err := intArg(args, 0, -1)
	if err != nil {
		return err
	}
	buf := make([]byte, n)
	r := t.cur.Recv(buf)
	t.printf("%v %q\n", r, buf[:r.N])
	return nil
}

func (t *terminal) cmdGetc(_ []string) error {
	b, r := t.cur.Getc()
	if r.OK() {
		t.printf("%v %q\n", r, b)
	} else {
		t.printf("%v\n", r)
	}
	return nil
}

func (t *terminal) cmdGets(args []string) error {
	size, err := intArg(args, 0, 256)
	if err != nil {
		return err
	}
	buf := make([]byte, size)
	r := t.cur.Gets(buf)
	t.printf("%v %q\n", r, buf[:r.N])
	return nil
}

func (t *terminal) cmdLine(_ []string) error {
	data, r := t.cur.ReadLine()
	t.printf("%v %q\n", r, data)
	return nil
}

func (t *terminal) cmdStatus(_ []string) error {
	mode := "block"
	if t.cur.Mode()&uart.ModeNonBlockingWrite != 0 {
		mode = "nonblock"
	}
	t.printf("uart %d: buffered=%d overflow=%t line=%v write-finished=%t mode=%s delim=%q\n",
		t.curNum, t.cur.Buffered(), t.cur.Overflowed(), t.cur.CanReadLine(),
		t.cur.WriteFinished(), mode, t.cur.Delimiter())
	t.printf("spi: transferring=%t\n", t.spi.IsTransferring())
	return nil
}

func (t *terminal) cmdClear(args []string) error {
	if len(args) != 1 {
		return errors.New("usage: clear rx|tx")
	}
	switch args[0] {
	case "rx":
		t.cur.ClearRxBuffer()
	case "tx":
		t.cur.ClearTxBuffer()
	default:
		return fmt.Errorf("unknown buffer %q", args[0])
	}
	return nil
}

func (t *terminal) cmdDelim(args []string) error {
	if len(args) != 1 {
		return errors.New("usage: delim <byte>")
	}
	b, err := byteArg(args[0])
	if err != nil {
		return err
	}
	t.cur.SetDelimiter(b)
	return nil
}

func (t *terminal) cmdMode(args []string) error {
	if len(args) != 1 {
		return errors.New("usage: mode block|nonblock")
	}
	switch args[0] {
	case "block":
		t.cur.SetMode(t.cur.Mode() &^ uart.ModeNonBlockingWrite)
	case "nonblock":
		t.cur.SetMode(t.cur.Mode() | uart.ModeNonBlockingWrite)
	default:
		return fmt.Errorf("unknown mode %q", args[0])
	}
	return nil
}

func (t *terminal) cmdSPI(args []string) error {
	fs := flag.NewFlagSet("spi", flag.ContinueOnError)
	fs.SetOutput(t.out)
	exclusive := fs.Bool("x", false, "Receive after the send phase instead of during it")
	count := fs.Int("n", -1, "Bytes to receive (default: send length)")
	if err := fs.Parse(args); err != nil {
		return err
	}

	send, err := hex.DecodeString(strings.Join(fs.Args(), ""))
	if err != nil {
		return fmt.Errorf("send data: %w", err)
	}
	n := *count
	if n < 0 {
		n = len(send)
	}
	recv := make([]byte, n)

	r := t.spi.Exchange(send, recv, !*exclusive)
	t.printf("%v mosi=%x miso=%x\n", r, send, recv)
	return nil
}

func (t *terminal) cmdNMEA(args []string) error {
	count, err := intArg(args, 0, 1)
	if err != nil {
		return err
	}
	dev := gps.NewUART(t.cur)
	parser := gps.NewParser()
	for i := 0; i < count; i++ {
		sentence, err := dev.NextSentence()
		if err != nil {
			return fmt.Errorf("read sentence: %w", err)
		}
		fix, err := parser.Parse(sentence)
		if err != nil {
			t.printf("%s (%v)\n", sentence, err)
			continue
		}
		t.printf("%s\n  valid=%t lat=%.5f lon=%.5f alt=%d sats=%d\n",
			sentence, fix.Valid, fix.Latitude, fix.Longitude, fix.Altitude, fix.Satellites)
	}
	return nil
}

func (t *terminal) cmdEvents(args []string) error {
	if len(args) == 1 && args[0] == "clear" {
		core.ClearEvents()
		return nil
	}
	for _, evt := range core.Events() {
		t.printf("#%d %s unit=%d v1=%d v2=%d\n",
			evt.Seq, core.EventName(evt.Kind), evt.Unit, evt.Value1, evt.Value2)
	}
	return nil
}

// intArg parses args[i], falling back to def when it is absent. A negative
// def makes the argument required.
func intArg(args []string, i, def int) (int, error) {
	if i >= len(args) {
		if def < 0 {
			return 0, errors.New("missing numeric argument")
		}
		return def, nil
	}
	n, err := strconv.Atoi(args[i])
	if err != nil || n < 0 {
		return 0, fmt.Errorf("bad count %q", args[i])
	}
	return n, nil
}

// byteArg accepts a single character, a Go escape such as \r, or a number.
func byteArg(s string) (byte, error) {
	if b, err := unescape(s); err == nil && len(b) == 1 {
		return b[0], nil
	}
	n, err := strconv.ParseUint(s, 0, 8)
	if err != nil {
		return 0, fmt.Errorf("bad byte %q", s)
	}
	return byte(n), nil
}

// unescape interprets Go string escapes in s.
func unescape(s string) ([]byte, error) {
	u, err := strconv.Unquote(`"` + strings.ReplaceAll(s, `"`, `\"`) + `"`)
	if err != nil {
		return nil, fmt.Errorf("bad escape in %q", s)
	}
	return []byte(u), nil
}
