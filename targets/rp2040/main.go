//go:build rp2040

package main

import (
	"device/rp"
	"machine"
	"runtime/interrupt"
	"time"

	"serio/core"
	"serio/spi"
	"serio/uart"
)

// tickUs is the service rate of the PL011 callbacks. At 115200 baud a
// 32-byte FIFO fills in about 2.8ms.
const tickUs = 250

var (
	pl011s [2]*PL011
	pioSPI *PIOSPI
)

func main() {
	core.SetDebugWriter(func(s string) { println(s) })

	pl011s[0] = newPL011(machine.UART0, uart0Base, machine.UARTConfig{
		BaudRate: 115200, TX: machine.UART0_TX_PIN, RX: machine.UART0_RX_PIN,
	})
	pl011s[1] = newPL011(machine.UART1, uart1Base, machine.UARTConfig{
		BaudRate: 115200, TX: machine.UART1_TX_PIN, RX: machine.UART1_RX_PIN,
	})

	cfg := uart.DefaultConfig()
	cfg.TxFifoDepth = pl011FifoDepth
	cfg.Timeout = time.Second
	var units []*uart.UART
	for i, p := range pl011s {
		c := cfg
		c.Unit = uint8(i)
		units = append(units, uart.New(p, c))
	}
	uarts := core.NewRegistry(units...)

	tick := interrupt.New(rp.IRQ_TIMER_IRQ_1, handleTick)
	tick.Enable()
	startTick(tickUs)

	pioSPI = NewPIOSPI(0, machine.GPIO18, machine.GPIO19, machine.GPIO16, 1000000)
	engine := spi.New(pioSPI, spi.Config{
		IdleStatus: pioSPIIdle,
		FifoDepth:  4,
		Timeout:    100 * time.Millisecond,
	})
	pioIRQ := interrupt.New(rp.IRQ_PIO0_IRQ_0, handlePIO0)
	pioIRQ.Enable()

	console, err := uarts.Open(0)
	if err != nil {
		println("no uart:", err.Error())
		return
	}
	console.Puts("serio ready\r\n")

	runConsole(console, engine)
}

func handleTick(interrupt.Interrupt) {
	ackTick()
	for _, p := range pl011s {
		if p != nil {
			p.service()
		}
	}
}

func handlePIO0(interrupt.Interrupt) {
	if pioSPI != nil {
		pioSPI.handleInterrupt()
	}
}

// runConsole echoes each line it receives. A line starting with "spi "
// clocks the remaining bytes over the PIO bus and prints what came back.
// A pause longer than the UART timeout keeps the partial line.
func runConsole(console *uart.UART, engine *spi.Engine) {
	lines := uart.NewLineBuffer(64)
	for {
		text, r := lines.Next(console)
		if r.Status == core.StatusTimedOut && console.Overflowed() {
			lines.Reset()
			console.ClearRxBuffer()
			console.Puts("rx overflow\r\n")
		}
		if !r.OK() {
			continue
		}

		if len(text) > 4 && string(text[:4]) == "spi " {
			payload := trimLine(text[4:])
			reply := make([]byte, len(payload))
			res := engine.Exchange(payload, reply, true)
			console.Puts("spi " + res.String() + " ")
			for _, b := range reply {
				console.Puts(core.Hex8(b))
			}
			console.Puts("\r\n")
			continue
		}
		console.Send(text)
	}
}

func trimLine(b []byte) []byte {
	for len(b) > 0 && (b[len(b)-1] == '\n' || b[len(b)-1] == '\r') {
		b = b[:len(b)-1]
	}
	return b
}
