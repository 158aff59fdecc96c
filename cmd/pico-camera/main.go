//go:build rp2040

// Command pico-camera runs the camera service on a Pico wired to an Arducam
// Mega module on SPI0. Captures are framed and streamed out of UART0 for
// cmd/camrecv; GP15 is a capture button.
package main

import (
	"context"
	"machine"
	"time"

	uartx "github.com/jangala-dev/tinygo-uartx/uartx"

	"arducam-go/bus"
	"arducam-go/drivers/arducam"
	"arducam-go/services/camera"
	"arducam-go/services/config"
	"arducam-go/services/trigger"
	"arducam-go/types"
	"arducam-go/x/camframe"
	"arducam-go/x/shmring"
)

// device selects the embedded config; override with
// -ldflags "-X main.device=pico-3mp".
var device = "pico-5mp"

const (
	pinSCK    = machine.GPIO18
	pinSDO    = machine.GPIO19
	pinSDI    = machine.GPIO16
	pinCS     = machine.GPIO17
	pinButton = machine.GPIO15

	uartBaud = 921600
	pipeSize = 8192
)

func main() {
	time.Sleep(2 * time.Second)
	println("[main] boot, device", device)
	ctx := config.WithDevice(context.Background(), device)

	// SPI0 + select line (idle high).
	spi := machine.SPI0
	if err := spi.Configure(machine.SPIConfig{
		Frequency: 8 * machine.MHz,
		SCK:       pinSCK,
		SDO:       pinSDO,
		SDI:       pinSDI,
		Mode:      0,
	}); err != nil {
		println("[main] spi configure failed:", err.Error())
		return
	}
	pinCS.Configure(machine.PinConfig{Mode: machine.PinOutput})
	pinCS.High()

	// UART0 carries framed captures. The pipe decouples the drain loop from
	// the UART so SPI reads are not paced by the serial line.
	u := uartx.UART0
	_ = u.Configure(uartx.UARTConfig{
		BaudRate: uartBaud,
		TX:       machine.UART0_TX_PIN,
		RX:       machine.UART0_RX_PIN,
	})
	pipe := shmring.NewPipe(shmring.New(pipeSize))
	go pump(pipe, u)

	dev := arducam.New(spi, pinCS.Set, arducam.Config{
		WaitSettle:     true,
		IdleTimeout:    time.Second,
		CaptureTimeout: 5 * time.Second,
	})

	b := bus.NewBus(8)
	mon := b.NewConnection("main")
	states := mon.Subscribe(camera.TopicState)

	go camera.New(b.NewConnection("camera"), dev, camframe.NewWriter(pipe)).Run(ctx)
	config.NewConfigService().Start(ctx, b.NewConnection("config"))

	pinButton.Configure(machine.PinConfig{Mode: machine.PinInputPullup})
	btn := trigger.New(b.NewConnection("button"), buttonPin{pinButton}, trigger.Config{
		Topic:  camera.TopicCtrlCapture,
		Invert: true,
	})
	go func() {
		if err := btn.Run(ctx); err != nil {
			println("[main] button disabled:", err.Error())
		}
	}()

	for m := range states.Channel() {
		st, ok := m.Payload.(types.CameraState)
		if !ok {
			continue
		}
		println("[camera]", string(st.Level), st.Sensor, "captures:", st.Captures, st.Error,
			"button drops:", btn.ISRDrops())
	}
}

// pump copies the pipe to the UART until the pipe is closed.
func pump(p *shmring.Pipe, u *uartx.UART) {
	buf := make([]byte, 256)
	for {
		n, err := p.Read(buf)
		if n > 0 {
			if _, werr := u.Write(buf[:n]); werr != nil {
				println("[uart] write failed:", werr.Error())
			}
		}
		if err != nil {
			return
		}
	}
}

// buttonPin adapts a machine.Pin to trigger.Pin.
type buttonPin struct{ p machine.Pin }

func (b buttonPin) Get() bool { return b.p.Get() }

func (b buttonPin) SetIRQ(handler func()) error {
	return b.p.SetInterrupt(machine.PinToggle, func(machine.Pin) { handler() })
}

func (b buttonPin) ClearIRQ() error {
	var zero machine.PinChange
	return b.p.SetInterrupt(zero, nil)
}
