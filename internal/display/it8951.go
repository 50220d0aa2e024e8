// SPDX-FileCopyrightText: Winni Neessen <wn@neessen.dev>
//
// SPDX-License-Identifier: MIT

package display

import (
	"context"
	"errors"
	"fmt"
	"image"
	"io"
	"log/slog"
	"math"
	"strings"
	"time"

	"periph.io/x/conn/v3"
	"periph.io/x/conn/v3/gpio"
	"periph.io/x/conn/v3/gpio/gpioreg"
	"periph.io/x/conn/v3/physic"
	"periph.io/x/conn/v3/spi"
	"periph.io/x/conn/v3/spi/spireg"
	"periph.io/x/host/v3"

	"github.com/wneessen/inkweather/internal/logger"
)

// SPI preambles announce the kind of the following transfer.
const (
	preambleCommand uint16 = 0x6000
	preambleWrite   uint16 = 0x0000
	preambleRead    uint16 = 0x1000
)

// Host commands.
const (
	cmdSysRun     uint16 = 0x0001
	cmdSleep      uint16 = 0x0003
	cmdRegRead    uint16 = 0x0010
	cmdRegWrite   uint16 = 0x0011
	cmdLoadArea   uint16 = 0x0021
	cmdLoadEnd    uint16 = 0x0022
	cmdDisplay    uint16 = 0x0034
	cmdVCOM       uint16 = 0x0039
	cmdDeviceInfo uint16 = 0x0302
)

// Registers.
const (
	regI80CPCR uint16 = 0x0004
	regLISAR   uint16 = 0x0208
	regLUTAFSR uint16 = 0x1224
)

const (
	bpp4         = 2
	endianLittle = 0
	rotate0      = 0

	deviceInfoWords = 20
	vcomAttempts    = 2
	spiSpeed        = 12 * physic.MegaHertz
	defaultMaxTx    = 4096
	resetPulse      = 100 * time.Millisecond
	readyPoll       = time.Millisecond
	defaultTimeout  = 10 * time.Second
)

var (
	ErrNotReady = errors.New("it8951: controller not ready")
	ErrNoPin    = errors.New("it8951: GPIO pin not found")
)

// Options configures the IT8951 connection.
type Options struct {
	SPIPort  string
	HRDYPin  string
	ResetPin string
	Width    int
	Height   int
	VCOM     float64
}

// DeviceInfo is the answer to the device info command.
type DeviceInfo struct {
	Width       int
	Height      int
	ImageBuffer uint32
	Firmware    string
	LUT         string
}

// IT8951 drives a panel attached to an IT8951 controller over SPI. HRDY signals that the
// controller accepts the next transfer.
type IT8951 struct {
	log     *logger.Logger
	conn    spi.Conn
	hrdy    gpio.PinIn
	reset   gpio.PinOut
	closer  io.Closer
	width   int
	height  int
	vcom    float64
	maxTx   int
	timeout time.Duration
	info    DeviceInfo
}

// NewIT8951 returns a driver on an already connected SPI port.
func NewIT8951(log *logger.Logger, c spi.Conn, hrdy gpio.PinIn, reset gpio.PinOut, opts Options) *IT8951 {
	maxTx := defaultMaxTx
	if limits, ok := c.(conn.Limits); ok && limits.MaxTxSize() > 0 {
		maxTx = limits.MaxTxSize()
	}
	return &IT8951{
		log:     log,
		conn:    c,
		hrdy:    hrdy,
		reset:   reset,
		width:   opts.Width,
		height:  opts.Height,
		vcom:    opts.VCOM,
		maxTx:   maxTx,
		timeout: defaultTimeout,
	}
}

// OpenIT8951 initializes the host drivers and opens the SPI port and GPIO pins.
func OpenIT8951(log *logger.Logger, opts Options) (*IT8951, error) {
	if _, err := host.Init(); err != nil {
		return nil, fmt.Errorf("failed to initialize host drivers: %w", err)
	}
	hrdy := gpioreg.ByName(opts.HRDYPin)
	if hrdy == nil {
		return nil, fmt.Errorf("%w: %s", ErrNoPin, opts.HRDYPin)
	}
	reset := gpioreg.ByName(opts.ResetPin)
	if reset == nil {
		return nil, fmt.Errorf("%w: %s", ErrNoPin, opts.ResetPin)
	}
	if err := hrdy.In(gpio.Float, gpio.NoEdge); err != nil {
		return nil, fmt.Errorf("failed to configure HRDY pin: %w", err)
	}

	port, err := spireg.Open(opts.SPIPort)
	if err != nil {
		return nil, fmt.Errorf("failed to open SPI port: %w", err)
	}
	c, err := port.Connect(spiSpeed, spi.Mode0, 8)
	if err != nil {
		_ = port.Close()
		return nil, fmt.Errorf("failed to connect to SPI port: %w", err)
	}
	panel := NewIT8951(log, c, hrdy, reset, opts)
	panel.closer = port
	return panel, nil
}

func (d *IT8951) Name() string {
	return DriverIT8951
}

// Close releases the SPI port if it was opened by OpenIT8951.
func (d *IT8951) Close() error {
	if d.closer != nil {
		return d.closer.Close()
	}
	return nil
}

// Info returns the device info read during the last initialization.
func (d *IT8951) Info() DeviceInfo {
	return d.info
}

// DisplayImage wakes the controller, shows the image at path and puts the controller back
// to sleep.
func (d *IT8951) DisplayImage(ctx context.Context, path string, mode RefreshMode) error {
	if err := d.init(ctx); err != nil {
		return err
	}
	img, err := LoadGray(path, d.width, d.height)
	if err != nil {
		return err
	}
	if err = d.show(ctx, img, mode); err != nil {
		return err
	}
	return d.sleep(ctx)
}

// Clear shows a white image with a full refresh.
func (d *IT8951) Clear(ctx context.Context) error {
	if err := d.init(ctx); err != nil {
		return err
	}
	if err := d.show(ctx, White(d.width, d.height), ModeFull); err != nil {
		return err
	}
	return d.sleep(ctx)
}

func (d *IT8951) init(ctx context.Context) error {
	if d.reset != nil {
		if err := d.reset.Out(gpio.Low); err != nil {
			return fmt.Errorf("failed to reset controller: %w", err)
		}
		if err := sleepCtx(ctx, resetPulse); err != nil {
			return err
		}
		if err := d.reset.Out(gpio.High); err != nil {
			return fmt.Errorf("failed to reset controller: %w", err)
		}
	}
	if err := d.command(ctx, cmdSysRun); err != nil {
		return fmt.Errorf("failed to start controller: %w", err)
	}

	if err := d.command(ctx, cmdDeviceInfo); err != nil {
		return fmt.Errorf("failed to request device info: %w", err)
	}
	words, err := d.read(ctx, deviceInfoWords)
	if err != nil {
		return fmt.Errorf("failed to read device info: %w", err)
	}
	d.info = parseDeviceInfo(words)
	if d.info.Width > 0 && d.info.Height > 0 {
		d.width, d.height = d.info.Width, d.info.Height
	}
	d.log.Debug("IT8951 initialized", slog.Int("width", d.width), slog.Int("height", d.height),
		slog.String("firmware", d.info.Firmware), slog.String("lut", d.info.LUT))

	if err = d.writeRegister(ctx, regI80CPCR, 0x0001); err != nil {
		return fmt.Errorf("failed to enable packed writes: %w", err)
	}
	return d.applyVCOM(ctx)
}

// applyVCOM sets the panel voltage. The register always holds millivolts; a write that does
// not read back is repeated once, a second mismatch is logged and the panel is used anyway.
func (d *IT8951) applyVCOM(ctx context.Context) error {
	mv := uint16(math.Round(math.Abs(d.vcom) * 1000))
	var reported uint16
	for attempt := 1; attempt <= vcomAttempts; attempt++ {
		if err := d.setVCOM(ctx, mv); err != nil {
			return err
		}
		var err error
		if reported, err = d.getVCOM(ctx); err != nil {
			return err
		}
		if reported == mv {
			d.log.Debug("VCOM set", slog.Float64("volts", d.vcom), slog.Int("attempt", attempt))
			return nil
		}
	}
	d.log.Warn("VCOM read-back does not match the requested value",
		slog.Int("requested_mv", int(mv)), slog.Int("reported_mv", int(reported)))
	return nil
}

func (d *IT8951) setVCOM(ctx context.Context, value uint16) error {
	if err := d.command(ctx, cmdVCOM); err != nil {
		return fmt.Errorf("failed to set VCOM: %w", err)
	}
	if err := d.write(ctx, 0x0001, value); err != nil {
		return fmt.Errorf("failed to set VCOM: %w", err)
	}
	return nil
}

func (d *IT8951) getVCOM(ctx context.Context) (uint16, error) {
	if err := d.command(ctx, cmdVCOM); err != nil {
		return 0, fmt.Errorf("failed to read VCOM: %w", err)
	}
	if err := d.write(ctx, 0x0000); err != nil {
		return 0, fmt.Errorf("failed to read VCOM: %w", err)
	}
	words, err := d.read(ctx, 1)
	if err != nil {
		return 0, fmt.Errorf("failed to read VCOM: %w", err)
	}
	return words[0], nil
}

func (d *IT8951) show(ctx context.Context, img *image.Gray, mode RefreshMode) error {
	w, h := img.Bounds().Dx(), img.Bounds().Dy()
	addr := d.info.ImageBuffer
	if err := d.writeRegister(ctx, regLISAR+2, uint16(addr>>16)); err != nil {
		return fmt.Errorf("failed to set image buffer address: %w", err)
	}
	if err := d.writeRegister(ctx, regLISAR, uint16(addr&0xFFFF)); err != nil {
		return fmt.Errorf("failed to set image buffer address: %w", err)
	}

	if err := d.command(ctx, cmdLoadArea); err != nil {
		return fmt.Errorf("failed to start image load: %w", err)
	}
	if err := d.write(ctx, endianLittle<<8|bpp4<<4|rotate0, 0, 0, uint16(w), uint16(h)); err != nil {
		return fmt.Errorf("failed to start image load: %w", err)
	}
	for y := 0; y < h; y++ {
		row := img.Pix[y*img.Stride : y*img.Stride+w]
		if err := d.writeBytes(ctx, pack4bpp(row)); err != nil {
			return fmt.Errorf("failed to load image row %d: %w", y, err)
		}
	}
	if err := d.command(ctx, cmdLoadEnd); err != nil {
		return fmt.Errorf("failed to end image load: %w", err)
	}

	if err := d.waitDisplay(ctx); err != nil {
		return err
	}
	if err := d.command(ctx, cmdDisplay); err != nil {
		return fmt.Errorf("failed to refresh display: %w", err)
	}
	if err := d.write(ctx, 0, 0, uint16(w), uint16(h), uint16(mode)); err != nil {
		return fmt.Errorf("failed to refresh display: %w", err)
	}
	return d.waitDisplay(ctx)
}

func (d *IT8951) sleep(ctx context.Context) error {
	if err := d.command(ctx, cmdSleep); err != nil {
		return fmt.Errorf("failed to put controller to sleep: %w", err)
	}
	return nil
}

// waitDisplay waits until the controller has finished all pending LUT operations.
func (d *IT8951) waitDisplay(ctx context.Context) error {
	deadline := time.Now().Add(d.timeout)
	for {
		busy, err := d.readRegister(ctx, regLUTAFSR)
		if err != nil {
			return fmt.Errorf("failed to read display state: %w", err)
		}
		if busy == 0 {
			return nil
		}
		if time.Now().After(deadline) {
			return fmt.Errorf("%w: display refresh did not finish", ErrNotReady)
		}
		if err = sleepCtx(ctx, readyPoll); err != nil {
			return err
		}
	}
}

func (d *IT8951) readRegister(ctx context.Context, reg uint16) (uint16, error) {
	if err := d.command(ctx, cmdRegRead); err != nil {
		return 0, err
	}
	if err := d.write(ctx, reg); err != nil {
		return 0, err
	}
	words, err := d.read(ctx, 1)
	if err != nil {
		return 0, err
	}
	return words[0], nil
}

func (d *IT8951) writeRegister(ctx context.Context, reg, value uint16) error {
	if err := d.command(ctx, cmdRegWrite); err != nil {
		return err
	}
	return d.write(ctx, reg, value)
}

func (d *IT8951) command(ctx context.Context, cmd uint16) error {
	return d.tx(ctx, words(preambleCommand, cmd), nil)
}

func (d *IT8951) write(ctx context.Context, args ...uint16) error {
	return d.tx(ctx, words(append([]uint16{preambleWrite}, args...)...), nil)
}

// writeBytes sends raw data words, split into transfers the SPI port accepts.
func (d *IT8951) writeBytes(ctx context.Context, data []byte) error {
	chunk := (d.maxTx - 2) &^ 1
	for len(data) > 0 {
		n := min(chunk, len(data))
		frame := make([]byte, 0, n+2)
		frame = append(frame, words(preambleWrite)...)
		frame = append(frame, data[:n]...)
		if err := d.tx(ctx, frame, nil); err != nil {
			return err
		}
		data = data[n:]
	}
	return nil
}

// read reads n words. The controller answers with a dummy word after the preamble.
func (d *IT8951) read(ctx context.Context, n int) ([]uint16, error) {
	w := make([]byte, 4+2*n)
	copy(w, words(preambleRead))
	r := make([]byte, len(w))
	if err := d.tx(ctx, w, r); err != nil {
		return nil, err
	}
	out := make([]uint16, n)
	for i := range out {
		out[i] = uint16(r[4+2*i])<<8 | uint16(r[5+2*i])
	}
	return out, nil
}

func (d *IT8951) tx(ctx context.Context, w, r []byte) error {
	if err := d.waitReady(ctx); err != nil {
		return err
	}
	if err := d.conn.Tx(w, r); err != nil {
		return fmt.Errorf("SPI transfer failed: %w", err)
	}
	return nil
}

func (d *IT8951) waitReady(ctx context.Context) error {
	deadline := time.Now().Add(d.timeout)
	for d.hrdy.Read() != gpio.High {
		if time.Now().After(deadline) {
			return ErrNotReady
		}
		if err := sleepCtx(ctx, readyPoll); err != nil {
			return err
		}
	}
	return nil
}

func parseDeviceInfo(w []uint16) DeviceInfo {
	return DeviceInfo{
		Width:       int(w[0]),
		Height:      int(w[1]),
		ImageBuffer: uint32(w[3])<<16 | uint32(w[2]),
		Firmware:    wordString(w[4:12]),
		LUT:         wordString(w[12:20]),
	}
}

// wordString decodes a NUL padded string packed into big endian words.
func wordString(w []uint16) string {
	buf := make([]byte, 0, 2*len(w))
	for _, v := range w {
		buf = append(buf, byte(v>>8), byte(v))
	}
	return strings.TrimRight(string(buf), "\x00 ")
}

// pack4bpp reduces 8 bit grey values to 4 bit and packs four pixels per little endian word.
// Rows are padded with white to a multiple of four pixels.
func pack4bpp(row []byte) []byte {
	n := (len(row) + 3) / 4
	out := make([]byte, 0, 2*n)
	for i := 0; i < n; i++ {
		var word uint16
		for j := 0; j < 4; j++ {
			px := byte(0xFF)
			if idx := i*4 + j; idx < len(row) {
				px = row[idx]
			}
			word |= uint16(px>>4) << (4 * j)
		}
		out = append(out, byte(word>>8), byte(word))
	}
	return out
}

func words(values ...uint16) []byte {
	out := make([]byte, 0, 2*len(values))
	for _, v := range values {
		out = append(out, byte(v>>8), byte(v))
	}
	return out
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
