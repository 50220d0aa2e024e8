// SPDX-FileCopyrightText: Winni Neessen <wn@neessen.dev>
//
// SPDX-License-Identifier: MIT

package display

import (
	"context"
	"errors"
	"image"
	"image/color"
	"image/png"
	"os"
	"path/filepath"
	"slices"
	"sync"
	"testing"
	"time"

	"periph.io/x/conn/v3"
	"periph.io/x/conn/v3/gpio"
	"periph.io/x/conn/v3/gpio/gpiotest"
	"periph.io/x/conn/v3/spi"

	"github.com/wneessen/inkweather/internal/logger"
)

// fakeController emulates the parts of an IT8951 the driver talks to.
type fakeController struct {
	mu         sync.Mutex
	info       []uint16
	regs       map[uint16]uint16
	vcom       uint16
	vcomWrites []uint16
	dropVCOM   int
	commands   []uint16
	lastCmd    uint16
	args       []uint16
	loadArgs   []uint16
	dpyArgs    []uint16
	pixels     []byte
	frames     int
	maxFrame   int
}

func newFakeController(width, height uint16, addr uint32) *fakeController {
	info := make([]uint16, deviceInfoWords)
	info[0], info[1] = width, height
	info[2], info[3] = uint16(addr&0xFFFF), uint16(addr>>16)
	copy(info[4:], []uint16{0x7630, 0x2e31, 0x2e30}) // "v0.1.0"
	copy(info[12:], []uint16{0x4d36, 0x3431})        // "M641"
	return &fakeController{info: info, regs: make(map[uint16]uint16)}
}

func (f *fakeController) String() string { return "fake-it8951" }
func (f *fakeController) Duplex() conn.Duplex { return conn.Full }
func (f *fakeController) TxPackets([]spi.Packet) error {
	return errors.New("packets not supported")
}

func (f *fakeController) Tx(w, r []byte) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.frames++
	f.maxFrame = max(f.maxFrame, len(w))

	switch be16(w[0:2]) {
	case preambleCommand:
		f.lastCmd = be16(w[2:4])
		f.commands = append(f.commands, f.lastCmd)
		f.args = nil
	case preambleWrite:
		if f.lastCmd == cmdLoadArea && len(f.args) == 5 {
			f.pixels = append(f.pixels, w[2:]...)
			return nil
		}
		for i := 2; i+1 < len(w); i += 2 {
			f.args = append(f.args, be16(w[i:i+2]))
		}
		switch f.lastCmd {
		case cmdLoadArea:
			f.loadArgs = slices.Clone(f.args)
		case cmdDisplay:
			f.dpyArgs = slices.Clone(f.args)
		case cmdRegWrite:
			if len(f.args) == 2 {
				f.regs[f.args[0]] = f.args[1]
			}
		case cmdVCOM:
			if len(f.args) == 2 && f.args[0] == 1 {
				f.vcomWrites = append(f.vcomWrites, f.args[1])
				if f.dropVCOM > 0 {
					f.dropVCOM--
					break
				}
				f.vcom = f.args[1]
			}
		}
	case preambleRead:
		var answer []uint16
		switch f.lastCmd {
		case cmdDeviceInfo:
			answer = f.info
		case cmdRegRead:
			answer = []uint16{f.regs[f.args[0]]}
		case cmdVCOM:
			answer = []uint16{f.vcom}
		}
		for i, v := range answer {
			if 5+2*i < len(r) {
				r[4+2*i], r[5+2*i] = byte(v>>8), byte(v)
			}
		}
	}
	return nil
}

func be16(b []byte) uint16 {
	return uint16(b[0])<<8 | uint16(b[1])
}

func writeTestPNG(t *testing.T, width, height int) string {
	t.Helper()
	img := image.NewGray(image.Rect(0, 0, width, height))
	for x := 0; x < width; x++ {
		for y := 0; y < height; y++ {
			img.SetGray(x, y, color.Gray{Y: uint8(x * 0x10)})
		}
	}
	path := filepath.Join(t.TempDir(), "dash.png")
	file, err := os.Create(path)
	if err != nil {
		t.Fatalf("failed to create test image: %s", err)
	}
	defer func() { _ = file.Close() }()
	if err = png.Encode(file, img); err != nil {
		t.Fatalf("failed to encode test image: %s", err)
	}
	return path
}

func testPanel(ctrl *fakeController, hrdy gpio.Level) (*IT8951, *gpiotest.Pin) {
	reset := &gpiotest.Pin{N: "RESET", L: gpio.Low}
	panel := NewIT8951(logger.Discard(), ctrl, &gpiotest.Pin{N: "HRDY", L: hrdy}, reset,
		Options{Width: 100, Height: 100, VCOM: -1.45})
	panel.timeout = 50 * time.Millisecond
	return panel, reset
}

func TestIT8951_DisplayImage(t *testing.T) {
	ctrl := newFakeController(8, 4, 0x00123456)
	panel, reset := testPanel(ctrl, gpio.High)

	if err := panel.DisplayImage(t.Context(), writeTestPNG(t, 8, 4), ModeGreyscale); err != nil {
		t.Fatalf("failed to display image: %s", err)
	}

	t.Run("controller is started and put to sleep", func(t *testing.T) {
		if ctrl.commands[0] != cmdSysRun || ctrl.commands[1] != cmdDeviceInfo {
			t.Errorf("expected SYS_RUN and GET_DEV_INFO first, got %#v", ctrl.commands[:2])
		}
		if last := ctrl.commands[len(ctrl.commands)-1]; last != cmdSleep {
			t.Errorf("expected SLEEP last, got 0x%04X", last)
		}
		if reset.L != gpio.High {
			t.Error("expected reset pin to be released")
		}
	})
	t.Run("device info is used", func(t *testing.T) {
		info := panel.Info()
		if info.Width != 8 || info.Height != 4 || info.ImageBuffer != 0x00123456 {
			t.Errorf("unexpected device info: %+v", info)
		}
		if info.Firmware != "v0.1.0" || info.LUT != "M641" {
			t.Errorf("unexpected versions: %q %q", info.Firmware, info.LUT)
		}
		if ctrl.regs[regLISAR] != 0x3456 || ctrl.regs[regLISAR+2] != 0x0012 {
			t.Errorf("expected image buffer address to be set, got %#v", ctrl.regs)
		}
		if ctrl.regs[regI80CPCR] != 1 {
			t.Error("expected packed writes to be enabled")
		}
	})
	t.Run("VCOM is set in millivolts", func(t *testing.T) {
		if !slices.Equal(ctrl.vcomWrites, []uint16{1450}) {
			t.Errorf("expected VCOM writes to be: [1450], got %v", ctrl.vcomWrites)
		}
	})
	t.Run("image is loaded as 4bpp and displayed in the requested mode", func(t *testing.T) {
		if !slices.Equal(ctrl.loadArgs, []uint16{0x0020, 0, 0, 8, 4}) {
			t.Errorf("unexpected load area arguments: %v", ctrl.loadArgs)
		}
		if len(ctrl.pixels) != 16 {
			t.Fatalf("expected 16 bytes of pixel data, got %d", len(ctrl.pixels))
		}
		if !slices.Equal(ctrl.pixels[:4], []byte{0x32, 0x10, 0x76, 0x54}) {
			t.Errorf("unexpected packed pixels: % X", ctrl.pixels[:4])
		}
		if !slices.Equal(ctrl.dpyArgs, []uint16{0, 0, 8, 4, uint16(ModeGreyscale)}) {
			t.Errorf("unexpected display area arguments: %v", ctrl.dpyArgs)
		}
	})
}

func TestIT8951_Clear(t *testing.T) {
	ctrl := newFakeController(8, 2, 0)
	panel, _ := testPanel(ctrl, gpio.High)
	if err := panel.Clear(t.Context()); err != nil {
		t.Fatalf("failed to clear panel: %s", err)
	}
	if len(ctrl.pixels) != 8 {
		t.Fatalf("expected 8 bytes of pixel data, got %d", len(ctrl.pixels))
	}
	for _, b := range ctrl.pixels {
		if b != 0xFF {
			t.Fatalf("expected white pixels, got % X", ctrl.pixels)
		}
	}
	if ctrl.dpyArgs[4] != uint16(ModeFull) {
		t.Errorf("expected a full refresh, got mode %d", ctrl.dpyArgs[4])
	}
}

func TestIT8951_VCOMRetry(t *testing.T) {
	t.Run("a dropped write is repeated with the same millivolts", func(t *testing.T) {
		ctrl := newFakeController(4, 1, 0)
		ctrl.dropVCOM = 1
		panel, _ := testPanel(ctrl, gpio.High)
		if err := panel.Clear(t.Context()); err != nil {
			t.Fatalf("failed to clear panel: %s", err)
		}
		if !slices.Equal(ctrl.vcomWrites, []uint16{1450, 1450}) {
			t.Errorf("expected VCOM writes to be: [1450 1450], got %v", ctrl.vcomWrites)
		}
		if ctrl.vcom != 1450 {
			t.Errorf("expected VCOM to be: %d, got %d", 1450, ctrl.vcom)
		}
	})
	t.Run("a controller that never accepts is still used", func(t *testing.T) {
		ctrl := newFakeController(4, 1, 0)
		ctrl.dropVCOM = 10
		panel, _ := testPanel(ctrl, gpio.High)
		if err := panel.Clear(t.Context()); err != nil {
			t.Fatalf("failed to clear panel: %s", err)
		}
		if !slices.Equal(ctrl.vcomWrites, []uint16{1450, 1450}) {
			t.Errorf("expected VCOM writes to be: [1450 1450], got %v", ctrl.vcomWrites)
		}
		for _, v := range ctrl.vcomWrites {
			if v < 1000 {
				t.Errorf("expected VCOM writes in millivolts only, got %d", v)
			}
		}
	})
}

func TestIT8951_Errors(t *testing.T) {
	t.Run("busy controller times out", func(t *testing.T) {
		panel, _ := testPanel(newFakeController(4, 1, 0), gpio.Low)
		if err := panel.Clear(t.Context()); !errors.Is(err, ErrNotReady) {
			t.Errorf("expected ErrNotReady, got %v", err)
		}
	})
	t.Run("canceled context stops waiting", func(t *testing.T) {
		panel, _ := testPanel(newFakeController(4, 1, 0), gpio.Low)
		panel.timeout = time.Hour
		ctx, cancel := context.WithCancel(t.Context())
		cancel()
		if err := panel.Clear(ctx); !errors.Is(err, context.Canceled) {
			t.Errorf("expected context.Canceled, got %v", err)
		}
	})
	t.Run("missing image fails before loading", func(t *testing.T) {
		ctrl := newFakeController(4, 1, 0)
		panel, _ := testPanel(ctrl, gpio.High)
		if err := panel.DisplayImage(t.Context(), filepath.Join(t.TempDir(), "none.png"), ModeFull); err == nil {
			t.Error("expected error")
		}
		if slices.Contains(ctrl.commands, cmdLoadArea) {
			t.Error("expected no image load")
		}
	})
}

func TestIT8951_writeBytes(t *testing.T) {
	ctrl := newFakeController(4, 1, 0)
	panel, _ := testPanel(ctrl, gpio.High)
	panel.maxTx = 6
	if err := panel.writeBytes(t.Context(), make([]byte, 10)); err != nil {
		t.Fatalf("failed to write data: %s", err)
	}
	if ctrl.frames != 3 {
		t.Errorf("expected 3 transfers, got %d", ctrl.frames)
	}
	if ctrl.maxFrame > 6 {
		t.Errorf("expected transfers of at most 6 bytes, got %d", ctrl.maxFrame)
	}
}

func TestPack4bpp(t *testing.T) {
	got := pack4bpp([]byte{0x00, 0x10, 0x20, 0x30, 0xF0})
	want := []byte{0x32, 0x10, 0xFF, 0xFF}
	if !slices.Equal(got, want) {
		t.Errorf("expected packed row to be: % X, got % X", want, got)
	}
}
