package surface

import (
	"errors"
	"fmt"
	"image"
	"sync"

	xdraw "golang.org/x/image/draw"
	"periph.io/x/conn/v3/display"
	"periph.io/x/conn/v3/i2c/i2creg"
	"periph.io/x/conn/v3/physic"
	"periph.io/x/conn/v3/spi"
	"periph.io/x/conn/v3/spi/spireg"
	"periph.io/x/devices/v3/nrzled"
	"periph.io/x/devices/v3/ssd1306"
	"periph.io/x/extra/devices/screen"
	"periph.io/x/host/v3"

	"github.com/coreman2200/starfield/internal/render"
)

// Opener acquires a periph display and whatever bus it sits on. release
// may be nil.
type Opener func() (d display.Drawer, release func() error, err error)

// Display is a surface backed by a periph.io display.Drawer. The scene is
// rendered at the logical size and scaled onto the device bounds.
type Display struct {
	Resizer

	// Limit is applied to every scaled frame before it reaches the device.
	Limit Limiter

	open Opener
	mu   sync.Mutex
	w, h int
}

func NewDisplay(open Opener, width, height int) *Display {
	return &Display{open: open, w: width, h: height}
}

func (d *Display) Size() (int, int) {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.w, d.h
}

func (d *Display) Resize(width, height int) {
	d.mu.Lock()
	d.w, d.h = width, height
	d.mu.Unlock()
	d.Notify(width, height)
}

func (d *Display) Bind() (render.Context, error) {
	if d.open == nil {
		return nil, errors.New("surface: display has no opener")
	}
	dev, release, err := d.open()
	if err != nil {
		return nil, err
	}
	b := dev.Bounds()
	if b.Empty() {
		_ = dev.Halt()
		if release != nil {
			_ = release()
		}
		return nil, fmt.Errorf("surface: display %s has empty bounds", dev)
	}
	return &displayContext{dev: dev, release: release, limit: d.Limit, scaled: image.NewRGBA(b)}, nil
}

type displayContext struct {
	dev     display.Drawer
	release func() error
	limit   Limiter
	scaled  *image.RGBA
	closed  bool
}

func (c *displayContext) Present(f *image.RGBA) error {
	if c.closed {
		return ErrClosed
	}
	b := c.scaled.Rect
	xdraw.ApproxBiLinear.Scale(c.scaled, b, f, f.Rect, xdraw.Src, nil)
	c.limit.Apply(c.scaled)
	if err := c.dev.Draw(b, c.scaled, b.Min); err != nil {
		return fmt.Errorf("surface: draw %s: %w", c.dev, err)
	}
	return nil
}

func (c *displayContext) Close() error {
	if c.closed {
		return ErrClosed
	}
	c.closed = true
	err := c.dev.Halt()
	if c.release != nil {
		err = errors.Join(err, c.release())
	}
	return err
}

// Console draws a strip of pixels as ANSI blocks on stdout.
func Console(pixels int) Opener {
	return func() (display.Drawer, func() error, error) {
		if pixels <= 0 {
			return nil, nil, errors.New("surface: console needs pixels > 0")
		}
		return screen.New(pixels), nil, nil
	}
}

// NRZLED drives a WS2812-style strip over the named SPI port ("" picks the first).
func NRZLED(port string, pixels int, freq physic.Frequency) Opener {
	return func() (display.Drawer, func() error, error) {
		if _, err := host.Init(); err != nil {
			return nil, nil, fmt.Errorf("surface: periph host init: %w", err)
		}
		p, err := spireg.Open(port)
		if err != nil {
			return nil, nil, fmt.Errorf("surface: open spi %q: %w", port, err)
		}
		d, err := NRZLEDPort(p, pixels, freq)
		if err != nil {
			_ = p.Close()
			return nil, nil, err
		}
		return d, p.Close, nil
	}
}

// NRZLEDPort wraps an already open SPI port.
func NRZLEDPort(p spi.Port, pixels int, freq physic.Frequency) (display.Drawer, error) {
	d, err := nrzled.NewSPI(p, &nrzled.Opts{NumPixels: pixels, Channels: 3, Freq: freq})
	if err != nil {
		return nil, fmt.Errorf("surface: nrzled: %w", err)
	}
	return d, nil
}

// SSD1306 drives a monochrome OLED over the named I2C bus.
func SSD1306(bus string, width, height int) Opener {
	return func() (display.Drawer, func() error, error) {
		if _, err := host.Init(); err != nil {
			return nil, nil, fmt.Errorf("surface: periph host init: %w", err)
		}
		b, err := i2creg.Open(bus)
		if err != nil {
			return nil, nil, fmt.Errorf("surface: open i2c %q: %w", bus, err)
		}
		d, err := ssd1306.NewI2C(b, &ssd1306.Opts{W: width, H: height})
		if err != nil {
			_ = b.Close()
			return nil, nil, fmt.Errorf("surface: ssd1306: %w", err)
		}
		return d, b.Close, nil
	}
}
