package display

import (
	"fmt"
	"time"

	"periph.io/x/conn/v3/gpio"
)

const (
	cmdClear        = 0x01
	cmdHome         = 0x02
	cmdEntryMode    = 0x04
	cmdDisplayCtl   = 0x08
	cmdFunctionSet  = 0x20
	cmdSetDDRAMAddr = 0x80

	entryLeft   = 0x02
	displayOn   = 0x04
	twoLine     = 0x08
	fiveByEight = 0x00
	fourBitMode = 0x00
)

var rowOffsets = [4]byte{0x00, 0x40, 0x14, 0x54}

// Pin is the output half of a periph gpio.PinOut.
type Pin interface {
	Out(l gpio.Level) error
}

type LCDPins struct {
	RS, E          Pin
	D4, D5, D6, D7 Pin
}

// HD44780 is a character LCD wired in 4-bit mode.
type HD44780 struct {
	rs, e Pin
	data  [4]Pin
	cols  int
	rows  int
	sleep func(time.Duration)
}

// NewHD44780 initialises the controller and clears the screen.
func NewHD44780(pins LCDPins, cols, rows int, sleep func(time.Duration)) (*HD44780, error) {
	if rows < 1 || rows > len(rowOffsets) {
		return nil, fmt.Errorf("hd44780: rows must be 1-%d, got %d", len(rowOffsets), rows)
	}
	if cols < 1 {
		return nil, fmt.Errorf("hd44780: cols must be positive, got %d", cols)
	}
	if sleep == nil {
		sleep = time.Sleep
	}
	d := &HD44780{
		rs:    pins.RS,
		e:     pins.E,
		data:  [4]Pin{pins.D4, pins.D5, pins.D6, pins.D7},
		cols:  cols,
		rows:  rows,
		sleep: sleep,
	}

	for _, b := range []byte{
		0x33, 0x32,
		cmdDisplayCtl | displayOn,
		cmdFunctionSet | fourBitMode | twoLine | fiveByEight,
		cmdEntryMode | entryLeft,
	} {
		if err := d.send(b, false); err != nil {
			return nil, fmt.Errorf("hd44780: init: %w", err)
		}
	}
	if err := d.Clear(); err != nil {
		return nil, err
	}
	return d, nil
}

func (d *HD44780) Clear() error {
	if err := d.send(cmdClear, false); err != nil {
		return fmt.Errorf("hd44780: clear: %w", err)
	}
	d.sleep(3 * time.Millisecond)
	return nil
}

func (d *HD44780) Home() error {
	if err := d.send(cmdHome, false); err != nil {
		return fmt.Errorf("hd44780: home: %w", err)
	}
	d.sleep(3 * time.Millisecond)
	return nil
}

// Write prints text from the current cursor. '\n' moves to the start of the
// next row, staying on the last row once reached. Characters past the last
// column are dropped and non-ASCII runes print as '?'.
func (d *HD44780) Write(text string, page int) error {
	row, col := 0, 0
	for _, r := range text {
		if r == '\n' {
			row = min(row+1, d.rows-1)
			col = 0
			if err := d.setCursor(col, row); err != nil {
				return fmt.Errorf("hd44780: page %d: %w", page, err)
			}
			continue
		}
		if col >= d.cols {
			continue
		}
		if r > 0x7E || r < 0x20 {
			r = '?'
		}
		if err := d.send(byte(r), true); err != nil {
			return fmt.Errorf("hd44780: page %d: %w", page, err)
		}
		col++
	}
	return nil
}

func (d *HD44780) setCursor(col, row int) error {
	return d.send(cmdSetDDRAMAddr|(byte(col)+rowOffsets[row]), false)
}

func (d *HD44780) send(b byte, char bool) error {
	d.sleep(time.Millisecond)
	if err := d.rs.Out(gpio.Level(char)); err != nil {
		return err
	}
	if err := d.write4(b >> 4); err != nil {
		return err
	}
	return d.write4(b & 0x0F)
}

func (d *HD44780) write4(nibble byte) error {
	for i, p := range d.data {
		if err := p.Out(gpio.Level(nibble&(1<<i) != 0)); err != nil {
			return err
		}
	}
	return d.pulseEnable()
}

func (d *HD44780) pulseEnable() error {
	for _, l := range []gpio.Level{gpio.Low, gpio.High, gpio.Low} {
		if err := d.e.Out(l); err != nil {
			return err
		}
		d.sleep(time.Microsecond)
	}
	return nil
}
