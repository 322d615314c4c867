package vane

import (
	"errors"
	"fmt"
)

var ErrChannel = errors.New("mcp3008: channel out of range")

const (
	adcChannels  = 8
	adcFullScale = 1023
)

// Conn is a full-duplex SPI transfer. periph's spi.Conn satisfies it.
type Conn interface {
	Tx(w, r []byte) error
}

// MCP3008 is an 8-channel 10-bit ADC.
type MCP3008 struct {
	conn Conn
	vref float64
}

func NewMCP3008(conn Conn, vref float64) *MCP3008 {
	return &MCP3008{conn: conn, vref: vref}
}

// Read returns the raw single-ended conversion for channel.
func (m *MCP3008) Read(channel int) (uint16, error) {
	if channel < 0 || channel >= adcChannels {
		return 0, fmt.Errorf("%w: %d", ErrChannel, channel)
	}
	w := []byte{0x01, 0x80 | byte(channel)<<4, 0x00}
	r := make([]byte, len(w))
	if err := m.conn.Tx(w, r); err != nil {
		return 0, fmt.Errorf("mcp3008: transfer: %w", err)
	}
	return uint16(r[1]&0x03)<<8 | uint16(r[2]), nil
}

func (m *MCP3008) Volts(raw uint16) float64 {
	return float64(raw) / adcFullScale * m.vref
}
