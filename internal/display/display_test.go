package display

import (
	"errors"
	"strings"
	"testing"
	"time"

	"periph.io/x/conn/v3/gpio"

	"cloudpico-station/internal/modules/weather/types"
)

type levelPin struct{ level gpio.Level }

func (p *levelPin) Out(l gpio.Level) error {
	p.level = l
	return nil
}

type sent struct {
	char bool
	b    byte
}

// lcdRecorder latches RS and D4-D7 on every rising edge of E and pairs the
// nibbles back into bytes.
type lcdRecorder struct {
	rs, d4, d5, d6, d7 levelPin
	e                  enablePin
	nibbles            []byte
	rsLevels           []bool
}

type enablePin struct {
	r    *lcdRecorder
	last gpio.Level
	err  error
}

func (p *enablePin) Out(l gpio.Level) error {
	if p.err != nil {
		return p.err
	}
	if l == gpio.High && p.last == gpio.Low {
		p.r.latch()
	}
	p.last = l
	return nil
}

func (r *lcdRecorder) latch() {
	var n byte
	for i, p := range []*levelPin{&r.d4, &r.d5, &r.d6, &r.d7} {
		if p.level {
			n |= 1 << i
		}
	}
	r.nibbles = append(r.nibbles, n)
	r.rsLevels = append(r.rsLevels, bool(r.rs.level))
}

func (r *lcdRecorder) pins() LCDPins {
	r.e.r = r
	return LCDPins{RS: &r.rs, E: &r.e, D4: &r.d4, D5: &r.d5, D6: &r.d6, D7: &r.d7}
}

func (r *lcdRecorder) bytes() []sent {
	var out []sent
	for i := 0; i+1 < len(r.nibbles); i += 2 {
		out = append(out, sent{char: r.rsLevels[i], b: r.nibbles[i]<<4 | r.nibbles[i+1]})
	}
	return out
}

func (r *lcdRecorder) reset() {
	r.nibbles = nil
	r.rsLevels = nil
}

func noSleep(time.Duration) {}

func TestHD44780_InitSequence(t *testing.T) {
	rec := &lcdRecorder{}
	if _, err := NewHD44780(rec.pins(), 16, 2, noSleep); err != nil {
		t.Fatalf("NewHD44780: %v", err)
	}
	want := []byte{0x33, 0x32, 0x0C, 0x28, 0x06, 0x01}
	got := rec.bytes()
	if len(got) != len(want) {
		t.Fatalf("sent %d bytes, want %d: %+v", len(got), len(want), got)
	}
	for i, w := range want {
		if got[i].char || got[i].b != w {
			t.Errorf("byte %d = %+v, want command %#x", i, got[i], w)
		}
	}
}

func TestHD44780_WriteNewlineAndClamp(t *testing.T) {
	rec := &lcdRecorder{}
	lcd, err := NewHD44780(rec.pins(), 16, 2, noSleep)
	if err != nil {
		t.Fatalf("NewHD44780: %v", err)
	}
	rec.reset()

	if err := lcd.Write("A\nB\nC", 0); err != nil {
		t.Fatalf("Write: %v", err)
	}
	want := []sent{
		{true, 'A'},
		{false, 0xC0},
		{true, 'B'},
		{false, 0xC0},
		{true, 'C'},
	}
	got := rec.bytes()
	if len(got) != len(want) {
		t.Fatalf("sent %+v, want %+v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("byte %d = %+v, want %+v", i, got[i], want[i])
		}
	}
}

func TestHD44780_WriteClipsAndReplaces(t *testing.T) {
	rec := &lcdRecorder{}
	lcd, err := NewHD44780(rec.pins(), 4, 4, noSleep)
	if err != nil {
		t.Fatalf("NewHD44780: %v", err)
	}
	rec.reset()

	if err := lcd.Write("ab°cdef", 1); err != nil {
		t.Fatalf("Write: %v", err)
	}
	var text []byte
	for _, s := range rec.bytes() {
		text = append(text, s.b)
	}
	if string(text) != "ab?c" {
		t.Errorf("written = %q, want %q", text, "ab?c")
	}
}

func TestHD44780_RowsValidated(t *testing.T) {
	rec := &lcdRecorder{}
	if _, err := NewHD44780(rec.pins(), 16, 5, noSleep); err == nil {
		t.Error("expected error for 5 rows")
	}
	if _, err := NewHD44780(rec.pins(), 0, 2, noSleep); err == nil {
		t.Error("expected error for 0 cols")
	}
}

func TestHD44780_PinError(t *testing.T) {
	rec := &lcdRecorder{}
	pins := rec.pins()
	rec.e.err = errors.New("gpio gone")
	if _, err := NewHD44780(pins, 16, 2, noSleep); err == nil || !strings.Contains(err.Error(), "gpio gone") {
		t.Errorf("err = %v, want wrapped pin error", err)
	}
}

func TestRender_Pages(t *testing.T) {
	now := time.Date(2024, 6, 1, 9, 5, 7, 0, time.UTC)
	day := types.NewDayRollup(now, nil)
	day.AddWind(2)
	day.AddWind(4)
	day.AddRain(10)

	v := View{
		Now: now,
		Snapshot: types.Snapshot{
			Temperature: types.Temperature{Celsius: 20, Humidity: 55, At: now},
			Direction:   types.WindDirection{Degrees: 90, Label: "E", At: now},
		},
		Day:    day,
		Online: true,
		Uptime: 90*time.Second + 300*time.Millisecond,
	}

	tests := []struct {
		page int
		want string
	}{
		{PageTime, "Sat Jun 1\n09:05:07"},
		{PageTemperature, "Temp 20.0C 68.0F\nHumidity 55.0%"},
		{PageWind, "Wind n/a\nDir E 90"},
		{PageRain, "Rain today\n0.11in 0.28cm"},
		{PageHealth, "Net online\nUp 1m30s"},
	}
	for _, tt := range tests {
		if got := Render(tt.page, v); got != tt.want {
			t.Errorf("Render(%d) = %q, want %q", tt.page, got, tt.want)
		}
	}
}

func TestRender_MissingReadings(t *testing.T) {
	now := time.Now()
	v := View{Now: now, Day: types.NewDayRollup(now, nil)}
	for page := 0; page < NumPages; page++ {
		got := Render(page, v)
		if strings.Count(got, "\n") != 1 {
			t.Errorf("page %d has %d newlines, want 1: %q", page, strings.Count(got, "\n"), got)
		}
	}
	if got := Render(PageTemperature, v); !strings.Contains(got, na) {
		t.Errorf("temperature page = %q, want n/a", got)
	}
	if got := Render(PageWindRange, v); got != "Wind today\nn/a" {
		t.Errorf("wind range page = %q", got)
	}
}
