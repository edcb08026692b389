package telemetry

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func tickN(s SimState, n int) SimState {
	for i := 0; i < n; i++ {
		s = Tick(s)
	}
	return s
}

func TestTickFirstStep(t *testing.T) {
	s := Tick(NewSimState())
	r := s.Record()

	assert.Equal(t, uint64(1), s.Ticks)
	assert.Equal(t, uint16(50), s.RPM)
	assert.Equal(t, uint8(1), r.Speed)
	assert.Equal(t, uint8(3), r.Throttle)
	assert.Equal(t, uint16(7), r.TotalDistance)
	assert.Equal(t, uint8(0), r.Battery)
	assert.Equal(t, uint8(26), r.EngineTemp)
	assert.Equal(t, TurnRight, r.TurnSignal)
	assert.Equal(t, ModeEcon, r.DriveMode)
	assert.Equal(t, GearNeutral, r.Gear)
	assert.True(t, r.NightMode)
	assert.False(t, r.HighBeam)
}

func TestTickPeriods(t *testing.T) {
	s := tickN(NewSimState(), 29)
	assert.Equal(t, ModeEcon, s.DriveMode)
	assert.Equal(t, TurnNone, s.Turn)
	s = Tick(s)
	assert.Equal(t, ModeComfort, s.DriveMode)
	assert.Equal(t, TurnLeft, s.Turn)

	s = tickN(NewSimState(), 40)
	assert.True(t, s.HighBeam)
	assert.Equal(t, TurnLeft, s.Turn)

	s = tickN(NewSimState(), 50)
	assert.Equal(t, GearDrive, s.Gear)
	assert.Equal(t, TurnHazard, s.Turn)

	s = tickN(NewSimState(), 90)
	assert.Equal(t, ModeEcon, s.DriveMode, "drive mode wraps from SPORT to ECON")

	s = tickN(NewSimState(), 150)
	assert.Equal(t, GearNeutral, s.Gear, "gear wraps from P to N")

	s = tickN(NewSimState(), 200)
	assert.False(t, s.NightMode)
}

func TestTickWraps(t *testing.T) {
	s := NewSimState()
	s.RPM = 11950
	s.Distance = 0xFFFE
	s.EngineTemp = 63
	s.Voltage = 830
	s = Tick(s)
	assert.Equal(t, uint16(0), s.RPM)
	assert.Equal(t, uint16(5), s.Distance)
	assert.Equal(t, uint8(0), s.EngineTemp)
	assert.Equal(t, uint16(630), s.Voltage)
}

func TestRecordClampsSpeedAndBattery(t *testing.T) {
	s := NewSimState()
	s.RPM = 11900
	s.Voltage = 830
	r := s.Record()
	assert.Equal(t, uint8(255), r.Speed)
	assert.Equal(t, uint8(100), r.Battery)
}

func TestTickDeterministic(t *testing.T) {
	a := tickN(NewSimState(), 1234)
	b := tickN(NewSimState(), 1234)
	assert.Equal(t, a, b)
	assert.Equal(t, a.Record(), b.Record())
}
