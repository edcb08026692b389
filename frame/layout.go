package frame

import "github.com/jd3nn1s/dashlink/telemetry"

// field places one record value at a bit offset inside a frame byte.
type field struct {
	name  string
	index int
	shift uint8
	width uint8
	get   func(*telemetry.Record) uint8
	set   func(*telemetry.Record, uint8)
}

func (f field) mask() uint8 {
	return uint8(uint16(1)<<f.width - 1)
}

// layout is shared by Encode and Decode.
var layout = []field{
	{"speed", 2, 0, 8,
		func(r *telemetry.Record) uint8 { return r.Speed },
		func(r *telemetry.Record, v uint8) { r.Speed = v }},
	{"throttle", 3, 0, 8,
		func(r *telemetry.Record) uint8 { return r.Throttle },
		func(r *telemetry.Record, v uint8) { r.Throttle = v }},
	{"total_distance_lo", 4, 0, 8,
		func(r *telemetry.Record) uint8 { return uint8(r.TotalDistance) },
		func(r *telemetry.Record, v uint8) { r.TotalDistance = r.TotalDistance&0xFF00 | uint16(v) }},
	{"total_distance_hi", 5, 0, 8,
		func(r *telemetry.Record) uint8 { return uint8(r.TotalDistance >> 8) },
		func(r *telemetry.Record, v uint8) { r.TotalDistance = r.TotalDistance&0x00FF | uint16(v)<<8 }},

	{"battery", 6, 0, 7,
		func(r *telemetry.Record) uint8 { return r.Battery },
		func(r *telemetry.Record, v uint8) { r.Battery = v }},
	{"night_mode", 6, 7, 1,
		func(r *telemetry.Record) uint8 { return bit(r.NightMode) },
		func(r *telemetry.Record, v uint8) { r.NightMode = v != 0 }},

	{"engine_temp", 7, 0, 6,
		func(r *telemetry.Record) uint8 { return r.EngineTemp },
		func(r *telemetry.Record, v uint8) { r.EngineTemp = v }},
	{"turn_signal", 7, 6, 2,
		func(r *telemetry.Record) uint8 { return uint8(r.TurnSignal) },
		func(r *telemetry.Record, v uint8) { r.TurnSignal = telemetry.TurnSignal(v) }},

	{"battery_temp", 8, 0, 6,
		func(r *telemetry.Record) uint8 { return r.BatteryTemp },
		func(r *telemetry.Record, v uint8) { r.BatteryTemp = v }},
	{"horn", 8, 6, 1,
		func(r *telemetry.Record) uint8 { return bit(r.Horn) },
		func(r *telemetry.Record, v uint8) { r.Horn = v != 0 }},
	{"high_beam", 8, 7, 1,
		func(r *telemetry.Record) uint8 { return bit(r.HighBeam) },
		func(r *telemetry.Record, v uint8) { r.HighBeam = v != 0 }},

	{"alert", 9, 0, 3,
		func(r *telemetry.Record) uint8 { return r.Alert },
		func(r *telemetry.Record, v uint8) { r.Alert = v }},
	{"gear_state", 9, 3, 2,
		func(r *telemetry.Record) uint8 { return uint8(r.Gear) },
		func(r *telemetry.Record, v uint8) { r.Gear = telemetry.GearState(v) }},
	{"drive_mode", 9, 5, 2,
		func(r *telemetry.Record) uint8 { return uint8(r.DriveMode) },
		func(r *telemetry.Record, v uint8) { r.DriveMode = telemetry.DriveMode(v) }},
	{"maps_active", 9, 7, 1,
		func(r *telemetry.Record) uint8 { return bit(r.MapsActive) },
		func(r *telemetry.Record, v uint8) { r.MapsActive = v != 0 }},
}

func bit(b bool) uint8 {
	if b {
		return 1
	}
	return 0
}
