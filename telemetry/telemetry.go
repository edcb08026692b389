package telemetry

// TurnSignal is the 2-bit indicator state.
type TurnSignal uint8

const (
	TurnNone TurnSignal = iota
	TurnRight
	TurnLeft
	TurnHazard
)

// GearState is the 2-bit transmission state. Zero is not a valid gear.
type GearState uint8

const (
	GearInvalid GearState = iota
	GearNeutral
	GearDrive
	GearPark
)

// DriveMode is the 2-bit drive profile. Zero is not a valid mode.
type DriveMode uint8

const (
	ModeInvalid DriveMode = iota
	ModeEcon
	ModeComfort
	ModeSport
)

const (
	MaxBattery     = 100
	MaxEngineTemp  = 0x3F
	MaxBatteryTemp = 0x3F
	MaxAlert       = 0x07

	rpmPerSpeedUnit  = 46
	kmPerDistance    = 1.60934
	engineTempOffset = 20
)

// Record is one decoded telemetry snapshot.
type Record struct {
	Speed         uint8
	Throttle      uint8
	TotalDistance uint16

	Battery   uint8
	NightMode bool

	EngineTemp uint8
	TurnSignal TurnSignal

	BatteryTemp uint8
	Horn        bool
	HighBeam    bool

	Alert      uint8
	Gear       GearState
	DriveMode  DriveMode
	MapsActive bool
}

// Clamp limits every field to the range its bit field can carry.
func (r Record) Clamp() Record {
	r.Battery = clamp(r.Battery, MaxBattery)
	r.EngineTemp = clamp(r.EngineTemp, MaxEngineTemp)
	r.BatteryTemp = clamp(r.BatteryTemp, MaxBatteryTemp)
	r.Alert = clamp(r.Alert, MaxAlert)
	r.TurnSignal = TurnSignal(clamp(uint8(r.TurnSignal), uint8(TurnHazard)))
	r.Gear = GearState(clamp(uint8(r.Gear), uint8(GearPark)))
	r.DriveMode = DriveMode(clamp(uint8(r.DriveMode), uint8(ModeSport)))
	return r
}

// RPM is the motor speed shown on the dashboard.
func (r Record) RPM() int {
	return int(r.Speed) * rpmPerSpeedUnit
}

// DistanceKm converts the odometer counter to kilometres.
func (r Record) DistanceKm() float64 {
	return float64(r.TotalDistance) * kmPerDistance
}

// EngineTempCelsius removes the transmit offset from the engine temperature.
func (r Record) EngineTempCelsius() int {
	return int(r.EngineTemp) - engineTempOffset
}

func (t TurnSignal) String() string {
	switch t {
	case TurnNone:
		return "none"
	case TurnRight:
		return "right"
	case TurnLeft:
		return "left"
	case TurnHazard:
		return "hazard"
	}
	return "unknown"
}

func (g GearState) String() string {
	switch g {
	case GearNeutral:
		return "N"
	case GearDrive:
		return "D"
	case GearPark:
		return "P"
	}
	return "invalid"
}

func (m DriveMode) String() string {
	switch m {
	case ModeEcon:
		return "ECON"
	case ModeComfort:
		return "COMF"
	case ModeSport:
		return "SPORT"
	}
	return "invalid"
}

func clamp(v, max uint8) uint8 {
	if v > max {
		return max
	}
	return v
}
