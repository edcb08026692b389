package telemetry

const (
	rpmStep   = 50
	rpmWrap   = 12000
	voltMin   = 630
	voltRange = 201

	distanceStep = 7
	throttleStep = 3

	modePeriod  = 30
	gearPeriod  = 50
	turnPeriod  = 80
	beamPeriod  = 40
	nightPeriod = 200
)

// SimState holds the counters that drive test mode. Every period is counted in ticks,
// so the same number of ticks always produces the same record.
type SimState struct {
	Ticks uint64

	RPM        uint16
	Voltage    uint16
	EngineTemp uint8
	Distance   uint16
	Throttle   uint8

	DriveMode DriveMode
	Gear      GearState
	Turn      TurnSignal
	HighBeam  bool
	NightMode bool

	modeCount  int
	gearCount  int
	turnPhase  int
	beamCount  int
	nightCount int
}

// NewSimState returns the state the producer starts from.
func NewSimState() SimState {
	return SimState{
		Voltage:    voltMin,
		EngineTemp: 25,
		DriveMode:  ModeEcon,
		Gear:       GearNeutral,
		NightMode:  true,
	}
}

// Tick advances every counter by one step.
func Tick(s SimState) SimState {
	s.Ticks++
	s.RPM = (s.RPM + rpmStep) % rpmWrap
	s.Voltage = voltMin + (s.Voltage-voltMin+1)%voltRange
	s.EngineTemp = (s.EngineTemp + 1) % (MaxEngineTemp + 1)
	s.Distance += distanceStep
	s.Throttle += throttleStep

	s.modeCount = (s.modeCount + 1) % modePeriod
	if s.modeCount == 0 {
		s.DriveMode = nextDriveMode(s.DriveMode)
	}

	s.gearCount = (s.gearCount + 1) % gearPeriod
	if s.gearCount == 0 {
		s.Gear = nextGear(s.Gear)
	}

	s.turnPhase = (s.turnPhase + 1) % turnPeriod
	switch {
	case s.turnPhase < 15:
		s.Turn = TurnRight
	case s.turnPhase < 30:
		s.Turn = TurnNone
	case s.turnPhase < 45:
		s.Turn = TurnLeft
	case s.turnPhase < 60:
		s.Turn = TurnHazard
	default:
		s.Turn = TurnNone
	}

	s.beamCount = (s.beamCount + 1) % beamPeriod
	if s.beamCount == 0 {
		s.HighBeam = !s.HighBeam
	}

	s.nightCount = (s.nightCount + 1) % nightPeriod
	if s.nightCount == 0 {
		s.NightMode = !s.NightMode
	}
	return s
}

// Record projects the simulator counters onto a clamped telemetry record.
func (s SimState) Record() Record {
	speed := int(s.RPM) / rpmPerSpeedUnit
	if speed > 0xFF {
		speed = 0xFF
	}
	battery := 0
	if s.Voltage > voltMin {
		battery = (int(s.Voltage) - voltMin) / 2
	}
	if battery > MaxBattery {
		battery = MaxBattery
	}
	return Record{
		Speed:         uint8(speed),
		Throttle:      s.Throttle,
		TotalDistance: s.Distance,
		Battery:       uint8(battery),
		NightMode:     s.NightMode,
		EngineTemp:    s.EngineTemp,
		TurnSignal:    s.Turn,
		HighBeam:      s.HighBeam,
		Gear:          s.Gear,
		DriveMode:     s.DriveMode,
	}.Clamp()
}

func nextDriveMode(m DriveMode) DriveMode {
	m++
	if m < ModeEcon || m > ModeSport {
		return ModeEcon
	}
	return m
}

func nextGear(g GearState) GearState {
	g++
	if g < GearNeutral || g > GearPark {
		return GearNeutral
	}
	return g
}
