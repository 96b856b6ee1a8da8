package params

// Subsystem identifies a simulated spacecraft subsystem.
type Subsystem string

const (
	ADCS  Subsystem = "ADCS"
	EPS   Subsystem = "EPS"
	OBC   Subsystem = "OBC"
	COMMS Subsystem = "COMMS"
)

// Subsystems lists all simulated subsystems in a stable order.
var Subsystems = []Subsystem{ADCS, EPS, OBC, COMMS}

// Band is the nominal sampling range of a numeric parameter.
type Band struct {
	Lo float64
	Hi float64
}

// Width returns the band width.
func (b Band) Width() float64 { return b.Hi - b.Lo }

// Definition describes one catalog entry: a simulated subsystem signal.
type Definition struct {
	Name      string
	Subsystem Subsystem
	Unit      string
	Kind      ValueKind

	// Band bounds nominal sampling for numeric parameters.
	Band Band
	// Safe is the fixed value reported while the owning subsystem is in
	// safe mode.
	Safe Value
	// Modes lists the candidates for enumerated parameters; the first
	// entry doubles as the safe-mode choice.
	Modes []string
	// Integer forces sampled values onto whole numbers (counts,
	// percentages).
	Integer bool
	// Computed parameters are filled by the generator from a model
	// (orbit propagation, health mirroring) instead of band sampling.
	Computed bool
}

// DefaultCatalog returns the fixed parameter catalog. The catalog is
// created once at store initialisation; parameters are never destroyed
// during the process lifetime.
func DefaultCatalog() []Definition {
	return []Definition{
		// EPS
		{Name: "MEAS_VOLTAGE_BUS", Subsystem: EPS, Unit: "V", Band: Band{10.5, 13.5}, Safe: Number(12.0)},
		{Name: "MEAS_CURRENT_BUS", Subsystem: EPS, Unit: "A", Band: Band{2.0, 3.0}, Safe: Number(2.5)},
		{Name: "MEAS_SOLAR_CURRENT", Subsystem: EPS, Unit: "A", Band: Band{2.0, 5.0}, Safe: Number(3.0)},
		{Name: "MEAS_BATTERY_CHARGE", Subsystem: EPS, Unit: "%", Band: Band{20, 100}, Safe: Number(50), Integer: true},
		{Name: "MEAS_TEMPERATURE_BATTERY", Subsystem: EPS, Unit: "°C", Band: Band{10, 30}, Safe: Number(20)},

		// ADCS
		{Name: "MEAS_GYRO_X", Subsystem: ADCS, Unit: "rad/s", Band: Band{-0.1, 0.1}, Safe: Number(0)},
		{Name: "MEAS_GYRO_Y", Subsystem: ADCS, Unit: "rad/s", Band: Band{-0.1, 0.1}, Safe: Number(0)},
		{Name: "MEAS_GYRO_Z", Subsystem: ADCS, Unit: "rad/s", Band: Band{-0.1, 0.1}, Safe: Number(0)},
		{Name: "MEAS_POSITION_X", Subsystem: ADCS, Unit: "km", Computed: true},
		{Name: "MEAS_POSITION_Y", Subsystem: ADCS, Unit: "km", Computed: true},
		{Name: "MEAS_POSITION_Z", Subsystem: ADCS, Unit: "km", Computed: true},
		{Name: "HEALTH_MODE", Subsystem: ADCS, Kind: KindEnumerated, Modes: []string{"SUN_POINT", "NADIR", "INERTIAL"}, Safe: Enumerated("SUN_POINT")},

		// OBC
		{Name: "MEAS_TEMPERATURE_BUS", Subsystem: OBC, Unit: "°C", Band: Band{15, 35}, Safe: Number(25)},
		{Name: "HEALTH_ERRORS", Subsystem: OBC, Unit: "count", Band: Band{0, 3}, Safe: Number(0), Integer: true},

		// COMMS
		{Name: "MEAS_DATA_VOLUME", Subsystem: COMMS, Unit: "MB", Band: Band{0, 1000}, Safe: Number(0), Integer: true},
		{Name: "MEAS_COMPRESSION_RATE", Subsystem: COMMS, Unit: "ratio", Band: Band{0.5, 0.9}, Safe: Number(0.5)},
		{Name: "MEAS_ACTIVE_INSTRUMENTS", Subsystem: COMMS, Unit: "count", Band: Band{1, 3}, Safe: Number(1), Integer: true},

		// One health-status mirror per subsystem.
		{Name: "HEALTH_STATUS_ADCS", Subsystem: ADCS, Kind: KindEnumerated, Computed: true},
		{Name: "HEALTH_STATUS_EPS", Subsystem: EPS, Kind: KindEnumerated, Computed: true},
		{Name: "HEALTH_STATUS_OBC", Subsystem: OBC, Kind: KindEnumerated, Computed: true},
		{Name: "HEALTH_STATUS_COMMS", Subsystem: COMMS, Kind: KindEnumerated, Computed: true},
	}
}
