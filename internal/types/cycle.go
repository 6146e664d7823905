package types

// CruiseButton is the combined cruise stalk code reported by the cluster.
type CruiseButton int

const (
	CruiseButtonNone     CruiseButton = 0
	CruiseButtonResAccel CruiseButton = 1
	CruiseButtonSetDecel CruiseButton = 2
	CruiseButtonGapDist  CruiseButton = 3
	CruiseButtonCancel   CruiseButton = 4
)

type ButtonType string

const (
	ButtonUnknown         ButtonType = "unknown"
	ButtonAccelCruise     ButtonType = "accelCruise"
	ButtonDecelCruise     ButtonType = "decelCruise"
	ButtonGapAdjustCruise ButtonType = "gapAdjustCruise"
	ButtonCancel          ButtonType = "cancel"
	ButtonAltButton3      ButtonType = "altButton3"
)

type ButtonEvent struct {
	Type    ButtonType `json:"type"`
	Pressed bool       `json:"pressed"`
}

type GearShifter string

const (
	GearUnknown GearShifter = "unknown"
	GearPark    GearShifter = "park"
	GearDrive   GearShifter = "drive"
	GearNeutral GearShifter = "neutral"
	GearReverse GearShifter = "reverse"
	GearSport   GearShifter = "sport"
	GearLow     GearShifter = "low"
)

// TirePressures in psi.
type TirePressures struct {
	FL float64 `json:"fl"`
	FR float64 `json:"fr"`
	RL float64 `json:"rl"`
	RR float64 `json:"rr"`
}

// CycleInput is one vehicle-status sample produced by the car state decoder.
type CycleInput struct {
	VEgo              float64       `json:"v_ego"`
	LeftBlinker       bool          `json:"left_blinker"`
	RightBlinker      bool          `json:"right_blinker"`
	CruiseButtons     CruiseButton  `json:"cruise_buttons"`
	CruiseMainButton  bool          `json:"cruise_main_button"`
	// SCCLive is this cycle's report; the engine acts on it one cycle later.
	SCCLive           bool          `json:"scc_live"`
	TPMS              TirePressures `json:"tpms"`
	CruiseEnabled     bool          `json:"cruise_enabled"`
	CruiseAvailable   bool          `json:"cruise_available"`
	CruiseUnavailable bool          `json:"cruise_unavailable"`

	// Consumed by the common alert policy only.
	GearShifter       GearShifter `json:"gear_shifter,omitempty"`
	DoorOpen          bool        `json:"door_open,omitempty"`
	SeatbeltUnlatched bool        `json:"seatbelt_unlatched,omitempty"`
	ESPDisabled       bool        `json:"esp_disabled,omitempty"`
	GasPressed        bool        `json:"gas_pressed,omitempty"`
	BrakePressed      bool        `json:"brake_pressed,omitempty"`
	BrakeHoldActive   bool        `json:"brake_hold_active,omitempty"`
	SteerWarning      bool        `json:"steer_warning,omitempty"`
	Standstill        bool        `json:"standstill,omitempty"`
}

// CycleStatus is the reconciled status returned for one cycle.
type CycleStatus struct {
	CycleInput
	ButtonEvents          []ButtonEvent `json:"button_events"`
	PCMCruise             bool          `json:"pcm_cruise"`
	LowSpeedAlert         bool          `json:"low_speed_alert"`
	TurningIndicatorAlert bool          `json:"turning_indicator_alert"`
	Cycle                 uint64        `json:"cycle"`
}
