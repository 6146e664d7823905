package vehicle

import (
	"sort"
	"strings"

	"github.com/pkg/errors"
)

var ErrUnknownModel = errors.New("unknown vehicle model")

// Curve is a piecewise-linear gain schedule. BP is in m/s.
type Curve struct {
	BP []float64 `json:"bp"`
	V  []float64 `json:"v"`
}

// Interp evaluates the curve at x, clamping outside the breakpoints.
func (c Curve) Interp(x float64) float64 {
	n := len(c.BP)
	if n == 0 || len(c.V) != n {
		return 0
	}
	if x <= c.BP[0] {
		return c.V[0]
	}
	if x >= c.BP[n-1] {
		return c.V[n-1]
	}
	i := sort.SearchFloat64s(c.BP, x)
	x0, x1 := c.BP[i-1], c.BP[i]
	y0, y1 := c.V[i-1], c.V[i]
	return y0 + (y1-y0)*(x-x0)/(x1-x0)
}

func (c Curve) clone() Curve {
	return Curve{BP: append([]float64(nil), c.BP...), V: append([]float64(nil), c.V...)}
}

type LateralKind string

const (
	LateralINDI LateralKind = "indi"
	LateralLQR  LateralKind = "lqr"
)

type INDITuning struct {
	InnerLoopGain         float64 `json:"inner_loop_gain"`
	OuterLoopGain         float64 `json:"outer_loop_gain"`
	TimeConstant          float64 `json:"time_constant"`
	ActuatorEffectiveness float64 `json:"actuator_effectiveness"`
}

type LQRTuning struct {
	Scale  float64   `json:"scale"`
	Ki     float64   `json:"ki"`
	DcGain float64   `json:"dc_gain"`
	A      []float64 `json:"a"`
	B      []float64 `json:"b"`
	C      []float64 `json:"c"`
	K      []float64 `json:"k"`
	L      []float64 `json:"l"`
}

// LateralTuning carries exactly one of INDI or LQR, named by Kind.
type LateralTuning struct {
	Kind LateralKind `json:"kind"`
	INDI *INDITuning `json:"indi,omitempty"`
	LQR  *LQRTuning  `json:"lqr,omitempty"`
}

type LongitudinalTuning struct {
	KP       Curve `json:"kp"`
	KI       Curve `json:"ki"`
	KF       Curve `json:"kf"`
	Deadzone Curve `json:"deadzone"`
}

// Constants is the static parameter record for one vehicle model.
type Constants struct {
	Model               Model   `json:"model"`
	Mass                float64 `json:"mass"`
	Wheelbase           float64 `json:"wheelbase"`
	CenterToFront       float64 `json:"center_to_front"`
	SteerRatio          float64 `json:"steer_ratio"`
	TireStiffnessFactor float64 `json:"tire_stiffness_factor"`
	TireStiffnessFront  float64 `json:"tire_stiffness_front"`
	TireStiffnessRear   float64 `json:"tire_stiffness_rear"`
	RotationalInertia   float64 `json:"rotational_inertia"`

	MinSteerSpeed       float64 `json:"min_steer_speed"`
	MaxSteeringAngleDeg float64 `json:"max_steering_angle_deg"`
	StartAccel          float64 `json:"start_accel"`
	SteerActuatorDelay  float64 `json:"steer_actuator_delay"`
	SteerLimitTimer     float64 `json:"steer_limit_timer"`
	SteerRateCost       float64 `json:"steer_rate_cost"`
	SteerMax            Curve   `json:"steer_max"`
	StoppingBrakeRate   float64 `json:"stopping_brake_rate"`
	StartingBrakeRate   float64 `json:"starting_brake_rate"`

	// MinTirePressure is the low tire pressure alert threshold in psi.
	MinTirePressure float64 `json:"min_tire_pressure"`

	Lateral      LateralTuning      `json:"lateral"`
	Longitudinal LongitudinalTuning `json:"longitudinal"`
	GasMax       Curve              `json:"gas_max"`
	BrakeMax     Curve              `json:"brake_max"`
}

// Options are the feature flags and firmware facts that alter constants.
type Options struct {
	UseLQR bool
	// SMDPSHarness removes the low speed steering cutoff on models whose
	// power steering can be replaced by an SMDPS unit.
	SMDPSHarness bool
	// EPSModified is set when the EPS firmware has been patched for a wider
	// steering angle range.
	EPSModified bool
}

// Lookup returns the constants for model. The returned value shares no
// memory with the table or earlier results.
func Lookup(model Model, opts Options) (Constants, error) {
	t, err := table()
	if err != nil {
		return Constants{}, err
	}
	spec, ok := t.Models[model]
	if !ok {
		return Constants{}, errors.Wrapf(ErrUnknownModel, "%q", model)
	}
	return t.build(model, spec, opts), nil
}

// Models lists every model in the table, sorted.
func Models() []Model {
	t, err := table()
	if err != nil {
		return nil
	}
	out := make([]Model, 0, len(t.Models))
	for m := range t.Models {
		out = append(out, m)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// MinTirePressure is the alert threshold for model, falling back to the
// table default for unknown models.
func MinTirePressure(model Model) float64 {
	t, err := table()
	if err != nil {
		return 0
	}
	if spec, ok := t.Models[model]; ok && spec.MinTirePressure != nil {
		return *spec.MinTirePressure
	}
	return deref(t.Defaults.MinTirePressure)
}

// EPSModified reports whether the EPS firmware version carries the
// comma marker left by the angle-extension patch.
func EPSModified(firmware map[string]string) bool {
	return strings.Contains(firmware["eps"], ",")
}
