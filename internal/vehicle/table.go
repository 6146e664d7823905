package vehicle

import (
	"bytes"
	_ "embed"
	"sync"

	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"
)

//go:embed data/vehicles.yaml
var vehiclesYAML []byte

type curveSpec struct {
	BP    []float64 `yaml:"bp"`
	BPKph []float64 `yaml:"bp_kph"`
	V     []float64 `yaml:"v"`
}

type indiSpec struct {
	InnerLoopGain         *float64 `yaml:"inner_loop_gain"`
	OuterLoopGain         *float64 `yaml:"outer_loop_gain"`
	TimeConstant          *float64 `yaml:"time_constant"`
	ActuatorEffectiveness *float64 `yaml:"actuator_effectiveness"`
}

type lqrSpec struct {
	Scale  float64   `yaml:"scale"`
	Ki     float64   `yaml:"ki"`
	DcGain float64   `yaml:"dc_gain"`
	A      []float64 `yaml:"a"`
	B      []float64 `yaml:"b"`
	C      []float64 `yaml:"c"`
	K      []float64 `yaml:"k"`
	L      []float64 `yaml:"l"`
}

type longitudinalSpec struct {
	KP       *curveSpec `yaml:"kp"`
	KI       *curveSpec `yaml:"ki"`
	KF       *curveSpec `yaml:"kf"`
	Deadzone *curveSpec `yaml:"deadzone"`
}

type modelSpec struct {
	MassKG                         *float64          `yaml:"mass_kg"`
	MassLB                         *float64          `yaml:"mass_lb"`
	Cargo                          *bool             `yaml:"cargo"`
	Wheelbase                      *float64          `yaml:"wheelbase"`
	CenterToFrontRatio             *float64          `yaml:"center_to_front_ratio"`
	SteerRatio                     *float64          `yaml:"steer_ratio"`
	TireStiffnessFactor            *float64          `yaml:"tire_stiffness_factor"`
	MinSteerSpeedKPH               *float64          `yaml:"min_steer_speed_kph"`
	MinSteerSpeedMPH               *float64          `yaml:"min_steer_speed_mph"`
	SMDPSClearsMinSteerSpeed       bool              `yaml:"smdps_clears_min_steer_speed"`
	MaxSteeringAngleDeg            *float64          `yaml:"max_steering_angle_deg"`
	EPSModifiedMaxSteeringAngleDeg *float64          `yaml:"eps_modified_max_steering_angle_deg"`
	StartAccel                     *float64          `yaml:"start_accel"`
	MinTirePressure                *float64          `yaml:"min_tire_pressure"`
	INDI                           *indiSpec         `yaml:"indi"`
	Longitudinal                   *longitudinalSpec `yaml:"longitudinal"`
	GasMax                         *curveSpec        `yaml:"gas_max"`
	BrakeMax                       *curveSpec        `yaml:"brake_max"`
}

type defaultsSpec struct {
	modelSpec          `yaml:",inline"`
	SteerActuatorDelay float64   `yaml:"steer_actuator_delay"`
	SteerLimitTimer    float64   `yaml:"steer_limit_timer"`
	SteerRateCost      float64   `yaml:"steer_rate_cost"`
	SteerMax           curveSpec `yaml:"steer_max"`
	StoppingBrakeRate  float64   `yaml:"stopping_brake_rate"`
	StartingBrakeRate  float64   `yaml:"starting_brake_rate"`
	LQR                lqrSpec   `yaml:"lqr"`
}

type tableSpec struct {
	Defaults defaultsSpec        `yaml:"defaults"`
	Models   map[Model]modelSpec `yaml:"models"`
}

var (
	tableOnce   sync.Once
	loadedTable *tableSpec
	tableErr    error
)

func table() (*tableSpec, error) {
	tableOnce.Do(func() {
		loadedTable, tableErr = parseTable(vehiclesYAML)
	})
	return loadedTable, tableErr
}

func parseTable(data []byte) (*tableSpec, error) {
	var t tableSpec
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&t); err != nil {
		return nil, errors.Wrap(err, "decoding vehicle table")
	}
	if err := t.validate(); err != nil {
		return nil, err
	}
	return &t, nil
}

func (t *tableSpec) validate() error {
	d := t.Defaults
	if d.MaxSteeringAngleDeg == nil || d.StartAccel == nil || d.TireStiffnessFactor == nil ||
		d.CenterToFrontRatio == nil || d.SteerRatio == nil || d.MinTirePressure == nil {
		return errors.New("vehicle table defaults are incomplete")
	}
	if d.INDI == nil || d.Longitudinal == nil || d.GasMax == nil || d.BrakeMax == nil {
		return errors.New("vehicle table defaults are missing tuning")
	}
	for m, s := range t.Models {
		if s.MassKG == nil && s.MassLB == nil {
			return errors.Errorf("vehicle %s has no mass", m)
		}
		if s.Wheelbase == nil {
			return errors.Errorf("vehicle %s has no wheelbase", m)
		}
		c := t.build(m, s, Options{})
		for name, curve := range map[string]Curve{
			"kp": c.Longitudinal.KP, "ki": c.Longitudinal.KI, "kf": c.Longitudinal.KF,
			"gas_max": c.GasMax, "brake_max": c.BrakeMax,
		} {
			if len(curve.BP) == 0 || len(curve.BP) != len(curve.V) {
				return errors.Errorf("vehicle %s curve %s has %d breakpoints and %d values",
					m, name, len(curve.BP), len(curve.V))
			}
		}
	}
	return nil
}

func (t *tableSpec) build(model Model, s modelSpec, opts Options) Constants {
	d := t.Defaults
	c := Constants{
		Model:               model,
		Wheelbase:           deref(s.Wheelbase),
		SteerRatio:          pick(s.SteerRatio, d.SteerRatio),
		TireStiffnessFactor: pick(s.TireStiffnessFactor, d.TireStiffnessFactor),
		MaxSteeringAngleDeg: pick(s.MaxSteeringAngleDeg, d.MaxSteeringAngleDeg),
		StartAccel:          pick(s.StartAccel, d.StartAccel),
		MinTirePressure:     pick(s.MinTirePressure, d.MinTirePressure),
		SteerActuatorDelay:  d.SteerActuatorDelay,
		SteerLimitTimer:     d.SteerLimitTimer,
		SteerRateCost:       d.SteerRateCost,
		SteerMax:            d.SteerMax.curve(),
		StoppingBrakeRate:   d.StoppingBrakeRate,
		StartingBrakeRate:   d.StartingBrakeRate,
	}

	switch {
	case s.MassKG != nil:
		c.Mass = *s.MassKG
	case s.MassLB != nil:
		c.Mass = *s.MassLB * LBToKG
	}
	if s.Cargo == nil || *s.Cargo {
		c.Mass += StdCargoKG
	}
	c.CenterToFront = c.Wheelbase * pick(s.CenterToFrontRatio, d.CenterToFrontRatio)

	switch {
	case s.MinSteerSpeedKPH != nil:
		c.MinSteerSpeed = *s.MinSteerSpeedKPH * KPHToMS
	case s.MinSteerSpeedMPH != nil:
		c.MinSteerSpeed = *s.MinSteerSpeedMPH * MPHToMS
	}
	if s.SMDPSClearsMinSteerSpeed && opts.SMDPSHarness {
		c.MinSteerSpeed = 0
	}
	if opts.EPSModified && s.EPSModifiedMaxSteeringAngleDeg != nil {
		c.MaxSteeringAngleDeg = *s.EPSModifiedMaxSteeringAngleDeg
	}

	if opts.UseLQR {
		l := d.LQR
		c.Lateral = LateralTuning{Kind: LateralLQR, LQR: &LQRTuning{
			Scale:  l.Scale,
			Ki:     l.Ki,
			DcGain: l.DcGain,
			A:      append([]float64(nil), l.A...),
			B:      append([]float64(nil), l.B...),
			C:      append([]float64(nil), l.C...),
			K:      append([]float64(nil), l.K...),
			L:      append([]float64(nil), l.L...),
		}}
	} else {
		indi := &INDITuning{
			InnerLoopGain:         deref(d.INDI.InnerLoopGain),
			OuterLoopGain:         deref(d.INDI.OuterLoopGain),
			TimeConstant:          deref(d.INDI.TimeConstant),
			ActuatorEffectiveness: deref(d.INDI.ActuatorEffectiveness),
		}
		if o := s.INDI; o != nil {
			indi.InnerLoopGain = pick(o.InnerLoopGain, &indi.InnerLoopGain)
			indi.OuterLoopGain = pick(o.OuterLoopGain, &indi.OuterLoopGain)
			indi.TimeConstant = pick(o.TimeConstant, &indi.TimeConstant)
			indi.ActuatorEffectiveness = pick(o.ActuatorEffectiveness, &indi.ActuatorEffectiveness)
		}
		c.Lateral = LateralTuning{Kind: LateralINDI, INDI: indi}
	}

	dl := d.Longitudinal
	c.Longitudinal = LongitudinalTuning{
		KP:       overlay(dl.KP, nil),
		KI:       overlay(dl.KI, nil),
		KF:       overlay(dl.KF, nil),
		Deadzone: overlay(dl.Deadzone, nil),
	}
	if o := s.Longitudinal; o != nil {
		c.Longitudinal.KP = overlay(dl.KP, o.KP)
		c.Longitudinal.KI = overlay(dl.KI, o.KI)
		c.Longitudinal.KF = overlay(dl.KF, o.KF)
		c.Longitudinal.Deadzone = overlay(dl.Deadzone, o.Deadzone)
	}
	c.GasMax = overlay(d.GasMax, s.GasMax)
	c.BrakeMax = overlay(d.BrakeMax, s.BrakeMax)

	c.RotationalInertia = ScaleRotInertia(c.Mass, c.Wheelbase)
	c.TireStiffnessFront, c.TireStiffnessRear = ScaleTireStiffness(c.Mass, c.Wheelbase, c.CenterToFront, c.TireStiffnessFactor)
	return c
}

func (s curveSpec) curve() Curve {
	c := Curve{V: append([]float64(nil), s.V...)}
	if len(s.BPKph) > 0 {
		c.BP = make([]float64, len(s.BPKph))
		for i, v := range s.BPKph {
			c.BP[i] = v * KPHToMS
		}
	} else {
		c.BP = append([]float64(nil), s.BP...)
	}
	return c
}

// overlay applies the breakpoints and values present in o on top of base.
func overlay(base *curveSpec, o *curveSpec) Curve {
	var c Curve
	if base != nil {
		c = base.curve()
	}
	if o == nil {
		return c
	}
	oc := o.curve()
	if len(oc.BP) > 0 {
		c.BP = oc.BP
	}
	if len(oc.V) > 0 {
		c.V = oc.V
	}
	return c.clone()
}

func pick(v, fallback *float64) float64 {
	if v != nil {
		return *v
	}
	return deref(fallback)
}

func deref(v *float64) float64 {
	if v == nil {
		return 0
	}
	return *v
}
