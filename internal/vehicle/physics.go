package vehicle

// Unit conversions.
const (
	KPHToMS = 1 / 3.6
	MPHToMS = 0.44704
	LBToKG  = 0.453592
)

// StdCargoKG is added to curb weights to account for driver and luggage.
const StdCargoKG = 136.0

// Reference vehicle used to scale inertia and tire stiffness.
const (
	refMass              = 1326. + StdCargoKG
	refWheelbase         = 2.70
	refCenterToFront     = refWheelbase * 0.4
	refCenterToRear      = refWheelbase - refCenterToFront
	refRotationalInertia = 2500.
	refTireStiffFront    = 192150.
	refTireStiffRear     = 202500.
)

// ScaleRotInertia scales the reference rotational inertia by mass and
// wheelbase squared.
func ScaleRotInertia(mass, wheelbase float64) float64 {
	return refRotationalInertia * mass * wheelbase * wheelbase / (refMass * refWheelbase * refWheelbase)
}

// ScaleTireStiffness scales the reference front/rear lateral tire stiffness
// by mass and weight distribution.
func ScaleTireStiffness(mass, wheelbase, centerToFront, factor float64) (front, rear float64) {
	centerToRear := wheelbase - centerToFront
	front = refTireStiffFront * factor * mass / refMass * (centerToRear / wheelbase) / (refCenterToRear / refWheelbase)
	rear = refTireStiffRear * factor * mass / refMass * (centerToFront / wheelbase) / (refCenterToFront / refWheelbase)
	return front, rear
}
