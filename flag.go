package main

import "math"

const (
	FlagRadius      = 16.0  // collision radius in logical units
	BaseSpeed       = 140.0 // scatter launch speed, units/s
	FormationRadius = 200.0 // intro circle radius
	BoundaryRadius  = 280.0 // inner radius of the ring wall
	VanishRadius    = 380.0 // past this an exiting flag is gone
	ExitBoostMul    = 1.6   // velocity multiplier on elimination
	ExitSpinMin     = 4.0   // rad/s, elimination tumble range
	ExitSpinMax     = 9.0
	SpinMax         = 1.5   // rad/s magnitude cap for normal spin
	BouncePerturb   = 14.0  // units/s velocity jitter per bounce
	WobbleAmp       = 0.06  // cosmetic scale oscillation amplitude
	WobbleFreq      = 2.2   // rad/s
)

// FlagStatus is the lifecycle of one participant. Transitions only move
// forward: active flags either bounce, leave through the gap
// (exiting then eliminated), or end the round as the winner.
type FlagStatus int

const (
	StatusActive FlagStatus = iota
	StatusExiting
	StatusEliminated
	StatusWinner
)

// Flag is one participant in the arena. Position and velocity live in a
// logical plane centered on the ring; the viewer maps them to pixels.
type Flag struct {
	Code string
	Name string

	X, Y       float64
	VX, VY     float64
	Heading    float64 // radians
	AngularVel float64 // radians/s

	Scale   float64
	Opacity float64
	Status  FlagStatus
}

// NewFlag creates an active flag at the center with a neutral pose
func NewFlag(code, name string) *Flag {
	return &Flag{
		Code:    code,
		Name:    name,
		Scale:   1,
		Opacity: 1,
		Status:  StatusActive,
	}
}

// Integrate advances position and heading by one Euler step (dt in seconds)
func (f *Flag) Integrate(dt float64) {
	f.X += f.VX * dt
	f.Y += f.VY * dt
	f.Heading += f.AngularVel * dt
}

// Dist returns the flag's radial distance from the ring center
func (f *Flag) Dist() float64 {
	return math.Hypot(f.X, f.Y)
}

// Speed returns the flag's velocity magnitude
func (f *Flag) Speed() float64 {
	return math.Hypot(f.VX, f.VY)
}

// ToPose converts to the protocol pose viewers render from
func (f *Flag) ToPose() FlagPose {
	return FlagPose{
		Code: f.Code,
		X:    f.X,
		Y:    f.Y,
		R:    f.Heading,
		S:    f.Scale,
		O:    f.Opacity,
		St:   int(f.Status),
	}
}
