package main

import (
	"crypto/rand"
	"encoding/hex"
	"math"
)

// GenerateID returns a random hex string of the given byte length
func GenerateID(byteLen int) string {
	b := make([]byte, byteLen)
	rand.Read(b)
	return hex.EncodeToString(b)
}

// Clamp restricts v to [min, max]
func Clamp(v, min, max float64) float64 {
	if v < min {
		return min
	}
	if v > max {
		return max
	}
	return v
}

// Distance returns the distance between two points
func Distance(x1, y1, x2, y2 float64) float64 {
	dx := x2 - x1
	dy := y2 - y1
	return math.Sqrt(dx*dx + dy*dy)
}

// NormDeg wraps an angle in degrees to [0, 360)
func NormDeg(a float64) float64 {
	a = math.Mod(a, 360)
	if a < 0 {
		a += 360
	}
	if a >= 360 { // float rounding after the add can land exactly on 360
		a = 0
	}
	return a
}

// DegToRad converts degrees to radians
func DegToRad(d float64) float64 {
	return d * math.Pi / 180
}

// RadToDeg converts radians to degrees
func RadToDeg(r float64) float64 {
	return r * 180 / math.Pi
}

// RotatePoint rotates (x, y) about the origin by rad radians
func RotatePoint(x, y, rad float64) (float64, float64) {
	c := math.Cos(rad)
	s := math.Sin(rad)
	return x*c - y*s, x*s + y*c
}
