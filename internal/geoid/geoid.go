// Package geoid converts ellipsoidal GPS heights to heights above the geoid.
package geoid

import (
	"errors"
	"fmt"
	"math"
)

// ErrOutOfRange is returned for positions outside valid lon/lat bounds.
var ErrOutOfRange = errors.New("position out of range")

// Constant applies one geoid separation everywhere. It is a coarse stand-in
// for a geoid model, good enough when all tracks come from one region.
type Constant struct {
	// SeparationM is the geoid height above the ellipsoid, in metres.
	SeparationM float64
}

// Orthometric returns heightM minus the separation.
func (c Constant) Orthometric(lonDeg, latDeg, heightM float64) (float64, error) {
	if err := checkPosition(lonDeg, latDeg); err != nil {
		return 0, err
	}
	return heightM - c.SeparationM, nil
}

func checkPosition(lonDeg, latDeg float64) error {
	if math.IsNaN(lonDeg) || math.IsNaN(latDeg) || math.Abs(latDeg) > 90 || math.Abs(lonDeg) > 180 {
		return fmt.Errorf("%w: lon=%v lat=%v", ErrOutOfRange, lonDeg, latDeg)
	}
	return nil
}
