package main

import "math"

// Step advances the simulation by dt seconds. Run calls it once per tick;
// tests drive it directly.
func (a *Arena) Step(dt float64) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.step(dt)
}

// step is one frame of the physics/elimination loop. Caller must hold the mutex.
func (a *Arena) step(dt float64) {
	a.tick++
	a.elapsed += dt

	// Scheduled deadlines fire here, on the loop's own goroutine.
	if a.restartAt >= 0 && a.elapsed >= a.restartAt {
		a.startRound()
	}
	if a.scatterAt >= 0 && a.elapsed >= a.scatterAt {
		a.scatterAt = -1
		a.round.Phase = PhaseScatter
	}

	if !a.round.Running || len(a.flags) == 0 {
		a.maybeBroadcast()
		return
	}

	a.round.RingAngle = NormDeg(a.round.RingAngle + RingSpinSpeed*dt)

	activeCount := 0
	var survivor *Flag
	for _, f := range a.flags {
		if f.Status == StatusEliminated {
			continue
		}
		switch a.round.Phase {
		case PhaseFormation:
			// Rigid orbit about the center; pose stays neutral until scatter.
			f.X, f.Y = RotatePoint(f.X, f.Y, FormationSpin*dt)
			f.Heading = 0
			f.Scale = 1
			f.Opacity = 1
		case PhaseScatter:
			a.updateScatter(f, dt)
		}
		if f.Status == StatusActive {
			activeCount++
			survivor = f
		}
	}
	a.active = activeCount

	if a.round.Phase == PhaseScatter && a.round.Running && activeCount == 1 {
		a.declareWinner(survivor)
	}

	a.maybeBroadcast()
}

// updateScatter moves one flag during the scatter phase and handles its
// boundary events. Caller must hold the mutex.
func (a *Arena) updateScatter(f *Flag, dt float64) {
	switch f.Status {
	case StatusActive:
		f.Integrate(dt)
		// Cosmetic float; never feeds back into the physics.
		f.Scale = 1 + WobbleAmp*math.Sin(a.elapsed*WobbleFreq+(f.X+f.Y)*0.01)

		dist := f.Dist()
		if dist+FlagRadius < BoundaryRadius {
			return
		}
		angle := NormDeg(RadToDeg(math.Atan2(f.Y, f.X)))
		// The last active flag never goes through the gap; it bounces until
		// the survivor check crowns it, so a round cannot end winnerless.
		if a.gapContains(angle) && a.active > 1 {
			a.eliminate(f)
			return
		}
		a.reflect(f, dist)

	case StatusExiting:
		f.Integrate(dt)
		dist := f.Dist()
		fade := Clamp((dist-BoundaryRadius)/(VanishRadius-BoundaryRadius), 0, 1)
		f.Opacity = 1 - fade
		f.Scale = 1 - 0.3*fade
		if dist > VanishRadius {
			f.Status = StatusEliminated
			f.Opacity = 0
		}
	}
}

// gapContains reports whether an angle in degrees falls inside the live gap:
// the round's local gap rotated by the current ring angle, widened by the
// tolerance at both ends. The rotated interval may cross 0/360, in which
// case membership is "past the start or before the end".
func (a *Arena) gapContains(angle float64) bool {
	start := NormDeg(a.round.GapStart + a.round.RingAngle - GapTolerance)
	end := NormDeg(a.round.GapEnd + a.round.RingAngle + GapTolerance)
	if start <= end {
		return angle >= start && angle < end
	}
	return angle >= start || angle < end
}

// eliminate flips a flag to exiting: boosted velocity and an energetic tumble
// carry it out through the gap while it fades. Caller must hold the mutex.
func (a *Arena) eliminate(f *Flag) {
	f.Status = StatusExiting
	f.VX *= ExitBoostMul
	f.VY *= ExitBoostMul
	spin := ExitSpinMin + a.rng.Float64()*(ExitSpinMax-ExitSpinMin)
	if a.rng.Intn(2) == 0 {
		spin = -spin
	}
	f.AngularVel = spin
	a.active--

	if a.analytics != nil {
		a.analytics.Track(EvtElimination, f.Code, a.roundSeq)
	}
}

// reflect bounces a flag elastically off the ring wall, resolves the
// penetration, and jitters the velocity so orbits never become periodic.
// Caller must hold the mutex.
func (a *Arena) reflect(f *Flag, dist float64) {
	if dist == 0 {
		return
	}
	nx := f.X / dist
	ny := f.Y / dist
	f.VX, f.VY = reflectVelocity(f.VX, f.VY, nx, ny)

	overlap := dist + FlagRadius - BoundaryRadius
	f.X -= nx * overlap
	f.Y -= ny * overlap

	f.VX += (a.rng.Float64()*2 - 1) * BouncePerturb
	f.VY += (a.rng.Float64()*2 - 1) * BouncePerturb
}

// reflectVelocity mirrors (vx, vy) across the unit normal (nx, ny):
// v' = v - 2(v·n)n, an elastic bounce that preserves speed.
func reflectVelocity(vx, vy, nx, ny float64) (float64, float64) {
	dot := vx*nx + vy*ny
	return vx - 2*dot*nx, vy - 2*dot*ny
}
