package services

import (
	"math/rand"
	"time"
)

const (
	jitterMin = 0.8
	jitterMax = 1.5
	// A small fraction of requests pause noticeably longer, like a person
	// stopping to read a page.
	longPauseChance = 0.05
	longPauseMin    = 2 * time.Second
	longPauseMax    = 5 * time.Second
)

// jitteredDelay returns the base delay scaled by a uniform random factor in
// [jitterMin, jitterMax], occasionally extended by a multi-second pause.
func jitteredDelay(base time.Duration) time.Duration {
	d := time.Duration(float64(base) * (jitterMin + rand.Float64()*(jitterMax-jitterMin)))
	if rand.Float64() < longPauseChance {
		d += longPauseMin + time.Duration(rand.Float64()*float64(longPauseMax-longPauseMin))
	}
	return d
}
