package game

// Points awarded for a correct answer given with secondsRemaining on the
// question clock. The hint comes from the caller and is clamped at zero.
func (s Settings) Points(secondsRemaining int) int {
	return s.BasePoints + s.SpeedBonusPerSecond*max(0, secondsRemaining)
}
