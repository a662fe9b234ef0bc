package launch

// SampleDivisor maps the current launch rate (events per second) to a display
// sampling divisor. The branch order matches the live behavior: exactly 20.0
// or 30.0 resolves to the lower divisor.
func SampleDivisor(ratePerSecond float64) int {
	switch {
	case ratePerSecond <= 15:
		return 1 // show all fireworks under 15/sec
	case ratePerSecond > 30:
		return 10
	case ratePerSecond > 20:
		return 5
	default:
		return 2
	}
}

// ShouldDisplay reports whether the launch with the given counter value is
// rendered as a firework. Sampling affects display only; the counter advances
// for every accepted launch.
func ShouldDisplay(count int64, divisor int) bool {
	return count%int64(divisor) == 0
}
