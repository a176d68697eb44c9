package logic

// Classify combines the two detection outcomes of a cycle. Both the
// activation and the deactivation must have been detected for a PASS.
func Classify(activationDetected, deactivationDetected bool) Outcome {
	if activationDetected && deactivationDetected {
		return Pass
	}
	return Fail
}

// Apply counts one completed cycle. It returns the streak that was in place
// before the cycle, which a FAIL has just broken.
func (s *Stats) Apply(o Outcome) (previousStreak uint64) {
	previousStreak = s.Streak
	s.Total++

	switch o {
	case Pass:
		s.Pass++
		s.Streak++
		if s.Streak > s.LongestStreak {
			s.LongestStreak = s.Streak
		}
	default:
		s.Fail++
		s.Streak = 0
	}
	return previousStreak
}

// PassRate returns the fraction of cycles that passed, or 0 before the
// first cycle.
func (s Stats) PassRate() float64 {
	if s.Total == 0 {
		return 0
	}
	return float64(s.Pass) / float64(s.Total)
}
