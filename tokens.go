package inferguard

// EnforceTokenBudget clamps a requested generation length to the hard cap.
// A nil or non-positive request means "use the cap". Pure, no failure path.
func EnforceTokenBudget(requested *int, hardCap int) int {
	if requested == nil || *requested <= 0 {
		return hardCap
	}
	if *requested > hardCap {
		return hardCap
	}
	return *requested
}
