package suite

import "fmt"

// ExitPolicy decides whether a failed run makes the process exit non-zero.
type ExitPolicy string

const (
	// PolicyAlwaysSucceed reports failures only through the document.
	PolicyAlwaysSucceed ExitPolicy = "always-succeed"
	// PolicyFailOnFailure exits non-zero when any suite fails.
	PolicyFailOnFailure ExitPolicy = "fail-on-failure"
)

// ParseExitPolicy validates a policy name. Empty means PolicyAlwaysSucceed.
func ParseExitPolicy(name string) (ExitPolicy, error) {
	switch ExitPolicy(name) {
	case "", PolicyAlwaysSucceed:
		return PolicyAlwaysSucceed, nil
	case PolicyFailOnFailure:
		return PolicyFailOnFailure, nil
	default:
		return "", fmt.Errorf("invalid exit policy %q, must be %q or %q", name, PolicyAlwaysSucceed, PolicyFailOnFailure)
	}
}

// ExitCode maps the aggregate pass flag onto a process exit code.
func (p ExitPolicy) ExitCode(passed bool) int {
	if p == PolicyFailOnFailure && !passed {
		return 1
	}
	return 0
}
