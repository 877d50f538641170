package webhook

// DefaultTargetBranch applies when no target branch is configured.
const DefaultTargetBranch = "main"

// Decision is the outcome of the branch filter.
type Decision struct {
	// Proceed reports whether a deployment should be triggered.
	Proceed bool

	// Unparsed is set when no event could be extracted. Such deliveries
	// still proceed.
	Unparsed bool

	// Branch is the pushed branch, empty when the event had no ref.
	Branch string

	// Configured is the target branch the event was compared against.
	Configured string
}

// Decide compares an event against the target branch. A nil event fails
// open and proceeds.
func Decide(ev *Event, target string) Decision {
	if target == "" {
		target = DefaultTargetBranch
	}

	if ev == nil {
		return Decision{Proceed: true, Unparsed: true, Configured: target}
	}

	branch := ev.Branch()
	return Decision{
		Proceed:    branch == target,
		Branch:     branch,
		Configured: target,
	}
}
