// Package webhook turns GitHub push deliveries into events and decides
// whether an event should trigger a deployment.
package webhook

import (
	"strings"
	"time"
)

// BranchRefPrefix is stripped from a push ref to get the branch name.
const BranchRefPrefix = "refs/heads/"

// Event is the part of a push delivery the deploy path cares about.
type Event struct {
	Ref        string
	Repository string
	PushedAt   *time.Time
	After      string
}

// Branch returns Ref without the refs/heads/ prefix. Tag refs and other
// namespaces are returned unchanged.
func (e *Event) Branch() string {
	return strings.TrimPrefix(e.Ref, BranchRefPrefix)
}
