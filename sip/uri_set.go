package sip

// UriSet is the canonical two-level destination shape a fork requires: the
// outer list is serial steps, each inner list a parallel group tried at
// that step. The empty canonical form is UriSet{{}} — "no destinations".
type UriSet [][]Uri

// Empty reports whether the set carries no destinations at all.
func (s UriSet) Empty() bool {
	for _, group := range s {
		if len(group) > 0 {
			return false
		}
	}
	return true
}

// First returns the first Uri of the first non-empty group, and whether one exists.
func (s UriSet) First() (Uri, bool) {
	for _, group := range s {
		if len(group) > 0 {
			return group[0], true
		}
	}
	return Uri{}, false
}
