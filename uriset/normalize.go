// Package uriset implements the URI-Set Normalizer: flattening whatever
// shape a caller handed the proxy router into the canonical [[Uri]] shape
// a fork requires. It is a pure, total function — it never panics, and
// every leaf that fails to parse is simply absent from the result rather
// than aborting the whole normalization.
package uriset

import "github.com/sipflow/callcore/sip"

// Normalize converts heterogeneous caller input into canonical sip.UriSet.
//
// Accepted shapes:
//   - sip.Uri / *sip.Uri        -> one group holding that single Uri
//   - string / []byte           -> every Uri parsed out of that one string,
//     as a single parallel group
//   - []string / []sip.Uri / []any containing only loose strings/Uris
//     (no nested list) -> one parallel group, in order
//   - []any containing at least one nested list (or another []any) ->
//     "multi-mode": every top-level string or nested list becomes its own
//     serial step; runs of loose sip.Uri values accumulate into one group
//     emitted at the next boundary
//   - anything else, or an input that fails to parse at all -> sip.UriSet{{}}
//
// Every Uri in the result has empty extension slots (sip.Uri.StripExt).
func Normalize(input any) sip.UriSet {
	switch v := input.(type) {
	case nil:
		return sip.UriSet{{}}
	case sip.Uri:
		return sip.UriSet{{v.StripExt()}}
	case *sip.Uri:
		if v == nil {
			return sip.UriSet{{}}
		}
		return sip.UriSet{{v.StripExt()}}
	case string:
		return oneGroup(v)
	case []byte:
		return oneGroup(string(v))
	case []string:
		items := make([]any, len(v))
		for i, s := range v {
			items[i] = s
		}
		return normalizeList(items)
	case sip.UriSet:
		out := make(sip.UriSet, len(v))
		for i, group := range v {
			out[i] = stripExtAll(group)
		}
		return out
	case [][]sip.Uri:
		return Normalize(sip.UriSet(v))
	case []sip.Uri:
		items := make([]any, len(v))
		for i, u := range v {
			items[i] = u
		}
		return normalizeList(items)
	case []any:
		return normalizeList(v)
	default:
		return sip.UriSet{{}}
	}
}

// oneGroup parses a single byte-string leaf into one parallel group. A
// string that parses to nothing (malformed, or genuinely empty) collapses
// to the canonical empty set rather than an empty-but-present group — this
// is the "whole input is unparsable" case the normalizer distinguishes from
// a single bad leaf inside a list.
func oneGroup(s string) sip.UriSet {
	uris := stripExtAll(sip.ParseURIs(s))
	if len(uris) == 0 {
		return sip.UriSet{{}}
	}
	return sip.UriSet{uris}
}

// normalizeList implements the flat-vs-multi-mode split of §4.1's table.
func normalizeList(items []any) sip.UriSet {
	if !hasNestedList(items) {
		return flatGroup(items)
	}
	return multiModeSteps(items)
}

func hasNestedList(items []any) bool {
	for _, it := range items {
		if _, ok := it.([]any); ok {
			return true
		}
	}
	return false
}

// flatGroup handles a list of loose strings/Uris with no nesting: every
// leaf is parsed and appended, in order, into a single parallel group.
func flatGroup(items []any) sip.UriSet {
	var group []sip.Uri
	for _, it := range items {
		switch v := it.(type) {
		case sip.Uri:
			group = append(group, v.StripExt())
		case string:
			group = append(group, stripExtAll(sip.ParseURIs(v))...)
		}
	}
	if len(group) == 0 {
		return sip.UriSet{{}}
	}
	return sip.UriSet{group}
}

// multiModeSteps handles a list mixing nested lists/strings with loose
// Uris: each string or nested list becomes its own serial step; runs of
// loose Uris accumulate into one group, flushed at the next boundary.
func multiModeSteps(items []any) sip.UriSet {
	var steps [][]sip.Uri
	var pending []sip.Uri

	flush := func() {
		if len(pending) > 0 {
			steps = append(steps, pending)
			pending = nil
		}
	}

	for _, it := range items {
		switch v := it.(type) {
		case sip.Uri:
			pending = append(pending, v.StripExt())
		case string:
			flush()
			steps = append(steps, stripExtAll(sip.ParseURIs(v)))
		case []any:
			flush()
			steps = append(steps, flattenNested(v))
		}
	}
	flush()

	if len(steps) == 0 {
		return sip.UriSet{{}}
	}
	return steps
}

// flattenNested reduces a nested list to the single parallel group it
// represents (nesting is only ever two levels deep in a UriSet).
func flattenNested(items []any) []sip.Uri {
	nested := flatGroup(items)
	var out []sip.Uri
	for _, group := range nested {
		out = append(out, group...)
	}
	return out
}

func stripExtAll(uris []sip.Uri) []sip.Uri {
	out := make([]sip.Uri, len(uris))
	for i, u := range uris {
		out[i] = u.StripExt()
	}
	return out
}
