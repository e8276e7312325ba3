// Package matcher implements path predicates for Jet fetch subscriptions.
//
// A Matcher describes which paths of a Jet daemon's namespace a subscriber
// is interested in. The same description is used in two places:
//
//   - locally, by Match, when a single fetch-all registration is shared by
//     many subscribers and every reported path must be re-matched on the
//     client side
//   - remotely, by Filter, which turns the Matcher into the "path" object of
//     a fetch request so that the daemon does the matching
//
// # Evaluation
//
// Configured predicates are OR-ed, not AND-ed. They are evaluated in a fixed
// order and evaluation stops at the first satisfied predicate:
//
//  1. Contains
//  2. ContainsAllOf (satisfied when ANY listed substring is contained)
//  3. StartsWith
//  4. EndsWith
//  5. Equals
//  6. EqualsNot (satisfied whenever the path differs)
//
// A Matcher with no predicate configured matches every path. CaseInsensitive
// applies to all predicates of one evaluation.
//
// # Equality
//
// Matchers contain a slice and are therefore not comparable with ==. Use Key
// to obtain a comparable value with structural equality, suitable as a map
// key, or Equal to compare two matchers directly.
package matcher
