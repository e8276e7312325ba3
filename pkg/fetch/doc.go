// Package fetch multiplexes logical path subscriptions onto Jet fetch
// registrations and dispatches inbound fetch notifications to subscribers.
//
// Two strategies implement the Multiplexer contract:
//
//   - SharedFetcher registers a single unfiltered fetch with the daemon on
//     the first Subscribe and matches every reported path locally. N
//     subscriptions cost one network registration.
//   - FilteredFetcher registers one fetch per subscription, carrying the
//     matcher as a daemon-side path filter, and routes notifications by
//     registration id.
//
// # Handles
//
// Subscribe returns an ID taken from a process-wide counter shared by all
// strategies. IDs are positive and strictly increasing; they double as the
// correlation id of filtered fetch registrations.
//
// # Path Cache
//
// SharedFetcher remembers, for every path the daemon reported as added, the
// set of matchers that matched the path at add time. Change and remove
// notifications replay that set instead of evaluating matchers again, so a
// subscription registered after a path was added does not see events for
// that path until it is added again.
//
// # Concurrency
//
// Each fetcher guards its state with one mutex. Subscriber callbacks are
// copied under the lock and invoked after it is released, so callbacks may
// call back into Subscribe and Unsubscribe.
package fetch
