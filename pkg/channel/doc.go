// Package channel defines the contract every delivery channel implements:
// the Sender interface, per-recipient addressing, the classified Outcome a
// send produces, the shared error taxonomy, and the backoff strategies the
// senders retry with.
//
// A Sender never returns a Go error from Send. Every failure mode — bad
// input, provider rejection, network trouble, rate limiting, timeout — is
// folded into an Outcome with a Classification, so the delivery orchestrator
// can aggregate results from all channels uniformly without unwrapping
// channel-specific errors.
//
// Provider adapters tag their failures with the package sentinels
// (ErrValidation, ErrTransientProvider, ErrPermanentProvider, ErrRateLimited)
// via errors.Join; Classify maps any tagged or untagged error back to a
// Classification. Untagged errors classify as transient so an unrecognized
// provider failure stays retryable.
package channel
