// Package delivery orchestrates multi-channel notification fan-out.
//
// Channel selection is pure preference logic: a channel is included iff the
// notification's type is globally enabled for the user, the channel's master
// switch is on, and the (type, channel) matrix cell is true. A nil
// preference enables everything. The order is fixed (push, email, sms) so
// repeated deliveries behave identically.
//
// Dispatch fans out to every selected channel concurrently and joins on all
// of them; there is no first-success short-circuit because channels serve
// complementary purposes. Each channel runs under its own timeout and its
// failure, however ugly (including a panicking sender), is confined to its
// own outcome.
//
// The joined outcomes fold into one final status: every channel accepted →
// sent; some accepted → sent with delivery_info.partial=true; none → failed
// with an error message naming each channel's cause. The orchestrator then
// applies the status transition, merges per-channel detail into the
// notification's delivery info, persists through the optional storage, and
// notifies hooks.
//
// There is no cross-channel rollback: a send accepted by a provider is never
// retracted because a sibling channel failed or the request was cancelled.
package delivery
