// Package sms delivers notifications over SMS through a single provider,
// with per-type rate limits and optional content encryption.
//
// Unlike email there is no fallback chain: SMS routes are expensive and a
// second gateway would double-charge on ambiguous failures. The retry
// budget is correspondingly small (two attempts with a fixed pause) and
// applies to transient failures only.
//
// Rate limits differ by notification type: security alerts get a tight
// window so a hijacked trigger cannot flood a victim, transaction alerts
// and marketing get looser ones, and unlisted types share a default. Keys
// combine type and recipient, so the same phone number can still receive
// other categories after one is exhausted.
//
// Types marked confidential (security alerts by default) have their body
// encrypted with a recipient-bound key before it reaches the provider.
//
// Provider rejections carry a numeric code (RejectionError) and are
// classified per code: an invalid or opted-out number is permanent, a
// throttled request is rate-limited, everything else stays transient like
// plain transport errors.
package sms
