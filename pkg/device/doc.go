// Package device tracks push notification tokens per user and platform.
//
// Each user keeps at most five tokens per platform, newest first; registering
// an existing token moves it to the front instead of duplicating it. A user's
// token list expires as a whole when it is not refreshed within the platform
// TTL (30 days for android, 7 days for ios), so stale devices fall away
// without explicit cleanup. Touch extends the TTL on user activity.
//
// Tokens a provider reported as invalid are blacklisted per platform and no
// longer returned by Tokens, which is how the push sender stops retrying
// devices that will never accept a message again.
//
// Two backends ship with the package: MemoryRegistry for single-process
// deployments and tests, and RedisRegistry which keeps each user's tokens in
// a Redis list and the blacklist in a per-platform set, shared by all
// instances.
package device
