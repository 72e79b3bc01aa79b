// Package push delivers notifications to mobile devices through
// platform-specific providers (FCM for Android, APNS for iOS).
//
// Tokens come from a device.Registry, grouped by platform and sent in
// batches of at most MaxBatchSize. A batch that fails with a transient
// error is retried with linear backoff; tokens the provider reports as
// invalid are blacklisted in the registry immediately and never retried.
//
// The outcome aggregates across every token: one accepted token makes the
// send a success, with Partial set when others failed; a send where every
// token failed carries the dominant failure classification; a user with no
// registered tokens is a permanent failure.
//
// Message priority and TTL depend on the notification type: alerts are
// high priority with a short TTL, marketing is normal priority with a day,
// everything else keeps the four-week provider default.
//
//	sender, err := push.NewSender(registry, []push.Provider{fcm, apns})
//	outcome := sender.Send(ctx, n, channel.Destination{UserID: n.UserID})
package push
