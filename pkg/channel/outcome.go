package channel

import "time"

// Classification buckets a send result for retry and reporting decisions.
type Classification string

const (
	// ClassDelivered marks a send the provider accepted.
	ClassDelivered Classification = "delivered"

	// ClassTransient marks a failure that a later retry may fix.
	ClassTransient Classification = "transient_failure"

	// ClassPermanent marks a failure retrying cannot fix.
	ClassPermanent Classification = "permanent_failure"

	// ClassRateLimited marks a send denied by admission control.
	ClassRateLimited Classification = "rate_limited"

	// ClassTimeout marks a send that ran out of time or was cancelled.
	ClassTimeout Classification = "timeout"
)

// Outcome is the result of one channel's delivery attempt.
type Outcome struct {
	// Channel that produced this outcome.
	Channel Channel `json:"channel"`

	// Success reports whether the provider accepted the send.
	Success bool `json:"success"`

	// Classification buckets the result.
	Classification Classification `json:"classification"`

	// ProviderMessageID is the provider-side identifier when available.
	ProviderMessageID string `json:"provider_message_id,omitempty"`

	// Err holds the terminal failure cause. Nil on success.
	Err error `json:"-"`

	// Attempts counts how many provider attempts were made.
	Attempts int `json:"attempts"`

	// Duration is the wall time the send took, including retries.
	Duration time.Duration `json:"duration"`

	// Partial is set when some but not all targets succeeded, which only
	// happens on multi-token channels like push.
	Partial bool `json:"partial,omitempty"`

	// Timestamp is when the outcome was produced, UTC.
	Timestamp time.Time `json:"timestamp"`
}

// ErrorMessage returns the failure cause as text, empty on success.
func (o Outcome) ErrorMessage() string {
	if o.Err == nil {
		return ""
	}
	return o.Err.Error()
}

// Delivered reports a successful send.
func Delivered(ch Channel, providerMessageID string, attempts int) Outcome {
	return Outcome{
		Channel:           ch,
		Success:           true,
		Classification:    ClassDelivered,
		ProviderMessageID: providerMessageID,
		Attempts:          attempts,
		Timestamp:         time.Now().UTC(),
	}
}

// TransientFailure reports a failure that exhausted its retries but could
// succeed later.
func TransientFailure(ch Channel, err error, attempts int) Outcome {
	return Outcome{
		Channel:        ch,
		Classification: ClassTransient,
		Err:            err,
		Attempts:       attempts,
		Timestamp:      time.Now().UTC(),
	}
}

// PermanentFailure reports a failure retrying cannot fix.
func PermanentFailure(ch Channel, err error, attempts int) Outcome {
	return Outcome{
		Channel:        ch,
		Classification: ClassPermanent,
		Err:            err,
		Attempts:       attempts,
		Timestamp:      time.Now().UTC(),
	}
}

// RateLimitedOutcome reports a send denied by admission control before any
// provider was contacted.
func RateLimitedOutcome(ch Channel, err error) Outcome {
	return Outcome{
		Channel:        ch,
		Classification: ClassRateLimited,
		Err:            err,
		Timestamp:      time.Now().UTC(),
	}
}

// TimedOut reports a send that ran out of time or was cancelled.
func TimedOut(ch Channel, err error) Outcome {
	return Outcome{
		Channel:        ch,
		Classification: ClassTimeout,
		Err:            err,
		Timestamp:      time.Now().UTC(),
	}
}

// Failure converts err into a failure outcome using its classification.
func Failure(ch Channel, err error, attempts int) Outcome {
	return Outcome{
		Channel:        ch,
		Classification: Classify(err),
		Err:            err,
		Attempts:       attempts,
		Timestamp:      time.Now().UTC(),
	}
}
