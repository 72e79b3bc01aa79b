// Package async provides a minimal generic future for running a function in
// its own goroutine and joining on its result.
//
// Async starts the supplied function and immediately returns a *Future. The
// caller joins with Await, bounds the wait with AwaitWithTimeout, or polls
// with IsComplete. A context cancelled before the function starts completes
// the future with the context error without running it.
//
// The delivery orchestrator is the main consumer: it starts one future per
// selected channel and joins all of them, so one slow channel delays only the
// join, never its siblings' sends.
//
//	fut := async.Async(ctx, dest, func(ctx context.Context, d Destination) (Outcome, error) {
//	    return sender.Send(ctx, n, d), nil
//	})
//	out, err := fut.AwaitWithTimeout(30 * time.Second)
package async
