package truelayer

import (
	"context"
	"errors"
	"log/slog"
	"time"
)

const (
	DefaultPollInterval = 2 * time.Second
	DefaultPollMaxWait  = 60 * time.Second
)

// TerminalStater is implemented by resource snapshots that can tell whether they
// will still change.
type TerminalStater interface {
	IsInTerminalState() bool
}

// Pollable resources can fetch a fresh snapshot of themselves.
type Pollable[T TerminalStater] interface {
	PollOnce(ctx context.Context, client *Client) (T, error)
}

// PollOnce fetches the payment that was just created.
func (r *CreatePaymentResponse) PollOnce(ctx context.Context, client *Client) (*Payment, error) {
	return pollPayment(ctx, client, r.ID)
}

// PollOnce fetches a fresh snapshot of the payment. p itself is not modified.
func (p *Payment) PollOnce(ctx context.Context, client *Client) (*Payment, error) {
	return pollPayment(ctx, client, p.ID)
}

func pollPayment(ctx context.Context, client *Client, id string) (*Payment, error) {
	payment, err := client.Payments.GetByID(ctx, id)
	if errors.Is(err, ErrNotFound) {
		return nil, &NotFoundWhilePollingError{ID: id, Err: err}
	}
	return payment, err
}

// PollOptions tunes [PollUntilTerminalState]. Zero values select the defaults.
type PollOptions struct {
	// Interval between the end of one attempt and the start of the next.
	Interval time.Duration
	// MaxWait bounds the whole polling run, measured from its start.
	MaxWait time.Duration
	// RetryIf reports whether a failed attempt should be retried. Defaults to [IsRetryable].
	RetryIf func(error) bool
	// Logger defaults to the client's logger.
	Logger *slog.Logger
}

func (o PollOptions) withDefaults(client *Client) PollOptions {
	if o.Interval <= 0 {
		o.Interval = DefaultPollInterval
	}
	if o.MaxWait <= 0 {
		o.MaxWait = DefaultPollMaxWait
	}
	if o.RetryIf == nil {
		o.RetryIf = IsRetryable
	}
	if o.Logger == nil {
		if client != nil {
			o.Logger = client.cfg.logger
		} else {
			o.Logger = slog.New(slog.DiscardHandler)
		}
	}
	return o
}

// PollUntilTerminalState polls p until a snapshot reports a terminal state and returns it.
//
// Errors accepted by RetryIf are retried within the time budget. Any other error is
// returned unchanged. MaxWait also bounds an attempt in flight. When MaxWait
// elapses or ctx is done first, the result is a
// *PollTimeoutError carrying the last snapshot seen; it matches [ErrPollTimeout] and,
// on cancellation, the context error.
func PollUntilTerminalState[T TerminalStater](ctx context.Context, client *Client, p Pollable[T], opts PollOptions) (T, error) {
	opts = opts.withDefaults(client)
	start := time.Now()
	deadline := start.Add(opts.MaxWait)

	var (
		zero     T
		last     T
		hasLast  bool
		lastErr  error
		attempts int
	)
	timeout := func(cause error) (T, error) {
		return zero, &PollTimeoutError[T]{
			Last:     last,
			HasLast:  hasLast,
			Attempts: attempts,
			Elapsed:  time.Since(start),
			LastErr:  cause,
		}
	}

	for {
		if err := ctx.Err(); err != nil {
			return timeout(err)
		}
		attempts++
		fetchCtx, cancel := context.WithDeadline(ctx, deadline)
		snapshot, err := p.PollOnce(fetchCtx, client)
		cancel()
		if err != nil {
			if ctxErr := ctx.Err(); ctxErr != nil {
				return timeout(ctxErr)
			}
			if !time.Now().Before(deadline) {
				return timeout(err)
			}
			if !opts.RetryIf(err) {
				return zero, err
			}
			lastErr = err
			opts.Logger.DebugContext(ctx, "truelayer poll attempt failed", "attempt", attempts, "err", err)
		} else {
			last, hasLast, lastErr = snapshot, true, nil
			terminal := snapshot.IsInTerminalState()
			opts.Logger.DebugContext(ctx, "truelayer poll attempt", "attempt", attempts, "terminal", terminal)
			if terminal {
				return snapshot, nil
			}
		}

		remaining := time.Until(deadline)
		if remaining <= 0 {
			return timeout(lastErr)
		}
		wait := min(opts.Interval, remaining)
		timer := time.NewTimer(wait)
		select {
		case <-ctx.Done():
			timer.Stop()
			return timeout(ctx.Err())
		case <-timer.C:
		}
	}
}
