// Package retry runs a fallible operation with bounded attempts and
// exponential backoff. Every failure mode of the operation (returned errors,
// panics with error values, panics with arbitrary values) is normalized into
// a plain error so callers only ever deal with (value, error) pairs.
//
// The main entry point is [Do]:
//
//	results, err := retry.Do(ctx, func(ctx context.Context) ([]Source, error) {
//	    return searcher.Search(ctx, query)
//	}, 3, 500*time.Millisecond)
//	if errors.Is(err, retry.ErrRetryExhausted) {
//	    // every attempt failed
//	}
package retry
