package key

import (
	"context"
	"errors"
)

var _ VerificationKey = Aggregate(nil)

// Aggregate tries each key in order and accepts the first match. An empty
// Aggregate never verifies.
type Aggregate []VerificationKey

func NewAggregate(keys ...VerificationKey) Aggregate {
	return Aggregate(keys)
}

// Verify keeps going past member errors. If no member accepts the signature
// the member errors are returned joined; cancellation is returned as is.
func (a Aggregate) Verify(ctx context.Context, data, signature []byte) (bool, error) {
	var errs []error
	for _, k := range a {
		ok, err := k.Verify(ctx, data, signature)
		if err != nil {
			if ctxErr := ctx.Err(); ctxErr != nil {
				return false, ctxErr
			}
			errs = append(errs, err)
			continue
		}
		if ok {
			return true, nil
		}
	}
	return false, errors.Join(errs...)
}
