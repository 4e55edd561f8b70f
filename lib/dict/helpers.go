package dict

import (
	"context"
	"github.com/ValentinKolb/rDict/lib/common"
)

// GetAs returns the value of a key converted to T.
// A value of another type fails with common.ErrDecodeFailed.
func GetAs[T any](ctx context.Context, d IDict, key string) (T, error) {
	var zero T
	v, err := d.Get(ctx, key)
	if err != nil {
		return zero, err
	}
	t, ok := v.(T)
	if !ok {
		return zero, common.Errorf(common.RetCDecodeFailed, "value of %q is %T, not %T", key, v, zero)
	}
	return t, nil
}
