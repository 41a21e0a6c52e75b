package errors

import (
	"context"
)

// CheckContext turns a cancelled or expired context into a coded Canceled
// error naming the interrupted operation. Search loops call it at the top of
// each pass so supervisor-initiated cancellation surfaces with the same
// error shape as every other failure.
func CheckContext(ctx context.Context, operation string) error {
	if err := ctx.Err(); err != nil {
		return Wrap(err, Canceled, operation+" canceled")
	}
	return nil
}
