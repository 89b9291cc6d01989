package gsusb

import (
	"context"
	"errors"
	"time"

	"github.com/google/gousb"
)

var errUSBTimeout = errors.New("gsusb: read timed out")

// readWithTimeout bounds a bulk IN read to d, translating a context
// deadline into errUSBTimeout so callers can distinguish it from a real
// transport failure the way transport.ErrTimeout expects.
func readWithTimeout(ep *gousb.InEndpoint, buf []byte, d time.Duration) (int, error) {
	if d <= 0 {
		d = time.Millisecond
	}
	ctx, cancel := context.WithTimeout(context.Background(), d)
	defer cancel()
	n, err := ep.ReadContext(ctx, buf)
	if err != nil {
		if ctx.Err() == context.DeadlineExceeded {
			return n, errUSBTimeout
		}
		return n, err
	}
	return n, nil
}
