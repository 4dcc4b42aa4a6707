package remote

import (
	"context"
	"errors"
	"fmt"
	"net"

	"github.com/ustczzh/AlephNote/internal/common"
)

// MapTransportError classifies errors every backend can hit: context
// deadlines and network failures. Errors already in the taxonomy and
// unknown errors pass through unchanged.
func MapTransportError(err error) error {
	if err == nil {
		return nil
	}
	if Classified(err) {
		return err
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return fmt.Errorf("%w: %v", common.ErrTimeout, err)
	}
	var netErr net.Error
	if errors.As(err, &netErr) {
		if netErr.Timeout() {
			return fmt.Errorf("%w: %v", common.ErrTimeout, err)
		}
		return fmt.Errorf("%w: %v", common.ErrNetwork, err)
	}
	var opErr *net.OpError
	if errors.As(err, &opErr) {
		return fmt.Errorf("%w: %v", common.ErrNetwork, err)
	}
	return err
}

// Classified reports whether err already carries one of the common
// taxonomy errors.
func Classified(err error) bool {
	for _, e := range []error{
		common.ErrConfiguration, common.ErrAuthentication, common.ErrNetwork,
		common.ErrTimeout, common.ErrConflict, common.ErrEncryption,
		common.ErrSerialization, common.ErrNotFound,
	} {
		if errors.Is(err, e) {
			return true
		}
	}
	return false
}
