package mo

import (
	"errors"
	"fmt"
)

// ErrInvalidArgument indicates telecommand parameters that fail
// validation; the command is rejected before any state change.
var ErrInvalidArgument = errors.New("invalid telecommand parameters")

// ErrDuplicateService indicates an attempt to register a handler for an
// already-registered (service, subtype) pair.
var ErrDuplicateService = errors.New("service handler already registered")

// UnsupportedServiceError reports an unknown (serviceType, serviceSubtype)
// pair. The command is rejected with no state change.
type UnsupportedServiceError struct {
	ServiceType    uint8
	ServiceSubtype uint8
}

func (e *UnsupportedServiceError) Error() string {
	return fmt.Sprintf("mo: unsupported service %d/%d", e.ServiceType, e.ServiceSubtype)
}
