package carrier

import "errors"

var (
	// ErrCarrierUnavailable indicates the carrier API could not be reached
	ErrCarrierUnavailable = errors.New("carrier: api unavailable")

	// ErrCarrierRequestFailed indicates the carrier API rejected the request
	ErrCarrierRequestFailed = errors.New("carrier: request failed")

	// ErrResourceURLNotAllowed indicates a webhook resource url outside the API host
	ErrResourceURLNotAllowed = errors.New("carrier: resource url not allowed")
)

// maxResponseSize caps carrier response bodies
const maxResponseSize = 10 << 20
