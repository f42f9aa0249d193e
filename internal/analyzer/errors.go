package analyzer

import "errors"

var (
	// ErrProvisioningFailed means the service reported the analyzer as
	// failed. Terminal: retrying the same poll loop cannot fix it.
	ErrProvisioningFailed = errors.New("analyzer provisioning failed")

	// ErrProvisioningTimeout means the poll budget ran out before the
	// analyzer reached a terminal status. The analyzer may still become
	// ready later, so callers can re-provision at a higher level.
	ErrProvisioningTimeout = errors.New("analyzer provisioning timed out")

	ErrNotFound = errors.New("analyzer not found")
)
