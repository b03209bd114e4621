package rates

import "errors"

// ErrProviderUnavailable reports a network, timeout or parse failure of the
// external rate source. It is surfaced to the caller without retrying.
var ErrProviderUnavailable = errors.New("rate provider unavailable")
