package provisioner

import "errors"

// ErrStorage wraps unexpected filesystem faults encountered while
// provisioning a tenant's workspace tree.
var ErrStorage = errors.New("provisioner: storage error")
