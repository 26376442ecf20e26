package domain

// ServiceStatus is the gateway's view of backend health. It is updated
// exactly once per generate call attempt and lives for the process lifetime;
// only a new call outcome replaces it.
type ServiceStatus interface {
	serviceStatus()
}

// StatusAvailable reports a healthy backend and the model version that
// served the last call.
type StatusAvailable struct {
	ModelVersion string
}

// StatusUnavailable reports a backend that cannot serve calls at all,
// e.g. the offline engine before local inference support lands.
type StatusUnavailable struct {
	Reason string
}

// StatusError reports a failed call attempt. Recoverable mirrors the
// classifier's verdict on the cause.
type StatusError struct {
	Cause       error
	Recoverable bool
}

func (StatusAvailable) serviceStatus()   {}
func (StatusUnavailable) serviceStatus() {}
func (StatusError) serviceStatus()       {}

// OfflineCapability is the offline backend's self-reported readiness,
// observed independently of ServiceStatus.
type OfflineCapability interface {
	offlineCapability()
}

// CapabilityChecking means the probe has not completed yet.
type CapabilityChecking struct{}

// CapabilityAvailable means local inference can serve calls.
type CapabilityAvailable struct{}

// CapabilityUnavailable means local inference cannot serve calls.
type CapabilityUnavailable struct {
	Reason string
}

func (CapabilityChecking) offlineCapability()    {}
func (CapabilityAvailable) offlineCapability()   {}
func (CapabilityUnavailable) offlineCapability() {}
