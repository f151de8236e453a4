package types

// ProvisioningPhase represents a state of the provisioning flow
type ProvisioningPhase string

const (
	PhaseIdle           ProvisioningPhase = "idle"
	PhaseFetching       ProvisioningPhase = "fetching"
	PhaseResolved       ProvisioningPhase = "resolved"
	PhaseFetchFailed    ProvisioningPhase = "fetch_failed"
	PhaseRegistering    ProvisioningPhase = "registering"
	PhaseRegistered     ProvisioningPhase = "registered"
	PhaseRegisterFailed ProvisioningPhase = "register_failed"
)

var phaseTransitions = map[ProvisioningPhase][]ProvisioningPhase{
	PhaseIdle:        {PhaseFetching},
	PhaseFetching:    {PhaseResolved, PhaseFetchFailed},
	PhaseResolved:    {PhaseRegistering},
	PhaseRegistering: {PhaseRegistered, PhaseRegisterFailed},
}

// String returns the string representation of the phase
func (p ProvisioningPhase) String() string {
	return string(p)
}

// IsValid checks if the phase is valid
func (p ProvisioningPhase) IsValid() bool {
	switch p {
	case PhaseIdle, PhaseFetching, PhaseResolved, PhaseFetchFailed,
		PhaseRegistering, PhaseRegistered, PhaseRegisterFailed:
		return true
	default:
		return false
	}
}

// IsTerminal reports whether the attempt ends in this phase.
// A new attempt has to be started from PhaseIdle afterwards.
func (p ProvisioningPhase) IsTerminal() bool {
	switch p {
	case PhaseFetchFailed, PhaseRegistered, PhaseRegisterFailed:
		return true
	default:
		return false
	}
}

// IsFailure reports whether the phase is a failed terminal phase
func (p ProvisioningPhase) IsFailure() bool {
	return p == PhaseFetchFailed || p == PhaseRegisterFailed
}

// CanTransitionTo checks if moving to next is allowed
func (p ProvisioningPhase) CanTransitionTo(next ProvisioningPhase) bool {
	for _, allowed := range phaseTransitions[p] {
		if allowed == next {
			return true
		}
	}
	return false
}
