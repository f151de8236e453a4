package types

// ResolutionKind classifies the teams a user can register a command in
type ResolutionKind string

const (
	ResolutionNoTeams       ResolutionKind = "no_teams"
	ResolutionSingleTeam    ResolutionKind = "single_team"
	ResolutionMultipleTeams ResolutionKind = "multiple_teams"
)

// String returns the string representation of the kind
func (k ResolutionKind) String() string {
	return string(k)
}

// IsValid checks if the kind is valid
func (k ResolutionKind) IsValid() bool {
	switch k {
	case ResolutionNoTeams, ResolutionSingleTeam, ResolutionMultipleTeams:
		return true
	default:
		return false
	}
}

// Submittable reports whether a team selection form exists for the kind
func (k ResolutionKind) Submittable() bool {
	return k == ResolutionSingleTeam || k == ResolutionMultipleTeams
}
