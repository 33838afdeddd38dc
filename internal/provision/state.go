package provision

// State names one step of the provisioning flow. The saga advances
// through these in order; there is exactly one compensating action
// (remote account deletion), taken when a later step fails after the
// remote account exists.
type State int

const (
	StateInit State = iota
	StateDbReserved
	StateRemoteChecked
	StateRemoteCreated
	StateRoleAssigned
	StateCredentialSet
	StateDbLinked
	StateNotified
	StateDone
)

var stateNames = [...]string{
	"Init",
	"DbReserved",
	"RemoteChecked",
	"RemoteCreated",
	"RoleAssigned",
	"CredentialSet",
	"DbLinked",
	"Notified",
	"Done",
}

func (s State) String() string {
	if s < StateInit || s > StateDone {
		return "Unknown"
	}
	return stateNames[s]
}
