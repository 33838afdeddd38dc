package employee

import "time"

// Record is the system-of-record row for one employee. The employee code
// is the primary identifier and never changes. KeycloakUserID stays empty
// until provisioning links the remote account back; it is a lookup key,
// not an ownership edge.
type Record struct {
	EmployeeCode   string
	KeycloakUserID string
	FirstName      string
	LastName       string
	Email          string
	EmployeeType   string
	ManagerCode    string
	IsActive       bool
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

// DefaultEmployeeType is applied when a request leaves the type blank.
const DefaultEmployeeType = "Employee"

func (r Record) DisplayName() string {
	return r.FirstName + " " + r.LastName
}
