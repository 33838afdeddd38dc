package employee

import "context"

// PageResult is one page of the filtered listing, with offset/limit
// already translated to page-number/page-size by the store.
type PageResult struct {
	Items      []Record
	PageNumber int
	PageSize   int
	TotalCount int64
}

// Store is the record-store gateway. All lookups are scoped to active
// records except GetByCodeAny, which the activation toggle uses and
// which must see inactive rows too.
type Store interface {
	GetByCode(ctx context.Context, employeeCode string) (*Record, error)
	GetByCodeAny(ctx context.Context, employeeCode string) (*Record, error)
	GetByEmail(ctx context.Context, email string) (*Record, error)
	GetByKeycloakID(ctx context.Context, keycloakUserID string) (*Record, error)
	ListByManager(ctx context.Context, managerCode string) ([]Record, error)
	ListActive(ctx context.Context) ([]Record, error)

	Insert(ctx context.Context, rec Record) error
	Update(ctx context.Context, rec Record) error
	SetActive(ctx context.Context, employeeCode string, active bool) error

	// Link writes the remote identity id into a reserved record and
	// activates it in the same statement.
	Link(ctx context.Context, employeeCode, keycloakUserID string) error

	// Page runs the filtered, ordered, paged listing. The active-only
	// invariant is merged in as a mandatory conjunct; an empty page is a
	// not-found condition, not an empty success.
	Page(ctx context.Context, filters []Filter, sorts []Sort, offset, limit int) (*PageResult, error)
}
