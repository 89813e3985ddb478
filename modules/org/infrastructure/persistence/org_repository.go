package persistence

import (
	"time"

	"github.com/jackc/pgx/v5/pgtype"

	"github.com/orgledger/orgledger/modules/org/services"
)

// OrgRepository is the single pgx-backed implementation behind the service
// repository interfaces. It is stateless; the connection or transaction is
// taken from the context on every call.
type OrgRepository struct{}

func NewOrgRepository() *OrgRepository {
	return &OrgRepository{}
}

var (
	_ services.AssignmentRepository = (*OrgRepository)(nil)
	_ services.UnitRepository       = (*OrgRepository)(nil)
	_ services.DirectoryRepository  = (*OrgRepository)(nil)
)

func textPtr(t pgtype.Text) *string {
	if !t.Valid {
		return nil
	}
	v := t.String
	return &v
}

func datePtr(d pgtype.Date) *time.Time {
	if !d.Valid {
		return nil
	}
	v := d.Time
	return &v
}
