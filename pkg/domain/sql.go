package domain

import (
	"database/sql/driver"

	"github.com/google/uuid"
)

// Value/Scan delegate to uuid.UUID so typed IDs round-trip through
// database/sql as their canonical string form.

func (id UserID) Value() (driver.Value, error)       { return uuid.UUID(id).Value() }
func (id AddressID) Value() (driver.Value, error)    { return uuid.UUID(id).Value() }
func (id OrgID) Value() (driver.Value, error)        { return uuid.UUID(id).Value() }
func (id MembershipID) Value() (driver.Value, error) { return uuid.UUID(id).Value() }
func (id GrantID) Value() (driver.Value, error)      { return uuid.UUID(id).Value() }
func (id RecordID) Value() (driver.Value, error)     { return uuid.UUID(id).Value() }

func (id *UserID) Scan(src any) error       { return (*uuid.UUID)(id).Scan(src) }
func (id *AddressID) Scan(src any) error    { return (*uuid.UUID)(id).Scan(src) }
func (id *OrgID) Scan(src any) error        { return (*uuid.UUID)(id).Scan(src) }
func (id *MembershipID) Scan(src any) error { return (*uuid.UUID)(id).Scan(src) }
func (id *GrantID) Scan(src any) error      { return (*uuid.UUID)(id).Scan(src) }
func (id *RecordID) Scan(src any) error     { return (*uuid.UUID)(id).Scan(src) }
