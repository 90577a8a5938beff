package enums

// UnitStatus mirrors the inventory_units.status column.
type UnitStatus string

const (
	UnitStatusAvailable UnitStatus = "available"
	UnitStatusReserved  UnitStatus = "reserved"
	UnitStatusRented    UnitStatus = "rented"
	UnitStatusReturned  UnitStatus = "returned"
	UnitStatusSold      UnitStatus = "sold"
	UnitStatusRetired   UnitStatus = "retired"
)

func (s UnitStatus) String() string {
	return string(s)
}

func (s UnitStatus) IsValid() bool {
	switch s {
	case UnitStatusAvailable, UnitStatusReserved, UnitStatusRented,
		UnitStatusReturned, UnitStatusSold, UnitStatusRetired:
		return true
	default:
		return false
	}
}

// IsTerminal reports whether no further transition is allowed out of s.
func (s UnitStatus) IsTerminal() bool {
	return s == UnitStatusSold || s == UnitStatusRetired
}

// unitStatusTransitions is the single source of truth for the unit
// lifecycle. A unit may only move along the edges listed here.
var unitStatusTransitions = map[UnitStatus][]UnitStatus{
	UnitStatusAvailable: {UnitStatusReserved, UnitStatusRented, UnitStatusSold, UnitStatusRetired},
	UnitStatusReserved:  {UnitStatusRented, UnitStatusAvailable},
	UnitStatusRented:    {UnitStatusReturned},
	UnitStatusReturned:  {UnitStatusAvailable, UnitStatusRetired},
	UnitStatusSold:      {},
	UnitStatusRetired:   {},
}

// CanTransitionTo reports whether the lifecycle permits moving from s to next.
func (s UnitStatus) CanTransitionTo(next UnitStatus) bool {
	for _, allowed := range unitStatusTransitions[s] {
		if allowed == next {
			return true
		}
	}
	return false
}

func ParseUnitStatus(value string) (UnitStatus, bool) {
	status := UnitStatus(value)
	if !status.IsValid() {
		return "", false
	}
	return status, true
}
