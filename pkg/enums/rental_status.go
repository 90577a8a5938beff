package enums

// RentalStatus mirrors the rentals.status column.
type RentalStatus string

const (
	RentalStatusActive    RentalStatus = "active"
	RentalStatusOverdue   RentalStatus = "overdue"
	RentalStatusReturned  RentalStatus = "returned"
	RentalStatusCancelled RentalStatus = "cancelled"
)

func (s RentalStatus) String() string {
	return string(s)
}

func (s RentalStatus) IsValid() bool {
	switch s {
	case RentalStatusActive, RentalStatusOverdue, RentalStatusReturned, RentalStatusCancelled:
		return true
	default:
		return false
	}
}

// IsOpen reports whether the rental still has units out with the customer.
func (s RentalStatus) IsOpen() bool {
	return s == RentalStatusActive || s == RentalStatusOverdue
}

func ParseRentalStatus(value string) (RentalStatus, bool) {
	status := RentalStatus(value)
	if !status.IsValid() {
		return "", false
	}
	return status, true
}
