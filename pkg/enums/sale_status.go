package enums

// SaleStatus mirrors the sales.status column.
type SaleStatus string

const (
	SaleStatusCompleted SaleStatus = "completed"
	SaleStatusCancelled SaleStatus = "cancelled"
)

func (s SaleStatus) String() string {
	return string(s)
}

func (s SaleStatus) IsValid() bool {
	switch s {
	case SaleStatusCompleted, SaleStatusCancelled:
		return true
	default:
		return false
	}
}

func ParseSaleStatus(value string) (SaleStatus, bool) {
	status := SaleStatus(value)
	if !status.IsValid() {
		return "", false
	}
	return status, true
}
