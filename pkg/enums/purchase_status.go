package enums

// PurchaseStatus mirrors the purchases.status column.
type PurchaseStatus string

const (
	PurchaseStatusDraft     PurchaseStatus = "draft"
	PurchaseStatusReceived  PurchaseStatus = "received"
	PurchaseStatusCancelled PurchaseStatus = "cancelled"
)

func (s PurchaseStatus) String() string {
	return string(s)
}

func (s PurchaseStatus) IsValid() bool {
	switch s {
	case PurchaseStatusDraft, PurchaseStatusReceived, PurchaseStatusCancelled:
		return true
	default:
		return false
	}
}

func ParsePurchaseStatus(value string) (PurchaseStatus, bool) {
	status := PurchaseStatus(value)
	if !status.IsValid() {
		return "", false
	}
	return status, true
}
