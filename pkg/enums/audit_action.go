package enums

// AuditAction identifies what an audit event recorded.
type AuditAction string

const (
	AuditActionCreate AuditAction = "create"
	AuditActionUpdate AuditAction = "update"
	AuditActionDelete AuditAction = "delete"
	AuditActionStatus AuditAction = "status_change"
	AuditActionLogin  AuditAction = "login"
)

func (a AuditAction) String() string {
	return string(a)
}

func (a AuditAction) IsValid() bool {
	switch a {
	case AuditActionCreate, AuditActionUpdate, AuditActionDelete, AuditActionStatus, AuditActionLogin:
		return true
	default:
		return false
	}
}

func ParseAuditAction(value string) (AuditAction, bool) {
	action := AuditAction(value)
	if !action.IsValid() {
		return "", false
	}
	return action, true
}
