package domain

// Status is the transaction lifecycle state. PENDING is the only
// non-terminal state; transitions out of it are one-directional.
type Status string

const (
	StatusPending  Status = "PENDING"
	StatusApproved Status = "APPROVED"
	StatusDeclined Status = "DECLINED"
	StatusVoided   Status = "VOIDED"
	StatusError    Status = "ERROR"
)

// ParseStatus validates an externally supplied status value.
func ParseStatus(s string) (Status, bool) {
	switch Status(s) {
	case StatusPending, StatusApproved, StatusDeclined, StatusVoided, StatusError:
		return Status(s), true
	}
	return "", false
}

// Terminal reports whether s is a settlement outcome the gateway will not
// move away from.
func (s Status) Terminal() bool {
	return s != StatusPending && s != ""
}
