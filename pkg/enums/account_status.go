package enums

// AccountStatus mirrors the remote account state stored on the local record.
type AccountStatus string

const (
	AccountStatusActive AccountStatus = "active"
	AccountStatusClosed AccountStatus = "closed"
)

func (s AccountStatus) String() string {
	return string(s)
}

// NormalizeAccountStatus maps the gateway account state onto the stored status.
func NormalizeAccountStatus(value string) AccountStatus {
	switch value {
	case "closed", "inactive":
		return AccountStatusClosed
	}
	return AccountStatusActive
}
