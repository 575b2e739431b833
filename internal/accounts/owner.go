package accounts

import (
	"strconv"
	"strings"

	pkgerrors "github.com/angelmondragon/recurly-gateway/pkg/errors"
)

// OwnerTypeUser is the reserved owner type backed by the users table.
const OwnerTypeUser = "user"

// Owner is the local entity a billing account belongs to.
type Owner struct {
	Type string
	ID   string
}

// NewOwner trims and validates an owner pair.
func NewOwner(ownerType, ownerID string) (Owner, error) {
	owner := Owner{Type: strings.TrimSpace(ownerType), ID: strings.TrimSpace(ownerID)}
	if owner.Type == "" {
		return Owner{}, pkgerrors.New(pkgerrors.CodeValidation, "owner type is required")
	}
	if owner.ID == "" {
		return Owner{}, pkgerrors.New(pkgerrors.CodeValidation, "owner id is required")
	}
	return owner, nil
}

// AccountCode is the remote account code minted for the owner at signup.
func (o Owner) AccountCode() string {
	return o.Type + "-" + o.ID
}

func (o Owner) String() string {
	return o.AccountCode()
}

// IsUser reports whether the owner is a local user.
func (o Owner) IsUser() bool {
	return o.Type == OwnerTypeUser
}

// NumericID parses the owner id; discovery only accepts numeric ids.
func (o Owner) NumericID() (int64, bool) {
	id, err := strconv.ParseInt(o.ID, 10, 64)
	if err != nil || id <= 0 {
		return 0, false
	}
	return id, true
}

// ParseAccountCode splits "{owner_type}-{owner_id}" at the last hyphen.
func ParseAccountCode(code string) (Owner, bool) {
	code = strings.TrimSpace(code)
	idx := strings.LastIndex(code, "-")
	if idx <= 0 || idx == len(code)-1 {
		return Owner{}, false
	}
	return Owner{Type: code[:idx], ID: code[idx+1:]}, true
}
