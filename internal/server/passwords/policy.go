package passwords

import (
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/dmitrijs2005/gophidentity/internal/common"
)

// Policy is deliberately minimal: a length floor and, optionally, a ban on
// passwords that contain the user name.
type Policy struct {
	MinLength        int
	DisallowUserName bool
}

// Validate returns an error wrapping common.ErrWeakCredential when password
// is rejected.
func (p Policy) Validate(userName, password string) error {
	if utf8.RuneCountInString(password) < p.MinLength {
		return fmt.Errorf("%w: must be at least %d characters", common.ErrWeakCredential, p.MinLength)
	}

	name := strings.TrimSpace(userName)
	if p.DisallowUserName && name != "" &&
		strings.Contains(strings.ToUpper(password), strings.ToUpper(name)) {
		return fmt.Errorf("%w: must not contain the user name", common.ErrWeakCredential)
	}

	return nil
}
