package permission

import (
	"fmt"
	"strings"

	"github.com/dangerclosesec/campusops/internal/domain"
)

// Key identifies one action on one resource type, written "resource:action".
type Key struct {
	Resource string
	Action   string
}

func ParseKey(s string) (Key, error) {
	resource, action, ok := strings.Cut(s, ":")
	if !ok || resource == "" || action == "" || strings.Contains(action, ":") {
		return Key{}, fmt.Errorf("%w: %q", domain.ErrInvalidPermissionKey, s)
	}
	return Key{Resource: resource, Action: action}, nil
}

// MustParseKey is for package-level constants.
func MustParseKey(s string) Key {
	k, err := ParseKey(s)
	if err != nil {
		panic(err)
	}
	return k
}

func (k Key) String() string {
	return k.Resource + ":" + k.Action
}
