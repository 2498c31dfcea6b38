package pairing

import (
	"fmt"
	"regexp"
	"strings"
)

// extensionRe is the syntax accepted for channels that are not in the known
// registry: starts with a lowercase letter, max 64 chars, only lowercase
// letters, digits, "_" and "-". Third-party channel plugins can participate
// without this package knowing about them in advance.
var extensionRe = regexp.MustCompile(`^[a-z][a-z0-9_-]{0,63}$`)

// Channel is a validated pairing channel identifier. The zero value is not
// valid; obtain one through ResolveChannel.
type Channel struct {
	name string
}

func (c Channel) String() string { return c.name }

// IsZero reports whether c was never resolved.
func (c Channel) IsZero() bool { return c.name == "" }

// InvalidChannelError is returned when a raw channel string is neither a
// known channel nor valid extension-channel syntax.
type InvalidChannelError struct {
	Raw string
}

func (e *InvalidChannelError) Error() string {
	return fmt.Sprintf("Invalid channel: %s", e.Raw)
}

// ResolveChannel normalizes raw (trim + lowercase) and validates it against
// the known channel list, then against the extension-channel pattern. Known
// channels get no extra syntax check beyond membership; unknown ones must
// match the pattern so malformed identifiers never reach the store layer.
// Resolution is pure and never contacts the store.
func ResolveChannel(raw string, known []string) (Channel, error) {
	name := strings.ToLower(strings.TrimSpace(raw))
	for _, k := range known {
		if k == name {
			return Channel{name: name}, nil
		}
	}
	if extensionRe.MatchString(name) {
		return Channel{name: name}, nil
	}
	return Channel{}, &InvalidChannelError{Raw: strings.TrimSpace(raw)}
}
