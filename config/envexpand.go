package config

import (
	"fmt"
	"os"
	"regexp"
	"strings"

	"github.com/hashicorp/go-multierror"
)

// envRef matches ${NAME}, ${NAME:-default} and ${NAME:?message}.
var envRef = regexp.MustCompile(`\$\{([A-Za-z_][A-Za-z0-9_]*)(?:(:-|:\?)([^}]*))?\}`)

// ExpandEnv substitutes environment references in settings text:
//
//	${NAME}           value of NAME, empty if unset
//	${NAME:-default}  value of NAME, or default if unset or empty
//	${NAME:?message}  value of NAME, or an error carrying message
//
// Every missing required variable is reported, not only the first.
func ExpandEnv(input string) (string, error) {
	var missing *multierror.Error
	out := envRef.ReplaceAllStringFunc(input, func(ref string) string {
		m := envRef.FindStringSubmatch(ref)
		name, op, arg := m[1], m[2], m[3]

		value := os.Getenv(name)
		if value != "" {
			return value
		}
		switch op {
		case ":-":
			return arg
		case ":?":
			msg := strings.TrimSpace(arg)
			if msg == "" {
				msg = "required"
			}
			missing = multierror.Append(missing, fmt.Errorf("${%s}: %s", name, msg))
		}
		return ""
	})
	if err := missing.ErrorOrNil(); err != nil {
		return "", fmt.Errorf("unset environment variables: %w", err)
	}
	return out, nil
}
