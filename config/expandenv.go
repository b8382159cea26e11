package config

import (
	"fmt"
	"os"
	"regexp"
	"strings"
)

// Braced references are the strict form: ${VAR} must resolve.
var envRefPattern = regexp.MustCompile(`\$\{([A-Za-z_][A-Za-z0-9_]*)\}`)

// ExpandEnvStrict expands environment variable references in s.
//
// `${VAR}` and `$VAR` expand to the variable's value. A braced reference
// to a variable missing from the environment is an error naming every
// missing variable in order of first appearance; the unbraced form
// expands to the empty string, as os.ExpandEnv does. `$$` emits a
// literal `$`.
func ExpandEnvStrict(s string) (string, error) {
	const literalDollar = "\x00edgegate-literal-dollar\x00"
	s = strings.ReplaceAll(s, "$$", literalDollar)

	var missing []string
	seen := make(map[string]struct{})
	for _, match := range envRefPattern.FindAllStringSubmatch(s, -1) {
		name := match[1]
		if _, ok := os.LookupEnv(name); ok {
			continue
		}
		if _, dup := seen[name]; dup {
			continue
		}
		seen[name] = struct{}{}
		missing = append(missing, name)
	}
	if len(missing) > 0 {
		return "", fmt.Errorf("missing environment variables: %s", strings.Join(missing, ", "))
	}

	s = os.ExpandEnv(s)
	return strings.ReplaceAll(s, literalDollar, "$"), nil
}
