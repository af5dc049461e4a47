package registry

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/payneio/castle/internal/secrets"
)

var secretRefRe = regexp.MustCompile(`\$\{([^}]+)\}`)

// resolveEnv substitutes `${secret:NAME}` references with a value read from
// store. A missing secret becomes the literal placeholder
// `<MISSING_SECRET:NAME>` — it never raises (spec.md §4.2 step 3,
// §7 MissingSecret policy).
func resolveEnv(env map[string]string, store *secrets.Store) map[string]string {
	out := make(map[string]string, len(env))
	for k, v := range env {
		out[k] = secretRefRe.ReplaceAllStringFunc(v, func(m string) string {
			ref := secretRefRe.FindStringSubmatch(m)[1]
			if !strings.HasPrefix(ref, "secret:") {
				return m
			}
			name := strings.TrimPrefix(ref, "secret:")
			if store == nil {
				return fmt.Sprintf("<MISSING_SECRET:%s>", name)
			}
			val, ok, err := store.Get(name)
			if err != nil || !ok {
				return fmt.Sprintf("<MISSING_SECRET:%s>", name)
			}
			return val
		})
	}
	return out
}

// envPrefix derives the convention env-var prefix from a component id:
// upper(replace(id, '-', '_')) (spec.md §4.2 step 1).
func envPrefix(id string) string {
	return strings.ToUpper(strings.NewReplacer("-", "_").Replace(id))
}

// mergeEnv merges override onto base, override wins (spec.md §4.2 step 2:
// "Merge defaults.env over conventions (user wins)").
func mergeEnv(base, override map[string]string) map[string]string {
	out := make(map[string]string, len(base)+len(override))
	for k, v := range base {
		out[k] = v
	}
	for k, v := range override {
		out[k] = v
	}
	return out
}
