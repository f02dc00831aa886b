package config

import "os"

// Find returns the config path to load: the explicit flag value when
// set, otherwise the first of akips.yml / akips.yaml that exists in the
// working directory, otherwise empty (environment-only configuration).
func Find(explicit string) string {
	if explicit != "" {
		return explicit
	}
	for _, cand := range []string{"akips.yml", "akips.yaml"} {
		if fi, err := os.Stat(cand); err == nil && !fi.IsDir() {
			return cand
		}
	}
	return ""
}
