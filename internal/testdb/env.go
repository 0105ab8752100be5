package testdb

import (
	"os"
)

const (
	// EnvTestDBURL is the preferred variable for the integration test database.
	EnvTestDBURL = "ANNOTATOR_TEST_DB_URL"
	// EnvDatabaseURL is the conventional fallback.
	EnvDatabaseURL = "DATABASE_URL"
)

var ciVariables = []string{"CI", "GITHUB_ACTIONS", "GITLAB_CI", "JENKINS_URL", "CIRCLECI"}

// DatabaseURL returns the first non-empty of ANNOTATOR_TEST_DB_URL and
// DATABASE_URL.
func DatabaseURL() string {
	for _, name := range []string{EnvTestDBURL, EnvDatabaseURL} {
		if v := os.Getenv(name); v != "" {
			return v
		}
	}
	return ""
}

// IsCI reports whether the tests run under a CI provider.
func IsCI() bool {
	for _, name := range ciVariables {
		if os.Getenv(name) != "" {
			return true
		}
	}
	return false
}
