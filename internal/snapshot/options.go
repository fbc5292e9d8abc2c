package snapshot

import "github.com/sabhiram/go-gitignore"

// ErrorPolicy decides what SyncFiles does after an entry fails.
type ErrorPolicy int

const (
	// AbortOnError stops at the first failing entry.
	AbortOnError ErrorPolicy = iota
	// ContinueOnError attempts every entry and reports all failures.
	ContinueOnError
)

// Options configures a snapshot run.
type Options struct {
	ResultsDirectory string
	Whitelist        []string
	ExcludeMatcher   *ignore.GitIgnore
	ErrorPolicy      ErrorPolicy
	VerifyContent    bool
	ManifestPath     string
	Copier           Copier
}
