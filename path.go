package pipeteer

import "strings"

// Path identifies a queue inside a Backend. It is hierarchical at the
// API level but flattened to a single storage identifier (a table name,
// for the SQL backend) by JoinPath.
type Path []string

// JoinPath flattens a path to its storage-level name by joining
// elements with "-". An empty path maps to "root".
func JoinPath(path Path) string {
	if len(path) == 0 {
		return "root"
	}
	return strings.Join(path, "-")
}

// OutputPath is the canonical path of a pipeline's external output
// queue, ("output",).
var OutputPath = Path{"output"}

// StatesSuffix names the list-queue a workflow instance's history is
// stored under: path (W, "_states").
const StatesSuffix = "_states"

// UrlsSuffix names the queue mapping an instance key to its callback
// URL: path (W, "_urls").
const UrlsSuffix = "_urls"

// ResultsSuffix names the publicly-addressable queue sub-pipelines
// deposit their outputs to: path (W, "_results").
const ResultsSuffix = "_results"

// localScheme prefixes a Routed.URL that addresses a queue on the same
// backend as the worker reading it, as opposed to an httpqueue URL
// (http:// or https://) addressing a queue on a different storage.
const localScheme = "local://"

// LocalURL builds the Routed.URL a same-backend caller uses to address
// the queue at path. A Backend's QueueAt resolves it back to that same
// queue without needing the original Path (which JoinPath cannot
// recover, since "-" is not guaranteed unique to the join).
func LocalURL(path Path) string {
	return localScheme + JoinPath(path)
}

// SplitLocalURL reports whether url was built by LocalURL and, if so,
// returns the table name it names.
func SplitLocalURL(url string) (table string, ok bool) {
	if len(url) <= len(localScheme) || url[:len(localScheme)] != localScheme {
		return "", false
	}
	return url[len(localScheme):], true
}
