package agent

import "regexp"

// bracedSpan is greedy: on each line it spans from the first '{' to the last
// '}', so "A {x} B {y} C" loses everything between the outer braces.
var bracedSpan = regexp.MustCompile(`\{.*\}`)

// CleanResponse strips braced artifacts the model leaks into its answer.
func CleanResponse(text string) string {
	return bracedSpan.ReplaceAllString(text, "")
}
