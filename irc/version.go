// Copyright (c) 2026 boardirc contributors
// released under the MIT license

package irc

import "fmt"

const (
	// SemVer is the semantic version of boardirc.
	SemVer = "0.3.0"
)

var (
	// Ver is the full version of boardirc, used in responses to clients.
	Ver = fmt.Sprintf("boardirc-%s", SemVer)
	// Commit is the full git hash, if available
	Commit string
)

// initialize version strings (these are set in package main via linker flags)
func SetVersionString(version, commit string) {
	Commit = commit
	if version != "" {
		Ver = fmt.Sprintf("boardirc-%s", version)
	} else if len(Commit) == 40 {
		Ver = fmt.Sprintf("boardirc-%s-%s", SemVer, Commit[:16])
	}
}
