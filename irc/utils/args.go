// Copyright (c) 2026 boardirc contributors
// released under the MIT license

package utils

import (
	"strings"
)

// SafeErrorParam checks that a parameter can be passed as a non-trailing,
// and returns "*" if it can't.
func SafeErrorParam(param string) string {
	if param == "" || param[0] == ':' || strings.IndexByte(param, ' ') != -1 {
		return "*"
	}
	return param
}

// BoolDefaultTrue reads an optional config boolean that defaults to true.
func BoolDefaultTrue(value *bool) bool {
	if value != nil {
		return *value
	}
	return true
}
