// Package version orders and resolves the Node.js versions a matrix run
// targets.
package version

import (
	"slices"
	"strconv"
	"strings"
)

// Compare orders two dotted version strings numerically, segment by
// segment. A segment missing on one side counts as zero, so "1.2" and
// "1.2.0" are equal while "2" is greater than "1.9.9". It returns -1, 0
// or 1.
func Compare(a, b string) int {
	pa := strings.Split(a, ".")
	pb := strings.Split(b, ".")

	n := max(len(pa), len(pb))
	for i := 0; i < n; i++ {
		var x, y int
		if i < len(pa) {
			x = segment(pa[i])
		}
		if i < len(pb) {
			y = segment(pb[i])
		}
		switch {
		case x > y:
			return 1
		case x < y:
			return -1
		}
	}
	return 0
}

// segment parses the leading decimal digits of s. "14-rc1" is 14 and a
// segment without leading digits is 0.
func segment(s string) int {
	end := 0
	for end < len(s) && s[end] >= '0' && s[end] <= '9' {
		end++
	}
	n, err := strconv.Atoi(s[:end])
	if err != nil {
		return 0
	}
	return n
}

// Normalize trims whitespace and a leading "v" from a version string.
func Normalize(v string) string {
	v = strings.TrimSpace(v)
	v = strings.TrimPrefix(v, "v")
	return strings.TrimPrefix(v, "V")
}

// Unique drops repeated versions and returns the rest sorted ascending
// with Compare. Versions that compare equal keep their input order.
func Unique(versions []string) []string {
	seen := make(map[string]bool, len(versions))
	out := make([]string, 0, len(versions))
	for _, v := range versions {
		if v == "" || seen[v] {
			continue
		}
		seen[v] = true
		out = append(out, v)
	}
	slices.SortStableFunc(out, Compare)
	return out
}
