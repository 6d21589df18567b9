package index

import (
	"sort"
	"strconv"
	"strings"
)

// Compare orders two dotted version strings. Each dot-separated component is
// compared as a non-negative integer; a missing trailing component is
// treated as 0 (so "1.0" == "1.0.0"). A component that fails to parse as an
// integer is treated as sorting lower than a purely-numeric component at
// the same position, with equal-prefix versions otherwise tied lexically on
// the non-numeric component as a stable tie-break.
//
// Compare returns -1, 0, or 1, matching sort.Interface conventions.
func Compare(a, b string) int {
	pa := strings.Split(a, ".")
	pb := strings.Split(b, ".")

	n := len(pa)
	if len(pb) > n {
		n = len(pb)
	}

	for i := 0; i < n; i++ {
		ca, caOK := component(pa, i)
		cb, cbOK := component(pb, i)

		na, aNumeric := parseComponent(ca, caOK)
		nb, bNumeric := parseComponent(cb, cbOK)

		switch {
		case aNumeric && bNumeric:
			if na != nb {
				if na < nb {
					return -1
				}
				return 1
			}
		case aNumeric && !bNumeric:
			return 1
		case !aNumeric && bNumeric:
			return -1
		default:
			if ca != cb {
				return strings.Compare(ca, cb)
			}
		}
	}

	return 0
}

// component returns the i'th dot-separated component, or ("", false) if the
// version has fewer components than i+1.
func component(parts []string, i int) (string, bool) {
	if i >= len(parts) {
		return "", false
	}
	return parts[i], true
}

// parseComponent parses a version component as a non-negative integer.
// A missing component (present=false) is treated as numeric 0.
func parseComponent(s string, present bool) (int, bool) {
	if !present {
		return 0, true
	}
	n, err := strconv.Atoi(s)
	if err != nil || n < 0 {
		return 0, false
	}
	return n, true
}

// SortVersions sorts versions ascending in place using Compare.
func SortVersions(versions []string) {
	sort.Slice(versions, func(i, j int) bool {
		return Compare(versions[i], versions[j]) < 0
	})
}
