package reports

import "fmt"

// Selection names the two filenames picked for comparison.
type Selection struct {
	First  string
	Second string
}

// Comparison is a side-by-side view of two reports.
// Suppressed is set when both slots name the same file; Left and Right are then nil.
type Comparison struct {
	Selection
	Left       *Report
	Right      *Report
	Suppressed bool
}

// FileNames returns the distinct filenames of history in first-seen order.
func FileNames(history []Report) []string {
	seen := make(map[string]struct{}, len(history))
	out := make([]string, 0, len(history))
	for _, rep := range history {
		if _, ok := seen[rep.FileName]; ok {
			continue
		}
		seen[rep.FileName] = struct{}{}
		out = append(out, rep.FileName)
	}
	return out
}

// CanCompare reports whether history is long enough for a comparison.
func CanCompare(history []Report) bool {
	return len(history) >= 2
}

// DefaultSelection preselects the first two distinct filenames.
// With a single distinct filename both slots name it.
func DefaultSelection(history []Report) (Selection, bool) {
	if !CanCompare(history) {
		return Selection{}, false
	}
	names := FileNames(history)
	if len(names) == 1 {
		return Selection{First: names[0], Second: names[0]}, true
	}
	return Selection{First: names[0], Second: names[1]}, true
}

// Compare resolves the first report recorded for each filename.
func Compare(history []Report, first, second string) (Comparison, error) {
	if !CanCompare(history) {
		return Comparison{}, ErrNotEnoughReports
	}
	sel := Selection{First: first, Second: second}
	left, ok := firstByFileName(history, first)
	if !ok {
		return Comparison{}, fmt.Errorf("%w: %q", ErrNotFound, first)
	}
	right, ok := firstByFileName(history, second)
	if !ok {
		return Comparison{}, fmt.Errorf("%w: %q", ErrNotFound, second)
	}
	if first == second {
		return Comparison{Selection: sel, Suppressed: true}, nil
	}
	return Comparison{Selection: sel, Left: &left, Right: &right}, nil
}

func firstByFileName(history []Report, fileName string) (Report, bool) {
	for _, rep := range history {
		if rep.FileName == fileName {
			return rep, true
		}
	}
	return Report{}, false
}
