package extractor

import "strings"

// Fields holds the labelled values found in a model response. Empty strings
// mean the label was absent.
type Fields struct {
	EventName string
	Location  string
	StartRaw  string
	EndRaw    string
}

// validitySeparator splits the "Days during which the ticket is valid" value.
const validitySeparator = " to "

// ParseFields scans the response line by line for the known label prefixes.
// A later line overwrites an earlier one for the same field. It never fails.
func ParseFields(raw string) Fields {
	var f Fields
	for _, line := range strings.Split(raw, "\n") {
		line = strings.TrimLeft(strings.TrimRight(line, "\r"), " \t")

		if v, ok := cutLabel(line, LabelEventName); ok {
			f.EventName = v
		} else if v, ok := cutLabel(line, LabelLocation); ok {
			f.Location = v
		} else if v, ok := cutLabel(line, LabelDateTime); ok {
			f.StartRaw = v
		} else if v, ok := cutLabel(line, LabelValidDays); ok {
			start, end, found := strings.Cut(v, validitySeparator)
			f.StartRaw = strings.TrimSpace(start)
			f.EndRaw = ""
			if found {
				f.EndRaw = strings.TrimSpace(end)
			}
		}
	}
	return f
}

func cutLabel(line, label string) (string, bool) {
	rest, ok := strings.CutPrefix(line, label)
	if !ok {
		return "", false
	}
	return strings.TrimSpace(rest), true
}
