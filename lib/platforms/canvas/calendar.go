package canvas

import "strings"

// Event is a single VEVENT, keyed by property name (parameters included,
// e.g. "DTSTART;VALUE=DATE").
type Event map[string]string

type Calendar struct {
	Events []Event `json:"events"`
}

// NormalizeFeedURL rewrites webcal:// links, which is how canvas advertises
// course calendars, into fetchable https:// links.
func NormalizeFeedURL(feedUrl string) string {
	feedUrl = strings.TrimSpace(feedUrl)
	if rest, ok := strings.CutPrefix(feedUrl, "webcal://"); ok {
		return "https://" + rest
	}
	return feedUrl
}

// ParseICS is a line based reader for the events of an ics document.
// A line is split on ':' with empty pieces discarded, properties that do not
// yield exactly two pieces (URL values, empty values) are dropped, and folded
// lines are not unfolded.
func ParseICS(content string) Calendar {
	calendar := Calendar{Events: []Event{}}
	current := Event{}

	for _, line := range strings.Split(content, "\n") {
		line = strings.TrimSpace(line)

		switch line {
		case "BEGIN:VEVENT":
			current = Event{}
			continue
		case "END:VEVENT":
			calendar.Events = append(calendar.Events, current)
			current = Event{}
			continue
		}

		parts := strings.FieldsFunc(line, func(r rune) bool { return r == ':' })
		if len(parts) != 2 {
			continue
		}
		key := strings.TrimSpace(parts[0])
		value := strings.TrimSpace(parts[1])
		current[key] = value
	}

	return calendar
}
