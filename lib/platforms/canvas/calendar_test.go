package canvas

import (
	"encoding/json"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/require"
)

func TestNormalizeFeedURL(t *testing.T) {
	testCases := []struct {
		in     string
		expect string
	}{
		{in: "webcal://canvas.example.com/feeds/calendars/course_1.ics", expect: "https://canvas.example.com/feeds/calendars/course_1.ics"},
		{in: "https://canvas.example.com/feeds/calendars/course_1.ics", expect: "https://canvas.example.com/feeds/calendars/course_1.ics"},
		{in: "  webcal://x/y.ics\n", expect: "https://x/y.ics"},
		{in: "", expect: ""},
	}
	for _, test := range testCases {
		require.Equal(t, test.expect, NormalizeFeedURL(test.in))
	}
}

func TestParseICS(t *testing.T) {
	content := `BEGIN:VCALENDAR
VERSION:2.0
PRODID:-//Instructure//Canvas
BEGIN:VEVENT
DTSTART:20241014T170000Z
SUMMARY: Midterm Exam
URL:https://canvas.example.com/calendar?event_id=1
UID:event-assignment-1
END:VEVENT

BEGIN:VEVENT
SUMMARY:Lab report
END:VEVENT
END:VCALENDAR
`
	calendar := ParseICS(content)
	expect := Calendar{
		Events: []Event{
			{
				"DTSTART": "20241014T170000Z",
				"SUMMARY": "Midterm Exam",
				"UID":     "event-assignment-1",
			},
			{
				"SUMMARY": "Lab report",
			},
		},
	}
	require.Empty(t, cmp.Diff(expect, calendar))
}

func TestParseICSEventsAreIndependent(t *testing.T) {
	calendar := ParseICS("BEGIN:VEVENT\nSUMMARY:a\nEND:VEVENT\nSUMMARY:b\n")
	require.Len(t, calendar.Events, 1)
	require.Equal(t, "a", calendar.Events[0]["SUMMARY"])
}

func TestParseICSEmpty(t *testing.T) {
	encoded, err := json.Marshal(ParseICS(""))
	require.NoError(t, err)
	require.JSONEq(t, `{"events": []}`, string(encoded))
}

func TestParseICSEmptyPieces(t *testing.T) {
	calendar := ParseICS("BEGIN:VEVENT\nSUMMARY:Quiz\nDESCRIPTION:\nX-ALT::value\n:leading\nEND:VEVENT\n")
	expect := []Event{
		{
			"SUMMARY": "Quiz",
			"X-ALT":   "value",
		},
	}
	require.Empty(t, cmp.Diff(expect, calendar.Events))
}
