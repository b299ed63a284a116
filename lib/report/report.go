package report

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"

	"studyhub-backend/lib/platforms/canvas"
)

// Indent is the indentation used when re-serializing the course listing.
const Indent = "    "

// CourseFetcher is the part of the canvas client the report depends on.
type CourseFetcher interface {
	FetchCourses(ctx context.Context, enrollmentState string) (canvas.Page, error)
}

// FormatJSON validates body as json and re-serializes it with 4 space
// indentation, preserving key order. String escapes and number literals are
// copied as sent, so "\u003c" stays escaped and 1.50 is not shortened.
func FormatJSON(body []byte) ([]byte, error) {
	if !json.Valid(body) {
		return nil, fmt.Errorf("response body is not valid json")
	}
	var out bytes.Buffer
	err := json.Indent(&out, bytes.TrimSpace(body), "", Indent)
	if err != nil {
		return nil, err
	}
	return out.Bytes(), nil
}

// Courses performs one course listing request and writes the outcome to w:
// the indented json document on 200, or "Error: <code>" for any other
// status, in which case the body is never parsed.
//
// A non-200 status is reported, not returned. Transport failures and
// malformed json on a 200 are returned as errors and nothing is written.
func Courses(ctx context.Context, fetcher CourseFetcher, enrollmentState string, w io.Writer) error {
	page, err := fetcher.FetchCourses(ctx, enrollmentState)
	if err != nil {
		return fmt.Errorf("fetch courses: %w", err)
	}

	if page.StatusCode != http.StatusOK {
		slog.DebugContext(ctx, "course listing failed", "status", page.StatusCode)
		_, err = fmt.Fprintln(w, "Error:", page.StatusCode)
		return err
	}

	formatted, err := FormatJSON(page.Body)
	if err != nil {
		return fmt.Errorf("format courses: %w", err)
	}
	_, err = fmt.Fprintln(w, string(formatted))
	return err
}
