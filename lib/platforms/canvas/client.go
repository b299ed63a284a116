package canvas

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"studyhub-backend/lib/telemetry"

	"github.com/go-resty/resty/v2"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

var tracer = otel.Tracer("platforms/canvas")

// StatusError is returned when canvas answers with anything but 200.
type StatusError struct {
	Code int
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("unexpected status code %d", e.Code)
}

type ClientOptions struct {
	// CoursesUrl is the full course listing endpoint, for example
	// https://canvas.instructure.com/api/v1/courses
	CoursesUrl  string
	AccessToken string
	// 0 means no timeout.
	Timeout time.Duration
}

type Client struct {
	CoursesUrl  *url.URL
	Http        *resty.Client
	accessToken string
}

func NewClient(opts ClientOptions) (*Client, error) {
	if opts.CoursesUrl == "" {
		return nil, fmt.Errorf("courses url is empty")
	}
	if opts.AccessToken == "" {
		return nil, fmt.Errorf("access token is empty")
	}
	coursesUrl, err := url.Parse(opts.CoursesUrl)
	if err != nil {
		return nil, fmt.Errorf("parse courses url: %w", err)
	}
	if coursesUrl.Scheme == "" || coursesUrl.Host == "" {
		return nil, fmt.Errorf("courses url %q is not absolute", opts.CoursesUrl)
	}

	client := resty.New()
	if opts.Timeout > 0 {
		client.SetTimeout(opts.Timeout)
	}
	client.SetHeader("user-agent", "studyhub-backend")
	telemetry.InstrumentResty(client, "platforms/canvas/http")

	return &Client{
		CoursesUrl:  coursesUrl,
		Http:        client,
		accessToken: opts.AccessToken,
	}, nil
}

// Page is a single, undecoded response of the course listing endpoint.
type Page struct {
	StatusCode int
	Body       []byte
	// Next is the url of the following page if canvas advertised one.
	Next string
}

func (c *Client) courseRequest(ctx context.Context) *resty.Request {
	return c.Http.R().
		SetContext(ctx).
		SetHeader("accept", "application/json").
		SetQueryParam("access_token", c.accessToken)
}

// FetchCourses performs exactly one GET against the course listing endpoint
// filtered by enrollment state. Only transport failures are returned as
// errors, any http status is reported through the returned Page.
func (c *Client) FetchCourses(ctx context.Context, enrollmentState string) (Page, error) {
	ctx, span := tracer.Start(ctx, "client:FetchCourses")
	defer span.End()

	if enrollmentState == "" {
		span.SetStatus(codes.Error, "empty enrollment state")
		return Page{}, fmt.Errorf("enrollment state is empty")
	}
	span.SetAttributes(attribute.String("canvas.enrollment_state", enrollmentState))

	res, err := c.courseRequest(ctx).
		SetQueryParam("enrollment_state", enrollmentState).
		Get(c.CoursesUrl.String())
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to fetch courses")
		return Page{}, err
	}

	page := Page{
		StatusCode: res.StatusCode(),
		Body:       res.Body(),
		Next:       nextLink(res.Header()),
	}
	if page.Next != "" {
		slog.WarnContext(
			ctx, "course listing has more pages, only the first page was fetched",
			"next", telemetry.RedactURL(page.Next),
		)
	}
	return page, nil
}

// ListCourses is FetchCourses decoded into course records.
func (c *Client) ListCourses(ctx context.Context, enrollmentState string) ([]Course, error) {
	ctx, span := tracer.Start(ctx, "client:ListCourses")
	defer span.End()

	page, err := c.FetchCourses(ctx, enrollmentState)
	if err != nil {
		return nil, err
	}
	if page.StatusCode != http.StatusOK {
		span.SetStatus(codes.Error, "unexpected status")
		return nil, &StatusError{Code: page.StatusCode}
	}

	var courses []Course
	err = json.Unmarshal(page.Body, &courses)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to decode courses")
		return nil, fmt.Errorf("decode courses: %w", err)
	}
	span.SetAttributes(attribute.Int("canvas.course_count", len(courses)))
	return courses, nil
}

// GetCourse fetches a single course by its id (or any identifier canvas
// accepts in the path, such as "sis_course_id:X").
func (c *Client) GetCourse(ctx context.Context, id string) (Course, error) {
	ctx, span := tracer.Start(ctx, "client:GetCourse")
	defer span.End()

	id = strings.TrimSpace(id)
	if id == "" {
		span.SetStatus(codes.Error, "empty course id")
		return Course{}, fmt.Errorf("course id is empty")
	}
	span.SetAttributes(attribute.String("canvas.course_id", id))

	res, err := c.courseRequest(ctx).Get(c.CoursesUrl.JoinPath(id).String())
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to fetch course")
		return Course{}, err
	}
	if res.StatusCode() != http.StatusOK {
		span.SetStatus(codes.Error, "unexpected status")
		return Course{}, &StatusError{Code: res.StatusCode()}
	}

	var course Course
	err = json.Unmarshal(res.Body(), &course)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to decode course")
		return Course{}, fmt.Errorf("decode course: %w", err)
	}
	return course, nil
}

// FetchCalendar downloads and parses an ics feed. The access token is not
// sent, calendar feed urls carry their own credentials.
func (c *Client) FetchCalendar(ctx context.Context, feedUrl string) (Calendar, error) {
	ctx, span := tracer.Start(ctx, "client:FetchCalendar")
	defer span.End()

	feedUrl = NormalizeFeedURL(feedUrl)
	parsed, err := url.Parse(feedUrl)
	if err != nil || parsed.Host == "" {
		span.SetStatus(codes.Error, "invalid feed url")
		return Calendar{}, fmt.Errorf("invalid calendar feed url %q", telemetry.RedactURL(feedUrl))
	}

	res, err := c.Http.R().
		SetContext(ctx).
		SetHeader("accept", "text/calendar").
		Get(feedUrl)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to fetch calendar")
		return Calendar{}, err
	}
	if res.StatusCode() != http.StatusOK {
		span.SetStatus(codes.Error, "unexpected status")
		return Calendar{}, &StatusError{Code: res.StatusCode()}
	}

	calendar := ParseICS(res.String())
	span.SetAttributes(attribute.Int("canvas.event_count", len(calendar.Events)))
	return calendar, nil
}
