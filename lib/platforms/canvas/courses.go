package canvas

const EnrollmentStateActive = "active"

type Enrollment struct {
	Type            string `json:"type"`
	Role            string `json:"role"`
	EnrollmentState string `json:"enrollment_state"`
	UserID          int64  `json:"user_id"`
}

type CourseCalendar struct {
	ICS string `json:"ics"`
}

// Course holds the subset of a canvas course record this module reads,
// the remainder of the record is ignored.
type Course struct {
	ID            int64           `json:"id"`
	Name          string          `json:"name"`
	CourseCode    string          `json:"course_code"`
	WorkflowState string          `json:"workflow_state"`
	Enrollments   []Enrollment    `json:"enrollments"`
	Calendar      *CourseCalendar `json:"calendar"`
}

func (c Course) ActivelyEnrolled() bool {
	for _, e := range c.Enrollments {
		if e.EnrollmentState == EnrollmentStateActive {
			return true
		}
	}
	return false
}

// CurrentCourseNames returns the names of the courses the user has an
// active enrollment in, in input order. A course listed twice under the
// same id is reported once, distinct courses sharing a name are not merged.
func CurrentCourseNames(courses []Course) []string {
	seen := map[int64]struct{}{}
	names := []string{}
	for _, course := range courses {
		if course.Name == "" || !course.ActivelyEnrolled() {
			continue
		}
		if course.ID != 0 {
			if _, ok := seen[course.ID]; ok {
				continue
			}
			seen[course.ID] = struct{}{}
		}
		names = append(names, course.Name)
	}
	return names
}
