package internal

import "time"

// Canonical column keys produced by the normalizer.
const (
	KeyCourseTitle        = "course_title"
	KeyPPGID              = "ppg_id"
	KeyFullName           = "full_name"
	KeyEmployeeEmail      = "employee_email"
	KeyManager            = "manager"
	KeyManagerEmail       = "manager_email"
	KeyWorkCountry        = "work_country"
	KeyLocation           = "location"
	KeySBU                = "sbu"
	KeyJobFunction        = "job_function"
	KeyRegistrationDate   = "registration_date"
	KeyRegistrationStatus = "registration_status"
	KeyCompletionStatus   = "completion_status"
	KeySessionStart       = "session_start"
	KeyInstructors        = "instructors"
	KeyPrimaryLocation    = "primary_location"
	KeyAttendanceStatus   = "attendance_status"
)

// RecordKeys is the column order of the cleaned table.
var RecordKeys = []string{
	KeyCourseTitle, KeyPPGID, KeyFullName, KeyEmployeeEmail, KeyManager, KeyManagerEmail,
	KeyWorkCountry, KeyLocation, KeySBU, KeyJobFunction, KeyRegistrationDate,
	KeyRegistrationStatus, KeyCompletionStatus, KeySessionStart, KeyInstructors,
	KeyPrimaryLocation, KeyAttendanceStatus,
}

func IsRecordKey(key string) bool {
	for _, k := range RecordKeys {
		if k == key {
			return true
		}
	}
	return false
}

type AttendanceStatus string

const (
	AttendanceAttended     AttendanceStatus = "Attended"
	AttendanceNotEntered   AttendanceStatus = "Not Entered"
	AttendanceDidNotAttend AttendanceStatus = "Did Not Attend"
)

// Table is a raw spreadsheet grid as loaded, before any header handling.
type Table struct {
	Source string
	Rows   [][]string
}

type ExtraColumn struct {
	Name  string
	Value string
}

type EnrollmentRecord struct {
	RowNo int

	EmployeeID    *int64
	FullName      string
	EmployeeEmail string
	Manager       string
	ManagerEmail  string

	WorkCountry     string
	Location        string
	PrimaryLocation string
	SBU             string
	JobFunction     string

	CourseTitle        string
	RegistrationDate   string
	RegistrationStatus string
	CompletionStatus   string
	AttendanceStatus   AttendanceStatus
	SessionStart       *time.Time
	SessionDate        string
	Instructors        string

	Extra []ExtraColumn
}

// Valid reports whether the record carries a usable employee id.
func (r EnrollmentRecord) Valid() bool {
	return r.EmployeeID != nil
}

// Text returns the string value of a text column. Typed columns
// (ppg_id, session_start) are not served here.
func (r *EnrollmentRecord) Text(key string) (string, bool) {
	switch key {
	case KeyCourseTitle:
		return r.CourseTitle, true
	case KeyFullName:
		return r.FullName, true
	case KeyEmployeeEmail:
		return r.EmployeeEmail, true
	case KeyManager:
		return r.Manager, true
	case KeyManagerEmail:
		return r.ManagerEmail, true
	case KeyWorkCountry:
		return r.WorkCountry, true
	case KeyLocation:
		return r.Location, true
	case KeySBU:
		return r.SBU, true
	case KeyJobFunction:
		return r.JobFunction, true
	case KeyRegistrationDate:
		return r.RegistrationDate, true
	case KeyRegistrationStatus:
		return r.RegistrationStatus, true
	case KeyCompletionStatus:
		return r.CompletionStatus, true
	case KeyInstructors:
		return r.Instructors, true
	case KeyPrimaryLocation:
		return r.PrimaryLocation, true
	case KeyAttendanceStatus:
		return string(r.AttendanceStatus), true
	}
	return "", false
}

func (r *EnrollmentRecord) SetText(key, value string) bool {
	switch key {
	case KeyCourseTitle:
		r.CourseTitle = value
	case KeyFullName:
		r.FullName = value
	case KeyEmployeeEmail:
		r.EmployeeEmail = value
	case KeyManager:
		r.Manager = value
	case KeyManagerEmail:
		r.ManagerEmail = value
	case KeyWorkCountry:
		r.WorkCountry = value
	case KeyLocation:
		r.Location = value
	case KeySBU:
		r.SBU = value
	case KeyJobFunction:
		r.JobFunction = value
	case KeyRegistrationDate:
		r.RegistrationDate = value
	case KeyRegistrationStatus:
		r.RegistrationStatus = value
	case KeyCompletionStatus:
		r.CompletionStatus = value
	case KeyInstructors:
		r.Instructors = value
	case KeyPrimaryLocation:
		r.PrimaryLocation = value
	case KeyAttendanceStatus:
		r.AttendanceStatus = AttendanceStatus(value)
	default:
		return false
	}
	return true
}

type ModuleCells struct {
	Status      string
	Attendance  string
	Date        string
	Facilitator string
}

type EmployeeSummaryRow struct {
	EmployeeID    int64
	FullName      string
	EmployeeEmail string
	Manager       string
	ManagerEmail  string
	WorkCountry   string
	Location      string
	SBU           string
	JobFunction   string

	// Modules is aligned with the catalog order.
	Modules []ModuleCells
}

type SessionSummaryRow struct {
	Module      string
	CourseTitle string
	SessionDate string
	Instructor  string
	Enrolled    int
}

type RunCounts struct {
	Loaded           int `json:"loaded"`
	DroppedColumns   int `json:"droppedColumns"`
	InvalidIDs       int `json:"invalidIds"`
	InvalidDates     int `json:"invalidDates"`
	DuplicatesPruned int `json:"duplicatesPruned"`
	Records          int `json:"records"`
	Employees        int `json:"employees"`
	Sessions         int `json:"sessions"`
	NewManagers      int `json:"newManagers"`
}

type RunRow struct {
	ID        int
	TraceID   string
	InputPath string
	InputHash string
	Status    string
	Error     string
	Counts    RunCounts
	Outputs   []string
	TotalMs   float64
	CreatedAt string
}
