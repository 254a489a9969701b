package models

import (
	"fmt"
	"time"
)

// PeriodState classifies a whole timetable slot.
type PeriodState string

const (
	PeriodStandard     PeriodState = "STANDARD"
	PeriodSubstitution PeriodState = "SUBSTITUTION"
	PeriodCancel       PeriodState = "CANCEL"
)

// ParsePeriodState decodes the WebUntis cellState string, rejecting unknown
// values.
func ParsePeriodState(raw string) (PeriodState, error) {
	switch raw {
	case string(PeriodStandard):
		return PeriodStandard, nil
	case string(PeriodSubstitution):
		return PeriodSubstitution, nil
	case string(PeriodCancel):
		return PeriodCancel, nil
	default:
		return "", fmt.Errorf("unknown period state %q", raw)
	}
}

// TimeOfDay is a wall-clock time without a date.
type TimeOfDay struct {
	Hour   int `json:"hour"`
	Minute int `json:"minute"`
}

// String renders the time zero-padded, e.g. "09:00".
func (t TimeOfDay) String() string {
	return fmt.Sprintf("%02d:%02d", t.Hour, t.Minute)
}

// Before reports whether t is earlier than other.
func (t TimeOfDay) Before(other TimeOfDay) bool {
	if t.Hour != other.Hour {
		return t.Hour < other.Hour
	}
	return t.Minute < other.Minute
}

// Period is one timetable slot together with its resource assignments. Any of
// the three assignments may be nil when the payload lists no element of that
// kind.
type Period struct {
	LessonText       string             `json:"lesson_text"`
	PeriodText       string             `json:"period_text"`
	PeriodInfo       string             `json:"period_info"`
	SubstitutionText string             `json:"substitution_text"`
	Date             time.Time          `json:"date"`
	StartTime        TimeOfDay          `json:"start_time"`
	EndTime          TimeOfDay          `json:"end_time"`
	State            PeriodState        `json:"state"`
	Teacher          *TeacherAssignment `json:"teacher,omitempty"`
	Subject          *SubjectAssignment `json:"subject,omitempty"`
	Room             *RoomAssignment    `json:"room,omitempty"`
}
