package models

import "fmt"

// ElementState classifies a single period resource relative to the regular
// schedule: unchanged, dropped without replacement, or swapped.
type ElementState string

const (
	ElementRegular     ElementState = "REGULAR"
	ElementAbsent      ElementState = "ABSENT"
	ElementSubstituted ElementState = "SUBSTITUTED"
)

// ParseElementState decodes the WebUntis state string. Anything outside the
// known set is rejected rather than defaulted.
func ParseElementState(raw string) (ElementState, error) {
	switch raw {
	case string(ElementRegular):
		return ElementRegular, nil
	case string(ElementAbsent):
		return ElementAbsent, nil
	case string(ElementSubstituted):
		return ElementSubstituted, nil
	default:
		return "", fmt.Errorf("unknown element state %q", raw)
	}
}

// Room is the catalog record for a bookable room.
type Room struct {
	ID               int64  `json:"id"`
	Name             string `json:"name"`
	LongName         string `json:"long_name"`
	DisplayName      string `json:"display_name"`
	AlternateName    string `json:"alternate_name"`
	CanViewTimetable bool   `json:"can_view_timetable"`
	RoomCapacity     int64  `json:"room_capacity"`
}

// Teacher is the catalog record for a teacher.
type Teacher struct {
	ID               int64  `json:"id"`
	Name             string `json:"name"`
	CanViewTimetable bool   `json:"can_view_timetable"`
	ExternKey        string `json:"extern_key"`
	RoomCapacity     int64  `json:"room_capacity"`
}

// Subject is the catalog record for a school subject.
type Subject struct {
	ID               int64   `json:"id"`
	Name             string  `json:"name"`
	LongName         string  `json:"long_name"`
	DisplayName      string  `json:"display_name"`
	AlternateName    string  `json:"alternate_name"`
	BackColor        string  `json:"back_color"`
	ForeColor        *string `json:"fore_color,omitempty"`
	CanViewTimetable bool    `json:"can_view_timetable"`
	RoomCapacity     int64   `json:"room_capacity"`
}

// RoomAssignment binds a period to a room. The embedded Room is the current
// snapshot, denormalized from the catalog at parse time; Original is the
// originally scheduled room when it differs and resolves in the catalog.
type RoomAssignment struct {
	Room
	OriginalID int64        `json:"original_id"`
	Original   *Room        `json:"original,omitempty"`
	State      ElementState `json:"state"`
	Missing    bool         `json:"missing"`
}

// TeacherAssignment binds a period to a teacher.
type TeacherAssignment struct {
	Teacher
	OriginalID int64        `json:"original_id"`
	Original   *Teacher     `json:"original,omitempty"`
	State      ElementState `json:"state"`
	Missing    bool         `json:"missing"`
}

// SubjectAssignment binds a period to a subject. BackColor on the embedded
// snapshot may be overridden at the period level by the payload.
type SubjectAssignment struct {
	Subject
	OriginalID int64        `json:"original_id"`
	Original   *Subject     `json:"original,omitempty"`
	State      ElementState `json:"state"`
	Missing    bool         `json:"missing"`
}
