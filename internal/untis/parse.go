package untis

import (
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"time"

	"go.uber.org/zap"

	"github.com/schulwerk/untis-speech-api/internal/models"
)

// WebUntis element type tags used both in the catalog and on period elements.
const (
	elementKindTeacher = 2
	elementKindSubject = 3
	elementKindRoom    = 4
)

// Catalog indexes the payload's reference entities by kind and id. It is
// populated once per parse and read-only afterwards.
type Catalog struct {
	Rooms    map[int64]models.Room
	Teachers map[int64]models.Teacher
	Subjects map[int64]models.Subject
}

func newCatalog() *Catalog {
	return &Catalog{
		Rooms:    make(map[int64]models.Room),
		Teachers: make(map[int64]models.Teacher),
		Subjects: make(map[int64]models.Subject),
	}
}

// ParseTimetable reconciles one raw weekly timetable document into the typed
// period list for the requesting person. Any missing field, type mismatch,
// unknown enum value or unresolvable reference aborts the parse; the single
// exception is an unknown element type in the catalog section, which is
// logged and skipped.
func ParseTimetable(raw []byte, personID int64, logger *zap.Logger) ([]models.Period, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	root, err := decodeObject(raw, "timetable")
	if err != nil {
		return nil, err
	}
	data, err := root.object("data")
	if err != nil {
		return nil, err
	}
	result, err := data.object("result")
	if err != nil {
		return nil, err
	}
	payload, err := result.object("data")
	if err != nil {
		return nil, err
	}

	catalog, err := buildCatalog(payload, logger)
	if err != nil {
		return nil, err
	}

	elementPeriods, err := payload.object("elementPeriods")
	if err != nil {
		return nil, err
	}
	rawPeriods, err := elementPeriods.array(strconv.FormatInt(personID, 10))
	if err != nil {
		var parseErr *ParseError
		if errors.As(err, &parseErr) && parseErr.Kind == ParseMissingField {
			return nil, fmt.Errorf("%w: person %d", ErrNoTimetable, personID)
		}
		return nil, err
	}

	periods := make([]models.Period, 0, len(rawPeriods))
	for _, rawPeriod := range rawPeriods {
		period, err := parsePeriod(rawPeriod, catalog)
		if err != nil {
			return nil, err
		}
		periods = append(periods, *period)
	}
	return periods, nil
}

func buildCatalog(payload object, logger *zap.Logger) (*Catalog, error) {
	elements, err := payload.array("elements")
	if err != nil {
		return nil, err
	}

	catalog := newCatalog()
	for _, raw := range elements {
		element, err := decodeObject(raw, "elements[]")
		if err != nil {
			return nil, err
		}
		kind, err := element.integer("type")
		if err != nil {
			return nil, err
		}
		id, err := element.integer("id")
		if err != nil {
			return nil, err
		}

		switch kind {
		case elementKindTeacher:
			teacher, err := parseTeacherRecord(element, id)
			if err != nil {
				return nil, err
			}
			catalog.Teachers[id] = *teacher
		case elementKindSubject:
			subject, err := parseSubjectRecord(element, id)
			if err != nil {
				return nil, err
			}
			catalog.Subjects[id] = *subject
		case elementKindRoom:
			room, err := parseRoomRecord(element, id)
			if err != nil {
				return nil, err
			}
			catalog.Rooms[id] = *room
		default:
			// Unknown reference-entity kinds that no period uses are
			// harmless; tolerate schema drift here and only here.
			logger.Warn("skipping unknown catalog element type",
				zap.Int64("type", kind), zap.Int64("id", id))
		}
	}
	return catalog, nil
}

func parseTeacherRecord(element object, id int64) (*models.Teacher, error) {
	teacher := models.Teacher{ID: id}
	var err error
	if teacher.Name, err = element.str("name"); err != nil {
		return nil, err
	}
	if teacher.CanViewTimetable, err = element.boolean("canViewTimetable"); err != nil {
		return nil, err
	}
	if teacher.ExternKey, err = element.str("externKey"); err != nil {
		return nil, err
	}
	if teacher.RoomCapacity, err = element.integer("roomCapacity"); err != nil {
		return nil, err
	}
	return &teacher, nil
}

func parseSubjectRecord(element object, id int64) (*models.Subject, error) {
	subject := models.Subject{ID: id}
	var err error
	if subject.Name, err = element.str("name"); err != nil {
		return nil, err
	}
	if subject.LongName, err = element.str("longName"); err != nil {
		return nil, err
	}
	if subject.DisplayName, err = element.str("displayname"); err != nil {
		return nil, err
	}
	if subject.AlternateName, err = element.str("alternatename"); err != nil {
		return nil, err
	}
	if subject.BackColor, err = element.str("backColor"); err != nil {
		return nil, err
	}
	if subject.ForeColor, err = element.optionalStr("foreColor"); err != nil {
		return nil, err
	}
	if subject.CanViewTimetable, err = element.boolean("canViewTimetable"); err != nil {
		return nil, err
	}
	if subject.RoomCapacity, err = element.integer("roomCapacity"); err != nil {
		return nil, err
	}
	return &subject, nil
}

func parseRoomRecord(element object, id int64) (*models.Room, error) {
	room := models.Room{ID: id}
	var err error
	if room.Name, err = element.str("name"); err != nil {
		return nil, err
	}
	if room.LongName, err = element.str("longName"); err != nil {
		return nil, err
	}
	if room.DisplayName, err = element.str("displayname"); err != nil {
		return nil, err
	}
	if room.AlternateName, err = element.str("alternatename"); err != nil {
		return nil, err
	}
	if room.CanViewTimetable, err = element.boolean("canViewTimetable"); err != nil {
		return nil, err
	}
	if room.RoomCapacity, err = element.integer("roomCapacity"); err != nil {
		return nil, err
	}
	return &room, nil
}

func parsePeriod(raw json.RawMessage, catalog *Catalog) (*models.Period, error) {
	record, err := decodeObject(raw, "elementPeriods[]")
	if err != nil {
		return nil, err
	}

	period := models.Period{}
	elements, err := record.array("elements")
	if err != nil {
		return nil, err
	}
	for _, rawElement := range elements {
		if err := parsePeriodElement(rawElement, catalog, &period); err != nil {
			return nil, err
		}
	}

	stateRaw, err := record.str("cellState")
	if err != nil {
		return nil, err
	}
	period.State, err = models.ParsePeriodState(stateRaw)
	if err != nil {
		return nil, unknownEnumValue("cellState", stateRaw)
	}

	if period.LessonText, err = record.str("lessonText"); err != nil {
		return nil, err
	}
	if period.PeriodText, err = record.str("periodText"); err != nil {
		return nil, err
	}
	if period.PeriodInfo, err = record.str("periodInfo"); err != nil {
		return nil, err
	}
	if period.SubstitutionText, err = record.str("substText"); err != nil {
		return nil, err
	}

	dateRaw, err := record.integer("date")
	if err != nil {
		return nil, err
	}
	if period.Date, err = parseUntisDate(dateRaw); err != nil {
		return nil, err
	}

	startRaw, err := record.integer("startTime")
	if err != nil {
		return nil, err
	}
	if period.StartTime, err = parseUntisTime("startTime", startRaw); err != nil {
		return nil, err
	}
	endRaw, err := record.integer("endTime")
	if err != nil {
		return nil, err
	}
	if period.EndTime, err = parseUntisTime("endTime", endRaw); err != nil {
		return nil, err
	}

	return &period, nil
}

func parsePeriodElement(raw json.RawMessage, catalog *Catalog, period *models.Period) error {
	element, err := decodeObject(raw, "elements[]")
	if err != nil {
		return err
	}
	kind, err := element.integer("type")
	if err != nil {
		return err
	}
	id, err := element.integer("id")
	if err != nil {
		return err
	}
	originalID, err := element.integer("orgId")
	if err != nil {
		return err
	}
	stateRaw, err := element.str("state")
	if err != nil {
		return err
	}
	state, err := models.ParseElementState(stateRaw)
	if err != nil {
		return unknownEnumValue("state", stateRaw)
	}
	missing, err := element.boolean("missing")
	if err != nil {
		return err
	}

	switch kind {
	case elementKindTeacher:
		info, ok := catalog.Teachers[id]
		if !ok {
			return unresolvedReference("teacher", id)
		}
		assignment := models.TeacherAssignment{
			Teacher:    info,
			OriginalID: originalID,
			State:      state,
			Missing:    missing,
		}
		if original, ok := catalog.Teachers[originalID]; ok {
			snapshot := original
			assignment.Original = &snapshot
		}
		period.Teacher = &assignment
	case elementKindSubject:
		info, ok := catalog.Subjects[id]
		if !ok {
			return unresolvedReference("subject", id)
		}
		assignment := models.SubjectAssignment{
			Subject:    info,
			OriginalID: originalID,
			State:      state,
			Missing:    missing,
		}
		// A cancelled or substituted subject may carry its own display
		// colors at the period level.
		backColor, err := element.optionalStr("backColor")
		if err != nil {
			return err
		}
		if backColor != nil {
			assignment.BackColor = *backColor
		}
		foreColor, err := element.optionalStr("foreColor")
		if err != nil {
			return err
		}
		assignment.ForeColor = foreColor
		if original, ok := catalog.Subjects[originalID]; ok {
			snapshot := original
			assignment.Original = &snapshot
		}
		period.Subject = &assignment
	case elementKindRoom:
		info, ok := catalog.Rooms[id]
		if !ok {
			return unresolvedReference("room", id)
		}
		assignment := models.RoomAssignment{
			Room:       info,
			OriginalID: originalID,
			State:      state,
			Missing:    missing,
		}
		if original, ok := catalog.Rooms[originalID]; ok {
			snapshot := original
			assignment.Original = &snapshot
		}
		period.Room = &assignment
	default:
		return unknownElementKind(kind)
	}
	return nil
}

// parseUntisDate decodes an integer in YYYYMMDD form into a calendar date.
func parseUntisDate(raw int64) (time.Time, error) {
	if raw < 10000000 || raw > 99999999 {
		return time.Time{}, malformedValue("date", fmt.Sprintf("%d is not a YYYYMMDD date", raw))
	}
	year := int(raw / 10000)
	month := int(raw/100) % 100
	day := int(raw % 100)
	if month < 1 || month > 12 || day < 1 {
		return time.Time{}, malformedValue("date", fmt.Sprintf("%d is not a YYYYMMDD date", raw))
	}
	date := time.Date(year, time.Month(month), day, 0, 0, 0, 0, time.UTC)
	if date.Year() != year || date.Month() != time.Month(month) || date.Day() != day {
		return time.Time{}, malformedValue("date", fmt.Sprintf("%d is not a valid calendar date", raw))
	}
	return date, nil
}

// parseUntisTime decodes an integer encoding HHMM with no zero padding below
// 1000: 900 means 09:00, 1430 means 14:30.
func parseUntisTime(field string, raw int64) (models.TimeOfDay, error) {
	if raw < 0 {
		return models.TimeOfDay{}, malformedValue(field, fmt.Sprintf("time %d must not be negative", raw))
	}
	digits := strconv.FormatInt(raw, 10)
	var hours, minutes string
	switch len(digits) {
	case 4:
		hours, minutes = digits[0:2], digits[2:4]
	case 3:
		hours, minutes = digits[0:1], digits[1:3]
	default:
		return models.TimeOfDay{}, malformedValue(field, fmt.Sprintf("invalid length for time %d", raw))
	}
	hour, err := strconv.Atoi(hours)
	if err != nil {
		return models.TimeOfDay{}, malformedValue(field, fmt.Sprintf("time %d has a non-numeric hour", raw))
	}
	minute, err := strconv.Atoi(minutes)
	if err != nil {
		return models.TimeOfDay{}, malformedValue(field, fmt.Sprintf("time %d has a non-numeric minute", raw))
	}
	if hour > 23 || minute > 59 {
		return models.TimeOfDay{}, malformedValue(field, fmt.Sprintf("%d is outside the valid clock range", raw))
	}
	return models.TimeOfDay{Hour: hour, Minute: minute}, nil
}
