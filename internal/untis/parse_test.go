package untis

import (
	"encoding/json"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/schulwerk/untis-speech-api/internal/models"
)

func catalogTeacher(id int64, name string) map[string]interface{} {
	return map[string]interface{}{
		"type":             2,
		"id":               id,
		"name":             name,
		"canViewTimetable": true,
		"externKey":        fmt.Sprintf("T%d", id),
		"roomCapacity":     0,
	}
}

func catalogSubject(id int64, name, longName string) map[string]interface{} {
	return map[string]interface{}{
		"type":             3,
		"id":               id,
		"name":             name,
		"longName":         longName,
		"displayname":      name,
		"alternatename":    "",
		"backColor":        "#FFFFFF",
		"canViewTimetable": true,
		"roomCapacity":     0,
	}
}

func catalogRoom(id int64, name, longName string) map[string]interface{} {
	return map[string]interface{}{
		"type":             4,
		"id":               id,
		"name":             name,
		"longName":         longName,
		"displayname":      name,
		"alternatename":    "",
		"canViewTimetable": true,
		"roomCapacity":     30,
	}
}

func periodElement(kind, id, orgID int64, state string) map[string]interface{} {
	return map[string]interface{}{
		"type":    kind,
		"id":      id,
		"orgId":   orgID,
		"state":   state,
		"missing": false,
	}
}

func timetablePeriod(date, start, end int64, cellState string, elements ...map[string]interface{}) map[string]interface{} {
	if elements == nil {
		elements = []map[string]interface{}{}
	}
	return map[string]interface{}{
		"elements":   elements,
		"cellState":  cellState,
		"lessonText": "",
		"periodText": "",
		"periodInfo": "",
		"substText":  "",
		"date":       date,
		"startTime":  start,
		"endTime":    end,
	}
}

func timetablePayload(t *testing.T, personKey string, elements []map[string]interface{}, periods []map[string]interface{}) []byte {
	t.Helper()
	doc := map[string]interface{}{
		"data": map[string]interface{}{
			"result": map[string]interface{}{
				"data": map[string]interface{}{
					"elements":       elements,
					"elementPeriods": map[string]interface{}{personKey: periods},
				},
			},
		},
	}
	raw, err := json.Marshal(doc)
	require.NoError(t, err)
	return raw
}

func defaultCatalog() []map[string]interface{} {
	return []map[string]interface{}{
		catalogTeacher(10, "Müller"),
		catalogTeacher(11, "Schmidt"),
		catalogSubject(20, "Ph", "Physik"),
		catalogSubject(21, "M", "Mathematik"),
		catalogRoom(30, "R1", "Raum 101"),
		catalogRoom(31, "R2", "Raum 202"),
	}
}

func requireParseError(t *testing.T, err error, kind ParseErrorKind) *ParseError {
	t.Helper()
	var parseErr *ParseError
	require.ErrorAs(t, err, &parseErr)
	require.Equal(t, kind, parseErr.Kind)
	return parseErr
}

func TestParseTimetableResolvesAssignments(t *testing.T) {
	raw := timetablePayload(t, "5", defaultCatalog(), []map[string]interface{}{
		timetablePeriod(20260828, 800, 850, "STANDARD",
			periodElement(2, 10, 10, "REGULAR"),
			periodElement(3, 20, 20, "REGULAR"),
			periodElement(4, 30, 30, "REGULAR"),
		),
	})

	periods, err := ParseTimetable(raw, 5, nil)
	require.NoError(t, err)
	require.Len(t, periods, 1)

	period := periods[0]
	assert.Equal(t, models.PeriodStandard, period.State)
	assert.Equal(t, time.Date(2026, 8, 28, 0, 0, 0, 0, time.UTC), period.Date)
	assert.Equal(t, "08:00", period.StartTime.String())
	assert.Equal(t, "08:50", period.EndTime.String())

	require.NotNil(t, period.Teacher)
	assert.Equal(t, "Müller", period.Teacher.Name)
	assert.Equal(t, int64(10), period.Teacher.ID)
	assert.Equal(t, int64(10), period.Teacher.OriginalID)
	assert.Equal(t, models.ElementRegular, period.Teacher.State)
	require.NotNil(t, period.Teacher.Original)
	assert.Equal(t, "Müller", period.Teacher.Original.Name)

	require.NotNil(t, period.Subject)
	assert.Equal(t, "Physik", period.Subject.LongName)
	assert.Equal(t, "#FFFFFF", period.Subject.BackColor)

	require.NotNil(t, period.Room)
	assert.Equal(t, "Raum 101", period.Room.LongName)
	assert.Equal(t, int64(30), period.Room.RoomCapacity)
}

func TestParseTimetableSubstitutedTeacherSnapshot(t *testing.T) {
	raw := timetablePayload(t, "5", defaultCatalog(), []map[string]interface{}{
		timetablePeriod(20260828, 1000, 1050, "SUBSTITUTION",
			periodElement(2, 11, 10, "SUBSTITUTED"),
			periodElement(3, 20, 20, "REGULAR"),
		),
	})

	periods, err := ParseTimetable(raw, 5, nil)
	require.NoError(t, err)
	require.Len(t, periods, 1)

	teacher := periods[0].Teacher
	require.NotNil(t, teacher)
	assert.Equal(t, models.ElementSubstituted, teacher.State)
	assert.Equal(t, "Schmidt", teacher.Name)
	require.NotNil(t, teacher.Original)
	assert.Equal(t, "Müller", teacher.Original.Name)
	assert.Equal(t, int64(10), teacher.OriginalID)
}

func TestParseTimetableOriginalOutsideCatalog(t *testing.T) {
	// An orgId that does not resolve is not an error; the original
	// snapshot is simply absent.
	raw := timetablePayload(t, "5", defaultCatalog(), []map[string]interface{}{
		timetablePeriod(20260828, 1000, 1050, "SUBSTITUTION",
			periodElement(2, 11, 99, "SUBSTITUTED"),
			periodElement(3, 20, 20, "REGULAR"),
		),
	})

	periods, err := ParseTimetable(raw, 5, nil)
	require.NoError(t, err)
	teacher := periods[0].Teacher
	require.NotNil(t, teacher)
	assert.Nil(t, teacher.Original)
	assert.Equal(t, int64(99), teacher.OriginalID)
}

func TestParseTimetableSubjectColorOverride(t *testing.T) {
	element := periodElement(3, 20, 20, "REGULAR")
	element["backColor"] = "#FF0000"
	element["foreColor"] = "#000000"
	raw := timetablePayload(t, "5", defaultCatalog(), []map[string]interface{}{
		timetablePeriod(20260828, 800, 850, "CANCEL", element),
	})

	periods, err := ParseTimetable(raw, 5, nil)
	require.NoError(t, err)
	subject := periods[0].Subject
	require.NotNil(t, subject)
	assert.Equal(t, "#FF0000", subject.BackColor)
	require.NotNil(t, subject.ForeColor)
	assert.Equal(t, "#000000", *subject.ForeColor)
}

func TestParseTimetableSubjectColorFallback(t *testing.T) {
	raw := timetablePayload(t, "5", defaultCatalog(), []map[string]interface{}{
		timetablePeriod(20260828, 800, 850, "CANCEL", periodElement(3, 20, 20, "REGULAR")),
	})

	periods, err := ParseTimetable(raw, 5, nil)
	require.NoError(t, err)
	subject := periods[0].Subject
	require.NotNil(t, subject)
	assert.Equal(t, "#FFFFFF", subject.BackColor)
	assert.Nil(t, subject.ForeColor)
}

func TestParseTimetableSkipsUnknownCatalogKind(t *testing.T) {
	elements := append(defaultCatalog(), map[string]interface{}{"type": 1, "id": 99, "name": "10a"})
	raw := timetablePayload(t, "5", elements, []map[string]interface{}{
		timetablePeriod(20260828, 800, 850, "STANDARD", periodElement(3, 20, 20, "REGULAR")),
	})

	periods, err := ParseTimetable(raw, 5, nil)
	require.NoError(t, err)
	assert.Len(t, periods, 1)
}

func TestParseTimetableUnknownAssignmentKindFails(t *testing.T) {
	raw := timetablePayload(t, "5", defaultCatalog(), []map[string]interface{}{
		timetablePeriod(20260828, 800, 850, "STANDARD", periodElement(1, 99, 99, "REGULAR")),
	})

	_, err := ParseTimetable(raw, 5, nil)
	requireParseError(t, err, ParseUnknownElementKind)
}

func TestParseTimetableMissingElementID(t *testing.T) {
	broken := catalogTeacher(10, "Müller")
	delete(broken, "id")
	raw := timetablePayload(t, "5", []map[string]interface{}{broken}, nil)

	_, err := ParseTimetable(raw, 5, nil)
	parseErr := requireParseError(t, err, ParseMissingField)
	assert.Equal(t, "id", parseErr.Field)
}

func TestParseTimetableUnresolvedReference(t *testing.T) {
	raw := timetablePayload(t, "5", defaultCatalog(), []map[string]interface{}{
		timetablePeriod(20260828, 800, 850, "STANDARD", periodElement(2, 99, 99, "REGULAR")),
	})

	_, err := ParseTimetable(raw, 5, nil)
	parseErr := requireParseError(t, err, ParseUnresolvedReference)
	assert.Contains(t, parseErr.Error(), "99")
}

func TestParseTimetableNoTimetableForPerson(t *testing.T) {
	raw := timetablePayload(t, "5", defaultCatalog(), nil)

	_, err := ParseTimetable(raw, 999, nil)
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrNoTimetable))
}

func TestParseTimetableRejectsUnknownPeriodState(t *testing.T) {
	raw := timetablePayload(t, "5", defaultCatalog(), []map[string]interface{}{
		timetablePeriod(20260828, 800, 850, "EXAM", periodElement(3, 20, 20, "REGULAR")),
	})

	_, err := ParseTimetable(raw, 5, nil)
	parseErr := requireParseError(t, err, ParseUnknownEnumValue)
	assert.Equal(t, "cellState", parseErr.Field)
}

func TestParseTimetableRejectsUnknownElementState(t *testing.T) {
	raw := timetablePayload(t, "5", defaultCatalog(), []map[string]interface{}{
		timetablePeriod(20260828, 800, 850, "STANDARD", periodElement(3, 20, 20, "MOVED")),
	})

	_, err := ParseTimetable(raw, 5, nil)
	parseErr := requireParseError(t, err, ParseUnknownEnumValue)
	assert.Equal(t, "state", parseErr.Field)
}

func TestParseTimetableMissingNavigationField(t *testing.T) {
	raw := []byte(`{"data": {"result": {}}}`)

	_, err := ParseTimetable(raw, 5, nil)
	parseErr := requireParseError(t, err, ParseMissingField)
	assert.Equal(t, "data", parseErr.Field)
}

func TestParseTimetableElementsTypeMismatch(t *testing.T) {
	raw := []byte(`{"data": {"result": {"data": {"elements": 42}}}}`)

	_, err := ParseTimetable(raw, 5, nil)
	parseErr := requireParseError(t, err, ParseTypeMismatch)
	assert.Equal(t, "elements", parseErr.Field)
}

func TestParseTimetableNullElementsTypeMismatch(t *testing.T) {
	raw := []byte(`{"data": {"result": {"data": {"elements": null}}}}`)

	_, err := ParseTimetable(raw, 5, nil)
	parseErr := requireParseError(t, err, ParseTypeMismatch)
	assert.Equal(t, "elements", parseErr.Field)
}

func TestParseTimetableNullNavigationObject(t *testing.T) {
	raw := []byte(`{"data": {"result": null}}`)

	_, err := ParseTimetable(raw, 5, nil)
	parseErr := requireParseError(t, err, ParseTypeMismatch)
	assert.Equal(t, "result", parseErr.Field)
}

func TestParseUntisTime(t *testing.T) {
	cases := []struct {
		raw     int64
		want    string
		wantErr bool
	}{
		{raw: 900, want: "09:00"},
		{raw: 1430, want: "14:30"},
		{raw: 800, want: "08:00"},
		{raw: 2359, want: "23:59"},
		{raw: 30000, wantErr: true},
		{raw: 5, wantErr: true},
		{raw: 2500, wantErr: true},
		{raw: 975, wantErr: true},
		{raw: -900, wantErr: true},
		{raw: -1430, wantErr: true},
	}
	for _, tc := range cases {
		got, err := parseUntisTime("startTime", tc.raw)
		if tc.wantErr {
			requireParseError(t, err, ParseMalformedValue)
			continue
		}
		require.NoError(t, err)
		assert.Equal(t, tc.want, got.String())
	}
}

func TestParseUntisDate(t *testing.T) {
	date, err := parseUntisDate(20260828)
	require.NoError(t, err)
	assert.Equal(t, time.Date(2026, 8, 28, 0, 0, 0, 0, time.UTC), date)

	_, err = parseUntisDate(20261341)
	requireParseError(t, err, ParseMalformedValue)

	_, err = parseUntisDate(20260230)
	requireParseError(t, err, ParseMalformedValue)

	_, err = parseUntisDate(0)
	requireParseError(t, err, ParseMalformedValue)

	// Fewer than eight digits is not a YYYYMMDD value, even when the split
	// would land on a plausible month and day.
	_, err = parseUntisDate(828)
	requireParseError(t, err, ParseMalformedValue)

	_, err = parseUntisDate(-20260828)
	requireParseError(t, err, ParseMalformedValue)
}

func TestParseTimetablePreservesSourceOrder(t *testing.T) {
	raw := timetablePayload(t, "5", defaultCatalog(), []map[string]interface{}{
		timetablePeriod(20260828, 1000, 1050, "STANDARD", periodElement(3, 20, 20, "REGULAR")),
		timetablePeriod(20260828, 800, 850, "STANDARD", periodElement(3, 21, 21, "REGULAR")),
	})

	periods, err := ParseTimetable(raw, 5, nil)
	require.NoError(t, err)
	require.Len(t, periods, 2)
	assert.Equal(t, "Physik", periods[0].Subject.LongName)
	assert.Equal(t, "Mathematik", periods[1].Subject.LongName)
}
