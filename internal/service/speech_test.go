package service

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/schulwerk/untis-speech-api/internal/models"
)

var testDay = time.Date(2026, 8, 28, 0, 0, 0, 0, time.UTC)

func subjectAssignment(longName string) *models.SubjectAssignment {
	return &models.SubjectAssignment{
		Subject: models.Subject{ID: 20, Name: longName[:1], LongName: longName},
		State:   models.ElementRegular,
	}
}

func cancelPeriod(longName string, start, end models.TimeOfDay) models.Period {
	return models.Period{
		Date:      testDay,
		StartTime: start,
		EndTime:   end,
		State:     models.PeriodCancel,
		Subject:   subjectAssignment(longName),
	}
}

func TestSpeakableLineCancellation(t *testing.T) {
	period := cancelPeriod("Mathematik", models.TimeOfDay{Hour: 8}, models.TimeOfDay{Hour: 8, Minute: 50})

	assert.Equal(t, "Mathematik fällt zwischen 08:00 und 08:50 Uhr aus!", speakableLine(period))
}

func TestSpeakableLineStandard(t *testing.T) {
	period := cancelPeriod("Mathematik", models.TimeOfDay{Hour: 8}, models.TimeOfDay{Hour: 8, Minute: 50})
	period.State = models.PeriodStandard

	assert.Equal(t, "Im Fach Mathematik zwischen 08:00 und 08:50 Uhr gibt es keine Änderungen!", speakableLine(period))
}

func TestSpeakableLineWithoutSubject(t *testing.T) {
	period := models.Period{Date: testDay, State: models.PeriodCancel}

	assert.Equal(t, "", speakableLine(period))
}

func TestSpeakableLineTeacherSubstitution(t *testing.T) {
	period := models.Period{
		Date:             testDay,
		StartTime:        models.TimeOfDay{Hour: 10},
		EndTime:          models.TimeOfDay{Hour: 10, Minute: 50},
		State:            models.PeriodSubstitution,
		SubstitutionText: "Vertretung",
		Subject:          subjectAssignment("Physik"),
		Teacher: &models.TeacherAssignment{
			Teacher:    models.Teacher{ID: 11, Name: "Schmidt"},
			OriginalID: 10,
			Original:   &models.Teacher{ID: 10, Name: "Müller"},
			State:      models.ElementSubstituted,
		},
	}

	assert.Equal(t,
		"Änderung bei Physik zwischen 10:00 und 10:50 Uhr: Lehrerwechsel von 'Müller' zu 'Schmidt'; Vertretung",
		speakableLine(period))
}

func TestSpeakableLineTeacherAbsentAndRoomChange(t *testing.T) {
	period := models.Period{
		Date:      testDay,
		StartTime: models.TimeOfDay{Hour: 11},
		EndTime:   models.TimeOfDay{Hour: 11, Minute: 45},
		State:     models.PeriodSubstitution,
		Subject:   subjectAssignment("Chemie"),
		Teacher: &models.TeacherAssignment{
			Teacher:    models.Teacher{ID: 10, Name: "Müller"},
			OriginalID: 10,
			Original:   &models.Teacher{ID: 10, Name: "Müller"},
			State:      models.ElementAbsent,
		},
		Room: &models.RoomAssignment{
			Room:       models.Room{ID: 31, Name: "R2", LongName: "Raum 202"},
			OriginalID: 30,
			Original:   &models.Room{ID: 30, Name: "R1", LongName: "Raum 101"},
			State:      models.ElementSubstituted,
		},
	}

	assert.Equal(t,
		"Änderung bei Chemie zwischen 11:00 und 11:45 Uhr: Unterricht ohne Lehrer (von 'Müller'); Raumwechsel von 'Raum 101' zu 'Raum 202'; ",
		speakableLine(period))
}

func TestSpeakableLineRegularAssignmentsRenderNoChangeText(t *testing.T) {
	// Unchanged resources must not produce spurious change clauses.
	period := models.Period{
		Date:             testDay,
		StartTime:        models.TimeOfDay{Hour: 9},
		EndTime:          models.TimeOfDay{Hour: 9, Minute: 45},
		State:            models.PeriodSubstitution,
		SubstitutionText: "Raumänderung folgt",
		Subject:          subjectAssignment("Biologie"),
		Teacher: &models.TeacherAssignment{
			Teacher:    models.Teacher{ID: 10, Name: "Müller"},
			OriginalID: 10,
			Original:   &models.Teacher{ID: 10, Name: "Müller"},
			State:      models.ElementRegular,
		},
		Room: &models.RoomAssignment{
			Room:       models.Room{ID: 30, LongName: "Raum 101"},
			OriginalID: 30,
			Original:   &models.Room{ID: 30, LongName: "Raum 101"},
			State:      models.ElementRegular,
		},
	}

	assert.Equal(t,
		"Änderung bei Biologie zwischen 09:00 und 09:45 Uhr: Raumänderung folgt",
		speakableLine(period))
}

func TestSpeakableLineMissingOriginalSnapshotsSkipClauses(t *testing.T) {
	period := models.Period{
		Date:      testDay,
		StartTime: models.TimeOfDay{Hour: 10},
		EndTime:   models.TimeOfDay{Hour: 10, Minute: 50},
		State:     models.PeriodSubstitution,
		Subject:   subjectAssignment("Physik"),
		Teacher: &models.TeacherAssignment{
			Teacher:    models.Teacher{ID: 11, Name: "Schmidt"},
			OriginalID: 99,
			State:      models.ElementSubstituted,
		},
	}

	assert.Equal(t, "Änderung bei Physik zwischen 10:00 und 10:50 Uhr: ", speakableLine(period))
}

func TestDeviationLinesFiltersAndSorts(t *testing.T) {
	otherDay := testDay.AddDate(0, 0, 1)
	periods := []models.Period{
		{Date: testDay, StartTime: models.TimeOfDay{Hour: 10}, State: models.PeriodCancel, Subject: subjectAssignment("Physik"), EndTime: models.TimeOfDay{Hour: 10, Minute: 50}},
		{Date: testDay, StartTime: models.TimeOfDay{Hour: 8}, State: models.PeriodStandard, Subject: subjectAssignment("Deutsch")},
		{Date: otherDay, StartTime: models.TimeOfDay{Hour: 8}, State: models.PeriodCancel, Subject: subjectAssignment("Englisch")},
		{Date: testDay, StartTime: models.TimeOfDay{Hour: 8}, State: models.PeriodCancel, Subject: subjectAssignment("Mathematik"), EndTime: models.TimeOfDay{Hour: 8, Minute: 50}},
	}

	lines := deviationLines(periods, testDay)
	require.Len(t, lines, 2)
	assert.Equal(t, "Mathematik fällt zwischen 08:00 und 08:50 Uhr aus!", lines[0])
	assert.Equal(t, "Physik fällt zwischen 10:00 und 10:50 Uhr aus!", lines[1])
}

func TestDeviationLinesStableSort(t *testing.T) {
	// Two deviations sharing (date, start time) keep their payload order.
	first := cancelPeriod("Mathematik", models.TimeOfDay{Hour: 8}, models.TimeOfDay{Hour: 8, Minute: 50})
	second := cancelPeriod("Physik", models.TimeOfDay{Hour: 8}, models.TimeOfDay{Hour: 8, Minute: 50})

	lines := deviationLines([]models.Period{first, second}, testDay)
	require.Len(t, lines, 2)
	assert.Contains(t, lines[0], "Mathematik")
	assert.Contains(t, lines[1], "Physik")

	lines = deviationLines([]models.Period{second, first}, testDay)
	require.Len(t, lines, 2)
	assert.Contains(t, lines[0], "Physik")
	assert.Contains(t, lines[1], "Mathematik")
}

func TestDeviationLinesIdempotent(t *testing.T) {
	periods := []models.Period{
		cancelPeriod("Mathematik", models.TimeOfDay{Hour: 8}, models.TimeOfDay{Hour: 8, Minute: 50}),
	}

	assert.Equal(t, deviationLines(periods, testDay), deviationLines(periods, testDay))
	assert.Empty(t, deviationLines(periods, testDay.AddDate(0, 0, 7)))
}

func TestRenderDeviationsJoinsLines(t *testing.T) {
	periods := []models.Period{
		cancelPeriod("Mathematik", models.TimeOfDay{Hour: 8}, models.TimeOfDay{Hour: 8, Minute: 50}),
		cancelPeriod("Physik", models.TimeOfDay{Hour: 10}, models.TimeOfDay{Hour: 10, Minute: 50}),
	}

	assert.Equal(t,
		"Mathematik fällt zwischen 08:00 und 08:50 Uhr aus!\nPhysik fällt zwischen 10:00 und 10:50 Uhr aus!",
		RenderDeviations(periods, testDay))

	assert.Equal(t, "", RenderDeviations(nil, testDay))
}
