package service

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/schulwerk/untis-speech-api/internal/models"
)

// deviationLines sorts the periods by (date, start time), keeps the ones that
// deviate from the regular schedule on the given date, and renders one spoken
// line per survivor. The sort is stable so ties keep their payload order.
func deviationLines(periods []models.Period, today time.Time) []string {
	sorted := make([]models.Period, len(periods))
	copy(sorted, periods)
	sort.SliceStable(sorted, func(i, j int) bool {
		if !sorted[i].Date.Equal(sorted[j].Date) {
			return sorted[i].Date.Before(sorted[j].Date)
		}
		return sorted[i].StartTime.Before(sorted[j].StartTime)
	})

	var lines []string
	for _, period := range sorted {
		if period.State == models.PeriodStandard {
			continue
		}
		if !sameDay(period.Date, today) {
			continue
		}
		lines = append(lines, speakableLine(period))
	}
	return lines
}

// speakableLine renders one period as a German voice-assistant sentence. A
// deviation without a subject assignment cannot be announced meaningfully and
// renders empty.
func speakableLine(period models.Period) string {
	subject := period.Subject
	if subject == nil {
		return ""
	}

	switch period.State {
	case models.PeriodCancel:
		return fmt.Sprintf("%s fällt zwischen %s und %s Uhr aus!",
			subject.LongName, period.StartTime, period.EndTime)
	case models.PeriodStandard:
		return fmt.Sprintf("Im Fach %s zwischen %s und %s Uhr gibt es keine Änderungen!",
			subject.LongName, period.StartTime, period.EndTime)
	default:
		var out strings.Builder
		fmt.Fprintf(&out, "Änderung bei %s zwischen %s und %s Uhr: ",
			subject.LongName, period.StartTime, period.EndTime)

		if teacher := period.Teacher; teacher != nil {
			switch teacher.State {
			case models.ElementAbsent:
				if teacher.Original != nil {
					fmt.Fprintf(&out, "Unterricht ohne Lehrer (von '%s'); ", teacher.Original.Name)
				}
			case models.ElementSubstituted:
				if teacher.Original != nil {
					fmt.Fprintf(&out, "Lehrerwechsel von '%s' zu '%s'; ", teacher.Original.Name, teacher.Name)
				}
			}
		}

		if room := period.Room; room != nil {
			switch room.State {
			case models.ElementAbsent:
				if room.Original != nil {
					fmt.Fprintf(&out, "Unterricht ohne Raum (von '%s'); ", room.Original.LongName)
				}
			case models.ElementSubstituted:
				if room.Original != nil {
					fmt.Fprintf(&out, "Raumwechsel von '%s' zu '%s'; ", room.Original.LongName, room.LongName)
				}
			}
		}

		out.WriteString(period.SubstitutionText)
		return out.String()
	}
}

func sameDay(a, b time.Time) bool {
	ay, am, ad := a.Date()
	by, bm, bd := b.Date()
	return ay == by && am == bm && ad == bd
}
