package profile

import (
	"math"
	"sort"
	"time"

	"github.com/ekaya-inc/growth-engine/pkg/models"
)

// EventWindowDays is how far ahead seasonal events are reported.
const EventWindowDays = 90

type calendarEvent struct {
	name string
	date func(year int, loc *time.Location) time.Time
}

var retailCalendar = []calendarEvent{
	{"Dia do Consumidor", fixed(time.March, 15)},
	{"Páscoa", easter},
	{"Dia das Mães", nthWeekday(time.May, time.Sunday, 2)},
	{"Dia dos Namorados", fixed(time.June, 12)},
	{"Dia dos Pais", nthWeekday(time.August, time.Sunday, 2)},
	{"Dia do Cliente", fixed(time.September, 15)},
	{"Dia das Crianças", fixed(time.October, 12)},
	{"Black Friday", blackFriday},
	{"Cyber Monday", func(y int, loc *time.Location) time.Time { return blackFriday(y, loc).AddDate(0, 0, 3) }},
	{"Natal", fixed(time.December, 25)},
}

// UpcomingEvents lists Brazilian retail dates within window days of now,
// soonest first. Today's event counts with zero days away.
func UpcomingEvents(now time.Time, window int) []models.SeasonalEvent {
	loc := now.Location()
	today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, loc)
	limit := today.AddDate(0, 0, window)

	out := []models.SeasonalEvent{}
	for _, year := range []int{today.Year(), today.Year() + 1} {
		for _, e := range retailCalendar {
			d := e.date(year, loc)
			if d.Before(today) || d.After(limit) {
				continue
			}
			out = append(out, models.SeasonalEvent{
				Name:     e.name,
				Date:     d,
				DaysAway: int(math.Round(d.Sub(today).Hours() / 24)),
			})
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Date.Before(out[j].Date) })
	return out
}

func fixed(month time.Month, day int) func(int, *time.Location) time.Time {
	return func(year int, loc *time.Location) time.Time {
		return time.Date(year, month, day, 0, 0, 0, 0, loc)
	}
}

func nthWeekday(month time.Month, wd time.Weekday, n int) func(int, *time.Location) time.Time {
	return func(year int, loc *time.Location) time.Time {
		first := time.Date(year, month, 1, 0, 0, 0, 0, loc)
		offset := (int(wd) - int(first.Weekday()) + 7) % 7
		return first.AddDate(0, 0, offset+7*(n-1))
	}
}

// blackFriday is the day after the fourth Thursday of November.
func blackFriday(year int, loc *time.Location) time.Time {
	return nthWeekday(time.November, time.Thursday, 4)(year, loc).AddDate(0, 0, 1)
}

// easter uses the anonymous Gregorian algorithm.
func easter(year int, loc *time.Location) time.Time {
	a := year % 19
	b := year / 100
	c := year % 100
	d := b / 4
	e := b % 4
	f := (b + 8) / 25
	g := (b - f + 1) / 3
	h := (19*a + b - d - g + 15) % 30
	i := c / 4
	k := c % 4
	l := (32 + 2*e + 2*i - h - k) % 7
	m := (a + 11*h + 22*l) / 451
	month := (h + l - 7*m + 114) / 31
	day := (h+l-7*m+114)%31 + 1
	return time.Date(year, time.Month(month), day, 0, 0, 0, 0, loc)
}
