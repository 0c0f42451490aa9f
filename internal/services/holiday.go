package services

import (
	"sort"
	"strings"
	"time"

	"github.com/6tail/lunar-go/HolidayUtil"
	"github.com/6tail/lunar-go/calendar"
	"github.com/rickar/cal/v2"
	"github.com/rickar/cal/v2/be"
	"github.com/rickar/cal/v2/ca"
	"github.com/rickar/cal/v2/ch"
	"github.com/rickar/cal/v2/de"
	"github.com/rickar/cal/v2/es"
	"github.com/rickar/cal/v2/fr"
	"github.com/rickar/cal/v2/gb"
	"github.com/rickar/cal/v2/it"
	"github.com/rickar/cal/v2/nl"
	"github.com/rickar/cal/v2/pl"
	"github.com/rickar/cal/v2/us"
)

const (
	CountryChina        = "CN"
	CountryWeekendsOnly = "NONE"
)

type CountryInfo struct {
	Code string `json:"code"`
	Name string `json:"name"`
}

var businessCalendars = []struct {
	code     string
	name     string
	holidays []*cal.Holiday
}{
	{"FR", "France", fr.Holidays},
	{"BE", "Belgique", be.Holidays},
	{"CH", "Suisse", ch.Holidays},
	{"CA", "Canada", ca.Holidays},
	{"DE", "Allemagne", de.Holidays},
	{"ES", "Espagne", es.Holidays},
	{"IT", "Italie", it.Holidays},
	{"NL", "Pays-Bas", nl.Holidays},
	{"PL", "Pologne", pl.Holidays},
	{"GB", "Royaume-Uni", gb.Holidays},
	{"US", "États-Unis", us.Holidays},
}

// HolidayService decides whether the digest runs on a given day.
type HolidayService struct {
	calendars map[string]*cal.BusinessCalendar
	countries []CountryInfo
}

func NewHolidayService() *HolidayService {
	s := &HolidayService{calendars: make(map[string]*cal.BusinessCalendar)}
	for _, bc := range businessCalendars {
		c := cal.NewBusinessCalendar()
		c.Name = bc.name
		c.AddHoliday(bc.holidays...)
		s.calendars[bc.code] = c
		s.countries = append(s.countries, CountryInfo{Code: bc.code, Name: bc.name})
	}
	s.countries = append(s.countries,
		CountryInfo{Code: CountryChina, Name: "Chine"},
		CountryInfo{Code: CountryWeekendsOnly, Name: "Jours ouvrés uniquement (lun-ven)"},
	)
	sort.Slice(s.countries, func(i, j int) bool { return s.countries[i].Code < s.countries[j].Code })
	return s
}

// IsWorkday falls back to weekends-only for unknown codes.
func (s *HolidayService) IsWorkday(t time.Time, countryCode string) bool {
	code := strings.ToUpper(strings.TrimSpace(countryCode))
	if code == CountryChina {
		return isWorkdayChina(t)
	}
	if c, ok := s.calendars[code]; ok {
		return c.IsWorkday(t)
	}
	return !cal.IsWeekend(t)
}

// China moves working days onto weekends around public holidays; lunar-go
// carries the official adjustments.
func isWorkdayChina(t time.Time) bool {
	solar := calendar.NewSolarFromDate(t)
	if holiday := HolidayUtil.GetHolidayByYmd(solar.GetYear(), solar.GetMonth(), solar.GetDay()); holiday != nil {
		return holiday.IsWork()
	}
	return !cal.IsWeekend(t)
}

func (s *HolidayService) SupportedCountries() []CountryInfo {
	return s.countries
}
