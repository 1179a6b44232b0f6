// Package market_hours answers "is the market open" questions for the
// live runner and scheduler. Holidays are computed per year rather than
// hardcoded, so the calendar never goes stale.
package market_hours

import (
	"sync"
	"time"

	"github.com/rs/zerolog"
)

// TradingWindow is a single trading period within a day.
type TradingWindow struct {
	OpenHour    int
	OpenMinute  int
	CloseHour   int
	CloseMinute int
}

// ExchangeCalendar defines trading hours and a holiday rule for an exchange.
type ExchangeCalendar struct {
	Code           string
	Name           string
	TimezoneStr    string
	Timezone       *time.Location
	TradingWindows []TradingWindow
	holidaysFor    func(year int, loc *time.Location) []time.Time
}

// Service provides market status information.
type Service struct {
	calendars map[string]*ExchangeCalendar
	log       zerolog.Logger

	mu       sync.Mutex
	holidays map[string]map[int]map[string]bool // code -> year -> yyyy-mm-dd
}

// NewService creates a market hours service with the built-in calendars.
func NewService(log zerolog.Logger) *Service {
	s := &Service{
		calendars: make(map[string]*ExchangeCalendar),
		holidays:  make(map[string]map[int]map[string]bool),
		log:       log.With().Str("service", "market_hours").Logger(),
	}
	s.initializeCalendars()
	return s
}

func (s *Service) initializeCalendars() {
	nyLoc, _ := time.LoadLocation("America/New_York")
	nyse := &ExchangeCalendar{
		Code:        "XNYS",
		Name:        "NYSE",
		TimezoneStr: "America/New_York",
		Timezone:    nyLoc,
		TradingWindows: []TradingWindow{
			{OpenHour: 9, OpenMinute: 30, CloseHour: 16, CloseMinute: 0},
		},
		holidaysFor: usHolidays,
	}
	s.calendars["NYSE"] = nyse
	s.calendars["NASDAQ"] = nyse
	s.calendars["XNYS"] = nyse
	s.calendars["XNAS"] = nyse

	s.log.Info().Int("calendars", len(s.calendars)).Msg("Market hours calendars initialized")
}

// GetCalendar returns the calendar for an exchange name, defaulting to NYSE.
func (s *Service) GetCalendar(exchangeName string) *ExchangeCalendar {
	if cal, ok := s.calendars[exchangeName]; ok {
		return cal
	}
	s.log.Warn().Str("exchange", exchangeName).Msg("Unknown exchange, defaulting to NYSE")
	return s.calendars["NYSE"]
}

// IsMarketOpen reports whether the exchange is open for trading at t.
func (s *Service) IsMarketOpen(exchangeName string, t time.Time) bool {
	cal := s.GetCalendar(exchangeName)
	local := t.In(cal.Timezone)

	if !s.IsTradingDay(exchangeName, local) {
		return false
	}

	currentMinutes := local.Hour()*60 + local.Minute()
	for _, w := range cal.TradingWindows {
		open := w.OpenHour*60 + w.OpenMinute
		close := w.CloseHour*60 + w.CloseMinute
		if currentMinutes >= open && currentMinutes < close {
			return true
		}
	}
	return false
}

// IsTradingDay reports whether t falls on a weekday that is not a holiday.
func (s *Service) IsTradingDay(exchangeName string, t time.Time) bool {
	cal := s.GetCalendar(exchangeName)
	local := t.In(cal.Timezone)

	if local.Weekday() == time.Saturday || local.Weekday() == time.Sunday {
		return false
	}
	return !s.isHoliday(cal, local)
}

// NextTradingDay returns the first trading day strictly after t, at the
// exchange's opening time.
func (s *Service) NextTradingDay(exchangeName string, t time.Time) time.Time {
	cal := s.GetCalendar(exchangeName)
	day := t.In(cal.Timezone)
	for i := 0; i < 366; i++ {
		day = day.AddDate(0, 0, 1)
		if s.IsTradingDay(exchangeName, day) {
			w := cal.TradingWindows[0]
			return time.Date(day.Year(), day.Month(), day.Day(), w.OpenHour, w.OpenMinute, 0, 0, cal.Timezone)
		}
	}
	return day
}

// grid interval for the live runner's intraday checks
const actionGridMinutes = 15

// IsActionTime reports whether t sits on the run grid while the market is
// open. The scheduler fires every minute; only grid minutes do work.
func (s *Service) IsActionTime(exchangeName string, t time.Time) bool {
	if !s.IsMarketOpen(exchangeName, t) {
		return false
	}
	return t.In(s.GetCalendar(exchangeName).Timezone).Minute()%actionGridMinutes == 0
}

func (s *Service) isHoliday(cal *ExchangeCalendar, local time.Time) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	year := local.Year()
	byYear, ok := s.holidays[cal.Code]
	if !ok {
		byYear = make(map[int]map[string]bool)
		s.holidays[cal.Code] = byYear
	}
	days, ok := byYear[year]
	if !ok {
		days = make(map[string]bool)
		for _, h := range cal.holidaysFor(year, cal.Timezone) {
			days[h.Format("2006-01-02")] = true
		}
		byYear[year] = days
	}
	return days[local.Format("2006-01-02")]
}

// usHolidays computes the NYSE holiday set for a year: fixed dates shifted
// to the nearest weekday when they land on a weekend, nth-weekday floats,
// and Good Friday derived from Easter.
func usHolidays(year int, loc *time.Location) []time.Time {
	easter := easterSunday(year, loc)

	holidays := []time.Time{
		observed(time.Date(year, time.January, 1, 0, 0, 0, 0, loc)),    // New Year's Day
		nthWeekday(year, time.January, time.Monday, 3, loc),            // MLK Day
		nthWeekday(year, time.February, time.Monday, 3, loc),           // Presidents Day
		easter.AddDate(0, 0, -2),                                       // Good Friday
		lastWeekday(year, time.May, time.Monday, loc),                  // Memorial Day
		observed(time.Date(year, time.June, 19, 0, 0, 0, 0, loc)),      // Juneteenth
		observed(time.Date(year, time.July, 4, 0, 0, 0, 0, loc)),       // Independence Day
		nthWeekday(year, time.September, time.Monday, 1, loc),          // Labor Day
		nthWeekday(year, time.November, time.Thursday, 4, loc),         // Thanksgiving
		observed(time.Date(year, time.December, 25, 0, 0, 0, 0, loc)),  // Christmas
	}
	return holidays
}

// observed shifts a weekend holiday to the adjacent weekday: Saturday to
// Friday, Sunday to Monday.
func observed(d time.Time) time.Time {
	switch d.Weekday() {
	case time.Saturday:
		return d.AddDate(0, 0, -1)
	case time.Sunday:
		return d.AddDate(0, 0, 1)
	}
	return d
}

// nthWeekday returns the n-th weekday of a month (n starts at 1).
func nthWeekday(year int, month time.Month, weekday time.Weekday, n int, loc *time.Location) time.Time {
	d := time.Date(year, month, 1, 0, 0, 0, 0, loc)
	offset := (int(weekday) - int(d.Weekday()) + 7) % 7
	return d.AddDate(0, 0, offset+(n-1)*7)
}

// lastWeekday returns the last weekday of a month.
func lastWeekday(year int, month time.Month, weekday time.Weekday, loc *time.Location) time.Time {
	d := time.Date(year, month+1, 1, 0, 0, 0, 0, loc).AddDate(0, 0, -1)
	offset := (int(d.Weekday()) - int(weekday) + 7) % 7
	return d.AddDate(0, 0, -offset)
}

// easterSunday computes Easter via the anonymous Gregorian algorithm.
func easterSunday(year int, loc *time.Location) time.Time {
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

// MarketStatus is the JSON shape returned by the status endpoint.
type MarketStatus struct {
	Exchange string `json:"exchange"`
	IsOpen   bool   `json:"is_open"`
	Timezone string `json:"timezone"`
}

// AllMarketStatuses returns the status of each unique calendar at t.
func (s *Service) AllMarketStatuses(t time.Time) []MarketStatus {
	statuses := make([]MarketStatus, 0, len(s.calendars))
	seen := make(map[string]bool)

	for name, cal := range s.calendars {
		if seen[cal.Code] {
			continue
		}
		seen[cal.Code] = true
		statuses = append(statuses, MarketStatus{
			Exchange: name,
			IsOpen:   s.IsMarketOpen(name, t),
			Timezone: cal.TimezoneStr,
		})
	}
	return statuses
}
