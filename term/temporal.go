// Copyright 2024 The Project Authors. All rights reserved.
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package term

import (
	"fmt"
	"strconv"
	"strings"
)

// DateTime is the shared inline representation backing xsd:dateTime,
// xsd:date, xsd:time, xsd:gYear, xsd:gMonth, xsd:gDay, xsd:gYearMonth
// and xsd:gMonthDay: which fields are meaningful is governed by the
// literal's Datatype, not by this struct, mirroring how a single
// EncodedTerm numeric payload shape is reused across several XSD
// types.
type DateTime struct {
	Year, Month, Day int
	Hour, Minute     int
	Second           int
	Nanos            int
	HasTZ            bool
	TZOffsetMinutes  int // east of UTC
}

// Duration is the shared representation backing xsd:duration,
// xsd:yearMonthDuration (Months only) and xsd:dayTimeDuration (Days/
// Seconds/Nanos only).
type Duration struct {
	Months   int
	Days     int
	Seconds  int
	Nanos    int
	Negative bool
}

func (dt DateTime) String() string {
	var b strings.Builder
	hasDate := dt.Year != 0 || dt.Month != 0 || dt.Day != 0
	hasTime := dt.Hour != 0 || dt.Minute != 0 || dt.Second != 0 || dt.Nanos != 0
	if hasDate {
		fmt.Fprintf(&b, "%04d-%02d-%02d", dt.Year, dt.Month, dt.Day)
	}
	if hasTime || !hasDate {
		if hasDate {
			b.WriteByte('T')
		}
		fmt.Fprintf(&b, "%02d:%02d:%02d", dt.Hour, dt.Minute, dt.Second)
		if dt.Nanos != 0 {
			fmt.Fprintf(&b, ".%09d", dt.Nanos)
		}
	}
	if dt.HasTZ {
		if dt.TZOffsetMinutes == 0 {
			b.WriteByte('Z')
		} else {
			off := dt.TZOffsetMinutes
			sign := "+"
			if off < 0 {
				sign = "-"
				off = -off
			}
			fmt.Fprintf(&b, "%s%02d:%02d", sign, off/60, off%60)
		}
	}
	return b.String()
}

// ParseDateTime parses an xsd:dateTime lexical form.
func ParseDateTime(s string) (DateTime, error) {
	var dt DateTime
	rest := s
	tz, tzRest, hasTZ := splitTZ(rest)
	rest = tzRest
	parts := strings.SplitN(rest, "T", 2)
	if len(parts) != 2 {
		return dt, fmt.Errorf("term: invalid dateTime %q", s)
	}
	if err := parseDatePart(parts[0], &dt); err != nil {
		return dt, err
	}
	if err := parseTimePart(parts[1], &dt); err != nil {
		return dt, err
	}
	dt.HasTZ = hasTZ
	dt.TZOffsetMinutes = tz
	return dt, nil
}

// ParseDate parses an xsd:date lexical form.
func ParseDate(s string) (DateTime, error) {
	var dt DateTime
	rest := s
	tz, tzRest, hasTZ := splitTZ(rest)
	rest = tzRest
	if err := parseDatePart(rest, &dt); err != nil {
		return dt, err
	}
	dt.HasTZ = hasTZ
	dt.TZOffsetMinutes = tz
	return dt, nil
}

// ParseTime parses an xsd:time lexical form.
func ParseTime(s string) (DateTime, error) {
	var dt DateTime
	tz, rest, hasTZ := splitTZ(s)
	if err := parseTimePart(rest, &dt); err != nil {
		return dt, err
	}
	dt.HasTZ = hasTZ
	dt.TZOffsetMinutes = tz
	return dt, nil
}

func splitTZ(s string) (offsetMinutes int, rest string, has bool) {
	if strings.HasSuffix(s, "Z") {
		return 0, s[:len(s)-1], true
	}
	// look for a trailing +HH:MM or -HH:MM, careful not to eat the
	// leading '-' of a negative (BCE) year.
	for i := len(s) - 1; i >= 1; i-- {
		if s[i] == '+' || (s[i] == '-' && i == len(s)-6) {
			cand := s[i:]
			if len(cand) == 6 && cand[3] == ':' {
				h, err1 := strconv.Atoi(cand[1:3])
				m, err2 := strconv.Atoi(cand[4:6])
				if err1 == nil && err2 == nil {
					off := h*60 + m
					if cand[0] == '-' {
						off = -off
					}
					return off, s[:i], true
				}
			}
			break
		}
	}
	return 0, s, false
}

func parseDatePart(s string, dt *DateTime) error {
	neg := strings.HasPrefix(s, "-")
	if neg {
		s = s[1:]
	}
	fields := strings.Split(s, "-")
	if len(fields) < 1 {
		return fmt.Errorf("term: invalid date %q", s)
	}
	var err error
	dt.Year, err = strconv.Atoi(fields[0])
	if err != nil {
		return err
	}
	if neg {
		dt.Year = -dt.Year
	}
	if len(fields) > 1 {
		if dt.Month, err = strconv.Atoi(fields[1]); err != nil {
			return err
		}
	}
	if len(fields) > 2 {
		if dt.Day, err = strconv.Atoi(fields[2]); err != nil {
			return err
		}
	}
	return nil
}

func parseTimePart(s string, dt *DateTime) error {
	fields := strings.Split(s, ":")
	if len(fields) != 3 {
		return fmt.Errorf("term: invalid time %q", s)
	}
	var err error
	if dt.Hour, err = strconv.Atoi(fields[0]); err != nil {
		return err
	}
	if dt.Minute, err = strconv.Atoi(fields[1]); err != nil {
		return err
	}
	secStr := fields[2]
	if dot := strings.IndexByte(secStr, '.'); dot >= 0 {
		frac := secStr[dot+1:]
		for len(frac) < 9 {
			frac += "0"
		}
		if dt.Nanos, err = strconv.Atoi(frac[:9]); err != nil {
			return err
		}
		secStr = secStr[:dot]
	}
	if dt.Second, err = strconv.Atoi(secStr); err != nil {
		return err
	}
	return nil
}

// ParseDuration parses an xsd:duration lexical form, e.g. "P1Y2M3DT4H5M6S".
func ParseDuration(s string) (Duration, error) {
	var d Duration
	if s == "" {
		return d, fmt.Errorf("term: empty duration")
	}
	if strings.HasPrefix(s, "-") {
		d.Negative = true
		s = s[1:]
	}
	if !strings.HasPrefix(s, "P") {
		return d, fmt.Errorf("term: invalid duration %q", s)
	}
	s = s[1:]
	datePart, timePart := s, ""
	if i := strings.IndexByte(s, 'T'); i >= 0 {
		datePart, timePart = s[:i], s[i+1:]
	}
	num := ""
	for _, r := range datePart {
		if r >= '0' && r <= '9' {
			num += string(r)
			continue
		}
		n, _ := strconv.Atoi(num)
		num = ""
		switch r {
		case 'Y':
			d.Months += n * 12
		case 'M':
			d.Months += n
		case 'D':
			d.Days += n
		default:
			return d, fmt.Errorf("term: invalid duration date field %q", s)
		}
	}
	num = ""
	for _, r := range timePart {
		if (r >= '0' && r <= '9') || r == '.' {
			num += string(r)
			continue
		}
		switch r {
		case 'H':
			n, _ := strconv.Atoi(num)
			d.Seconds += n * 3600
		case 'M':
			n, _ := strconv.Atoi(num)
			d.Seconds += n * 60
		case 'S':
			if dot := strings.IndexByte(num, '.'); dot >= 0 {
				whole, _ := strconv.Atoi(num[:dot])
				frac := num[dot+1:]
				for len(frac) < 9 {
					frac += "0"
				}
				nanos, _ := strconv.Atoi(frac[:9])
				d.Seconds += whole
				d.Nanos += nanos
			} else {
				n, _ := strconv.Atoi(num)
				d.Seconds += n
			}
		default:
			return d, fmt.Errorf("term: invalid duration time field %q", s)
		}
		num = ""
	}
	return d, nil
}

func (d Duration) String() string {
	if d.Months == 0 && d.Days == 0 && d.Seconds == 0 && d.Nanos == 0 {
		return "PT0S"
	}
	var b strings.Builder
	if d.Negative {
		b.WriteByte('-')
	}
	b.WriteByte('P')
	years, months := d.Months/12, d.Months%12
	if years != 0 {
		fmt.Fprintf(&b, "%dY", years)
	}
	if months != 0 {
		fmt.Fprintf(&b, "%dM", months)
	}
	if d.Days != 0 {
		fmt.Fprintf(&b, "%dD", d.Days)
	}
	if d.Seconds != 0 || d.Nanos != 0 {
		b.WriteByte('T')
		h := d.Seconds / 3600
		m := (d.Seconds % 3600) / 60
		s := d.Seconds % 60
		if h != 0 {
			fmt.Fprintf(&b, "%dH", h)
		}
		if m != 0 {
			fmt.Fprintf(&b, "%dM", m)
		}
		if s != 0 || d.Nanos != 0 || (h == 0 && m == 0) {
			if d.Nanos != 0 {
				fmt.Fprintf(&b, "%d.%09dS", s, d.Nanos)
			} else {
				fmt.Fprintf(&b, "%dS", s)
			}
		}
	}
	return b.String()
}

var daysInMonth = [...]int{31, 28, 31, 30, 31, 30, 31, 31, 30, 31, 30, 31}

func isLeap(y int) bool { return y%4 == 0 && (y%100 != 0 || y%400 == 0) }

func daysInMonthOf(y, m int) int {
	if m == 2 && isLeap(y) {
		return 29
	}
	return daysInMonth[m-1]
}

// AddDuration implements SPARQL date±duration arithmetic: months are
// added first with day clamping, then the day-time part.
func (dt DateTime) AddDuration(d Duration) DateTime {
	sign := 1
	if d.Negative {
		sign = -1
	}
	out := dt
	totalMonths := out.Year*12 + (out.Month - 1) + sign*d.Months
	out.Year = totalMonths / 12
	out.Month = totalMonths%12 + 1
	if out.Month <= 0 {
		out.Month += 12
		out.Year--
	}
	if dim := daysInMonthOf(out.Year, out.Month); out.Day > dim {
		out.Day = dim
	}
	nanos := out.Nanos + sign*d.Nanos
	secs := out.Second + out.Minute*60 + out.Hour*3600 + sign*(d.Seconds+d.Days*86400)
	for nanos < 0 {
		nanos += 1_000_000_000
		secs--
	}
	for nanos >= 1_000_000_000 {
		nanos -= 1_000_000_000
		secs++
	}
	dayCarry := 0
	if secs < 0 {
		dayCarry = -((-secs + 86399) / 86400)
		secs -= dayCarry * 86400
	} else if secs >= 86400 {
		dayCarry = secs / 86400
		secs -= dayCarry * 86400
	}
	out.Hour = secs / 3600
	out.Minute = (secs % 3600) / 60
	out.Second = secs % 60
	out.Nanos = nanos
	if dayCarry != 0 {
		out = out.addDays(dayCarry)
	}
	return out
}

func (dt DateTime) addDays(n int) DateTime {
	out := dt
	for n > 0 {
		dim := daysInMonthOf(out.Year, out.Month)
		if out.Day+n <= dim {
			out.Day += n
			return out
		}
		n -= dim - out.Day + 1
		out.Day = 1
		out.Month++
		if out.Month > 12 {
			out.Month = 1
			out.Year++
		}
	}
	for n < 0 {
		if out.Day+n >= 1 {
			out.Day += n
			return out
		}
		out.Month--
		if out.Month < 1 {
			out.Month = 12
			out.Year--
		}
		n += out.Day
		out.Day = daysInMonthOf(out.Year, out.Month)
	}
	return out
}

// Sub returns dt-other as a Duration (day-time only, used by date
// arithmetic tests and DAYTIMEDURATION subtraction).
func (dt DateTime) Sub(other DateTime) Duration {
	a := dt.toUnixLikeSeconds()
	b := other.toUnixLikeSeconds()
	diff := a - b
	neg := diff < 0
	if neg {
		diff = -diff
	}
	return Duration{Seconds: int(diff), Negative: neg}
}

func (dt DateTime) toUnixLikeSeconds() int64 {
	days := int64(0)
	y, m := dt.Year, 1
	if dt.Year >= 1970 {
		for yy := 1970; yy < y; yy++ {
			days += int64(365)
			if isLeap(yy) {
				days++
			}
		}
	} else {
		for yy := y; yy < 1970; yy++ {
			days -= int64(365)
			if isLeap(yy) {
				days--
			}
		}
	}
	for mm := 1; mm < dt.Month; mm++ {
		days += int64(daysInMonthOf(y, mm))
	}
	_ = m
	days += int64(dt.Day - 1)
	return days*86400 + int64(dt.Hour)*3600 + int64(dt.Minute)*60 + int64(dt.Second)
}
