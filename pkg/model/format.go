package model

import (
	"fmt"
	"math"
	"regexp"
	"strconv"
	"strings"
)

// sexaFormat matches INDI sexagesimal formats like "%m", "%10.6m".
var sexaFormat = regexp.MustCompile(`^%(\d+)?(?:\.(\d+))?m$`)

// FormatNumber renders a number element value using its declared
// format string. Plain printf formats ("%7.2f", "%g", "%.0f") pass
// through to fmt; the INDI "%m" family renders sexagesimal, with the
// fraction digit selecting the layout:
//
//	3 → d:mm     5 → d:mm.m     6 → d:mm:ss
//	8 → d:mm:ss.s     9 → d:mm:ss.ss
//
// An empty format falls back to %g.
func FormatNumber(format string, value float64) string {
	if format == "" {
		return strconv.FormatFloat(value, 'g', -1, 64)
	}
	if m := sexaFormat.FindStringSubmatch(format); m != nil {
		width, _ := strconv.Atoi(m[1])
		frac := 9
		if m[2] != "" {
			frac, _ = strconv.Atoi(m[2])
		}
		s := sexa(value, frac)
		if pad := width - len(s); pad > 0 {
			s = strings.Repeat(" ", pad) + s
		}
		return s
	}
	return fmt.Sprintf(format, value)
}

// sexa converts a decimal value to a sexagesimal string. Rounding
// happens at the finest displayed unit so "59.999" never renders a
// 60 in any position.
func sexa(value float64, frac int) string {
	neg := math.Signbit(value)
	a := math.Abs(value)

	var out string
	switch frac {
	case 3: // d:mm
		m := math.Round(a * 60)
		d := math.Floor(m / 60)
		out = fmt.Sprintf("%.0f:%02.0f", d, m-60*d)
	case 5: // d:mm.m
		t := math.Round(a * 600)
		d := math.Floor(t / 600)
		out = fmt.Sprintf("%.0f:%04.1f", d, (t-600*d)/10)
	case 6: // d:mm:ss
		s := math.Round(a * 3600)
		d := math.Floor(s / 3600)
		rem := s - 3600*d
		out = fmt.Sprintf("%.0f:%02.0f:%02.0f", d, math.Floor(rem/60), math.Mod(rem, 60))
	case 8: // d:mm:ss.s
		t := math.Round(a * 36000)
		d := math.Floor(t / 36000)
		rem := (t - 36000*d) / 10
		sec := math.Mod(rem, 60)
		out = fmt.Sprintf("%.0f:%02.0f:%04.1f", d, math.Floor(rem/60), sec)
	default: // 9: d:mm:ss.ss
		t := math.Round(a * 360000)
		d := math.Floor(t / 360000)
		rem := (t - 360000*d) / 100
		sec := math.Mod(rem, 60)
		out = fmt.Sprintf("%.0f:%02.0f:%05.2f", d, math.Floor(rem/60), sec)
	}
	if neg && out != "0:00" && !allZero(out) {
		out = "-" + out
	}
	return out
}

func allZero(s string) bool {
	for _, r := range s {
		if r != '0' && r != ':' && r != '.' {
			return false
		}
	}
	return true
}
