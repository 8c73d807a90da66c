package fetchclient

import "fmt"

// wmoConditions maps open-meteo's WMO weather codes to a human-readable
// condition label. Codes not present here fall back to "WMO-<n>" rather
// than failing the fetch (spec.md §4.4: "unknown codes produce the literal
// WMO-<n>").
var wmoConditions = map[int]string{
	0:  "clear sky",
	1:  "mainly clear",
	2:  "partly cloudy",
	3:  "overcast",
	45: "fog",
	48: "depositing rime fog",
	51: "light drizzle",
	53: "moderate drizzle",
	55: "dense drizzle",
	56: "light freezing drizzle",
	57: "dense freezing drizzle",
	61: "slight rain",
	63: "moderate rain",
	65: "heavy rain",
	66: "light freezing rain",
	67: "heavy freezing rain",
	71: "slight snow fall",
	73: "moderate snow fall",
	75: "heavy snow fall",
	77: "snow grains",
	80: "slight rain showers",
	81: "moderate rain showers",
	82: "violent rain showers",
	85: "slight snow showers",
	86: "heavy snow showers",
	95: "thunderstorm",
	96: "thunderstorm with slight hail",
	99: "thunderstorm with heavy hail",
}

// conditionForCode resolves a WMO code to its condition label.
func conditionForCode(code int) string {
	if cond, ok := wmoConditions[code]; ok {
		return cond
	}
	return fmt.Sprintf("WMO-%d", code)
}
