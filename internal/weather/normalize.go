package weather

import (
	"math"
	"strings"
	"time"
)

const iconBaseURL = "https://openweathermap.org/img/w/"

// WindDirection buckets a bearing into one of four quadrants:
// [0,90) NE, [90,180) SE, [180,270) SW, everything else NW. Negative
// bearings land in NW; a missing (zero) bearing lands in NE.
func WindDirection(deg float64) Direction {
	switch {
	case deg >= 0 && deg < 90:
		return DirectionNE
	case deg >= 90 && deg < 180:
		return DirectionSE
	case deg >= 180 && deg < 270:
		return DirectionSW
	default:
		return DirectionNW
	}
}

// NormalizeCurrent maps a raw current-conditions payload into its display
// shape. Pure: now is the fetch timestamp supplied by the caller.
func NormalizeCurrent(raw *CurrentPayload, now time.Time) DisplayWeather {
	return DisplayWeather{
		Temp:       int(math.Round(raw.Main.Temp)),
		Date:       now,
		IconURL:    iconURL(raw.Weather),
		LocaleName: raw.Name,
		Precip:     precipOf(raw.Rain, raw.Snow),
		Humidity:   raw.Main.Humidity,
		Wind: Wind{
			Speed:     raw.Wind.Speed,
			Direction: WindDirection(raw.Wind.Deg),
		},
	}
}

// NormalizeForecast groups raw timeslots by calendar date and returns one
// entry per date, in first-seen order. Each entry keeps the first timeslot's
// representative fields; TempMin/TempMax span all of that date's timeslots.
func NormalizeForecast(list []ForecastSlot) []DisplayForecastDay {
	days := make([]DisplayForecastDay, 0, len(list))
	index := make(map[string]int)

	for _, slot := range list {
		date := slotDate(slot.DtTxt)

		if i, seen := index[date]; seen {
			if slot.Main.Temp < days[i].TempMin {
				days[i].TempMin = slot.Main.Temp
			}
			if slot.Main.Temp > days[i].TempMax {
				days[i].TempMax = slot.Main.Temp
			}
			continue
		}

		index[date] = len(days)
		days = append(days, DisplayForecastDay{
			Date:    date,
			Temp:    int(math.Round(slot.Main.Temp)),
			TempMin: slot.Main.Temp,
			TempMax: slot.Main.Temp,
			Precip:  precipOf(slot.Rain, slot.Snow),
			Wind: Wind{
				Speed:     slot.Wind.Speed,
				Direction: WindDirection(slot.Wind.Deg),
			},
			IconURL: iconURL(slot.Weather),
		})
	}

	return days
}

// slotDate extracts the date portion of a "2006-01-02 15:04:05" timestamp.
func slotDate(dtTxt string) string {
	if i := strings.IndexByte(dtTxt, ' '); i >= 0 {
		return dtTxt[:i]
	}
	return dtTxt
}

// precipOf picks the first reported precipitation volume, preferring rain
// over snow and the 1-hour window over the 3-hour one. Absent blocks are 0.
func precipOf(rain, snow Precip) float64 {
	switch {
	case rain.OneH > 0:
		return rain.OneH
	case rain.ThreeH > 0:
		return rain.ThreeH
	case snow.OneH > 0:
		return snow.OneH
	default:
		return snow.ThreeH
	}
}

func iconURL(conditions []ConditionInfo) string {
	if len(conditions) == 0 {
		return ""
	}
	return iconBaseURL + conditions[0].Icon + ".png"
}
