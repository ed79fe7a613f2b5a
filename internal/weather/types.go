package weather

import "time"

// Raw payload shapes mirror the OpenWeatherMap /weather and /forecast
// responses. Optional blocks (rain, snow) decode to zero values when absent.

// MainInfo carries the core readings of a payload or timeslot.
type MainInfo struct {
	Temp     float64 `json:"temp"`
	TempMin  float64 `json:"temp_min"`
	TempMax  float64 `json:"temp_max"`
	Humidity float64 `json:"humidity"`
}

// WindInfo carries wind speed and bearing in degrees.
type WindInfo struct {
	Speed float64 `json:"speed"`
	Deg   float64 `json:"deg"`
}

// ConditionInfo identifies the reported condition and its icon code.
type ConditionInfo struct {
	Main        string `json:"main"`
	Description string `json:"description"`
	Icon        string `json:"icon"`
}

// Precip holds precipitation volume keyed by measurement window.
type Precip struct {
	OneH   float64 `json:"1h"`
	ThreeH float64 `json:"3h"`
}

// CurrentPayload is the raw current-conditions response.
type CurrentPayload struct {
	Weather []ConditionInfo `json:"weather"`
	Main    MainInfo        `json:"main"`
	Wind    WindInfo        `json:"wind"`
	Rain    Precip          `json:"rain"`
	Snow    Precip          `json:"snow"`
	Dt      int64           `json:"dt"`
	Name    string          `json:"name"`
}

// ForecastSlot is one 3-hour forecast entry.
type ForecastSlot struct {
	Weather []ConditionInfo `json:"weather"`
	Main    MainInfo        `json:"main"`
	Wind    WindInfo        `json:"wind"`
	Rain    Precip          `json:"rain"`
	Snow    Precip          `json:"snow"`
	DtTxt   string          `json:"dt_txt"`
}

// ForecastPayload is the raw multi-day forecast response.
type ForecastPayload struct {
	List []ForecastSlot `json:"list"`
	City struct {
		Name string `json:"name"`
	} `json:"city"`
}

// Direction is a quadrant wind-direction label.
type Direction string

const (
	DirectionNE Direction = "NE"
	DirectionSE Direction = "SE"
	DirectionSW Direction = "SW"
	DirectionNW Direction = "NW"
)

// Wind is the display-ready wind reading.
type Wind struct {
	Speed     float64   `json:"speed"`
	Direction Direction `json:"direction"`
}

// DisplayWeather is the normalized current-conditions view.
type DisplayWeather struct {
	Temp       int       `json:"temp"`
	Date       time.Time `json:"date"`
	IconURL    string    `json:"icon_url"`
	LocaleName string    `json:"locale_name"`
	Precip     float64   `json:"precip"`
	Humidity   float64   `json:"humidity"`
	Wind       Wind      `json:"wind"`
}

// DisplayForecastDay aggregates one calendar date's timeslots.
type DisplayForecastDay struct {
	Date    string  `json:"date"`
	Temp    int     `json:"temp"`
	TempMin float64 `json:"temp_min"`
	TempMax float64 `json:"temp_max"`
	Precip  float64 `json:"precip"`
	Wind    Wind    `json:"wind"`
	IconURL string  `json:"icon_url"`
}
