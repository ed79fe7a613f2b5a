package session

// State is the session's position in the lookup flow.
//
//	Idle → Locating → ResolvingPlace → FetchingWeather → FetchingForecast → Ready
//
// Fetch errors transition back to Idle with the error recorded; exhausting the
// retry cap lands in Failed, which is terminal for the session.
type State string

const (
	StateIdle             State = "idle"
	StateLocating         State = "locating"
	StateResolvingPlace   State = "resolving_place"
	StateFetchingWeather  State = "fetching_weather"
	StateFetchingForecast State = "fetching_forecast"
	StateReady            State = "ready"
	StateFailed           State = "failed"
)

// FetchMode decides whether a fetch may be satisfied from cache. It is carried
// through the call chain rather than held as ambient session state.
type FetchMode int

const (
	// CacheEligible serves an un-expired cached payload when one exists.
	CacheEligible FetchMode = iota

	// ForceNetwork bypasses the cache read but still writes the result through.
	ForceNetwork
)

func (m FetchMode) String() string {
	if m == ForceNetwork {
		return "force_network"
	}
	return "cache_eligible"
}
