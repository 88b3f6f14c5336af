package formstate

// Persisted preference keys. These are the only values mirrored into durable
// per-browser storage; they are written on every change and never expired.
const (
	PrefAnnotator     = "annotator"
	PrefUnfilledStart = "unfilled-start-index"
	PrefUnfilledScope = "unfilled-scope"
	PrefAutoSubmit    = "auto-submit"
)

// KnownPreference reports whether key is one of the four persisted
// preference names.
func KnownPreference(key string) bool {
	switch key {
	case PrefAnnotator, PrefUnfilledStart, PrefUnfilledScope, PrefAutoSubmit:
		return true
	}
	return false
}

// PreferenceStore is the durable client-side storage the engine mirrors
// preferences into. Updates are whole-value, last writer wins; the store is
// shared across all pages of the same client.
type PreferenceStore interface {
	Get(key string) (string, bool)
	Set(key, value string)
}

// MapStore is an in-memory PreferenceStore.
type MapStore map[string]string

func (m MapStore) Get(key string) (string, bool) {
	v, ok := m[key]
	return v, ok
}

func (m MapStore) Set(key, value string) { m[key] = value }
