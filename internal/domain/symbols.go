package domain

// Canonical commodity symbols. Every provider-native identifier is mapped to
// one of these before validation, so rows from different sources for the same
// commodity share a symbol.
const (
	SymbolWTICrude   = "WTI_CRUDE"
	SymbolBrentCrude = "BRENT_CRUDE"
	SymbolNaturalGas = "NATURAL_GAS"
)

// SymbolMap translates provider-native series identifiers to canonical
// commodity symbols, keyed by source name then native identifier.
type SymbolMap map[string]map[string]string

// DefaultSymbolMap returns the built-in mapping for the three concrete
// adapters. Config entries extend it but never shadow a canonical symbol
// with a different commodity.
func DefaultSymbolMap() SymbolMap {
	return SymbolMap{
		"eia": {
			"PET.RWTC.D":   SymbolWTICrude,
			"NG.RNGWHHD.D": SymbolNaturalGas,
		},
		"fred": {
			"DCOILWTICO":   SymbolWTICrude,
			"DCOILBRENTEU": SymbolBrentCrude,
		},
		"quotes": {
			"CL=F": SymbolWTICrude,
			"BZ=F": SymbolBrentCrude,
		},
	}
}

// Canonical resolves a native identifier for a source. ok is false when the
// identifier is unmapped; callers treat that as a configuration problem.
func (m SymbolMap) Canonical(source, nativeID string) (string, bool) {
	bySource, exists := m[source]
	if !exists {
		return "", false
	}
	symbol, exists := bySource[nativeID]
	return symbol, exists
}

// Extend merges additional mappings into the map, adding sources and
// identifiers as needed. Later entries win on identifier collision.
func (m SymbolMap) Extend(source string, mappings map[string]string) {
	if m[source] == nil {
		m[source] = make(map[string]string, len(mappings))
	}
	for native, symbol := range mappings {
		m[source][native] = symbol
	}
}

// CommodityName returns a human-readable name for a canonical symbol, used
// when the storage adapter creates a commodity row on first sighting.
func CommodityName(symbol string) string {
	switch symbol {
	case SymbolWTICrude:
		return "WTI Crude Oil"
	case SymbolBrentCrude:
		return "Brent Crude Oil"
	case SymbolNaturalGas:
		return "Henry Hub Natural Gas"
	default:
		return symbol
	}
}
