package ingestion

// Peak hours are 8 to 20 inclusive.
const (
	PeakStartHour = 8
	PeakEndHour   = 20
)

// IsPeakHour reports whether a 0-23 hour is a peak hour.
func IsPeakHour(hour int) bool {
	return hour >= PeakStartHour && hour <= PeakEndHour
}

// PriceCategory buckets a MWh price. Missing prices have no category.
func PriceCategory(priceMWh Float) string {
	if !priceMWh.Valid() {
		return ""
	}
	switch p := float64(priceMWh); {
	case p <= 50:
		return "Low"
	case p <= 70:
		return "Medium"
	case p <= 100:
		return "High"
	default:
		return "Very High"
	}
}

// DemandCategory buckets national demand in MW.
func DemandCategory(demandMW Float) string {
	if !demandMW.Valid() {
		return ""
	}
	switch d := float64(demandMW); {
	case d <= 20000:
		return "Low"
	case d <= 25000:
		return "Medium"
	case d <= 30000:
		return "High"
	default:
		return "Very High"
	}
}

// Default source enumerations.
var (
	DefaultNationalZone = "Italia"

	DefaultZonalRegions = []string{
		"Calabria",
		"Central-northern Italy",
		"Centeral-southern Italy",
		"North",
		"Sardegna",
		"Sicilia",
		"Southern-Italy",
	}

	DefaultArbitrageRegions = []string{"Calabria", "Sicilia", "Sardegna", "North", "Southern-Italy"}

	DefaultDemandRegions = []string{
		"Calabria",
		"Sardegna",
		"Sicilia",
		"North",
		"Central-northern Italy",
		"Centeral-southern Italy",
		"Southern-Italy",
	}

	DefaultNationalDemandColumn = "Total Italy"
)
