package ingestion

// Normalized field names of raw records.
const (
	FieldPriceMWh = "price_eur_mwh"

	FieldPlantID     = "PLANT_ID"
	FieldSourceKey   = "SOURCE_KEY"
	FieldDCPower     = "DC_POWER"
	FieldACPower     = "AC_POWER"
	FieldDailyYield  = "DAILY_YIELD"
	FieldTotalYield  = "TOTAL_YIELD"
	FieldAmbientTemp = "AMBIENT_TEMPERATURE"
	FieldModuleTemp  = "MODULE_TEMPERATURE"
	FieldIrradiation = "IRRADIATION"
)
