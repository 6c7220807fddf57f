// Package constants provides shared constants for the viverdebitcoin calculators.
package constants

// DateLayout is the format used by the historical tables, config files and
// output rows.
const DateLayout = "2006-01-02"

// MonthLayout is used for month-granularity output labels.
const MonthLayout = "2006-01"

// DefaultFloorDate is the first day of the bundled BTC/USD daily series.
// Requests for earlier dates are clamped to it.
const DefaultFloorDate = "2014-09-17"

// Financial constants
const (
	// SatsPerBTC is the number of satoshis in one bitcoin
	SatsPerBTC = 100_000_000

	// MonthsPerYear is the number of months in a year
	MonthsPerYear = 12

	// DaysPerYear is the average length of a year used for fractional year maths
	DaysPerYear = 365.25

	// BTCDecimals is the number of decimal places a BTC amount carries
	BTCDecimals = 8

	// MaxProjectionYears caps the span of any projected or planned year range
	MaxProjectionYears = 150
)

// Currency codes supported by the converter. USD is the base currency of
// every FX table.
const (
	CurrencyUSD = "USD"
	CurrencyBRL = "BRL"
	CurrencyEUR = "EUR"
)

// Output format constants
const (
	// OutputFormatPretty is the human-readable output format
	OutputFormatPretty = "pretty"

	// OutputFormatCSV is the CSV output format
	OutputFormatCSV = "csv"

	// OutputFormatJSON emits the result rows as JSON
	OutputFormatJSON = "json"

	// OutputFormatXLSX writes an Excel workbook with one sheet per calculation
	OutputFormatXLSX = "xlsx"
)

// Configuration file constants
const (
	// DefaultConfigFile is the default configuration file name
	DefaultConfigFile = "config.yaml"

	// ExampleConfigFile is the example configuration file name
	ExampleConfigFile = "config.yaml.example"

	// DefaultServerConfigFile is the default server configuration file name
	DefaultServerConfigFile = "server-config.yaml"

	// DefaultXLSXFile is where xlsx output lands when no path is given
	DefaultXLSXFile = "calculations.xlsx"
)

// Server configuration defaults
const (
	// DefaultServerAddress is the default HTTP listen address for the API
	DefaultServerAddress = ":8080"

	// DefaultMaxUploadSizeBytes is the default maximum request body size (256 KB)
	DefaultMaxUploadSizeBytes int64 = 256 * 1024
)

// Live price feed defaults
const (
	// DefaultCoinGeckoURL is the public CoinGecko API root
	DefaultCoinGeckoURL = "https://api.coingecko.com/api/v3"

	// DefaultRefreshSchedule is the cron spec for live price refreshes
	DefaultRefreshSchedule = "@every 5m"

	// DefaultQuoteDB is the SQLite file holding the last good quotes
	DefaultQuoteDB = "quotes.db"
)

// Validation constants
const (
	// BTCTolerance is the tolerance for BTC comparisons (1 satoshi)
	BTCTolerance = 1e-8

	// PercentageMultiplier is used for percentage conversions
	PercentageMultiplier = 100.0
)
