// Package domain models yearly ridership of French railway stations and the
// pure transforms that turn it into plottable views.
//
// # Data Source
//
// Station ridership comes from the SNCF open-data "fréquentation en gares"
// export, one row per station with one passenger counter per year. A
// clustered variant of the same table carries an extra "cluster" column
// produced by an offline clustering job. Acquisition and clustering happen
// upstream; this package only reads the resulting tables.
//
// # Column Conventions
//
// Identity and location:
//
//	nom_de_la_gare   station display name (not guaranteed unique)
//	region           administrative region, e.g. "Île-de-France"
//	latitude         WGS84 degrees
//	longitude        WGS84 degrees
//	cluster          non-negative group id, 0 when the source is unclustered
//
// Ridership:
//
//	total_voyageurs_<year>  passengers for year 2015..2023, missing cells
//	                        are read as NaN
//
// The year of a ridership column is the single 4-digit group of its name,
// see [YearFromColumn].
//
// # Derived Metrics
//
//	var_2015_2023  (2023 − 2015) / 2015 × 100
//	impact_covid   (2020 − 2019) / 2019 × 100
//	reprise_2023   (2023 − 2019) / 2019 × 100, computed only for COVID views
//
// An undefined ratio (zero or missing denominator, missing numerator) is 0,
// never NaN. Distribution plots downstream cannot handle NaN, so a station
// without 2015 service shows 0% variation. See [PercentChange].
//
// # Visual Encoding
//
// Map colors come from [ColorScale]: the cluster dimension cycles through a
// qualitative palette, a numeric dimension is normalized over the current
// view and mapped from red (low) to green (high), anything else gets
// [DefaultColor]. Marker size is [Radius], a log scale clamped to 5..15.
package domain
