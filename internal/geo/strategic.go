package geo

// Region tags a strategic point with the macro-region it covers.
type Region string

const (
	RegionNortheast Region = "northeast"
	RegionSoutheast Region = "southeast"
	RegionMidwest   Region = "midwest"
	RegionSouth     Region = "south"
	RegionWest      Region = "west"
)

// StrategicPoint is a hand-ordered query point for providers whose search
// stops after accumulating a result cap rather than being radius-limited.
type StrategicPoint struct {
	GridPoint
	Region Region
}

// RegionWindow is the prefix of strategicPoints within which every
// macro-region must appear. Once a capped provider's search fills up on
// earlier points, later points contribute nothing, so a region missing
// from this window silently loses coverage. Reordering strategicPoints
// is a functional change, guarded by a test against this constant.
const RegionWindow = 8

// strategicPoints is ordered by coverage priority, not geography: the
// interleaving guarantees every macro-region lands inside RegionWindow.
var strategicPoints = []StrategicPoint{
	{GridPoint{Lat: 40.7128, Lng: -74.0060, Label: "New York NY"}, RegionNortheast},
	{GridPoint{Lat: 34.0522, Lng: -118.2437, Label: "Los Angeles CA"}, RegionWest},
	{GridPoint{Lat: 41.8781, Lng: -87.6298, Label: "Chicago IL"}, RegionMidwest},
	{GridPoint{Lat: 29.7604, Lng: -95.3698, Label: "Houston TX"}, RegionSouth},
	{GridPoint{Lat: 33.7490, Lng: -84.3880, Label: "Atlanta GA"}, RegionSoutheast},
	{GridPoint{Lat: 39.9526, Lng: -75.1652, Label: "Philadelphia PA"}, RegionNortheast},
	{GridPoint{Lat: 32.7767, Lng: -96.7970, Label: "Dallas TX"}, RegionSouth},
	{GridPoint{Lat: 47.6062, Lng: -122.3321, Label: "Seattle WA"}, RegionWest},
	{GridPoint{Lat: 25.7617, Lng: -80.1918, Label: "Miami FL"}, RegionSoutheast},
	{GridPoint{Lat: 42.3601, Lng: -71.0589, Label: "Boston MA"}, RegionNortheast},
	{GridPoint{Lat: 33.4484, Lng: -112.0740, Label: "Phoenix AZ"}, RegionWest},
	{GridPoint{Lat: 44.9778, Lng: -93.2650, Label: "Minneapolis MN"}, RegionMidwest},
	{GridPoint{Lat: 39.7392, Lng: -104.9903, Label: "Denver CO"}, RegionWest},
	{GridPoint{Lat: 36.1627, Lng: -86.7816, Label: "Nashville TN"}, RegionSoutheast},
	{GridPoint{Lat: 42.3314, Lng: -83.0458, Label: "Detroit MI"}, RegionMidwest},
	{GridPoint{Lat: 37.7749, Lng: -122.4194, Label: "San Francisco CA"}, RegionWest},
	{GridPoint{Lat: 35.2271, Lng: -80.8431, Label: "Charlotte NC"}, RegionSoutheast},
	{GridPoint{Lat: 29.4241, Lng: -98.4936, Label: "San Antonio TX"}, RegionSouth},
	{GridPoint{Lat: 38.6270, Lng: -90.1994, Label: "St. Louis MO"}, RegionMidwest},
	{GridPoint{Lat: 45.5152, Lng: -122.6784, Label: "Portland OR"}, RegionWest},
	{GridPoint{Lat: 39.0997, Lng: -94.5786, Label: "Kansas City MO"}, RegionMidwest},
	{GridPoint{Lat: 40.7608, Lng: -111.8910, Label: "Salt Lake City UT"}, RegionWest},
	{GridPoint{Lat: 29.9511, Lng: -90.0715, Label: "New Orleans LA"}, RegionSouth},
	{GridPoint{Lat: 32.7157, Lng: -117.1611, Label: "San Diego CA"}, RegionWest},
	{GridPoint{Lat: 27.9506, Lng: -82.4572, Label: "Tampa FL"}, RegionSoutheast},
}

// StrategicPoints returns the ordered query list for result-capped
// providers. Callers must query strictly in this order.
func StrategicPoints() []StrategicPoint {
	out := make([]StrategicPoint, len(strategicPoints))
	copy(out, strategicPoints)
	return out
}

// Regions returns the set of macro-regions the strategic list must cover.
func Regions() []Region {
	return []Region{RegionNortheast, RegionSoutheast, RegionMidwest, RegionSouth, RegionWest}
}
