package fortification

// MapServiceBase is the Google Maps endpoint used for deep links.
const MapServiceBase = "https://www.google.com/maps"

// MapLink returns a map deep link for the coordinate, or "" when it is absent.
func MapLink(coord Coordinate, ok bool) string {
	if !ok || coord.Latitude == "" || coord.Longitude == "" {
		return ""
	}
	return MapServiceBase + "?q=" + coord.Latitude + "," + coord.Longitude
}
