package models

import "time"

// LatLng is a WGS84 coordinate pair.
type LatLng struct {
	Lat float64 `json:"lat"`
	Lng float64 `json:"lng"`
}

// LocationSample is one reported position for a user. Only the latest sample
// per user is retained; there is no location history table.
type LocationSample struct {
	Lat       float64   `json:"lat"`
	Lng       float64   `json:"lng"`
	Timestamp time.Time `json:"timestamp"`
}

// LatLng returns the sample's coordinate pair without the timestamp.
func (s LocationSample) LatLng() LatLng {
	return LatLng{Lat: s.Lat, Lng: s.Lng}
}
