package goEventHub

import "fmt"

// MapSettings is what a map picker needs to load.
type MapSettings struct {
	APIKey      string
	Libraries   []string
	DefaultZoom int
}

// MapSettings returns the configured maps key, libraries and zoom.
func (s *Store) MapSettings() MapSettings {
	if s == nil {
		return MapSettings{}
	}
	return MapSettings{
		APIKey:      s.config.Maps.APIKey,
		Libraries:   append([]string(nil), s.config.Maps.Libraries...),
		DefaultZoom: s.config.Maps.DefaultZoom,
	}
}

// SelectLocation stores a place picked on the map.
//
// A place without geometry fails with ErrPlaceNotFound and coordinates outside
// WGS84 ranges with ErrInvalidCoordinates; neither touches state.
func (s *Store) SelectLocation(sel LocationSelection) error {
	if s == nil {
		return ErrStoreNotReady
	}
	if sel.Location == nil {
		return ErrPlaceNotFound
	}
	ll := *sel.Location
	if ll.Lat < -90 || ll.Lat > 90 || ll.Lng < -180 || ll.Lng > 180 {
		return fmt.Errorf("%w: (%g, %g)", ErrInvalidCoordinates, ll.Lat, ll.Lng)
	}

	s.dispatch(SetLocation{Selection: sel})
	s.metricInc(MetricLocationSelected)
	return nil
}
