package geo

// FeatureCollection represents a GeoJSON feature collection.
type FeatureCollection struct {
	Type     string    `json:"type"`
	Features []Feature `json:"features"`
}

// Feature represents a single GeoJSON feature with geometry and properties.
type Feature struct {
	Type       string                 `json:"type"`
	Geometry   Geometry               `json:"geometry"`
	Properties map[string]interface{} `json:"properties"`
}

// Geometry represents the geometry of a feature. Coordinates follow the
// GeoJSON [lng, lat] order.
type Geometry struct {
	Type        string    `json:"type"`
	Coordinates []float64 `json:"coordinates"`
}

// NewFeatureCollection creates an empty feature collection. Features is
// non-nil so it serializes as [] rather than null.
func NewFeatureCollection() FeatureCollection {
	return FeatureCollection{
		Type:     "FeatureCollection",
		Features: []Feature{},
	}
}

// NewPointFeature creates a Point feature at the given coordinate.
func NewPointFeature(at LatLng, properties map[string]interface{}) Feature {
	return Feature{
		Type: "Feature",
		Geometry: Geometry{
			Type:        "Point",
			Coordinates: []float64{at.Lng, at.Lat},
		},
		Properties: properties,
	}
}
