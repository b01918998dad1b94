package station

import "strings"

type Station struct {
	Name string
}

func (s Station) Code() string {
	return s.Name
}

func (s Station) Label() string {
	// Capitalize first letter
	if len(s.Name) == 0 {
		return ""
	}
	return strings.ToUpper(s.Name[:1]) + s.Name[1:]
}

type Enum struct {
	Grill    Station
	Fry      Station
	Salad    Station
	Dessert  Station
	Beverage Station
	Bar      Station
}

var Stations = Enum{
	Grill:    Station{Name: "grill"},
	Fry:      Station{Name: "fry"},
	Salad:    Station{Name: "salad"},
	Dessert:  Station{Name: "dessert"},
	Beverage: Station{Name: "beverage"},
	Bar:      Station{Name: "bar"},
}

var All = []Station{
	Stations.Grill,
	Stations.Fry,
	Stations.Salad,
	Stations.Dessert,
	Stations.Beverage,
	Stations.Bar,
}

// ByName returns the station for a given name, or nil if not found
func ByName(name string) *Station {
	for _, s := range All {
		if s.Name == name {
			return &s
		}
	}
	return nil
}
