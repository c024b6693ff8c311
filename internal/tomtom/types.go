package tomtom

// Raw TomTom payload shapes. Nothing outside this package sees these; the
// normalization in parse.go maps them into the internal models.

type searchResponse struct {
	Results []searchResult `json:"results"`
}

type searchResult struct {
	ID           string          `json:"id"`
	Poi          rawPoi          `json:"poi"`
	Address      rawAddress      `json:"address"`
	Position     rawPosition     `json:"position"`
	ChargingPark rawChargingPark `json:"chargingPark"`
}

type rawPoi struct {
	Name      string     `json:"name"`
	BrandName string     `json:"brandName"`
	Brands    []rawBrand `json:"brands"`
}

type rawBrand struct {
	Name string `json:"name"`
}

type rawAddress struct {
	StreetNumber string `json:"streetNumber"`
	StreetName   string `json:"streetName"`
	Municipality string `json:"municipality"`
	Country      string `json:"country"`
}

type rawPosition struct {
	Lat float64 `json:"lat"`
	Lon float64 `json:"lon"`
}

type rawChargingPark struct {
	Connectors   []rawConnector  `json:"connectors"`
	Availability rawAvailability `json:"availability"`
}

type rawConnector struct {
	ID            string          `json:"id"`
	ConnectorType string          `json:"connectorType"`
	CurrentType   string          `json:"currentType"`
	RatedPowerKW  float64         `json:"ratedPowerKW"`
	Availability  rawAvailability `json:"availability"`
}

type rawAvailability struct {
	Status string `json:"status"`
}

type availabilityResponse struct {
	ChargingAvailability []stationAvailability `json:"chargingAvailability"`
}

type stationAvailability struct {
	ID           string                   `json:"id"`
	Availability rawAvailability          `json:"availability"`
	Connectors   []connectorAvailability  `json:"connectors"`
}

type connectorAvailability struct {
	ID           string          `json:"id"`
	Availability rawAvailability `json:"availability"`
}
