package carrier

// shipEngineAddress is the address shape of the rates API
type shipEngineAddress struct {
	Name                        string `json:"name,omitempty"`
	CompanyName                 string `json:"company_name,omitempty"`
	Phone                       string `json:"phone,omitempty"`
	AddressLine1                string `json:"address_line1"`
	AddressLine2                string `json:"address_line2,omitempty"`
	CityLocality                string `json:"city_locality"`
	StateProvince               string `json:"state_province"`
	PostalCode                  string `json:"postal_code"`
	CountryCode                 string `json:"country_code"`
	AddressResidentialIndicator string `json:"address_residential_indicator,omitempty"`
}

type shipEngineWeight struct {
	Value float64 `json:"value"`
	Unit  string  `json:"unit"`
}

type shipEngineDimensions struct {
	Unit   string  `json:"unit"`
	Length float64 `json:"length"`
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
}

type shipEnginePackage struct {
	Weight     shipEngineWeight      `json:"weight"`
	Dimensions *shipEngineDimensions `json:"dimensions,omitempty"`
}

type shipEngineShipment struct {
	ShipFrom shipEngineAddress   `json:"ship_from"`
	ShipTo   shipEngineAddress   `json:"ship_to"`
	Packages []shipEnginePackage `json:"packages"`
}

type shipEngineRateOptions struct {
	CarrierIDs []string `json:"carrier_ids"`
}

// ShipEngineRatesRequest is the body of POST /v1/rates
type ShipEngineRatesRequest struct {
	RateOptions shipEngineRateOptions `json:"rate_options"`
	Shipment    shipEngineShipment    `json:"shipment"`
}

// ShipEngineAmount is a money amount in major units
type ShipEngineAmount struct {
	Currency string  `json:"currency"`
	Amount   float64 `json:"amount"`
}

// ShipEngineRate is one rate from the rates API
type ShipEngineRate struct {
	RateID              string            `json:"rate_id"`
	CarrierID           string            `json:"carrier_id"`
	CarrierCode         string            `json:"carrier_code"`
	CarrierFriendlyName string            `json:"carrier_friendly_name"`
	ServiceCode         string            `json:"service_code"`
	ServiceType         string            `json:"service_type"`
	ShippingAmount      ShipEngineAmount  `json:"shipping_amount"`
	InsuranceAmount     *ShipEngineAmount `json:"insurance_amount,omitempty"`
	ConfirmationAmount  *ShipEngineAmount `json:"confirmation_amount,omitempty"`
	OtherAmount         *ShipEngineAmount `json:"other_amount,omitempty"`
	DeliveryDays        *int              `json:"delivery_days,omitempty"`
	ValidationStatus    string            `json:"validation_status,omitempty"`
}

// ShipEngineError is an error entry of any ShipEngine response
type ShipEngineError struct {
	ErrorSource string `json:"error_source"`
	ErrorType   string `json:"error_type"`
	ErrorCode   string `json:"error_code"`
	Message     string `json:"message"`
}

// ShipEngineRatesResponse is the body returned by POST /v1/rates
type ShipEngineRatesResponse struct {
	RateResponse struct {
		Rates        []ShipEngineRate  `json:"rates"`
		InvalidRates []ShipEngineRate  `json:"invalid_rates"`
		Errors       []ShipEngineError `json:"errors"`
	} `json:"rate_response"`
	Errors []ShipEngineError `json:"errors"`
}

// ShipEngineCarrier is one connected carrier account
type ShipEngineCarrier struct {
	CarrierID    string `json:"carrier_id"`
	CarrierCode  string `json:"carrier_code"`
	FriendlyName string `json:"friendly_name"`
}

// ShipEngineCarriersResponse is the body returned by GET /v1/carriers
type ShipEngineCarriersResponse struct {
	Carriers []ShipEngineCarrier `json:"carriers"`
	Errors   []ShipEngineError   `json:"errors"`
}
