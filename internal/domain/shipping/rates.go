package shipping

import (
	"context"
	"regexp"
	"sort"
	"strings"
)

var carrierIDPattern = regexp.MustCompile(`^(se-[A-Za-z0-9-]+|car_[A-Za-z0-9]+|[0-9a-fA-F]{24,})$`)

// Address is a postal address used for rating and labels.
type Address struct {
	Name        string `json:"name,omitempty"`
	Company     string `json:"company,omitempty"`
	Phone       string `json:"phone,omitempty"`
	Line1       string `json:"line1"`
	Line2       string `json:"line2,omitempty"`
	City        string `json:"city"`
	State       string `json:"state"`
	PostalCode  string `json:"postal_code"`
	Country     string `json:"country"`
	Residential bool   `json:"residential,omitempty"`
}

// RateRequest asks a carrier API for rates on a plan.
type RateRequest struct {
	ShipFrom   Address
	ShipTo     Address
	Packages   []Package
	CarrierIDs []string
}

// Rate is a carrier rate normalized to cents.
type Rate struct {
	Carrier      string `json:"carrier"`
	CarrierID    string `json:"carrier_id,omitempty"`
	ServiceCode  string `json:"service_code"`
	ServiceName  string `json:"service_name,omitempty"`
	AmountCents  int64  `json:"amount_cents"`
	Currency     string `json:"currency"`
	DeliveryDays int    `json:"delivery_days,omitempty"`
}

// RateEstimate carries the sorted rates and the cheapest one.
// An empty estimate means no live rate was available.
type RateEstimate struct {
	Best  *Rate  `json:"best,omitempty"`
	Rates []Rate `json:"rates"`
}

// IsEmpty reports whether no rate was returned
func (e RateEstimate) IsEmpty() bool {
	return len(e.Rates) == 0
}

// NewRateEstimate sorts rates ascending by amount and picks the first as best.
func NewRateEstimate(rates []Rate) RateEstimate {
	sorted := make([]Rate, len(rates))
	copy(sorted, rates)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].AmountCents < sorted[j].AmountCents
	})
	est := RateEstimate{Rates: sorted}
	if len(sorted) > 0 {
		best := sorted[0]
		est.Best = &best
	}
	return est
}

// RateProvider fetches live rates from a carrier aggregation API.
type RateProvider interface {
	GetRates(ctx context.Context, req RateRequest) ([]Rate, error)
}

// CarrierAccount is a known carrier connection.
type CarrierAccount struct {
	ID   string
	Code string
	Name string
}

// CarrierSelection lists carrier ids from each configuration source.
type CarrierSelection struct {
	Requested     []string
	ConfiguredIDs []string
	ConfiguredID  string
	Fallback      []CarrierAccount
}

// IsCarrierID reports whether id has an opaque carrier-id shape.
func IsCarrierID(id string) bool {
	return carrierIDPattern.MatchString(strings.TrimSpace(id))
}

// ResolveCarrierIDs returns the allowlist from the first source that yields
// at least one valid id: requested, configured list, configured single id,
// then the fallback accounts with postal-service entries removed.
func ResolveCarrierIDs(sel CarrierSelection) []string {
	if ids := validCarrierIDs(sel.Requested); len(ids) > 0 {
		return ids
	}
	if ids := validCarrierIDs(sel.ConfiguredIDs); len(ids) > 0 {
		return ids
	}
	if ids := validCarrierIDs([]string{sel.ConfiguredID}); len(ids) > 0 {
		return ids
	}
	fallback := make([]string, 0, len(sel.Fallback))
	for _, acct := range sel.Fallback {
		if isPostalAccount(acct) {
			continue
		}
		fallback = append(fallback, acct.ID)
	}
	return validCarrierIDs(fallback)
}

func validCarrierIDs(ids []string) []string {
	seen := make(map[string]struct{}, len(ids))
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		id = strings.TrimSpace(id)
		if !IsCarrierID(id) {
			continue
		}
		if _, dup := seen[id]; dup {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}

func isPostalAccount(acct CarrierAccount) bool {
	probe := strings.ToLower(acct.Code + " " + acct.Name)
	return strings.Contains(probe, "usps") || strings.Contains(probe, "stamps")
}

var carrierDisplayNames = map[string]string{
	"ups":          "UPS",
	"fedex":        "FedEx",
	"dhl_express":  "DHL Express",
	"ontrac":       "OnTrac",
	"usps":         "USPS",
	"stamps_com":   "USPS",
	"canada_post":  "Canada Post",
	"purolator_ca": "Purolator",
}

// CarrierDisplayName returns a customer-facing carrier name for a carrier code.
func CarrierDisplayName(code string) string {
	if name, ok := carrierDisplayNames[strings.ToLower(strings.TrimSpace(code))]; ok {
		return name
	}
	return strings.ToUpper(code)
}
