package billing

import (
	"encoding/json"
	"strings"

	"github.com/google/uuid"
)

// MaxMetadataValueLen is the longest value a payment processor metadata entry accepts
const MaxMetadataValueLen = 500

// MetadataItem is the compact cart line carried in session metadata
type MetadataItem struct {
	ProductID  string `json:"p"`
	VariantSKU string `json:"v,omitempty"`
	Quantity   int64  `json:"q"`
}

// EncodeMetadataItems returns the compact JSON form of the cart, or "" when
// it does not fit into a single metadata value.
func EncodeMetadataItems(items []MetadataItem) string {
	if len(items) == 0 {
		return ""
	}
	data, err := json.Marshal(items)
	if err != nil || len(data) > MaxMetadataValueLen {
		return ""
	}
	return string(data)
}

// DecodeMetadataItems parses the metadata cart. Lines with an unparsable
// product id or non-positive quantity are dropped.
func DecodeMetadataItems(raw string) ([]SessionLineItem, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, nil
	}
	var items []MetadataItem
	if err := json.Unmarshal([]byte(raw), &items); err != nil {
		return nil, err
	}

	lines := make([]SessionLineItem, 0, len(items))
	for _, item := range items {
		id, err := uuid.Parse(item.ProductID)
		if err != nil || item.Quantity <= 0 {
			continue
		}
		lines = append(lines, SessionLineItem{
			ProductID:  id,
			VariantSKU: item.VariantSKU,
			Quantity:   item.Quantity,
		})
	}
	return lines, nil
}
