// Package normalize is the parsing boundary between product-finder JSON and
// models.Product. Only the fields the pipeline uses are decoded; everything
// else in the payload is ignored.
package normalize

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"certsync/internal/product/models"
)

// ErrMissingID marks an item that cannot be keyed. Such items are dropped and
// counted, never retried.
var ErrMissingID = errors.New("item has no identifier")

// ErrMalformed marks an item whose JSON does not decode into Item.
var ErrMalformed = errors.New("malformed item")

// Item is the subset of a raw product-finder entry the pipeline reads.
type Item struct {
	CID             Text            `json:"cid"`
	CompanyName     Text            `json:"companyName"`
	Name            Text            `json:"name"`
	ModelNumber     Text            `json:"modelNumber"`
	Certified       Text            `json:"certified"`
	ProductCategory *category       `json:"productCategory"`
	FrequencyBand   Text            `json:"frequencyBand"`
	Certifications  []Certification `json:"certifications"`
}

type category struct {
	ConsumerClass *struct {
		Name Text `json:"name"`
	} `json:"product_consumer_category_class"`
}

// Certification is one program entry listed on an item.
type Certification struct {
	Name      Text `json:"name"`
	Displayed Flag `json:"should_be_displayed_on_details"`
}

// Decode parses one raw item.
func Decode(raw json.RawMessage) (Item, error) {
	var item Item
	if err := json.Unmarshal(raw, &item); err != nil {
		return Item{}, fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	return item, nil
}

// Normalize maps an item to a Product. A capability is set only when the item
// lists the program and marks it displayable; suppressed certifications never
// surface.
func Normalize(item Item) (models.Product, error) {
	id := strings.TrimSpace(string(item.CID))
	if id == "" {
		return models.Product{}, ErrMissingID
	}

	p := models.Product{
		ID:            id,
		Brand:         clean(item.CompanyName),
		Name:          clean(item.Name),
		ModelNumber:   clean(item.ModelNumber),
		CertifiedOn:   models.ParseDate(string(item.Certified)),
		FrequencyBand: clean(item.FrequencyBand),
	}
	if c := item.ProductCategory; c != nil && c.ConsumerClass != nil {
		p.Category = clean(c.ConsumerClass.Name)
	}

	displayed := make(map[string]bool, len(item.Certifications))
	for _, cert := range item.Certifications {
		if cert.Displayed {
			displayed[strings.TrimSpace(string(cert.Name))] = true
		}
	}
	flags := make(map[models.Capability]bool, len(models.Programs))
	for _, prog := range models.Programs {
		flags[prog.Code] = displayed[prog.Name]
	}
	p.SetCapabilities(flags)
	return p, nil
}

// Parse decodes and normalizes one raw item.
func Parse(raw json.RawMessage) (models.Product, error) {
	item, err := Decode(raw)
	if err != nil {
		return models.Product{}, err
	}
	return Normalize(item)
}

func clean(t Text) string {
	return strings.TrimSpace(string(t))
}
