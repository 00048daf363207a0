package models

import "strings"

// Capability is the short code of a certification program.
type Capability string

const (
	CapabilityN  Capability = "n"
	CapabilityAC Capability = "ac"
	Capability6  Capability = "6"
	Capability7  Capability = "7"
)

// Program binds a capability code to the certification name the
// product-finder API reports for it.
type Program struct {
	Code Capability
	Name string
}

// Programs is the fixed certification list in legacy-to-current order.
// Tag ordering everywhere follows this slice.
var Programs = []Program{
	{Code: CapabilityN, Name: "Wi-Fi CERTIFIED™ n"},
	{Code: CapabilityAC, Name: "Wi-Fi CERTIFIED™ ac"},
	{Code: Capability6, Name: "Wi-Fi CERTIFIED 6®"},
	{Code: Capability7, Name: "Wi-Fi CERTIFIED 7™"},
}

// Product is one certified product observation keyed by its external ID.
type Product struct {
	ID            string
	Brand         string
	Name          string
	ModelNumber   string
	CertifiedOn   Date
	Category      string
	FrequencyBand string

	tags  []Capability
	flags map[Capability]bool
}

// SetCapabilities replaces both the flag map and the derived tag list, so the
// two can never disagree. Codes outside Programs are ignored.
func (p *Product) SetCapabilities(flags map[Capability]bool) {
	p.flags = make(map[Capability]bool, len(Programs))
	p.tags = make([]Capability, 0, len(Programs))
	for _, prog := range Programs {
		on := flags[prog.Code]
		p.flags[prog.Code] = on
		if on {
			p.tags = append(p.tags, prog.Code)
		}
	}
}

// Tags returns the supported capability codes in program order.
func (p Product) Tags() []Capability {
	out := make([]Capability, len(p.tags))
	copy(out, p.tags)
	return out
}

// Has reports whether the product supports the capability.
func (p Product) Has(c Capability) bool {
	return p.flags[c]
}

// SupportList renders the tags as a comma-separated string, e.g. "n, ac, 6".
func (p Product) SupportList() string {
	parts := make([]string, len(p.tags))
	for i, t := range p.tags {
		parts[i] = string(t)
	}
	return strings.Join(parts, ", ")
}
