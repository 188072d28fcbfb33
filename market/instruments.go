// market/instruments.go
package market

import (
	"errors"
	"fmt"
	"sort"
	"strings"
)

var ErrUnknownInstrument = errors.New("unknown instrument")

// Instrument is immutable reference data for one simulated market.
type Instrument struct {
	ID         string  `json:"id" yaml:"id"`
	Name       string  `json:"name" yaml:"name"`
	BasePrice  float64 `json:"base_price" yaml:"base_price"`
	Volatility float64 `json:"volatility" yaml:"volatility"`
}

func (i Instrument) Validate() error {
	if strings.TrimSpace(i.ID) == "" {
		return fmt.Errorf("instrument id is required")
	}
	if i.BasePrice <= 0 {
		return fmt.Errorf("instrument %s: base_price must be positive", i.ID)
	}
	if i.Volatility <= 0 {
		return fmt.Errorf("instrument %s: volatility must be positive", i.ID)
	}
	return nil
}

// Catalog is the set of instruments a session may trade, keyed by ID.
type Catalog struct {
	byID  map[string]Instrument
	order []string
}

func NewCatalog(instruments ...Instrument) (*Catalog, error) {
	c := &Catalog{byID: make(map[string]Instrument, len(instruments))}
	for _, inst := range instruments {
		if err := inst.Validate(); err != nil {
			return nil, err
		}
		if _, dup := c.byID[inst.ID]; dup {
			return nil, fmt.Errorf("duplicate instrument %q", inst.ID)
		}
		if inst.Name == "" {
			inst.Name = inst.ID
		}
		c.byID[inst.ID] = inst
		c.order = append(c.order, inst.ID)
	}
	if len(c.order) == 0 {
		return nil, fmt.Errorf("catalog must contain at least one instrument")
	}
	return c, nil
}

// Lookup returns the instrument for id or ErrUnknownInstrument.
func (c *Catalog) Lookup(id string) (Instrument, error) {
	inst, ok := c.byID[id]
	if !ok {
		return Instrument{}, fmt.Errorf("%w: %q", ErrUnknownInstrument, id)
	}
	return inst, nil
}

// List returns instruments in catalog order.
func (c *Catalog) List() []Instrument {
	out := make([]Instrument, 0, len(c.order))
	for _, id := range c.order {
		out = append(out, c.byID[id])
	}
	return out
}

func (c *Catalog) IDs() []string {
	ids := append([]string(nil), c.order...)
	sort.Strings(ids)
	return ids
}

// First is the default instrument for a new session.
func (c *Catalog) First() Instrument {
	return c.byID[c.order[0]]
}

// DefaultInstruments is the built-in demo catalog.
var DefaultInstruments = []Instrument{
	{ID: "BTC_USD", Name: "Bitcoin / US Dollar", BasePrice: 64_250.00, Volatility: 0.004},
	{ID: "ETH_USD", Name: "Ethereum / US Dollar", BasePrice: 3_180.00, Volatility: 0.005},
	{ID: "XAU_USD", Name: "Gold / US Dollar", BasePrice: 2_345.50, Volatility: 0.0015},
	{ID: "GBP_JPY", Name: "British Pound / Japanese Yen", BasePrice: 198.40, Volatility: 0.0012},
	{ID: "US500", Name: "S&P 500 Index", BasePrice: 5_210.00, Volatility: 0.001},
}

func DefaultCatalog() *Catalog {
	c, err := NewCatalog(DefaultInstruments...)
	if err != nil {
		panic(err)
	}
	return c
}
