// Package catalog provides the services and masters offered by the shop,
// along with price resolution for the CRM sink.
package catalog

import (
	"strings"
)

// DefaultLeadPrice is used when a submission carries no price and the
// service cannot be resolved in the catalog.
const DefaultLeadPrice = 1500

// Service is a bookable service with its list price in rubles.
type Service struct {
	ID       string `yaml:"id" json:"id"`
	Name     string `yaml:"name" json:"name"`
	Price    int    `yaml:"price" json:"price"`
	Duration int    `yaml:"duration" json:"duration"` // minutes
	Popular  bool   `yaml:"popular,omitempty" json:"popular,omitempty"`
}

// Master is a barber that can be selected in the booking form.
type Master struct {
	ID         string `yaml:"id" json:"id"`
	Name       string `yaml:"name" json:"name"`
	PriceAddon int    `yaml:"priceAddon,omitempty" json:"priceAddon,omitempty"`
}

// Catalog holds the full service/master offering. Immutable after load.
type Catalog struct {
	Services []Service `yaml:"services"`
	Masters  []Master  `yaml:"masters"`
}

// ServiceByID returns the service with the given id.
func (c *Catalog) ServiceByID(id string) (Service, bool) {
	for _, s := range c.Services {
		if s.ID == id {
			return s, true
		}
	}
	return Service{}, false
}

// MasterByID returns the master with the given id.
func (c *Catalog) MasterByID(id string) (Master, bool) {
	for _, m := range c.Masters {
		if m.ID == id {
			return m, true
		}
	}
	return Master{}, false
}

// PriceFor resolves a price for a booking. Resolution order: the stable
// service id, then the display name (submissions from older front-end
// builds send only the name), then DefaultLeadPrice.
func (c *Catalog) PriceFor(serviceRef string) int {
	if s, ok := c.ServiceByID(serviceRef); ok {
		return s.Price
	}
	ref := strings.TrimSpace(serviceRef)
	for _, s := range c.Services {
		if strings.EqualFold(s.Name, ref) {
			return s.Price
		}
	}
	return DefaultLeadPrice
}

// ServiceName resolves a display name for a service reference, accepting
// either an id or an already-displayable name.
func (c *Catalog) ServiceName(serviceRef string) string {
	if s, ok := c.ServiceByID(serviceRef); ok {
		return s.Name
	}
	return serviceRef
}

// MasterName resolves a display name for a master reference.
func (c *Catalog) MasterName(masterRef string) string {
	if m, ok := c.MasterByID(masterRef); ok {
		return m.Name
	}
	return masterRef
}

// Default returns the built-in catalog, used when no catalog file is
// configured. Prices mirror the shop's published price list.
func Default() *Catalog {
	return &Catalog{
		Services: []Service{
			{ID: "haircut-machine", Name: "Стрижка машинкой", Price: 1000, Duration: 30},
			{ID: "haircut-scissors", Name: "Стрижка ножницами", Price: 1500, Duration: 45, Popular: true},
			{ID: "haircut-model", Name: "Модельная стрижка", Price: 1800, Duration: 60, Popular: true},
			{ID: "haircut-kids", Name: "Детская стрижка (до 12 лет)", Price: 800, Duration: 30},
			{ID: "haircut-school", Name: "Стрижка для школьников (12-16 лет)", Price: 1000, Duration: 30},
			{ID: "beard-modeling", Name: "Моделирование бороды", Price: 800, Duration: 30, Popular: true},
			{ID: "razor-shave", Name: "Бритье опасной бритвой", Price: 1200, Duration: 45},
			{ID: "gray-camouflage", Name: "Камуфляж седины", Price: 600, Duration: 30},
			{ID: "complex", Name: "Комплекс (стрижка + борода)", Price: 2000, Duration: 90, Popular: true},
			{ID: "styling", Name: "Укладка", Price: 500, Duration: 15},
			{ID: "scalp-peeling", Name: "Пилинг кожи головы", Price: 1500, Duration: 45},
			{ID: "spa-hair", Name: "SPA уход за волосами", Price: 2000, Duration: 60},
		},
		Masters: []Master{
			{ID: "m1", Name: "Александр"},
			{ID: "m2", Name: "Дмитрий"},
			{ID: "m3", Name: "Руслан", PriceAddon: 200},
		},
	}
}
