package models

// CatalogEntry is a product from the fixed BV price list.
type CatalogEntry struct {
	Name string  `json:"name"`
	BV   float64 `json:"bv"`
}

var catalog = []CatalogEntry{
	{Name: "Cordyceps Plus Capsule", BV: 22.5},
	{Name: "Cardio Power Capsule", BV: 26},
	{Name: "Soy Power Capsule", BV: 29},
	{Name: "VigPower Capsule", BV: 29},
	{Name: "Ginseng RHs Capsule", BV: 39},
	{Name: "Kuding Plus Tea", BV: 14},
	{Name: "Ganoderma Coffee", BV: 16},
	{Name: "Lipki Care Tea", BV: 12},
	{Name: "Protein Powder", BV: 39},
	{Name: "Multivitamin Tablet (Adults)", BV: 26},
	{Name: "Calcium Tablet (Adults)", BV: 29},
	{Name: "Zinc Tablet (Adults)", BV: 19},
	{Name: "Lecithin Softgel", BV: 25},
	{Name: "Deep Sea Fish Oil Softgel", BV: 20},
	{Name: "Meal Cellulose Tablet", BV: 22},
	{Name: "Garlic Oil Capsule", BV: 22},
	{Name: "Eye Care Softgel", BV: 28},
	{Name: "Chitosan Capsule", BV: 22},
	{Name: "Aloe Vera Plus Capsule", BV: 22},
	{Name: "Compound Marrow Powder", BV: 27},
	{Name: "Ginkgo Biloba Capsule", BV: 25},
	{Name: "Pine Pollen Tea", BV: 13},
	{Name: "Intestine Cleansing Tea", BV: 13},
	{Name: "Balsam Pear Tea", BV: 13},
	{Name: "B-Carotene & Lycopene Capsule", BV: 22},
	{Name: "Livergen Capsule", BV: 28},
	{Name: "Royal Jelly Softgel", BV: 20},
	{Name: "Ishine Capsule", BV: 24},
	{Name: "Parashield Capsule", BV: 18},
	{Name: "Magic Detoxin Pad", BV: 22},
	{Name: "Slimming Capsule", BV: 25},
	{Name: "Joint Health Plus Capsule", BV: 25},
	{Name: "Super Co-Q10 Capsule", BV: 30},
	{Name: "Vitamin C Tablet", BV: 12},
	{Name: "Vitamin E Capsule", BV: 24},
	{Name: "Super Nutrition Powder", BV: 45},
	{Name: "Glucoblock Capsule", BV: 19},
	{Name: "ProstaSure Capsule", BV: 35},
	{Name: "Kidney Tonifying Capsule (Men)", BV: 30},
	{Name: "Kidney Tonifying Capsule (Women)", BV: 30},
	{Name: "Blueberry Juice High VC", BV: 21},
	{Name: "Nutriplant Organic Fertilizer (1L)", BV: 30},
	{Name: "Toothpaste", BV: 15},
	{Name: "Fresh Drink Clear", BV: 10},
	{Name: "Olive Soap", BV: 32},
	{Name: "Breast Care Tea", BV: 18},
	{Name: "Uterus Cleansing Pill", BV: 32},
	{Name: "Jinpure Tea", BV: 14},
	{Name: "IMM Longevity Capsule", BV: 47},
	{Name: "Golden Knight Spray", BV: 15},
	{Name: "Silver Eva Spray", BV: 13},
	{Name: "Calcium Powder (Children)", BV: 20},
	{Name: "Calcium Powder (Adult)", BV: 22},
	{Name: "Bone Care Plaster", BV: 20},
	{Name: "Women Care Gel", BV: 18},
}

// Catalog returns a copy of the price list.
func Catalog() []CatalogEntry {
	out := make([]CatalogEntry, len(catalog))
	copy(out, catalog)
	return out
}

// LookupCatalog matches by exact name.
func LookupCatalog(name string) (CatalogEntry, bool) {
	for _, e := range catalog {
		if e.Name == name {
			return e, true
		}
	}
	return CatalogEntry{}, false
}
