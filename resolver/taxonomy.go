package resolver

import (
	"strings"

	"github.com/forPelevin/gomoji"
	"golang.org/x/exp/slices"
)

// Category is one entry of the static spending taxonomy.
type Category struct {
	Name           string
	ID             string // optional link to a user-defined category
	Keywords       []string
	BaseConfidence float64
}

// Taxonomy maps category labels to keyword sets and base confidences. Loaded
// once at startup and read-only afterwards.
type Taxonomy struct {
	categories []Category
	names      []string
}

func NewTaxonomy(categories []Category) *Taxonomy {
	t := &Taxonomy{categories: categories}
	for _, c := range categories {
		t.names = append(t.names, c.Name)
	}
	slices.Sort(t.names)
	return t
}

// Names returns the category labels in sorted order, for prompt building.
func (t *Taxonomy) Names() []string {
	return t.names
}

// Find matches a label against the taxonomy, ignoring case, emojis and
// surrounding whitespace.
func (t *Taxonomy) Find(label string) (Category, bool) {
	want := strings.TrimSpace(gomoji.RemoveEmojis(label))
	for _, c := range t.categories {
		if strings.EqualFold(strings.TrimSpace(gomoji.RemoveEmojis(c.Name)), want) {
			return c, true
		}
	}
	return Category{}, false
}

// Score runs the bag-of-words heuristic over lowercased text: every keyword
// occurrence counts, and each category with at least one match scores
// base + 0.05 per extra match, capped at 0.95. Returns false when no
// category matched at all.
func (t *Taxonomy) Score(text string) (Category, float64, bool) {
	var (
		best      Category
		bestScore float64
		matched   bool
	)
	for _, c := range t.categories {
		var count int
		for _, kw := range c.Keywords {
			count += strings.Count(text, kw)
		}
		if count == 0 {
			continue
		}
		score := c.BaseConfidence + 0.05*float64(count-1)
		if score > 0.95 {
			score = 0.95
		}
		if !matched || score > bestScore {
			best = c
			bestScore = score
			matched = true
		}
	}
	return best, bestScore, matched
}

// DefaultTaxonomy is the built-in category table used when the config file
// does not supply one.
func DefaultTaxonomy() *Taxonomy {
	return NewTaxonomy([]Category{
		{Name: "Food & Dining", BaseConfidence: 0.7, Keywords: []string{
			"swiggy", "zomato", "restaurant", "cafe", "coffee", "pizza", "burger",
			"dominos", "mcdonald", "starbucks", "eatery", "biryani", "kitchen",
			"bakery", "food delivery", "dining",
		}},
		{Name: "Groceries", BaseConfidence: 0.7, Keywords: []string{
			"bigbasket", "blinkit", "zepto", "instamart", "grocery", "groceries",
			"supermarket", "dmart", "kirana", "hypermarket", "fresh produce",
		}},
		{Name: "Transport", BaseConfidence: 0.65, Keywords: []string{
			"uber", "ola cabs", "rapido", "metro", "taxi", "cab", "fuel", "petrol",
			"diesel", "parking", "toll", "irctc", "railway", "bus ticket",
		}},
		{Name: "Shopping", BaseConfidence: 0.65, Keywords: []string{
			"amazon", "flipkart", "myntra", "ajio", "nykaa", "retail", "mall",
			"e-commerce", "online store", "marketplace", "apparel", "clothing",
		}},
		{Name: "Entertainment", BaseConfidence: 0.65, Keywords: []string{
			"netflix", "hotstar", "spotify", "prime video", "bookmyshow", "cinema",
			"pvr", "movie", "streaming", "gaming", "concert",
		}},
		{Name: "Utilities", BaseConfidence: 0.7, Keywords: []string{
			"electricity", "broadband", "airtel", "jio", "vodafone", "recharge",
			"postpaid", "prepaid", "water bill", "gas bill", "internet provider",
		}},
		{Name: "Health", BaseConfidence: 0.7, Keywords: []string{
			"pharmacy", "apollo", "hospital", "clinic", "medplus", "diagnostic",
			"1mg", "practo", "medicine", "healthcare", "dental",
		}},
		{Name: "Travel", BaseConfidence: 0.65, Keywords: []string{
			"makemytrip", "goibibo", "indigo", "airline", "flight", "hotel", "oyo",
			"airbnb", "booking.com", "resort", "travel agency",
		}},
		{Name: "Education", BaseConfidence: 0.65, Keywords: []string{
			"udemy", "coursera", "byjus", "school", "college", "tuition", "course",
			"university", "bookstore", "training",
		}},
		{Name: "Personal Care", BaseConfidence: 0.65, Keywords: []string{
			"salon", "spa", "gym", "cult.fit", "fitness", "barber", "grooming",
			"cosmetics", "wellness",
		}},
	})
}
