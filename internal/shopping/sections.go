package shopping

import (
	"sort"
	"strings"
)

// Section is one category block of the list as displayed.
type Section struct {
	Category  Category `json:"category"`
	Items     []Item   `json:"items"`
	Checked   int      `json:"checked"`
	Unchecked int      `json:"unchecked"`
}

// Counts are checked/unchecked totals over a set of items.
type Counts struct {
	Total     int `json:"total"`
	Checked   int `json:"checked"`
	Unchecked int `json:"unchecked"`
}

// GroupSections buckets items by category in CategoryOrder and sorts each
// bucket by name, ignoring case. Empty categories are omitted. Items with an
// unknown category are shown under Other.
func GroupSections(items []Item) []Section {
	buckets := make(map[Category][]Item, len(CategoryOrder))
	for _, it := range items {
		cat := it.Category
		if !knownCategory(cat) {
			cat = CategoryOther
		}
		buckets[cat] = append(buckets[cat], it)
	}

	var sections []Section
	for _, cat := range CategoryOrder {
		bucket := buckets[cat]
		if len(bucket) == 0 {
			continue
		}
		sort.SliceStable(bucket, func(i, j int) bool {
			a, b := strings.ToLower(bucket[i].Name), strings.ToLower(bucket[j].Name)
			if a != b {
				return a < b
			}
			return bucket[i].ID < bucket[j].ID
		})
		c := CountItems(bucket)
		sections = append(sections, Section{
			Category:  cat,
			Items:     bucket,
			Checked:   c.Checked,
			Unchecked: c.Unchecked,
		})
	}
	return sections
}

// CountItems totals checked and unchecked items.
func CountItems(items []Item) Counts {
	c := Counts{Total: len(items)}
	for _, it := range items {
		if it.Checked {
			c.Checked++
		} else {
			c.Unchecked++
		}
	}
	return c
}

func knownCategory(c Category) bool {
	for _, known := range CategoryOrder {
		if c == known {
			return true
		}
	}
	return false
}
