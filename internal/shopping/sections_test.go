package shopping

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGroupSections(t *testing.T) {
	items := []Item{
		{ID: "1", Name: "milk", Category: CategoryDairy},
		{ID: "2", Name: "Zucchini", Category: CategoryProduce, Checked: true},
		{ID: "3", Name: "apple", Category: CategoryProduce},
		{ID: "4", Name: "bread", Category: CategoryBakery, Checked: true},
		{ID: "5", Name: "mystery", Category: Category("Hardware")},
		{ID: "6", Name: "Banana", Category: CategoryProduce},
	}

	sections := GroupSections(items)
	require.Len(t, sections, 4)

	var order []Category
	for _, s := range sections {
		order = append(order, s.Category)
	}
	assert.Equal(t, []Category{CategoryProduce, CategoryDairy, CategoryBakery, CategoryOther}, order)

	produce := sections[0]
	var names []string
	for _, it := range produce.Items {
		names = append(names, it.Name)
	}
	assert.Equal(t, []string{"apple", "Banana", "Zucchini"}, names)
	assert.Equal(t, 1, produce.Checked)
	assert.Equal(t, 2, produce.Unchecked)

	assert.Equal(t, "mystery", sections[3].Items[0].Name)
}

func TestGroupSectionsEmpty(t *testing.T) {
	assert.Empty(t, GroupSections(nil))
}

func TestCountItems(t *testing.T) {
	c := CountItems([]Item{{Checked: true}, {}, {}, {Checked: true}, {Checked: true}})
	assert.Equal(t, Counts{Total: 5, Checked: 3, Unchecked: 2}, c)
}
