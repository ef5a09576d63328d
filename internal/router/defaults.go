package router

import "github.com/JakeFAU/adfiller/internal/ad"

// DefaultCategories is the production category map.
func DefaultCategories() []ad.Category {
	return []ad.Category{
		{Name: "tecnologia", IDs: []int{
			31, 32, 33, 34, 35, 39, 43, 2, 3, 4, 5, 6, 7, 8, 9, 11, 12, 13, 14, 15, 16, 18, 19, 20,
			71, 76, 81, 213, 214, 216, 218,
		}},
		{Name: "transporte", IDs: []int{121, 122, 123, 124, 125, 204, 215}},
		{Name: "casas", IDs: []int{101, 102, 103, 104, 105, 73, 75, 79, 36}},
		{Name: "servicios", IDs: []int{71, 72, 73, 74, 75, 76, 77, 78, 79, 80, 81, 82, 83, 220}},
		{Name: "negocios", IDs: []int{161, 162, 83, 42}},
		{Name: "viviendo", IDs: []int{72, 74, 77, 78, 79, 80, 82, 40, 41, 37, 38, 44, 211, 217, 219, 220, 221}},
		{Name: "todos", IDs: []int{Wildcard}},
	}
}
