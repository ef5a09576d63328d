package ad

import "time"

// Image references one picture attached to an ad.
type Image struct {
	Thumb string `json:"thumb,omitempty"`
	High  string `json:"high,omitempty"`
}

// Ad is an immutable snapshot of one listing, taken at extraction time.
type Ad struct {
	ID               int64     `json:"id"`
	Title            string    `json:"title"`
	Description      string    `json:"description"`
	Price            *float64  `json:"price,omitempty"`
	Currency         *string   `json:"currency,omitempty"`
	Name             *string   `json:"name,omitempty"`
	Phone            *string   `json:"phone,omitempty"`
	Permalink        string    `json:"permalink,omitempty"`
	Status           string    `json:"status,omitempty"`
	ViewCount        int64     `json:"view_count"`
	ImagesCount      int       `json:"images_count"`
	Images           []Image   `json:"images,omitempty"`
	ProvinceID       string    `json:"province_id,omitempty"`
	ProvinceName     string    `json:"province_name,omitempty"`
	MunicipalityID   *string   `json:"municipality_id,omitempty"`
	MunicipalityName *string   `json:"municipality_name,omitempty"`
	SubcategoryID    int       `json:"subcategory_id"`
	SubcategoryName  string    `json:"subcategory_name,omitempty"`
	CategoryID       int       `json:"category_id"`
	CategoryName     string    `json:"category_name,omitempty"`
	IsAuto           bool      `json:"is_auto"`
	UpdatedOnByUser  time.Time `json:"updated_on_by_user"`
	UpdatedOnToOrder time.Time `json:"updated_on_to_order"`
	AgeHours         float64   `json:"age_hours"`
	Tags             []string  `json:"tags,omitempty"`
	ObservedAt       time.Time `json:"observed_at"`
}

// FirstThumb returns the thumbnail of the first image that has one.
func (a Ad) FirstThumb() (string, bool) {
	for _, img := range a.Images {
		if img.Thumb != "" {
			return img.Thumb, true
		}
	}
	return "", false
}

// Receiver is one subscriber destination and the category it follows.
type Receiver struct {
	ID       string `mapstructure:"id" json:"id"`
	Category string `mapstructure:"category" json:"category"`
}

// Category is one named subscriber category and the subcategory ids it covers.
// The id 0 matches every subcategory.
type Category struct {
	Name string `mapstructure:"name" json:"name"`
	IDs  []int  `mapstructure:"ids" json:"ids"`
}
