// Package extract rebuilds an ad record from the structured-data blob that
// ad pages embed for client-side hydration.
package extract

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"

	"github.com/JakeFAU/adfiller/internal/ad"
)

// ErrNoAd means the page carried no usable ad. Callers treat it exactly like a
// missing page.
var ErrNoAd = errors.New("no ad in page")

const blobSelector = "script#__NEXT_DATA__"

// nextData is the part of the hydration document the extractor reads.
type nextData struct {
	Props struct {
		PageProps struct {
			ID          json.RawMessage            `json:"id"`
			ApolloState map[string]json.RawMessage `json:"__APOLLO_STATE__"`
		} `json:"pageProps"`
	} `json:"props"`
}

// Extractor implements ad.Extractor.
type Extractor struct {
	clock ad.Clock
}

// New returns an Extractor that stamps freshness against clock.
func New(clock ad.Clock) *Extractor {
	return &Extractor{clock: clock}
}

// Extract parses page markup into an Ad. Absent or malformed required data
// yields an error wrapping ErrNoAd; optional sections are skipped when absent.
func (e *Extractor) Extract(page []byte) (ad.Ad, error) {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(page))
	if err != nil {
		return ad.Ad{}, fmt.Errorf("%w: parse html: %v", ErrNoAd, err)
	}
	blob := strings.TrimSpace(doc.Find(blobSelector).First().Text())
	if blob == "" {
		return ad.Ad{}, fmt.Errorf("%w: %s not found", ErrNoAd, blobSelector)
	}

	var data nextData
	if err := json.Unmarshal([]byte(blob), &data); err != nil {
		return ad.Ad{}, fmt.Errorf("%w: decode blob: %v", ErrNoAd, err)
	}
	id, ok := flexInt(data.Props.PageProps.ID)
	if !ok {
		return ad.Ad{}, fmt.Errorf("%w: page id missing", ErrNoAd)
	}
	st := state(data.Props.PageProps.ApolloState)
	node, ok := st.object(fmt.Sprintf("AdType:%d", id))
	if !ok {
		return ad.Ad{}, fmt.Errorf("%w: AdType:%d not in state", ErrNoAd, id)
	}

	out, err := requiredFields(node)
	if err != nil {
		return ad.Ad{}, fmt.Errorf("%w: ad %d: %v", ErrNoAd, id, err)
	}
	out.ID = id

	if province, ok := st.deref(node, "province"); ok {
		out.ProvinceID, _ = flexString(province["id"])
		out.ProvinceName, _ = flexString(province["name"])
	}
	if municipality, ok := st.deref(node, "municipality"); ok {
		if v, ok := flexString(municipality["id"]); ok {
			out.MunicipalityID = &v
		}
		if v, ok := flexString(municipality["name"]); ok {
			out.MunicipalityName = &v
		}
	}
	if sub, ok := st.deref(node, "subcategory"); ok {
		out.SubcategoryID, _ = flexIntAsInt(sub["id"])
		out.SubcategoryName, _ = flexString(sub["title"])
		if parent, ok := st.deref(sub, "parentCategory"); ok {
			out.CategoryID, _ = flexIntAsInt(parent["id"])
			out.CategoryName, _ = flexString(parent["title"])
		}
	}
	if out.ImagesCount > 0 {
		out.Images = st.images(node)
	}

	now := e.clock.Now().UTC()
	out.ObservedAt = now
	out.AgeHours = AgeHours(now, out.UpdatedOnByUser, out.UpdatedOnToOrder)
	out.Tags = Tags(out.SubcategoryName, out.CategoryName)
	return out, nil
}

// requiredFields reads the keys every ad node must carry. Nullable keys must be
// present but may hold null.
func requiredFields(node map[string]json.RawMessage) (ad.Ad, error) {
	var out ad.Ad
	var byUser, toOrder string
	var title, description, permalink, status *string
	var isAuto *bool
	var imagesCount *int
	var viewCount *int64
	fields := []struct {
		key      string
		dst      any
		nullable bool
	}{
		{"viewCount", &viewCount, true},
		{"permalink", &permalink, true},
		{"phone", &out.Phone, true},
		{"title", &title, false},
		{"currency", &out.Currency, true},
		{"name", &out.Name, true},
		{"status", &status, true},
		{"isAuto", &isAuto, false},
		{"updatedOnToOrder", &toOrder, false},
		{"updatedOnByUser", &byUser, false},
		{"description", &description, false},
		{"imagesCount", &imagesCount, false},
	}
	for _, f := range fields {
		raw, ok := node[f.key]
		if !ok {
			return ad.Ad{}, fmt.Errorf("missing %q", f.key)
		}
		if isNull(raw) {
			if !f.nullable {
				return ad.Ad{}, fmt.Errorf("null %q", f.key)
			}
			continue
		}
		if err := json.Unmarshal(raw, f.dst); err != nil {
			return ad.Ad{}, fmt.Errorf("decode %q: %w", f.key, err)
		}
	}
	rawPrice, ok := node["price"]
	if !ok {
		return ad.Ad{}, fmt.Errorf("missing %q", "price")
	}
	if price, ok := flexFloat(rawPrice); ok {
		out.Price = &price
	}

	var err error
	if out.UpdatedOnByUser, err = parseTimestamp(byUser); err != nil {
		return ad.Ad{}, fmt.Errorf("updatedOnByUser: %w", err)
	}
	if out.UpdatedOnToOrder, err = parseTimestamp(toOrder); err != nil {
		return ad.Ad{}, fmt.Errorf("updatedOnToOrder: %w", err)
	}
	out.Title = *title
	out.Description = *description
	out.IsAuto = *isAuto
	out.ImagesCount = *imagesCount
	if viewCount != nil {
		out.ViewCount = *viewCount
	}
	if permalink != nil {
		out.Permalink = *permalink
	}
	if status != nil {
		out.Status = *status
	}
	return out, nil
}

func parseTimestamp(s string) (time.Time, error) {
	t, err := time.Parse(time.RFC3339Nano, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("parse timestamp %q: %w", s, err)
	}
	return t.UTC(), nil
}

// AgeHours is the larger of the two update deltas against now, in hours.
func AgeHours(now, updatedOnByUser, updatedOnToOrder time.Time) float64 {
	byUser := now.Sub(updatedOnByUser).Hours()
	toOrder := now.Sub(updatedOnToOrder).Hours()
	if byUser > toOrder {
		return byUser
	}
	return toOrder
}
