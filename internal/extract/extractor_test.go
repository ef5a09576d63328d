package extract

import (
	"encoding/json"
	"fmt"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/JakeFAU/adfiller/internal/clock"
)

func loadFixture(t *testing.T) []byte {
	t.Helper()
	page, err := os.ReadFile("testdata/ad_page.html")
	require.NoError(t, err)
	return page
}

func wrap(state map[string]any, id any) []byte {
	blob, err := json.Marshal(map[string]any{
		"props": map[string]any{
			"pageProps": map[string]any{"id": id, "__APOLLO_STATE__": state},
		},
	})
	if err != nil {
		panic(err)
	}
	return []byte(fmt.Sprintf(`<html><body><script id="__NEXT_DATA__" type="application/json">%s</script></body></html>`, blob))
}

func minimalNode() map[string]any {
	return map[string]any{
		"viewCount":        1,
		"permalink":        "/x.html",
		"phone":            nil,
		"title":            "Busco casa",
		"price":            nil,
		"currency":         nil,
		"name":             nil,
		"status":           "ACTIVE",
		"isAuto":           true,
		"updatedOnToOrder": "2024-03-01T08:00:00+00:00",
		"updatedOnByUser":  "2024-03-01T08:00:00Z",
		"description":      "Busco casa",
		"imagesCount":      0,
	}
}

func TestExtractFullPage(t *testing.T) {
	now := time.Date(2024, 3, 2, 8, 0, 0, 0, time.UTC)
	e := New(clock.NewFixed(now))

	got, err := e.Extract(loadFixture(t))
	require.NoError(t, err)

	assert.Equal(t, int64(41925800), got.ID)
	assert.Equal(t, "Vendo laptop Dell nueva", got.Title)
	require.NotNil(t, got.Price)
	assert.InDelta(t, 450.0, *got.Price, 1e-9)
	require.NotNil(t, got.Currency)
	assert.Equal(t, "USD", *got.Currency)
	require.NotNil(t, got.Phone)
	assert.Equal(t, "54396358", *got.Phone)
	require.NotNil(t, got.Name)
	assert.Equal(t, "Carlos", *got.Name)
	assert.Equal(t, int64(37), got.ViewCount)
	assert.Equal(t, "ACTIVE", got.Status)
	assert.False(t, got.IsAuto)

	assert.Equal(t, "1", got.ProvinceID)
	assert.Equal(t, "La Habana", got.ProvinceName)
	require.NotNil(t, got.MunicipalityName)
	assert.Equal(t, "Plaza", *got.MunicipalityName)
	assert.Equal(t, 31, got.SubcategoryID)
	assert.Equal(t, "Laptop", got.SubcategoryName)
	assert.Equal(t, 2, got.CategoryID)
	assert.Equal(t, "Computadoras", got.CategoryName)
	assert.Equal(t, []string{"laptop", "computadoras"}, got.Tags)

	assert.Equal(t, 2, got.ImagesCount)
	require.Len(t, got.Images, 2)
	assert.Equal(t, "https://pic.example/a1_thumb.jpg", got.Images[0].Thumb)
	assert.Equal(t, "https://pic.example/a2_high.jpg", got.Images[1].High)

	// updatedOnByUser is 15:30 UTC, updatedOnToOrder 08:00 UTC; the older one wins.
	assert.InDelta(t, 24.0, got.AgeHours, 1e-6)
	assert.Equal(t, now, got.ObservedAt)
	assert.Equal(t, time.Date(2024, 3, 1, 15, 30, 0, 123456000, time.UTC), got.UpdatedOnByUser)
}

func TestExtractNullableFields(t *testing.T) {
	page := wrap(map[string]any{"AdType:7": minimalNode()}, 7)

	got, err := New(clock.NewFixed(time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC))).Extract(page)
	require.NoError(t, err)
	assert.Equal(t, int64(7), got.ID)
	assert.Nil(t, got.Price)
	assert.Nil(t, got.Currency)
	assert.Nil(t, got.Phone)
	assert.Nil(t, got.Name)
	assert.Nil(t, got.MunicipalityName)
	assert.Empty(t, got.ProvinceName)
	assert.Empty(t, got.Images)
	assert.Empty(t, got.Tags)
	assert.True(t, got.IsAuto)
	assert.InDelta(t, 1.0, got.AgeHours, 1e-6)
}

func TestExtractSoftFailures(t *testing.T) {
	missingTitle := minimalNode()
	delete(missingTitle, "title")
	nullTitle := minimalNode()
	nullTitle["title"] = nil
	missingPrice := minimalNode()
	delete(missingPrice, "price")
	badTime := minimalNode()
	badTime["updatedOnByUser"] = "yesterday"

	cases := map[string][]byte{
		"no blob":       []byte(`<html><body><p>404</p></body></html>`),
		"bad json":      []byte(`<html><script id="__NEXT_DATA__">{not json</script></html>`),
		"no page id":    wrap(map[string]any{"AdType:7": minimalNode()}, nil),
		"no ad node":    wrap(map[string]any{"AdType:8": minimalNode()}, 7),
		"missing title": wrap(map[string]any{"AdType:7": missingTitle}, 7),
		"null title":    wrap(map[string]any{"AdType:7": nullTitle}, 7),
		"missing price": wrap(map[string]any{"AdType:7": missingPrice}, 7),
		"bad timestamp": wrap(map[string]any{"AdType:7": badTime}, 7),
	}
	e := New(clock.NewFixed(time.Now()))
	for name, page := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := e.Extract(page)
			require.ErrorIs(t, err, ErrNoAd)
		})
	}
}

func TestExtractStringPrice(t *testing.T) {
	node := minimalNode()
	node["price"] = "1200.5"
	got, err := New(clock.New()).Extract(wrap(map[string]any{"AdType:7": node}, "7"))
	require.NoError(t, err)
	require.NotNil(t, got.Price)
	assert.InDelta(t, 1200.5, *got.Price, 1e-9)
}

func TestAgeHoursNegativeWhenAhead(t *testing.T) {
	now := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)
	assert.InDelta(t, -2.0, AgeHours(now, now.Add(2*time.Hour), now.Add(3*time.Hour)), 1e-9)
}
