package render

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNormalizePhone(t *testing.T) {
	t.Parallel()
	cases := map[string]string{
		"5439635":      "+5355439635",
		"54396358":     "+5354396358",
		"352969232":    "+5352969232",
		"5356597798":   "+5356597798",
		"17077609573":  "+17077609573",
		"5439 6358":    "+5354396358",
		"052969232":    "052969232",
		"+17077609573": "+17077609573",
		"123":          "123",
	}
	for in, want := range cases {
		assert.Equal(t, want, NormalizePhone(in), in)
	}
}

func TestPhoneNumbers(t *testing.T) {
	t.Parallel()
	cases := []struct {
		in   string
		want []string
	}{
		{"5439635", []string{"+5355439635"}},
		{"54396358", []string{"+5354396358"}},
		{"56597798-50100403", []string{"+5356597798", "+5350100403"}},
		{"56597798 / 50100403 / 78321234", []string{"+5356597798", "+5350100403", "+5378321234"}},
		{"54 39 63 58", []string{"+5354396358"}},
		{"+53 54396358", []string{"+5354396358"}},
		{"tel: 7832-1234", []string{"+5378321234"}},
		{"56597798-123", []string{"+56597798123"}},
		{"56597798-12345", []string{"+5659779812345"}},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, PhoneNumbers(tc.in), tc.in)
	}
}
