package models

import "testing"

func TestCorpusCredits(t *testing.T) {
	cases := []struct {
		name   string
		value  any
		want   int
		wantOK bool
	}{
		{"int64", int64(7), 7, true},
		{"int", 3, 3, true},
		{"whole float", float64(12), 12, true},
		{"fractional float", 2.5, 0, false},
		{"string", "10", 0, false},
		{"missing", nil, 0, false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			c := &Corpus{KVP: map[string]any{}}
			if tc.value != nil {
				c.KVP["credits"] = tc.value
			}
			got, ok := c.Credits("credits")
			if got != tc.want || ok != tc.wantOK {
				t.Errorf("Credits() = %d, %v, want %d, %v", got, ok, tc.want, tc.wantOK)
			}
		})
	}
}

func TestCorpusSetCredits(t *testing.T) {
	var c Corpus
	c.SetCredits("credits", 4)
	if n, ok := c.Credits("credits"); !ok || n != 4 {
		t.Errorf("Credits() = %d, %v", n, ok)
	}
	if _, isInt64 := c.KVP["credits"].(int64); !isInt64 {
		t.Errorf("expected int64 storage, got %T", c.KVP["credits"])
	}
}
