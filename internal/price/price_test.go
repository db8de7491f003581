package price

import (
	"encoding/json"
	"testing"
)

func TestPriceUnmarshalJSON(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		want    Price
		wantErr bool
	}{
		{"zero", `"0"`, 0, false},
		{"one", `"1"`, 1_000_000, false},
		{"half", `"0.5"`, 500_000, false},
		{"typical price", `"0.123456"`, 123_456, false},
		{"needs padding 1 digit", `"0.1"`, 100_000, false},
		{"needs padding 3 digits", `"0.123"`, 123_000, false},
		{"needs truncation", `"0.1234567"`, 123_456, false},
		{"raw number no quotes", `0.25`, 250_000, false},
		{"whole with frac", `"1.5"`, 1_500_000, false},
		{"small frac", `"0.000001"`, 1, false},
		{"max precision", `"0.999999"`, 999_999, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var got Price
			err := got.UnmarshalJSON([]byte(tt.input))

			if (err != nil) != tt.wantErr {
				t.Errorf("error = %v, wantErr = %v", err, tt.wantErr)
				return
			}
			if got != tt.want {
				t.Errorf("got %d, want %d", got, tt.want)
			}
		})
	}
}

func TestPriceRoundTrip(t *testing.T) {
	type quote struct {
		Yes Price `json:"yes"`
	}

	var q quote
	if err := json.Unmarshal([]byte(`{"yes": "0.75"}`), &q); err != nil {
		t.Fatalf("unmarshal failed: %v", err)
	}
	if q.Yes != 750_000 {
		t.Errorf("got %d, want 750000", q.Yes)
	}

	out, err := json.Marshal(q)
	if err != nil {
		t.Fatalf("marshal failed: %v", err)
	}
	if string(out) != `{"yes":0.75}` {
		t.Errorf("got %s", out)
	}
}

func TestPriceFloat64(t *testing.T) {
	if got := Price(500_000).Float64(); got != 0.5 {
		t.Errorf("got %f, want 0.5", got)
	}
}
