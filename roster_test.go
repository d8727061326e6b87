package roster

import (
	"reflect"
	"testing"

	"github.com/chatframe/roster/list"
)

func TestParseRanges(t *testing.T) {
	testCases := []struct {
		input   string
		want    list.Ranges
		wantErr bool
	}{
		{input: "", want: list.Ranges{{0, 100}}},
		{input: "0-100", want: list.Ranges{{0, 100}}},
		{input: "0-100,200-250", want: list.Ranges{{0, 100}, {200, 250}}},
		{input: "5-5", want: list.Ranges{{5, 5}}},
		{input: "100", wantErr: true},
		{input: "a-b", wantErr: true},
		{input: "10-5", wantErr: true},
		{input: "0-10,banana", wantErr: true},
	}
	for _, tc := range testCases {
		got, err := parseRanges(tc.input)
		if tc.wantErr {
			if err == nil {
				t.Errorf("parseRanges(%q): expected an error, got %v", tc.input, got)
			}
			continue
		}
		if err != nil {
			t.Errorf("parseRanges(%q): %s", tc.input, err)
			continue
		}
		if !reflect.DeepEqual(got, tc.want) {
			t.Errorf("parseRanges(%q) = %v, want %v", tc.input, got, tc.want)
		}
	}
}
