package snapshot

import (
	"reflect"
	"testing"

	"github.com/liyuxiao2/polytracker/internal/storage"
)

func watchRows(ids ...string) []storage.MarketWatch {
	rows := make([]storage.MarketWatch, len(ids))
	for i, id := range ids {
		rows[i] = storage.MarketWatch{ConditionID: id}
	}
	return rows
}

func TestMergeTargets(t *testing.T) {
	tests := []struct {
		name   string
		watch  []storage.MarketWatch
		pinned []string
		topN   int
		want   []string
	}{
		{
			name:  "top n limits discovery",
			watch: watchRows("0xa", "0xb", "0xc", "0xd"),
			topN:  2,
			want:  []string{"0xa", "0xb"},
		},
		{
			name:   "pins appended after discovery",
			watch:  watchRows("0xa", "0xb"),
			pinned: []string{"0xpin"},
			topN:   10,
			want:   []string{"0xa", "0xb", "0xpin"},
		},
		{
			name:   "pin already discovered is not duplicated",
			watch:  watchRows("0xa", "0xb"),
			pinned: []string{"0xb"},
			topN:   10,
			want:   []string{"0xa", "0xb"},
		},
		{
			name:   "pins alone when watch list is empty",
			pinned: []string{"0xpin1", "0xpin2"},
			topN:   10,
			want:   []string{"0xpin1", "0xpin2"},
		},
		{
			name:   "blank pins dropped",
			pinned: []string{"", "0xpin"},
			topN:   10,
			want:   []string{"0xpin"},
		},
		{
			name: "nothing tracked",
			topN: 10,
			want: nil,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := mergeTargets(tt.watch, tt.pinned, tt.topN)
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("got %v, want %v", got, tt.want)
			}
		})
	}
}
