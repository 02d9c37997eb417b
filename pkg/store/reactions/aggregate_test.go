package reactions

import (
	"reflect"
	"testing"

	"alumnichat/pkg/models"
)

func TestAggregateSet(t *testing.T) {
	tests := []struct {
		name   string
		set    map[string]string
		viewer string
		want   []models.ReactionGroup
	}{
		{
			name:   "empty",
			set:    map[string]string{},
			viewer: "alice",
			want:   []models.ReactionGroup{},
		},
		{
			name:   "single reactor is viewer",
			set:    map[string]string{"alice": "👍"},
			viewer: "alice",
			want:   []models.ReactionGroup{{Emoji: "👍", Reactors: []string{"alice"}, Count: 1, Mine: true}},
		},
		{
			name:   "grouped and sorted",
			set:    map[string]string{"carol": "🔥", "bob": "🔥", "alice": "👍"},
			viewer: "dave",
			want: []models.ReactionGroup{
				{Emoji: "👍", Reactors: []string{"alice"}, Count: 1},
				{Emoji: "🔥", Reactors: []string{"bob", "carol"}, Count: 2},
			},
		},
		{
			name:   "mine marks only the viewer's group",
			set:    map[string]string{"alice": "😂", "bob": "😂", "carol": "👍"},
			viewer: "bob",
			want: []models.ReactionGroup{
				{Emoji: "👍", Reactors: []string{"carol"}, Count: 1},
				{Emoji: "😂", Reactors: []string{"alice", "bob"}, Count: 2, Mine: true},
			},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := AggregateSet(tt.set, tt.viewer)
			if !reflect.DeepEqual(got, tt.want) {
				t.Fatalf("AggregateSet() = %+v, want %+v", got, tt.want)
			}
		})
	}
}
