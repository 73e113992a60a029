package production

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func mustRecord(t *testing.T, d Draft) *Record {
	t.Helper()
	rec, err := Normalize(d)
	require.NoError(t, err)
	return rec
}

func titles(records []*Record) []string {
	out := make([]string, 0, len(records))
	for _, r := range records {
		out = append(out, r.Title+"@"+r.Location+"/"+r.VenueName)
	}
	return out
}

func TestDedupKey(t *testing.T) {
	tests := []struct {
		name  string
		draft Draft
		want  string
	}{
		{
			name:  "title and location lowercased",
			draft: Draft{Title: "Sweeney Todd", Location: "London"},
			want:  "sweeney todd|london",
		},
		{
			name:  "venue used when location unknown",
			draft: Draft{Title: "Sweeney Todd", VenueName: "Bridge Theatre"},
			want:  "sweeney todd|bridge theatre",
		},
		{
			name:  "sentinels when nothing known",
			draft: Draft{Title: "Sweeney Todd"},
			want:  "sweeney todd|unknown venue",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, DedupKey(mustRecord(t, tt.draft)))
		})
	}
}

func TestDeduplicate(t *testing.T) {
	tests := []struct {
		name   string
		drafts []Draft
		want   []string
	}{
		{
			name: "same title and venue, different case",
			drafts: []Draft{
				{Title: "Into the Woods", VenueName: "Old Vic"},
				{Title: "INTO THE WOODS", VenueName: "old vic"},
			},
			want: []string{"Into the Woods@Unknown Location/Old Vic"},
		},
		{
			name: "first occurrence wins and order is preserved",
			drafts: []Draft{
				{Title: "Company", Location: "London", VenueName: "Gielgud"},
				{Title: "Follies", Location: "Leeds"},
				{Title: "company", Location: "LONDON", VenueName: "Other"},
				{Title: "Assassins", Location: "Bath"},
				{Title: "Follies", Location: "Leeds", VenueName: "Playhouse"},
			},
			want: []string{
				"Company@London/Gielgud",
				"Follies@Leeds/Unknown Venue",
				"Assassins@Bath/Unknown Venue",
			},
		},
		{
			name: "same title different locations kept",
			drafts: []Draft{
				{Title: "Gypsy", Location: "London"},
				{Title: "Gypsy", Location: "Manchester"},
			},
			want: []string{"Gypsy@London/Unknown Venue", "Gypsy@Manchester/Unknown Venue"},
		},
		{
			name:   "empty input",
			drafts: nil,
			want:   []string{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			records := make([]*Record, 0, len(tt.drafts))
			for _, d := range tt.drafts {
				records = append(records, mustRecord(t, d))
			}

			once := Deduplicate(records)
			assert.Equal(t, tt.want, titles(once))

			twice := Deduplicate(once)
			assert.Equal(t, titles(once), titles(twice), "deduplicating twice must be a no-op")
		})
	}
}

func TestDeduplicate_OneRecordPerKey(t *testing.T) {
	drafts := []Draft{
		{Title: "Passion", Location: "York"},
		{Title: "passion", Location: "york"},
		{Title: "Road Show", Location: "York"},
		{Title: "PASSION", Location: "YORK"},
		{Title: "Road Show", Location: "york"},
	}
	records := make([]*Record, 0, len(drafts))
	for _, d := range drafts {
		records = append(records, mustRecord(t, d))
	}

	unique := Deduplicate(records)

	keys := make(map[string]int)
	for _, r := range unique {
		keys[DedupKey(r)]++
	}
	assert.Len(t, unique, 2)
	for key, count := range keys {
		assert.Equal(t, 1, count, "key %s retained more than once", key)
	}
	assert.Same(t, records[0], unique[0])
	assert.Same(t, records[2], unique[1])
}
