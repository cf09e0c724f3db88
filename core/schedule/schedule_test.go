package schedule

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trezcool/classrecord/core"
	"github.com/trezcool/classrecord/storage/inmem"
)

func TestSplitDays(t *testing.T) {
	tests := []struct {
		code string
		want []string
	}{
		{code: "M/W/F", want: []string{"Monday", "Wednesday", "Friday"}},
		{code: "t/th", want: []string{"Tuesday", "Thursday"}},
		{code: "SAT / SUN", want: []string{"Saturday", "Sunday"}},
		{code: "M//Holiday", want: []string{"Monday", "Holiday"}},
		{code: "", want: nil},
	}
	for _, tt := range tests {
		t.Run(tt.code, func(t *testing.T) {
			assert.Equal(t, tt.want, SplitDays(tt.code))
		})
	}
}

func TestService_Create(t *testing.T) {
	svc := NewService(inmem.Open(), 0)
	ctx := context.Background()

	e, err := svc.Create(ctx, NewEntry{ClassCode: " CS101 ", Day: "m / w / f", StartTime: "08:00", EndTime: "09:30"})
	require.NoError(t, err)
	assert.NotEmpty(t, e.ID)
	assert.Equal(t, "M/W/F", e.Day)
	assert.Equal(t, "CS101", e.ClassCode)

	tests := []struct {
		name      string
		entry     NewEntry
		wantField string
	}{
		{name: "no class", entry: NewEntry{Day: "M", StartTime: "08:00", EndTime: "09:00"}, wantField: "class_code"},
		{name: "bad day", entry: NewEntry{ClassCode: "X", Day: "MON", StartTime: "08:00", EndTime: "09:00"}, wantField: "day"},
		{name: "bad start", entry: NewEntry{ClassCode: "X", Day: "M", StartTime: "8am", EndTime: "09:00"}, wantField: "start_time"},
		{name: "bad end", entry: NewEntry{ClassCode: "X", Day: "M", StartTime: "08:00", EndTime: "25:00"}, wantField: "end_time"},
		{name: "end before start", entry: NewEntry{ClassCode: "X", Day: "M", StartTime: "10:00", EndTime: "09:00"}, wantField: "end_time"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.Create(ctx, tt.entry)
			require.Error(t, err)
			vErr, ok := err.(*core.ValidationError)
			require.True(t, ok, "got %v", err)
			assert.Equal(t, tt.wantField, vErr.Fields[0].Field)
		})
	}
}

func TestService_Week(t *testing.T) {
	store := inmem.Open()
	svc := NewService(store, 0)
	ctx := context.Background()

	for _, ne := range []NewEntry{
		{ClassCode: "CS102", Day: "T/TH", StartTime: "13:00", EndTime: "14:30"},
		{ClassCode: "CS101", Day: "M/W/F", StartTime: "10:00", EndTime: "11:00"},
		{ClassCode: "MA101", Day: "M", StartTime: "08:00", EndTime: "09:00"},
	} {
		_, err := svc.Create(ctx, ne)
		require.NoError(t, err)
	}
	require.NoError(t, store.Set(ctx, Collection, "legacy", core.Data{
		"classCode": "PE1", "day": "Holiday", "startTime": "07:00", "endTime": "08:00",
	}))

	week, err := svc.Week(ctx)
	require.NoError(t, err)

	var names []string
	for _, d := range week {
		names = append(names, d.Name)
	}
	assert.Equal(t, []string{"Monday", "Tuesday", "Wednesday", "Thursday", "Friday", "Holiday"}, names)

	monday := week[0]
	require.Len(t, monday.Entries, 2)
	assert.Equal(t, "MA101", monday.Entries[0].ClassCode)
	assert.Equal(t, "CS101", monday.Entries[1].ClassCode)
	assert.Equal(t, "PE1", week[5].Entries[0].ClassCode)
}
