package chat

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"ivar-client/models"
)

func TestDeriveGrouping(t *testing.T) {
	tests := []struct {
		name    string
		senders []string
		want    []bool
	}{
		{"empty", nil, []bool{}},
		{"single", []string{"x"}, []bool{false}},
		{"run then other", []string{"x", "x", "y"}, []bool{false, true, false}},
		{"alternating", []string{"x", "y", "x", "y"}, []bool{false, false, false, false}},
		{"long run", []string{"y", "y", "y"}, []bool{false, true, true}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			seq := make([]models.Message, len(tt.senders))
			for i, s := range tt.senders {
				seq[i] = models.Message{Sender: s}
			}
			assert.Equal(t, tt.want, DeriveGrouping(seq, 0))
		})
	}
}

func TestDeriveGroupingWithWindow(t *testing.T) {
	seq := []models.Message{
		{Sender: "x", Timestamp: "2024-05-01T10:10:00.000Z"},
		{Sender: "x", Timestamp: "2024-05-01T10:09:00.000Z"},
		{Sender: "x", Timestamp: "2024-05-01T09:00:00.000Z"},
		{Sender: "x"},
	}
	assert.Equal(t, []bool{false, true, false, false}, DeriveGrouping(seq, 5*time.Minute))
	assert.Equal(t, []bool{false, true, true, true}, DeriveGrouping(seq, 0))
}

func TestFormatTimestamp(t *testing.T) {
	ts := "2024-05-01T14:05:00.000Z"
	want := time.Date(2024, 5, 1, 14, 5, 0, 0, time.UTC).Local().Format("3:04 PM")
	assert.Equal(t, want, FormatTimestamp(ts))
	assert.Equal(t, "", FormatTimestamp(""))
	assert.Equal(t, "", FormatTimestamp("yesterday"))
}
