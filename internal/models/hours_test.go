package models

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHours_Unmarshal(t *testing.T) {
	tests := []struct {
		name string
		body string
		want *float64
	}{
		{name: "number", body: `{"estimated_hours": 2.5}`, want: ptr(2.5)},
		{name: "numeric string", body: `{"estimated_hours": "2.5"}`, want: ptr(2.5)},
		{name: "padded string", body: `{"estimated_hours": " 4 "}`, want: ptr(4)},
		{name: "empty string", body: `{"estimated_hours": ""}`},
		{name: "null", body: `{"estimated_hours": null}`},
		{name: "missing", body: `{}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var req CreateTaskRequest
			require.NoError(t, json.Unmarshal([]byte(tt.body), &req))
			assert.Equal(t, tt.want, req.EstimatedHours.Ptr())
		})
	}
}

func TestHours_RejectsText(t *testing.T) {
	var req CreateTaskRequest
	err := json.Unmarshal([]byte(`{"estimated_hours": "two"}`), &req)
	assert.Error(t, err)
}

func TestHours_Marshal(t *testing.T) {
	b, err := json.Marshal(HoursOf(1.5))
	require.NoError(t, err)
	assert.JSONEq(t, `1.5`, string(b))

	b, err = json.Marshal(Hours{})
	require.NoError(t, err)
	assert.Equal(t, `null`, string(b))
}

func ptr(v float64) *float64 { return &v }
