package model

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseDateRoundTrip(t *testing.T) {
	d, err := ParseDate("01-06-2025")
	require.NoError(t, err)
	assert.Equal(t, 2025, d.Year())
	assert.Equal(t, time.June, d.Month())
	assert.Equal(t, 1, d.Day())
	assert.Equal(t, "01-06-2025", d.String())

	_, err = ParseDate("2025-06-01")
	assert.Error(t, err)
	_, err = ParseDate("32-01-2025")
	assert.Error(t, err)
}

func TestDateJSON(t *testing.T) {
	b, err := json.Marshal(struct {
		D Date `json:"d"`
		Z Date `json:"z"`
	}{D: NewDate(1999, time.December, 31)})
	require.NoError(t, err)
	assert.JSONEq(t, `{"d":"31-12-1999","z":null}`, string(b))

	var out struct {
		D Date `json:"d"`
	}
	require.NoError(t, json.Unmarshal([]byte(`{"d":"15-03-2001"}`), &out))
	assert.Equal(t, NewDate(2001, time.March, 15), out.D)

	assert.Error(t, json.Unmarshal([]byte(`{"d":"2001/03/15"}`), &out))
}

func TestDateScanValue(t *testing.T) {
	d := NewDate(2025, time.June, 1)
	v, err := d.Value()
	require.NoError(t, err)
	assert.Equal(t, "2025-06-01", v)

	var zero Date
	v, err = zero.Value()
	require.NoError(t, err)
	assert.Nil(t, v)

	for _, src := range []interface{}{
		"2025-06-01",
		[]byte("2025-06-01"),
		"2025-06-01T00:00:00Z",
		time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC),
	} {
		var got Date
		require.NoError(t, got.Scan(src))
		assert.Equal(t, d, got)
	}

	var got Date
	require.NoError(t, got.Scan(nil))
	assert.True(t, got.IsZero())
	assert.Error(t, got.Scan(42))
}

func TestEventParticipants(t *testing.T) {
	e := &Event{}
	assert.True(t, e.AddParticipant("a"))
	assert.False(t, e.AddParticipant("a"))
	assert.True(t, e.AddParticipant("b"))
	assert.Equal(t, []string{"a", "b"}, e.Participants)

	assert.True(t, e.RemoveParticipant("a"))
	assert.False(t, e.RemoveParticipant("a"))
	assert.Equal(t, []string{"b"}, e.Participants)
}

func TestAthleteHistory(t *testing.T) {
	a := &Athlete{}
	assert.True(t, a.AddParticipation("e1"))
	assert.False(t, a.AddParticipation("e1"))

	a.SetResult("e1", 3)
	require.Len(t, a.ParticipationHistory, 1)
	require.NotNil(t, a.ParticipationHistory[0].Result)
	assert.Equal(t, 3, *a.ParticipationHistory[0].Result)

	a.SetResult("e2", 1)
	require.Len(t, a.ParticipationHistory, 2)
	assert.Equal(t, "e2", a.ParticipationHistory[1].EventID)

	a.RemoveParticipation("e1")
	require.Len(t, a.ParticipationHistory, 1)
	assert.Equal(t, "e2", a.ParticipationHistory[0].EventID)
}
