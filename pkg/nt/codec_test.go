package nt

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValues_MultipleFramesInOneMessage(t *testing.T) {
	data, err := encodeValues(
		valueFrame{ID: 3, Time: 1_500_000, Type: typeDouble, Value: 0.25},
		valueFrame{ID: 4, Time: 1_500_001, Type: typeBoolean, Value: true},
		valueFrame{ID: 9, Time: 1_500_002, Type: typeInt, Value: int64(-7)},
		valueFrame{ID: 10, Time: 1_500_003, Type: typeString, Value: "pipeline"},
	)
	require.NoError(t, err)

	frames, err := decodeValues(data)
	require.NoError(t, err)
	require.Len(t, frames, 4)

	assert.Equal(t, int64(3), frames[0].ID)
	assert.Equal(t, 0.25, frames[0].Value)
	assert.Equal(t, true, frames[1].Value)
	assert.Equal(t, int64(-7), frames[2].Value)
	assert.Equal(t, "pipeline", frames[3].Value)
	assert.Equal(t, int64(1_500_003), frames[3].Time)
}

func TestDecodeValues_Malformed(t *testing.T) {
	good, err := encodeValues(valueFrame{ID: 1, Time: 1, Type: typeDouble, Value: 1.0})
	require.NoError(t, err)

	frames, err := decodeValues(good[:len(good)-3])
	assert.Error(t, err, "truncated frame")
	assert.Empty(t, frames)

	short, err := encodeValues()
	require.NoError(t, err)
	frames, err = decodeValues(short)
	assert.NoError(t, err)
	assert.Empty(t, frames)
}

func TestControl_RoundTrip(t *testing.T) {
	data, err := encodeControl("subscribe", subscribeParams{
		Topics:  []string{"/limelight/"},
		SubUID:  1,
		Options: subscribeOptions{Prefix: true},
	})
	require.NoError(t, err)
	assert.JSONEq(t, `[{"method":"subscribe","params":{"topics":["/limelight/"],"subuid":1,"options":{"prefix":true}}}]`, string(data))

	msgs, err := decodeControl(data)
	require.NoError(t, err)
	require.Len(t, msgs, 1)
	assert.Equal(t, "subscribe", msgs[0].Method)

	_, err = decodeControl([]byte(`{"method":"announce"}`))
	assert.Error(t, err, "text frames are arrays")
}

func TestToFloat(t *testing.T) {
	tests := []struct {
		in     interface{}
		want   float64
		wantOK bool
	}{
		{1.5, 1.5, true},
		{float32(0.5), 0.5, true},
		{int64(-3), -3, true},
		{uint64(8), 8, true},
		{"1.0", 0, false},
		{nil, 0, false},
	}
	for _, tt := range tests {
		got, ok := toFloat(tt.in)
		if got != tt.want || ok != tt.wantOK {
			t.Errorf("toFloat(%v) = %v, %v, want %v, %v", tt.in, got, ok, tt.want, tt.wantOK)
		}
	}
}

func TestMemoryTable(t *testing.T) {
	var table Table = NewMemoryTable()
	assert.Equal(t, 4.0, table.GetDouble("tx", 4))
	require.NoError(t, table.SetNumber("tx", -2.5))
	assert.Equal(t, -2.5, table.GetDouble("tx", 4))
}

func TestTopicPrefix(t *testing.T) {
	for in, want := range map[string]string{
		"limelight":    "/limelight/",
		"/limelight/":  "/limelight/",
		"limelight-fr": "/limelight-fr/",
	} {
		assert.Equal(t, want, topicPrefix(in), in)
	}
}

func TestMemoryTables_SameNameSameTable(t *testing.T) {
	tables := NewMemoryTables()
	require.NoError(t, tables.Table("limelight").SetNumber("tv", 1))
	assert.Equal(t, 1.0, tables.Table("limelight").GetDouble("tv", 0))
	assert.Equal(t, 0.0, tables.Table("limelight-front").GetDouble("tv", 0))
}

func TestClientName(t *testing.T) {
	a, b := ClientName("tagfinder"), ClientName("tagfinder")
	assert.NotEqual(t, a, b)
	assert.Regexp(t, `^tagfinder-[0-9a-f]{8}$`, a)
}
