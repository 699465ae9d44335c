package training

import (
	"bytes"
	"math"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestReadCSV(t *testing.T) {
	in := "WB4, CM11,WB6A\n25,1,3\n31,,NA\n19,2\n"

	ds, err := ReadCSV(strings.NewReader(in))
	require.NoError(t, err)

	assert.Equal(t, []string{"WB4", "CM11", "WB6A"}, ds.Columns())
	assert.Equal(t, 3, ds.Len())
	assert.Equal(t, 25.0, ds.Value(0, "WB4"))
	assert.True(t, math.IsNaN(ds.Value(1, "CM11")))
	assert.True(t, math.IsNaN(ds.Value(1, "WB6A")))
	assert.True(t, math.IsNaN(ds.Value(2, "WB6A")))
	assert.True(t, math.IsNaN(ds.Value(0, "MA1")))
	assert.False(t, ds.Has("MA1"))
}

func TestReadCSVErrors(t *testing.T) {
	_, err := ReadCSV(strings.NewReader(""))
	assert.Error(t, err)

	_, err = ReadCSV(strings.NewReader("WB4,WB4\n1,2\n"))
	assert.Error(t, err)
}

func TestWriteCSV(t *testing.T) {
	ds := NewDataset("WB4", "CareGapScore")
	require.NoError(t, ds.AddRow(map[string]float64{"WB4": 22, "CareGapScore": 1}))
	require.NoError(t, ds.AddRow(map[string]float64{"WB4": 30.5}))
	assert.Error(t, ds.AddRow(map[string]float64{"MA1": 1}))

	var buf bytes.Buffer
	require.NoError(t, ds.WriteCSV(&buf))
	assert.Equal(t, "WB4,CareGapScore\n22,1\n30.5,\n", buf.String())
}
