package main

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const scan = `VERSION 0.7
FIELDS x y z
SIZE 4 4 4
TYPE F F F
COUNT 1 1 1
WIDTH 3
HEIGHT 1
VIEWPOINT 0 0 0 1 0 0 0
POINTS 3
DATA ascii
0.5 0.5 0
0.6 0.2 0
2.5 0.5 0
`

func TestCal(t *testing.T) {
	path := filepath.Join(t.TempDir(), "scan.pcd")
	require.NoError(t, os.WriteFile(path, []byte(scan), 0o644))

	var in bytes.Buffer
	enc := json.NewEncoder(&in)
	require.NoError(t, enc.Encode(PCD{PCDFile: path, Labels: [][]float64{
		{0.5, 0.5, 0, 1, 1, 1, 0},
		{10, 10, 0, 1, 1, 1, 0},
	}}))
	require.NoError(t, enc.Encode(PCD{PCDFile: path, Labels: [][]float64{{1, 2, 3}}}))
	require.NoError(t, enc.Encode(PCD{PCDFile: filepath.Join(t.TempDir(), "missing.pcd")}))

	var out bytes.Buffer
	require.NoError(t, Cal(&in, &out, 1))

	dec := json.NewDecoder(&out)
	var res Result
	require.NoError(t, dec.Decode(&res))
	assert.Equal(t, Result{Area: 2, LabelCount: []int{2, 0}}, res)

	res = Result{}
	require.NoError(t, dec.Decode(&res))
	assert.Contains(t, res.Error, "invalid label 0")

	res = Result{}
	require.NoError(t, dec.Decode(&res))
	assert.NotEmpty(t, res.Error)
}

func TestCalMalformedRequest(t *testing.T) {
	var out bytes.Buffer
	assert.Error(t, Cal(strings.NewReader("{not json"), &out, 1))
	assert.Contains(t, out.String(), "Error")
}
