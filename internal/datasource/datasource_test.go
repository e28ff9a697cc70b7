package datasource

import (
	"math/rand/v2"
	"os"
	"path/filepath"
	"testing"

	"github.com/MeKo-Tech/boostcascade/internal/chain"
	"github.com/MeKo-Tech/boostcascade/internal/classifier"
	"github.com/MeKo-Tech/boostcascade/internal/feature"
	"github.com/MeKo-Tech/boostcascade/internal/filter"
	"github.com/MeKo-Tech/boostcascade/internal/patch"
	"github.com/MeKo-Tech/boostcascade/internal/record"
	"github.com/MeKo-Tech/boostcascade/internal/stump"
	"github.com/stretchr/testify/require"
)

func writePatchFile(t *testing.T, dir, name string, count int, label int8) string {
	t.Helper()
	path := filepath.Join(dir, name)
	f, err := os.Create(path)
	require.NoError(t, err)
	defer f.Close()

	patches := make([]*patch.Patch, count)
	for i := range patches {
		p := patch.New(2, 2, 1)
		p.SetValue(0, 0, 0, float32(i))
		p.Label = label
		patches[i] = p
	}
	require.NoError(t, record.WriteAll(f, patches))
	return path
}

func TestDataSource_ReadRotatesAcrossFiles(t *testing.T) {
	dir := t.TempDir()
	posA := writePatchFile(t, dir, "pos_a.bin", 2, 1)
	posB := writePatchFile(t, dir, "pos_b.bin", 2, 1)
	neg := writePatchFile(t, dir, "neg.bin", 4, -1)

	ds, err := New([]string{posA, posB}, []string{neg}, rand.New(rand.NewPCG(1, 1)), 5)
	require.NoError(t, err)

	for range 10 {
		p, err := ds.ReadPositivePatch()
		require.NoError(t, err)
		require.EqualValues(t, 1, p.Label)
	}
}

func passthroughClassifier() *classifier.Classifier {
	c := &classifier.Classifier{Type: classifier.Boosted}
	c.Chains = []chain.Chain{{}}
	c.Filters = []filter.Filter{{}}
	c.Chains[0].Append(stump.DecisionStump{
		Feature: feature.Feature{B0: feature.Box{X0: 0, Y0: 0, X1: 1, Y1: 1}, W0: 0, W1: 0, C: 0},
		Sign:    0,
	}, 1.0, 0)
	return c
}

func TestComputeAverageWeight(t *testing.T) {
	dir := t.TempDir()
	pos := writePatchFile(t, dir, "pos.bin", 20, 1)
	neg := writePatchFile(t, dir, "neg.bin", 20, -1)

	ds, err := New([]string{pos}, []string{neg}, rand.New(rand.NewPCG(2, 2)), 5)
	require.NoError(t, err)

	avg, err := ds.ComputeAverageWeight(passthroughClassifier(), 0.5, 10)
	require.NoError(t, err)
	require.InDelta(t, 1.0, avg, 1e-6) // activation is always 0, so exp(-y*0)=1
}

func TestGetPatchesSampled_RespectsMaxCount(t *testing.T) {
	dir := t.TempDir()
	pos := writePatchFile(t, dir, "pos.bin", 50, 1)
	neg := writePatchFile(t, dir, "neg.bin", 50, -1)

	ds, err := New([]string{pos}, []string{neg}, rand.New(rand.NewPCG(3, 3)), 5)
	require.NoError(t, err)

	out, err := ds.GetPatchesSampled(passthroughClassifier(), 0.5, 5, 1.0)
	require.NoError(t, err)
	require.Len(t, out, 5)
}
