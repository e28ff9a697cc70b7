package record

import (
	"bytes"
	"testing"

	"github.com/MeKo-Tech/boostcascade/internal/patch"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWriteReadRoundTrip(t *testing.T) {
	p1 := patch.New(2, 2, 1)
	p1.SetValue(0, 0, 0, 1)
	p1.SetValue(1, 1, 0, 4)
	p1.Label = 1

	p2 := patch.New(3, 2, 1)
	p2.SetValue(2, 1, 0, -7)
	p2.Label = -1

	var buf bytes.Buffer
	require.NoError(t, WriteAll(&buf, []*patch.Patch{p1, p2}))

	got, err := ReadAll(&buf)
	require.NoError(t, err)
	require.Len(t, got, 2)

	assert.Equal(t, p1.Width, got[0].Width)
	assert.Equal(t, p1.Label, got[0].Label)
	assert.InDelta(t, float32(4), got[0].Value(1, 1, 0), 1e-6)

	assert.Equal(t, p2.Label, got[1].Label)
	assert.InDelta(t, float32(-7), got[1].Value(2, 1, 0), 1e-6)
}

func TestReader_BadMagic(t *testing.T) {
	buf := bytes.NewBufferString("not a patch stream at all")
	_, err := NewReader(buf).Read()
	assert.ErrorIs(t, err, ErrBadMagic)
}
