package srp

import (
	"math/big"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHashByName(t *testing.T) {
	h, err := HashByName("")
	require.NoError(t, err)
	assert.Equal(t, SHA256, h)

	h, err = HashByName("sha512")
	require.NoError(t, err)
	assert.Equal(t, SHA512, h)
	assert.Equal(t, 64, h.Size())

	_, err = HashByName("md5")
	assert.Error(t, err)
}

func TestComputeU_UsesPaddedOperands(t *testing.T) {
	g := Group2048

	// Small values hash over the full group width, so u must match the
	// digest of two ByteLength-wide operands, not of the minimal bytes.
	u := computeU(SHA256, g, big.NewInt(1), big.NewInt(2))
	want := new(big.Int).SetBytes(digest(SHA256, g.Pad(big.NewInt(1)), g.Pad(big.NewInt(2))))
	assert.Zero(t, u.Cmp(want))
	assert.Positive(t, u.Sign())

	// Order matters.
	swapped := computeU(SHA256, g, big.NewInt(2), big.NewInt(1))
	assert.NotZero(t, u.Cmp(swapped))
}

func TestXORBytes(t *testing.T) {
	a := []byte{0x0f, 0xf0, 0xaa}
	b := []byte{0xff, 0xf0, 0x55}
	assert.Equal(t, []byte{0xf0, 0x00, 0xff}, xorBytes(a, b))
}

func TestConstantTimeEqual(t *testing.T) {
	assert.True(t, constantTimeEqual([]byte("abc"), []byte("abc")))
	assert.False(t, constantTimeEqual([]byte("abc"), []byte("abd")))
	assert.False(t, constantTimeEqual([]byte("abc"), []byte("abcd")))
	assert.True(t, constantTimeEqual(nil, nil))
}

func TestHMACExpand(t *testing.T) {
	key := []byte("0123456789abcdef0123456789abcdef")

	// Lengths below, at and above one digest block.
	for _, n := range []int{16, 32, 33, 64, 256} {
		out := hmacExpand(key, "salt", "ghost", n)
		assert.Len(t, out, n)
	}

	// Deterministic, label-separated and user-separated.
	assert.Equal(t, hmacExpand(key, "salt", "ghost", 32), hmacExpand(key, "salt", "ghost", 32))
	assert.NotEqual(t, hmacExpand(key, "salt", "ghost", 32), hmacExpand(key, "verifier", "ghost", 32))
	assert.NotEqual(t, hmacExpand(key, "salt", "ghost", 32), hmacExpand(key, "salt", "phantom", 32))

	// A longer output extends the shorter one.
	assert.Equal(t, hmacExpand(key, "salt", "ghost", 64)[:32], hmacExpand(key, "salt", "ghost", 32))
}

func TestSimulateRecord(t *testing.T) {
	cfg := &Config{SimulationKey: []byte("0123456789abcdef0123456789abcdef")}

	rec, err := simulateRecord(cfg, "ghost")
	require.NoError(t, err)
	assert.Equal(t, "ghost", rec.Username)
	assert.Len(t, rec.Salt, DefaultSaltLength)
	assert.Negative(t, rec.Verifier.Cmp(cfg.group().N))

	// Stable per username, distinct across usernames.
	rec2, err := simulateRecord(cfg, "ghost")
	require.NoError(t, err)
	assert.Equal(t, rec.Salt, rec2.Salt)
	assert.Zero(t, rec.Verifier.Cmp(rec2.Verifier))

	other, err := simulateRecord(cfg, "phantom")
	require.NoError(t, err)
	assert.NotEqual(t, rec.Salt, other.Salt)
}

func TestEphemeralPairRedrawsOnZero(t *testing.T) {
	// A reader that yields one all-zero draw and then real randomness
	// exercises the redraw path without exhausting it.
	r := &sequenceReader{
		chunks: [][]byte{
			make([]byte, ephemeralBytes),
			{0x42, 0x17, 0x99, 0x01, 0xfe, 0x5a, 0x21, 0x08,
				0x42, 0x17, 0x99, 0x01, 0xfe, 0x5a, 0x21, 0x08,
				0x42, 0x17, 0x99, 0x01, 0xfe, 0x5a, 0x21, 0x08,
				0x42, 0x17, 0x99, 0x01, 0xfe, 0x5a, 0x21, 0x08},
		},
	}

	priv, pub, err := ephemeralPair(r, Group2048)
	require.NoError(t, err)
	assert.Positive(t, priv.Sign())
	assert.Positive(t, pub.Sign())
}

type sequenceReader struct {
	chunks [][]byte
	i      int
}

func (r *sequenceReader) Read(p []byte) (int, error) {
	if r.i >= len(r.chunks) {
		return 0, assert.AnError
	}
	n := copy(p, r.chunks[r.i])
	r.i++
	return n, nil
}
