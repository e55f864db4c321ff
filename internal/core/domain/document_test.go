package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestChunkIDDeterministic(t *testing.T) {
	a := ChunkID("/data/clients/acme/sow.pdf", 0)
	b := ChunkID("/data/clients/acme/sow.pdf", 0)
	assert.Equal(t, a, b)
}

func TestChunkIDVariesByIndexAndPath(t *testing.T) {
	base := ChunkID("/data/sow.pdf", 0)
	assert.NotEqual(t, base, ChunkID("/data/sow.pdf", 1))
	assert.NotEqual(t, base, ChunkID("/data/other.pdf", 0))
}

func TestFingerprint(t *testing.T) {
	a := Fingerprint([]byte("hello"))
	b := Fingerprint([]byte("hello"))
	c := Fingerprint([]byte("hello!"))

	assert.Equal(t, a, b)
	assert.NotEqual(t, a, c)
	assert.Len(t, a, 64)
}

func TestMetadataClone(t *testing.T) {
	m := Metadata{
		Category: "SOW",
		Client:   "Acme",
		Fields:   map[string]string{"pages": "12"},
	}

	clone := m.Clone()
	clone.Fields["pages"] = "99"

	assert.Equal(t, "12", m.Fields["pages"])
	assert.Equal(t, "SOW", clone.Category)
}

func TestMetadataCloneNilFields(t *testing.T) {
	m := Metadata{Client: "Globex"}
	clone := m.Clone()
	assert.Nil(t, clone.Fields)
	assert.Equal(t, "Globex", clone.Client)
}
