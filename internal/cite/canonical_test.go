package cite

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMarshalCanonicalSortsKeys(t *testing.T) {
	b, err := MarshalCanonical(map[string]any{
		"zebra": 1,
		"alpha": 2,
		"mango": 3,
	})
	require.NoError(t, err)
	assert.Equal(t, `{"alpha":2,"mango":3,"zebra":1}`, string(b))
}

func TestMarshalCanonicalNormalizesToNFC(t *testing.T) {
	// "é" as e + combining acute (NFD) must serialize as the composed
	// code point (NFC).
	decomposed := "Café"
	composed := "Café"

	b1, err := MarshalCanonical(decomposed)
	require.NoError(t, err)
	b2, err := MarshalCanonical(composed)
	require.NoError(t, err)

	assert.Equal(t, b2, b1)
}

func TestMarshalCanonicalNoHTMLEscaping(t *testing.T) {
	b, err := MarshalCanonical("a<b>&c")
	require.NoError(t, err)
	assert.Equal(t, `"a<b>&c"`, string(b))
}

func TestMarshalCanonicalForbidsFloatsAndNull(t *testing.T) {
	_, err := MarshalCanonical(1.5)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "floats are forbidden")

	_, err = MarshalCanonical(nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "null is forbidden")

	_, err = MarshalCanonical(map[string]any{"x": 0.1})
	require.Error(t, err)
}

func TestMarshalCanonicalRecordShape(t *testing.T) {
	rec := Record{ID: "c1", Items: []string{"doe2019"}, Properties: Properties{NoteIndex: 1}}

	b, err := MarshalCanonical(rec)
	require.NoError(t, err)
	assert.Equal(t,
		`{"citation_id":"c1","citation_items":["doe2019"],"properties":{"note_index":1}}`,
		string(b))
}

func TestMarshalCanonicalOmitsEmptyRecordID(t *testing.T) {
	rec := NewRecord([]string{"doe2019"}, 1)

	b, err := MarshalCanonical(rec)
	require.NoError(t, err)
	assert.Equal(t, `{"citation_items":["doe2019"],"properties":{"note_index":1}}`, string(b))
}

func TestEncodeRecordsRoundTrip(t *testing.T) {
	records := []Record{
		{ID: "c1", Items: []string{"doe2019"}, Properties: Properties{NoteIndex: 1}},
		{ID: "c2", Items: []string{"roe2020", "doe2019"}, Properties: Properties{NoteIndex: 2}},
	}

	encoded, err := EncodeRecords(records)
	require.NoError(t, err)

	decoded, err := DecodeRecords(encoded)
	require.NoError(t, err)
	require.Len(t, decoded, 2)
	for i := range records {
		assert.True(t, records[i].Equal(decoded[i]), "record %d", i)
	}

	// Re-encoding the decoded sequence is byte-identical.
	again, err := EncodeRecords(decoded)
	require.NoError(t, err)
	assert.Equal(t, encoded, again)
}

func TestEncodeRecordsNil(t *testing.T) {
	encoded, err := EncodeRecords(nil)
	require.NoError(t, err)
	assert.Equal(t, "[]", encoded)

	decoded, err := DecodeRecords("")
	require.NoError(t, err)
	assert.Empty(t, decoded)
}

func TestDecodeRecordsMalformed(t *testing.T) {
	_, err := DecodeRecords("{not json")
	require.Error(t, err)
}

func TestEncodePositionsRoundTrip(t *testing.T) {
	positions := map[string]int{"c2": 1, "c1": 0}

	encoded, err := EncodePositions(positions)
	require.NoError(t, err)
	assert.Equal(t, `{"c1":0,"c2":1}`, encoded)

	decoded, err := DecodePositions(encoded)
	require.NoError(t, err)
	assert.Equal(t, positions, decoded)
}

func TestDecodePositionsEmpty(t *testing.T) {
	decoded, err := DecodePositions("")
	require.NoError(t, err)
	assert.Empty(t, decoded)

	decoded, err = DecodePositions("{}")
	require.NoError(t, err)
	assert.Empty(t, decoded)
}
