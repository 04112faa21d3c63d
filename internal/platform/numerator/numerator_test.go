package numerator

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestSequenceNumbering(t *testing.T) {
	seq := NewSequence("INV", 4)

	require.Equal(t, "INV-0001", seq.Peek())
	require.Equal(t, "INV-0001", seq.Next())
	require.Equal(t, "INV-0002", seq.Next())
	require.Equal(t, "INV-0003", seq.Peek())

	seq.Last = 9999
	require.Equal(t, "INV-10000", seq.Next())
}

func TestSequenceZeroWidthDefaults(t *testing.T) {
	seq := NewSequence("JV", 0)
	require.Equal(t, "JV-0001", seq.Next())
}

func TestSequenceSurvivesSerialization(t *testing.T) {
	seq := NewSequence("TRV", 4)
	seq.Next()
	seq.Next()

	raw, err := json.Marshal(seq)
	require.NoError(t, err)

	var restored Sequence
	require.NoError(t, json.Unmarshal(raw, &restored))
	require.Equal(t, "TRV-0003", restored.Next())
}
