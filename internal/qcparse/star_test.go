package qcparse

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sampleSTARLog = `                                 Started job on |	Aug 20 10:12:03
                             Started mapping on |	Aug 20 10:12:10
                                    Finished on |	Aug 20 10:14:55

                          Number of input reads |	1523811
                   Uniquely mapped reads number |	1330654
                        Uniquely mapped reads % |	87.33%
                             UNIQUE READS:
`

func TestParseSTARLog(t *testing.T) {
	path := writeFile(t, t.TempDir(), "Log.final.out", sampleSTARLog)

	metrics, err := ParseSTARLog(path)
	require.NoError(t, err)

	assert.Equal(t, "1523811", metrics["Number of input reads"])
	assert.Equal(t, "87.33%", metrics["Uniquely mapped reads %"])
	// Section headers have no pipe and are skipped.
	assert.NotContains(t, metrics, "UNIQUE READS:")
	assert.Len(t, metrics, 6)
}

func TestParseSTARLog_Missing(t *testing.T) {
	metrics, err := ParseSTARLog(filepath.Join(t.TempDir(), "Log.final.out"))
	require.NoError(t, err)
	assert.Empty(t, metrics)
}
