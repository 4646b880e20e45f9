package rhizome_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	rhizome "github.com/rhizomedb/rhizome"
)

func TestLoadConfigParsesYAML(t *testing.T) {
	cfg, err := rhizome.LoadConfig([]byte("initial_epoch: 7\n"))
	require.NoError(t, err)
	assert.Equal(t, 7, cfg.InitialEpoch)
}

func TestLoadConfigRejectsUnknownField(t *testing.T) {
	_, err := rhizome.LoadConfig([]byte("initial_epoch: 1\nbogus_field: true\n"))
	assert.Error(t, err)
}
