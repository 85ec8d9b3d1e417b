package transform

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sampleYAML = `name: orders_enriched
datasets:
  - orders
  - customers
joins:
  - left: orders
    right: customers
    keys:
      - left: customer_id
        right: id
    type: left
    right_prefix: cust
filter:
  op: and
  children:
    - column: status
      operator: equals
      value: shipped
page_size: 50
`

func TestLoad(t *testing.T) {
	cfg, err := Load(strings.NewReader(sampleYAML))
	require.NoError(t, err)

	assert.Equal(t, "orders_enriched", cfg.Name)
	assert.Equal(t, DatasetRef("orders"), cfg.Primary())
	require.Len(t, cfg.Joins, 1)
	assert.Equal(t, JoinLeft, cfg.Joins[0].Type)
	assert.Equal(t, "cust", cfg.Joins[0].RightPrefix)
	require.NotNil(t, cfg.Filter)
	assert.Equal(t, GroupAnd, cfg.Filter.Op)
	assert.Equal(t, 50, cfg.PageSize)
	assert.NoError(t, cfg.Validate())
}

func TestLoadRejectsUnknownFields(t *testing.T) {
	_, err := Load(strings.NewReader("datasets: [a]\nbogus_key: 1\n"))
	require.Error(t, err)
}

func TestSaveRoundTrip(t *testing.T) {
	cfg, err := Load(strings.NewReader(sampleYAML))
	require.NoError(t, err)

	var buf bytes.Buffer
	require.NoError(t, cfg.Save(&buf))

	again, err := Load(bytes.NewReader(buf.Bytes()))
	require.NoError(t, err)
	assert.Equal(t, cfg, again)
}

func TestSaveDeterministic(t *testing.T) {
	cfg, err := Load(strings.NewReader(sampleYAML))
	require.NoError(t, err)

	var a, b bytes.Buffer
	require.NoError(t, cfg.Save(&a))
	require.NoError(t, cfg.Save(&b))
	assert.Equal(t, a.Bytes(), b.Bytes())
}

func TestFingerprint(t *testing.T) {
	cfg1, err := Load(strings.NewReader(sampleYAML))
	require.NoError(t, err)
	cfg2, err := Load(strings.NewReader(sampleYAML))
	require.NoError(t, err)

	fp1 := cfg1.Fingerprint()
	require.Len(t, fp1, 64)
	assert.Equal(t, fp1, cfg2.Fingerprint())

	cfg2.PageSize = 51
	assert.NotEqual(t, fp1, cfg2.Fingerprint())
}
