package join

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tableforge-labs/tableforge/pkg/table"
	"github.com/tableforge-labs/tableforge/pkg/transform"
)

func buildTable(t *testing.T, cols []string, rows [][]string) *table.Table {
	t.Helper()
	tcols := make([]table.Column, len(cols))
	for i, c := range cols {
		tcols[i] = table.Column{Name: c, Type: table.TypeString}
	}
	tab := table.MustNew(tcols...)
	for _, r := range rows {
		row := make([]table.Value, len(r))
		for i, cell := range r {
			if cell == "" {
				row[i] = table.Null()
			} else {
				row[i] = table.String(cell)
			}
		}
		require.NoError(t, tab.AppendRow(row))
	}
	return tab
}

func resolverFor(tables map[string]*table.Table) ResolveFunc {
	return func(ref string) (*table.Table, error) {
		t, ok := tables[ref]
		if !ok {
			return nil, fmt.Errorf("no table %q", ref)
		}
		return t, nil
	}
}

func leftStep(right, prefix string, keys ...transform.KeyPair) transform.JoinStep {
	return transform.JoinStep{
		Left:        "orders",
		Right:       transform.DatasetRef(right),
		Keys:        keys,
		Type:        transform.JoinLeft,
		RightPrefix: prefix,
	}
}

func TestLeftJoin(t *testing.T) {
	orders := buildTable(t,
		[]string{"id", "customer_id"},
		[][]string{{"1", "c1"}, {"2", "c2"}, {"3", "c9"}})
	customers := buildTable(t,
		[]string{"cid", "name"},
		[][]string{{"c1", "Ada"}, {"c2", "Alan"}})

	out, reports, err := Execute(orders,
		[]transform.JoinStep{leftStep("customers", "cust", transform.KeyPair{Left: "customer_id", Right: "cid"})},
		resolverFor(map[string]*table.Table{"customers": customers}))
	require.NoError(t, err)

	assert.Equal(t, []string{"id", "customer_id", "cust__name"}, out.ColumnNames())
	require.Equal(t, 3, out.NumRows())
	assert.Equal(t, "Ada", out.Value(0, 2).Render())
	assert.Equal(t, "Alan", out.Value(1, 2).Render())
	// Unmatched left rows keep their row with nulls on the right.
	assert.True(t, out.Value(2, 2).IsNull())

	require.Len(t, reports, 1)
	assert.InDelta(t, 2.0/3.0, reports[0].MatchRate, 1e-9)
	assert.Zero(t, reports[0].BlankKeyRate)
	assert.Zero(t, reports[0].DuplicateKeyRate)
}

func TestInnerJoinDropsUnmatched(t *testing.T) {
	orders := buildTable(t, []string{"id", "k"}, [][]string{{"1", "a"}, {"2", "z"}})
	ref := buildTable(t, []string{"k", "v"}, [][]string{{"a", "1"}})

	step := leftStep("ref", "r", transform.KeyPair{Left: "k", Right: "k"})
	step.Type = transform.JoinInner

	out, _, err := Execute(orders, []transform.JoinStep{step},
		resolverFor(map[string]*table.Table{"ref": ref}))
	require.NoError(t, err)
	assert.Equal(t, 1, out.NumRows())
	assert.Equal(t, "1", out.Value(0, 0).Render())
}

func TestDuplicateKeysMultiplyRows(t *testing.T) {
	orders := buildTable(t, []string{"id", "k"}, [][]string{{"1", "a"}})
	ref := buildTable(t, []string{"k", "v"}, [][]string{{"a", "x"}, {"a", "y"}})

	out, reports, err := Execute(orders,
		[]transform.JoinStep{leftStep("ref", "r", transform.KeyPair{Left: "k", Right: "k"})},
		resolverFor(map[string]*table.Table{"ref": ref}))
	require.NoError(t, err)

	assert.Equal(t, 2, out.NumRows())
	assert.Equal(t, "x", out.Value(0, 2).Render())
	assert.Equal(t, "y", out.Value(1, 2).Render())
	assert.InDelta(t, 1.0, reports[0].DuplicateKeyRate, 1e-9)
}

func TestQualityRates(t *testing.T) {
	// 10 left rows: 6 matched, 3 unmatched, 1 blank key.
	leftRows := [][]string{
		{"1", "a"}, {"2", "b"}, {"3", "c"}, {"4", "d"}, {"5", "e"}, {"6", "f"},
		{"7", "q1"}, {"8", "q2"}, {"9", "q3"},
		{"10", ""},
	}
	// 10 right rows: 2 share a duplicated key.
	rightRows := [][]string{
		{"a", "1"}, {"b", "2"}, {"c", "3"}, {"d", "4"}, {"e", "5"}, {"f", "6"},
		{"g", "7"}, {"h", "8"},
		{"dup", "9"}, {"dup", "10"},
	}
	orders := buildTable(t, []string{"id", "k"}, leftRows)
	ref := buildTable(t, []string{"k", "v"}, rightRows)

	_, reports, err := Execute(orders,
		[]transform.JoinStep{leftStep("ref", "r", transform.KeyPair{Left: "k", Right: "k"})},
		resolverFor(map[string]*table.Table{"ref": ref}))
	require.NoError(t, err)

	require.Len(t, reports, 1)
	assert.InDelta(t, 0.6, reports[0].MatchRate, 1e-9)
	assert.InDelta(t, 0.1, reports[0].BlankKeyRate, 1e-9)
	assert.InDelta(t, 0.2, reports[0].DuplicateKeyRate, 1e-9)
}

func TestBlankKeysNeverMatch(t *testing.T) {
	orders := buildTable(t, []string{"id", "k"}, [][]string{{"1", ""}, {"2", "  "}})
	ref := buildTable(t, []string{"k", "v"}, [][]string{{"", "boom"}, {"x", "ok"}})

	out, reports, err := Execute(orders,
		[]transform.JoinStep{leftStep("ref", "r", transform.KeyPair{Left: "k", Right: "k"})},
		resolverFor(map[string]*table.Table{"ref": ref}))
	require.NoError(t, err)

	assert.True(t, out.Value(0, 2).IsNull())
	assert.True(t, out.Value(1, 2).IsNull())
	assert.InDelta(t, 1.0, reports[0].BlankKeyRate, 1e-9)
	assert.Zero(t, reports[0].MatchRate)
}

func TestCompositeKeys(t *testing.T) {
	orders := buildTable(t, []string{"a", "b"}, [][]string{{"x", "yz"}, {"xy", "z"}})
	ref := buildTable(t, []string{"a", "b", "v"}, [][]string{{"x", "yz", "hit"}})

	out, _, err := Execute(orders,
		[]transform.JoinStep{leftStep("ref", "r",
			transform.KeyPair{Left: "a", Right: "a"},
			transform.KeyPair{Left: "b", Right: "b"})},
		resolverFor(map[string]*table.Table{"ref": ref}))
	require.NoError(t, err)

	// "x"+"yz" must not collide with "xy"+"z".
	assert.Equal(t, "hit", out.Value(0, 2).Render())
	assert.True(t, out.Value(1, 2).IsNull())
}

func TestCaseInsensitiveKeys(t *testing.T) {
	orders := buildTable(t, []string{"id", "k"}, [][]string{{"1", "ABC"}})
	ref := buildTable(t, []string{"k", "v"}, [][]string{{"abc", "hit"}})

	step := leftStep("ref", "r", transform.KeyPair{Left: "k", Right: "k"})

	out, _, err := Execute(orders, []transform.JoinStep{step},
		resolverFor(map[string]*table.Table{"ref": ref}))
	require.NoError(t, err)
	assert.True(t, out.Value(0, 2).IsNull(), "exact matching is the default")

	step.CaseInsensitiveKeys = true
	out, _, err = Execute(orders, []transform.JoinStep{step},
		resolverFor(map[string]*table.Table{"ref": ref}))
	require.NoError(t, err)
	assert.Equal(t, "hit", out.Value(0, 2).Render())
}

func TestJoinKeyNotFound(t *testing.T) {
	orders := buildTable(t, []string{"id"}, [][]string{{"1"}})
	ref := buildTable(t, []string{"k"}, [][]string{{"a"}})
	resolve := resolverFor(map[string]*table.Table{"ref": ref})

	_, _, err := Execute(orders,
		[]transform.JoinStep{leftStep("ref", "r", transform.KeyPair{Left: "ghost", Right: "k"})}, resolve)
	var jk *transform.JoinKeyNotFoundError
	require.ErrorAs(t, err, &jk)
	assert.Equal(t, "left", jk.Side)
	assert.Equal(t, "ghost", jk.Column)

	_, _, err = Execute(orders,
		[]transform.JoinStep{leftStep("ref", "r", transform.KeyPair{Left: "id", Right: "ghost"})}, resolve)
	require.ErrorAs(t, err, &jk)
	assert.Equal(t, "right", jk.Side)
}

func TestRightKeyColumnsDropped(t *testing.T) {
	orders := buildTable(t, []string{"id"}, [][]string{{"1"}})
	ref := buildTable(t, []string{"id", "v", "w"}, [][]string{{"1", "a", "b"}})

	out, _, err := Execute(orders,
		[]transform.JoinStep{leftStep("ref", "r", transform.KeyPair{Left: "id", Right: "id"})},
		resolverFor(map[string]*table.Table{"ref": ref}))
	require.NoError(t, err)
	assert.Equal(t, []string{"id", "r__v", "r__w"}, out.ColumnNames())
}

func TestChainedJoins(t *testing.T) {
	orders := buildTable(t, []string{"id", "cid", "pid"}, [][]string{{"1", "c1", "p1"}})
	customers := buildTable(t, []string{"cid", "name"}, [][]string{{"c1", "Ada"}})
	products := buildTable(t, []string{"pid", "title"}, [][]string{{"p1", "Widget"}})

	steps := []transform.JoinStep{
		leftStep("customers", "cust", transform.KeyPair{Left: "cid", Right: "cid"}),
		leftStep("products", "prod", transform.KeyPair{Left: "pid", Right: "pid"}),
	}
	out, reports, err := Execute(orders, steps, resolverFor(map[string]*table.Table{
		"customers": customers,
		"products":  products,
	}))
	require.NoError(t, err)
	require.Len(t, reports, 2)
	assert.Equal(t, []string{"id", "cid", "pid", "cust__name", "prod__title"}, out.ColumnNames())
	assert.Equal(t, "Widget", out.Value(0, 4).Render())
}
