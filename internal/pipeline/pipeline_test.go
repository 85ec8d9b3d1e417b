package pipeline

import (
	"context"
	"encoding/json"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tableforge-labs/tableforge/internal/dataset"
	"github.com/tableforge-labs/tableforge/pkg/table"
	"github.com/tableforge-labs/tableforge/pkg/transform"
)

// memResolver serves fixed tables by name.
type memResolver struct {
	tables map[string]*table.Table
}

func (m *memResolver) Resolve(_ context.Context, name string) (*table.Table, error) {
	t, ok := m.tables[name]
	if !ok {
		return nil, &dataset.NotFoundError{Name: name}
	}
	return t, nil
}

func (m *memResolver) Names(context.Context) ([]string, error) {
	names := make([]string, 0, len(m.tables))
	for n := range m.tables {
		names = append(names, n)
	}
	return names, nil
}

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

func testRunner(t *testing.T) *Runner {
	t.Helper()
	orders := buildTable(t,
		[]string{"id", "customer_id", "amount", "status"},
		[][]string{
			{"1", "c1", "50", "shipped"},
			{"2", "c2", "15", "pending"},
			{"3", "c1", "120", "shipped"},
			{"4", "c3", "70", "shipped"},
			{"5", "", "5", "pending"},
		})
	customers := buildTable(t,
		[]string{"cid", "name"},
		[][]string{{"c1", "Ada"}, {"c2", "Alan"}})

	return &Runner{Resolver: &memResolver{tables: map[string]*table.Table{
		"orders":    orders,
		"customers": customers,
	}}}
}

func testConfig() *transform.Config {
	return &transform.Config{
		Name:     "shipped_orders",
		Datasets: []transform.DatasetRef{"orders", "customers"},
		Joins: []transform.JoinStep{{
			Left:        "orders",
			Right:       "customers",
			Keys:        []transform.KeyPair{{Left: "customer_id", Right: "cid"}},
			Type:        transform.JoinLeft,
			RightPrefix: "cust",
		}},
		Filter: &transform.FilterNode{Column: "status", Operator: transform.OpEquals, Value: "shipped"},
		Computed: []transform.ComputedColumn{{
			OutputName: "tier",
			Function:   transform.FuncBucket,
			Args: map[string]any{
				"column":     "amount",
				"boundaries": []any{100},
				"labels":     []any{"small", "large"},
			},
		}},
		Columns: []transform.OutputColumn{
			{Name: "id"},
			{Name: "cust__name", Label: "Customer"},
			{Name: "amount"},
			{Name: "tier"},
		},
		Sort:     &transform.SortSpec{Column: "amount", Direction: "desc"},
		PageSize: 10,
	}
}

func TestRunEndToEnd(t *testing.T) {
	r := testRunner(t)
	res, err := r.Run(context.Background(), testConfig(), Page{})
	require.NoError(t, err)

	assert.Equal(t, 3, res.Total)
	assert.Equal(t, 0, res.Offset)
	assert.Equal(t, 10, res.Limit)
	require.Len(t, res.Rows, 3)

	// Sorted by amount desc: 120, 70, 50.
	assert.Equal(t, "3", res.Rows[0]["id"])
	assert.Equal(t, "4", res.Rows[1]["id"])
	assert.Equal(t, "1", res.Rows[2]["id"])

	assert.Equal(t, "Ada", res.Rows[0]["cust__name"])
	assert.Nil(t, res.Rows[1]["cust__name"])
	assert.Equal(t, "large", res.Rows[0]["tier"])
	assert.Equal(t, "small", res.Rows[1]["tier"])

	// Only the selected columns survive, in declared order.
	require.Len(t, res.Meta.Columns, 4)
	assert.Equal(t, "id", res.Meta.Columns[0].Name)
	assert.Equal(t, "Customer", res.Meta.Columns[1].Label)

	require.Len(t, res.Meta.JoinQuality, 1)
	assert.InDelta(t, 0.6, res.Meta.JoinQuality[0].MatchRate, 1e-9)
	assert.InDelta(t, 0.2, res.Meta.JoinQuality[0].BlankKeyRate, 1e-9)
	assert.Len(t, res.Meta.ConfigFingerprint, 64)
}

func TestRunDeterministic(t *testing.T) {
	r := testRunner(t)
	cfg := testConfig()

	first, err := r.Run(context.Background(), cfg, Page{})
	require.NoError(t, err)
	a, err := json.Marshal(first)
	require.NoError(t, err)

	for i := 0; i < 3; i++ {
		res, err := r.Run(context.Background(), cfg, Page{})
		require.NoError(t, err)
		b, err := json.Marshal(res)
		require.NoError(t, err)
		assert.Equal(t, a, b)
	}
}

func TestPagination(t *testing.T) {
	rows := make([][]string, 125)
	for i := range rows {
		rows[i] = []string{fmt.Sprintf("%03d", i)}
	}
	r := &Runner{
		Resolver: &memResolver{tables: map[string]*table.Table{
			"big": buildTable(t, []string{"id"}, rows),
		}},
		MaxLimit: 50,
	}
	cfg := &transform.Config{Datasets: []transform.DatasetRef{"big"}}

	tests := []struct {
		name       string
		page       Page
		wantRows   int
		wantOffset int
		wantLimit  int
		wantFirst  string
	}{
		{"default limit is the cap", Page{}, 50, 0, 50, "000"},
		{"second page", Page{Offset: 50, Limit: 50}, 50, 50, 50, "050"},
		{"short last page", Page{Offset: 120, Limit: 50}, 5, 120, 50, "120"},
		{"offset beyond total clamps", Page{Offset: 500}, 0, 125, 50, ""},
		{"limit above cap clamps", Page{Limit: 9999}, 50, 0, 50, "000"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res, err := r.Run(context.Background(), cfg, tt.page)
			require.NoError(t, err)
			assert.Equal(t, 125, res.Total)
			assert.Equal(t, tt.wantOffset, res.Offset)
			assert.Equal(t, tt.wantLimit, res.Limit)
			assert.Len(t, res.Rows, tt.wantRows)
			if tt.wantFirst != "" {
				assert.Equal(t, tt.wantFirst, res.Rows[0]["id"])
			}
		})
	}
}

func TestNegativeOffsetRejected(t *testing.T) {
	r := testRunner(t)
	_, err := r.Run(context.Background(), testConfig(), Page{Offset: -1})
	var ve *transform.ValidationError
	require.ErrorAs(t, err, &ve)
}

func TestSortStability(t *testing.T) {
	rows := [][]string{
		{"1", "same"}, {"2", "same"}, {"3", "same"}, {"4", "same"},
	}
	r := &Runner{Resolver: &memResolver{tables: map[string]*table.Table{
		"d": buildTable(t, []string{"id", "v"}, rows),
	}}}
	cfg := &transform.Config{
		Datasets: []transform.DatasetRef{"d"},
		Sort:     &transform.SortSpec{Column: "v", Direction: "asc"},
	}

	res, err := r.Run(context.Background(), cfg, Page{})
	require.NoError(t, err)
	for i, want := range []string{"1", "2", "3", "4"} {
		assert.Equal(t, want, res.Rows[i]["id"])
	}
}

func TestSortBlanksLast(t *testing.T) {
	rows := [][]string{{"1", ""}, {"2", "b"}, {"3", "a"}}
	r := &Runner{Resolver: &memResolver{tables: map[string]*table.Table{
		"d": buildTable(t, []string{"id", "v"}, rows),
	}}}
	cfg := &transform.Config{
		Datasets: []transform.DatasetRef{"d"},
		Sort:     &transform.SortSpec{Column: "v", Direction: "asc"},
	}

	res, err := r.Run(context.Background(), cfg, Page{})
	require.NoError(t, err)
	assert.Equal(t, "3", res.Rows[0]["id"])
	assert.Equal(t, "2", res.Rows[1]["id"])
	assert.Equal(t, "1", res.Rows[2]["id"])
}

func TestUnknownDataset(t *testing.T) {
	r := testRunner(t)
	cfg := &transform.Config{Datasets: []transform.DatasetRef{"ghost"}}
	_, err := r.Run(context.Background(), cfg, Page{})
	var nf *dataset.NotFoundError
	require.ErrorAs(t, err, &nf)
	assert.Equal(t, KindNotFound, Classify(err))
}

func TestUnknownFilterColumnRejected(t *testing.T) {
	r := testRunner(t)
	cfg := testConfig()
	cfg.Filter = &transform.FilterNode{Column: "ghost", Operator: transform.OpIsNull}
	_, err := r.Run(context.Background(), cfg, Page{})
	require.Error(t, err)
	assert.Equal(t, KindInvalid, Classify(err))
}

func TestEnvelope(t *testing.T) {
	r := testRunner(t)
	res, err := r.Run(context.Background(), testConfig(), Page{})
	require.NoError(t, err)

	env := Success(res)
	assert.Equal(t, "ok", env.Status)
	require.NotNil(t, env.Total)
	assert.Equal(t, 3, *env.Total)
	assert.Empty(t, env.Message)

	fail := Failure(&transform.ValidationError{Field: "x", Message: "boom"})
	assert.Equal(t, "error", fail.Status)
	assert.Contains(t, fail.Message, "boom")
	assert.Nil(t, fail.Total)
}
