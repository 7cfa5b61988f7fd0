package compare

import (
	"errors"
	"fmt"
	"math/rand"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sdejongh/diffnorris/pkg/graph"
	"github.com/sdejongh/diffnorris/pkg/models"
)

func mustCompare(t *testing.T, old, new *graph.Node, cfg models.ComparisonConfig) models.ComparisonResult {
	t.Helper()
	res, err := Compare(old, new, cfg)
	require.NoError(t, err)
	return res
}

func order(amount string) *graph.Node {
	return graph.Object(graph.F("Order", graph.Object(
		graph.F("Id", graph.Int(1)),
		graph.F("Amount", graph.Number(amount)),
	)))
}

func ints(vs ...int64) *graph.Node {
	items := make([]*graph.Node, len(vs))
	for i, v := range vs {
		items[i] = graph.Int(v)
	}
	return graph.List(items...)
}

// ============== Scalar Tests ==============

func TestCompareOrderAmount(t *testing.T) {
	res := mustCompare(t, order("10.5"), order("12.0"), models.DefaultComparisonConfig())

	want := []models.Difference{{PropertyPath: "Order.Amount", OldValue: "10.5", NewValue: "12.0"}}
	if diff := cmp.Diff(want, res.Differences); diff != "" {
		t.Errorf("differences mismatch (-want +got):\n%s", diff)
	}
	assert.False(t, res.IsEqual())
	assert.False(t, res.Truncated)
}

func TestCompareScalars(t *testing.T) {
	tests := []struct {
		name          string
		old, new      *graph.Node
		caseSensitive bool
		equal         bool
	}{
		{"NumberFormatting", graph.Number("10.50"), graph.Number("10.5"), true, true},
		{"IntVsFloat", graph.Number("10"), graph.Number("10.0"), true, true},
		{"LargeInts", graph.Number("9007199254740993"), graph.Number("9007199254740992"), true, false},
		{"NumberDiffers", graph.Int(1), graph.Int(2), true, false},
		{"DateSameInstant", graph.Date("2024-01-01T12:00:00Z"), graph.Date("2024-01-01T13:00:00+01:00"), true, true},
		{"DateDiffers", graph.Date("2024-01-01"), graph.Date("2024-01-02"), true, false},
		{"Bool", graph.Bool(true), graph.Bool(false), true, false},
		{"CaseSensitive", graph.String("abc"), graph.String("ABC"), true, false},
		{"CaseInsensitive", graph.String("abc"), graph.String("ABC"), false, true},
		{"MixedTypesText", graph.String("42"), graph.Int(42), true, true},
		{"UnparsableNumber", graph.Number("n/a"), graph.Number("n/a"), true, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := models.ComparisonConfig{CaseSensitive: tt.caseSensitive}
			old := graph.Object(graph.F("V", tt.old))
			new := graph.Object(graph.F("V", tt.new))
			res := mustCompare(t, old, new, cfg)
			assert.Equal(t, tt.equal, res.IsEqual(), "%v", res.Differences)
		})
	}
}

// ============== Shape Tests ==============

func TestCompareMissingFields(t *testing.T) {
	old := graph.Object(graph.F("A", graph.Int(1)), graph.F("B", graph.Int(2)))
	new := graph.Object(graph.F("A", graph.Int(1)), graph.F("C", graph.Int(3)))

	res := mustCompare(t, old, new, models.DefaultComparisonConfig())
	want := []models.Difference{
		{PropertyPath: "B", OldValue: "2", NewValue: MissingValue, Category: models.CategoryOther},
		{PropertyPath: "C", OldValue: MissingValue, NewValue: "3", Category: models.CategoryOther},
	}
	if diff := cmp.Diff(want, res.Differences); diff != "" {
		t.Errorf("differences mismatch (-want +got):\n%s", diff)
	}
}

func TestCompareFieldOrderIrrelevant(t *testing.T) {
	old := graph.Object(graph.F("A", graph.Int(1)), graph.F("B", graph.Int(2)))
	new := graph.Object(graph.F("B", graph.Int(2)), graph.F("A", graph.Int(1)))
	assert.True(t, mustCompare(t, old, new, models.DefaultComparisonConfig()).IsEqual())
}

func TestCompareRootMismatch(t *testing.T) {
	old := graph.Object(graph.F("A", graph.Object(graph.F("B", graph.Int(1)))))
	new := graph.List(graph.Int(1))

	res := mustCompare(t, old, new, models.DefaultComparisonConfig())
	require.Len(t, res.Differences, 1)
	assert.Equal(t, "", res.Differences[0].PropertyPath)
	assert.Equal(t, models.CategoryOther, res.Differences[0].Category)
	assert.Equal(t, "{A: {B: 1}}", res.Differences[0].OldValue)
}

func TestCompareNestedKindMismatch(t *testing.T) {
	old := graph.Object(graph.F("A", graph.List()), graph.F("B", graph.Null()))
	new := graph.Object(graph.F("A", graph.Object()), graph.F("B", graph.String("x")))

	res := mustCompare(t, old, new, models.DefaultComparisonConfig())
	want := []models.Difference{
		{PropertyPath: "A", OldValue: "[]", NewValue: "{}", Category: models.CategoryOther},
		{PropertyPath: "B", OldValue: "null", NewValue: "x"},
	}
	if diff := cmp.Diff(want, res.Differences); diff != "" {
		t.Errorf("differences mismatch (-want +got):\n%s", diff)
	}
}

// ============== Rule Tests ==============

func TestCompareIgnoreRules(t *testing.T) {
	old := graph.Object(
		graph.F("Stamp", graph.String("t1")),
		graph.F("Lines", graph.List(
			graph.Object(graph.F("Sku", graph.String("A")), graph.F("Id", graph.Int(1))),
			graph.Object(graph.F("Sku", graph.String("B")), graph.F("Id", graph.Int(2))),
		)),
	)
	new := graph.Object(
		graph.F("Stamp", graph.String("t2")),
		graph.F("Lines", graph.List(
			graph.Object(graph.F("Sku", graph.String("A")), graph.F("Id", graph.Int(10))),
			graph.Object(graph.F("Sku", graph.String("B")), graph.F("Id", graph.Int(20))),
		)),
	)

	cfg := models.DefaultComparisonConfig()
	cfg.Rules = []models.IgnoreRule{
		{PathPattern: "Stamp", IgnoreCompletely: true},
		{PathPattern: "Lines[*].Id", IgnoreCompletely: true},
		{PathPattern: "Bad[", IgnoreCompletely: true},
	}
	assert.True(t, mustCompare(t, old, new, cfg).IsEqual())

	cfg.Rules = []models.IgnoreRule{{PathPattern: "Lines[0].Id", IgnoreCompletely: true}}
	res := mustCompare(t, old, new, cfg)
	paths := make([]string, len(res.Differences))
	for i, d := range res.Differences {
		paths[i] = d.PropertyPath
	}
	assert.Equal(t, []string{"Stamp", "Lines[1].Id"}, paths)
}

func TestCompareReadOnlyFields(t *testing.T) {
	old := graph.Object(graph.RO("Computed", graph.Int(1)), graph.F("V", graph.Int(1)))
	new := graph.Object(graph.RO("Computed", graph.Int(2)), graph.F("V", graph.Int(1)))

	cfg := models.DefaultComparisonConfig()
	assert.True(t, mustCompare(t, old, new, cfg).IsEqual())

	cfg.CompareReadOnlyFields = true
	res := mustCompare(t, old, new, cfg)
	require.Len(t, res.Differences, 1)
	assert.Equal(t, "Computed", res.Differences[0].PropertyPath)
}

// ============== List Tests ==============

func TestCompareOrderInsensitivity(t *testing.T) {
	old := graph.Object(graph.F("Items", ints(1, 2, 3)))
	new := graph.Object(graph.F("Items", ints(3, 2, 1)))

	t.Run("WithRule", func(t *testing.T) {
		cfg := models.DefaultComparisonConfig()
		cfg.Rules = []models.IgnoreRule{{PathPattern: "Items", IgnoreCollectionOrder: true}}
		assert.True(t, mustCompare(t, old, new, cfg).IsEqual())
	})

	t.Run("Global", func(t *testing.T) {
		cfg := models.DefaultComparisonConfig()
		cfg.IgnoreCollectionOrderGlobally = true
		assert.True(t, mustCompare(t, old, new, cfg).IsEqual())
	})

	t.Run("Positional", func(t *testing.T) {
		res := mustCompare(t, old, new, models.DefaultComparisonConfig())
		want := []models.Difference{
			{PropertyPath: "Items[0]", OldValue: "1", NewValue: "3"},
			{PropertyPath: "Items[2]", OldValue: "3", NewValue: "1"},
		}
		if diff := cmp.Diff(want, res.Differences); diff != "" {
			t.Errorf("differences mismatch (-want +got):\n%s", diff)
		}
	})
}

func TestComparePositionalLengthChange(t *testing.T) {
	old := graph.Object(graph.F("Items", ints(1, 2, 3)))
	new := graph.Object(graph.F("Items", ints(1)))

	res := mustCompare(t, old, new, models.DefaultComparisonConfig())
	want := []models.Difference{
		{PropertyPath: "Items.Count", OldValue: "3", NewValue: "1"},
		{PropertyPath: "Items[1]", OldValue: "2", NewValue: MissingValue, Category: models.CategoryItemRemoved},
		{PropertyPath: "Items[2]", OldValue: "3", NewValue: MissingValue, Category: models.CategoryItemRemoved},
	}
	if diff := cmp.Diff(want, res.Differences); diff != "" {
		t.Errorf("differences mismatch (-want +got):\n%s", diff)
	}

	res = mustCompare(t, new, old, models.DefaultComparisonConfig())
	require.Len(t, res.Differences, 3)
	assert.Equal(t, models.CategoryItemAdded, res.Differences[2].Category)
}

func TestCompareUnorderedAddedRemoved(t *testing.T) {
	cfg := models.DefaultComparisonConfig()
	cfg.Rules = []models.IgnoreRule{{PathPattern: "Items", IgnoreCollectionOrder: true}}

	old := graph.Object(graph.F("Items", ints(1, 2, 2, 5)))
	new := graph.Object(graph.F("Items", ints(2, 7, 1, 9)))

	res := mustCompare(t, old, new, cfg)
	want := []models.Difference{
		{PropertyPath: "Items[2]", OldValue: "2", NewValue: MissingValue, Category: models.CategoryItemRemoved},
		{PropertyPath: "Items[3]", OldValue: "5", NewValue: MissingValue, Category: models.CategoryItemRemoved},
		{PropertyPath: "Items[1]", OldValue: MissingValue, NewValue: "7", Category: models.CategoryItemAdded},
		{PropertyPath: "Items[3]", OldValue: MissingValue, NewValue: "9", Category: models.CategoryItemAdded},
	}
	if diff := cmp.Diff(want, res.Differences); diff != "" {
		t.Errorf("differences mismatch (-want +got):\n%s", diff)
	}
}

func TestCompareUnorderedObjects(t *testing.T) {
	line := func(sku string, qty int64, tags ...string) *graph.Node {
		tagNodes := make([]*graph.Node, len(tags))
		for i, s := range tags {
			tagNodes[i] = graph.String(s)
		}
		return graph.Object(
			graph.F("Sku", graph.String(sku)),
			graph.F("Qty", graph.Int(qty)),
			graph.F("Tags", graph.List(tagNodes...)),
		)
	}
	old := graph.Object(graph.F("Lines", graph.List(line("A", 1, "x", "y"), line("B", 2))))
	new := graph.Object(graph.F("Lines", graph.List(line("B", 2), line("A", 1, "y", "x"))))

	cfg := models.DefaultComparisonConfig()
	cfg.Rules = []models.IgnoreRule{{PathPattern: "Lines", IgnoreCollectionOrder: true}}

	// Tags order still matters without a nested rule
	res := mustCompare(t, old, new, cfg)
	require.Len(t, res.Differences, 2)
	assert.Equal(t, models.CategoryItemRemoved, res.Differences[0].Category)
	assert.Equal(t, "Lines[0]", res.Differences[0].PropertyPath)
	assert.Equal(t, "{Sku: A, Qty: 1, Tags: [x, y]}", res.Differences[0].OldValue)
	assert.Equal(t, "Lines[1]", res.Differences[1].PropertyPath)

	cfg.Rules = append(cfg.Rules, models.IgnoreRule{PathPattern: "Lines[*].Tags", IgnoreCollectionOrder: true})
	assert.True(t, mustCompare(t, old, new, cfg).IsEqual())
}

func TestCompareUnorderedIgnoredSubfield(t *testing.T) {
	item := func(id, stamp int64) *graph.Node {
		return graph.Object(graph.F("Id", graph.Int(id)), graph.F("Stamp", graph.Int(stamp)))
	}
	old := graph.Object(graph.F("L", graph.List(item(1, 100), item(2, 200))))
	new := graph.Object(graph.F("L", graph.List(item(2, 999), item(1, 888))))

	cfg := models.DefaultComparisonConfig()
	cfg.Rules = []models.IgnoreRule{
		{PathPattern: "L", IgnoreCollectionOrder: true},
		{PathPattern: "L[*].Stamp", IgnoreCompletely: true},
	}
	assert.True(t, mustCompare(t, old, new, cfg).IsEqual())
}

func TestCompareUnorderedMixedScalarTypes(t *testing.T) {
	cfg := models.DefaultComparisonConfig()
	cfg.IgnoreCollectionOrderGlobally = true

	old := graph.List(graph.String("1"), graph.String("2"))
	new := graph.List(graph.Int(2), graph.Int(1))
	assert.True(t, mustCompare(t, old, new, cfg).IsEqual())
}

func TestCompareUnorderedCaseInsensitive(t *testing.T) {
	cfg := models.ComparisonConfig{CaseSensitive: false, IgnoreCollectionOrderGlobally: true}
	old := graph.List(graph.String("Alpha"), graph.String("beta"))
	new := graph.List(graph.String("BETA"), graph.String("alpha"))
	assert.True(t, mustCompare(t, old, new, cfg).IsEqual())
}

func TestCompareUnorderedLargeMixedTypes(t *testing.T) {
	cfg := models.DefaultComparisonConfig()
	cfg.Rules = []models.IgnoreRule{{PathPattern: "Items", IgnoreCollectionOrder: true}}

	for _, n := range []int{10, 100, 500} {
		t.Run(fmt.Sprintf("n=%d", n), func(t *testing.T) {
			oldItems := make([]*graph.Node, n)
			newItems := make([]*graph.Node, n)
			for i := 0; i < n; i++ {
				oldItems[i] = graph.Int(int64(i))
				newItems[n-1-i] = graph.String(fmt.Sprintf("%d", i))
			}
			old := graph.Object(graph.F("Items", graph.List(oldItems...)))
			new := graph.Object(graph.F("Items", graph.List(newItems...)))

			res := mustCompare(t, old, new, cfg)
			assert.True(t, res.IsEqual(), "%d differences", len(res.Differences))
		})
	}
}

func TestCompareUnorderedLargeUnicodeCaseInsensitive(t *testing.T) {
	cfg := models.ComparisonConfig{CaseSensitive: false, IgnoreCollectionOrderGlobally: true}

	n := 100
	oldItems := make([]*graph.Node, n)
	newItems := make([]*graph.Node, n)
	for i := 0; i < n; i++ {
		// Kelvin sign and long s fold onto k and s
		oldItems[i] = graph.String(fmt.Sprintf("\u212aey-\u017fku-%d-Σ", i))
		newItems[n-1-i] = graph.String(fmt.Sprintf("KEY-SKU-%d-ς", i))
	}

	res := mustCompare(t, graph.List(oldItems...), graph.List(newItems...), cfg)
	assert.True(t, res.IsEqual(), "%d differences", len(res.Differences))
}

func TestHashScalarFollowsEquality(t *testing.T) {
	pairs := []struct {
		name          string
		a, b          *graph.Node
		caseSensitive bool
	}{
		{"IntAndText", graph.Int(7), graph.String("7"), true},
		{"IntAndFloat", graph.Number("1"), graph.Number("1.0"), true},
		{"NegativeZero", graph.Number("-0"), graph.Number("0"), true},
		{"ExponentCase", graph.Number("1e5"), graph.String("1E5"), false},
		{"BoolForms", graph.Bool(true), &graph.Node{Kind: graph.KindScalar, Type: graph.TypeBool, Raw: "1"}, true},
		{"BoolAndText", graph.Bool(false), graph.String("FALSE"), false},
		{"DateInstants", graph.Date("2024-01-01T00:00:00Z"), graph.Date("2024-01-01T01:00:00+01:00"), true},
		{"DateAndText", graph.Date("2024-03-01"), graph.String("2024-03-01"), true},
		{"FoldedText", graph.String("stra\u00dfe-\u212a"), graph.String("STRA\u00dfE-k"), false},
	}

	for _, tt := range pairs {
		t.Run(tt.name, func(t *testing.T) {
			c, err := New(models.ComparisonConfig{CaseSensitive: tt.caseSensitive}, nil)
			require.NoError(t, err)
			require.True(t, c.scalarEqual(tt.a, tt.b), "fixture must compare equal")
			assert.Equal(t, c.hashScalar(tt.a), c.hashScalar(tt.b))
		})
	}
}

func TestFoldCase(t *testing.T) {
	assert.Equal(t, "ABC-1", foldCase("aBc-1"))
	assert.Equal(t, foldCase("k"), foldCase("\u212a"))
	assert.Equal(t, foldCase("s"), foldCase("\u017f"))
	assert.Equal(t, foldCase("σ"), foldCase("ς"))
	assert.NotEqual(t, foldCase("i"), foldCase("\u0131"))
}

// ============== Truncation Tests ==============

func TestCompareMaxDifferences(t *testing.T) {
	old := ints(1, 2, 3, 4, 5, 6)
	new := ints(9, 9, 9, 9, 9, 9)

	cfg := models.ComparisonConfig{MaxDifferences: 3, CaseSensitive: true}
	res := mustCompare(t, old, new, cfg)
	assert.Len(t, res.Differences, 3)
	assert.True(t, res.Truncated)
	assert.Equal(t, "[2]", res.Differences[2].PropertyPath)

	cfg.MaxDifferences = 0
	res = mustCompare(t, old, new, cfg)
	assert.Len(t, res.Differences, 6)
	assert.False(t, res.Truncated)
}

func TestNewRejectsInvalidConfig(t *testing.T) {
	_, err := New(models.ComparisonConfig{MaxDifferences: -1}, nil)
	var verr *models.ValidationError
	assert.True(t, errors.As(err, &verr))
}

// ============== Determinism Tests ==============

func randomGraph(r *rand.Rand, depth int) *graph.Node {
	if depth == 0 {
		switch r.Intn(4) {
		case 0:
			return graph.Int(int64(r.Intn(5)))
		case 1:
			return graph.String(fmt.Sprintf("s%d", r.Intn(5)))
		case 2:
			return graph.Bool(r.Intn(2) == 0)
		default:
			return graph.Null()
		}
	}
	if r.Intn(2) == 0 {
		n := r.Intn(4)
		items := make([]*graph.Node, n)
		for i := range items {
			items[i] = randomGraph(r, depth-1)
		}
		return graph.List(items...)
	}
	n := 1 + r.Intn(4)
	fields := make([]graph.Field, n)
	for i := range fields {
		fields[i] = graph.F(fmt.Sprintf("F%d", i), randomGraph(r, depth-1))
	}
	return graph.Object(fields...)
}

func TestCompareProperties(t *testing.T) {
	r := rand.New(rand.NewSource(42))
	c, err := New(models.ComparisonConfig{CaseSensitive: true}, nil)
	require.NoError(t, err)

	for i := 0; i < 200; i++ {
		a := randomGraph(r, 3)
		b := randomGraph(r, 3)

		assert.True(t, c.Compare(a, a).IsEqual(), "graph must equal itself")

		first := c.Compare(a, b)
		second := c.Compare(a, b)
		if diff := cmp.Diff(first, second); diff != "" {
			t.Fatalf("comparison not idempotent (-first +second):\n%s", diff)
		}
		assert.Equal(t, first.IsEqual(), c.matchEqual(a, b))
	}
}

func TestCompareOrderIndependentHashConsistency(t *testing.T) {
	r := rand.New(rand.NewSource(7))
	c, err := New(models.ComparisonConfig{CaseSensitive: true, IgnoreCollectionOrderGlobally: true}, nil)
	require.NoError(t, err)

	for i := 0; i < 100; i++ {
		items := make([]*graph.Node, 6)
		for j := range items {
			items[j] = randomGraph(r, 2)
		}
		shuffled := append([]*graph.Node(nil), items...)
		r.Shuffle(len(shuffled), func(x, y int) { shuffled[x], shuffled[y] = shuffled[y], shuffled[x] })

		res := c.Compare(graph.List(items...), graph.List(shuffled...))
		assert.True(t, res.IsEqual(), "%v", res.Differences)
	}
}
