package decode

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sdejongh/diffnorris/pkg/graph"
)

// ============== Format Selection Tests ==============

func TestForName(t *testing.T) {
	tests := []struct {
		name   string
		want   string
		hasErr bool
	}{
		{"a/b/order.json", "json", false},
		{"ORDER.XML", "xml", false},
		{"c.yml", "yaml", false},
		{"c.yaml", "yaml", false},
		{"c.txt", "", true},
		{"noext", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d, err := ForName(tt.name)
			if tt.hasErr {
				var uerr *UnsupportedFormatError
				assert.True(t, errors.As(err, &uerr))
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, d.Name())
		})
	}
}

func TestAutoForced(t *testing.T) {
	a, err := NewAuto("json")
	require.NoError(t, err)
	d, err := a.Resolve("whatever.xml")
	require.NoError(t, err)
	assert.Equal(t, "json", d.Name())

	_, err = NewAuto("csv")
	assert.Error(t, err)
}

// ============== JSON Tests ==============

func TestJSONDecode(t *testing.T) {
	n, err := JSON{}.Decode([]byte(`{"Order":{"Id":1,"Amount":10.50,"Paid":true,"Note":null,"At":"2024-01-02T03:04:05Z","Tags":["a","b"]}}`))
	require.NoError(t, err)

	order, ok := n.Lookup("Order")
	require.True(t, ok)
	require.Equal(t, graph.KindObject, order.Kind)

	names := make([]string, len(order.Fields))
	for i, f := range order.Fields {
		names[i] = f.Name
	}
	assert.Equal(t, []string{"Id", "Amount", "Paid", "Note", "At", "Tags"}, names)

	amount, _ := order.Lookup("Amount")
	assert.Equal(t, graph.TypeNumber, amount.Type)
	assert.Equal(t, "10.50", amount.Raw)

	paid, _ := order.Lookup("Paid")
	assert.Equal(t, graph.TypeBool, paid.Type)

	note, _ := order.Lookup("Note")
	assert.True(t, note.IsNull())

	at, _ := order.Lookup("At")
	assert.Equal(t, graph.TypeDate, at.Type)

	tags, _ := order.Lookup("Tags")
	require.Equal(t, graph.KindList, tags.Kind)
	assert.Len(t, tags.Items, 2)
}

func TestJSONDecodeErrors(t *testing.T) {
	for name, in := range map[string]string{
		"Empty":     ``,
		"Truncated": `{"a":`,
		"Trailing":  `{} {}`,
		"Garbage":   `{"a" 1}`,
	} {
		t.Run(name, func(t *testing.T) {
			_, err := JSON{}.Decode([]byte(in))
			assert.Error(t, err)
		})
	}
}

func TestJSONEmptyArray(t *testing.T) {
	n, err := JSON{}.Decode([]byte(`[]`))
	require.NoError(t, err)
	assert.Equal(t, graph.KindList, n.Kind)
	assert.NotNil(t, n.Items)
	assert.Empty(t, n.Items)
}

// ============== XML Tests ==============

func TestXMLDecode(t *testing.T) {
	doc := `<?xml version="1.0"?>
<Order id="7" xmlns:xsi="http://www.w3.org/2001/XMLSchema-instance">
  <Amount>10.5</Amount>
  <Line><Sku>A</Sku></Line>
  <Customer>ACME</Customer>
  <Line><Sku>B</Sku></Line>
  <Zip>01234</Zip>
  <Missing xsi:nil="true"/>
  <Empty/>
</Order>`

	n, err := XML{}.Decode([]byte(doc))
	require.NoError(t, err)

	order, ok := n.Lookup("Order")
	require.True(t, ok)

	names := make([]string, len(order.Fields))
	for i, f := range order.Fields {
		names[i] = f.Name
	}
	assert.Equal(t, []string{"@id", "Amount", "Line", "Customer", "Zip", "Missing", "Empty"}, names)

	id, _ := order.Lookup("@id")
	assert.Equal(t, graph.TypeNumber, id.Type)

	amount, _ := order.Lookup("Amount")
	assert.Equal(t, graph.TypeNumber, amount.Type)
	assert.Equal(t, "10.5", amount.Raw)

	lines, _ := order.Lookup("Line")
	require.Equal(t, graph.KindList, lines.Kind)
	require.Len(t, lines.Items, 2)
	sku, _ := lines.Items[1].Lookup("Sku")
	assert.Equal(t, "B", sku.Raw)

	zip, _ := order.Lookup("Zip")
	assert.Equal(t, graph.TypeString, zip.Type)

	missing, _ := order.Lookup("Missing")
	assert.True(t, missing.IsNull())

	empty, _ := order.Lookup("Empty")
	assert.Equal(t, graph.TypeString, empty.Type)
	assert.Equal(t, "", empty.Raw)
}

func TestXMLDecodeErrors(t *testing.T) {
	for name, in := range map[string]string{
		"Empty":      ``,
		"Unclosed":   `<a><b></b>`,
		"Mismatched": `<a></b>`,
	} {
		t.Run(name, func(t *testing.T) {
			_, err := XML{}.Decode([]byte(in))
			assert.Error(t, err)
		})
	}
}

// ============== YAML Tests ==============

func TestYAMLDecode(t *testing.T) {
	doc := `
order:
  id: 1
  amount: 10.5
  paid: false
  note: ~
  at: 2024-01-02
  tags: [a, b]
  base: &b {x: 1}
  copy: *b
`
	n, err := YAML{}.Decode([]byte(doc))
	require.NoError(t, err)

	order, ok := n.Lookup("order")
	require.True(t, ok)
	require.Len(t, order.Fields, 8)

	id, _ := order.Lookup("id")
	assert.Equal(t, graph.TypeNumber, id.Type)
	paid, _ := order.Lookup("paid")
	assert.Equal(t, graph.TypeBool, paid.Type)
	note, _ := order.Lookup("note")
	assert.True(t, note.IsNull())
	at, _ := order.Lookup("at")
	assert.Equal(t, graph.TypeDate, at.Type)

	cp, _ := order.Lookup("copy")
	x, ok := cp.Lookup("x")
	require.True(t, ok)
	assert.Equal(t, "1", x.Raw)
}

func TestYAMLDecodeError(t *testing.T) {
	_, err := YAML{}.Decode([]byte("a: [1, 2"))
	assert.Error(t, err)
}

func TestYAMLEmpty(t *testing.T) {
	n, err := YAML{}.Decode(nil)
	require.NoError(t, err)
	assert.True(t, n.IsNull())
}

// ============== Inference Tests ==============

func TestInferScalar(t *testing.T) {
	tests := []struct {
		in   string
		want graph.ScalarType
	}{
		{"42", graph.TypeNumber},
		{"-3.5", graph.TypeNumber},
		{"0.25", graph.TypeNumber},
		{"007", graph.TypeString},
		{"true", graph.TypeBool},
		{"2024-01-02T03:04:05Z", graph.TypeDate},
		{"Inf", graph.TypeString},
		{"hello", graph.TypeString},
		{"1e3", graph.TypeNumber},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.want, inferScalar(tt.in).Type)
		})
	}
}
