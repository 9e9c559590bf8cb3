package record

import (
	"encoding/json"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValueEmptiness(t *testing.T) {
	assert.True(t, Null().IsEmpty())
	assert.True(t, Text("   ").IsEmpty())
	assert.False(t, Text("Pallet A").IsEmpty())
	assert.False(t, Number(0).IsEmpty())
}

func TestValueFloat(t *testing.T) {
	f, ok := Text(" 12.5 ").Float()
	require.True(t, ok)
	assert.Equal(t, 12.5, f)

	_, ok = Text("twelve").Float()
	assert.False(t, ok)

	_, ok = Null().Float()
	assert.False(t, ok)
}

func TestParse(t *testing.T) {
	assert.Equal(t, Null(), Parse("  "))
	assert.Equal(t, Number(3), Parse("3"))
	assert.Equal(t, Text("HIGH"), Parse("HIGH"))
	for _, in := range []string{"NaN", "nan", "Inf", "-Infinity", "+inf"} {
		assert.Equal(t, Text(in), Parse(in), in)
	}
}

func TestNonFiniteNumberMarshalsAsText(t *testing.T) {
	data, err := json.Marshal(Record{"w": Number(math.NaN()), "h": Number(math.Inf(-1))})
	require.NoError(t, err)
	assert.JSONEq(t, `{"w":"NaN","h":"-Inf"}`, string(data))
}

func TestRecordJSON(t *testing.T) {
	in := Record{"name": Text("Crate"), "weight": Number(120.5), "loadBear": Null()}
	data, err := json.Marshal(in)
	require.NoError(t, err)

	var out Record
	require.NoError(t, json.Unmarshal(data, &out))
	assert.True(t, in.Equal(out))
	assert.True(t, out["loadBear"].IsNull())
}

func TestValueRejectsBool(t *testing.T) {
	var v Value
	assert.Error(t, json.Unmarshal([]byte("true"), &v))
}

func TestRecordEqualTreatsMissingAsNull(t *testing.T) {
	a := Record{"name": Text("x"), "weight": Null()}
	b := Record{"name": Text("x")}
	assert.True(t, a.Equal(b))
	assert.True(t, b.Equal(a))

	b["weight"] = Number(1)
	assert.False(t, a.Equal(b))
}

func TestListCloneIsDeep(t *testing.T) {
	l := List{{"name": Text("a")}}
	c := l.Clone()
	c[0]["name"] = Text("b")
	assert.Equal(t, "a", l[0]["name"].String())
	assert.False(t, l.Equal(c))
}

func TestIsBlank(t *testing.T) {
	assert.True(t, Record{"a": Null(), "b": Text("")}.IsBlank())
	assert.False(t, Record{"a": Number(1)}.IsBlank())
}
