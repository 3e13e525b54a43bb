package exprlang

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEvalArithmeticAndComparison(t *testing.T) {
	env := NewEnv()
	env["x"] = 9

	out, err := Eval("x > 5 && x < 20", env)
	require.NoError(t, err)
	assert.Equal(t, true, out)
}

func TestEvalAttrMapDottedAndKeyedAccess(t *testing.T) {
	env := NewEnv()
	env["result"] = AttrMap{"available": 12, "total": 100}

	dotted, err := Eval("result.available", env)
	require.NoError(t, err)
	assert.Equal(t, 12, dotted)

	keyed, err := Eval(`result["total"]`, env)
	require.NoError(t, err)
	assert.Equal(t, 100, keyed)
}

func TestEvalBoolRejectsNonBoolResult(t *testing.T) {
	env := NewEnv()
	_, err := EvalBool("1 + 1", env)
	assert.Error(t, err)
}

func TestEvalBoolAcceptsBoolResult(t *testing.T) {
	env := NewEnv()
	b, err := EvalBool("true", env)
	require.NoError(t, err)
	assert.True(t, b)
}

func TestTypePredicates(t *testing.T) {
	env := NewEnv()
	env["s"] = "hello"
	env["n"] = 3.5
	env["l"] = []any{1, 2}
	env["m"] = AttrMap{"a": 1}

	cases := map[string]string{
		"isstring(s)": "s",
		"isnumber(n)": "n",
		"islist(l)":   "l",
		"ismap(m)":    "m",
	}
	for expr := range cases {
		out, err := Eval(expr, env)
		require.NoError(t, err)
		assert.Equal(t, true, out, expr)
	}
}

func TestIsnilPredicate(t *testing.T) {
	env := NewEnv()
	env["v"] = nil
	out, err := Eval("isnil(v)", env)
	require.NoError(t, err)
	assert.Equal(t, true, out)
}

func TestFormatBuiltinComposesMultipleReferences(t *testing.T) {
	env := NewEnv()
	env["a"] = "x"
	env["b"] = 3

	out, err := Eval(`format("%v-%v", a, b)`, env)
	require.NoError(t, err)
	assert.Equal(t, "x-3", out)
}

func TestEvalUndefinedVariableIsNilNotError(t *testing.T) {
	env := NewEnv()
	out, err := Eval("unbound", env)
	require.NoError(t, err)
	assert.Nil(t, out)
}

func TestEvalRejectsMalformedExpression(t *testing.T) {
	env := NewEnv()
	_, err := Eval("1 +", env)
	assert.Error(t, err)
}
