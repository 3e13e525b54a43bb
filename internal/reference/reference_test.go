package reference

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestExpandVerbatimWhenNoReferences(t *testing.T) {
	tpl, err := Expand("plain text, no dollars or braces")
	assert.NoError(t, err)
	assert.Equal(t, "plain text, no dollars or braces", tpl.Format)
	assert.Empty(t, tpl.Refs)
}

func TestExpandSimpleReferenceRoundTrip(t *testing.T) {
	tpl, err := Expand("$v")
	assert.NoError(t, err)
	assert.Equal(t, []string{"v"}, tpl.Refs)
	got := fmt.Sprintf(tpl.Format, 42)
	assert.Equal(t, "42", got)
}

func TestExpandQuotedArgumentWithReference(t *testing.T) {
	tpl, err := Expand("disk usage is above 90% on $fs")
	assert.NoError(t, err)
	assert.Equal(t, []string{"fs"}, tpl.Refs)
	got := fmt.Sprintf(tpl.Format, "/")
	assert.Equal(t, "disk usage is above 90% on /", got)
}

func TestExpandComplexReferenceWithFormat(t *testing.T) {
	tpl, err := Expand("${value:03d}")
	assert.NoError(t, err)
	assert.Equal(t, []string{"value"}, tpl.Refs)
	got := fmt.Sprintf(tpl.Format, 7)
	assert.Equal(t, "007", got)
}

func TestExpandEscapes(t *testing.T) {
	tpl, err := Expand(`\$notref \\backslash`)
	assert.NoError(t, err)
	assert.Empty(t, tpl.Refs)
	assert.Equal(t, `$notref \backslash`, tpl.Format)
}

func TestExpandExpressionShortcutUnquoted(t *testing.T) {
	assert.Equal(t, "stats", ExpandExpression("$stats"))
}

func TestExpandExpressionShortcutQuoted(t *testing.T) {
	assert.Equal(t, "string(stats)", ExpandExpression("'$stats'"))
}

func TestExpandExpressionPlainCondition(t *testing.T) {
	expr := "stats.available * 100 / stats.total > 90"
	assert.Equal(t, expr, ExpandExpression(expr))
}

func TestExpandExpressionComplexRefBody(t *testing.T) {
	assert.Equal(t, "v['stuff']", ExpandExpression("${v['stuff']}"))
}
