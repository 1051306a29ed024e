package rule

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/turtacn/smartscanon/pkg/errors"
)

func TestKindOf(t *testing.T) {
	assert.Equal(t, KindPattern, KindOf("[C][O]"))
	assert.Equal(t, KindReaction, KindOf("[C]>>[O]"))
	assert.Equal(t, KindReaction, KindOf("[C]>[N]>[O]"))
}

func TestNewRule(t *testing.T) {
	r, err := NewRule(" pains ", "alcohol", "CO", "[O][C]", "drugbank", nil)
	require.NoError(t, err)
	assert.NotEqual(t, uuid.Nil, r.ID)
	assert.Equal(t, "pains", r.Library)
	assert.Equal(t, KindPattern, r.Kind)
	assert.NotNil(t, r.Tags)
	assert.False(t, r.CreatedAt.IsZero())
}

func TestNewRule_Invalid(t *testing.T) {
	cases := map[string][]string{
		"library":   {"", "n", "CO", "[O][C]", "drugbank"},
		"pattern":   {"lib", "n", "", "[O][C]", "drugbank"},
		"canonical": {"lib", "n", "CO", "", "drugbank"},
		"embedding": {"lib", "n", "CO", "[O][C]", ""},
	}
	for name, a := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := NewRule(a[0], a[1], a[2], a[3], a[4], nil)
			assert.True(t, errors.IsCode(err, errors.ErrCodeValidation), "%v", err)
		})
	}
}

func TestRule_Key(t *testing.T) {
	a, _ := NewRule("lib", "a", "CO", "[O][C]", "drugbank", nil)
	b, _ := NewRule("lib", "b", "OC", "[O][C]", "drugbank", nil)
	c, _ := NewRule("lib", "c", "OC", "[O][C]", "askcos", nil)
	assert.Equal(t, a.Key(), b.Key())
	assert.NotEqual(t, a.Key(), c.Key())
}

//Personal.AI order the ending
