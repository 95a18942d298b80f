package schema

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testComponent() *Component {
	return NewComponent("widget",
		String("type"),
		Int("size").Between(0, 10),
		Int("color").Opt().Display(func(v any) any { return fmt.Sprintf("#%v", v) }),
	).With(func(r Record, _ Resolver) error {
		if n, _ := AsInt(r["size"]); n == 3 {
			return Errorf("'size' may not be 3.")
		}
		return nil
	})
}

func TestComponent_ValidateInDeclarationOrder(t *testing.T) {
	c := testComponent()
	requireMessage(t, c.Validate(Record{"size": 99}, nil), "'type' is required.")
	requireMessage(t, c.Validate(Record{"type": "w", "size": 99}, nil), "'size' must be less than or equal to 10.")
	requireMessage(t, c.Validate(Record{"type": "w", "size": 3}, nil), "'size' may not be 3.")
}

func TestComponent_SerializeOmitsAbsentAndForeign(t *testing.T) {
	c := testComponent()
	out, err := c.Serialize(Record{"type": "w", "size": 2, "other": "x"}, nil)
	require.NoError(t, err)
	assert.Equal(t, Record{"type": "w", "size": 2}, out)

	_, err = c.Serialize(Record{}, nil)
	requireMessage(t, err, "'type' is required.")
}

func TestComponent_Display(t *testing.T) {
	c := testComponent()
	out, err := c.Display(Record{"type": "w", "size": 2, "color": 5}, nil)
	require.NoError(t, err)
	assert.Equal(t, Record{"type": "w", "size": 2, "color": "#5"}, out)
}

func TestRecord_CloneIsShallowCopy(t *testing.T) {
	r := Record{"a": 1}
	c := r.Clone()
	c["a"] = 2
	assert.Equal(t, 1, r["a"])
	assert.True(t, r.Has("a"))
	assert.False(t, Record{"a": nil}.Has("a"))
}
