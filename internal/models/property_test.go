package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPropertiesNormalizeWidensNumericTypes(t *testing.T) {
	props := Properties{
		"count":  int(7),
		"small":  int32(3),
		"ratio":  float32(0.5),
		"name":   "alice",
		"active": true,
	}
	require.NoError(t, props.Normalize())

	assert.Equal(t, int64(7), props["count"])
	assert.Equal(t, int64(3), props["small"])
	assert.Equal(t, float64(float32(0.5)), props["ratio"])
	assert.Equal(t, "alice", props["name"])
	assert.Equal(t, true, props["active"])
}

func TestPropertiesNormalizeRejectsNonScalars(t *testing.T) {
	props := Properties{"nested": map[string]any{"x": 1}}
	err := props.Normalize()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "nested")

	props = Properties{"list": []string{"a"}}
	require.Error(t, props.Normalize())
}

func TestPropertiesMergeDoesNotMutate(t *testing.T) {
	base := Properties{"a": int64(1), "b": "keep"}
	overlay := Properties{"a": int64(2), "c": "new"}

	merged := base.Merge(overlay)

	assert.Equal(t, int64(2), merged["a"])
	assert.Equal(t, "keep", merged["b"])
	assert.Equal(t, "new", merged["c"])
	assert.Equal(t, int64(1), base["a"], "merge must not mutate the receiver")
}

func TestEntityCloneIsDeep(t *testing.T) {
	e := Entity{
		ID:         "e1",
		Labels:     []string{"Person"},
		Properties: Properties{"k": "v"},
		Embedding:  []float32{1, 2},
	}
	c := e.Clone()
	c.Labels[0] = "Changed"
	c.Properties["k"] = "changed"
	c.Embedding[0] = 9

	assert.Equal(t, "Person", e.Labels[0])
	assert.Equal(t, "v", e.Properties["k"])
	assert.Equal(t, float32(1), e.Embedding[0])
}

func TestPrimaryLabelFallsBack(t *testing.T) {
	assert.Equal(t, "Person", Entity{Labels: []string{"Person", "Employee"}}.PrimaryLabel())
	assert.Equal(t, "Entity", Entity{}.PrimaryLabel())
}
