package gitlab

import (
	"net/url"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestForm_Values(t *testing.T) {
	var nilInt *int
	form := NewForm().
		WithParam("name", "review").
		WithParam("empty", "").
		WithParam("nil", nil).
		WithParam("nil_ptr", nilInt).
		WithParam("per_page", Ptr(20)).
		WithParam("archived", false).
		WithParam("sort", SortDesc).
		WithParam("milestones", []string{"v1", "v2"}).
		WithParam("no_labels", []string{}).
		WithParam("vars", map[string]int{"b": 2, "a": 1}).
		WithParam("released_at", time.Date(2024, 5, 1, 10, 30, 5, 0, time.FixedZone("CEST", 2*3600))).
		WithParam("zero_time", time.Time{})

	require.NoError(t, form.Err())
	want := url.Values{
		"name":         {"review"},
		"per_page":     {"20"},
		"archived":     {"false"},
		"sort":         {"desc"},
		"milestones[]": {"v1", "v2"},
		"vars[a]":      {"1"},
		"vars[b]":      {"2"},
		"released_at":  {"2024-05-01T08:30:05Z"},
	}
	if diff := cmp.Diff(want, form.Values()); diff != "" {
		t.Errorf("form values mismatch (-want +got):\n%s", diff)
	}
}

func TestForm_RequiredParam(t *testing.T) {
	form := NewForm().
		WithRequiredParam("tag_name", "v1.0.0").
		WithRequiredParam("ref", "").
		WithRequiredParam("title", nil)

	err := form.Err()
	require.ErrorIs(t, err, ErrMissingParam)
	assert.Contains(t, err.Error(), "ref", "first missing parameter is reported")
	assert.Equal(t, "v1.0.0", form.Get("tag_name"))
}

func TestForm_UnsupportedType(t *testing.T) {
	form := NewForm().WithParam("weird", struct{ A int }{1})
	assert.Error(t, form.Err())
}

func TestForm_EncodeAndEmpty(t *testing.T) {
	form := NewForm()
	assert.True(t, form.Empty())

	form.WithParam("b", "2").WithParam("a", "x y")
	assert.False(t, form.Empty())
	assert.Equal(t, "a=x+y&b=2", form.Encode())
}

func TestForm_CloneIsIndependent(t *testing.T) {
	form := NewForm().WithParam("search", "prod")
	cloned := form.clone().WithParam(PageParam, 2)

	assert.Empty(t, form.Get(PageParam))
	assert.Equal(t, "2", cloned.Get(PageParam))
	assert.Equal(t, "prod", cloned.Get("search"))
}

func TestForm_ValuesIsCopy(t *testing.T) {
	form := NewForm().WithParam("milestones", []string{"v1"})
	v := form.Values()
	v["milestones[]"][0] = "changed"

	assert.Equal(t, "v1", form.Get("milestones[]"))
}
