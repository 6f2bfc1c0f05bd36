package theme

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type memStore struct {
	values map[string]string
	err    error
}

func newMemStore() *memStore { return &memStore{values: map[string]string{}} }

func (m *memStore) GetPreference(_ context.Context, owner, key string) (string, bool, error) {
	if m.err != nil {
		return "", false, m.err
	}
	v, ok := m.values[owner+"/"+key]
	return v, ok, nil
}

func (m *memStore) SetPreference(_ context.Context, owner, key, value string) error {
	if m.err != nil {
		return m.err
	}
	m.values[owner+"/"+key] = value
	return nil
}

func TestParse(t *testing.T) {
	for _, s := range []string{"light", "dark"} {
		th, ok := Parse(s)
		assert.True(t, ok)
		assert.Equal(t, Theme(s), th)
	}
	for _, s := range []string{"", "Dark", "blue"} {
		_, ok := Parse(s)
		assert.False(t, ok, s)
	}
}

func TestLoadDefaults(t *testing.T) {
	ctx := context.Background()
	s := newMemStore()
	p := NewPreferences(s)

	th, err := p.Load(ctx, "v1")
	require.NoError(t, err)
	assert.Equal(t, Dark, th)

	s.values["v1/theme"] = "sepia"
	th, err = p.Load(ctx, "v1")
	require.NoError(t, err)
	assert.Equal(t, Dark, th)
}

func TestToggleRoundTrip(t *testing.T) {
	ctx := context.Background()
	s := newMemStore()
	p := NewPreferences(s)

	th, err := p.Toggle(ctx, "v1")
	require.NoError(t, err)
	assert.Equal(t, Light, th)
	assert.Equal(t, "light", s.values["v1/theme"])

	th, err = p.Toggle(ctx, "v1")
	require.NoError(t, err)
	assert.Equal(t, Dark, th)

	other, err := p.Load(ctx, "v2")
	require.NoError(t, err)
	assert.Equal(t, Default, other)
}

func TestStoreErrors(t *testing.T) {
	boom := errors.New("disk on fire")
	p := NewPreferences(&memStore{err: boom})

	th, err := p.Load(context.Background(), "v1")
	assert.ErrorIs(t, err, boom)
	assert.Equal(t, Default, th)

	_, err = p.Toggle(context.Background(), "v1")
	assert.ErrorIs(t, err, boom)

	assert.Error(t, NewPreferences(newMemStore()).Set(context.Background(), "v1", "blue"))
}

func TestVariantFor(t *testing.T) {
	assert.Equal(t, Zinc, VariantFor(Dark, ""))
	assert.Equal(t, Cream, VariantFor(Light, ""))
	assert.Equal(t, Amber, VariantFor(Light, Amber))

	v, err := ParseVariant("amber")
	require.NoError(t, err)
	assert.Equal(t, Amber, v)
	_, err = ParseVariant("neon")
	assert.Error(t, err)
}
