package stage

import (
	"bytes"
	"errors"
	"log"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/banshee-data/pointpipe/internal/locator"
	"github.com/banshee-data/pointpipe/internal/options"
)

func testFactory(t *testing.T) *Factory {
	t.Helper()
	f := NewFactory()
	for _, d := range []Driver{
		{Name: "readers.las", Extensions: []string{".las", ".laz"}},
		{Name: "readers.text", Extensions: []string{".txt", ".csv"}},
		{Name: "writers.las", Extensions: []string{".las", ".laz"}},
		{Name: "filters.range"},
		{Name: "filters.strict", Validate: func(o *options.Bag) error {
			if !o.Has("limits") {
				return errors.New("option 'limits' is required")
			}
			return nil
		}},
	} {
		require.NoError(t, f.Register(d))
	}
	return f
}

func TestRoleOf(t *testing.T) {
	cases := map[string]Role{
		"readers.las":   Reader,
		"filters.range": Filter,
		"writers.text":  Writer,
	}
	for typ, want := range cases {
		got, ok := RoleOf(typ)
		assert.True(t, ok, typ)
		assert.Equal(t, want, got, typ)
	}
	_, ok := RoleOf("las")
	assert.False(t, ok)
}

func TestValidTag(t *testing.T) {
	for _, tag := range []string{"a", "A1", "ground_only", "x_1_y"} {
		assert.True(t, ValidTag(tag), tag)
	}
	for _, tag := range []string{"", "1a", "_a", "a-b", "a b", "é"} {
		assert.False(t, ValidTag(tag), tag)
	}
}

func TestFactory_RegisterAndInfer(t *testing.T) {
	f := testFactory(t)

	assert.Error(t, f.Register(Driver{Name: "las"}))
	assert.Error(t, f.Register(Driver{Name: "readers.las"}))

	assert.Equal(t, "readers.las", f.InferReader("/data/tile.LAZ"))
	assert.Equal(t, "readers.text", f.InferReader("points.csv"))
	assert.Equal(t, "", f.InferReader("points.bin"))
	assert.Equal(t, "", f.InferReader("noext"))
	assert.Equal(t, "writers.las", f.InferWriter("out.las"))
	assert.Equal(t, "", f.InferWriter("out.csv"))
}

func TestManager_MakeStages(t *testing.T) {
	m := NewManager(Config{Factory: testFactory(t)})

	r, err := m.MakeReader(locator.New("a.las"), "", nil, "src")
	require.NoError(t, err)
	f, err := m.MakeFilter("filters.range", nil, "")
	require.NoError(t, err)
	w, err := m.MakeWriter("out.las", "", nil, "")
	require.NoError(t, err)

	require.NoError(t, m.SetInput(f, r))
	require.NoError(t, m.SetInput(w, f))

	rs := m.Stage(r)
	assert.Equal(t, Reader, rs.Role())
	assert.Equal(t, "readers.las", rs.Type())
	assert.Equal(t, "a.las", rs.Path())
	assert.Equal(t, "src", rs.Label())
	assert.NotEmpty(t, rs.UID())

	ws := m.Stage(w)
	assert.Equal(t, "writers.las", ws.Name())
	assert.Equal(t, "out.las", ws.Path())
	assert.Equal(t, []ID{f}, ws.Inputs())

	leaves := m.Leaves()
	require.Len(t, leaves, 1)
	assert.Equal(t, w, leaves[0].ID())
}

func TestManager_UntypedFallsBackToNamespace(t *testing.T) {
	m := NewManager(Config{Factory: testFactory(t)})
	r, err := m.MakeReader(locator.New("x.bin"), "", nil, "")
	require.NoError(t, err)
	assert.Equal(t, "", m.Stage(r).Type())
	assert.Equal(t, "readers", m.Stage(r).Name())
}

func TestManager_TypeErrors(t *testing.T) {
	m := NewManager(Config{Factory: testFactory(t)})

	_, err := m.MakeFilter("filters.nope", nil, "")
	assert.True(t, errors.Is(err, ErrUnknownType))

	_, err = m.MakeFilter("", nil, "")
	assert.True(t, errors.Is(err, ErrUnknownType))

	_, err = m.MakeReader(locator.New("a"), "writers.las", nil, "")
	assert.True(t, errors.Is(err, ErrUnknownType))

	_, err = m.MakeFilter("filters.strict", options.NewBag(), "")
	assert.ErrorContains(t, err, "limits")

	assert.Equal(t, 0, m.Len())
}

func TestManager_SetInputRules(t *testing.T) {
	m := NewManager(Config{Factory: testFactory(t)})
	a, _ := m.MakeReader(locator.New("a.las"), "", nil, "")
	b, _ := m.MakeReader(locator.New("b.las"), "", nil, "")
	f, _ := m.MakeFilter("filters.range", nil, "")

	assert.True(t, errors.Is(m.SetInput(b, a), ErrWiring), "reader input")
	assert.True(t, errors.Is(m.SetInput(f, f), ErrWiring), "self loop")
	assert.True(t, errors.Is(m.SetInput(f, 99), ErrWiring), "missing producer")
	require.NoError(t, m.SetInput(f, a))

	leaves := m.Leaves()
	require.Len(t, leaves, 2)
	assert.Equal(t, b, leaves[0].ID())
	assert.Equal(t, f, leaves[1].ID())
}

func TestManager_FilterKeepsFilenameLocator(t *testing.T) {
	m := NewManager(Config{Factory: testFactory(t)})
	opts := options.NewBag()
	opts.AddString("filename", "dem.tif")
	id, err := m.MakeFilter("filters.range", opts, "")
	require.NoError(t, err)
	assert.Equal(t, "dem.tif", m.Stage(id).Path())
}

func TestManager_Logf(t *testing.T) {
	var buf bytes.Buffer
	m := NewManager(Config{Factory: testFactory(t), Log: log.New(&buf, "", 0)})
	m.Logf("hello %d", 1)
	assert.Equal(t, "hello 1\n", buf.String())

	quiet := NewManager(Config{})
	quiet.Logf("dropped")
}

func TestStage_InputsIsCopy(t *testing.T) {
	m := NewManager(Config{Factory: testFactory(t)})
	a, _ := m.MakeReader(locator.New("a.las"), "", nil, "")
	f, _ := m.MakeFilter("filters.range", nil, "")
	require.NoError(t, m.SetInput(f, a))

	in := m.Stage(f).Inputs()
	in[0] = 42
	assert.Equal(t, []ID{a}, m.Stage(f).Inputs())
}
