package configurator

import (
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/flanksource/fixturegate/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var firStandalone = Tuple{Frontend: Fir, Module: Source, Session: Normal, API: Standalone}

func TestParseTuple(t *testing.T) {
	tests := []struct {
		name    string
		values  map[string]string
		want    Tuple
		wantErr string
	}{
		{
			name:   "exact values",
			values: map[string]string{"frontend": "Fir", "module": "Source", "session": "Normal", "api": "Standalone"},
			want:   firStandalone,
		},
		{
			name:   "case insensitive",
			values: map[string]string{"frontend": "fir", "module": "source", "session": "NORMAL", "api": "standalone"},
			want:   firStandalone,
		},
		{
			name:    "missing axis",
			values:  map[string]string{"frontend": "Fir", "module": "Source", "session": "Normal"},
			wantErr: "missing api",
		},
		{
			name:    "invalid value",
			values:  map[string]string{"frontend": "K2", "module": "Source", "session": "Normal", "api": "Ide"},
			wantErr: `invalid frontend "K2"`,
		},
		{
			name:    "unknown axis",
			values:  map[string]string{"frontend": "Fir", "module": "Source", "session": "Normal", "api": "Ide", "target": "jvm"},
			wantErr: `unknown axis "target"`,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseTuple(tt.values)
			if tt.wantErr != "" {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestTupleString(t *testing.T) {
	assert.Equal(t, "Fir/Source/Normal/Standalone", firStandalone.String())
	assert.NoError(t, firStandalone.Validate())
	assert.Error(t, Tuple{Frontend: "fir", Module: Source, Session: Normal, API: Standalone}.Validate())
}

func TestResolveIsDeterministic(t *testing.T) {
	b := NewBuilder()
	require.NoError(t, b.Register(firStandalone, Static(Configuration{
		Pipeline:       "exec",
		Command:        "analyze",
		Args:           []string{"{{.fixture.path}}"},
		Env:            map[string]string{"MODE": "fir"},
		GoldenSuffixes: []string{".fir.txt", ".txt"},
		Timeout:        time.Second,
	})))
	r, err := b.Build()
	require.NoError(t, err)

	first, err := r.Resolve(firStandalone)
	require.NoError(t, err)
	second, err := r.Resolve(firStandalone)
	require.NoError(t, err)
	assert.Equal(t, first, second)
	assert.Equal(t, firStandalone, first.Tuple)

	first.Args[0] = "mutated"
	first.Env["MODE"] = "mutated"
	third, err := r.Resolve(firStandalone)
	require.NoError(t, err)
	assert.Equal(t, second, third)
}

func TestResolveConcurrently(t *testing.T) {
	b := NewBuilder()
	require.NoError(t, b.Register(firStandalone, Static(Configuration{Pipeline: "exec"})))
	r, err := b.Build()
	require.NoError(t, err)

	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			c, err := r.Resolve(firStandalone)
			assert.NoError(t, err)
			assert.Equal(t, "exec", c.Pipeline)
		}()
	}
	wg.Wait()
}

func TestResolveUnregisteredTuple(t *testing.T) {
	r, err := NewBuilder().Build()
	require.NoError(t, err)

	other := Tuple{Frontend: Fe10, Module: LibraryBinary, Session: Dependent, API: Ide}
	_, err = r.Resolve(other)
	var unresolved *UnresolvedConfigurationError
	require.ErrorAs(t, err, &unresolved)
	assert.Equal(t, other, unresolved.Tuple)
}

func TestRegisterDuplicateIsAmbiguous(t *testing.T) {
	b := NewBuilder()
	require.NoError(t, b.Register(firStandalone, Static(Configuration{Pipeline: "a"})))
	err := b.Register(firStandalone, Static(Configuration{Pipeline: "b"}))
	assert.True(t, errors.Is(err, ErrAmbiguousConfiguration))

	_, err = b.Build()
	assert.True(t, errors.Is(err, ErrAmbiguousConfiguration))
}

func TestRegisterRejectsInvalid(t *testing.T) {
	b := NewBuilder()
	assert.Error(t, b.Register(Tuple{}, Static(Configuration{})))
	assert.Error(t, b.Register(firStandalone, nil))
	_, err := b.Build()
	assert.Error(t, err)
}

func TestTuplesSorted(t *testing.T) {
	b := NewBuilder()
	fe10 := Tuple{Frontend: Fe10, Module: Source, Session: Normal, API: Ide}
	require.NoError(t, b.Register(firStandalone, Static(Configuration{Pipeline: "exec"})))
	require.NoError(t, b.Register(fe10, Static(Configuration{Pipeline: "exec"})))
	r, err := b.Build()
	require.NoError(t, err)
	assert.Equal(t, []Tuple{fe10, firStandalone}, r.Tuples())
}

func TestFromConfig(t *testing.T) {
	tuple := map[string]string{"frontend": "Fir", "module": "Source", "session": "Normal", "api": "Standalone"}

	r, err := FromConfig([]config.Configuration{{
		Tuple:    tuple,
		Pipeline: "exec",
		Command:  "analyze",
		Golden:   []string{".txt"},
		Timeout:  "5s",
	}})
	require.NoError(t, err)
	c, err := r.Resolve(firStandalone)
	require.NoError(t, err)
	assert.Equal(t, "analyze", c.Command)
	assert.Equal(t, []string{".txt"}, c.GoldenSuffixes)
	assert.Equal(t, 5*time.Second, c.Timeout)

	_, err = FromConfig([]config.Configuration{
		{Tuple: tuple, Pipeline: "exec"},
		{Tuple: tuple, Pipeline: "exec"},
	})
	assert.True(t, errors.Is(err, ErrAmbiguousConfiguration))
	assert.Equal(t, 1, strings.Count(err.Error(), "registered more than once"))

	_, err = FromConfig([]config.Configuration{{Tuple: map[string]string{"frontend": "Fir"}, Pipeline: "exec"}})
	assert.ErrorContains(t, err, "missing module")
}

func TestFromConfigExitCodes(t *testing.T) {
	tuple := map[string]string{"frontend": "Fir", "module": "Source", "session": "Normal", "api": "Standalone"}

	r, err := FromConfig([]config.Configuration{{Tuple: tuple, Pipeline: "exec", ExitCodes: []int{0, 3}}})
	require.NoError(t, err)
	c, err := r.Resolve(firStandalone)
	require.NoError(t, err)
	assert.Equal(t, []int{0, 3}, c.AcceptedExitCodes())
	assert.Equal(t, DefaultExitCodes, Configuration{}.AcceptedExitCodes())
}
