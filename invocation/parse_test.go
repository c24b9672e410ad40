package invocation

import (
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var parseTests = []struct {
	name string
	line string
	want *Invocation
}{
	{
		name: "command only",
		line: "stats",
		want: &Invocation{Command: "stats"},
	},
	{
		name: "param and flag",
		line: "cmd key=value -flag",
		want: &Invocation{
			Command: "cmd",
			Params:  []Param{{"key", "value"}},
			Flags:   []Flag{{"flag", true}},
		},
	},
	{
		name: "double dash flag",
		line: "poke --excited -formal",
		want: &Invocation{
			Command: "poke",
			Flags:   []Flag{{"excited", true}, {"formal", true}},
		},
	},
	{
		name: "surrounding whitespace",
		line: " \t hello   name=Ada \r\n",
		want: &Invocation{Command: "hello", Params: []Param{{"name", "Ada"}}},
	},
	{
		name: "quoted value",
		line: `say msg="hello there" to=me`,
		want: &Invocation{
			Command: "say",
			Params:  []Param{{"msg", "hello there"}, {"to", "me"}},
		},
	},
	{
		name: "quoted key and value",
		line: `set "long key"="a b"`,
		want: &Invocation{Command: "set", Params: []Param{{"long key", "a b"}}},
	},
	{
		name: "quoted equals stays in value",
		line: `eval expr="a=b"`,
		want: &Invocation{Command: "eval", Params: []Param{{"expr", "a=b"}}},
	},
	{
		name: "fully quoted equals is an argument",
		line: `echo "a=b"`,
		want: &Invocation{Command: "echo", Args: []string{"a=b"}},
	},
	{
		name: "escapes inside quotes",
		line: `echo "say \"hi\" \\ bye"`,
		want: &Invocation{Command: "echo", Args: []string{`say "hi" \ bye`}},
	},
	{
		name: "backslash outside quotes is literal",
		line: `path p=C:\tmp`,
		want: &Invocation{Command: "path", Params: []Param{{"p", `C:\tmp`}}},
	},
	{
		name: "empty value",
		line: "set key=",
		want: &Invocation{Command: "set", Params: []Param{{"key", ""}}},
	},
	{
		name: "duplicate key last wins",
		line: "set a=1 b=2 a=3",
		want: &Invocation{Command: "set", Params: []Param{{"a", "3"}, {"b", "2"}}},
	},
	{
		name: "duplicate flag collapses",
		line: "run -v -v --v",
		want: &Invocation{Command: "run", Flags: []Flag{{"v", true}}},
	},
	{
		name: "dashed token with equals is a param",
		line: "run -level=3",
		want: &Invocation{Command: "run", Params: []Param{{"-level", "3"}}},
	},
	{
		name: "bare dashes are arguments",
		line: "run - --",
		want: &Invocation{Command: "run", Args: []string{"-", "--"}},
	},
	{
		name: "quoted dash is an argument",
		line: `run "-v"`,
		want: &Invocation{Command: "run", Args: []string{"-v"}},
	},
	{
		name: "positional arguments",
		line: "proxy start office",
		want: &Invocation{Command: "proxy", Args: []string{"start", "office"}},
	},
	{
		name: "unicode",
		line: "grüß name=Zoë",
		want: &Invocation{Command: "grüß", Params: []Param{{"name", "Zoë"}}},
	},
}

func TestParse(t *testing.T) {
	for _, tt := range parseTests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Parse(tt.line)
			require.NoError(t, err)
			tt.want.Raw = tt.line
			if diff := cmp.Diff(tt.want, got); diff != "" {
				t.Errorf("Parse(%q) (-want +got):\n%s", tt.line, diff)
			}
		})
	}
}

func TestParse_Empty(t *testing.T) {
	for _, line := range []string{"", "   ", "\t\r\n"} {
		inv, err := Parse(line)
		assert.Nil(t, inv)
		assert.ErrorIs(t, err, ErrEmpty, "line %q", line)

		var perr *ParseError
		assert.False(t, errors.As(err, &perr), "empty line must not be a ParseError")
	}
}

func TestParse_Errors(t *testing.T) {
	tests := []struct {
		line string
		kind ErrorKind
		pos  int
	}{
		{`echo "open`, UnterminatedQuote, 5},
		{`say msg="hi there`, UnterminatedQuote, 8},
		{`say a="ok" b="no`, UnterminatedQuote, 13},
		{`"`, UnterminatedQuote, 0},
		{`echo "escaped \"`, UnterminatedQuote, 5},
		{`set =value`, EmptyKey, 4},
	}
	for _, tt := range tests {
		t.Run(tt.line, func(t *testing.T) {
			_, err := Parse(tt.line)
			var perr *ParseError
			require.ErrorAs(t, err, &perr)
			assert.Equal(t, tt.kind, perr.Kind)
			assert.Equal(t, tt.pos, perr.Pos)
		})
	}
}

func manyKeysLine(n int) string {
	var b strings.Builder
	b.WriteString("set")
	for i := 0; i < n; i++ {
		fmt.Fprintf(&b, " k%d=%d -f%d", i, i, i)
	}
	// repeat every key and flag once more
	for i := 0; i < n; i++ {
		fmt.Fprintf(&b, " k%d=again%d -f%d", i, i, i)
	}
	return b.String()
}

func TestParse_ManyKeys(t *testing.T) {
	const n = 5000
	inv, err := Parse(manyKeysLine(n))
	require.NoError(t, err)

	require.Len(t, inv.Params, n)
	require.Len(t, inv.Flags, n)
	for _, i := range []int{0, n / 2, n - 1} {
		assert.Equal(t, Param{Key: fmt.Sprintf("k%d", i), Value: fmt.Sprintf("again%d", i)}, inv.Params[i])
		assert.Equal(t, fmt.Sprintf("f%d", i), inv.Flags[i].Name)
	}
}

func BenchmarkParse_ManyKeys(b *testing.B) {
	line := manyKeysLine(2000)
	b.ReportAllocs()
	for i := 0; i < b.N; i++ {
		if _, err := Parse(line); err != nil {
			b.Fatal(err)
		}
	}
}

func TestHelpers_RoundTrip(t *testing.T) {
	inv, err := Parse(`deploy env=prod region="eu west" -force --dry-run target`)
	require.NoError(t, err)

	for _, p := range inv.Params {
		v, ok := GetParam(inv, p.Key)
		assert.True(t, ok)
		assert.Equal(t, p.Value, v)
	}
	for _, f := range inv.Flags {
		assert.True(t, HasFlag(inv, f.Name))
	}
	assert.Len(t, inv.Params, 2)
	assert.Len(t, inv.Flags, 2)

	_, ok := GetParam(inv, "missing")
	assert.False(t, ok)
	assert.False(t, HasFlag(inv, "target"))
	assert.Equal(t, "fallback", inv.ParamOr("missing", "fallback"))
	assert.Equal(t, "eu west", inv.ParamOr("region", "fallback"))
}

func TestHelpers_NilSafe(t *testing.T) {
	_, ok := GetParam(nil, "name")
	assert.False(t, ok)
	assert.False(t, HasFlag(nil, "v"))
}
