package operation

import (
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInject(t *testing.T) {
	tests := []struct {
		name   string
		src    string
		values Map
		want   string
	}{
		{
			name:   "Dollar markers are quoted",
			src:    `mutation { login(user: $user, pass: $pass) { token } }`,
			values: Map{"user": "x", "pass": "y"},
			want:   `login(user: "x", pass: "y") { token }`,
		},
		{
			name:   "Brace markers with filters",
			src:    `query { user(id: {{id|int}}, score: {{s|float}}, admin: {{a|bool}}, role: {{r|raw}}) { id } }`,
			values: Map{"id": " 42 ", "s": "1.5e3", "a": "TRUE", "r": "ADMIN"},
			want:   `user(id: 42, score: 1.5e3, admin: true, role: ADMIN) { id }`,
		},
		{
			name:   "Default filter is str",
			src:    `query { user(name: {{ name }}) { id } }`,
			values: Map{"name": "bob"},
			want:   `user(name: "bob") { id }`,
		},
		{
			name:   "Reserved characters are escaped",
			src:    `mutation { login(user: $user, pass: {{pass|str}}) { token } }`,
			values: Map{"user": `ad"min`, "pass": "p\\a\nss\t\x01"},
			want:   `login(user: "ad\"min", pass: "p\\a\nss\t\u0001") { token }`,
		},
		{
			name:   "Marker inside string literal is escaped but not quoted",
			src:    `query { search(q: "name:{{q}}") { id } }`,
			values: Map{"q": `a"b`},
			want:   `search(q: "name:a\"b") { id }`,
		},
		{
			name:   "Marker inside block string",
			src:    "query { note(text: \"\"\"x {{body}} y\"\"\") { id } }",
			values: Map{"body": `say """hi"""`},
			want:   "note(text: \"\"\"x say \\\"\"\"hi\\\"\"\" y\"\"\") { id }",
		},
		{
			name:   "Dollar inside string literal is plain text",
			src:    `query { price(label: "$5", v: $v) { id } }`,
			values: Map{"v": "1"},
			want:   `price(label: "$5", v: "1") { id }`,
		},
		{
			name:   "Unicode passes through",
			src:    `query { user(name: $n) { id } }`,
			values: Map{"n": "zoë"},
			want:   `user(name: "zoë") { id }`,
		},
		{
			name:   "Extra columns are ignored",
			src:    `query { user(name: $n) { id } }`,
			values: Map{"n": "a", "unused": "b"},
			want:   `user(name: "a") { id }`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tmpl, err := Parse(tt.src)
			require.NoError(t, err)

			got, err := tmpl.Inject(tt.values)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestInject_RoundTripLeavesNoMarkers(t *testing.T) {
	tmpl, err := Parse(`mutation { login(a: $a, b: {{b}}) { token } }`)
	require.NoError(t, err)

	got, err := tmpl.Inject(Map{"a": "x", "b": "y"})
	require.NoError(t, err)

	assert.Contains(t, got, `a: "x"`)
	assert.Contains(t, got, `b: "y"`)
	assert.NotContains(t, got, "$")
	assert.NotContains(t, got, "{{")
	assert.NotContains(t, got, "}}")
}

func TestInject_MissingVariable(t *testing.T) {
	tmpl, err := Parse(`mutation { login(user: $user, pass: $pass) { token } }`)
	require.NoError(t, err)

	got, err := tmpl.Inject(Map{"user": "x"})
	assert.Empty(t, got)

	var missing *MissingVariableError
	require.True(t, errors.As(err, &missing))
	assert.Equal(t, "pass", missing.Name)
}

func TestInject_InvalidValue(t *testing.T) {
	tests := []struct {
		name   string
		filter string
		value  string
	}{
		{name: "Int with letters", filter: FilterInt, value: "12a"},
		{name: "Int with leading zero", filter: FilterInt, value: "012"},
		{name: "Float garbage", filter: FilterFloat, value: "1.2.3"},
		{name: "Float overflow", filter: FilterFloat, value: "1e400"},
		{name: "Bool garbage", filter: FilterBool, value: "yes"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tmpl, err := Parse("query { a(x: {{v|" + tt.filter + "}}) }")
			require.NoError(t, err)

			_, err = tmpl.Inject(Map{"v": tt.value})
			var invalid *InvalidValueError
			require.True(t, errors.As(err, &invalid))
			assert.Equal(t, tt.filter, invalid.Filter)
			assert.True(t, strings.Contains(err.Error(), tt.value))
		})
	}
}

func TestQuote(t *testing.T) {
	assert.Equal(t, `""`, Quote(""))
	assert.Equal(t, `"a\\b\"c"`, Quote(`a\b"c`))
	assert.Equal(t, `"\u007f"`, Quote("\x7f"))
}
