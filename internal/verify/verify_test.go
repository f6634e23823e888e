package verify

import (
	"errors"
	"testing"

	"Crackgo/internal/operation"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestURL(t *testing.T) {
	tests := []struct {
		name    string
		raw     string
		wantErr bool
	}{
		{name: "HTTP", raw: "http://example.com/graphql", wantErr: false},
		{name: "HTTPS with port", raw: "https://10.0.0.5:8443/api/graphql", wantErr: false},
		{name: "Relative", raw: "/graphql", wantErr: true},
		{name: "No host", raw: "http:///graphql", wantErr: true},
		{name: "Wrong scheme", raw: "ftp://example.com/graphql", wantErr: true},
		{name: "Garbage", raw: "http://[::1", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			u, err := URL(tt.raw)
			if tt.wantErr {
				var pe *PreconditionError
				assert.True(t, errors.As(err, &pe))
				assert.Nil(t, u)
				return
			}
			require.NoError(t, err)
			assert.NotNil(t, u)
		})
	}
}

func TestAliasPrefix(t *testing.T) {
	assert.NoError(t, AliasPrefix("alias"))
	assert.NoError(t, AliasPrefix("_a1"))
	assert.Error(t, AliasPrefix("1alias"))
	assert.Error(t, AliasPrefix("my-alias"))
	assert.Error(t, AliasPrefix(""))
}

func TestTemplate(t *testing.T) {
	tests := []struct {
		name    string
		src     string
		alias   string
		wantErr string
	}{
		{name: "Login mutation", src: `mutation { login(user: $user, pass: $pass) { token } }`, alias: "alias"},
		{name: "Typed markers", src: `query { user(id: {{id|int}}, active: {{a|bool}}, role: {{r|raw}}, ratio: {{f|float}}) { id } }`, alias: "alias"},
		{name: "Named query", src: "query Lookup {\n  user(email: {{email}}) { id }\n}", alias: "q"},
		{name: "Two root fields", src: `query { a(x: $x) { id } b { id } }`, alias: "alias", wantErr: "exactly one root field"},
		{name: "Already aliased", src: `query { u: user(x: $x) { id } }`, alias: "alias", wantErr: "not valid GraphQL"},
		{name: "Variable definitions", src: `query Login($x: String) { user(x: "a") { id } }`, alias: "alias", wantErr: "variable definitions"},
		{name: "Broken selection", src: `query { user(x: $x) { id } ) }`, alias: "alias", wantErr: "not valid GraphQL"},
		{name: "Fragment spread", src: `query { ...UserFields }`, alias: "alias", wantErr: "not valid GraphQL"},
		{name: "Bad alias prefix", src: `query { user(x: $x) { id } }`, alias: "1a", wantErr: "not a valid GraphQL name"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tmpl, err := operation.Parse(tt.src)
			require.NoError(t, err)

			err = Template(tmpl, tt.alias)
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestInputs(t *testing.T) {
	tmpl, err := operation.Parse(`mutation { login(username: $username, password: {{passwd}}) { token } }`)
	require.NoError(t, err)

	assert.NoError(t, Inputs(tmpl, []string{"username", "passwd", "extra"}))

	err = Inputs(tmpl, []string{"username", "password"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), `"passwd" (did you mean "password"?)`)

	err = Inputs(tmpl, []string{"email"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), `"username"`)
	assert.NotContains(t, err.Error(), "did you mean \"email\"")
}
