package input

import (
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestReadCSV(t *testing.T) {
	src := "username, password\nadmin, hunter2\nroot,\"p,ss\"\n\nguest, \n"

	header, rows, err := ReadCSV(strings.NewReader(src), ',')
	require.NoError(t, err)
	assert.Equal(t, []string{"username", "password"}, header)
	require.Len(t, rows, 3)

	v, ok := rows[0].Lookup("password")
	assert.True(t, ok)
	assert.Equal(t, "hunter2", v)

	v, _ = rows[1].Lookup("password")
	assert.Equal(t, "p,ss", v)

	v, _ = rows[2].Lookup("password")
	assert.Equal(t, "", v)

	_, ok = rows[0].Lookup("email")
	assert.False(t, ok)

	assert.Equal(t, 2, rows[0].Line)
	assert.Equal(t, 5, rows[2].Line)
	assert.Equal(t, map[string]string{"username": "root", "password": "p,ss"}, rows[1].Map())
}

func TestReadCSV_Errors(t *testing.T) {
	tests := []struct {
		name    string
		src     string
		wantErr string
	}{
		{name: "Empty file", src: "", wantErr: "empty"},
		{name: "Header only", src: "user,pass\n", wantErr: "no data rows"},
		{name: "Short record", src: "user,pass\nadmin\n", wantErr: "wrong number of fields"},
		{name: "Blank header column", src: "user,,pass\na,b,c\n", wantErr: "column 2 is empty"},
		{name: "Duplicate header", src: "user,user\na,b\n", wantErr: "duplicated"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, _, err := ReadCSV(strings.NewReader(tt.src), ',')
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestReadCSV_HeaderOnlyIsErrNoRows(t *testing.T) {
	header, _, err := ReadCSV(strings.NewReader("user\n"), ',')
	assert.True(t, errors.Is(err, ErrNoRows))
	assert.Equal(t, []string{"user"}, header)
}

func TestReadCSVFile_Delimiter(t *testing.T) {
	path := filepath.Join(t.TempDir(), "creds.tsv")
	require.NoError(t, os.WriteFile(path, []byte("\uFEFFuser\tpass\nadmin\tadmin\n"), 0644))

	header, rows, err := ReadCSVFile(path, '\t')
	require.NoError(t, err)
	assert.Equal(t, []string{"user", "pass"}, header)
	require.Len(t, rows, 1)
	v, _ := rows[0].Lookup("pass")
	assert.Equal(t, "admin", v)

	_, _, err = ReadCSVFile(filepath.Join(t.TempDir(), "missing.csv"), ',')
	assert.Error(t, err)
}

func TestParseDelimiter(t *testing.T) {
	tests := []struct {
		in      string
		want    rune
		wantErr bool
	}{
		{in: "", want: ','},
		{in: ",", want: ','},
		{in: ";", want: ';'},
		{in: "|", want: '|'},
		{in: `\t`, want: '\t'},
		{in: "TAB", want: '\t'},
		{in: "::", wantErr: true},
		{in: `"`, wantErr: true},
		{in: "\n", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseDelimiter(tt.in)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestRow_MarshalJSONKeepsHeaderOrder(t *testing.T) {
	row := NewRow(2, []string{"username", "password"}, []string{"admin", `p"w`})
	out, err := json.Marshal(row)
	require.NoError(t, err)
	assert.Equal(t, `{"username":"admin","password":"p\"w"}`, string(out))
}
