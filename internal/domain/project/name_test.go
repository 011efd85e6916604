package project

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseName(t *testing.T) {
	tests := []struct {
		name string
		uri  string
		want string
		err  error
	}{
		{name: "middle of query", uri: "/starter.zip?type=maven&baseDir=MyProject&groupId=com.example", want: "MyProject"},
		{name: "last parameter", uri: "/starter.zip?type=maven&baseDir=demo", want: "demo"},
		{name: "first parameter", uri: "/starter.zip?baseDir=demo&type=maven", want: "demo"},
		{name: "escaped", uri: "/starter.zip?baseDir=my%20app", want: "my app"},
		{name: "plus as space", uri: "/starter.zip?baseDir=my+app", want: "my app"},
		{name: "first occurrence wins", uri: "/starter.zip?baseDir=one&baseDir=two", want: "one"},
		{name: "similar key ignored", uri: "/starter.zip?xbaseDir=nope&baseDir=yes", want: "yes"},
		{name: "no query", uri: "/starter.zip", err: ErrNoProjectName},
		{name: "no marker", uri: "/starter.zip?type=maven", err: ErrNoProjectName},
		{name: "empty value", uri: "/starter.zip?baseDir=&type=maven", err: ErrNoProjectName},
		{name: "traversal", uri: "/starter.zip?baseDir=..", err: ErrInvalidProjectName},
		{name: "dot", uri: "/starter.zip?baseDir=.", err: ErrInvalidProjectName},
		{name: "slash", uri: "/starter.zip?baseDir=a%2Fb", err: ErrInvalidProjectName},
		{name: "backslash", uri: `/starter.zip?baseDir=a\b`, err: ErrInvalidProjectName},
		{name: "bad escape", uri: "/starter.zip?baseDir=%zz", err: ErrInvalidProjectName},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseName(tt.uri, "baseDir")
			if tt.err != nil {
				assert.ErrorIs(t, err, tt.err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestParseNameCustomMarker(t *testing.T) {
	got, err := ParseName("/download?artifact=x&name=widget", "name")
	require.NoError(t, err)
	assert.Equal(t, "widget", got)
}
