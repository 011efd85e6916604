package proxy

import (
	"net"
	"strconv"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBindingAssignsPortOnce(t *testing.T) {
	var b Binding
	assert.Zero(t, b.Port())
	assert.False(t, b.Bound())

	ln, err := b.Listen("127.0.0.1")
	require.NoError(t, err)
	defer ln.Close()

	port := b.Port()
	require.NotZero(t, port)
	_, p, err := net.SplitHostPort(ln.Addr().String())
	require.NoError(t, err)
	assert.Equal(t, strconv.Itoa(port), p)

	_, err = b.Listen("127.0.0.1")
	assert.ErrorIs(t, err, ErrAlreadyBound)
	assert.Equal(t, port, b.Port())
}

func TestBindingInvalidHost(t *testing.T) {
	var b Binding
	_, err := b.Listen("256.0.0.1")
	assert.Error(t, err)
	assert.Zero(t, b.Port())
}
