package host

import (
	"errors"
	"os/exec"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLocalLookPath(t *testing.T) {
	p, err := Local().LookPath("sh")
	require.NoError(t, err)
	assert.NotEmpty(t, p)

	_, err = Local().LookPath("paritybit-no-such-binary")
	assert.True(t, errors.Is(err, exec.ErrNotFound))
}

func TestLocalUserExists(t *testing.T) {
	ok, err := Local().UserExists("root")
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = Local().UserExists("paritybit-no-such-user")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestFake(t *testing.T) {
	f := NewFake().AddBinary("apt-get").AddUser("paritybit")

	p, err := f.LookPath("apt-get")
	require.NoError(t, err)
	assert.Equal(t, "/usr/bin/apt-get", p)

	_, err = f.LookPath("dnf")
	assert.True(t, errors.Is(err, exec.ErrNotFound))

	ok, _ := f.UserExists("paritybit")
	assert.True(t, ok)
	ok, _ = f.UserExists("other")
	assert.False(t, ok)
	assert.True(t, f.IsRoot())
}
