package vm

import (
	"testing"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/require"
)

func TestDiskMountWriteReadRoundTrip(t *testing.T) {
	disk := NewDisk(afero.NewMemMapFs())
	require.NoError(t, disk.Mount("/scratch.disk", "scratch", 16, 4))
	assert := require.New(t)
	assert.Equal(int64(64), disk.Size())

	require.NoError(t, disk.Seek(0))
	require.NoError(t, disk.WriteInt(0x12345678))

	require.NoError(t, disk.Seek(0))
	v, err := disk.ReadInt()
	require.NoError(t, err)
	assert.Equal(int32(305419896), v)
}

func TestDiskOutOfBoundsAccess(t *testing.T) {
	disk := NewDisk(afero.NewMemMapFs())
	require.NoError(t, disk.Mount("/d.disk", "d", 4, 1))
	require.NoError(t, disk.Seek(2))
	_, err := disk.ReadInt()
	require.ErrorIs(t, err, ErrDiskOutOfBounds)
}

func TestDiskNotMounted(t *testing.T) {
	disk := NewDisk(afero.NewMemMapFs())
	_, err := disk.ReadBool()
	require.ErrorIs(t, err, ErrDiskNotMounted)
}

func TestDiskRemountSilentlyUnmountsPrior(t *testing.T) {
	fs := afero.NewMemMapFs()
	disk := NewDisk(fs)
	require.NoError(t, disk.Mount("/a.disk", "a", 8, 1))
	require.NoError(t, disk.Mount("/b.disk", "b", 8, 1))
	require.Equal(t, "b", disk.Name())
}

func TestDiskCharRangeRoundTrip(t *testing.T) {
	disk := NewDisk(afero.NewMemMapFs())
	require.NoError(t, disk.Mount("/s.disk", "s", 64, 1))
	require.NoError(t, disk.WriteCharRange("hello"))
	require.NoError(t, disk.Seek(0))
	s, err := disk.ReadCharRange()
	require.NoError(t, err)
	require.Equal(t, "hello", s)
}
