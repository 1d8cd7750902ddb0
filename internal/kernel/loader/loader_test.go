package loader

import (
	"encoding/binary"
	"testing"

	"github.com/stretchr/testify/require"
)

func buildImage(t *testing.T, entries map[string][]byte) []byte {
	t.Helper()
	var buf []byte
	countBuf := make([]byte, 4)
	binary.LittleEndian.PutUint32(countBuf, uint32(len(entries)))
	buf = append(buf, countBuf...)
	for name, data := range entries {
		nameLen := make([]byte, 2)
		binary.LittleEndian.PutUint16(nameLen, uint16(len(name)))
		buf = append(buf, nameLen...)
		buf = append(buf, name...)
		dataLen := make([]byte, 4)
		binary.LittleEndian.PutUint32(dataLen, uint32(len(data)))
		buf = append(buf, dataLen...)
		buf = append(buf, data...)
	}
	return buf
}

func TestParseImageRoundTripsASingleApp(t *testing.T) {
	img := buildImage(t, map[string][]byte{"hello": {1, 2, 3}})
	entries := parseImage(img)
	require.Len(t, entries, 1)
	require.Equal(t, "hello", entries[0].name)
	require.Equal(t, []byte{1, 2, 3}, entries[0].data)
}

func TestParseImageEmptyBlobYieldsNoApps(t *testing.T) {
	entries := parseImage([]byte{0, 0, 0, 0})
	require.Empty(t, entries)
}

func TestParseImageTruncatedBlobStopsEarly(t *testing.T) {
	img := buildImage(t, map[string][]byte{"a": {9}})
	entries := parseImage(img[:len(img)-1])
	require.Empty(t, entries)
}

func TestGetAppDataLooksUpByName(t *testing.T) {
	orig := apps
	t.Cleanup(func() { apps = orig })
	apps = []appEntry{{name: "printer", data: []byte("elf")}}

	data, ok := GetAppData("printer")
	require.True(t, ok)
	require.Equal(t, "elf", string(data))

	_, ok = GetAppData("missing")
	require.False(t, ok)
}

func TestListAppsReturnsNamesInOrder(t *testing.T) {
	orig := apps
	t.Cleanup(func() { apps = orig })
	apps = []appEntry{{name: "a"}, {name: "b"}}

	require.Equal(t, []string{"a", "b"}, ListApps())
}
