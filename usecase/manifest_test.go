package usecase_test

import (
	"net/url"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"terastream/usecase"
)

func TestRewriteManifest_RewritesAbsoluteURLs(t *testing.T) {
	in := "#EXTM3U\n\nhttp://cdn.example/seg1.ts\n"
	out := usecase.RewriteManifest(in, "https://proxy.local/api/stream/segment")

	lines := strings.Split(out, "\n")
	require.Equal(t, "#EXTM3U", lines[0])
	require.Equal(t, "", lines[1])
	require.True(t, strings.HasPrefix(lines[2], "https://proxy.local/api/stream/segment?url="))

	rewritten, err := url.Parse(lines[2])
	require.NoError(t, err)
	require.Equal(t, "http://cdn.example/seg1.ts", rewritten.Query().Get("url"))
}

func TestRewriteManifest_PreservesMetadataLines(t *testing.T) {
	in := "#EXTM3U\n#EXT-X-STREAM-INF:BANDWIDTH=1280000\nhttps://cdn.example/v/720.m3u8\nrelative/seg.ts\n#EXT-X-ENDLIST"
	out := usecase.RewriteManifest(in, "https://proxy.local/seg")

	lines := strings.Split(out, "\n")
	require.Equal(t, "#EXT-X-STREAM-INF:BANDWIDTH=1280000", lines[1])
	require.Contains(t, lines[2], "url=")
	require.Equal(t, "relative/seg.ts", lines[3])
	require.Equal(t, "#EXT-X-ENDLIST", lines[4])
}

func TestHostAllowed(t *testing.T) {
	allowed := []string{"terabox.com", "teraboxcdn.com"}

	require.True(t, usecase.HostAllowed("teraboxcdn.com", allowed))
	require.True(t, usecase.HostAllowed("sub.terabox.com", allowed))
	require.True(t, usecase.HostAllowed("Sub.TERABOX.com", allowed))
	require.False(t, usecase.HostAllowed("evil.example", allowed))
	require.False(t, usecase.HostAllowed("notterabox.com", allowed))
	require.False(t, usecase.HostAllowed("terabox.com.evil.example", allowed))
}
