package terabox

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestExtractToken(t *testing.T) {
	html := `<script>window.jsToken%20%3D%20fn%28%22AB12CD34EF%22%29</script>`
	require.Equal(t, "AB12CD34EF", ExtractToken(html))
}

func TestExtractToken_Encoded(t *testing.T) {
	// Delimiters are URL-encoded in the page source; the token between them
	// may itself carry percent escapes.
	html := `fn%28%22token%2Dwith%2Ddashes%22%29`
	require.Equal(t, "token-with-dashes", ExtractToken(html))
}

func TestExtractToken_Missing(t *testing.T) {
	require.Equal(t, "", ExtractToken("<html><body>no token here</body></html>"))
}

func TestExtractToken_UnterminatedDelimiter(t *testing.T) {
	require.Equal(t, "", ExtractToken("fn%28%22dangling"))
}
