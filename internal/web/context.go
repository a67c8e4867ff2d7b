package web

import (
	"context"
	"net/http"

	"github.com/JonMunkholm/sourcefields/internal/core"
)

// withRequestMetadata adds the caller's IP and User-Agent to ctx so
// sampling runs can be traced back to the client.
func withRequestMetadata(ctx context.Context, r *http.Request) context.Context {
	ctx = core.ContextWithClientIP(ctx, r.RemoteAddr) // already rewritten by TrustedRealIP
	return core.ContextWithUserAgent(ctx, r.UserAgent())
}
