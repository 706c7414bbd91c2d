package appfs

import "embed"

// FS embeds non-Go assets (database migrations) into the binaries.
//go:embed migrations
var FS embed.FS
