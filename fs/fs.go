package appfs

import "embed"

// FS embeds non-code assets, currently only the SQL migrations.
//go:embed migrations
var FS embed.FS
