package appfs

import "embed"

// FS embeds non-Go assets needed at runtime: goose migrations, email templates
// and the common-passwords list.
//go:embed migrations templates assets
var FS embed.FS
