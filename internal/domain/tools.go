package domain

// ToolPaths holds the external binaries per engine. An empty path disables
// the capability that needs it.
type ToolPaths struct {
	PgDump    string
	PgRestore string
	MySQLDump string
	MySQL     string
}
