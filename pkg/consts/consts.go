package consts

import "os"

const (
	// ModeDir is the standard file mode for creating directories
	ModeDir = os.FileMode(0o755)

	// ModeFile is the standard file mode for creating files
	ModeFile = os.FileMode(0o644)

	// ConfigFile is the name of the installation config file. Its presence
	// marks a directory as an oossync installation root.
	ConfigFile = "oossync.yaml"

	// VersionFile is the name of the persisted version record.
	VersionFile = "version.json"

	// PendingFile marks an in-flight update transaction. It is written before
	// the installed set is replaced and removed once the version record has
	// been committed.
	PendingFile = ".pending"

	// LeaseFile is the mutual-exclusion lease guarding the update transaction.
	LeaseFile = ".oossync.lock"

	// SumFile is the name of the content hash file for a definition set.
	SumFile = "oossync.sum"

	// TestLogFile is the rendered per-definition validation log. It is
	// overwritten at the start of each validation pass.
	TestLogFile = "test_log.md"

	// DefinitionExt is the file extension for command definition files.
	DefinitionExt = ".md"
)
