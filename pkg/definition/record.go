package definition

import (
	"encoding/json"
	"time"

	"github.com/oostools/oossync/pkg/consts"
	"github.com/oostools/oossync/pkg/state"
	"github.com/pkg/errors"
)

// VersionRecord is the single live record describing which source revision an
// installation has applied and whether that set passed validation. It is only
// ever written immediately after a validation pass (or an explicit rollback),
// never speculatively.
//
// The serialized field names are a stable external interface consumed by
// front ends; do not rename them.
type VersionRecord struct {
	// Version is the source revision the installed set was taken from.
	Version string `json:"oos_version"`

	// UpdatedAt is when the record was written.
	UpdatedAt time.Time `json:"updated_at"`

	// ValidationPassed reports whether the installed set passed its most
	// recent validation.
	ValidationPassed bool `json:"validation_passed"`

	// TotalCommands is the number of definitions in the installed set.
	TotalCommands int `json:"total_commands"`

	// TestLog is the path of the rendered validation log for the run that
	// produced this record.
	TestLog string `json:"test_log"`
}

// LoadRecord reads the installation's version record from the state store.
// A missing or unparsable record returns (nil, nil): drift detection fails
// open toward re-validation instead of failing outright.
func LoadRecord(s state.Store) (*VersionRecord, error) {
	data, err := s.Read(consts.VersionFile)
	if err != nil {
		return nil, nil
	}

	var rec VersionRecord
	if err := json.Unmarshal(data, &rec); err != nil {
		// Corrupt record: treated as absent so the next run re-validates.
		return nil, nil
	}

	return &rec, nil
}

// SaveRecord persists the version record through the state store.
func SaveRecord(s state.Store, rec *VersionRecord) error {
	data, err := json.MarshalIndent(rec, "", "  ")
	if err != nil {
		return errors.Wrap(err, "failed to marshal version record")
	}

	return errors.Wrap(s.Write(consts.VersionFile, append(data, '\n')), "failed to persist version record")
}
