package kvrepos

import (
	"encoding/json"
	"time"

	"github.com/pkg/errors"

	"github.com/trezcool/davomat/core"
)

// BackupKeys are the keys carried by export documents. Users are never exported.
var BackupKeys = []string{
	core.KeyChildren,
	core.KeyAttendance,
	core.KeyTeacherAttendance,
	core.KeyPayments,
	core.KeyPaymentReceipts,
}

const exportDateKey = "exportDate"

var ErrMalformedBackup = errors.New("malformed backup document")

// Export renders every backup key as a single JSON document stamped with the export time.
func (db *DB) Export(at time.Time) ([]byte, error) {
	db.Lock()
	defer db.Unlock()

	doc := make(map[string]interface{}, len(BackupKeys)+1)
	for _, key := range BackupKeys {
		raw := json.RawMessage("[]")
		db.store.Load(key, &raw)
		doc[key] = raw
	}
	doc[exportDateKey] = at.UTC().Format(time.RFC3339)

	data, err := json.MarshalIndent(doc, "", "  ")
	return data, errors.Wrap(err, "encoding backup")
}

// Import overwrites every key present in the document. Nothing is written when the document is malformed.
// It returns the imported keys.
func (db *DB) Import(data []byte) ([]string, error) {
	var doc map[string]json.RawMessage
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, errors.Wrap(ErrMalformedBackup, err.Error())
	}

	toImport := make(map[string][]json.RawMessage)
	for _, key := range BackupKeys {
		raw, ok := doc[key]
		if !ok {
			continue
		}
		var rows []json.RawMessage
		if err := json.Unmarshal(raw, &rows); err != nil {
			return nil, errors.Wrapf(ErrMalformedBackup, "%s must be an array", key)
		}
		if rows == nil {
			rows = make([]json.RawMessage, 0)
		}
		toImport[key] = rows
	}

	db.Lock()
	defer db.Unlock()

	imported := make([]string, 0, len(toImport))
	for _, key := range BackupKeys {
		rows, ok := toImport[key]
		if !ok {
			continue
		}
		if err := db.store.Save(key, rows); err != nil {
			return imported, errors.Wrapf(err, "importing %s", key)
		}
		imported = append(imported, key)
	}
	return imported, nil
}
