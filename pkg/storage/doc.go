// Package storage provides atomic file writes for the exporter.
//
// WriteFileAtomic is the single write path for anything the exporter puts
// on disk: cached profile snapshots and exported spreadsheets. Data goes to
// a temporary file in the target directory, is synced, and is then renamed
// over the destination.
//
// Manager wraps it for the export command, placing spreadsheets in an
// output directory:
//
//	manager, err := storage.NewManager("exports")
//	if err != nil {
//	    return err
//	}
//	path, err := manager.SaveExport(buf, "alice", export.Filename("alice"))
package storage
