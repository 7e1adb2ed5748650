// Package files provides file system operations for the pipeline.
//
// Discovery finds raw usage exports (CSV and XLSX) in name order so every
// run reads rows in the same sequence.
//
// Manager writes artifacts atomically and resolves paths against the base
// directory.
//
//	discovery := files.NewDiscovery(paths.BaseDir)
//	inputs, err := discovery.FindInputFiles(paths.RawDir)
//
//	manager := files.NewManager(paths)
//	err = manager.WriteAtomic(paths.WeeklyUsageCSV, func(w io.Writer) error { ... })
package files
