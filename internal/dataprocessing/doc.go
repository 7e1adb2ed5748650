// Package dataprocessing turns raw makerspace access logs into cleaned usage records.
//
// # Architecture
//
// The package has two parts:
//
// 1. Parser: reads CSV and XLSX exports and maps their header row to logical columns
// 2. Preparer: validates each row, resolves equipment through the catalog, and tags
// closure weeks and semesters
//
// Rows that fail a rule are never fatal. They are counted in a
// domain.DiscardReport with one of the domain.DiscardReason values and kept
// for discarded_rows.csv. Only an unreadable file aborts a run.
//
// # Usage
//
//	prep, err := dataprocessing.NewPreparer(logger, dataprocessing.PreparerConfig{
//	    Catalog:  catalog,
//	    Window:   window,
//	    Closures: closures,
//	    Terms:    terms,
//	    Location: loc,
//	})
//	dataset, err := prep.Prepare(ctx, inputs)
//
// Names are never written out: "First Last" is replaced by its SHA-256 hex digest.
package dataprocessing
