// Package harvest orchestrates a full run: scrape the archive (or read an
// existing JSON archive), clean and sort the records, write the archive, load
// it into SQLite, compact the database, and export a copy without talk text.
//
// A run holds an exclusive lock file in the output directory so only one
// process writes the database at a time.
package harvest
