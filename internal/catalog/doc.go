// Package catalog implements the on-disk dataset store and the Dataset/Table
// model steps read and write.
//
// A dataset lives in one directory at `<channel>/<namespace>/<version>/<short_name>/`
// under the catalog root. The directory holds an index.json with the dataset
// metadata, the recorded input checksum, and the table list, plus one
// `<table>.csv` and `<table>.meta.json` pair per table. Saves are
// all-or-nothing: content is staged in a temporary directory and renamed over
// the target only after every table passes its integrity checks.
package catalog
