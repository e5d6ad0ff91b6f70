// Package store is a persistent store of short text records (todos).
//
// Every record lives in its own file named {id}.txt inside the data
// directory and the file body is the record's text. Ids are fixed-width,
// zero-padded decimal numbers issued by a counter persisted in counter.txt
// (see package idgen), so an id is never re-issued, even after the record
// was deleted or the process restarted.
//
// # Basic Usage
//
//	s, err := store.Open("./data")
//	if err != nil {
//	    log.Fatal(err)
//	}
//	rec, err := s.Create(ctx, "buy milk")
//	// rec.ID: "00001"
//	rec, err = s.Update(ctx, rec.ID, "buy oat milk")
//	all, err := s.ReadAll(ctx)
//	err = s.Delete(ctx, rec.ID)
//
// # Errors
//
// Operations on a missing record return *NotFoundError. Storage failures
// are returned as *ReadError or *WriteError wrapping the cause. Create
// returns ErrCapacityExceeded once the id counter doesn't fit the id width.
//
// # Thread Safety
//
// The Store is safe for concurrent use. Writes go through a temporary file
// that is renamed (or linked, for Create) into place, so readers never see
// partially written records.
package store
