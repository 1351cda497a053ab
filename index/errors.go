package index

import "errors"

// ErrWrongArity is returned when getExact is called with a number of
// values that doesn't match the index's declared field count, or getPrefix
// is called with zero or all of the fields.
var ErrWrongArity = errors.New("index: wrong number of values for this index")

// ErrReservedSeparator is returned when a value normalizes to a string
// containing the reserved composite-key separator.
var ErrReservedSeparator = errors.New("index: normalized value contains reserved separator")
