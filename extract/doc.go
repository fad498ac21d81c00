// Package extract pulls common contract fields out of document text.
//
// Each field is resolved through an ordered chain: a precise pattern, a
// looser pattern, then the first sentence containing one of the field's
// keywords. Every resolved value carries an evidence span whose Value is
// exactly the text between Start and End. Unresolved fields are nil.
package extract
