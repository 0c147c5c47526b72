package storage

import (
	"fmt"
	"strings"
)

// ObjectKey derives the storage key for a document from its ID and MIME type.
// The subtype becomes the file extension, so "application/pdf" yields
// "uploads/<id>.pdf". The key is assigned once at intake and never changes.
// Parameters:
//   - documentID: unique document identifier.
//   - fileType: MIME type of the uploaded file.
// Returns:
//   - string: object key of the form uploads/<documentID>.<subtype>.
func ObjectKey(documentID, fileType string) string {
	subtype := fileType
	if idx := strings.Index(fileType, "/"); idx != -1 {
		subtype = fileType[idx+1:]
	}
	return fmt.Sprintf("uploads/%s.%s", documentID, subtype)
}
