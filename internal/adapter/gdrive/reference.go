package gdrive

import (
	"strings"

	"github.com/Ning0612/drivemirror/internal/domain"
)

const (
	// ReferenceMarker must appear in every folder sharing link
	ReferenceMarker = "drive.google.com"

	// folderIDSegment is the position of the identifier in
	// https://drive.google.com/drive/folders/<ID> when split on "/"
	folderIDSegment = 5
)

// ParseFolderReference extracts the folder identifier from a sharing link
//
// Accepted shapes:
//
//	https://drive.google.com/drive/folders/<ID>
//	https://drive.google.com/drive/folders/<ID>?usp=sharing
//	https://drive.google.com/drive/u/0/folders/<ID>
func ParseFolderReference(ref string) (string, error) {
	ref = strings.TrimSpace(ref)
	if !strings.Contains(ref, ReferenceMarker) {
		return "", &domain.InvalidReferenceError{Reference: ref, Reason: "not a Google Drive link"}
	}

	// Query string and fragment are never part of the identifier
	if i := strings.IndexAny(ref, "?#"); i >= 0 {
		ref = ref[:i]
	}

	segments := strings.Split(ref, "/")

	// Account-scoped links insert /u/<n>/ before "folders"
	var id string
	for i, seg := range segments {
		if seg == "folders" && i+1 < len(segments) {
			id = segments[i+1]
			break
		}
	}
	if id == "" {
		if len(segments) <= folderIDSegment {
			return "", &domain.InvalidReferenceError{Reference: ref, Reason: "missing folder identifier segment"}
		}
		id = segments[folderIDSegment]
	}

	if id == "" {
		return "", &domain.InvalidReferenceError{Reference: ref, Reason: "empty folder identifier"}
	}

	return id, nil
}
