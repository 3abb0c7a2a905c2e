package domain

import "strings"

// MimeTypeFolder is the MIME type Google Drive assigns to folders
const MimeTypeFolder = "application/vnd.google-apps.folder"

// workspacePrefix marks Google-native documents (Docs, Sheets, shortcuts...)
// that have no binary content to stream
const workspacePrefix = "application/vnd.google-apps."

// EntryKind distinguishes files from folders in a remote listing
type EntryKind int

const (
	KindFile EntryKind = iota
	KindFolder
)

// String returns the string representation of the kind
func (k EntryKind) String() string {
	switch k {
	case KindFile:
		return "file"
	case KindFolder:
		return "folder"
	default:
		return "unknown"
	}
}

// RemoteEntry is one immediate child of a remote folder
type RemoteEntry struct {
	// ID is the provider identifier of the entry
	ID string

	// Name is the display name, not guaranteed to be unique within a folder
	Name string

	// Kind indicates if this is a file or a folder
	Kind EntryKind

	// MimeType as reported by the provider
	MimeType string

	// Size in bytes (0 for folders and native documents)
	Size int64

	// MD5 is the hex content checksum, empty when the provider has none
	MD5 string
}

// IsFolder returns true if this entry is a folder
func (e RemoteEntry) IsFolder() bool {
	return e.Kind == KindFolder
}

// IsFile returns true if this entry is a file
func (e RemoteEntry) IsFile() bool {
	return e.Kind == KindFile
}

// IsWorkspaceDocument reports whether the entry is a Google-native document
// that cannot be downloaded as-is
func IsWorkspaceDocument(mimeType string) bool {
	return mimeType != MimeTypeFolder && strings.HasPrefix(mimeType, workspacePrefix)
}

// Partition splits a listing into files and folders, preserving order
func Partition(entries []RemoteEntry) (files, folders []RemoteEntry) {
	for _, e := range entries {
		if e.IsFolder() {
			folders = append(folders, e)
		} else {
			files = append(files, e)
		}
	}
	return files, folders
}
