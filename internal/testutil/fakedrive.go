package testutil

import (
	"bytes"
	"context"
	"crypto/md5"
	"encoding/hex"
	"io"
	"sync"
	"time"

	"github.com/Ning0612/drivemirror/internal/domain"
)

// FakeDrive is an in-memory remote folder tree
// It records every call and tracks how many downloads are open at once
type FakeDrive struct {
	mu sync.Mutex

	children map[string][]domain.RemoteEntry
	content  map[string][]byte
	listErr  map[string]error
	openErr  map[string]error
	badMD5   map[string]bool

	openDelay time.Duration

	listCalls   map[string]int
	openCalls   map[string]int
	inFlight    int
	maxInFlight int
	events      []string
}

// NewFakeDrive creates an empty fake
func NewFakeDrive() *FakeDrive {
	return &FakeDrive{
		children:  make(map[string][]domain.RemoteEntry),
		content:   make(map[string][]byte),
		listErr:   make(map[string]error),
		openErr:   make(map[string]error),
		badMD5:    make(map[string]bool),
		listCalls: make(map[string]int),
		openCalls: make(map[string]int),
	}
}

// AddFolder adds an empty folder under parentID
func (f *FakeDrive) AddFolder(parentID, id, name string) domain.RemoteEntry {
	entry := domain.RemoteEntry{ID: id, Name: name, Kind: domain.KindFolder, MimeType: domain.MimeTypeFolder}
	f.AddEntry(parentID, entry)
	return entry
}

// AddFile adds a binary file with a matching MD5 under parentID
func (f *FakeDrive) AddFile(parentID, id, name string, data []byte) domain.RemoteEntry {
	sum := md5.Sum(data)
	entry := domain.RemoteEntry{
		ID:       id,
		Name:     name,
		Kind:     domain.KindFile,
		MimeType: "application/octet-stream",
		Size:     int64(len(data)),
		MD5:      hex.EncodeToString(sum[:]),
	}
	f.mu.Lock()
	f.content[id] = data
	f.mu.Unlock()
	f.AddEntry(parentID, entry)
	return entry
}

// AddEntry appends an arbitrary entry to parentID's listing
func (f *FakeDrive) AddEntry(parentID string, entry domain.RemoteEntry) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.children[parentID] = append(f.children[parentID], entry)
}

// FailList makes every List of folderID return err
func (f *FakeDrive) FailList(folderID string, err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.listErr[folderID] = err
}

// FailOpen makes every Open of fileID return err
func (f *FakeDrive) FailOpen(fileID string, err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.openErr[fileID] = err
}

// CorruptContent serves different bytes than the listed MD5 describes
func (f *FakeDrive) CorruptContent(fileID string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.badMD5[fileID] = true
}

// SetOpenDelay holds each download open for d before returning it
func (f *FakeDrive) SetOpenDelay(d time.Duration) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.openDelay = d
}

// List implements adapter.Lister
func (f *FakeDrive) List(ctx context.Context, folderID string) ([]domain.RemoteEntry, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.listCalls[folderID]++
	f.events = append(f.events, "list:"+folderID)

	if err := ctx.Err(); err != nil {
		return nil, &domain.RemoteListError{FolderID: folderID, Err: err}
	}
	if err, ok := f.listErr[folderID]; ok {
		return nil, &domain.RemoteListError{FolderID: folderID, Err: err}
	}

	entries := f.children[folderID]
	out := make([]domain.RemoteEntry, len(entries))
	copy(out, entries)
	return out, nil
}

// Open implements adapter.Opener
// The download counts as in flight until the returned reader is closed
func (f *FakeDrive) Open(ctx context.Context, fileID string) (io.ReadCloser, error) {
	f.mu.Lock()
	f.openCalls[fileID]++
	f.events = append(f.events, "open:"+fileID)
	if err, ok := f.openErr[fileID]; ok {
		f.mu.Unlock()
		return nil, err
	}
	data, ok := f.content[fileID]
	if !ok {
		f.mu.Unlock()
		return nil, domain.ErrNotFound
	}
	if f.badMD5[fileID] {
		data = append([]byte("corrupt:"), data...)
	}
	f.inFlight++
	if f.inFlight > f.maxInFlight {
		f.maxInFlight = f.inFlight
	}
	delay := f.openDelay
	f.mu.Unlock()

	body := &fakeBody{Reader: bytes.NewReader(data), done: f.release}

	if delay > 0 {
		select {
		case <-time.After(delay):
		case <-ctx.Done():
			body.Close()
			return nil, ctx.Err()
		}
	}
	return body, nil
}

// Close implements adapter.Remote
func (f *FakeDrive) Close() error {
	return nil
}

func (f *FakeDrive) release() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.inFlight--
}

// ListCalls returns how many times folderID was listed
func (f *FakeDrive) ListCalls(folderID string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.listCalls[folderID]
}

// OpenCalls returns how many times fileID was opened
func (f *FakeDrive) OpenCalls(fileID string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.openCalls[fileID]
}

// TotalOpens returns the number of Open calls across all files
func (f *FakeDrive) TotalOpens() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	total := 0
	for _, n := range f.openCalls {
		total += n
	}
	return total
}

// MaxInFlight returns the peak number of simultaneously open downloads
func (f *FakeDrive) MaxInFlight() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.maxInFlight
}

// InFlight returns the number of downloads currently open
func (f *FakeDrive) InFlight() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.inFlight
}

// Events returns the ordered list/open call log ("list:<id>", "open:<id>")
func (f *FakeDrive) Events() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]string, len(f.events))
	copy(out, f.events)
	return out
}

type fakeBody struct {
	*bytes.Reader
	once sync.Once
	done func()
}

func (b *fakeBody) Close() error {
	b.once.Do(b.done)
	return nil
}
