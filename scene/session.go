package scene

import "errors"

// ErrNoDocument is returned when a command needs a document and none is open.
var ErrNoDocument = errors.New("no active document")

// Session owns the host's ambient document state. It is only ever touched
// from the UI thread (via the dispatcher drain), so it carries no lock.
type Session struct {
	doc         *Document
	autoCreate  bool
	defaultName string
}

// NewSession creates a session. When autoCreate is true, Document implicitly
// opens a document named defaultName instead of failing.
func NewSession(autoCreate bool, defaultName string) *Session {
	if defaultName == "" {
		defaultName = "Untitled"
	}
	return &Session{autoCreate: autoCreate, defaultName: defaultName}
}

// Active returns the open document, or nil.
func (s *Session) Active() *Document {
	return s.doc
}

// Document returns the open document, auto-creating one when policy allows.
func (s *Session) Document() (*Document, error) {
	if s.doc != nil {
		return s.doc, nil
	}
	if !s.autoCreate {
		return nil, ErrNoDocument
	}
	s.doc = NewDocument(s.defaultName)
	return s.doc, nil
}

// Create opens a new document, replacing any current one.
func (s *Session) Create(name string) *Document {
	if name == "" {
		name = s.defaultName
	}
	s.doc = NewDocument(name)
	return s.doc
}

// Close discards the open document.
func (s *Session) Close() {
	s.doc = nil
}
