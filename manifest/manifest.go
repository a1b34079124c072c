package manifest

// MaxEntries is the number of entries kept after every persist.
const MaxEntries = 200

// Entry is one previously processed article. Source is the identity key.
type Entry struct {
	Title  string `json:"title"`
	Path   string `json:"path"`
	Pub    string `json:"pub"`
	Dek    string `json:"dek"`
	Source string `json:"source"`
}

// Manifest is the in-memory, newest-first history of processed articles.
//
// The set of known sources is a snapshot taken when the manifest was built:
// entries prepended afterwards do not change ContainsSource answers.
type Manifest struct {
	entries []Entry
	known   map[string]struct{}
}

// New builds a manifest from entries ordered newest-first.
func New(entries []Entry) *Manifest {
	m := &Manifest{
		entries: append([]Entry(nil), entries...),
		known:   make(map[string]struct{}, len(entries)),
	}
	for _, e := range entries {
		if e.Source != "" {
			m.known[e.Source] = struct{}{}
		}
	}
	return m
}

func (m *Manifest) ContainsSource(source string) bool {
	_, ok := m.known[source]
	return ok
}

// Prepend inserts entry as the newest one.
func (m *Manifest) Prepend(entry Entry) {
	m.entries = append([]Entry{entry}, m.entries...)
}

// Truncate drops the oldest entries beyond MaxEntries.
func (m *Manifest) Truncate() {
	if len(m.entries) > MaxEntries {
		m.entries = m.entries[:MaxEntries]
	}
}

// Entries returns a copy of the entries, newest first.
func (m *Manifest) Entries() []Entry {
	return append([]Entry(nil), m.entries...)
}

func (m *Manifest) Len() int {
	return len(m.entries)
}
