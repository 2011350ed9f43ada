package dedup

type Reason string

const (
	ReasonURL         Reason = "URL"
	ReasonAuthorTitle Reason = "author+title"
)

// Key identifies a post: its canonical URL, author, and normalized title.
// An empty Title opts the post out of author+title matching.
type Key struct {
	URL    string
	Author string
	Title  string
}

type authorTitle struct {
	Author string
	Title  string
}

// Index holds the identities seen in one run. It is not safe for concurrent use.
type Index struct {
	urls   map[string]struct{}
	titles map[authorTitle]string
}

func NewIndex() *Index {
	return &Index{
		urls:   make(map[string]struct{}),
		titles: make(map[authorTitle]string),
	}
}

// Check reports whether key matches an indexed post and why. URL matches win
// over author+title matches.
func (x *Index) Check(key Key) (Reason, bool) {
	if _, ok := x.urls[key.URL]; ok {
		return ReasonURL, true
	}
	if key.Title != "" {
		if _, ok := x.titles[authorTitle{key.Author, key.Title}]; ok {
			return ReasonAuthorTitle, true
		}
	}
	return "", false
}

// Classify checks key and, when it is new, adds it before returning.
func (x *Index) Classify(key Key) (Reason, bool) {
	if reason, dup := x.Check(key); dup {
		return reason, true
	}
	x.Add(key)
	return "", false
}

func (x *Index) Add(key Key) {
	if key.URL != "" {
		x.urls[key.URL] = struct{}{}
	}
	if key.Title != "" {
		x.titles[authorTitle{key.Author, key.Title}] = key.URL
	}
}

// ExistingURL returns the URL recorded for an author+title pair.
func (x *Index) ExistingURL(author, title string) (string, bool) {
	u, ok := x.titles[authorTitle{author, title}]
	return u, ok
}

func (x *Index) Len() int {
	return len(x.urls)
}
