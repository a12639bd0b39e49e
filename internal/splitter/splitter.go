// Package splitter provides boundary-aware overlapping text splitting.
//
// Text is cut into fragments of at most a target size. Cut points
// prefer paragraph breaks, then line breaks, then sentence ends, then
// word boundaries; a hard cut is the last resort when a window contains
// no boundary at all. Consecutive fragments overlap so context is not
// lost at fragment edges.
package splitter

// DefaultFragmentSize is the default maximum fragment length in runes.
const DefaultFragmentSize = 1000

// DefaultOverlap is the default number of overlapping runes between
// consecutive fragments.
const DefaultOverlap = 200

// separators in preference order. The empty string means hard cut.
var separators = []string{"\n\n", "\n", ". ", " ", ""}

// Splitter splits text into overlapping fragments.
type Splitter struct {
	size    int
	overlap int
}

// Option configures the splitter.
type Option func(*Splitter)

// WithFragmentSize sets the maximum fragment size in runes.
func WithFragmentSize(size int) Option {
	return func(s *Splitter) {
		if size > 0 {
			s.size = size
		}
	}
}

// WithOverlap sets the overlap between fragments in runes.
func WithOverlap(overlap int) Option {
	return func(s *Splitter) {
		if overlap >= 0 {
			s.overlap = overlap
		}
	}
}

// New creates a splitter with the given options.
func New(opts ...Option) *Splitter {
	s := &Splitter{
		size:    DefaultFragmentSize,
		overlap: DefaultOverlap,
	}

	for _, opt := range opts {
		opt(s)
	}

	// Overlap must leave room for the window to advance.
	if s.overlap >= s.size {
		s.overlap = s.size / 4
	}

	return s
}

// Split cuts text into fragments of at most the configured size.
// Whitespace-only fragments are dropped.
func (s *Splitter) Split(text string) []string {
	runes := []rune(text)
	total := len(runes)
	if total == 0 {
		return nil
	}
	if total <= s.size {
		if piece := trim(runes); piece != "" {
			return []string{piece}
		}
		return nil
	}

	var pieces []string
	start := 0

	for start < total {
		end := start + s.size
		if end >= total {
			end = total
		} else {
			end = s.cutPoint(runes, start, end)
		}

		if piece := trim(runes[start:end]); piece != "" {
			pieces = append(pieces, piece)
		}

		if end >= total {
			break
		}

		next := end - s.overlap
		if next <= start {
			next = end
		}
		start = next
	}

	return pieces
}

// cutPoint finds the best boundary in (start, limit], scanning each
// separator class in preference order. The cut lands just after the
// separator so sentence punctuation stays with the preceding fragment.
func (s *Splitter) cutPoint(runes []rune, start, limit int) int {
	for _, sep := range separators {
		if sep == "" {
			return limit
		}
		if at := lastIndex(runes, []rune(sep), start+1, limit); at >= 0 {
			cut := at + len([]rune(sep))
			if cut > limit {
				cut = limit
			}
			return cut
		}
	}
	return limit
}

// lastIndex returns the highest index in [from, to) where sep begins,
// such that the whole separator fits before to. Returns -1 when absent.
func lastIndex(runes, sep []rune, from, to int) int {
	for i := to - len(sep); i >= from; i-- {
		match := true
		for j := range sep {
			if runes[i+j] != sep[j] {
				match = false
				break
			}
		}
		if match {
			return i
		}
	}
	return -1
}

func trim(runes []rune) string {
	start, end := 0, len(runes)
	for start < end && isSpace(runes[start]) {
		start++
	}
	for end > start && isSpace(runes[end-1]) {
		end--
	}
	return string(runes[start:end])
}

func isSpace(r rune) bool {
	return r == ' ' || r == '\t' || r == '\n' || r == '\r' || r == '\f'
}
