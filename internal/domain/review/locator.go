package review

import "fmt"

// Prefixes are the four fixed storage prefixes, one per artifact kind.
// They are process-wide configuration, never varied per request.
type Prefixes struct {
	PDF        string
	OCR        string
	Indicators string
	Annotated  string
}

// Locator resolves an artifact request to its storage key. Keys are plain
// prefix+filename concatenations; the filename is the only join key across
// artifact kinds.
type Locator struct {
	prefixes Prefixes
}

func NewLocator(p Prefixes) *Locator {
	return &Locator{prefixes: p}
}

func (l *Locator) Key(kind ArtifactKind, filename string) (string, error) {
	switch kind {
	case KindPDF:
		return l.prefixes.PDF + filename, nil
	case KindOCR:
		return l.prefixes.OCR + filename, nil
	case KindIndicators:
		return l.prefixes.Indicators + filename, nil
	case KindAnnotated:
		return l.prefixes.Annotated + filename, nil
	default:
		return "", fmt.Errorf("unknown artifact kind: %s", kind)
	}
}

// PDFPrefix exposes the listing prefix for the document index.
func (l *Locator) PDFPrefix() string { return l.prefixes.PDF }
