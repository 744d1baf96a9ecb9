package models

// Content is a corpus document whose pages are scanned images.
type Content struct {
	ID                  string                        `firestore:"-" json:"id"`
	CorpusID            string                        `firestore:"-" json:"corpusId"`
	Path                string                        `firestore:"path" json:"path"`
	PageFileCollections map[string]PageFileCollection `firestore:"pageFileCollections,omitempty" json:"pageFileCollections,omitempty"`
	PageSets            map[string]PageSet            `firestore:"pageSets,omitempty" json:"pageSets,omitempty"`
}

// PageFileCollection maps page reference numbers to page files. Firestore maps
// are unordered, so the collection order is carried separately.
type PageFileCollection struct {
	Label         string              `firestore:"label,omitempty" json:"label"`
	PageFiles     map[string]PageFile `firestore:"pageFiles" json:"pageFiles"`
	OrderedRefNos []string            `firestore:"orderedRefNos" json:"orderedRefNos"`
}

// Ordered returns the ref numbers in collection order, skipping any that have
// no page file.
func (c PageFileCollection) Ordered() []string {
	refNos := make([]string, 0, len(c.OrderedRefNos))
	for _, refNo := range c.OrderedRefNos {
		if _, ok := c.PageFiles[refNo]; ok {
			refNos = append(refNos, refNo)
		}
	}
	return refNos
}

// Lookup returns the page file for refNo.
func (c PageFileCollection) Lookup(refNo string) (PageFile, bool) {
	pf, ok := c.PageFiles[refNo]
	return pf, ok
}

// PageFile describes one page image. When IIIFInfo is set, Path holds the
// IIIF image identifier instead of a local file path.
type PageFile struct {
	Path     string    `firestore:"path" json:"path"`
	ByteSize int64     `firestore:"byteSize,omitempty" json:"byteSize,omitempty"`
	Width    int       `firestore:"width,omitempty" json:"width,omitempty"`
	Height   int       `firestore:"height,omitempty" json:"height,omitempty"`
	IIIFInfo *IIIFInfo `firestore:"iiifInfo,omitempty" json:"iiifInfo,omitempty"`
}

// IsIIIF reports whether the page is served by a IIIF image server.
func (p PageFile) IsIIIF() bool {
	return p.IIIFInfo != nil
}

// IIIFInfo carries IIIF-specific settings for a remotely hosted page image.
type IIIFInfo struct {
	FixedRegion *Region `firestore:"fixedRegion,omitempty" json:"fixedRegion,omitempty"`
}

// Region is a pixel rectangle in IIIF region coordinates.
type Region struct {
	X int `firestore:"x" json:"x"`
	Y int `firestore:"y" json:"y"`
	W int `firestore:"w" json:"w"`
	H int `firestore:"h" json:"h"`
}

// PageSet is a named subset of a document's pages.
type PageSet struct {
	Label  string   `firestore:"label,omitempty" json:"label"`
	RefNos []string `firestore:"refNos" json:"refNos"`
}

// Contains reports whether refNo belongs to the set.
func (s PageSet) Contains(refNo string) bool {
	for _, r := range s.RefNos {
		if r == refNo {
			return true
		}
	}
	return false
}
