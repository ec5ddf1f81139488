package vtu

// Format is the dispatch record a mesh library keys by file extension.
type Format struct {
	Name       string
	Extensions []string
	Read       func(path string, opts ...ReadOption) (*Mesh, error)
	Write      func(path string, m *Mesh, opts ...WriteOption) error
}

// VTU registers ReadFile and WriteFile under Extension.
var VTU = Format{
	Name:       "vtu",
	Extensions: []string{Extension},
	Read:       ReadFile,
	Write:      WriteFile,
}

// Lookup returns the format registered for a file extension such as ".vtu".
func Lookup(ext string) (Format, bool) {
	for _, e := range VTU.Extensions {
		if e == ext {
			return VTU, true
		}
	}
	return Format{}, false
}
