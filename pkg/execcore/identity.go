package execcore

import "fmt"

// identity is the stable scheduling identity of an analyzer instance: the
// triple (class, section, file_dict) from DESIGN NOTES. Section and
// FileDict are identified by pointer, not deep equality — the same
// "handle, not value" approach the source's object-identity semantics use.
// identity is comparable and safe as a map key.
type identity struct {
	class    AnalyzerClass
	section  *Section
	fileDict *FileDict
}

func identityOf(a Analyzer) identity {
	return identity{
		class:    a.Class(),
		section:  a.Section(),
		fileDict: a.FileDict(),
	}
}

// String renders a stable, readable label for logs and span attributes. It
// is not part of the identity comparison itself.
func (id identity) String() string {
	return fmt.Sprintf("%s(section=%p,file_dict=%p)", id.class, id.section, id.fileDict)
}
