package main

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"
)

var identifier = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

// classFiles returns the header and source for a plain C++ class with a
// default constructor.
func classFiles(class string) (headerName, header, sourceName, source string) {
	base := strings.ToLower(class)
	guard := strings.ToUpper(class) + "_H"
	headerName, sourceName = base+".h", base+".cpp"

	header = fmt.Sprintf(`#ifndef %[1]s
#define %[1]s

class %[2]s
{
public:
    %[2]s();
};

#endif // %[1]s
`, guard, class)

	source = fmt.Sprintf(`#include "%s"

%[2]s::%[2]s()
{

}
`, headerName, class)
	return headerName, header, sourceName, source
}

// writeClass writes the class files into dir.
func writeClass(dir, class string) (header, source document, err error) {
	if !identifier.MatchString(class) {
		return header, source, fmt.Errorf("%q is not a valid class name", class)
	}
	dir = strings.TrimSpace(dir)
	if info, err := os.Stat(dir); err != nil || !info.IsDir() {
		return header, source, fmt.Errorf("%q is not a directory", dir)
	}
	hName, hText, cName, cText := classFiles(class)
	header = document{path: filepath.Join(dir, hName), content: hText}
	source = document{path: filepath.Join(dir, cName), content: cText}
	for _, doc := range []document{header, source} {
		if err := os.WriteFile(doc.path, []byte(doc.content), 0o644); err != nil {
			return header, source, fmt.Errorf("failed to write %s: %w", filepath.Base(doc.path), err)
		}
	}
	return header, source, nil
}
