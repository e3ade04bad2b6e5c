package architecture_test

import (
	"go/parser"
	"go/token"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

const modulesPrefix = "outcomes/internal/modules/"

type sourceFile struct {
	path    string
	module  string
	layer   string
	imports []string
}

func moduleSources(t *testing.T) []sourceFile {
	t.Helper()
	fset := token.NewFileSet()
	var files []sourceFile
	err := filepath.WalkDir(filepath.Join("..", "modules"), func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() || !strings.HasSuffix(path, ".go") || strings.HasSuffix(path, "_test.go") {
			return nil
		}
		slash := filepath.ToSlash(path)
		file := sourceFile{path: slash, module: moduleName(slash), layer: detectLayer(slash)}
		if file.module == "" || file.layer == "" {
			return nil
		}
		node, parseErr := parser.ParseFile(fset, path, nil, parser.ImportsOnly)
		if parseErr != nil {
			return parseErr
		}
		for _, imp := range node.Imports {
			file.imports = append(file.imports, strings.Trim(imp.Path.Value, `"`))
		}
		files = append(files, file)
		return nil
	})
	if err != nil {
		t.Fatalf("walk modules: %v", err)
	}
	if len(files) == 0 {
		t.Fatalf("no module sources found")
	}
	return files
}

func TestHexagonalLayerImports(t *testing.T) {
	t.Parallel()
	for _, file := range moduleSources(t) {
		for _, importPath := range file.imports {
			if !strings.HasPrefix(importPath, modulesPrefix) {
				continue
			}
			if violatesLayerRule(file.module, file.layer, importPath) {
				t.Fatalf("forbidden import in %s (%s): %s", file.path, file.layer, importPath)
			}
		}
	}
}

// Domain packages hold the attribution and delivery rules and must stay free
// of I/O, platform packages and third-party libraries.
func TestDomainImportsStandardLibraryOnly(t *testing.T) {
	t.Parallel()
	for _, file := range moduleSources(t) {
		if file.layer != "domain" {
			continue
		}
		for _, importPath := range file.imports {
			if strings.HasPrefix(importPath, modulesPrefix+file.module+"/domain") {
				continue
			}
			if strings.Contains(strings.Split(importPath, "/")[0], ".") || strings.HasPrefix(importPath, "outcomes/") {
				t.Fatalf("domain file %s imports %s", file.path, importPath)
			}
		}
	}
}

func moduleName(path string) string {
	parts := strings.Split(path, "/")
	for i := 0; i < len(parts)-1; i++ {
		if parts[i] == "modules" {
			return parts[i+1]
		}
	}
	return ""
}

func detectLayer(path string) string {
	for _, layer := range []string{"adapter/in", "adapter/out", "usecase", "service", "domain", "port/in", "port/out", "dto"} {
		if strings.Contains(path, "/"+layer+"/") {
			return layer
		}
	}
	return ""
}

func isPortIn(path string) bool {
	return strings.HasSuffix(path, "/port/in") || strings.Contains(path, "/port/in/")
}

func isDTO(path string) bool {
	return strings.HasSuffix(path, "/dto") || strings.Contains(path, "/dto/")
}

// violatesLayerRule reports whether a file in module/layer may not import
// importPath. Other modules are reachable only through their port/in and dto.
func violatesLayerRule(module, layer, importPath string) bool {
	if !strings.HasPrefix(importPath, modulesPrefix+module+"/") {
		return !isPortIn(importPath) && !isDTO(importPath)
	}
	switch layer {
	case "adapter/in":
		return !isPortIn(importPath) && !isDTO(importPath)
	case "port/in", "dto":
		return strings.Contains(importPath, "/adapter/") || strings.Contains(importPath, "/service/") || strings.Contains(importPath, "/usecase/")
	case "usecase":
		return strings.Contains(importPath, "/adapter/")
	case "service":
		return strings.Contains(importPath, "/adapter/") || strings.Contains(importPath, "/usecase/")
	case "domain":
		return !strings.HasSuffix(importPath, "/domain")
	default:
		return false
	}
}
