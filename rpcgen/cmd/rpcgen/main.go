// Command rpcgen is the tinyrpc service code generator (spec §4.1). It
// parses a Go source file for an interface type and emits a sibling
// "<type>_gen.go" (type name lowercased) containing:
//
//   - the request sum (<Type>ClientData) and response sum (<Type>ServerData),
//     one variant per method, JSON-tagged by the capitalized method name;
//   - the dispatcher factory Into<Type>Processor;
//   - the client stub <Type>Client, one method per interface method.
//
// Usage, exactly like stringer:
//
//	//go:generate go run tinyrpc/rpcgen/cmd/rpcgen -type=Hello
//
// invoked from the package directory containing the interface declaration.
package main

import (
	"bytes"
	"flag"
	"fmt"
	"go/ast"
	"go/format"
	"go/parser"
	"go/token"
	"go/types"
	"os"
	"path/filepath"
	"strings"
)

func main() {
	typeName := flag.String("type", "", "name of the service interface to generate (required)")
	output := flag.String("output", "", "output file name; default srcdir/<type>_gen.go")
	flag.Parse()

	if *typeName == "" {
		fmt.Fprintln(os.Stderr, "rpcgen: -type is required")
		os.Exit(2)
	}

	args := flag.Args()
	if len(args) == 0 {
		args = []string{"."}
	}

	if err := run(*typeName, *output, args); err != nil {
		fmt.Fprintf(os.Stderr, "rpcgen: %v\n", err)
		os.Exit(1)
	}
}

func run(typeName, output string, patterns []string) error {
	dir, files, err := sourceFiles(patterns)
	if err != nil {
		return err
	}

	fset := token.NewFileSet()
	var pkgName string
	var svc *service

	for _, file := range files {
		f, err := parser.ParseFile(fset, file, nil, parser.ParseComments)
		if err != nil {
			return fmt.Errorf("parse %s: %w", file, err)
		}
		pkgName = f.Name.Name

		ast.Inspect(f, func(n ast.Node) bool {
			spec, ok := n.(*ast.TypeSpec)
			if !ok || spec.Name.Name != typeName {
				return true
			}
			iface, ok := spec.Type.(*ast.InterfaceType)
			if !ok {
				return true
			}
			svc, err = extractService(typeName, iface)
			return false
		})
		if err != nil {
			return err
		}
		if svc != nil {
			break
		}
	}

	if svc == nil {
		return fmt.Errorf("no interface named %s found in %v", typeName, files)
	}

	src, err := render(pkgName, svc)
	if err != nil {
		return fmt.Errorf("render: %w", err)
	}

	if output == "" {
		output = filepath.Join(dir, strings.ToLower(typeName)+"_gen.go")
	}
	return os.WriteFile(output, src, 0o644)
}

func sourceFiles(patterns []string) (dir string, files []string, err error) {
	for _, p := range patterns {
		info, statErr := os.Stat(p)
		if statErr != nil {
			return "", nil, statErr
		}
		if info.IsDir() {
			dir = p
			entries, readErr := os.ReadDir(p)
			if readErr != nil {
				return "", nil, readErr
			}
			for _, e := range entries {
				if !e.IsDir() && strings.HasSuffix(e.Name(), ".go") && !strings.HasSuffix(e.Name(), "_gen.go") && !strings.HasSuffix(e.Name(), "_test.go") {
					files = append(files, filepath.Join(p, e.Name()))
				}
			}
			continue
		}
		dir = filepath.Dir(p)
		files = append(files, p)
	}
	return dir, files, nil
}

// method describes one interface method after generation-time validation.
type method struct {
	Name      string // as declared, e.g. "hello"
	Variant   string // capitalized, e.g. "Hello"
	ParamType string // rendered source text of the single argument's type
	ResultType string // rendered source text of the success type
}

// service describes the whole interface being generated.
type service struct {
	Name    string
	Methods []method
}

// extractService walks the interface's method set, enforcing spec §4.1's
// input constraints: exactly one argument per method, and a
// (result, error) return shape.
func extractService(name string, iface *ast.InterfaceType) (*service, error) {
	svc := &service{Name: name}
	seen := make(map[string]bool)

	for _, field := range iface.Methods.List {
		if len(field.Names) == 0 {
			continue // embedded interface; not a method
		}
		methodName := field.Names[0].Name

		fn, ok := field.Type.(*ast.FuncType)
		if !ok {
			continue
		}

		if fn.Params == nil || len(fn.Params.List) != 1 || len(fn.Params.List[0].Names) > 1 {
			return nil, fmt.Errorf("rpc function expects one argument: %s.%s", name, methodName)
		}
		paramType := types.ExprString(fn.Params.List[0].Type)

		results := flattenFields(fn.Results)
		if len(results) != 2 {
			return nil, fmt.Errorf("rpc function %s.%s must return (T, error)", name, methodName)
		}
		if types.ExprString(results[1]) != "error" {
			return nil, fmt.Errorf("rpc function %s.%s must return error as its second value", name, methodName)
		}
		resultType := types.ExprString(results[0])

		variant := strings.ToUpper(methodName[:1]) + methodName[1:]
		if seen[variant] {
			return nil, fmt.Errorf("rpc function name collision after capitalization: %s", variant)
		}
		seen[variant] = true

		svc.Methods = append(svc.Methods, method{
			Name:       methodName,
			Variant:    variant,
			ParamType:  paramType,
			ResultType: resultType,
		})
	}

	return svc, nil
}

// flattenFields expands a *ast.FieldList's (possibly grouped) names into one
// ast.Expr per return value, in declaration order.
func flattenFields(fl *ast.FieldList) []ast.Expr {
	if fl == nil {
		return nil
	}
	var out []ast.Expr
	for _, f := range fl.List {
		n := len(f.Names)
		if n == 0 {
			n = 1
		}
		for i := 0; i < n; i++ {
			out = append(out, f.Type)
		}
	}
	return out
}

func render(pkgName string, svc *service) ([]byte, error) {
	var buf bytes.Buffer

	fmt.Fprintf(&buf, "// Code generated by rpcgen; DO NOT EDIT.\n\n")
	fmt.Fprintf(&buf, "package %s\n\n", pkgName)
	fmt.Fprintf(&buf, "import (\n\t\"encoding/json\"\n\t\"fmt\"\n\n\t\"tinyrpc/message\"\n\t\"tinyrpc/rpcerr\"\n\t\"tinyrpc/transport\"\n)\n\n")

	renderSum(&buf, svc, "ClientData", func(m method) string { return m.ParamType })
	renderSum(&buf, svc, "ServerData", func(m method) string { return m.ResultType })
	renderProcessor(&buf, svc)
	renderClient(&buf, svc)

	return format.Source(buf.Bytes())
}

// renderSum emits the request or response sum type: one pointer field per
// method, plus its Marshal/UnmarshalJSON pair implementing the tagged-union
// wire shape.
func renderSum(buf *bytes.Buffer, svc *service, suffix string, fieldType func(method) string) {
	typeName := svc.Name + suffix

	fmt.Fprintf(buf, "// %s is the %s sum for the %s service: one variant per\n", typeName, wireKind(suffix), svc.Name)
	fmt.Fprintf(buf, "// method, keyed by its capitalized name on the wire.\n")
	fmt.Fprintf(buf, "type %s struct {\n", typeName)
	for _, m := range svc.Methods {
		fmt.Fprintf(buf, "\t%s *%s\n", m.Variant, fieldType(m))
	}
	fmt.Fprintf(buf, "}\n\n")

	fmt.Fprintf(buf, "func (d %s) MarshalJSON() ([]byte, error) {\n\tswitch {\n", typeName)
	for _, m := range svc.Methods {
		fmt.Fprintf(buf, "\tcase d.%s != nil:\n", m.Variant)
		fmt.Fprintf(buf, "\t\treturn json.Marshal(struct {\n\t\t\t%s %s `json:\"%s\"`\n\t\t}{%s: *d.%s})\n",
			m.Variant, fieldType(m), m.Variant, m.Variant, m.Variant)
	}
	fmt.Fprintf(buf, "\tdefault:\n\t\treturn nil, fmt.Errorf(\"%s: %s has no variant set\")\n\t}\n}\n\n", strings.ToLower(svc.Name), typeName)

	fmt.Fprintf(buf, "func (d *%s) UnmarshalJSON(b []byte) error {\n\tvar wire struct {\n", typeName)
	for _, m := range svc.Methods {
		fmt.Fprintf(buf, "\t\t%s *%s `json:\"%s\"`\n", m.Variant, fieldType(m), m.Variant)
	}
	fmt.Fprintf(buf, "\t}\n\tif err := json.Unmarshal(b, &wire); err != nil {\n\t\treturn err\n\t}\n")
	for _, m := range svc.Methods {
		fmt.Fprintf(buf, "\tif wire.%s != nil {\n\t\td.%s = wire.%s\n\t\treturn nil\n\t}\n", m.Variant, m.Variant, m.Variant)
	}
	fmt.Fprintf(buf, "\treturn fmt.Errorf(\"%s: %s wire value has no known variant\")\n}\n\n", strings.ToLower(svc.Name), typeName)
}

func wireKind(suffix string) string {
	if suffix == "ClientData" {
		return "request"
	}
	return "response"
}

// renderProcessor emits the service contract (the pre-existing interface is
// left untouched in its own file) and the dispatcher factory.
func renderProcessor(buf *bytes.Buffer, svc *service) {
	fmt.Fprintf(buf, "// Into%sProcessor consumes svc and returns the dispatcher that converts\n", svc.Name)
	fmt.Fprintf(buf, "// decoded requests into typed %s method calls.\n", svc.Name)
	fmt.Fprintf(buf, "func Into%sProcessor(svc %s) transport.Processor[%sClientData, %sServerData] {\n",
		svc.Name, svc.Name, svc.Name, svc.Name)
	fmt.Fprintf(buf, "\treturn func(req message.Request[%sClientData]) message.Response[%sServerData] {\n", svc.Name, svc.Name)
	fmt.Fprintf(buf, "\t\tswitch {\n")
	for _, m := range svc.Methods {
		fmt.Fprintf(buf, "\t\tcase req.Data.%s != nil:\n", m.Variant)
		fmt.Fprintf(buf, "\t\t\tv, err := svc.%s(*req.Data.%s)\n", m.Name, m.Variant)
		fmt.Fprintf(buf, "\t\t\tif err != nil {\n\t\t\t\treturn message.ErrorResponse[%sServerData](message.NewProcessorError(err.Error()))\n\t\t\t}\n", svc.Name)
		fmt.Fprintf(buf, "\t\t\treturn message.DataResponse(%sServerData{%s: &v})\n", svc.Name, m.Variant)
	}
	fmt.Fprintf(buf, "\t\tdefault:\n\t\t\treturn message.ErrorResponse[%sServerData](message.NewBadRequest())\n\t\t}\n\t}\n}\n\n", svc.Name)
}

// renderClient emits the generated client stub: one transport round trip
// per interface method, demultiplexing the response back into (R, error).
func renderClient(buf *bytes.Buffer, svc *service) {
	clientName := svc.Name + "Client"

	fmt.Fprintf(buf, "// %s is the generated client stub: one method per %s\n", clientName, svc.Name)
	fmt.Fprintf(buf, "// interface method, each performing a single transport round trip.\n")
	fmt.Fprintf(buf, "type %s struct {\n\tconn transport.Conn[%sClientData, %sServerData]\n}\n\n", clientName, svc.Name, svc.Name)

	fmt.Fprintf(buf, "// New%s binds a client transport and returns a ready-to-use stub.\n", clientName)
	fmt.Fprintf(buf, "func New%s(t transport.ClientTransport[%sClientData, %sServerData]) *%s {\n\treturn &%s{conn: t.Connect()}\n}\n\n",
		clientName, svc.Name, svc.Name, clientName, clientName)

	for _, m := range svc.Methods {
		fmt.Fprintf(buf, "func (c *%s) %s(arg %s) (%s, error) {\n", clientName, m.Variant, m.ParamType, m.ResultType)
		fmt.Fprintf(buf, "\tvar zero %s\n", m.ResultType)
		fmt.Fprintf(buf, "\tresp, err := c.conn(message.Request[%sClientData]{Data: %sClientData{%s: &arg}})\n", svc.Name, svc.Name, m.Variant)
		fmt.Fprintf(buf, "\tif err != nil {\n\t\treturn zero, err\n\t}\n")
		fmt.Fprintf(buf, "\tif resp.IsError() {\n\t\treturn zero, rpcerr.FromServer(resp.Err)\n\t}\n")
		fmt.Fprintf(buf, "\tif resp.Data.%s == nil {\n\t\treturn zero, rpcerr.NewInvalidResponseType()\n\t}\n", m.Variant)
		fmt.Fprintf(buf, "\treturn *resp.Data.%s, nil\n}\n\n", m.Variant)
	}
}
