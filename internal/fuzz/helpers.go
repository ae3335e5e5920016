// Package fuzz contains helpers for seeding native fuzz tests.
package fuzz

import (
	"archive/zip"
	"bytes"
	"fmt"
	"go/ast"
	"go/parser"
	"go/token"
	"io"
	"os"
	"strconv"
	"testing"
)

// InputType describes how the files of a corpus zip are stored.
type InputType uint8

const (
	// TypeRaw files are used as-is.
	TypeRaw InputType = iota
	// TypeGoFuzz files are in the "go test fuzz v1" corpus format.
	TypeGoFuzz
)

// AddFromZip will read the supplied zip and add all as corpus for f.
// Files starting with the go fuzz header are always decoded.
// If short is set only every 10th file is added.
func AddFromZip(f *testing.F, filename string, t InputType, short bool) {
	vals, err := ReadZip(filename, t, short)
	if err != nil {
		f.Fatal(err)
	}
	for _, v := range vals {
		f.Add(v)
	}
}

// ReadZip returns the inputs stored in the corpus zip.
func ReadZip(filename string, t InputType, short bool) ([][]byte, error) {
	file, err := os.Open(filename)
	if err != nil {
		return nil, err
	}
	defer file.Close()
	fi, err := file.Stat()
	if err != nil {
		return nil, err
	}
	zr, err := zip.NewReader(file, fi.Size())
	if err != nil {
		return nil, err
	}
	var res [][]byte
	for i, file := range zr.File {
		if short && i%10 != 0 {
			continue
		}
		rc, err := file.Open()
		if err != nil {
			return nil, err
		}
		b, err := io.ReadAll(rc)
		rc.Close()
		if err != nil {
			return nil, err
		}
		t := t
		if bytes.HasPrefix(b, []byte("go test fuzz")) {
			t = TypeGoFuzz
		}
		switch t {
		case TypeRaw:
			res = append(res, b)
		case TypeGoFuzz:
			vals, err := unmarshalCorpusFile(b)
			if err != nil {
				return nil, fmt.Errorf("%s: %w", file.Name, err)
			}
			res = append(res, vals...)
		default:
			return nil, fmt.Errorf("unknown input type %d", t)
		}
	}
	return res, nil
}

// unmarshalCorpusFile decodes corpus bytes into their respective values.
func unmarshalCorpusFile(b []byte) ([][]byte, error) {
	if len(b) == 0 {
		return nil, fmt.Errorf("cannot unmarshal empty string")
	}
	lines := bytes.Split(b, []byte("\n"))
	if len(lines) < 2 {
		return nil, fmt.Errorf("must include version and at least one value")
	}
	var vals = make([][]byte, 0, len(lines)-1)
	for _, line := range lines[1:] {
		line = bytes.TrimSpace(line)
		if len(line) == 0 {
			continue
		}
		v, err := parseCorpusValue(line)
		if err != nil {
			return nil, fmt.Errorf("malformed line %q: %v", line, err)
		}
		vals = append(vals, v)
	}
	return vals, nil
}

// parseCorpusValue parses a single []byte("...") line.
func parseCorpusValue(line []byte) ([]byte, error) {
	fs := token.NewFileSet()
	expr, err := parser.ParseExprFrom(fs, "(test)", line, 0)
	if err != nil {
		return nil, err
	}
	call, ok := expr.(*ast.CallExpr)
	if !ok {
		return nil, fmt.Errorf("expected call expression")
	}
	if len(call.Args) != 1 {
		return nil, fmt.Errorf("expected call expression with 1 argument; got %d", len(call.Args))
	}
	arg := call.Args[0]

	if arrayType, ok := call.Fun.(*ast.ArrayType); ok {
		if arrayType.Len != nil {
			return nil, fmt.Errorf("expected []byte or primitive type")
		}
		elt, ok := arrayType.Elt.(*ast.Ident)
		if !ok || elt.Name != "byte" {
			return nil, fmt.Errorf("expected []byte")
		}
		lit, ok := arg.(*ast.BasicLit)
		if !ok || lit.Kind != token.STRING {
			return nil, fmt.Errorf("string literal required for type []byte")
		}
		s, err := strconv.Unquote(lit.Value)
		if err != nil {
			return nil, err
		}
		return []byte(s), nil
	}
	return nil, fmt.Errorf("expected []byte")
}
