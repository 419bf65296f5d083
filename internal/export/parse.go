package export

import (
	"fmt"

	"github.com/tidwall/gjson"
)

// regionFields is the width of one region row in the llvm-cov export:
// [lineStart, colStart, lineEnd, colEnd, executionCount, fileID,
// expandedFileID, kind].
const regionFields = 8

// Parse reads an llvm-cov JSON export document into an Export.
//
// The document shape is data[0].functions[], each function carrying a
// "filenames" list and numeric "regions" rows. A function record reporting
// more than one distinct file is malformed and fails parsing. A document
// with no data entries yields an empty export.
func Parse(data []byte) (*Export, error) {
	if !gjson.ValidBytes(data) {
		return nil, fmt.Errorf("failed to parse coverage export: invalid JSON")
	}

	exp := &Export{Digest: NewDigest(data)}

	functions := gjson.GetBytes(data, "data.0.functions")
	if !functions.Exists() {
		return exp, nil
	}

	var parseErr error
	functions.ForEach(func(_, fn gjson.Result) bool {
		f, err := parseFunction(fn)
		if err != nil {
			parseErr = err
			return false
		}
		exp.Functions = append(exp.Functions, f)
		return true
	})
	if parseErr != nil {
		return nil, parseErr
	}

	return exp, nil
}

func parseFunction(fn gjson.Result) (Function, error) {
	f := Function{Name: fn.Get("name").String()}

	for _, name := range fn.Get("filenames").Array() {
		path := name.String()
		if f.File == "" {
			f.File = path
			continue
		}
		if path != f.File {
			return Function{}, fmt.Errorf(
				"function %s reports more than one file: %s and %s", f.Name, f.File, path)
		}
	}
	if f.File == "" {
		return Function{}, fmt.Errorf("function %s reports no file", f.Name)
	}

	var rowErr error
	fn.Get("regions").ForEach(func(_, row gjson.Result) bool {
		fields := row.Array()
		if len(fields) < regionFields {
			rowErr = fmt.Errorf(
				"function %s has a malformed region row (%d fields)", f.Name, len(fields))
			return false
		}
		f.Regions = append(f.Regions, Region{
			StartLine: int(fields[0].Int()),
			StartCol:  int(fields[1].Int()),
			EndLine:   int(fields[2].Int()),
			EndCol:    int(fields[3].Int()),
			Count:     uint64(fields[4].Int()),
			Kind:      int(fields[7].Int()),
		})
		return true
	})
	if rowErr != nil {
		return Function{}, rowErr
	}

	return f, nil
}
