// Package generator assembles, prunes, clusters and lays out the codemap
// graph from analysis results.
package generator

import (
	"crypto/md5"
	"encoding/hex"
	"strconv"

	"github.com/codemap-dev/codemapd/internal/analyzer"
	"github.com/codemap-dev/codemapd/internal/model"
)

// FileNodeID is the stable id of a file node.
func FileNodeID(path string) string {
	return "file:" + path
}

// ExternalNodeID is the stable id of an external-dependency node.
func ExternalNodeID(name string) string {
	return "external:" + name
}

// SymbolNodeID derives a stable id from the symbol's identity. Hashing
// path:type:name:line keeps ids short while surviving re-analysis of an
// unchanged file.
func SymbolNodeID(sym analyzer.Symbol) string {
	parts := sym.Location.FilePath +
		":" + string(sym.Kind) +
		":" + sym.Name +
		":" + strconv.Itoa(sym.Location.LineStart)
	return "symbol:" + shortHash(parts)
}

// EdgeID derives a stable id from the endpoints and relationship type.
func EdgeID(source, target string, typ model.EdgeType) string {
	return "edge:" + shortHash(source+":"+string(typ)+":"+target)
}

func shortHash(s string) string {
	sum := md5.Sum([]byte(s))
	return hex.EncodeToString(sum[:])[:12]
}
