package depgraph

import (
	"strings"

	"github.com/souporserious/renoun-depgraph/pathtrie"
)

type Kind uint8

const (
	KindOpaque Kind = iota
	KindFile
	KindDir
	KindNode
	KindSnapshot
)

func (k Kind) String() string {
	switch k {
	case KindFile:
		return "file"
	case KindDir:
		return "dir"
	case KindNode:
		return "node"
	case KindSnapshot:
		return "snapshot"
	default:
		return "opaque"
	}
}

// PathKind selects which path trie a key lives in.
type PathKind uint8

const (
	PathFile PathKind = iota
	PathDir
)

const (
	filePrefix = "file:"
	dirPrefix  = "dir:"
	nodePrefix = "node:"
)

// Key is a parsed dependency key. Raw always holds the original string, which
// remains the identity of the key everywhere in the graph.
type Key struct {
	Raw  string
	Kind Kind

	// Path is the normalized path for file, dir and snapshot keys.
	Path string
	// Node is the referenced node key for node keys.
	Node string

	// Snapshot fields: <Prefix>:<SnapshotKind>:<Path>:<Tag>.
	Prefix       string
	SnapshotKind PathKind
	Tag          string
}

// ParseKey classifies raw. Keys that match none of the known shapes are
// opaque: still valid dependency keys, but never spatially indexed.
func ParseKey(raw string) Key {
	switch {
	case strings.HasPrefix(raw, filePrefix):
		return Key{Raw: raw, Kind: KindFile, Path: pathtrie.Normalize(raw[len(filePrefix):])}
	case strings.HasPrefix(raw, dirPrefix):
		return Key{Raw: raw, Kind: KindDir, Path: pathtrie.Normalize(raw[len(dirPrefix):])}
	case strings.HasPrefix(raw, nodePrefix):
		return Key{Raw: raw, Kind: KindNode, Node: raw[len(nodePrefix):]}
	}
	if k, ok := parseSnapshot(raw); ok {
		return k
	}
	return Key{Raw: raw, Kind: KindOpaque}
}

func parseSnapshot(raw string) (Key, bool) {
	parts := strings.SplitN(raw, ":", 3)
	if len(parts) != 3 || parts[0] == "" {
		return Key{}, false
	}
	var kind PathKind
	switch parts[1] {
	case "file":
		kind = PathFile
	case "dir":
		kind = PathDir
	default:
		return Key{}, false
	}
	// the path may itself contain ':', the tag never does
	rest := parts[2]
	i := strings.LastIndexByte(rest, ':')
	if i < 0 || i == len(rest)-1 {
		return Key{}, false
	}
	return Key{
		Raw:          raw,
		Kind:         KindSnapshot,
		Path:         pathtrie.Normalize(rest[:i]),
		Prefix:       parts[0],
		SnapshotKind: kind,
		Tag:          rest[i+1:],
	}, true
}

// PathKind reports the trie and path a key is indexed under. ok is false for
// node and opaque keys.
func (k Key) PathKind() (kind PathKind, path string, ok bool) {
	switch k.Kind {
	case KindFile:
		return PathFile, k.Path, true
	case KindDir:
		return PathDir, k.Path, true
	case KindSnapshot:
		return k.SnapshotKind, k.Path, true
	}
	return 0, "", false
}

func (k Key) String() string {
	return k.Raw
}

func FileKey(path string) string {
	return filePrefix + path
}

func DirKey(path string) string {
	return dirPrefix + path
}

func NodeKey(nodeKey string) string {
	return nodePrefix + nodeKey
}

func SnapshotKey(prefix string, kind PathKind, path, tag string) string {
	k := "file"
	if kind == PathDir {
		k = "dir"
	}
	return prefix + ":" + k + ":" + path + ":" + tag
}
