package packet

import "errors"

// errUnknownParser marks a command-graph argument node using a parser id
// this proxy's splicer doesn't know the property shape of - the caller
// forwards the original graph unmodified rather than guess at how many
// property bytes to skip.
var errUnknownParser = errors.New("packet: command graph uses an unrecognized argument parser")

// Command-graph node flag bits, per the "declare commands" packet layout.
const (
	cmdNodeTypeMask    = 0x03
	cmdNodeRedirect    = 0x08
	cmdNodeHasSuggest  = 0x10

	cmdNodeRoot     = 0
	cmdNodeLiteral  = 1
	cmdNodeArgument = 2
)

// Brigadier's own bundled argument parsers are registered first and keep
// these ids stable across every version this proxy supports; anything past
// them belongs to a per-version registry this proxy has no property table
// for.
const (
	parserBool    = 0
	parserFloat   = 1
	parserDouble  = 2
	parserInteger = 3
	parserLong    = 4
	parserString  = 5
)

const (
	numRangeHasMin = 0x01
	numRangeHasMax = 0x02
)

// parsedCmdNode is one decoded graph node: its exact original encoding (for
// nodes the splice leaves untouched) plus its children list (needed only for
// the root node, which is the sole node the splice ever rewrites).
type parsedCmdNode struct {
	raw      []byte
	children []int32
}

// SpliceCommandGraph appends one childless literal node per entry in extra
// as a new child of the graph's root node, leaving every other node's bytes
// untouched. Grounded on SPEC_FULL §4.7's command-graph intercept: a backend
// only ever needs its own commands shown; it never needs this proxy's
// commands reinterpreted.
//
// Returns errUnknownParser the first time it meets an argument node whose
// parser id isn't one of Brigadier's own built-ins (bool/float/double/
// integer/long/string) - this proxy has no table of every registry parser's
// property shape, and guessing wrong would silently corrupt every node after
// it. The caller is expected to forward the original graph unmodified in
// that case.
func SpliceCommandGraph(body []byte, extra []string) ([]byte, error) {
	if len(extra) == 0 {
		return body, nil
	}

	r := NewReader(body)
	count, err := r.ReadVarInt()
	if err != nil {
		return nil, err
	}

	nodes := make([]parsedCmdNode, 0, count)
	for i := int32(0); i < count; i++ {
		startLen := r.Len()
		children, err := readCmdNode(r)
		if err != nil {
			return nil, err
		}
		endLen := r.Len()
		nodes = append(nodes, parsedCmdNode{
			raw:      body[len(body)-startLen : len(body)-endLen],
			children: children,
		})
	}

	rootIndex, err := r.ReadVarInt()
	if err != nil {
		return nil, err
	}
	if rootIndex < 0 || int(rootIndex) >= len(nodes) {
		return nil, errors.New("packet: command graph root index out of range")
	}

	newIndices := make([]int32, len(extra))
	for i := range extra {
		newIndices[i] = int32(len(nodes)) + int32(i)
	}
	root := nodes[rootIndex]
	root.children = append(append([]int32{}, root.children...), newIndices...)

	w := NewWriter()
	if err := w.WriteVarInt(int32(len(nodes)) + int32(len(extra))); err != nil {
		return nil, err
	}
	for i, n := range nodes {
		if int32(i) == rootIndex {
			if err := writeRootNode(w, root.children); err != nil {
				return nil, err
			}
			continue
		}
		if err := w.WriteBytes(n.raw); err != nil {
			return nil, err
		}
	}
	for _, name := range extra {
		if err := writeLiteralNode(w, name); err != nil {
			return nil, err
		}
	}
	if err := w.WriteVarInt(rootIndex); err != nil {
		return nil, err
	}
	return w.Bytes(), nil
}

// readCmdNode consumes one node from r and returns its children indices -
// the only piece of a node the splice ever needs to inspect, since every
// other node is re-emitted from its captured raw bytes untouched.
func readCmdNode(r *Reader) ([]int32, error) {
	flags, err := r.ReadByte()
	if err != nil {
		return nil, err
	}
	childCount, err := r.ReadVarInt()
	if err != nil {
		return nil, err
	}
	children := make([]int32, childCount)
	for i := range children {
		if children[i], err = r.ReadVarInt(); err != nil {
			return nil, err
		}
	}
	if flags&cmdNodeRedirect != 0 {
		if _, err := r.ReadVarInt(); err != nil {
			return nil, err
		}
	}

	nodeType := flags & cmdNodeTypeMask
	if nodeType == cmdNodeLiteral || nodeType == cmdNodeArgument {
		if _, err := r.ReadString(32767); err != nil {
			return nil, err
		}
	}
	if nodeType == cmdNodeArgument {
		parserID, err := r.ReadVarInt()
		if err != nil {
			return nil, err
		}
		if err := skipParserProperties(r, parserID); err != nil {
			return nil, err
		}
	}
	if flags&cmdNodeHasSuggest != 0 {
		if _, err := r.ReadString(32767); err != nil {
			return nil, err
		}
	}
	return children, nil
}

func skipParserProperties(r *Reader, parserID int32) error {
	switch parserID {
	case parserBool, parserString:
		if parserID == parserString {
			_, err := r.ReadVarInt() // string mode: single word / quotable phrase / greedy
			return err
		}
		return nil
	case parserFloat, parserInteger:
		return skipNumericRange(r, 4)
	case parserDouble, parserLong:
		return skipNumericRange(r, 8)
	default:
		return errUnknownParser
	}
}

func skipNumericRange(r *Reader, width int) error {
	flags, err := r.ReadByte()
	if err != nil {
		return err
	}
	if flags&numRangeHasMin != 0 {
		if _, err := r.ReadBytes(width); err != nil {
			return err
		}
	}
	if flags&numRangeHasMax != 0 {
		if _, err := r.ReadBytes(width); err != nil {
			return err
		}
	}
	return nil
}

func writeRootNode(w *Writer, children []int32) error {
	if err := w.WriteByte(cmdNodeRoot); err != nil {
		return err
	}
	if err := w.WriteVarInt(int32(len(children))); err != nil {
		return err
	}
	for _, c := range children {
		if err := w.WriteVarInt(c); err != nil {
			return err
		}
	}
	return nil
}

func writeLiteralNode(w *Writer, name string) error {
	if err := w.WriteByte(cmdNodeLiteral); err != nil {
		return err
	}
	if err := w.WriteVarInt(0); err != nil { // no children: a plain leaf suggestion
		return err
	}
	return w.WriteString(name)
}
