package foxml

import (
	"strings"

	"github.com/beevik/etree"
)

// DefaultIndent is used when the indentation of a document cannot be
// determined.
const DefaultIndent = "  "

// detectIndent returns the whitespace the document uses for one level of
// indentation, judged by the line holding the first child of root.
func detectIndent(root *etree.Element) string {
	for _, t := range root.Child {
		cd, ok := t.(*etree.CharData)
		if !ok || !cd.IsWhitespace() {
			break
		}
		if i := strings.LastIndexByte(cd.Data, '\n'); i >= 0 {
			unit := cd.Data[i+1:]
			if unit != "" && strings.Trim(unit, " \t") == "" {
				return unit
			}
		}
	}
	return DefaultIndent
}

// Reindent assigns whitespace to the whole tree under the document element.
// Each element with child nodes has its leading whitespace and the whitespace
// after each child replaced by a newline and depth copies of unit. Text which
// is not entirely whitespace is never changed, and elements without child
// nodes keep their text exactly.
func (d *Document) Reindent(unit string) {
	indentChildren(d.Root(), 0, unit)
}

func indentChildren(e *etree.Element, depth int, unit string) {
	if !hasChildNodes(e) {
		return
	}
	inner := "\n" + strings.Repeat(unit, depth+1)
	outer := "\n" + strings.Repeat(unit, depth)

	i := setWhitespace(e, 0, inner)
	for i < len(e.Child) {
		if child, ok := e.Child[i].(*etree.Element); ok {
			indentChildren(child, depth+1, unit)
		}
		i++
		ws := inner
		if !hasNodeFrom(e, i) {
			ws = outer
		}
		i = setWhitespace(e, i, ws)
	}
}

// setWhitespace replaces the run of character data tokens in e starting at
// index start with the single token ws. If any token in the run holds
// something other than whitespace the run is left alone. It returns the
// index of the first token after the run.
func setWhitespace(e *etree.Element, start int, ws string) int {
	end := start
	text := false
	for end < len(e.Child) {
		cd, ok := e.Child[end].(*etree.CharData)
		if !ok {
			break
		}
		if cd.IsCData() || !cd.IsWhitespace() {
			text = true
		}
		end++
	}
	if text {
		return end
	}
	if end == start+1 && e.Child[start].(*etree.CharData).Data == ws {
		return end
	}
	for k := end - 1; k >= start; k-- {
		e.RemoveChildAt(k)
	}
	e.InsertChildAt(start, etree.NewText(ws))
	return start + 1
}

// hasChildNodes is true if e has any child token other than character data.
func hasChildNodes(e *etree.Element) bool {
	return hasNodeFrom(e, 0)
}

func hasNodeFrom(e *etree.Element, i int) bool {
	for ; i < len(e.Child); i++ {
		if _, ok := e.Child[i].(*etree.CharData); !ok {
			return true
		}
	}
	return false
}

// depth returns the number of ancestors between e and the document element.
func depth(e *etree.Element) int {
	n := 0
	for p := e.Parent(); p != nil; p = p.Parent() {
		n++
	}
	// the document itself is the outermost parent
	return n - 1
}
